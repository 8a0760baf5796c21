// Package audio provides audio processing capabilities for toxvoice.
//
// This module implements fixed-ratio sample rate conversion between the
// capture rate and the encoder rate. The ratio is validated once at
// construction; afterwards every source chunk of InputFrameSize samples per
// channel becomes exactly FrameSize samples per channel.
package audio

import (
	"fmt"

	"github.com/opd-ai/toxvoice/limits"
	"github.com/sirupsen/logrus"
)

// Resampler provides frame-exact sample rate conversion.
//
// Uses linear interpolation, which provides good quality for voice
// communication without external dependencies. Output sample i of a frame is
// taken at source position (i+1)*in/out - 1, so the last output sample of a
// frame lands exactly on the last source sample and the previous frame's tail
// is carried over for upsampling.
type Resampler[T Sample] struct {
	inputRate      int
	outputRate     int
	channels       int
	frameSize      int // output samples per channel
	inputFrameSize int // source samples per channel
	factory        BufferFactory[T]
	lastSamples    []T // last source sample of the previous frame, per channel
}

// ResamplerConfig holds configuration for creating a resampler.
type ResamplerConfig struct {
	InputRate  int // Input sample rate in Hz
	OutputRate int // Output sample rate in Hz
	Channels   int // Number of audio channels (1=mono, 2=stereo)
	FrameSize  int // Output samples per channel per frame
}

// NewResampler creates a new frame-exact resampler.
//
// Returns ErrInvalidConfig for out-of-range rates, channels or frame size and
// ErrUnsupportedRatio when FrameSize*InputRate is not a multiple of OutputRate.
func NewResampler[T Sample](config ResamplerConfig, factory BufferFactory[T]) (*Resampler[T], error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewResampler",
		"input_rate":  config.InputRate,
		"output_rate": config.OutputRate,
		"channels":    config.Channels,
		"frame_size":  config.FrameSize,
	}).Info("Creating new audio resampler")

	if err := validateResamplerConfig(config); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewResampler",
			"error":    err.Error(),
		}).Error("Resampler validation failed")
		return nil, err
	}
	if factory == nil {
		factory = MakeFactory[T]{}
	}

	r := &Resampler[T]{
		inputRate:      config.InputRate,
		outputRate:     config.OutputRate,
		channels:       config.Channels,
		frameSize:      config.FrameSize,
		inputFrameSize: config.FrameSize * config.InputRate / config.OutputRate,
		factory:        factory,
		lastSamples:    make([]T, config.Channels),
	}

	logrus.WithFields(logrus.Fields{
		"function":         "NewResampler",
		"input_frame_size": r.inputFrameSize,
		"frame_size":       r.frameSize,
		"ratio":            float64(config.InputRate) / float64(config.OutputRate),
	}).Info("Audio resampler created successfully")

	return r, nil
}

// validateResamplerConfig checks rates, channels, frame size and the ratio.
func validateResamplerConfig(config ResamplerConfig) error {
	if err := limits.ValidateSamplingRate(config.InputRate); err != nil {
		return fmt.Errorf("%w: input: %v", ErrInvalidConfig, err)
	}
	if err := limits.ValidateSamplingRate(config.OutputRate); err != nil {
		return fmt.Errorf("%w: output: %v", ErrInvalidConfig, err)
	}
	if err := limits.ValidateChannels(config.Channels); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := limits.ValidateFrameSize(config.FrameSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if (config.FrameSize*config.InputRate)%config.OutputRate != 0 {
		return fmt.Errorf("%w: %d Hz -> %d Hz with %d-sample frames needs a fractional source chunk",
			ErrUnsupportedRatio, config.InputRate, config.OutputRate, config.FrameSize)
	}
	return nil
}

// Process replaces the frame's samples with their resampled counterpart.
// The frame must hold exactly InputFrameSize()*Channels samples.
func (r *Resampler[T]) Process(frame *Frame[T]) error {
	out, err := r.Resample(frame.Samples)
	if err != nil {
		return err
	}
	frame.Samples = out
	return nil
}

// Resample converts one source chunk into one output frame.
func (r *Resampler[T]) Resample(input []T) ([]T, error) {
	if len(input) != r.inputFrameSize*r.channels {
		return nil, fmt.Errorf("%w: resampler got %d samples, want %d",
			ErrFrameLength, len(input), r.inputFrameSize*r.channels)
	}

	output := r.factory.New(r.frameSize * r.channels)
	if len(output) != r.frameSize*r.channels {
		return nil, fmt.Errorf("%w: buffer factory returned %d samples, resampler needs %d",
			ErrFrameLength, len(output), r.frameSize*r.channels)
	}
	if r.inputRate == r.outputRate {
		copy(output, input)
		return output, nil
	}

	in, out := r.inputRate, r.outputRate
	for i := 0; i < r.frameSize; i++ {
		// Source position in units of 1/out samples.
		pos := (i+1)*in - out
		idx := pos / out
		rem := pos % out
		if pos < 0 {
			idx, rem = -1, pos+out
		}
		frac := float64(rem) / float64(out)

		for ch := 0; ch < r.channels; ch++ {
			var s0, s1 T
			if idx < 0 {
				s0 = r.lastSamples[ch]
				s1 = input[ch]
			} else {
				s0 = input[idx*r.channels+ch]
				s1 = s0
				if rem != 0 {
					s1 = input[(idx+1)*r.channels+ch]
				}
			}
			output[i*r.channels+ch] = fromFloat[T](float64(s0) + (float64(s1)-float64(s0))*frac)
		}
	}

	copy(r.lastSamples, input[len(input)-r.channels:])
	return output, nil
}

// GetName returns the stage name for debugging and logging.
func (r *Resampler[T]) GetName() string {
	return fmt.Sprintf("Resampler(%d->%d)", r.inputRate, r.outputRate)
}

// GetInputRate returns the configured input sample rate.
func (r *Resampler[T]) GetInputRate() int {
	return r.inputRate
}

// GetOutputRate returns the configured output sample rate.
func (r *Resampler[T]) GetOutputRate() int {
	return r.outputRate
}

// GetChannels returns the configured number of channels.
func (r *Resampler[T]) GetChannels() int {
	return r.channels
}

// InputFrameSize returns the source samples per channel consumed per frame.
func (r *Resampler[T]) InputFrameSize() int {
	return r.inputFrameSize
}

// FrameSize returns the output samples per channel produced per frame.
func (r *Resampler[T]) FrameSize() int {
	return r.frameSize
}

// Reset clears the carried-over interpolation state.
//
// This is useful when starting a new audio stream or when there's
// a discontinuity in the audio data.
func (r *Resampler[T]) Reset() {
	clear(r.lastSamples)
}

// Close releases resampler resources.
func (r *Resampler[T]) Close() error {
	return nil
}
