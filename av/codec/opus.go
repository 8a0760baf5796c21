// Package codec provides compressed encoder sinks for toxvoice pipelines.
//
// This file implements the Opus encoder sink on top of libopus (via gopus).
// Opus only accepts 16-bit fixed point input here, so pipelines feeding it
// are instantiated for int16.
package codec

import (
	"fmt"
	"sync"

	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/sirupsen/logrus"
	"layeh.com/gopus"
)

// maxPacketBytes bounds a single encoded Opus packet (RFC 6716 recommends
// 1275 bytes per frame).
const maxPacketBytes = 1275

// Application selects the libopus coding mode.
type Application int

const (
	// ApplicationVoip favours speech intelligibility.
	ApplicationVoip Application = iota
	// ApplicationAudio favours fidelity for music and mixed content.
	ApplicationAudio
	// ApplicationLowDelay disables speech optimizations for lowest latency.
	ApplicationLowDelay
)

// ParseApplication maps a configuration name to an Application.
func ParseApplication(name string) (Application, error) {
	switch name {
	case "", "voip":
		return ApplicationVoip, nil
	case "audio":
		return ApplicationAudio, nil
	case "lowdelay", "restricted_lowdelay":
		return ApplicationLowDelay, nil
	default:
		return 0, fmt.Errorf("%w: unknown opus application %q", ErrInvalidOpusConfig, name)
	}
}

func (a Application) gopus() gopus.Application {
	switch a {
	case ApplicationAudio:
		return gopus.Audio
	case ApplicationLowDelay:
		return gopus.RestrictedLowDelay
	default:
		return gopus.Voip
	}
}

// OpusConfig configures an OpusEncoder.
type OpusConfig struct {
	SamplingRate int         // 8000, 12000, 16000, 24000 or 48000
	FrameSize    int         // samples per channel; 2.5 to 60 ms
	Channels     int         // 1 or 2
	Bitrate      int         // bits per second, 0 keeps the libopus default
	Application  Application // coding mode
}

// OpusEncoder is an encoder sink producing one Opus packet per frame.
type OpusEncoder struct {
	config OpusConfig
	sink   audio.PacketSink

	mu      sync.Mutex
	enc     *gopus.Encoder
	closed  bool
	packets uint64
	bytes   uint64
}

// NewOpusEncoder creates an Opus encoder delivering packets to sink. A nil
// sink discards packets.
func NewOpusEncoder(config OpusConfig, sink audio.PacketSink) (*OpusEncoder, error) {
	logrus.WithFields(logrus.Fields{
		"function":      "NewOpusEncoder",
		"sampling_rate": config.SamplingRate,
		"frame_size":    config.FrameSize,
		"channels":      config.Channels,
		"bitrate":       config.Bitrate,
	}).Info("Creating Opus encoder")

	if err := ValidateOpusShape(config.SamplingRate, config.FrameSize, config.Channels); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewOpusEncoder",
			"error":    err.Error(),
		}).Error("Opus encoder validation failed")
		return nil, err
	}
	if config.Bitrate < 0 {
		return nil, fmt.Errorf("%w: negative bitrate %d", ErrInvalidOpusConfig, config.Bitrate)
	}

	enc, err := gopus.NewEncoder(config.SamplingRate, config.Channels, config.Application.gopus())
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	if config.Bitrate > 0 {
		enc.SetBitrate(config.Bitrate)
	}
	if sink == nil {
		sink = audio.DiscardSink
	}

	return &OpusEncoder{
		config: config,
		sink:   sink,
		enc:    enc,
	}, nil
}

// Input encodes one frame and hands the packet to the sink.
func (e *OpusEncoder) Input(samples []int16) error {
	if len(samples) != e.config.FrameSize*e.config.Channels {
		return fmt.Errorf("%w: opus encoder got %d samples, want %d",
			audio.ErrFrameLength, len(samples), e.config.FrameSize*e.config.Channels)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return audio.ErrEncoderClosed
	}
	packet, err := e.enc.Encode(samples, e.config.FrameSize, maxPacketBytes)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("opus encode: %w", err)
	}
	e.packets++
	e.bytes += uint64(len(packet))
	e.mu.Unlock()

	e.sink(packet)
	return nil
}

// SetBitrate changes the target bitrate of subsequent frames.
func (e *OpusEncoder) SetBitrate(bitrate int) error {
	if bitrate <= 0 {
		return fmt.Errorf("%w: bitrate must be positive, got %d", ErrInvalidOpusConfig, bitrate)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return audio.ErrEncoderClosed
	}
	e.enc.SetBitrate(bitrate)
	e.config.Bitrate = bitrate

	logrus.WithFields(logrus.Fields{
		"function": "OpusEncoder.SetBitrate",
		"bitrate":  bitrate,
	}).Info("Opus bitrate updated")
	return nil
}

// SampleKind reports that the encoder accepts 16-bit samples.
func (e *OpusEncoder) SampleKind() audio.SampleKind {
	return audio.SampleShort
}

// SamplingRate returns the configured sample rate.
func (e *OpusEncoder) SamplingRate() int {
	return e.config.SamplingRate
}

// FrameSize returns the samples per channel per frame.
func (e *OpusEncoder) FrameSize() int {
	return e.config.FrameSize
}

// Channels returns the channel count.
func (e *OpusEncoder) Channels() int {
	return e.config.Channels
}

// Packets returns the number of packets produced.
func (e *OpusEncoder) Packets() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.packets
}

// Close releases the encoder. Later Input calls return audio.ErrEncoderClosed.
func (e *OpusEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.enc = nil

	logrus.WithFields(logrus.Fields{
		"function": "OpusEncoder.Close",
		"packets":  e.packets,
		"bytes":    e.bytes,
	}).Info("Opus encoder closed")
	return nil
}

// supportedRates lists the sample rates libopus encodes natively.
var supportedRates = []int{8000, 12000, 16000, 24000, 48000}

// validDurations lists the Opus frame durations in tenths of a millisecond.
var validDurations = []int{25, 50, 100, 200, 400, 600}

// ValidateOpusShape checks that rate, frame size and channels describe a
// frame Opus can encode: 2.5, 5, 10, 20, 40 or 60 ms at a native rate.
func ValidateOpusShape(samplingRate, frameSize, channels int) error {
	rateOK := false
	for _, r := range supportedRates {
		if r == samplingRate {
			rateOK = true
			break
		}
	}
	if !rateOK {
		return fmt.Errorf("%w: unsupported sample rate %d (want one of %v)",
			ErrInvalidOpusConfig, samplingRate, supportedRates)
	}
	if channels != 1 && channels != 2 {
		return fmt.Errorf("%w: unsupported channel count %d", ErrInvalidOpusConfig, channels)
	}

	if frameSize > 0 && (frameSize*10000)%samplingRate == 0 {
		tenths := frameSize * 10000 / samplingRate
		for _, d := range validDurations {
			if tenths == d {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: frame of %d samples at %d Hz is not 2.5, 5, 10, 20, 40 or 60 ms",
		ErrInvalidOpusConfig, frameSize, samplingRate)
}
