package audio

import (
	"fmt"
	"math"

	"github.com/opd-ai/toxvoice/limits"
)

// Sample is the set of numeric sample representations the pipeline is
// instantiated for: normalized floating point and 16-bit fixed point.
type Sample interface {
	float32 | int16
}

// SampleKind tags which Sample instantiation a stream uses.
type SampleKind int

const (
	// SampleUnknown is the zero value and never valid for a stream.
	SampleUnknown SampleKind = iota
	// SampleFloat is float32 audio normalized to [-1, 1].
	SampleFloat
	// SampleShort is signed 16-bit fixed point audio.
	SampleShort
)

// String returns the configuration name of the sample kind.
func (k SampleKind) String() string {
	switch k {
	case SampleFloat:
		return "float"
	case SampleShort:
		return "short"
	default:
		return fmt.Sprintf("SampleKind(%d)", int(k))
	}
}

// ParseSampleKind maps a configuration name to a SampleKind.
func ParseSampleKind(name string) (SampleKind, error) {
	switch name {
	case "float", "float32":
		return SampleFloat, nil
	case "short", "int16", "s16":
		return SampleShort, nil
	default:
		return SampleUnknown, fmt.Errorf("%w: %q", ErrUnsupportedSampleKind, name)
	}
}

// KindOf reports the SampleKind of the instantiation T.
// It is meant for construction-time checks only.
func KindOf[T Sample]() SampleKind {
	var zero T
	switch any(zero).(type) {
	case float32:
		return SampleFloat
	case int16:
		return SampleShort
	default:
		return SampleUnknown
	}
}

// fromFloat converts a computed value back to T. Fixed point values are
// rounded to the nearest integer and saturated.
func fromFloat[T Sample](v float64) T {
	var zero T
	if _, ok := any(zero).(int16); ok {
		return T(min(max(math.Round(v), math.MinInt16), math.MaxInt16))
	}
	return T(v)
}

// BytesPerSample returns the encoded width of one sample of kind k.
func (k SampleKind) BytesPerSample() int {
	switch k {
	case SampleFloat:
		return 4
	case SampleShort:
		return 2
	default:
		return 0
	}
}

// FullScale returns the magnitude of a full-scale sample of kind k, used to
// bring both representations onto the same normalized amplitude range.
func (k SampleKind) FullScale() float32 {
	switch k {
	case SampleShort:
		return 32768
	default:
		return 1
	}
}

// StreamConfig describes the shape of one outgoing voice. It is fixed for the
// lifetime of a pipeline.
type StreamConfig struct {
	SourceSamplingRate int        // Capture side rate in Hz
	SamplingRate       int        // Encoder side rate in Hz
	FrameSize          int        // Samples per channel in one encoder frame
	Channels           int        // Interleaved channel count
	SampleKind         SampleKind // Sample representation
}

// Validate checks every field against package limits and verifies that the
// source chunk corresponding to one encoder frame is a whole number of samples.
func (c StreamConfig) Validate() error {
	if c.SampleKind != SampleFloat && c.SampleKind != SampleShort {
		return fmt.Errorf("%w: %v", ErrUnsupportedSampleKind, c.SampleKind)
	}
	if err := limits.ValidateSamplingRate(c.SourceSamplingRate); err != nil {
		return fmt.Errorf("%w: source: %v", ErrInvalidConfig, err)
	}
	if err := limits.ValidateSamplingRate(c.SamplingRate); err != nil {
		return fmt.Errorf("%w: target: %v", ErrInvalidConfig, err)
	}
	if err := limits.ValidateChannels(c.Channels); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := limits.ValidateFrameSize(c.FrameSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if (c.FrameSize*c.SourceSamplingRate)%c.SamplingRate != 0 {
		return fmt.Errorf("%w: frame of %d samples at %d Hz is %d*%d/%d source samples",
			ErrUnsupportedRatio, c.FrameSize, c.SamplingRate, c.FrameSize, c.SourceSamplingRate, c.SamplingRate)
	}
	return nil
}

// SourceFrameSize returns how many samples per channel the capture side must
// supply for one encoder frame.
func (c StreamConfig) SourceFrameSize() int {
	if c.SamplingRate == 0 {
		return c.FrameSize
	}
	return c.FrameSize * c.SourceSamplingRate / c.SamplingRate
}

// NeedsResampling reports whether capture and encoder rates differ.
func (c StreamConfig) NeedsResampling() bool {
	return c.SourceSamplingRate != c.SamplingRate
}

// FrameDurationMs returns the duration of one encoder frame in milliseconds.
func (c StreamConfig) FrameDurationMs() float64 {
	if c.SamplingRate == 0 {
		return 0
	}
	return float64(c.FrameSize) * 1000 / float64(c.SamplingRate)
}
