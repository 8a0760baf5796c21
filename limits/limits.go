// Package limits provides centralized stream shape limits for the outgoing voice pipeline.
// This ensures consistent validation across different components of the system.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MinSamplingRate is the lowest sampling rate accepted on either side of the resampler (8 kHz narrowband)
	MinSamplingRate = 8000

	// MaxSamplingRate is the highest sampling rate accepted on either side of the resampler
	MaxSamplingRate = 192000

	// MaxChannels is the maximum number of interleaved channels per voice (stereo)
	MaxChannels = 2

	// MaxFrameSize is the maximum number of samples per channel in one frame.
	// 120 ms at 48 kHz, the longest frame an Opus encoder accepts.
	MaxFrameSize = 5760

	// MaxCalibrationMs bounds a single detector calibration window (one minute)
	MaxCalibrationMs = 60000
)

var (
	// ErrSamplingRate indicates a sampling rate outside [MinSamplingRate, MaxSamplingRate]
	ErrSamplingRate = errors.New("sampling rate out of range")

	// ErrChannels indicates an unsupported channel count
	ErrChannels = errors.New("unsupported channel count")

	// ErrFrameSize indicates an empty or oversized frame
	ErrFrameSize = errors.New("frame size out of range")

	// ErrCalibrationDuration indicates an empty or oversized calibration window
	ErrCalibrationDuration = errors.New("calibration duration out of range")
)

// ValidateSamplingRate validates a sampling rate in Hz.
// Returns an error with context including the actual value and the accepted range.
func ValidateSamplingRate(rate int) error {
	if rate < MinSamplingRate || rate > MaxSamplingRate {
		return fmt.Errorf("%w: %d Hz not in [%d, %d]", ErrSamplingRate, rate, MinSamplingRate, MaxSamplingRate)
	}
	return nil
}

// ValidateChannels validates an interleaved channel count.
func ValidateChannels(channels int) error {
	if channels < 1 || channels > MaxChannels {
		return fmt.Errorf("%w: %d (must be 1..%d)", ErrChannels, channels, MaxChannels)
	}
	return nil
}

// ValidateFrameSize validates a per-channel frame length against MaxFrameSize.
// Returns an error with context if the frame is empty or exceeds the limit.
func ValidateFrameSize(frameSize int) error {
	if frameSize <= 0 {
		return fmt.Errorf("%w: %d samples", ErrFrameSize, frameSize)
	}
	if frameSize > MaxFrameSize {
		return fmt.Errorf("%w: %d samples exceeds limit %d", ErrFrameSize, frameSize, MaxFrameSize)
	}
	return nil
}

// ValidateCalibrationDuration validates a calibration window in milliseconds.
func ValidateCalibrationDuration(durationMs int) error {
	if durationMs <= 0 {
		return fmt.Errorf("%w: %d ms", ErrCalibrationDuration, durationMs)
	}
	if durationMs > MaxCalibrationMs {
		return fmt.Errorf("%w: %d ms exceeds limit %d", ErrCalibrationDuration, durationMs, MaxCalibrationMs)
	}
	return nil
}
