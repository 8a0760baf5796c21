package audio

import "errors"

// Sentinel errors for audio pipeline construction and processing.
// These errors enable reliable error classification using errors.Is().

// Construction errors.
var (
	// ErrUnsupportedSampleKind indicates a sample representation the pipeline is not instantiated for.
	ErrUnsupportedSampleKind = errors.New("unsupported sample kind")

	// ErrInvalidConfig indicates a stream or stage configuration outside supported limits.
	ErrInvalidConfig = errors.New("invalid audio configuration")

	// ErrUnsupportedRatio indicates the source chunk for one encoder frame is not a whole number of samples.
	ErrUnsupportedRatio = errors.New("unsupported resampling ratio")
)

// Processing errors.
var (
	// ErrFrameLength indicates a frame whose length does not match the stage's configured shape.
	ErrFrameLength = errors.New("unexpected frame length")

	// ErrInvalidDuration indicates a non-positive or oversized calibration duration.
	ErrInvalidDuration = errors.New("invalid calibration duration")

	// ErrEncoderClosed indicates input was delivered to a closed encoder.
	ErrEncoderClosed = errors.New("encoder closed")
)
