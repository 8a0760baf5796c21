package interfaces

import "github.com/opd-ai/toxvoice/av/audio"

// BufferFactory allocates sample buffers handed to a push callback.
type BufferFactory[T audio.Sample] = audio.BufferFactory[T]

// IAudioDesc describes an audio source and reports its health.
type IAudioDesc interface {
	// SamplingRate returns the rate at which the source delivers samples
	SamplingRate() int

	// Channels returns the interleaved channel count
	Channels() int

	// Error returns a non-empty message once the source has failed
	Error() string

	// Close stops the source and releases its resources
	Close() error
}

// IAudioPusher is a source that delivers samples by invoking a callback from
// its own goroutine.
type IAudioPusher[T audio.Sample] interface {
	IAudioDesc

	// SetCallback installs the delivery callback. The source copies each
	// captured burst into a buffer allocated from factory and hands ownership
	// of that buffer to callback.
	SetCallback(callback func(samples []T), factory BufferFactory[T])
}

// IAudioReader is a source polled by the consumer.
type IAudioReader[T audio.Sample] interface {
	IAudioDesc

	// Read fills buf with up to len(buf) samples and returns how many were
	// written. A short read means no more samples are available right now;
	// io.EOF means the source is exhausted.
	Read(buf []T) (int, error)
}

// IEncoder is the part of an encoder sink that does not depend on the
// sample type.
type IEncoder interface {
	// SampleKind returns the sample representation the encoder accepts
	SampleKind() audio.SampleKind

	// Close flushes and releases the encoder
	Close() error
}

// IFrameEncoder accepts processed frames of T.
type IFrameEncoder[T audio.Sample] interface {
	IEncoder

	// Input encodes one frame of FrameSize*Channels samples
	Input(samples []T) error
}

// IFrameShape is implemented by encoders that require a specific frame
// shape. Pipelines verify it at construction.
type IFrameShape interface {
	SamplingRate() int
	FrameSize() int
	Channels() int
}

// ILevelMeter exposes the signal level of a voice.
type ILevelMeter interface {
	CurrentAvgAmp() float32
	CurrentPeakAmp() float32
	AccumAvgPeakAmp() float32
	ResetAccumAvgPeakAmp()
}

// IVoiceDetector exposes the voice detector of a voice.
type IVoiceDetector interface {
	Detected() bool
	Threshold() float32
	SetThreshold(threshold float32)
	Hysteresis() float32
	SetHysteresis(hysteresis float32)
	ActivityDelayMs() int
	SetActivityDelayMs(ms int)
	Enabled() bool
	SetEnabled(enabled bool)
}

// VoiceStats is a snapshot of per-voice frame counters.
type VoiceStats struct {
	SamplesPushed    uint64 // samples accepted from the source
	FramesProcessed  uint64 // frames that ran through the built-in stages
	FramesEncoded    uint64 // frames handed to the encoder
	FramesSuppressed uint64 // frames withheld because no voice was detected
	Calibrations     uint64 // completed calibration runs
}

// ILocalVoiceAudio is the sample-type independent view of an outgoing voice.
type ILocalVoiceAudio interface {
	// Name identifies the voice in logs and metrics
	Name() string

	// StreamConfig returns the immutable stream shape
	StreamConfig() audio.StreamConfig

	// BindSource attaches a push or pull source
	BindSource(source IAudioDesc) error

	// Service reads a bounded batch of frames from a bound pull source
	Service() error

	// VoiceDetector returns the detector deciding voice activity per frame
	VoiceDetector() IVoiceDetector

	// LevelMeter returns the meter tracking the processed signal level
	LevelMeter() ILevelMeter

	// VoiceDetectorCalibrate requests a calibration run of durationMs
	VoiceDetectorCalibrate(durationMs int) error

	// VoiceDetectorCalibrating reports whether calibration is pending or running
	VoiceDetectorCalibrating() bool

	// Stats returns a snapshot of the frame counters
	Stats() VoiceStats

	// Err returns the fatal error that stopped the pipeline, if any
	Err() error

	// SourceError returns the bound source's error message, if any
	SourceError() string

	// Close releases the encoder and stages, then closes the bound source
	Close() error
}
