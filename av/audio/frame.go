package audio

// Frame is the unit passed through a ProcessorChain. Stages may replace
// Samples (the resampler does) and fill in the annotations below; the
// orchestrator resets the annotations before each frame.
type Frame[T Sample] struct {
	// Samples holds interleaved audio. Upstream of the resampler the length is
	// SourceFrameSize*Channels, downstream it is FrameSize*Channels.
	Samples []T

	// Seq counts frames emitted by the framer, starting at 1.
	Seq uint64

	// AvgAmp and PeakAmp are the normalized mean and peak absolute amplitude of
	// this frame, written by the level meter.
	AvgAmp  float32
	PeakAmp float32

	// Calibrating is set by the calibration stage on frames it consumed.
	Calibrating bool

	// VoiceActive is the voice detector decision for this frame.
	VoiceActive bool
}

// Reset installs samples as the next frame of the stream, clearing annotations
// left by the previous frame and advancing Seq.
func (f *Frame[T]) Reset(samples []T) {
	f.Samples = samples
	f.Seq++
	f.AvgAmp = 0
	f.PeakAmp = 0
	f.Calibrating = false
	f.VoiceActive = false
}

// BufferFactory allocates frame buffers. Buffers returned by New are owned by
// the caller.
type BufferFactory[T Sample] interface {
	New(size int) []T
}

// MakeFactory allocates buffers with make.
type MakeFactory[T Sample] struct{}

// New returns a zeroed buffer of the requested size.
func (MakeFactory[T]) New(size int) []T {
	return make([]T, size)
}
