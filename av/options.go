package av

import "github.com/opd-ai/toxvoice/av/audio"

// Option customizes a voice at construction.
type Option func(*options)

type options struct {
	metrics       *Metrics
	detector      audio.DetectorConfig
	levelWindowMs int
	gain          float64
	factory       any // audio.BufferFactory[T] for the voice's T
}

func defaultOptions() options {
	return options{
		detector: audio.DefaultDetectorConfig(),
		gain:     1.0,
	}
}

// WithMetrics records the voice's counters and levels in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithDetectorConfig replaces the default detector configuration.
func WithDetectorConfig(cfg audio.DetectorConfig) Option {
	return func(o *options) {
		o.detector = cfg
	}
}

// WithLevelWindowMs sets the level meter smoothing window.
func WithLevelWindowMs(ms int) Option {
	return func(o *options) {
		o.levelWindowMs = ms
	}
}

// WithGain installs a gain stage as the first pre-processor. A gain of 1
// installs nothing.
func WithGain(gain float64) Option {
	return func(o *options) {
		o.gain = gain
	}
}

// WithBufferFactory allocates frame buffers from f. The factory's sample type
// must match the voice's.
func WithBufferFactory[T audio.Sample](f audio.BufferFactory[T]) Option {
	return func(o *options) {
		o.factory = f
	}
}
