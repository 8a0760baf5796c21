package av

import "sync/atomic"

// AudioDesc is a static source description, useful for sources that only
// need to report their format and an optional error.
type AudioDesc struct {
	rate     int
	channels int
	err      atomic.Pointer[string]
}

// NewAudioDesc describes a source delivering channels interleaved channels
// at rate Hz.
func NewAudioDesc(rate, channels int) *AudioDesc {
	return &AudioDesc{rate: rate, channels: channels}
}

// SamplingRate returns the source rate.
func (d *AudioDesc) SamplingRate() int { return d.rate }

// Channels returns the channel count.
func (d *AudioDesc) Channels() int { return d.channels }

// Error returns the error message set by SetError.
func (d *AudioDesc) Error() string {
	if p := d.err.Load(); p != nil {
		return *p
	}
	return ""
}

// SetError marks the source failed with msg.
func (d *AudioDesc) SetError(msg string) {
	d.err.Store(&msg)
}

// Close is a no-op.
func (d *AudioDesc) Close() error { return nil }
