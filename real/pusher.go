package real

import (
	"fmt"
	"sync"

	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/sirupsen/logrus"
)

// NativeBackend is a platform capture API addressed by handle. Open starts
// capture and arranges for captured bursts to be dispatched through the
// handle table the pusher registered with; Close stops it.
type NativeBackend interface {
	Open(handle, samplingRate, channels int) error
	Close(handle int) error
}

// NativePusher is a push source backed by a NativeBackend.
//
// If the backend fails to open, the pusher is still returned and reports the
// failure through Error, so the consumer can decide how to degrade.
type NativePusher[T audio.Sample] struct {
	table        *HandleTable[T]
	backend      NativeBackend
	handle       int
	samplingRate int
	channels     int

	mu     sync.Mutex
	err    string
	opened bool
	closed bool
}

// NewNativePusher registers a handle in table and opens backend capture on it.
func NewNativePusher[T audio.Sample](table *HandleTable[T], backend NativeBackend, samplingRate, channels int) *NativePusher[T] {
	p := &NativePusher[T]{
		table:        table,
		backend:      backend,
		handle:       table.Register(),
		samplingRate: samplingRate,
		channels:     channels,
	}

	if err := backend.Open(p.handle, samplingRate, channels); err != nil {
		p.err = fmt.Sprintf("open capture: %v", err)
		logrus.WithFields(logrus.Fields{
			"function":      "NewNativePusher",
			"handle":        p.handle,
			"sampling_rate": samplingRate,
			"channels":      channels,
			"error":         err.Error(),
		}).Error("Native capture failed to open")
		return p
	}
	p.opened = true

	logrus.WithFields(logrus.Fields{
		"function":      "NewNativePusher",
		"handle":        p.handle,
		"sampling_rate": samplingRate,
		"channels":      channels,
	}).Info("Native capture opened")
	return p
}

// SetCallback routes dispatched bursts for this pusher's handle to callback.
// Each burst is copied into a buffer from factory and ownership of that
// buffer passes to callback; the native buffer stays with the backend.
// A nil factory allocates with make. If factory returns a buffer of the
// wrong length the pusher fails and the burst is dropped.
func (p *NativePusher[T]) SetCallback(callback func(samples []T), factory audio.BufferFactory[T]) {
	if factory == nil {
		factory = audio.MakeFactory[T]{}
	}
	p.table.SetCallback(p.handle, func(samples []T) {
		buf := factory.New(len(samples))
		if len(buf) != len(samples) {
			msg := fmt.Sprintf("buffer factory returned %d samples, want %d", len(buf), len(samples))
			logrus.WithFields(logrus.Fields{
				"function": "NativePusher.SetCallback",
				"handle":   p.handle,
				"error":    msg,
			}).Error("Native burst dropped")
			p.Fail(msg)
			return
		}
		copy(buf, samples)
		callback(buf)
	})
}

// Handle returns the handle native callbacks must carry.
func (p *NativePusher[T]) Handle() int {
	return p.handle
}

// SamplingRate returns the capture rate.
func (p *NativePusher[T]) SamplingRate() int {
	return p.samplingRate
}

// Channels returns the capture channel count.
func (p *NativePusher[T]) Channels() int {
	return p.channels
}

// Error returns the capture failure, or "".
func (p *NativePusher[T]) Error() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Fail marks the pusher failed, for backends that report errors after Open.
func (p *NativePusher[T]) Fail(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == "" {
		p.err = msg
	}
}

// Close stops capture and removes the handle from the table.
func (p *NativePusher[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	opened := p.opened
	p.mu.Unlock()

	p.table.Remove(p.handle)
	if !opened {
		return nil
	}
	if err := p.backend.Close(p.handle); err != nil {
		return fmt.Errorf("close capture handle %d: %w", p.handle, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NativePusher.Close",
		"handle":   p.handle,
	}).Info("Native capture closed")
	return nil
}
