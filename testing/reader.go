package testing

import (
	"io"
	"sync"
	"time"

	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/sirupsen/logrus"
)

// ReaderConfig configures a SimulatedReader.
type ReaderConfig struct {
	Signal       Signal
	SamplingRate int
	Channels     int
	DurationMs   int              // Total stream length; 0 streams forever
	Now          func() time.Time // Clock pacing availability; defaults to time.Now
}

// SimulatedReader is a pull source that makes generated samples available at
// real-time pace. Read returns only what the clock says has been captured
// since the first read, so a short read means the caller is caught up.
type SimulatedReader[T audio.Sample] struct {
	gen          *Generator[T]
	samplingRate int
	channels     int
	total        int64
	now          func() time.Time

	mu      sync.Mutex
	start   time.Time
	started bool
	err     string
	closed  bool
}

// NewSimulatedReader creates a paced pull source.
func NewSimulatedReader[T audio.Sample](config ReaderConfig) (*SimulatedReader[T], error) {
	gen, err := NewGenerator[T](config.Signal, config.SamplingRate, config.Channels)
	if err != nil {
		return nil, err
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function":      "NewSimulatedReader",
		"signal":        config.Signal.Kind.String(),
		"sampling_rate": config.SamplingRate,
		"channels":      config.Channels,
		"duration_ms":   config.DurationMs,
	}).Info("Creating simulated pull source")

	return &SimulatedReader[T]{
		gen:          gen,
		samplingRate: config.SamplingRate,
		channels:     config.Channels,
		total:        int64(config.DurationMs) * int64(config.SamplingRate) / 1000,
		now:          now,
	}, nil
}

// Read fills buf with whole sample frames that are due. It returns io.EOF,
// together with the final samples, once the configured duration has been
// produced, and on every read after Close.
func (r *SimulatedReader[T]) Read(buf []T) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, io.EOF
	}
	if !r.started {
		r.start = r.now()
		r.started = true
	}

	produced := r.gen.Position()
	if r.total > 0 && produced >= r.total {
		return 0, io.EOF
	}

	due := int64(r.now().Sub(r.start)) * int64(r.samplingRate) / int64(time.Second)
	if r.total > 0 {
		due = min(due, r.total)
	}
	frames := min(due-produced, int64(len(buf)/r.channels))
	if frames <= 0 {
		return 0, nil
	}

	n := int(frames) * r.channels
	r.gen.Fill(buf[:n])
	if r.total > 0 && r.gen.Position() >= r.total {
		return n, io.EOF
	}
	return n, nil
}

// SamplingRate returns the stream rate.
func (r *SimulatedReader[T]) SamplingRate() int {
	return r.samplingRate
}

// Channels returns the stream channel count.
func (r *SimulatedReader[T]) Channels() int {
	return r.channels
}

// Error returns the failure set by Fail, or "".
func (r *SimulatedReader[T]) Error() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Fail marks the source failed, simulating a capture device going away.
func (r *SimulatedReader[T]) Fail(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == "" {
		r.err = msg
	}
}

// Close ends the stream.
func (r *SimulatedReader[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
