package testing

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/opd-ai/toxvoice/real"
	"github.com/sirupsen/logrus"
)

// DefaultBurstMs is the capture burst length used when none is configured.
const DefaultBurstMs = 10

// ErrHandleInUse is returned when a handle is opened twice.
var ErrHandleInUse = errors.New("capture handle already open")

// BackendConfig configures a SimulatedBackend.
type BackendConfig struct {
	Signal  Signal
	BurstMs int          // Duration of each dispatched burst
	Sleeper real.Sleeper // Paces bursts; defaults to real.DefaultSleeper
	OpenErr error        // When set, every Open fails with it
}

// SimulatedBackend is a real.NativeBackend that runs one capture goroutine per
// open handle, dispatching generated bursts through a real.HandleTable the
// way a native capture thread would.
type SimulatedBackend[T audio.Sample] struct {
	table  *real.HandleTable[T]
	config BackendConfig

	mu       sync.Mutex
	captures map[int]*capture

	bursts  atomic.Uint64
	dropped atomic.Uint64
}

type capture struct {
	stop chan struct{}
	done chan struct{}
}

// NewSimulatedBackend creates a backend dispatching into table.
func NewSimulatedBackend[T audio.Sample](table *real.HandleTable[T], config BackendConfig) (*SimulatedBackend[T], error) {
	if err := config.Signal.Validate(); err != nil {
		return nil, err
	}
	if config.BurstMs <= 0 {
		config.BurstMs = DefaultBurstMs
	}
	if config.Sleeper == nil {
		config.Sleeper = real.DefaultSleeper{}
	}

	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function": "NewSimulatedBackend",
		"signal":   config.Signal.Kind.String(),
		"burst_ms": config.BurstMs,
	}).Info("Creating simulated capture backend")

	return &SimulatedBackend[T]{
		table:    table,
		config:   config,
		captures: make(map[int]*capture),
	}, nil
}

// Open starts a capture goroutine for handle.
func (b *SimulatedBackend[T]) Open(handle, samplingRate, channels int) error {
	if b.config.OpenErr != nil {
		return b.config.OpenErr
	}

	gen, err := NewGenerator[T](b.config.Signal, samplingRate, channels)
	if err != nil {
		return err
	}
	burstLen := samplingRate * b.config.BurstMs / 1000 * channels
	if burstLen == 0 {
		return fmt.Errorf("%w: burst of %dms at %d Hz is empty", ErrInvalidSignal, b.config.BurstMs, samplingRate)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.captures[handle]; ok {
		return fmt.Errorf("%w: %d", ErrHandleInUse, handle)
	}

	c := &capture{stop: make(chan struct{}), done: make(chan struct{})}
	b.captures[handle] = c
	go b.run(handle, gen, make([]T, burstLen), c)

	logrus.WithFields(logrus.Fields{
		"function":      "SimulatedBackend.Open",
		"handle":        handle,
		"sampling_rate": samplingRate,
		"channels":      channels,
	}).Info("Simulated capture started")
	return nil
}

func (b *SimulatedBackend[T]) run(handle int, gen *Generator[T], buf []T, c *capture) {
	defer close(c.done)
	interval := time.Duration(b.config.BurstMs) * time.Millisecond

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		gen.Fill(buf)
		if b.table.Dispatch(handle, buf) {
			b.bursts.Add(1)
		} else {
			b.dropped.Add(1)
		}
		b.config.Sleeper.Sleep(interval)
	}
}

// Close stops the capture goroutine for handle and waits for it to exit.
// Closing an unknown handle is a no-op.
func (b *SimulatedBackend[T]) Close(handle int) error {
	b.mu.Lock()
	c, ok := b.captures[handle]
	delete(b.captures, handle)
	b.mu.Unlock()
	if !ok {
		return nil
	}

	close(c.stop)
	<-c.done

	logrus.WithFields(logrus.Fields{
		"function": "SimulatedBackend.Close",
		"handle":   handle,
		"bursts":   b.bursts.Load(),
	}).Info("Simulated capture stopped")
	return nil
}

// OpenHandles returns the number of handles currently capturing.
func (b *SimulatedBackend[T]) OpenHandles() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.captures)
}

// Bursts returns how many bursts reached a callback.
func (b *SimulatedBackend[T]) Bursts() uint64 {
	return b.bursts.Load()
}

// Dropped returns how many bursts found no callback for their handle.
func (b *SimulatedBackend[T]) Dropped() uint64 {
	return b.dropped.Load()
}
