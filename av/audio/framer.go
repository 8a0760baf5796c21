package audio

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Framer re-chunks arbitrarily sized sample bursts into fixed-length frames.
//
// Partial remainders are kept across calls, so a burst smaller than a frame
// emits nothing and a burst spanning several frame boundaries emits several
// frames. Samples are never dropped or duplicated and frames leave in arrival
// order. A Framer is owned by a single producer at a time.
type Framer[T Sample] struct {
	frameLen int
	factory  BufferFactory[T]
	pending  []T // current partial frame, allocated from factory
	fill     int // samples already copied into pending
	emitted  uint64
}

// NewFramer creates a framer emitting frames of frameLen interleaved samples.
// A nil factory allocates with make.
func NewFramer[T Sample](frameLen int, factory BufferFactory[T]) (*Framer[T], error) {
	if frameLen <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":  "NewFramer",
			"frame_len": frameLen,
			"error":     "frame length must be positive",
		}).Error("Framer validation failed")
		return nil, fmt.Errorf("%w: frame length %d", ErrInvalidConfig, frameLen)
	}
	if factory == nil {
		factory = MakeFactory[T]{}
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewFramer",
		"frame_len": frameLen,
	}).Debug("Framer created")

	return &Framer[T]{
		frameLen: frameLen,
		factory:  factory,
	}, nil
}

// Write appends samples and calls emit once for every frame completed by them.
// Ownership of each emitted slice passes to emit. If emit fails, Write stops
// and returns the error; samples not yet framed stay buffered. A factory
// buffer of the wrong length fails with ErrFrameLength.
func (f *Framer[T]) Write(samples []T, emit func(frame []T) error) error {
	for len(samples) > 0 {
		if f.pending == nil {
			buf := f.factory.New(f.frameLen)
			if len(buf) != f.frameLen {
				return fmt.Errorf("%w: buffer factory returned %d samples, framer needs %d",
					ErrFrameLength, len(buf), f.frameLen)
			}
			f.pending = buf
			f.fill = 0
		}

		n := copy(f.pending[f.fill:], samples)
		f.fill += n
		samples = samples[n:]

		if f.fill < f.frameLen {
			continue
		}

		frame := f.pending
		f.pending = nil
		f.fill = 0
		f.emitted++
		if err := emit(frame); err != nil {
			return err
		}
	}
	return nil
}

// FrameLen returns the number of interleaved samples per emitted frame.
func (f *Framer[T]) FrameLen() int {
	return f.frameLen
}

// Buffered returns how many samples are waiting for the next frame.
func (f *Framer[T]) Buffered() int {
	return f.fill
}

// Emitted returns the number of frames emitted so far.
func (f *Framer[T]) Emitted() uint64 {
	return f.emitted
}

// Reset discards any partial frame.
func (f *Framer[T]) Reset() {
	f.pending = nil
	f.fill = 0
}
