package audio

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// MaxGain is the largest linear gain accepted by GainEffect (+12 dB).
const MaxGain = 4.0

// GainEffect implements linear gain (volume) control as a pipeline stage.
//
// Gain values: 0.0 = silence, 1.0 = no change, >1.0 = amplification.
// Products are clipped to the sample kind's range. The gain may be changed
// from another goroutine while frames are flowing.
type GainEffect[T Sample] struct {
	gain    atomic.Uint64 // math.Float64bits of the linear gain
	lo, hi  float64       // clip bounds for T
	clipped atomic.Uint64
}

// NewGainEffect creates a new gain stage.
//
// Parameters:
//   - gain: Linear gain multiplier (0.0 = silence, 1.0 = unity, 2.0 = +6dB)
func NewGainEffect[T Sample](gain float64) (*GainEffect[T], error) {
	if err := validateGain(gain); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewGainEffect",
			"gain":     gain,
			"error":    err.Error(),
		}).Error("Gain validation failed")
		return nil, err
	}

	g := &GainEffect[T]{lo: -1, hi: 1}
	if KindOf[T]() == SampleShort {
		g.lo, g.hi = -32768, 32767
	}
	g.gain.Store(math.Float64bits(gain))

	logrus.WithFields(logrus.Fields{
		"function":    "NewGainEffect",
		"gain":        gain,
		"sample_kind": KindOf[T]().String(),
	}).Info("Gain effect created")

	return g, nil
}

func validateGain(gain float64) error {
	if gain < 0.0 {
		return fmt.Errorf("%w: gain cannot be negative: %f", ErrInvalidConfig, gain)
	}
	if gain > MaxGain {
		return fmt.Errorf("%w: gain too high (max %.1f): %f", ErrInvalidConfig, MaxGain, gain)
	}
	return nil
}

// Process multiplies each sample by the gain and clips to the valid range.
func (g *GainEffect[T]) Process(frame *Frame[T]) error {
	gain := math.Float64frombits(g.gain.Load())
	if gain == 1.0 {
		return nil
	}

	clipped := 0
	for i, s := range frame.Samples {
		v := float64(s) * gain
		switch {
		case v > g.hi:
			v = g.hi
			clipped++
		case v < g.lo:
			v = g.lo
			clipped++
		}
		frame.Samples[i] = fromFloat[T](v)
	}

	if clipped > 0 {
		g.clipped.Add(uint64(clipped))
	}
	return nil
}

// GetName returns the effect name for debugging and logging.
func (g *GainEffect[T]) GetName() string {
	return fmt.Sprintf("Gain(%.2f)", g.GetGain())
}

// SetGain updates the gain value during runtime.
func (g *GainEffect[T]) SetGain(gain float64) error {
	if err := validateGain(gain); err != nil {
		return err
	}

	old := g.GetGain()
	g.gain.Store(math.Float64bits(gain))

	logrus.WithFields(logrus.Fields{
		"function": "GainEffect.SetGain",
		"old_gain": old,
		"new_gain": gain,
	}).Info("Gain updated")

	return nil
}

// GetGain returns the current gain value.
func (g *GainEffect[T]) GetGain() float64 {
	return math.Float64frombits(g.gain.Load())
}

// ClippedSamples returns how many samples have been clipped so far.
func (g *GainEffect[T]) ClippedSamples() uint64 {
	return g.clipped.Load()
}

// Close releases effect resources (no-op for gain effect).
func (g *GainEffect[T]) Close() error {
	return nil
}
