package audio

import (
	"fmt"
	"sync/atomic"

	"github.com/opd-ai/toxvoice/limits"
	"github.com/sirupsen/logrus"
)

// ThresholdSetter receives the threshold computed by a calibration run.
type ThresholdSetter interface {
	SetThreshold(threshold float32)
}

const (
	phaseIdle int32 = iota
	phaseCalibrating
)

// Calibration measures background level for a requested duration and then
// installs a detector threshold derived from it.
//
// Calibrate may be called from any goroutine. The request is picked up by the
// processing goroutine on the next frame; a new request restarts a run in
// progress. While a run is active every frame is flagged Calibrating and its
// peak level accumulated. On completion the threshold is
// max(mean peak * factor, minimum threshold).
type Calibration[T Sample] struct {
	samplingRate int
	frameSize    int
	factor       float32
	minThreshold float32
	target       ThresholdSetter
	onComplete   func(threshold float32)

	reqDurationMs atomic.Int64
	reqSeq        atomic.Uint64
	seenSeq       atomic.Uint64
	phase         atomic.Int32
	lastThreshold atomicFloat32

	// owned by the processing goroutine
	remaining int // samples per channel still to consume
	sum       float64
	count     int
	maxPeak   float32
}

// NewCalibration creates a calibration stage feeding target.
func NewCalibration[T Sample](samplingRate, frameSize int, target ThresholdSetter, config DetectorConfig) (*Calibration[T], error) {
	if samplingRate <= 0 || frameSize <= 0 {
		return nil, fmt.Errorf("%w: calibration needs positive rate and frame size, got %d/%d",
			ErrInvalidConfig, samplingRate, frameSize)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: calibration needs a threshold target", ErrInvalidConfig)
	}
	if config.CalibrationFactor <= 0 {
		config.CalibrationFactor = DefaultCalibrationFactor
	}
	return &Calibration[T]{
		samplingRate: samplingRate,
		frameSize:    frameSize,
		factor:       config.CalibrationFactor,
		minThreshold: config.MinThreshold,
		target:       target,
	}, nil
}

// OnComplete registers fn to be called on the processing goroutine after each
// finished run. It must be set before frames flow.
func (c *Calibration[T]) OnComplete(fn func(threshold float32)) {
	c.onComplete = fn
}

// Calibrate requests a calibration run of durationMs milliseconds.
func (c *Calibration[T]) Calibrate(durationMs int) error {
	if err := limits.ValidateCalibrationDuration(durationMs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, err)
	}
	c.reqDurationMs.Store(int64(durationMs))
	c.reqSeq.Add(1)

	logrus.WithFields(logrus.Fields{
		"function":    "Calibration.Calibrate",
		"duration_ms": durationMs,
	}).Info("Voice detector calibration requested")
	return nil
}

// Calibrating reports whether a run is pending or in progress.
func (c *Calibration[T]) Calibrating() bool {
	seen := c.seenSeq.Load()
	if c.reqSeq.Load() != seen {
		return true
	}
	return c.phase.Load() == phaseCalibrating
}

// LastThreshold returns the threshold installed by the most recent run, or 0.
func (c *Calibration[T]) LastThreshold() float32 {
	return c.lastThreshold.Load()
}

// Process accumulates the frame level while a run is active.
func (c *Calibration[T]) Process(frame *Frame[T]) error {
	if req := c.reqSeq.Load(); req != c.seenSeq.Load() {
		durationMs := c.reqDurationMs.Load()
		c.phase.Store(phaseCalibrating)
		c.seenSeq.Store(req)
		// round up so the run covers at least durationMs
		c.remaining = int((int64(c.samplingRate)*durationMs + 999) / 1000)
		c.sum, c.count, c.maxPeak = 0, 0, 0

		logrus.WithFields(logrus.Fields{
			"function":    "Calibration.Process",
			"duration_ms": durationMs,
			"frame_seq":   frame.Seq,
		}).Info("Voice detector calibration started")
	}

	if c.phase.Load() != phaseCalibrating {
		return nil
	}

	frame.Calibrating = true
	c.sum += float64(frame.PeakAmp)
	c.count++
	c.maxPeak = max(c.maxPeak, frame.PeakAmp)
	c.remaining -= c.frameSize
	if c.remaining > 0 {
		return nil
	}

	mean := float32(c.sum / float64(c.count))
	threshold := max(mean*c.factor, c.minThreshold)
	c.target.SetThreshold(threshold)
	c.lastThreshold.Store(threshold)
	c.phase.Store(phaseIdle)

	logrus.WithFields(logrus.Fields{
		"function":  "Calibration.Process",
		"frames":    c.count,
		"mean_peak": mean,
		"max_peak":  c.maxPeak,
		"threshold": threshold,
	}).Info("Voice detector calibration finished")

	if c.onComplete != nil {
		c.onComplete(threshold)
	}
	return nil
}

// GetName returns the stage name.
func (c *Calibration[T]) GetName() string {
	return "Calibration"
}

// Close is a no-op.
func (c *Calibration[T]) Close() error {
	return nil
}
