package audio

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Detector defaults.
const (
	DefaultDetectorThreshold  = 0.01
	DefaultDetectorHysteresis = 0.002
	DefaultCalibrationFactor  = 2.0
	DefaultMinThreshold       = 0.0001
)

// DetectorConfig configures a VoiceDetector and the calibration stage that
// feeds it.
type DetectorConfig struct {
	// Threshold is the normalized peak level separating voice from noise.
	Threshold float32
	// Hysteresis widens the switching band around Threshold. The effective
	// value is clamped to half the threshold.
	Hysteresis float32
	// ActivityDelayMs keeps the detector active this long after the level
	// drops below the off threshold.
	ActivityDelayMs int
	// Enabled gates transmission on the detector decision.
	Enabled bool
	// CalibrationFactor multiplies the mean calibration peak.
	CalibrationFactor float32
	// MinThreshold is the lowest threshold calibration may install.
	MinThreshold float32
}

// DefaultDetectorConfig returns the detector configuration used when none is
// supplied.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Threshold:         DefaultDetectorThreshold,
		Hysteresis:        DefaultDetectorHysteresis,
		CalibrationFactor: DefaultCalibrationFactor,
		MinThreshold:      DefaultMinThreshold,
	}
}

// Validate checks the configuration ranges.
func (c DetectorConfig) Validate() error {
	switch {
	case c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("%w: detector threshold %f outside [0, 1]", ErrInvalidConfig, c.Threshold)
	case c.Hysteresis < 0:
		return fmt.Errorf("%w: negative detector hysteresis %f", ErrInvalidConfig, c.Hysteresis)
	case c.ActivityDelayMs < 0:
		return fmt.Errorf("%w: negative activity delay %d", ErrInvalidConfig, c.ActivityDelayMs)
	case c.CalibrationFactor <= 0:
		return fmt.Errorf("%w: calibration factor must be positive, got %f", ErrInvalidConfig, c.CalibrationFactor)
	case c.MinThreshold < 0 || c.MinThreshold > 1:
		return fmt.Errorf("%w: minimum threshold %f outside [0, 1]", ErrInvalidConfig, c.MinThreshold)
	}
	return nil
}

// VoiceDetector decides per frame whether the frame carries voice.
//
// The decision is made on the frame's normalized peak level with hysteresis:
// it switches on above threshold+h and off below threshold-h, where h is the
// configured hysteresis clamped to threshold/2. Levels inside the band keep
// the previous decision. Frames consumed by calibration are never active, nor
// are frames seen while a watched calibration is pending or running.
//
// Setters and Detected may be called from any goroutine.
type VoiceDetector[T Sample] struct {
	frameMs     float64
	calibrating func() bool

	threshold  atomicFloat32
	hysteresis atomicFloat32
	delayMs    atomic.Int64
	enabled    atomic.Bool
	detected   atomic.Bool

	// owned by the processing goroutine
	active bool
	hold   int
}

// NewVoiceDetector creates a detector for frames of frameSize samples per
// channel at samplingRate.
func NewVoiceDetector[T Sample](samplingRate, frameSize int, config DetectorConfig) (*VoiceDetector[T], error) {
	if samplingRate <= 0 || frameSize <= 0 {
		return nil, fmt.Errorf("%w: detector needs positive rate and frame size, got %d/%d",
			ErrInvalidConfig, samplingRate, frameSize)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &VoiceDetector[T]{
		frameMs: float64(frameSize) * 1000 / float64(samplingRate),
	}
	d.threshold.Store(config.Threshold)
	d.hysteresis.Store(config.Hysteresis)
	d.delayMs.Store(int64(config.ActivityDelayMs))
	d.enabled.Store(config.Enabled)

	logrus.WithFields(logrus.Fields{
		"function":          "NewVoiceDetector",
		"threshold":         config.Threshold,
		"hysteresis":        config.Hysteresis,
		"activity_delay_ms": config.ActivityDelayMs,
		"enabled":           config.Enabled,
	}).Debug("Voice detector created")

	return d, nil
}

// WatchCalibration makes the detector report no voice whenever calibrating
// returns true. It must be set before frames flow.
func (d *VoiceDetector[T]) WatchCalibration(calibrating func() bool) {
	d.calibrating = calibrating
}

// Process annotates the frame with the detector decision.
func (d *VoiceDetector[T]) Process(frame *Frame[T]) error {
	if frame.Calibrating || (d.calibrating != nil && d.calibrating()) {
		d.active = false
		d.hold = 0
		d.detected.Store(false)
		frame.VoiceActive = false
		return nil
	}

	threshold := d.threshold.Load()
	h := min(d.hysteresis.Load(), threshold/2)
	level := frame.PeakAmp
	holdFrames := int(math.Ceil(float64(d.delayMs.Load()) / d.frameMs))
	d.hold = min(d.hold, holdFrames)

	switch {
	case level > threshold+h:
		d.active = true
		d.hold = holdFrames
	case d.active && level < threshold-h:
		if d.hold > 0 {
			d.hold--
		} else {
			d.active = false
		}
	case d.active:
		d.hold = holdFrames
	}

	d.detected.Store(d.active)
	frame.VoiceActive = d.active
	return nil
}

// Detected returns the decision made for the most recent frame.
func (d *VoiceDetector[T]) Detected() bool {
	return d.detected.Load()
}

// Threshold returns the current threshold.
func (d *VoiceDetector[T]) Threshold() float32 {
	return d.threshold.Load()
}

// SetThreshold installs a new threshold, effective from the next frame.
func (d *VoiceDetector[T]) SetThreshold(threshold float32) {
	d.threshold.Store(threshold)
}

// Hysteresis returns the configured hysteresis before clamping.
func (d *VoiceDetector[T]) Hysteresis() float32 {
	return d.hysteresis.Load()
}

// SetHysteresis sets the hysteresis width.
func (d *VoiceDetector[T]) SetHysteresis(hysteresis float32) {
	d.hysteresis.Store(hysteresis)
}

// ActivityDelayMs returns the hold time after voice stops.
func (d *VoiceDetector[T]) ActivityDelayMs() int {
	return int(d.delayMs.Load())
}

// SetActivityDelayMs sets the hold time after voice stops.
func (d *VoiceDetector[T]) SetActivityDelayMs(ms int) {
	d.delayMs.Store(int64(max(ms, 0)))
}

// Enabled reports whether transmission is gated on the decision.
func (d *VoiceDetector[T]) Enabled() bool {
	return d.enabled.Load()
}

// SetEnabled turns transmission gating on or off.
func (d *VoiceDetector[T]) SetEnabled(enabled bool) {
	d.enabled.Store(enabled)
}

// GetName returns the stage name.
func (d *VoiceDetector[T]) GetName() string {
	return "VoiceDetector"
}

// Close is a no-op.
func (d *VoiceDetector[T]) Close() error {
	return nil
}

// VoiceDetectorDummy never detects voice and ignores configuration.
type VoiceDetectorDummy[T Sample] struct{}

func (VoiceDetectorDummy[T]) Process(*Frame[T]) error { return nil }
func (VoiceDetectorDummy[T]) Detected() bool          { return false }
func (VoiceDetectorDummy[T]) Threshold() float32      { return 0 }
func (VoiceDetectorDummy[T]) SetThreshold(float32)    {}
func (VoiceDetectorDummy[T]) Hysteresis() float32     { return 0 }
func (VoiceDetectorDummy[T]) SetHysteresis(float32)   {}
func (VoiceDetectorDummy[T]) ActivityDelayMs() int    { return 0 }
func (VoiceDetectorDummy[T]) SetActivityDelayMs(int)  {}
func (VoiceDetectorDummy[T]) Enabled() bool           { return false }
func (VoiceDetectorDummy[T]) SetEnabled(bool)         {}
func (VoiceDetectorDummy[T]) GetName() string         { return "VoiceDetectorDummy" }
func (VoiceDetectorDummy[T]) Close() error            { return nil }
