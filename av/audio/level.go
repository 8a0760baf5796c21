package audio

import (
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultLevelWindowMs is the default smoothing window of the level meter.
const DefaultLevelWindowMs = 500

// LevelMeter measures the signal level of every frame passing through it.
//
// Each frame is annotated with its normalized mean and peak absolute
// amplitude. The meter also keeps exponentially smoothed average and peak
// levels for display, and an accumulated average of frame peaks that can be
// reset by the caller. Readers may run on any goroutine.
type LevelMeter[T Sample] struct {
	fullScale float32
	alpha     float32 // smoothing coefficient, frame duration / window

	avgAmp  atomicFloat32
	peakAmp atomicFloat32

	accumMu    sync.Mutex
	accumSum   float64
	accumCount int
}

// NewLevelMeter creates a level meter for frames of frameSize samples per
// channel at samplingRate. windowMs <= 0 selects DefaultLevelWindowMs.
func NewLevelMeter[T Sample](samplingRate, frameSize, windowMs int) (*LevelMeter[T], error) {
	if samplingRate <= 0 || frameSize <= 0 {
		return nil, fmt.Errorf("%w: level meter needs positive rate and frame size, got %d/%d",
			ErrInvalidConfig, samplingRate, frameSize)
	}
	if windowMs <= 0 {
		windowMs = DefaultLevelWindowMs
	}

	frameMs := float64(frameSize) * 1000 / float64(samplingRate)
	alpha := float32(math.Min(1, frameMs/float64(windowMs)))

	logrus.WithFields(logrus.Fields{
		"function":  "NewLevelMeter",
		"window_ms": windowMs,
		"frame_ms":  frameMs,
		"alpha":     alpha,
	}).Debug("Level meter created")

	return &LevelMeter[T]{
		fullScale: KindOf[T]().FullScale(),
		alpha:     alpha,
	}, nil
}

// Process computes the frame level and updates the smoothed state.
func (m *LevelMeter[T]) Process(frame *Frame[T]) error {
	if len(frame.Samples) == 0 {
		return nil
	}

	var sum, peak float32
	for _, s := range frame.Samples {
		v := float32(s)
		if v < 0 {
			v = -v
		}
		sum += v
		if v > peak {
			peak = v
		}
	}
	avg := sum / float32(len(frame.Samples)) / m.fullScale
	peak /= m.fullScale
	if peak > 1 {
		peak = 1
	}

	frame.AvgAmp = avg
	frame.PeakAmp = peak

	curAvg := m.avgAmp.Load()
	m.avgAmp.Store(curAvg + m.alpha*(avg-curAvg))

	curPeak := m.peakAmp.Load()
	if peak > curPeak {
		m.peakAmp.Store(peak)
	} else {
		m.peakAmp.Store(curPeak + m.alpha*(peak-curPeak))
	}

	m.accumMu.Lock()
	m.accumSum += float64(peak)
	m.accumCount++
	m.accumMu.Unlock()

	return nil
}

// CurrentAvgAmp returns the smoothed average amplitude in [0, 1].
func (m *LevelMeter[T]) CurrentAvgAmp() float32 {
	return m.avgAmp.Load()
}

// CurrentPeakAmp returns the smoothed peak amplitude in [0, 1].
func (m *LevelMeter[T]) CurrentPeakAmp() float32 {
	return m.peakAmp.Load()
}

// AccumAvgPeakAmp returns the average frame peak since the last reset.
func (m *LevelMeter[T]) AccumAvgPeakAmp() float32 {
	m.accumMu.Lock()
	defer m.accumMu.Unlock()
	if m.accumCount == 0 {
		return 0
	}
	return float32(m.accumSum / float64(m.accumCount))
}

// ResetAccumAvgPeakAmp restarts peak accumulation.
func (m *LevelMeter[T]) ResetAccumAvgPeakAmp() {
	m.accumMu.Lock()
	m.accumSum = 0
	m.accumCount = 0
	m.accumMu.Unlock()
}

// GetName returns the stage name.
func (m *LevelMeter[T]) GetName() string {
	return "LevelMeter"
}

// Close is a no-op.
func (m *LevelMeter[T]) Close() error {
	return nil
}

// LevelMeterDummy is a level meter that measures nothing.
type LevelMeterDummy[T Sample] struct{}

func (LevelMeterDummy[T]) Process(*Frame[T]) error  { return nil }
func (LevelMeterDummy[T]) CurrentAvgAmp() float32   { return 0 }
func (LevelMeterDummy[T]) CurrentPeakAmp() float32  { return 0 }
func (LevelMeterDummy[T]) AccumAvgPeakAmp() float32 { return 0 }
func (LevelMeterDummy[T]) ResetAccumAvgPeakAmp()    {}
func (LevelMeterDummy[T]) GetName() string          { return "LevelMeterDummy" }
func (LevelMeterDummy[T]) Close() error             { return nil }
