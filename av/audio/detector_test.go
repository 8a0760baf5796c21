package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T, threshold, hysteresis float32, delayMs int) *VoiceDetector[float32] {
	t.Helper()
	cfg := DefaultDetectorConfig()
	cfg.Threshold = threshold
	cfg.Hysteresis = hysteresis
	cfg.ActivityDelayMs = delayMs
	d, err := NewVoiceDetector[float32](48000, 480, cfg)
	require.NoError(t, err)
	return d
}

func feedLevels(t *testing.T, d *VoiceDetector[float32], levels []float32) []bool {
	t.Helper()
	decisions := make([]bool, len(levels))
	for i, level := range levels {
		frame := &Frame[float32]{PeakAmp: level}
		require.NoError(t, d.Process(frame))
		assert.Equal(t, d.Detected(), frame.VoiceActive)
		decisions[i] = frame.VoiceActive
	}
	return decisions
}

func TestDetectorConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*DetectorConfig)
	}{
		{"negative_threshold", func(c *DetectorConfig) { c.Threshold = -0.1 }},
		{"threshold_above_one", func(c *DetectorConfig) { c.Threshold = 1.5 }},
		{"negative_hysteresis", func(c *DetectorConfig) { c.Hysteresis = -1 }},
		{"negative_delay", func(c *DetectorConfig) { c.ActivityDelayMs = -10 }},
		{"zero_factor", func(c *DetectorConfig) { c.CalibrationFactor = 0 }},
	}

	assert.NoError(t, DefaultDetectorConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDetectorConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestVoiceDetectorHysteresis(t *testing.T) {
	d := newTestDetector(t, 0.1, 0.02, 0)

	got := feedLevels(t, d, []float32{0.05, 0.11, 0.13, 0.09, 0.11, 0.07, 0.09})
	assert.Equal(t, []bool{false, false, true, true, true, false, false}, got)
}

func TestVoiceDetectorHysteresisClamped(t *testing.T) {
	// hysteresis larger than threshold/2 is clamped to 0.005
	d := newTestDetector(t, 0.01, 0.02, 0)

	got := feedLevels(t, d, []float32{0.012, 0.016, 0.006, 0.004})
	assert.Equal(t, []bool{false, true, true, false}, got)
}

func TestVoiceDetectorActivityDelay(t *testing.T) {
	d := newTestDetector(t, 0.1, 0, 20)

	got := feedLevels(t, d, []float32{0.2, 0, 0, 0, 0.2, 0, 0.2})
	assert.Equal(t, []bool{true, true, true, false, true, true, true}, got)

	d.SetActivityDelayMs(0)
	got = feedLevels(t, d, []float32{0})
	assert.Equal(t, []bool{false}, got)
}

func TestVoiceDetectorCalibratingFrameIsInactive(t *testing.T) {
	d := newTestDetector(t, 0.1, 0.02, 0)
	require.Equal(t, []bool{true}, feedLevels(t, d, []float32{0.5}))

	frame := &Frame[float32]{PeakAmp: 0.9, Calibrating: true}
	require.NoError(t, d.Process(frame))
	assert.False(t, frame.VoiceActive)
	assert.False(t, d.Detected())

	// sticky state was reset: a level inside the band stays inactive
	assert.Equal(t, []bool{false}, feedLevels(t, d, []float32{0.1}))
}

func TestVoiceDetectorInactiveWhileCalibrationPending(t *testing.T) {
	d := newTestDetector(t, 0.1, 0.02, 0)
	c, err := NewCalibration[float32](48000, 480, d, DefaultDetectorConfig())
	require.NoError(t, err)
	d.WatchCalibration(c.Calibrating)

	// request lands after the frame passed calibration but before detection
	frame := &Frame[float32]{PeakAmp: 0.9}
	require.NoError(t, c.Process(frame))
	require.NoError(t, c.Calibrate(100))
	require.NoError(t, d.Process(frame))

	assert.True(t, c.Calibrating())
	assert.False(t, frame.VoiceActive)
	assert.False(t, d.Detected())

	// the run covers 10 frames, none of them active
	for i := 0; i < 10; i++ {
		frame := &Frame[float32]{PeakAmp: 0.9}
		require.NoError(t, c.Process(frame))
		require.NoError(t, d.Process(frame))
		assert.False(t, frame.VoiceActive)
	}
	assert.False(t, c.Calibrating())
}

func TestVoiceDetectorSetters(t *testing.T) {
	d := newTestDetector(t, 0.1, 0.02, 0)

	d.SetThreshold(0.3)
	d.SetHysteresis(0.01)
	d.SetEnabled(true)

	assert.Equal(t, float32(0.3), d.Threshold())
	assert.Equal(t, float32(0.01), d.Hysteresis())
	assert.True(t, d.Enabled())
	assert.Equal(t, []bool{false, true}, feedLevels(t, d, []float32{0.2, 0.4}))
}

func TestVoiceDetectorDummy(t *testing.T) {
	var d VoiceDetectorDummy[int16]
	d.SetThreshold(0.5)
	d.SetEnabled(true)

	frame := &Frame[int16]{PeakAmp: 1}
	require.NoError(t, d.Process(frame))
	assert.False(t, frame.VoiceActive)
	assert.False(t, d.Detected())
	assert.False(t, d.Enabled())
	assert.Equal(t, float32(0), d.Threshold())
}
