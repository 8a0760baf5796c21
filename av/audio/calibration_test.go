package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 48 kHz with 480-sample frames is 100 frames per second.
func newTestCalibration(t *testing.T) (*Calibration[float32], *VoiceDetector[float32]) {
	t.Helper()
	cfg := DefaultDetectorConfig()
	d, err := NewVoiceDetector[float32](48000, 480, cfg)
	require.NoError(t, err)
	c, err := NewCalibration[float32](48000, 480, d, cfg)
	require.NoError(t, err)
	return c, d
}

func feedCalibration(t *testing.T, c *Calibration[float32], level float32, n int) []bool {
	t.Helper()
	flags := make([]bool, n)
	for i := 0; i < n; i++ {
		frame := &Frame[float32]{PeakAmp: level}
		require.NoError(t, c.Process(frame))
		flags[i] = frame.Calibrating
	}
	return flags
}

func TestCalibrationInvalidDuration(t *testing.T) {
	c, _ := newTestCalibration(t)

	for _, ms := range []int{0, -5, 60001} {
		assert.ErrorIs(t, c.Calibrate(ms), ErrInvalidDuration)
	}
	assert.False(t, c.Calibrating())
}

func TestCalibrationInstallsThreshold(t *testing.T) {
	c, d := newTestCalibration(t)

	var completed []float32
	c.OnComplete(func(threshold float32) { completed = append(completed, threshold) })

	require.NoError(t, c.Calibrate(500))
	assert.True(t, c.Calibrating())

	flags := feedCalibration(t, c, 0.05, 49)
	for _, f := range flags {
		assert.True(t, f)
	}
	assert.True(t, c.Calibrating())
	assert.Empty(t, completed)

	assert.Equal(t, []bool{true}, feedCalibration(t, c, 0.05, 1))
	assert.False(t, c.Calibrating())
	assert.InDelta(t, 0.1, d.Threshold(), 1e-6)
	assert.InDelta(t, 0.1, c.LastThreshold(), 1e-6)
	require.Len(t, completed, 1)

	// idle frames are not flagged
	assert.Equal(t, []bool{false}, feedCalibration(t, c, 0.05, 1))
}

func TestCalibrationRestart(t *testing.T) {
	c, d := newTestCalibration(t)

	require.NoError(t, c.Calibrate(500))
	feedCalibration(t, c, 0.5, 10)

	require.NoError(t, c.Calibrate(100))
	feedCalibration(t, c, 0.02, 9)
	assert.True(t, c.Calibrating())
	feedCalibration(t, c, 0.02, 1)

	assert.False(t, c.Calibrating())
	assert.InDelta(t, 0.04, d.Threshold(), 1e-6)
}

func TestCalibrationMinThreshold(t *testing.T) {
	c, d := newTestCalibration(t)

	require.NoError(t, c.Calibrate(50))
	feedCalibration(t, c, 0, 5)

	assert.False(t, c.Calibrating())
	assert.Equal(t, float32(DefaultMinThreshold), d.Threshold())
}

func TestCalibrationShorterThanFrame(t *testing.T) {
	c, d := newTestCalibration(t)

	require.NoError(t, c.Calibrate(1))
	assert.Equal(t, []bool{true, false}, feedCalibration(t, c, 0.2, 2))
	assert.InDelta(t, 0.4, d.Threshold(), 1e-6)
}

func TestCalibrationCoversFractionalDuration(t *testing.T) {
	// 1 ms at 44.1 kHz is 44.1 samples, more than one 44-sample frame
	d, err := NewVoiceDetector[float32](44100, 44, DefaultDetectorConfig())
	require.NoError(t, err)
	c, err := NewCalibration[float32](44100, 44, d, DefaultDetectorConfig())
	require.NoError(t, err)

	require.NoError(t, c.Calibrate(1))
	assert.Equal(t, []bool{true, true, false}, feedCalibration(t, c, 0.2, 3))
}

func TestNewCalibrationValidation(t *testing.T) {
	_, err := NewCalibration[int16](48000, 480, nil, DefaultDetectorConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewCalibration[int16](0, 480, VoiceDetectorDummy[int16]{}, DefaultDetectorConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
