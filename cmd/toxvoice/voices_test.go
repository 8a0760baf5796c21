package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opd-ai/toxvoice/av"
	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/opd-ai/toxvoice/config"
	"github.com/opd-ai/toxvoice/factory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseVoice(t *testing.T, yaml string) *config.VoiceConfig {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	require.Len(t, cfg.Voices, 1)
	return &cfg.Voices[0]
}

func TestBuildVoicePullSourceRunsToEOF(t *testing.T) {
	vc := parseVoice(t, `
voices:
  - name: pull
    stream:
      sampling_rate: 16000
      frame_size: 320
      sample_kind: float
    source:
      type: pull
      duration_ms: 100
      signal:
        kind: tone
        amplitude: 0.5
`)
	rv, err := buildVoice(factory.NewVoiceFactory(), vc)
	require.NoError(t, err)
	assert.True(t, rv.pull)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rv.run(ctx))

	assert.Equal(t, uint64(5), rv.voice.Stats().FramesProcessed)
	assert.Equal(t, uint64(5), rv.counter.packets.Load())
	assert.Equal(t, uint64(5*320*4), rv.counter.bytes.Load())
	rv.close()
}

func TestBuildVoiceFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.raw")
	require.NoError(t, os.WriteFile(path, audio.EncodePCM(make([]int16, 3*960)), 0o600))

	vc := parseVoice(t, `
voices:
  - name: file
    source:
      type: file
      path: `+path+`
    detector:
      enabled: true
`)
	reg := prometheus.NewRegistry()
	rv, err := buildVoice(factory.NewVoiceFactory(), vc, av.WithMetrics(av.NewMetrics(reg)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rv.run(ctx))

	stats := rv.voice.Stats()
	assert.Equal(t, uint64(3), stats.FramesProcessed)
	assert.Equal(t, uint64(3), stats.FramesSuppressed)
	assert.Zero(t, rv.counter.packets.Load())
	rv.close()
}

func TestBuildVoicePushSourceStopsOnCancel(t *testing.T) {
	vc := parseVoice(t, `
voices:
  - name: push
    stream:
      sampling_rate: 16000
      frame_size: 160
    source:
      type: push
      signal:
        kind: tone
        amplitude: 0.5
    calibrate_ms: 50
`)
	rv, err := buildVoice(factory.NewVoiceFactory(), vc)
	require.NoError(t, err)
	assert.False(t, rv.pull)
	assert.True(t, rv.voice.VoiceDetectorCalibrating())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rv.run(ctx) }()

	assert.Eventually(t, func() bool { return rv.voice.Stats().Calibrations == 1 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	rv.close()
}

func TestBuildVoiceMissingFile(t *testing.T) {
	vc := parseVoice(t, `
voices:
  - name: missing
    source:
      type: file
      path: /nonexistent/capture.raw
`)
	_, err := buildVoice(factory.NewVoiceFactory(), vc)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfigFlags(t *testing.T) {
	cfg, err := loadConfig(&CLIConfig{logLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Len(t, cfg.Voices, 1)

	_, err = loadConfig(&CLIConfig{logLevel: "chatty"})
	assert.Error(t, err)
}
