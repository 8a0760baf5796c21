package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, SampleFloat, KindOf[float32]())
	assert.Equal(t, SampleShort, KindOf[int16]())
}

func TestParseSampleKind(t *testing.T) {
	for name, want := range map[string]SampleKind{
		"float": SampleFloat, "float32": SampleFloat,
		"short": SampleShort, "int16": SampleShort, "s16": SampleShort,
	} {
		got, err := ParseSampleKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseSampleKind("double")
	assert.ErrorIs(t, err, ErrUnsupportedSampleKind)
}

func TestStreamConfigValidate(t *testing.T) {
	valid := StreamConfig{
		SourceSamplingRate: 48000,
		SamplingRate:       16000,
		FrameSize:          960,
		Channels:           1,
		SampleKind:         SampleShort,
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, 2880, valid.SourceFrameSize())
	assert.True(t, valid.NeedsResampling())
	assert.Equal(t, 60.0, valid.FrameDurationMs())

	tests := []struct {
		name    string
		modify  func(*StreamConfig)
		wantErr error
	}{
		{"unknown_kind", func(c *StreamConfig) { c.SampleKind = SampleUnknown }, ErrUnsupportedSampleKind},
		{"zero_source_rate", func(c *StreamConfig) { c.SourceSamplingRate = 0 }, ErrInvalidConfig},
		{"zero_target_rate", func(c *StreamConfig) { c.SamplingRate = 0 }, ErrInvalidConfig},
		{"three_channels", func(c *StreamConfig) { c.Channels = 3 }, ErrInvalidConfig},
		{"zero_frame", func(c *StreamConfig) { c.FrameSize = 0 }, ErrInvalidConfig},
		{"fractional_ratio", func(c *StreamConfig) { c.SourceSamplingRate = 44100; c.FrameSize = 100 }, ErrUnsupportedRatio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestSampleKindProperties(t *testing.T) {
	assert.Equal(t, 2, SampleShort.BytesPerSample())
	assert.Equal(t, 4, SampleFloat.BytesPerSample())
	assert.Equal(t, float32(32768), SampleShort.FullScale())
	assert.Equal(t, float32(1), SampleFloat.FullScale())
	assert.Equal(t, "short", SampleShort.String())
}
