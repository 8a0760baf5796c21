package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResampler(t *testing.T) {
	tests := []struct {
		name    string
		config  ResamplerConfig
		wantErr error
	}{
		{
			name:   "downsample_48k_to_16k",
			config: ResamplerConfig{InputRate: 48000, OutputRate: 16000, Channels: 1, FrameSize: 960},
		},
		{
			name:   "upsample_16k_to_48k",
			config: ResamplerConfig{InputRate: 16000, OutputRate: 48000, Channels: 2, FrameSize: 960},
		},
		{
			name:   "44100_to_48000_10ms",
			config: ResamplerConfig{InputRate: 44100, OutputRate: 48000, Channels: 1, FrameSize: 480},
		},
		{
			name:    "zero_input_rate",
			config:  ResamplerConfig{InputRate: 0, OutputRate: 48000, Channels: 1, FrameSize: 960},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "zero_output_rate",
			config:  ResamplerConfig{InputRate: 48000, OutputRate: 0, Channels: 1, FrameSize: 960},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "too_many_channels",
			config:  ResamplerConfig{InputRate: 48000, OutputRate: 16000, Channels: 3, FrameSize: 960},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "fractional_source_chunk",
			config:  ResamplerConfig{InputRate: 44100, OutputRate: 48000, Channels: 1, FrameSize: 100},
			wantErr: ErrUnsupportedRatio,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResampler[int16](tt.config, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config.FrameSize*tt.config.InputRate/tt.config.OutputRate, r.InputFrameSize())
		})
	}
}

func TestResamplerFrameExact(t *testing.T) {
	r, err := NewResampler[float32](ResamplerConfig{InputRate: 48000, OutputRate: 16000, Channels: 1, FrameSize: 960}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2880, r.InputFrameSize())

	for i := 0; i < 3; i++ {
		out, err := r.Resample(make([]float32, 2880))
		require.NoError(t, err)
		assert.Len(t, out, 960)
	}
}

func TestResamplerWrongLength(t *testing.T) {
	r, err := NewResampler[int16](ResamplerConfig{InputRate: 48000, OutputRate: 16000, Channels: 1, FrameSize: 960}, nil)
	require.NoError(t, err)

	frame := &Frame[int16]{Samples: make([]int16, 960)}
	assert.ErrorIs(t, r.Process(frame), ErrFrameLength)
}

func TestResamplerDownsamplePicksEveryThirdSample(t *testing.T) {
	r, err := NewResampler[float32](ResamplerConfig{InputRate: 48000, OutputRate: 16000, Channels: 1, FrameSize: 960}, nil)
	require.NoError(t, err)

	in := make([]float32, r.InputFrameSize())
	for i := range in {
		in[i] = float32(i)
	}
	out, err := r.Resample(in)
	require.NoError(t, err)

	for i, s := range out {
		assert.InDelta(t, float64(3*i+2), float64(s), 1e-3)
	}
}

func TestResamplerUpsampleInterpolatesAcrossFrames(t *testing.T) {
	r, err := NewResampler[float32](ResamplerConfig{InputRate: 8000, OutputRate: 16000, Channels: 1, FrameSize: 4}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, r.InputFrameSize())

	out, err := r.Resample([]float32{2, 4})
	require.NoError(t, err)
	// positions -0.5, 0, 0.5, 1 with a zero carried sample
	assert.Equal(t, []float32{1, 2, 3, 4}, out)

	out, err = r.Resample([]float32{6, 8})
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 6, 7, 8}, out)

	r.Reset()
	out, err = r.Resample([]float32{2, 4})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, out)
}

func TestResamplerStereoKeepsChannelsApart(t *testing.T) {
	r, err := NewResampler[int16](ResamplerConfig{InputRate: 32000, OutputRate: 16000, Channels: 2, FrameSize: 2}, nil)
	require.NoError(t, err)

	out, err := r.Resample([]int16{100, -100, 200, -200, 300, -300, 400, -400})
	require.NoError(t, err)
	assert.Equal(t, []int16{200, -200, 400, -400}, out)
}

func TestResamplerSameRateCopies(t *testing.T) {
	r, err := NewResampler[int16](ResamplerConfig{InputRate: 16000, OutputRate: 16000, Channels: 1, FrameSize: 4}, nil)
	require.NoError(t, err)

	in := []int16{1, 2, 3, 4}
	out, err := r.Resample(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "Resampler(16000->16000)", r.GetName())
}

func TestResamplerRejectsShortFactoryBuffers(t *testing.T) {
	r, err := NewResampler[int16](ResamplerConfig{InputRate: 32000, OutputRate: 16000, Channels: 1, FrameSize: 4}, shortFactory[int16]{})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		_, err = r.Resample(make([]int16, 8))
	})
	assert.ErrorIs(t, err, ErrFrameLength)
}

func TestResamplerRoundsShortSamples(t *testing.T) {
	r, err := NewResampler[int16](ResamplerConfig{InputRate: 8000, OutputRate: 16000, Channels: 1, FrameSize: 4}, nil)
	require.NoError(t, err)

	// positions -0.5, 0, 0.5, 1 with a zero carried sample
	out, err := r.Resample([]int16{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 1, 2, 2}, out)

	r.Reset()
	out, err = r.Resample([]int16{-1, -2})
	require.NoError(t, err)
	assert.Equal(t, []int16{-1, -1, -2, -2}, out)
}
