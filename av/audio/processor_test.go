package audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	name   string
	log    *[]string
	err    error
	closed bool
}

func (p *recordingProcessor) Process(frame *Frame[int16]) error {
	*p.log = append(*p.log, p.name)
	return p.err
}

func (p *recordingProcessor) GetName() string { return p.name }

func (p *recordingProcessor) Close() error {
	p.closed = true
	return nil
}

func TestProcessorChainOrder(t *testing.T) {
	var log []string
	a := &recordingProcessor{name: "a", log: &log}
	b := &recordingProcessor{name: "b", log: &log}
	c := &recordingProcessor{name: "c", log: &log}

	chain := NewProcessorChain[int16]()
	chain.AddProcessor(a, b)
	chain.AddProcessor(c)

	require.NoError(t, chain.Process(&Frame[int16]{}))
	assert.Equal(t, []string{"a", "b", "c"}, log)
	assert.Equal(t, 3, chain.GetProcessorCount())
	assert.Equal(t, []string{"a", "b", "c"}, chain.GetProcessorNames())
}

func TestProcessorChainStopsOnError(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	chain := NewProcessorChain[int16]()
	chain.AddProcessor(
		&recordingProcessor{name: "a", log: &log},
		&recordingProcessor{name: "b", log: &log, err: boom},
		&recordingProcessor{name: "c", log: &log},
	)

	err := chain.Process(&Frame[int16]{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "processor 1 (b)")
	assert.Equal(t, []string{"a", "b"}, log)
}

func TestProcessorChainClose(t *testing.T) {
	var log []string
	a := &recordingProcessor{name: "a", log: &log}
	chain := NewProcessorChain[int16]()
	chain.AddProcessor(a)

	require.NoError(t, chain.Close())
	assert.True(t, a.closed)
	assert.Equal(t, 0, chain.GetProcessorCount())
}

func TestNewGainEffect(t *testing.T) {
	tests := []struct {
		name    string
		gain    float64
		wantErr bool
	}{
		{"valid_gain_zero", 0.0, false},
		{"valid_gain_unity", 1.0, false},
		{"valid_gain_amplification", 2.0, false},
		{"valid_gain_maximum", MaxGain, false},
		{"invalid_negative_gain", -0.5, true},
		{"invalid_too_high_gain", 5.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			effect, err := NewGainEffect[int16](tt.gain)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.gain, effect.GetGain())
		})
	}
}

func TestGainEffectClipsShort(t *testing.T) {
	effect, err := NewGainEffect[int16](2.0)
	require.NoError(t, err)

	frame := &Frame[int16]{Samples: []int16{1000, -1000, 20000, -20000}}
	require.NoError(t, effect.Process(frame))

	assert.Equal(t, []int16{2000, -2000, 32767, -32768}, frame.Samples)
	assert.Equal(t, uint64(2), effect.ClippedSamples())
}

func TestGainEffectRoundsShort(t *testing.T) {
	effect, err := NewGainEffect[int16](0.5)
	require.NoError(t, err)

	frame := &Frame[int16]{Samples: []int16{3, -3, 5, 32767}}
	require.NoError(t, effect.Process(frame))

	assert.Equal(t, []int16{2, -2, 3, 16384}, frame.Samples)
	assert.Zero(t, effect.ClippedSamples())
}

func TestGainEffectClipsFloat(t *testing.T) {
	effect, err := NewGainEffect[float32](4.0)
	require.NoError(t, err)

	frame := &Frame[float32]{Samples: []float32{0.125, -0.5}}
	require.NoError(t, effect.Process(frame))

	assert.Equal(t, []float32{0.5, -1}, frame.Samples)
	assert.Equal(t, uint64(1), effect.ClippedSamples())
}

func TestGainEffectSetGain(t *testing.T) {
	effect, err := NewGainEffect[float32](1.0)
	require.NoError(t, err)

	require.NoError(t, effect.SetGain(0.5))
	assert.Equal(t, 0.5, effect.GetGain())
	assert.ErrorIs(t, effect.SetGain(-1), ErrInvalidConfig)
	assert.Equal(t, 0.5, effect.GetGain())
	assert.Equal(t, "Gain(0.50)", effect.GetName())

	frame := &Frame[float32]{Samples: []float32{0.5}}
	require.NoError(t, effect.Process(frame))
	assert.Equal(t, []float32{0.25}, frame.Samples)
}
