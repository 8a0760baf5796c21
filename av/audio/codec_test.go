package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPCMEncoder(t *testing.T) {
	_, err := NewPCMEncoder[int16](0, 480, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	enc, err := NewPCMEncoder[float32](48000, 480, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, SampleFloat, enc.SampleKind())
	assert.Equal(t, 48000, enc.SamplingRate())
	assert.Equal(t, 480, enc.FrameSize())
	assert.Equal(t, 2, enc.Channels())
}

func TestPCMEncoderShortLayout(t *testing.T) {
	var packets [][]byte
	enc, err := NewPCMEncoder[int16](16000, 2, 1, func(p []byte) { packets = append(packets, p) })
	require.NoError(t, err)

	require.NoError(t, enc.Input([]int16{0x0102, -2}))
	require.Len(t, packets, 1)
	assert.Equal(t, []byte{0x02, 0x01, 0xfe, 0xff}, packets[0])
	assert.Equal(t, uint64(1), enc.Packets())
	assert.Equal(t, uint64(4), enc.Bytes())
}

func TestPCMEncoderFloatLayout(t *testing.T) {
	var packets [][]byte
	enc, err := NewPCMEncoder[float32](16000, 1, 1, func(p []byte) { packets = append(packets, p) })
	require.NoError(t, err)

	require.NoError(t, enc.Input([]float32{1.0}))
	require.Len(t, packets, 1)
	// 1.0 is 0x3f800000
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, packets[0])
	assert.Equal(t, []float32{1.0}, DecodePCM[float32](packets[0]))
}

func TestPCMEncoderRejectsWrongLength(t *testing.T) {
	enc, err := NewPCMEncoder[int16](16000, 4, 2, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, enc.Input(make([]int16, 4)), ErrFrameLength)
	assert.NoError(t, enc.Input(make([]int16, 8)))
}

func TestPCMEncoderClose(t *testing.T) {
	enc, err := NewPCMEncoder[int16](16000, 1, 1, nil)
	require.NoError(t, err)

	require.NoError(t, enc.Close())
	require.NoError(t, enc.Close())
	assert.ErrorIs(t, enc.Input([]int16{1}), ErrEncoderClosed)
}

func TestDecodePCMShort(t *testing.T) {
	samples := []int16{-32768, -1, 0, 1, 32767}
	assert.Equal(t, samples, DecodePCM[int16](EncodePCM(samples)))
	assert.Len(t, DecodePCM[int16]([]byte{1, 2, 3}), 1)
}
