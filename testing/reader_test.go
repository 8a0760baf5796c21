package testing

import (
	"io"
	"testing"
	"time"

	"github.com/opd-ai/toxvoice/av"
	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func TestSimulatedReaderPacing(t *testing.T) {
	clock := newClock()
	r, err := NewSimulatedReader[float32](ReaderConfig{
		Signal:       Signal{Kind: SignalTone, Amplitude: 0.5, FrequencyHz: 440},
		SamplingRate: 16000,
		Channels:     2,
		Now:          clock.Now,
	})
	require.NoError(t, err)
	assert.Equal(t, 16000, r.SamplingRate())
	assert.Equal(t, 2, r.Channels())

	buf := make([]float32, 1000)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(10 * time.Millisecond)
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 320, n)

	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(time.Second)
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
}

func TestSimulatedReaderDuration(t *testing.T) {
	clock := newClock()
	r, err := NewSimulatedReader[int16](ReaderConfig{
		Signal:       Signal{Kind: SignalSilence},
		SamplingRate: 8000,
		Channels:     1,
		DurationMs:   50,
		Now:          clock.Now,
	})
	require.NoError(t, err)

	_, err = r.Read(nil)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	buf := make([]int16, 300)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 300, n)

	n, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 100, n)

	n, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, n)
}

func TestSimulatedReaderFailAndClose(t *testing.T) {
	r, err := NewSimulatedReader[int16](ReaderConfig{SamplingRate: 8000, Channels: 1})
	require.NoError(t, err)

	r.Fail("unplugged")
	r.Fail("ignored")
	assert.Equal(t, "unplugged", r.Error())

	require.NoError(t, r.Close())
	_, err = r.Read(make([]int16, 8))
	assert.ErrorIs(t, err, io.EOF)
}

func TestSimulatedReaderDrivesVoice(t *testing.T) {
	clock := newClock()
	r, err := NewSimulatedReader[float32](ReaderConfig{
		Signal:       Signal{Kind: SignalTone, Amplitude: 0.5, FrequencyHz: 440},
		SamplingRate: 16000,
		Channels:     1,
		DurationMs:   100,
		Now:          clock.Now,
	})
	require.NoError(t, err)

	voice, err := av.NewLocalVoiceAudio[float32]("pull", audio.StreamConfig{
		SourceSamplingRate: 16000,
		SamplingRate:       16000,
		FrameSize:          320,
		Channels:           1,
		SampleKind:         audio.SampleFloat,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, voice.BindSource(r))

	require.NoError(t, voice.Service())
	clock.Advance(50 * time.Millisecond)
	require.NoError(t, voice.Service())
	assert.Equal(t, uint64(800), voice.Stats().SamplesPushed)
	assert.Equal(t, uint64(2), voice.Stats().FramesProcessed)

	clock.Advance(time.Second)
	assert.ErrorIs(t, voice.Service(), io.EOF)
	assert.Equal(t, uint64(5), voice.Stats().FramesProcessed)

	require.NoError(t, voice.Close())
}
