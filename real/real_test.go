package real

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	openErr error
	opened  map[int]bool
	closed  []int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{opened: make(map[int]bool)}
}

func (b *fakeBackend) Open(handle, samplingRate, channels int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return b.openErr
	}
	b.opened[handle] = true
	return nil
}

func (b *fakeBackend) Close(handle int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, handle)
	return nil
}

func TestHandleTableDispatch(t *testing.T) {
	table := NewHandleTable[int16]()
	h1 := table.Register()
	h2 := table.Register()
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, table.Len())

	var got []int16
	require.True(t, table.SetCallback(h1, func(s []int16) { got = append(got, s...) }))

	assert.True(t, table.Dispatch(h1, []int16{1, 2}))
	assert.False(t, table.Dispatch(h2, []int16{3}))
	assert.False(t, table.Dispatch(99, []int16{4}))
	assert.Equal(t, []int16{1, 2}, got)

	table.Remove(h1)
	assert.False(t, table.Dispatch(h1, []int16{5}))
	assert.False(t, table.SetCallback(h1, func([]int16) {}))
	assert.Equal(t, []int16{1, 2}, got)
}

func TestHandleTableConcurrentDispatchAndRemove(t *testing.T) {
	table := NewHandleTable[float32]()
	h := table.Register()

	var mu sync.Mutex
	count := 0
	table.SetCallback(h, func([]float32) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				table.Dispatch(h, []float32{0})
			}
		}()
	}
	table.Remove(h)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, count, 400)
}

func TestNativePusherLifecycle(t *testing.T) {
	table := NewHandleTable[int16]()
	backend := newFakeBackend()

	p := NewNativePusher[int16](table, backend, 48000, 2)
	assert.Empty(t, p.Error())
	assert.True(t, backend.opened[p.Handle()])
	assert.Equal(t, 48000, p.SamplingRate())
	assert.Equal(t, 2, p.Channels())

	var got int
	p.SetCallback(func(s []int16) { got += len(s) }, nil)
	table.Dispatch(p.Handle(), make([]int16, 10))
	assert.Equal(t, 10, got)

	p.Fail("device lost")
	p.Fail("second failure")
	assert.Equal(t, "device lost", p.Error())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, []int{p.Handle()}, backend.closed)
	assert.Equal(t, 0, table.Len())

	table.Dispatch(p.Handle(), make([]int16, 10))
	assert.Equal(t, 10, got)
}

type countingFactory struct {
	allocs int
	short  bool
}

func (f *countingFactory) New(size int) []int16 {
	f.allocs++
	if f.short {
		return make([]int16, size-1)
	}
	return make([]int16, size)
}

func TestNativePusherCopiesIntoFactoryBuffers(t *testing.T) {
	table := NewHandleTable[int16]()
	p := NewNativePusher[int16](table, newFakeBackend(), 48000, 1)
	defer p.Close()

	factory := &countingFactory{}
	var received [][]int16
	p.SetCallback(func(s []int16) { received = append(received, s) }, factory)

	native := []int16{1, 2, 3, 4}
	table.Dispatch(p.Handle(), native)
	native[0], native[1] = 9, 9
	table.Dispatch(p.Handle(), native)

	require.Len(t, received, 2)
	assert.Equal(t, 2, factory.allocs)
	assert.Equal(t, []int16{1, 2, 3, 4}, received[0])
	assert.Equal(t, []int16{9, 9, 3, 4}, received[1])
	assert.NotSame(t, &native[0], &received[0][0])
	assert.NotSame(t, &received[0][0], &received[1][0])
}

func TestNativePusherShortFactoryFails(t *testing.T) {
	table := NewHandleTable[int16]()
	p := NewNativePusher[int16](table, newFakeBackend(), 48000, 1)
	defer p.Close()

	calls := 0
	p.SetCallback(func([]int16) { calls++ }, &countingFactory{short: true})
	table.Dispatch(p.Handle(), make([]int16, 4))

	assert.Zero(t, calls)
	assert.Contains(t, p.Error(), "buffer factory returned 3 samples")
}

func TestNativePusherOpenFailure(t *testing.T) {
	table := NewHandleTable[int16]()
	backend := newFakeBackend()
	backend.openErr = errors.New("no such device")

	p := NewNativePusher[int16](table, backend, 48000, 1)
	assert.Contains(t, p.Error(), "no such device")

	require.NoError(t, p.Close())
	assert.Empty(t, backend.closed)
	assert.Equal(t, 0, table.Len())
}

func TestPCMReader(t *testing.T) {
	samples := []int16{1, -2, 3, -4, 5}
	data := audio.EncodePCM(samples)
	data = append(data, 0x7f) // partial trailing sample

	r := NewPCMReader[int16](bytes.NewReader(data), 16000, 1)
	assert.Equal(t, 16000, r.SamplingRate())
	assert.Equal(t, 1, r.Channels())

	buf := make([]int16, 2)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, -2}, buf[:n])

	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []int16{3, -4}, buf[:n])

	n, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []int16{5}, buf[:n])

	n, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, n)
	assert.Empty(t, r.Error())
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestPCMReaderError(t *testing.T) {
	r := NewPCMReader[float32](brokenReader{}, 16000, 1)

	_, err := r.Read(make([]float32, 4))
	require.Error(t, err)
	assert.Equal(t, "disk on fire", r.Error())
	assert.NoError(t, r.Close())
}
