package real

import (
	"errors"
	"io"
	"sync"

	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/sirupsen/logrus"
)

// PCMReader is a pull source reading little-endian PCM of T from an
// io.Reader, such as a raw capture file.
type PCMReader[T audio.Sample] struct {
	r            io.Reader
	samplingRate int
	channels     int
	width        int
	raw          []byte

	mu  sync.Mutex
	err string
}

// NewPCMReader creates a pull source over r.
func NewPCMReader[T audio.Sample](r io.Reader, samplingRate, channels int) *PCMReader[T] {
	return &PCMReader[T]{
		r:            r,
		samplingRate: samplingRate,
		channels:     channels,
		width:        audio.KindOf[T]().BytesPerSample(),
	}
}

// Read fills buf with up to len(buf) samples. It blocks only as long as the
// underlying reader does. A trailing partial sample at end of stream is
// dropped.
func (p *PCMReader[T]) Read(buf []T) (int, error) {
	need := len(buf) * p.width
	if cap(p.raw) < need {
		p.raw = make([]byte, need)
	}
	raw := p.raw[:need]

	n, err := io.ReadFull(p.r, raw)
	samples := audio.DecodePCM[T](raw[:n-n%p.width])
	copy(buf, samples)

	switch {
	case err == nil:
		return len(samples), nil
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return len(samples), io.EOF
	default:
		p.mu.Lock()
		p.err = err.Error()
		p.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "PCMReader.Read",
			"error":    err.Error(),
		}).Error("PCM source read failed")
		return len(samples), err
	}
}

// SamplingRate returns the declared stream rate.
func (p *PCMReader[T]) SamplingRate() int {
	return p.samplingRate
}

// Channels returns the declared channel count.
func (p *PCMReader[T]) Channels() int {
	return p.channels
}

// Error returns the last read failure other than end of stream, or "".
func (p *PCMReader[T]) Error() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Close closes the underlying reader if it is an io.Closer.
func (p *PCMReader[T]) Close() error {
	if c, ok := p.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
