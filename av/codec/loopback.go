package codec

import (
	"fmt"
	"sync"

	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// decodeBufferBytes holds 60 ms of stereo 48 kHz 16-bit audio.
const decodeBufferBytes = 5760 * 2 * 2

// PacketInfo describes a packet decoded by LoopbackDecoder.
type PacketInfo struct {
	Bytes      int    // encoded size
	Bandwidth  string // Opus audio bandwidth name
	SampleRate int    // sample rate implied by the bandwidth
	Stereo     bool
}

// LoopbackDecoder decodes packets produced by an OpusEncoder to verify them
// locally. It uses the pure Go pion decoder, which handles SILK-coded
// packets; packets it cannot decode are counted as failures.
type LoopbackDecoder struct {
	mu       sync.Mutex
	decoder  opus.Decoder
	out      []byte
	decoded  uint64
	failures uint64
	last     PacketInfo
}

// NewLoopbackDecoder creates a loopback decoder.
func NewLoopbackDecoder() *LoopbackDecoder {
	logrus.WithFields(logrus.Fields{
		"function": "NewLoopbackDecoder",
		"decoder":  "opus.Decoder",
	}).Info("Creating loopback decoder")

	return &LoopbackDecoder{
		decoder: opus.NewDecoder(),
		out:     make([]byte, decodeBufferBytes),
	}
}

// Decode decodes one packet and returns what it contained.
func (d *LoopbackDecoder) Decode(packet []byte) (PacketInfo, error) {
	if len(packet) == 0 {
		return PacketInfo{}, ErrEmptyPacket
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	bandwidth, isStereo, err := d.decoder.Decode(packet, d.out)
	if err != nil {
		d.failures++
		return PacketInfo{}, fmt.Errorf("opus decode failed: %w", err)
	}

	d.decoded++
	d.last = PacketInfo{
		Bytes:      len(packet),
		Bandwidth:  bandwidth.String(),
		SampleRate: bandwidth.SampleRate(),
		Stereo:     isStereo,
	}
	return d.last, nil
}

// Sink returns a packet sink that decodes every packet and then forwards it
// to next, if non-nil. Decode failures are logged at debug level.
func (d *LoopbackDecoder) Sink(next func(packet []byte)) func(packet []byte) {
	return func(packet []byte) {
		if _, err := d.Decode(packet); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "LoopbackDecoder.Sink",
				"bytes":    len(packet),
				"error":    err.Error(),
			}).Debug("Loopback decode failed")
		}
		if next != nil {
			next(packet)
		}
	}
}

// Stats returns the decoded and failed packet counts.
func (d *LoopbackDecoder) Stats() (decoded, failures uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decoded, d.failures
}

// Last returns the description of the most recently decoded packet.
func (d *LoopbackDecoder) Last() PacketInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
