package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// PacketSink receives encoded packets. Packets are owned by the sink.
type PacketSink func(packet []byte)

// DiscardSink drops every packet.
func DiscardSink(packet []byte) {}

// PCMEncoder encodes frames as raw little-endian PCM.
//
// int16 frames become 2 bytes per sample, float32 frames become the 4-byte
// IEEE 754 representation of each sample.
type PCMEncoder[T Sample] struct {
	samplingRate int
	frameSize    int
	channels     int
	sink         PacketSink

	closed  atomic.Bool
	packets atomic.Uint64
	bytes   atomic.Uint64
}

// NewPCMEncoder creates a PCM encoder for frames of frameSize samples per
// channel. A nil sink discards packets.
func NewPCMEncoder[T Sample](samplingRate, frameSize, channels int, sink PacketSink) (*PCMEncoder[T], error) {
	if samplingRate <= 0 || frameSize <= 0 || channels <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":      "NewPCMEncoder",
			"sampling_rate": samplingRate,
			"frame_size":    frameSize,
			"channels":      channels,
		}).Error("PCM encoder validation failed")
		return nil, fmt.Errorf("%w: pcm encoder %d Hz, %d samples, %d channels",
			ErrInvalidConfig, samplingRate, frameSize, channels)
	}
	if sink == nil {
		sink = DiscardSink
	}

	logrus.WithFields(logrus.Fields{
		"function":      "NewPCMEncoder",
		"sampling_rate": samplingRate,
		"frame_size":    frameSize,
		"channels":      channels,
		"sample_kind":   KindOf[T]().String(),
	}).Info("PCM encoder created")

	return &PCMEncoder[T]{
		samplingRate: samplingRate,
		frameSize:    frameSize,
		channels:     channels,
		sink:         sink,
	}, nil
}

// Input encodes one frame and hands the packet to the sink.
func (e *PCMEncoder[T]) Input(samples []T) error {
	if e.closed.Load() {
		return ErrEncoderClosed
	}
	if len(samples) != e.frameSize*e.channels {
		return fmt.Errorf("%w: pcm encoder got %d samples, want %d",
			ErrFrameLength, len(samples), e.frameSize*e.channels)
	}

	packet := EncodePCM(samples)
	e.packets.Add(1)
	e.bytes.Add(uint64(len(packet)))
	e.sink(packet)
	return nil
}

// EncodePCM serializes samples as little-endian PCM.
func EncodePCM[T Sample](samples []T) []byte {
	kind := KindOf[T]()
	packet := make([]byte, len(samples)*kind.BytesPerSample())
	switch kind {
	case SampleShort:
		for i, s := range samples {
			binary.LittleEndian.PutUint16(packet[i*2:], uint16(int16(s)))
		}
	case SampleFloat:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(packet[i*4:], math.Float32bits(float32(s)))
		}
	}
	return packet
}

// DecodePCM is the inverse of EncodePCM. Trailing partial samples are ignored.
func DecodePCM[T Sample](packet []byte) []T {
	kind := KindOf[T]()
	width := kind.BytesPerSample()
	if width == 0 {
		return nil
	}
	samples := make([]T, len(packet)/width)
	for i := range samples {
		switch kind {
		case SampleShort:
			samples[i] = T(int16(binary.LittleEndian.Uint16(packet[i*2:])))
		case SampleFloat:
			samples[i] = T(math.Float32frombits(binary.LittleEndian.Uint32(packet[i*4:])))
		}
	}
	return samples
}

// SampleKind returns the sample representation accepted by Input.
func (e *PCMEncoder[T]) SampleKind() SampleKind {
	return KindOf[T]()
}

// SamplingRate returns the configured sample rate.
func (e *PCMEncoder[T]) SamplingRate() int {
	return e.samplingRate
}

// FrameSize returns the samples per channel accepted per frame.
func (e *PCMEncoder[T]) FrameSize() int {
	return e.frameSize
}

// Channels returns the interleaved channel count.
func (e *PCMEncoder[T]) Channels() int {
	return e.channels
}

// Packets returns the number of packets delivered to the sink.
func (e *PCMEncoder[T]) Packets() uint64 {
	return e.packets.Load()
}

// Bytes returns the number of bytes delivered to the sink.
func (e *PCMEncoder[T]) Bytes() uint64 {
	return e.bytes.Load()
}

// Close stops the encoder. Later Input calls return ErrEncoderClosed.
func (e *PCMEncoder[T]) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"function": "PCMEncoder.Close",
		"packets":  e.packets.Load(),
		"bytes":    e.bytes.Load(),
	}).Info("PCM encoder closed")
	return nil
}
