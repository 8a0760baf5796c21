package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/opd-ai/toxvoice/av"
	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/opd-ai/toxvoice/av/codec"
	"github.com/opd-ai/toxvoice/config"
	"github.com/opd-ai/toxvoice/factory"
	"github.com/opd-ai/toxvoice/interfaces"
	"github.com/sirupsen/logrus"
)

// pushPollInterval is how often a push-driven voice is checked for failure.
const pushPollInterval = 100 * time.Millisecond

// packetCounter is the terminal packet sink of a voice.
type packetCounter struct {
	packets atomic.Uint64
	bytes   atomic.Uint64
}

func (c *packetCounter) sink(packet []byte) {
	c.packets.Add(1)
	c.bytes.Add(uint64(len(packet)))
}

// runningVoice is a configured voice with its bound source.
type runningVoice struct {
	voice    interfaces.ILocalVoiceAudio
	pull     bool
	interval time.Duration
	counter  *packetCounter
	loopback *codec.LoopbackDecoder
}

func buildVoice(f *factory.VoiceFactory, vc *config.VoiceConfig, opts ...av.Option) (*runningVoice, error) {
	stream, err := vc.StreamConfig()
	if err != nil {
		return nil, err
	}

	rv := &runningVoice{
		counter:  &packetCounter{},
		interval: time.Duration(stream.FrameDurationMs() * float64(time.Millisecond)),
	}

	encoder, err := rv.newEncoder(stream, vc.Encoder)
	if err != nil {
		return nil, err
	}

	opts = append(opts,
		av.WithDetectorConfig(vc.DetectorConfig()),
		av.WithLevelWindowMs(vc.LevelMeter.WindowMs),
		av.WithGain(vc.Gain),
	)
	voice, err := f.CreateLocalVoice(vc.Name, &stream, encoder, opts...)
	if err != nil {
		encoder.Close()
		return nil, err
	}
	rv.voice = voice

	source, err := newSource(f, &stream, vc.Source)
	if err != nil {
		voice.Close()
		return nil, err
	}
	if err := voice.BindSource(source); err != nil {
		source.Close()
		voice.Close()
		return nil, err
	}
	rv.pull = isPullSource(source)

	if vc.CalibrateMs > 0 {
		if err := voice.VoiceDetectorCalibrate(vc.CalibrateMs); err != nil {
			voice.Close()
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":     "buildVoice",
		"voice":        vc.Name,
		"source":       vc.Source.Type,
		"encoder":      vc.Encoder.Type,
		"calibrate_ms": vc.CalibrateMs,
	}).Info("Voice ready")
	return rv, nil
}

func isPullSource(source interfaces.IAudioDesc) bool {
	switch source.(type) {
	case interfaces.IAudioReader[int16], interfaces.IAudioReader[float32]:
		return true
	default:
		return false
	}
}

func (rv *runningVoice) newEncoder(stream audio.StreamConfig, ec config.EncoderConfig) (interfaces.IEncoder, error) {
	sink := rv.counter.sink

	switch ec.Type {
	case config.EncoderOpus:
		if ec.Verify {
			rv.loopback = codec.NewLoopbackDecoder()
			sink = rv.loopback.Sink(sink)
		}
		app, err := codec.ParseApplication(ec.Application)
		if err != nil {
			return nil, err
		}
		return codec.NewOpusEncoder(codec.OpusConfig{
			SamplingRate: stream.SamplingRate,
			FrameSize:    stream.FrameSize,
			Channels:     stream.Channels,
			Bitrate:      ec.Bitrate,
			Application:  app,
		}, sink)
	case config.EncoderPCM:
		if stream.SampleKind == audio.SampleFloat {
			return audio.NewPCMEncoder[float32](stream.SamplingRate, stream.FrameSize, stream.Channels, sink)
		}
		return audio.NewPCMEncoder[int16](stream.SamplingRate, stream.FrameSize, stream.Channels, sink)
	default:
		return nil, fmt.Errorf("unknown encoder type %q", ec.Type)
	}
}

func newSource(f *factory.VoiceFactory, stream *audio.StreamConfig, sc config.SourceConfig) (interfaces.IAudioDesc, error) {
	switch sc.Type {
	case config.SourceFile:
		file, err := os.Open(sc.Path)
		if err != nil {
			return nil, err
		}
		return f.CreatePCMSource(stream, file)
	case config.SourcePush, config.SourcePull:
		vc := config.VoiceConfig{Source: sc}
		signal, err := vc.Signal()
		if err != nil {
			return nil, err
		}
		mode := factory.SourcePush
		if sc.Type == config.SourcePull {
			mode = factory.SourcePull
		}
		return f.CreateSimulatedSource(stream, mode, signal, sc.DurationMs)
	default:
		return nil, fmt.Errorf("unknown source type %q", sc.Type)
	}
}

// run drives the voice until ctx is done, the pipeline fails, or a pull
// source is exhausted.
func (rv *runningVoice) run(ctx context.Context) error {
	interval := rv.interval
	if !rv.pull {
		interval = pushPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if rv.pull {
			err := rv.voice.Service()
			if errors.Is(err, io.EOF) {
				logrus.WithFields(logrus.Fields{
					"function": "runningVoice.run",
					"voice":    rv.voice.Name(),
					"frames":   rv.voice.Stats().FramesProcessed,
				}).Info("Source exhausted")
				return nil
			}
			if err != nil {
				return fmt.Errorf("voice %q: %w", rv.voice.Name(), err)
			}
			continue
		}
		if err := rv.voice.Err(); err != nil {
			return fmt.Errorf("voice %q: %w", rv.voice.Name(), err)
		}
	}
}

func (rv *runningVoice) close() {
	fields := logrus.Fields{
		"function": "runningVoice.close",
		"voice":    rv.voice.Name(),
		"packets":  rv.counter.packets.Load(),
		"bytes":    rv.counter.bytes.Load(),
	}
	if rv.loopback != nil {
		decoded, failures := rv.loopback.Stats()
		fields["decoded"] = decoded
		fields["decode_failures"] = failures
	}

	if err := rv.voice.Close(); err != nil {
		fields["error"] = err.Error()
		logrus.WithFields(fields).Warn("Voice closed with error")
		return
	}
	logrus.WithFields(fields).Info("Voice closed")
}
