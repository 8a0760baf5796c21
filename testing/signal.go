package testing

import (
	"errors"
	"fmt"
	"math"

	"github.com/opd-ai/toxvoice/av/audio"
)

// ErrInvalidSignal is returned for signal descriptions that cannot be
// generated.
var ErrInvalidSignal = errors.New("invalid test signal")

// SignalKind selects the waveform a Generator produces.
type SignalKind int

const (
	// SignalSilence produces all-zero samples.
	SignalSilence SignalKind = iota
	// SignalTone produces a continuous sine tone.
	SignalTone
	// SignalBursts alternates a sine tone with silence, like speech with
	// pauses.
	SignalBursts
)

// String returns the configuration name of the kind.
func (k SignalKind) String() string {
	switch k {
	case SignalSilence:
		return "silence"
	case SignalTone:
		return "tone"
	case SignalBursts:
		return "bursts"
	default:
		return fmt.Sprintf("SignalKind(%d)", int(k))
	}
}

// ParseSignalKind maps a configuration name to a SignalKind.
func ParseSignalKind(name string) (SignalKind, error) {
	switch name {
	case "silence", "":
		return SignalSilence, nil
	case "tone":
		return SignalTone, nil
	case "bursts":
		return SignalBursts, nil
	default:
		return SignalSilence, fmt.Errorf("%w: unknown kind %q", ErrInvalidSignal, name)
	}
}

// Signal describes a synthetic capture signal.
type Signal struct {
	Kind        SignalKind
	Amplitude   float64 // Normalized peak amplitude in [0, 1]
	FrequencyHz float64
	BurstOnMs   int // Tone duration per burst period
	BurstOffMs  int // Silence duration per burst period
}

// Validate reports whether the signal can be generated.
func (s Signal) Validate() error {
	if s.Amplitude < 0 || s.Amplitude > 1 {
		return fmt.Errorf("%w: amplitude %v outside [0,1]", ErrInvalidSignal, s.Amplitude)
	}
	if s.Kind == SignalSilence {
		return nil
	}
	if s.FrequencyHz <= 0 {
		return fmt.Errorf("%w: frequency must be positive", ErrInvalidSignal)
	}
	if s.Kind == SignalBursts && (s.BurstOnMs <= 0 || s.BurstOffMs < 0) {
		return fmt.Errorf("%w: burst on %dms off %dms", ErrInvalidSignal, s.BurstOnMs, s.BurstOffMs)
	}
	return nil
}

// Generator produces interleaved samples of a Signal. It is not safe for
// concurrent use.
type Generator[T audio.Sample] struct {
	signal       Signal
	samplingRate int
	channels     int
	scale        float64
	pos          int64
	burstOn      int64
	burstPeriod  int64
}

// NewGenerator creates a generator for signal at the given stream shape.
func NewGenerator[T audio.Sample](signal Signal, samplingRate, channels int) (*Generator[T], error) {
	if err := signal.Validate(); err != nil {
		return nil, err
	}
	if samplingRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrInvalidSignal, samplingRate, channels)
	}

	scale := float64(audio.KindOf[T]().FullScale())
	if audio.KindOf[T]() == audio.SampleShort {
		scale = math.MaxInt16
	}

	g := &Generator[T]{
		signal:       signal,
		samplingRate: samplingRate,
		channels:     channels,
		scale:        scale * signal.Amplitude,
	}
	if signal.Kind == SignalBursts {
		g.burstOn = int64(signal.BurstOnMs) * int64(samplingRate) / 1000
		g.burstPeriod = g.burstOn + int64(signal.BurstOffMs)*int64(samplingRate)/1000
	}
	return g, nil
}

// Fill writes len(buf)/channels sample frames into buf and advances the
// generator. A trailing partial frame in buf is zeroed.
func (g *Generator[T]) Fill(buf []T) {
	frames := len(buf) / g.channels
	for i := 0; i < frames; i++ {
		v := T(g.next())
		for c := 0; c < g.channels; c++ {
			buf[i*g.channels+c] = v
		}
	}
	clear(buf[frames*g.channels:])
}

// Position returns the number of sample frames generated so far.
func (g *Generator[T]) Position() int64 {
	return g.pos
}

func (g *Generator[T]) next() float64 {
	pos := g.pos
	g.pos++

	switch g.signal.Kind {
	case SignalTone:
		return g.tone(pos)
	case SignalBursts:
		if pos%g.burstPeriod < g.burstOn {
			return g.tone(pos)
		}
		return 0
	default:
		return 0
	}
}

func (g *Generator[T]) tone(pos int64) float64 {
	t := float64(pos) / float64(g.samplingRate)
	return g.scale * math.Sin(2*math.Pi*g.signal.FrequencyHz*t)
}
