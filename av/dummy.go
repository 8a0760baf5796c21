package av

import (
	"sync/atomic"

	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/opd-ai/toxvoice/interfaces"
)

// LocalVoiceAudioDummy is a voice that accepts a source but processes
// nothing. Its level meter reads 0, its detector never fires and calibration
// requests are accepted and ignored.
type LocalVoiceAudioDummy struct {
	name   string
	config audio.StreamConfig
	source atomic.Pointer[boundSource]
	closed atomic.Bool
}

// NewLocalVoiceAudioDummy creates a dummy voice.
func NewLocalVoiceAudioDummy(name string, config audio.StreamConfig) *LocalVoiceAudioDummy {
	return &LocalVoiceAudioDummy{name: name, config: config}
}

func (d *LocalVoiceAudioDummy) Name() string                     { return d.name }
func (d *LocalVoiceAudioDummy) StreamConfig() audio.StreamConfig { return d.config }
func (d *LocalVoiceAudioDummy) Service() error                   { return nil }
func (d *LocalVoiceAudioDummy) VoiceDetectorCalibrate(int) error { return nil }
func (d *LocalVoiceAudioDummy) VoiceDetectorCalibrating() bool   { return false }
func (d *LocalVoiceAudioDummy) Stats() interfaces.VoiceStats     { return interfaces.VoiceStats{} }
func (d *LocalVoiceAudioDummy) Err() error                       { return nil }

// VoiceDetector returns a detector that never detects.
func (d *LocalVoiceAudioDummy) VoiceDetector() interfaces.IVoiceDetector {
	return audio.VoiceDetectorDummy[int16]{}
}

// LevelMeter returns a meter that always reads 0.
func (d *LocalVoiceAudioDummy) LevelMeter() interfaces.ILevelMeter {
	return audio.LevelMeterDummy[int16]{}
}

// BindSource remembers source so Close can release it.
func (d *LocalVoiceAudioDummy) BindSource(source interfaces.IAudioDesc) error {
	if d.closed.Load() {
		return ErrVoiceClosed
	}
	if source == nil {
		return ErrSourceInvalid
	}
	if !d.source.CompareAndSwap(nil, &boundSource{desc: source}) {
		return ErrSourceAlreadyBound
	}
	return nil
}

// SourceError returns the bound source's error message, or "".
func (d *LocalVoiceAudioDummy) SourceError() string {
	if bs := d.source.Load(); bs != nil {
		return bs.desc.Error()
	}
	return ""
}

// Close closes the bound source.
func (d *LocalVoiceAudioDummy) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	if bs := d.source.Load(); bs != nil {
		return bs.desc.Close()
	}
	return nil
}

var (
	_ interfaces.ILocalVoiceAudio = (*LocalVoiceAudioDummy)(nil)
	_ interfaces.ILocalVoiceAudio = (*LocalVoiceAudio[float32])(nil)
	_ interfaces.ILocalVoiceAudio = (*LocalVoiceAudio[int16])(nil)
)
