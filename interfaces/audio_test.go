package interfaces_test

import (
	"testing"

	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/opd-ai/toxvoice/interfaces"
	"github.com/stretchr/testify/assert"
)

func TestAudioStagesSatisfyInterfaces(t *testing.T) {
	var (
		_ interfaces.ILevelMeter    = (*audio.LevelMeter[int16])(nil)
		_ interfaces.ILevelMeter    = audio.LevelMeterDummy[float32]{}
		_ interfaces.IVoiceDetector = (*audio.VoiceDetector[float32])(nil)
		_ interfaces.IVoiceDetector = audio.VoiceDetectorDummy[int16]{}

		_ interfaces.IFrameEncoder[int16]   = (*audio.PCMEncoder[int16])(nil)
		_ interfaces.IFrameEncoder[float32] = (*audio.PCMEncoder[float32])(nil)
		_ interfaces.IFrameShape            = (*audio.PCMEncoder[int16])(nil)
	)
}

func TestBufferFactoryAlias(t *testing.T) {
	var f interfaces.BufferFactory[int16] = audio.MakeFactory[int16]{}
	assert.Len(t, f.New(4), 4)
}

func TestVoiceStatsZeroValue(t *testing.T) {
	var s interfaces.VoiceStats
	assert.Zero(t, s.FramesProcessed)
	assert.Zero(t, s.FramesEncoded+s.FramesSuppressed)
}
