// Package interfaces defines the boundary contracts between toxvoice
// pipelines and the components around them: audio sources, encoder sinks,
// and the observable parts of a voice.
//
// # Sources
//
// A source is described by [IAudioDesc] and comes in two flavours. An
// [IAudioPusher] owns a capture thread and delivers bursts of samples
// through a callback:
//
//	pusher.SetCallback(func(samples []int16) {
//	    voice.PushSamples(samples)
//	}, nil)
//
// An [IAudioReader] is polled by the consumer:
//
//	n, err := reader.Read(buf)
//
// A source whose Error method returns a non-empty message is considered
// failed and stops delivering.
//
// # Encoders
//
// [IFrameEncoder] receives exactly one processed frame per Input call. The
// sample type of an encoder is checked once, when a pipeline is built, via
// [IEncoder.SampleKind]; encoders that care about the frame shape also
// implement [IFrameShape].
//
// # Voices
//
// [ILocalVoiceAudio] is the sample-type independent handle returned by the
// factory package. [ILevelMeter] and [IVoiceDetector] expose the level and
// detector state of a voice and are safe to use from any goroutine.
package interfaces
