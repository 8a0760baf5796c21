// Package factory creates outgoing voices and their capture sources from a
// sample-kind tagged stream configuration.
//
// Voices are generic over the sample type, but configuration is data. The
// factory bridges the two: it picks the float32 or int16 instantiation from
// StreamConfig.SampleKind, checks once that the supplied encoder accepts that
// sample type, and hands back the type-independent
// interfaces.ILocalVoiceAudio.
//
// # Configuration
//
// The default stream configuration can be adjusted through environment
// variables:
//   - TOXVOICE_SAMPLING_RATE: encoder and capture rate in Hz
//   - TOXVOICE_SOURCE_SAMPLING_RATE: capture rate in Hz, when it differs
//   - TOXVOICE_FRAME_SIZE: samples per channel in one encoder frame
//   - TOXVOICE_CHANNELS: 1 or 2
//   - TOXVOICE_SAMPLE_KIND: "float" or "short"
//
// Invalid values are logged and ignored.
//
// # Usage
//
//	f := factory.NewVoiceFactory()
//	voice, err := f.CreateLocalVoice("mic", nil, encoder, av.WithMetrics(m))
//	if err != nil {
//	    return err
//	}
//	src, err := f.CreateSimulatedSource(nil, factory.SourcePush, signal, 0)
//	if err != nil {
//	    return err
//	}
//	err = voice.BindSource(src)
//
// # Thread Safety
//
// VoiceFactory is safe for concurrent use.
package factory
