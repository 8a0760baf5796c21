// Package codec provides compressed encoder sinks for toxvoice pipelines.
//
// [OpusEncoder] wraps libopus through layeh.com/gopus and implements the
// frame encoder contract for 16-bit pipelines:
//
//	enc, err := codec.NewOpusEncoder(codec.OpusConfig{
//	    SamplingRate: 48000,
//	    FrameSize:    960, // 20 ms
//	    Channels:     1,
//	    Bitrate:      32000,
//	}, sendPacket)
//
// [LoopbackDecoder] decodes produced packets with the pure Go pion/opus
// decoder so a running voice can verify its own output without a network
// peer.
package codec
