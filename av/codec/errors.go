package codec

import "errors"

// ErrInvalidOpusConfig indicates an Opus rate, frame size, channel count or
// bitrate libopus cannot encode.
var ErrInvalidOpusConfig = errors.New("invalid opus configuration")

// ErrEmptyPacket indicates a zero-length packet passed to the loopback decoder.
var ErrEmptyPacket = errors.New("empty opus packet")
