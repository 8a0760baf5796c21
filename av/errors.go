package av

import "errors"

// Sentinel errors for av package operations.
// These errors enable reliable error classification using errors.Is().

// Construction errors.
var (
	// ErrEncoderMismatch indicates an encoder whose sample kind or frame shape disagrees with the stream.
	ErrEncoderMismatch = errors.New("encoder does not match stream configuration")

	// ErrInvalidOption indicates an option that cannot apply to this voice.
	ErrInvalidOption = errors.New("invalid voice option")
)

// Source binding errors.
var (
	// ErrSourceInvalid indicates a source that reported an error when it was bound.
	ErrSourceInvalid = errors.New("audio source invalid")

	// ErrSourceMismatch indicates a source whose rate or channel count disagrees with the stream.
	ErrSourceMismatch = errors.New("audio source does not match stream configuration")

	// ErrUnsupportedSource indicates a source implementing neither the push nor the pull contract for the voice's sample type.
	ErrUnsupportedSource = errors.New("unsupported audio source")

	// ErrSourceAlreadyBound indicates a second BindSource call on the same voice.
	ErrSourceAlreadyBound = errors.New("audio source already bound")

	// ErrNoPullSource indicates Service was called without a bound pull source.
	ErrNoPullSource = errors.New("no pull source bound")
)

// Lifecycle errors.
var (
	// ErrPipelineFailed wraps the stage or encoder error that stopped a voice.
	ErrPipelineFailed = errors.New("voice pipeline failed")

	// ErrVoiceClosed indicates an operation on a closed voice.
	ErrVoiceClosed = errors.New("voice closed")

	// ErrAlreadyRunning is returned when trying to start an already running service.
	ErrAlreadyRunning = errors.New("service is already running")
)
