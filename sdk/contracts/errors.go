package contracts

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every component.
var (
	// ErrSetup is the parent of every bring-up failure: transport, soundfont,
	// socket or port. A setup error is fatal to the current run.
	ErrSetup = errors.New("setup failed")
	// ErrProtocol marks a malformed live command. The listener reports it and keeps going.
	ErrProtocol = errors.New("protocol error")
	// ErrSequenceLoad is returned when a sequence file cannot be parsed.
	ErrSequenceLoad = errors.New("sequence load failed")
	// ErrRuntimeTransport marks a listener transport failing mid-run.
	ErrRuntimeTransport = errors.New("transport failed")
	// ErrPortClosed is returned by SequencerPort.Receive once the port is closed.
	ErrPortClosed = errors.New("sequencer port closed")
	// ErrUnsupportedOS is returned when no sequencer port backend exists for the running OS.
	ErrUnsupportedOS = errors.New("unsupported operating system")
	// ErrUnsupportedFormat is returned for output formats the engine cannot produce.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// Setup failures. Each one also matches ErrSetup with errors.Is.
var (
	ErrTransportInit  = newSetupError("audio transport initialization failed")
	ErrTransportStart = newSetupError("audio transport start failed")
	ErrSoundFontLoad  = newSetupError("soundfont load failed")
	ErrNoSoundFont    = newSetupError("no soundfont found")
	ErrSocket         = newSetupError("socket setup failed")
	ErrPortOpen       = newSetupError("sequencer port open failed")
)

type setupError struct {
	msg string
}

func newSetupError(msg string) error {
	return &setupError{msg: msg}
}

func (e *setupError) Error() string { return e.msg }

func (e *setupError) Is(target error) bool {
	return target == ErrSetup
}

// ProtocolErrorf builds an error wrapping ErrProtocol.
func ProtocolErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}
