package contracts

import "time"

// AudioFormat describes the PCM stream sent to an audio transport. Samples are
// always signed 16-bit little endian.
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// AudioTransport is a platform audio output driven by buffer queues.
// Submitted buffers are played in order; the completion callback is invoked
// from the transport's own context each time one buffer is fully consumed.
type AudioTransport interface {
	// Open configures the transport for bufferCount buffers of bufferFrames frames.
	Open(format AudioFormat, bufferFrames, bufferCount int, onComplete func()) error
	// Enqueue submits a buffer. The transport reads it until the matching
	// completion callback fires and must not block.
	Enqueue(buf []int16) error
	Play() error
	Stop() error
	// Clear drops every queued buffer.
	Clear()
	Close() error
}

// SequencerPort is a platform endpoint receiving MIDI events from other applications.
type SequencerPort interface {
	// Receive waits at most timeout for the next event. ok is false when the
	// wait timed out. Once the port is closed Receive returns ErrPortClosed.
	Receive(timeout time.Duration) (ev PortEvent, ok bool, err error)
	// Name is a human readable identifier, e.g. "128:0".
	Name() string
	Close() error
}

// PortInfo describes a MIDI source that a port backend can connect to.
type PortInfo struct {
	Name         string // Device name.
	Manufacturer string // Device manufacturer.
	EntityName   string // Name of the entity to which the device belongs.
}

// PortLister is implemented by port backends that can enumerate sources.
type PortLister interface {
	ListPorts() ([]PortInfo, error)
}

// Source is a live event source running on its own goroutine.
type Source interface {
	// Start launches the listener loop. onQuit is invoked exactly once when the loop exits.
	Start(onQuit func()) error
	// Stop asks the loop to exit and waits for it. Safe to call repeatedly.
	Stop()
	Running() bool
	Done() <-chan struct{}
}
