package port

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// DefaultQueueSize is the number of undelivered events a Queue holds before
// dropping.
const DefaultQueueSize = 256

// ErrIncompleteMIDIPacket is reported when a packet ends inside a message.
var ErrIncompleteMIDIPacket = errors.New("incomplete MIDI packet")

// Queue adapts a callback driven backend to contracts.SequencerPort. The
// backend pushes raw bytes from its own thread; Receive hands decoded events
// to the listener loop. Pushing never blocks: events beyond the queue size
// are dropped and counted.
type Queue struct {
	name    string
	logger  contracts.Logger
	events  chan contracts.PortEvent
	errs    chan error
	closed  chan struct{}
	once    sync.Once
	onClose func() error
	dropped atomic.Uint64
}

// NewQueue returns an open queue. onClose releases the backend and runs once.
func NewQueue(name string, size int, logger contracts.Logger, onClose func() error) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		name:    name,
		logger:  logger,
		events:  make(chan contracts.PortEvent, size),
		errs:    make(chan error, 1),
		closed:  make(chan struct{}),
		onClose: onClose,
	}
}

// Push decodes a raw packet and queues its channel messages.
func (q *Queue) Push(data []byte) {
	msgs, incomplete := Split(data)
	if incomplete {
		q.logger.Debug(ErrIncompleteMIDIPacket.Error(), q.logger.Field().Int("bytes", len(data)))
	}
	for _, raw := range msgs {
		if ev, ok := Decode(raw); ok {
			q.PushEvent(ev)
		}
	}
}

// PushEvent queues an already decoded event.
func (q *Queue) PushEvent(ev contracts.PortEvent) {
	select {
	case q.events <- ev:
	default:
		if q.dropped.Add(1) == 1 {
			q.logger.Warn("Event buffer full; dropping MIDI event")
		}
	}
}

// Fail reports a backend failure. The next Receive returns it.
func (q *Queue) Fail(err error) {
	select {
	case q.errs <- err:
	default:
	}
}

// Receive waits at most timeout for the next event.
func (q *Queue) Receive(timeout time.Duration) (contracts.PortEvent, bool, error) {
	select {
	case ev := <-q.events:
		return ev, true, nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-q.events:
		return ev, true, nil
	case err := <-q.errs:
		return contracts.PortEvent{}, false, err
	case <-q.closed:
		return contracts.PortEvent{}, false, contracts.ErrPortClosed
	case <-timer.C:
		return contracts.PortEvent{}, false, nil
	}
}

// Name returns the port name given at creation.
func (q *Queue) Name() string { return q.name }

// Dropped returns the number of events lost to a full queue.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Close releases the backend. Later calls return nil.
func (q *Queue) Close() error {
	var err error
	q.once.Do(func() {
		close(q.closed)
		if q.onClose != nil {
			err = q.onClose()
		}
	})
	return err
}
