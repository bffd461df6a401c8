package audio

import (
	"errors"
	"sync"
)

// errQueueFull is returned when more buffers are submitted than were declared at Open.
var errQueueFull = errors.New("audio buffer queue full")

// bufferQueue is the submit side shared by the transports: a bounded FIFO of
// buffers plus the completion callback. Enqueue never blocks.
type bufferQueue struct {
	mu         sync.Mutex
	queue      chan []int16
	onComplete func()
}

func (q *bufferQueue) open(count int, onComplete func()) {
	q.mu.Lock()
	q.queue = make(chan []int16, count)
	q.onComplete = onComplete
	q.mu.Unlock()
}

func (q *bufferQueue) ch() chan []int16 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queue
}

func (q *bufferQueue) enqueue(buf []int16) error {
	ch := q.ch()
	if ch == nil {
		return errors.New("audio transport not open")
	}
	select {
	case ch <- buf:
		return nil
	default:
		return errQueueFull
	}
}

// tryNext returns the next queued buffer without waiting.
func (q *bufferQueue) tryNext() ([]int16, bool) {
	ch := q.ch()
	if ch == nil {
		return nil, false
	}
	select {
	case buf := <-ch:
		return buf, true
	default:
		return nil, false
	}
}

func (q *bufferQueue) drain() {
	for {
		if _, ok := q.tryNext(); !ok {
			return
		}
	}
}

func (q *bufferQueue) complete() {
	q.mu.Lock()
	cb := q.onComplete
	q.mu.Unlock()
	if cb != nil {
		cb()
	}
}
