package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// PacedTransport consumes queued buffers on its own goroutine and hands them
// to a sink. With a zero pace it runs as fast as buffers arrive (offline
// rendering); otherwise it waits one buffer duration per buffer, standing in
// for a hardware clock.
type PacedTransport struct {
	bufferQueue

	sink     func([]int16) error
	realTime bool

	mu      sync.Mutex
	pace    time.Duration
	stop    chan struct{}
	done    chan struct{}
	errMu   sync.Mutex
	err     error
	written atomic.Uint64
	starved atomic.Uint64
}

// NewClockTransport returns a transport that discards audio at real-time pace.
func NewClockTransport() *PacedTransport {
	return &PacedTransport{sink: func([]int16) error { return nil }, realTime: true}
}

// NewSinkTransport returns a transport that passes every buffer to sink as
// soon as it is queued.
func NewSinkTransport(sink func([]int16) error) *PacedTransport {
	return &PacedTransport{sink: sink}
}

func (t *PacedTransport) Open(format contracts.AudioFormat, bufferFrames, bufferCount int, onComplete func()) error {
	if format.SampleRate <= 0 || bufferFrames <= 0 || bufferCount <= 0 {
		return errors.New("invalid transport configuration")
	}
	t.open(bufferCount, onComplete)
	t.mu.Lock()
	if t.realTime {
		t.pace = time.Duration(bufferFrames) * time.Second / time.Duration(format.SampleRate)
	}
	t.mu.Unlock()
	return nil
}

func (t *PacedTransport) Enqueue(buf []int16) error {
	return t.enqueue(buf)
}

func (t *PacedTransport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ch() == nil {
		return errors.New("transport not open")
	}
	if t.stop != nil {
		return nil
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(t.stop, t.done, t.pace)
	return nil
}

func (t *PacedTransport) Stop() error {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return t.Err()
}

func (t *PacedTransport) Clear() {
	t.drain()
}

func (t *PacedTransport) Close() error {
	return t.Stop()
}

// Err returns the first sink error, if any.
func (t *PacedTransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

// Written returns the number of buffers delivered to the sink.
func (t *PacedTransport) Written() uint64 { return t.written.Load() }

// Underruns counts ticks at which no buffer was queued.
func (t *PacedTransport) Underruns() uint64 { return t.starved.Load() }

func (t *PacedTransport) loop(stop, done chan struct{}, pace time.Duration) {
	defer close(done)

	var tick <-chan time.Time
	if pace > 0 {
		ticker := time.NewTicker(pace)
		defer ticker.Stop()
		tick = ticker.C
	}
	queue := t.ch()
	for {
		if tick != nil {
			select {
			case <-stop:
				return
			case <-tick:
			}
			select {
			case buf := <-queue:
				t.consume(buf)
			default:
				t.starved.Add(1)
			}
			continue
		}
		select {
		case <-stop:
			return
		case buf := <-queue:
			t.consume(buf)
		}
	}
}

func (t *PacedTransport) consume(buf []int16) {
	if err := t.sink(buf); err != nil {
		t.errMu.Lock()
		if t.err == nil {
			t.err = err
		}
		t.errMu.Unlock()
	}
	t.written.Add(1)
	t.complete()
}
