package command

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

var errAlreadyStarted = errors.New("listener already started")

// lineReader yields protocol lines with a bounded wait.
type lineReader interface {
	// next waits at most timeout for a complete line. ok is false when the
	// wait timed out. io.EOF ends the stream.
	next(timeout time.Duration) (line string, ok bool, err error)
	close() error
}

// listener is the loop lifecycle shared by the command sources: a stop
// channel observed at every poll boundary, a done channel closed when the
// loop returns and an onQuit callback run exactly once before that.
type listener struct {
	synth  contracts.Synth
	logger contracts.Logger
	poll   time.Duration

	mu       sync.Mutex
	started  bool
	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error
	handled  atomic.Uint64
	rejected atomic.Uint64
}

func (l *listener) init(synth contracts.Synth, options *contracts.Options) {
	l.synth = synth
	l.logger = options.Logger
	l.poll = options.PollInterval
	if l.poll <= 0 {
		l.poll = contracts.DefaultPollInterval
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
}

// start runs loop on a new goroutine. onQuit must not call Stop.
func (l *listener) start(onQuit func(), loop func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return errAlreadyStarted
	}
	l.startLocked(onQuit, loop)
	return nil
}

// startLocked is start for callers that hold l.mu and have checked started.
func (l *listener) startLocked(onQuit func(), loop func() error) {
	l.started = true
	l.running.Store(true)

	go func() {
		err := loop()
		if err != nil {
			err = fmt.Errorf("%w: %v", contracts.ErrRuntimeTransport, err)
			l.logger.Error("Command listener failed", l.logger.Field().Error("error", err))
		}
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		l.running.Store(false)
		if onQuit != nil {
			onQuit()
		}
		close(l.done)
	}()
}

// Stop asks the loop to exit and waits until it has. It may be called
// repeatedly and from several goroutines.
func (l *listener) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if started {
		<-l.done
	}
}

// Running reports whether the loop is active.
func (l *listener) Running() bool { return l.running.Load() }

// Done is closed after the loop has exited and onQuit has returned.
func (l *listener) Done() <-chan struct{} { return l.done }

// Err returns the transport error that ended the loop, if any.
func (l *listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Handled returns the number of commands executed.
func (l *listener) Handled() uint64 { return l.handled.Load() }

// Rejected returns the number of malformed lines.
func (l *listener) Rejected() uint64 { return l.rejected.Load() }

func (l *listener) stopping() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}

// serveLines runs the protocol over lines until stop, EOF or quit. quit
// reports whether a quit command was received.
func (l *listener) serveLines(lines lineReader) (quit bool, err error) {
	for !l.stopping() {
		line, ok, err := lines.next(l.poll)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		if ok && !l.handle(line) {
			return true, nil
		}
	}
	return false, nil
}

// handle executes one line and returns false on quit.
func (l *listener) handle(line string) bool {
	cmd, err := Parse(line)
	if err != nil {
		l.rejected.Add(1)
		l.logger.Warn("Invalid command", l.logger.Field().String("line", line), l.logger.Field().Error("error", err))
		return true
	}
	switch cmd.Verb {
	case VerbNone:
		return true
	case VerbQuit:
		return false
	case VerbSleep:
		l.sleep(cmd.Sleep)
	default:
		Execute(cmd, l.synth)
	}
	l.handled.Add(1)
	return true
}

// sleep pauses the listener goroutine only. Stop interrupts it.
func (l *listener) sleep(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-l.stop:
	case <-timer.C:
	}
}
