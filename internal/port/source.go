package port

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

var errAlreadyStarted = errors.New("port source already started")

// Source runs the receive loop for a sequencer port. It translates note,
// controller, program and pitch bend events into synthesizer calls and drops
// everything else.
type Source struct {
	port   contracts.SequencerPort
	synth  contracts.Synth
	logger contracts.Logger
	filter *contracts.PortEventFilter
	poll   time.Duration

	mu       sync.Mutex
	started  bool
	err      error
	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	received atomic.Uint64
	ignored  atomic.Uint64
}

// NewSource returns a source reading from p. The source owns p and closes
// it when the loop exits.
func NewSource(p contracts.SequencerPort, synth contracts.Synth, options *contracts.Options) *Source {
	poll := options.PollInterval
	if poll <= 0 {
		poll = contracts.DefaultPollInterval
	}
	return &Source{
		port:   p,
		synth:  synth,
		logger: options.Logger,
		filter: options.PortEventFilter,
		poll:   poll,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// PortName returns the human readable port identifier.
func (s *Source) PortName() string { return s.port.Name() }

// Start launches the receive loop. onQuit runs exactly once after the loop
// exits, before Done is closed; it must not call Stop.
func (s *Source) Start(onQuit func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errAlreadyStarted
	}
	s.started = true
	s.running.Store(true)
	s.logger.Info("Sequencer port listening", s.logger.Field().String("port", s.port.Name()))

	go func() {
		err := s.loop()
		if cerr := s.port.Close(); cerr != nil {
			s.logger.Warn("Failed to close sequencer port", s.logger.Field().Error("error", cerr))
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.running.Store(false)
		if onQuit != nil {
			onQuit()
		}
		close(s.done)
	}()
	return nil
}

// Stop asks the loop to exit and waits for it. Safe to call repeatedly and
// concurrently.
func (s *Source) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	} else if err := s.port.Close(); err != nil {
		s.logger.Warn("Failed to close sequencer port", s.logger.Field().Error("error", err))
	}
}

func (s *Source) Running() bool         { return s.running.Load() }
func (s *Source) Done() <-chan struct{} { return s.done }

// Err returns the transport error that ended the loop, if any.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Received returns the number of events passed to the synthesizer.
func (s *Source) Received() uint64 { return s.received.Load() }

// Ignored returns the number of events filtered out or of unsupported kind.
func (s *Source) Ignored() uint64 { return s.ignored.Load() }

func (s *Source) loop() error {
	for {
		select {
		case <-s.stop:
			return nil
		default:
		}

		ev, ok, err := s.port.Receive(s.poll)
		if err != nil {
			if errors.Is(err, contracts.ErrPortClosed) {
				s.logger.Info("Sequencer port closed")
				return nil
			}
			err = fmt.Errorf("%w: %v", contracts.ErrRuntimeTransport, err)
			s.logger.Error("Sequencer port failed", s.logger.Field().Error("error", err))
			return err
		}
		if !ok {
			continue
		}
		if !s.filter.Allows(ev.Kind) || !s.dispatch(ev) {
			s.ignored.Add(1)
			continue
		}
		s.received.Add(1)
	}
}

func (s *Source) dispatch(ev contracts.PortEvent) bool {
	switch ev.Kind {
	case contracts.EventNoteOn:
		if ev.Value > 0 {
			s.synth.NoteOn(ev.Channel, ev.Param, float32(ev.Value)/127)
		} else {
			s.synth.NoteOff(ev.Channel, ev.Param)
		}
	case contracts.EventNoteOff:
		s.synth.NoteOff(ev.Channel, ev.Param)
	case contracts.EventControlChange:
		s.synth.ControlChange(ev.Channel, ev.Param, ev.Value)
	case contracts.EventControl14:
		s.synth.ControlChange(ev.Channel, ev.Param, contracts.Reduce14(ev.Value))
	case contracts.EventProgramChange:
		s.synth.ProgramChange(ev.Channel, ev.Value)
	case contracts.EventPitchBend:
		s.synth.PitchBend(ev.Channel, ev.Value+contracts.PitchBendCenter)
	default:
		return false
	}
	return true
}
