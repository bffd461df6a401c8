// Package sequence plays time-ordered MIDI events in step with rendered audio.
package sequence

import (
	"sync"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// State is the playback state of a Player.
type State int

const (
	Idle State = iota
	Loaded
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	}
	return "idle"
}

// Player dispatches a loaded event list to a synthesizer. Its clock does not
// follow the wall clock: every Process call advances it by the duration of
// the frames about to be rendered, so timing follows the audio actually
// produced.
type Player struct {
	synth  contracts.Synth
	logger contracts.Logger

	mu         sync.Mutex
	msPerFrame float64
	events     []contracts.TimedEvent
	cursor     int
	clock      float64
	state      State
	done       chan struct{}
	doneClosed bool
}

// NewPlayer returns an idle player dispatching to synth. options.SampleRate
// sets the frame duration.
func NewPlayer(synth contracts.Synth, options *contracts.Options) *Player {
	rate := options.SampleRate
	if rate <= 0 {
		rate = contracts.DefaultSampleRate
	}
	return &Player{
		synth:      synth,
		logger:     options.Logger,
		msPerFrame: 1000 / float64(rate),
		done:       make(chan struct{}),
	}
}

// Load reads a MIDI file and replaces the current sequence. On failure
// playback stops and the player is left with no sequence.
func (p *Player) Load(path string) error {
	events, err := ReadSMF(path)
	if err != nil {
		p.logger.Error("Failed to load MIDI file", p.logger.Field().String("path", path), p.logger.Field().Error("error", err))
		p.mu.Lock()
		p.stop()
		p.events = nil
		p.rewind()
		p.mu.Unlock()
		return err
	}
	p.LoadEvents(events)
	p.logger.Info("MIDI file loaded",
		p.logger.Field().String("path", path),
		p.logger.Field().Int("events", len(events)),
		p.logger.Field().Float64("durationMs", p.Duration()))
	return nil
}

// LoadEvents replaces the current sequence with events, which must be sorted
// by time. The cursor and clock are reset.
func (p *Player) LoadEvents(events []contracts.TimedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = events
	p.rewind()
}

// Play starts or resumes dispatching. It does nothing without a sequence or
// once the sequence has finished.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Loaded {
		p.state = Playing
	}
}

// Stop pauses playback at the current position and silences the synthesizer.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()
}

// Reset stops playback and rewinds to the start of the sequence.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()
	p.rewind()
}

// Process advances the clock by frames and dispatches every event due up to
// and including the new clock value. It runs on the audio callback.
func (p *Player) Process(frames int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Playing {
		return
	}

	target := p.clock + float64(frames)*p.msPerFrame
	for p.cursor < len(p.events) && p.events[p.cursor].Time <= target {
		p.dispatch(p.events[p.cursor])
		p.cursor++
	}
	p.clock = target

	if p.cursor >= len(p.events) {
		p.state = Finished
		p.closeDone()
	}
}

// State returns the playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) Playing() bool  { return p.State() == Playing }
func (p *Player) Finished() bool { return p.State() == Finished }

// Clock returns the playback position in milliseconds.
func (p *Player) Clock() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clock
}

// Position returns the index of the next event to dispatch.
func (p *Player) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Duration returns the time of the last event in milliseconds.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return 0
	}
	return p.events[len(p.events)-1].Time
}

// Done is closed when the current sequence finishes. Load and Reset replace it.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Player) dispatch(ev contracts.TimedEvent) {
	switch ev.Kind {
	case contracts.EventNoteOn:
		if ev.Value > 0 {
			p.synth.NoteOn(ev.Channel, ev.Key, float32(ev.Value)/127)
		} else {
			p.synth.NoteOff(ev.Channel, ev.Key)
		}
	case contracts.EventNoteOff:
		p.synth.NoteOff(ev.Channel, ev.Key)
	case contracts.EventControlChange:
		p.synth.ControlChange(ev.Channel, ev.Key, ev.Value)
	case contracts.EventControl14:
		p.synth.ControlChange(ev.Channel, ev.Key, contracts.Reduce14(ev.Value))
	case contracts.EventProgramChange:
		p.synth.ProgramChange(ev.Channel, ev.Value)
	case contracts.EventPitchBend:
		p.synth.PitchBend(ev.Channel, ev.Bend)
	}
}

func (p *Player) stop() {
	if p.state == Playing {
		p.state = Loaded
	}
	p.synth.AllNotesOff()
}

func (p *Player) rewind() {
	p.cursor = 0
	p.clock = 0
	if p.events == nil {
		p.state = Idle
	} else {
		p.state = Loaded
	}
	if p.doneClosed {
		p.done = make(chan struct{})
		p.doneClosed = false
	}
}

func (p *Player) closeDone() {
	if !p.doneClosed {
		close(p.done)
		p.doneClosed = true
	}
}
