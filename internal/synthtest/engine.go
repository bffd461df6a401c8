package synthtest

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Engine is a fake contracts.ToneEngine. It renders a constant sample value so
// tests can tell engine output from silence, and it panics if two calls ever
// overlap.
type Engine struct {
	SampleRate int
	Path       string
	Sample     int16
	Names      []string

	busy   atomic.Bool
	mu     sync.Mutex
	calls  []Call
	closed bool
}

func (e *Engine) enter() {
	if !e.busy.CompareAndSwap(false, true) {
		panic("synthtest: concurrent engine call")
	}
}

func (e *Engine) leave() { e.busy.Store(false) }

func (e *Engine) record(format string, args ...any) {
	e.mu.Lock()
	e.calls = append(e.calls, Call(fmt.Sprintf(format, args...)))
	e.mu.Unlock()
}

func (e *Engine) NoteOn(channel, key, velocity int) {
	e.enter()
	defer e.leave()
	e.record("noteOn(%d,%d,%d)", channel, key, velocity)
}

func (e *Engine) NoteOff(channel, key int) {
	e.enter()
	defer e.leave()
	e.record("noteOff(%d,%d)", channel, key)
}

func (e *Engine) ControlChange(channel, controller, value int) {
	e.enter()
	defer e.leave()
	e.record("cc(%d,%d,%d)", channel, controller, value)
}

func (e *Engine) ProgramChange(channel, program int, percussion bool) {
	e.enter()
	defer e.leave()
	e.record("pc(%d,%d,%t)", channel, program, percussion)
}

func (e *Engine) PitchBend(channel, value int) {
	e.enter()
	defer e.leave()
	e.record("pitch(%d,%d)", channel, value)
}

func (e *Engine) AllNotesOff() {
	e.enter()
	defer e.leave()
	e.record("allNotesOff()")
}

func (e *Engine) Render(buf []int16, frames int) {
	e.enter()
	defer e.leave()
	for i := 0; i < frames*2 && i < len(buf); i++ {
		buf[i] = e.Sample
	}
}

func (e *Engine) Presets() []string { return e.Names }

func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// ErrMissing is returned by Factory for paths it does not know.
var ErrMissing = errors.New("synthtest: no such soundfont")

// Factory builds fake engines for the paths in Known and records every engine it creates.
type Factory struct {
	Known   map[string][]string
	mu      sync.Mutex
	Created []*Engine
}

// New implements contracts.EngineFactory.
func (f *Factory) New(path string, sampleRate int) (contracts.ToneEngine, error) {
	names, ok := f.Known[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissing, path)
	}
	e := &Engine{SampleRate: sampleRate, Path: path, Sample: 1000, Names: names}
	f.mu.Lock()
	f.Created = append(f.Created, e)
	f.mu.Unlock()
	return e, nil
}

// Last returns the most recently created engine.
func (f *Factory) Last() *Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Created) == 0 {
		return nil
	}
	return f.Created[len(f.Created)-1]
}

// Len returns how many engines were created.
func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Created)
}
