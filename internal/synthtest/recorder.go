// Package synthtest provides recording fakes for the synthesizer contracts.
package synthtest

import (
	"fmt"
	"sync"
)

// Call is one recorded engine call, e.g. "noteOn(0,60,1.00)".
type Call string

// Recorder implements contracts.Synth and contracts.Renderer and records every call.
type Recorder struct {
	mu      sync.Mutex
	calls   []Call
	renders int
}

func (r *Recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, Call(fmt.Sprintf(format, args...)))
	r.mu.Unlock()
}

func (r *Recorder) NoteOn(channel, key int, velocity float32) {
	r.add("noteOn(%d,%d,%.2f)", channel, key, velocity)
}

func (r *Recorder) NoteOff(channel, key int) {
	r.add("noteOff(%d,%d)", channel, key)
}

func (r *Recorder) ControlChange(channel, controller, value int) {
	r.add("cc(%d,%d,%d)", channel, controller, value)
}

func (r *Recorder) ProgramChange(channel, program int) {
	r.add("pc(%d,%d)", channel, program)
}

func (r *Recorder) PitchBend(channel, value int) {
	r.add("pitch(%d,%d)", channel, value)
}

func (r *Recorder) AllNotesOff() {
	r.add("allNotesOff()")
}

// Render zero-fills buf and counts the call without recording it.
func (r *Recorder) Render(buf []int16, frames int) {
	clear(buf)
	r.mu.Lock()
	r.renders++
	r.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Renders returns how many times Render was called.
func (r *Recorder) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.renders = 0
	r.mu.Unlock()
}
