package synth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingSynth captures the calls the engine makes on the synthesizer.
type recordingSynth struct {
	calls []string
}

func (r *recordingSynth) NoteOn(channel, key, velocity int32) {
	r.calls = append(r.calls, fmt.Sprintf("noteOn %d %d %d", channel, key, velocity))
}

func (r *recordingSynth) NoteOff(channel, key int32) {
	r.calls = append(r.calls, fmt.Sprintf("noteOff %d %d", channel, key))
}

func (r *recordingSynth) ProcessMidiMessage(channel, command, data1, data2 int32) {
	r.calls = append(r.calls, fmt.Sprintf("midi %d %#x %d %d", channel, command, data1, data2))
}

func (r *recordingSynth) NoteOffAll(immediate bool) {
	r.calls = append(r.calls, fmt.Sprintf("noteOffAll %t", immediate))
}

func (r *recordingSynth) Render(left, right []float32) {
	for i := range left {
		left[i], right[i] = 0.5, -2
	}
}

func TestMeltyEngineTranslatesEvents(t *testing.T) {
	rec := &recordingSynth{}
	e := newMeltyEngine(rec, []string{"Piano"})

	e.NoteOn(1, 60, 100)
	e.NoteOff(1, 60)
	e.ControlChange(2, 7, 90)
	e.ProgramChange(3, 40, false)
	e.AllNotesOff()
	e.Close()

	assert.Equal(t, []string{
		"noteOn 1 60 100",
		"noteOff 1 60",
		"midi 2 0xb0 7 90",
		"midi 3 0xc0 40 0",
		"noteOffAll false",
		"noteOffAll true",
	}, rec.calls)
	assert.Equal(t, []string{"Piano"}, e.Presets())
}

func TestMeltyEnginePitchBendSplitsValue(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{0, "midi 0 0xe0 0 0"},
		{8192, "midi 0 0xe0 0 64"},
		{8191, "midi 0 0xe0 127 63"},
		{16383, "midi 0 0xe0 127 127"},
	}
	for _, tt := range tests {
		rec := &recordingSynth{}
		newMeltyEngine(rec, nil).PitchBend(0, tt.value)
		assert.Equal(t, []string{tt.want}, rec.calls, "value %d", tt.value)
	}
}

func TestMeltyEnginePercussionStaysOnChannelNine(t *testing.T) {
	rec := &recordingSynth{}
	newMeltyEngine(rec, nil).ProgramChange(9, 0, true)
	assert.Equal(t, []string{"midi 9 0xc0 0 0"}, rec.calls)
}

func TestMeltyEngineRenderInterleavesAndClamps(t *testing.T) {
	e := newMeltyEngine(&recordingSynth{}, nil)
	buf := make([]int16, 8)
	e.Render(buf, 4)
	for i := 0; i < 4; i++ {
		assert.Equal(t, int16(16383), buf[2*i])
		assert.Equal(t, int16(-32767), buf[2*i+1])
	}
}
