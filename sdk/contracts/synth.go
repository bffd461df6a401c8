package contracts

// ToneEngine is the opaque synthesis backend. It is never safe for concurrent
// use; every call is serialized by the synthesizer facade.
type ToneEngine interface {
	NoteOn(channel, key, velocity int)
	NoteOff(channel, key int)
	ControlChange(channel, controller, value int)
	// ProgramChange selects a preset. percussion is true when the channel is
	// the conventional drum channel and a drum-kit bank should be used.
	ProgramChange(channel, program int, percussion bool)
	// PitchBend takes the raw 14-bit wheel value, centre 8192.
	PitchBend(channel, value int)
	AllNotesOff()
	// Render writes frames of interleaved stereo 16-bit samples into buf.
	Render(buf []int16, frames int)
	Presets() []string
	Close()
}

// EngineFactory creates a ToneEngine for the given soundfont and sample rate.
type EngineFactory func(soundFontPath string, sampleRate int) (ToneEngine, error)

// Synth is the set of engine calls an event source may make. The synthesizer
// facade implements it.
type Synth interface {
	NoteOn(channel, key int, velocity float32)
	NoteOff(channel, key int)
	ControlChange(channel, controller, value int)
	ProgramChange(channel, program int)
	PitchBend(channel, value int)
	AllNotesOff()
}

// Renderer produces audio samples.
type Renderer interface {
	Render(buf []int16, frames int)
}

const (
	// PercussionChannel is the zero-based General MIDI drum channel.
	PercussionChannel = 9
	// PitchBendCenter is the neutral 14-bit pitch wheel value.
	PitchBendCenter = 8192
	// PitchBendMax is the largest 14-bit pitch wheel value.
	PitchBendMax = 16383
)

// Reduce14 reduces a 14-bit controller value to 7 bits by dropping the low
// bits. It is the only 14-bit to 7-bit policy used in the module.
func Reduce14(value int) int {
	if value < 0 {
		value = 0
	}
	if value > PitchBendMax {
		value = PitchBendMax
	}
	return value >> 7
}
