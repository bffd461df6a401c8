package synth

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/leandrodaf/midisynth/sdk/contracts"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

const (
	midiControlChange = 0xB0
	midiProgramChange = 0xC0
	midiPitchBend     = 0xE0
)

// synthesizer is the subset of meltysynth.Synthesizer the engine drives.
type synthesizer interface {
	NoteOn(channel, key, velocity int32)
	NoteOff(channel, key int32)
	ProcessMidiMessage(channel, command, data1, data2 int32)
	NoteOffAll(immediate bool)
	Render(left, right []float32)
}

// meltyEngine adapts a meltysynth synthesizer to contracts.ToneEngine.
type meltyEngine struct {
	synth   synthesizer
	presets []string
	left    []float32
	right   []float32
}

// NewMeltyEngine loads an SF2 or SF3 soundfont and builds a synthesizer
// rendering at sampleRate.
func NewMeltyEngine(path string, sampleRate int) (contracts.ToneEngine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err = expandSF3(data, decodeVorbis)
	if err != nil {
		return nil, fmt.Errorf("expand sf3: %w", err)
	}

	soundFont, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse soundfont: %w", err)
	}
	settings := meltysynth.NewSynthesizerSettings(int32(sampleRate))
	s, err := meltysynth.NewSynthesizer(soundFont, settings)
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}

	presets := make([]string, 0, len(soundFont.Presets))
	for _, p := range soundFont.Presets {
		presets = append(presets, p.Name)
	}
	return newMeltyEngine(s, presets), nil
}

func newMeltyEngine(s synthesizer, presets []string) *meltyEngine {
	return &meltyEngine{
		synth:   s,
		presets: presets,
		left:    make([]float32, contracts.DefaultBufferFrames),
		right:   make([]float32, contracts.DefaultBufferFrames),
	}
}

func (e *meltyEngine) NoteOn(channel, key, velocity int) {
	e.synth.NoteOn(int32(channel), int32(key), int32(velocity))
}

func (e *meltyEngine) NoteOff(channel, key int) {
	e.synth.NoteOff(int32(channel), int32(key))
}

func (e *meltyEngine) ControlChange(channel, controller, value int) {
	e.synth.ProcessMidiMessage(int32(channel), midiControlChange, int32(controller), int32(value))
}

// ProgramChange relies on meltysynth mapping channel 9 to the drum bank.
func (e *meltyEngine) ProgramChange(channel, program int, _ bool) {
	e.synth.ProcessMidiMessage(int32(channel), midiProgramChange, int32(program), 0)
}

func (e *meltyEngine) PitchBend(channel, value int) {
	e.synth.ProcessMidiMessage(int32(channel), midiPitchBend, int32(value&0x7F), int32(value>>7))
}

func (e *meltyEngine) AllNotesOff() {
	e.synth.NoteOffAll(false)
}

func (e *meltyEngine) Render(buf []int16, frames int) {
	if cap(e.left) < frames {
		e.left = make([]float32, frames)
		e.right = make([]float32, frames)
	}
	left, right := e.left[:frames], e.right[:frames]
	e.synth.Render(left, right)
	FloatToInt16Stereo(buf, left, right)
}

func (e *meltyEngine) Presets() []string {
	return e.presets
}

func (e *meltyEngine) Close() {
	e.synth.NoteOffAll(true)
}

// FloatToInt16Stereo interleaves two float channels into dst, clamping to [-1, 1].
func FloatToInt16Stereo(dst []int16, left, right []float32) {
	for i := range left {
		if 2*i+1 >= len(dst) {
			return
		}
		dst[2*i] = toInt16(left[i])
		dst[2*i+1] = toInt16(right[i])
	}
}

func toInt16(v float32) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * math.MaxInt16)
}
