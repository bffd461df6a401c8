// Package synth serializes every tone engine call behind a single lock.
package synth

import (
	"fmt"
	"sync"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Synthesizer is the thread-safe facade over a ToneEngine. Every method holds
// the same mutex for its full duration, so engine mutations and renders are
// totally ordered. The zero engine state (nothing loaded) renders silence.
type Synthesizer struct {
	mu         sync.Mutex
	engine     contracts.ToneEngine
	factory    contracts.EngineFactory
	logger     contracts.Logger
	soundFont  string
	sampleRate int
	channels   int
}

// NewSynthesizer creates a facade with no soundfont loaded.
func NewSynthesizer(options *contracts.Options) *Synthesizer {
	factory := options.EngineFactory
	if factory == nil {
		factory = NewMeltyEngine
	}
	rate := options.SampleRate
	if rate <= 0 {
		rate = contracts.DefaultSampleRate
	}
	return &Synthesizer{
		factory:    factory,
		logger:     options.Logger,
		sampleRate: rate,
		channels:   contracts.DefaultChannels,
	}
}

// LoadSoundFont replaces the current engine with one built from path. On
// failure the previous engine is gone as well and nothing is loaded.
func (s *Synthesizer) LoadSoundFont(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeEngine()
	engine, err := s.factory(path, s.sampleRate)
	if err != nil {
		s.logger.Error("Failed to load soundfont",
			s.logger.Field().String("path", path),
			s.logger.Field().Error("error", err))
		return fmt.Errorf("%w: %s: %v", contracts.ErrSoundFontLoad, path, err)
	}
	s.engine = engine
	s.soundFont = path
	s.logger.Info("Soundfont loaded",
		s.logger.Field().String("path", path),
		s.logger.Field().Int("presets", len(engine.Presets())))
	return nil
}

// SetOutputFormat changes the render format. A loaded engine is rebuilt at
// the new sample rate from the same soundfont.
func (s *Synthesizer) SetOutputFormat(sampleRate, channels int) error {
	if channels != contracts.DefaultChannels || sampleRate <= 0 {
		return fmt.Errorf("%w: %d Hz, %d channels", contracts.ErrUnsupportedFormat, sampleRate, channels)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sampleRate == s.sampleRate {
		return nil
	}
	s.sampleRate = sampleRate
	s.channels = channels
	if s.engine == nil {
		return nil
	}
	s.closeEngine()
	engine, err := s.factory(s.soundFont, sampleRate)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", contracts.ErrSoundFontLoad, s.soundFont, err)
	}
	s.engine = engine
	return nil
}

// NoteOn starts a note. velocity is in [0, 1]; zero releases the note instead.
func (s *Synthesizer) NoteOn(channel, key int, velocity float32) {
	vel := int(velocity*127 + 0.5)
	vel = clamp(vel, 0, 127)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil || !s.validChannel(channel) {
		return
	}
	if vel == 0 {
		s.engine.NoteOff(channel, clamp(key, 0, 127))
		return
	}
	s.engine.NoteOn(channel, clamp(key, 0, 127), vel)
}

// NoteOff releases a note.
func (s *Synthesizer) NoteOff(channel, key int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil || !s.validChannel(channel) {
		return
	}
	s.engine.NoteOff(channel, clamp(key, 0, 127))
}

// ControlChange sends a 7-bit controller value.
func (s *Synthesizer) ControlChange(channel, controller, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil || !s.validChannel(channel) {
		return
	}
	s.engine.ControlChange(channel, clamp(controller, 0, 127), clamp(value, 0, 127))
}

// ProgramChange selects a preset; channel 9 selects from the drum kits.
func (s *Synthesizer) ProgramChange(channel, program int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil || !s.validChannel(channel) {
		return
	}
	s.engine.ProgramChange(channel, clamp(program, 0, 127), channel == contracts.PercussionChannel)
}

// PitchBend takes the raw 14-bit wheel value (centre 8192), clamped to 0..16383.
func (s *Synthesizer) PitchBend(channel, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil || !s.validChannel(channel) {
		return
	}
	s.engine.PitchBend(channel, clamp(value, 0, contracts.PitchBendMax))
}

// AllNotesOff releases every sounding voice.
func (s *Synthesizer) AllNotesOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil {
		s.engine.AllNotesOff()
	}
}

// Render fills frames of interleaved stereo samples. Without a loaded engine
// the buffer is zeroed. Render never fails; it runs on the audio callback.
func (s *Synthesizer) Render(buf []int16, frames int) {
	n := frames * contracts.DefaultChannels
	if n > len(buf) {
		n = len(buf)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		clear(buf[:n])
		return
	}
	s.engine.Render(buf[:n], n/contracts.DefaultChannels)
}

// Presets lists the preset names of the loaded soundfont.
func (s *Synthesizer) Presets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil
	}
	return append([]string(nil), s.engine.Presets()...)
}

// PresetCount returns the number of presets, zero when nothing is loaded.
func (s *Synthesizer) PresetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return 0
	}
	return len(s.engine.Presets())
}

// PresetName returns the name of preset i or "" when out of range.
func (s *Synthesizer) PresetName(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return ""
	}
	names := s.engine.Presets()
	if i < 0 || i >= len(names) {
		return ""
	}
	return names[i]
}

// Loaded reports whether an engine is loaded.
func (s *Synthesizer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine != nil
}

// SoundFont returns the path of the loaded soundfont.
func (s *Synthesizer) SoundFont() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soundFont
}

// SampleRate returns the current output sample rate.
func (s *Synthesizer) SampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate
}

// Close releases the engine.
func (s *Synthesizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeEngine()
}

// closeEngine must be called with s.mu held.
func (s *Synthesizer) closeEngine() {
	if s.engine != nil {
		s.engine.Close()
		s.engine = nil
	}
}

func (s *Synthesizer) validChannel(channel int) bool {
	if channel < 0 || channel > 15 {
		s.logger.Debug("Channel out of range", s.logger.Field().Int("channel", channel))
		return false
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
