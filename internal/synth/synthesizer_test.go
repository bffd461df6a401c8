package synth

import (
	"errors"
	"sync"
	"testing"

	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/internal/synthtest"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSynth(t *testing.T) (*Synthesizer, *synthtest.Factory) {
	t.Helper()
	factory := &synthtest.Factory{Known: map[string][]string{
		"gm.sf2":    {"Piano", "Strings", "Standard Kit"},
		"other.sf2": {"Organ"},
	}}
	s := NewSynthesizer(&contracts.Options{
		Logger:        logger.NewNopLogger(),
		EngineFactory: factory.New,
	})
	return s, factory
}

func TestRenderWithoutSoundFontIsSilent(t *testing.T) {
	s, _ := newTestSynth(t)
	buf := []int16{1, 2, 3, 4, 5, 6, 7, 8}

	s.Render(buf, 4)

	assert.Equal(t, make([]int16, 8), buf)
	assert.False(t, s.Loaded())
	assert.Zero(t, s.PresetCount())
}

func TestLoadSoundFontRendersEngineOutput(t *testing.T) {
	s, _ := newTestSynth(t)
	require.NoError(t, s.LoadSoundFont("gm.sf2"))

	buf := make([]int16, 8)
	s.Render(buf, 4)

	assert.Equal(t, []int16{1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000}, buf)
	assert.Equal(t, 3, s.PresetCount())
	assert.Equal(t, "Strings", s.PresetName(1))
	assert.Equal(t, "", s.PresetName(7))
	assert.Equal(t, []string{"Piano", "Strings", "Standard Kit"}, s.Presets())
}

func TestFailedLoadClearsPreviousEngine(t *testing.T) {
	s, factory := newTestSynth(t)
	require.NoError(t, s.LoadSoundFont("gm.sf2"))
	first := factory.Last()

	err := s.LoadSoundFont("missing.sf2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrSoundFontLoad))
	assert.True(t, errors.Is(err, contracts.ErrSetup))
	assert.False(t, s.Loaded())
	assert.True(t, first.Closed())

	buf := []int16{9, 9, 9, 9}
	s.Render(buf, 2)
	assert.Equal(t, []int16{0, 0, 0, 0}, buf)
}

func TestLoadReplacesEngine(t *testing.T) {
	s, factory := newTestSynth(t)
	require.NoError(t, s.LoadSoundFont("gm.sf2"))
	first := factory.Last()
	require.NoError(t, s.LoadSoundFont("other.sf2"))

	assert.True(t, first.Closed())
	assert.Equal(t, []string{"Organ"}, s.Presets())
	assert.Equal(t, "other.sf2", s.SoundFont())
}

func TestEventCallsReachEngine(t *testing.T) {
	s, factory := newTestSynth(t)
	require.NoError(t, s.LoadSoundFont("gm.sf2"))

	s.NoteOn(0, 60, 1.0)
	s.NoteOn(0, 62, 0.5)
	s.NoteOn(0, 64, 0)
	s.NoteOff(0, 60)
	s.ControlChange(1, 7, 300)
	s.ProgramChange(0, 5)
	s.ProgramChange(9, 0)
	s.PitchBend(2, 20000)
	s.PitchBend(2, -4)
	s.AllNotesOff()
	s.NoteOn(16, 60, 1)

	assert.Equal(t, []synthtest.Call{
		"noteOn(0,60,127)",
		"noteOn(0,62,64)",
		"noteOff(0,64)",
		"noteOff(0,60)",
		"cc(1,7,127)",
		"pc(0,5,false)",
		"pc(9,0,true)",
		"pitch(2,16383)",
		"pitch(2,0)",
		"allNotesOff()",
	}, factory.Last().Calls())
}

func TestEventCallsWithoutEngineAreIgnored(t *testing.T) {
	s, _ := newTestSynth(t)
	assert.NotPanics(t, func() {
		s.NoteOn(0, 60, 1)
		s.NoteOff(0, 60)
		s.ControlChange(0, 1, 2)
		s.ProgramChange(0, 1)
		s.PitchBend(0, 8192)
		s.AllNotesOff()
	})
}

func TestSetOutputFormatRebuildsEngine(t *testing.T) {
	s, factory := newTestSynth(t)
	require.NoError(t, s.LoadSoundFont("gm.sf2"))
	require.Equal(t, contracts.DefaultSampleRate, factory.Last().SampleRate)

	require.NoError(t, s.SetOutputFormat(48000, 2))

	assert.Len(t, factory.Created, 2)
	assert.Equal(t, 48000, factory.Last().SampleRate)
	assert.Equal(t, 48000, s.SampleRate())
	assert.ErrorIs(t, s.SetOutputFormat(48000, 1), contracts.ErrUnsupportedFormat)
}

func TestConcurrentCallsAreSerialized(t *testing.T) {
	s, _ := newTestSynth(t)
	require.NoError(t, s.LoadSoundFont("gm.sf2"))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(ch int) {
			defer wg.Done()
			buf := make([]int16, 256)
			for i := 0; i < 200; i++ {
				s.NoteOn(ch, 60+i%12, 0.8)
				s.Render(buf, 128)
				s.NoteOff(ch, 60+i%12)
				_ = s.PresetCount()
			}
		}(g)
	}
	// the fake engine panics on overlapping calls
	wg.Wait()
	assert.True(t, s.Loaded())
}

func TestFloatToInt16StereoClamps(t *testing.T) {
	dst := make([]int16, 6)
	FloatToInt16Stereo(dst, []float32{0, 2, -0.5}, []float32{1, -3, 0.5})
	assert.Equal(t, []int16{0, 32767, 32767, -32767, -16383, 16383}, dst)
}
