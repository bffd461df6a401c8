package config

import (
	"fmt"
	"os"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// SoundFontEnv lists the environment variables consulted, in order.
var SoundFontEnv = []string{"MIDISYNTH_SF2", "TERMUX_MIDI_SF2"}

// SoundFontCandidates are tried in order when neither a path nor an
// environment variable is set. SF2 and SF3 files are both accepted.
var SoundFontCandidates = []string{
	"./soundfont.sf2",
	"./soundfont.sf3",
	"./default.sf2",
	"./default.sf3",
	"soundfonts/default.sf2",
	"soundfonts/default.sf3",
	"/data/data/com.termux/files/home/soundfonts/default.sf2",
	"/data/data/com.termux/files/home/soundfonts/default.sf3",
	"/data/data/com.termux/files/usr/share/soundfonts/default.sf2",
	"/data/data/com.termux/files/usr/share/soundfonts/default.sf3",
	"/usr/share/sounds/sf2/FluidR3_GM.sf2",
	"/usr/share/soundfonts/default.sf2",
	"/usr/share/soundfonts/default.sf3",
}

// FindSoundFont resolves the soundfont to load: explicit if set, then the
// environment, then the first readable candidate.
func FindSoundFont(explicit string) (string, error) {
	return findSoundFont(explicit, os.Getenv, SoundFontCandidates)
}

func findSoundFont(explicit string, getenv func(string) string, candidates []string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	for _, key := range SoundFontEnv {
		if v := getenv(key); v != "" {
			return v, nil
		}
	}
	for _, path := range candidates {
		if readable(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: use --sf2 or set %s", contracts.ErrNoSoundFont, SoundFontEnv[0])
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	return err == nil && !info.IsDir()
}
