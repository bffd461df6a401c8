package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leandrodaf/midisynth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, os.Stdin, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestParseArgsInterleavedFlags(t *testing.T) {
	a, err := parseArgs([]string{"--sf2", "gm.sf2", "render", "song.mid", "-o", "out.wav", "--device", "3", "--watch"})
	require.NoError(t, err)

	assert.Equal(t, "render", a.command)
	assert.Equal(t, "song.mid", a.file)
	assert.Equal(t, "out.wav", a.output)
	assert.Equal(t, "gm.sf2", a.flags.SoundFont)
	require.NotNil(t, a.flags.DeviceID)
	assert.Equal(t, 3, *a.flags.DeviceID)
	assert.True(t, a.flags.Watch)
}

func TestParseArgsErrors(t *testing.T) {
	_, err := parseArgs([]string{"serve", "--device", "first"})
	assert.ErrorContains(t, err, `invalid device id "first"`)

	_, err = parseArgs([]string{"listen", "--log-level", "loud"})
	assert.ErrorContains(t, err, "loud")

	_, err = parseArgs([]string{"listen", "--bogus"})
	assert.Error(t, err)
}

func TestLoadConfigFlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "midisynth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("soundfont: file.sf2\nsocket: /tmp/file.sock\nsample_rate: 22050\n"), 0o644))

	a, err := parseArgs([]string{"listen", "--config", path, "--sf2", "flag.sf2"})
	require.NoError(t, err)
	cfg, err := loadConfig(a)
	require.NoError(t, err)

	assert.Equal(t, "flag.sf2", cfg.SoundFont)
	assert.Equal(t, "/tmp/file.sock", cfg.Socket)
	assert.Equal(t, 22050, cfg.SampleRate)
}

func TestRunVersionAndHelp(t *testing.T) {
	code, out, _ := runCLI("--version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "midisynth 1.0.0\n", out)

	code, out, _ = runCLI("-h")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Usage: midisynth <command> [options]")
	assert.Contains(t, out, "noteon <ch> <note> <vel>")
}

func TestRunUsageErrors(t *testing.T) {
	code, _, errOut := runCLI()
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Usage:")

	code, _, errOut = runCLI("dance")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Unknown command: dance")

	code, _, errOut = runCLI("play")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "No MIDI file specified")

	code, _, errOut = runCLI("listen", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "read config")
}

func TestRunMissingSoundFontHintOnce(t *testing.T) {
	for _, path := range config.SoundFontCandidates {
		if filepath.IsAbs(path) {
			if _, err := os.Stat(path); err == nil {
				t.Skipf("system soundfont %s present", path)
			}
		}
	}
	for _, key := range config.SoundFontEnv {
		t.Setenv(key, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	code, _, errOut := runCLI("list-instruments")
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, strings.Count(strings.ToLower(errOut), "--sf2 or set "+config.SoundFontEnv[0]), errOut)
}
