package command

import (
	"testing"
	"time"

	"github.com/leandrodaf/midisynth/internal/synthtest"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndExecute(t *testing.T) {
	tests := []struct {
		line string
		want []synthtest.Call
	}{
		{"noteon 0 60 127", []synthtest.Call{"noteOn(0,60,1.00)"}},
		{"noteon 9 36 0", []synthtest.Call{"noteOn(9,36,0.00)"}},
		{"noteon 1 200 300", []synthtest.Call{"noteOn(1,127,1.00)"}},
		{"noteoff 0 60", []synthtest.Call{"noteOff(0,60)"}},
		{"cc 0 7 100", []synthtest.Call{"cc(0,7,100)"}},
		{"cc 0 1 16383", []synthtest.Call{"cc(0,1,127)"}},
		{"cc 0 1 8192", []synthtest.Call{"cc(0,1,64)"}},
		{"cc 0 1 99999", []synthtest.Call{"cc(0,1,127)"}},
		{"cc 0 1 -4", []synthtest.Call{"cc(0,1,0)"}},
		{"pc 2 5", []synthtest.Call{"pc(2,5)"}},
		{"pitch 0 8192", []synthtest.Call{"pitch(0,8192)"}},
		{"pitch 0 20000", []synthtest.Call{"pitch(0,16383)"}},
		{"pitch 0 -1", []synthtest.Call{"pitch(0,0)"}},
		{"panic", []synthtest.Call{"allNotesOff()"}},
		{"  noteoff   3  64  extra ", []synthtest.Call{"noteOff(3,64)"}},
		{"", nil},
		{"sleep 0.5", nil},
		{"quit", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := Parse(tt.line)
			require.NoError(t, err)
			rec := &synthtest.Recorder{}
			Execute(cmd, rec)
			assert.Equal(t, tt.want, rec.Calls())
		})
	}
}

func TestParseVerbs(t *testing.T) {
	cmd, err := Parse("sleep 1.5")
	require.NoError(t, err)
	assert.Equal(t, Command{Verb: VerbSleep, Sleep: 1500 * time.Millisecond}, cmd)

	for _, line := range []string{"quit", "exit"} {
		cmd, err = Parse(line)
		require.NoError(t, err)
		assert.Equal(t, VerbQuit, cmd.Verb)
	}

	cmd, err = Parse("   ")
	require.NoError(t, err)
	assert.Equal(t, VerbNone, cmd.Verb)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		line string
		msg  string
	}{
		{"noteon 0 60", "usage: noteon <channel> <note> <velocity>"},
		{"noteoff 0", "usage: noteoff <channel> <note>"},
		{"cc 0 7", "usage: cc <channel> <controller> <value>"},
		{"pc x 5", "usage: pc <channel> <program>"},
		{"pitch 0 high", "usage: pitch <channel> <value>"},
		{"sleep", "usage: sleep <seconds>"},
		{"sleep -2", "usage: sleep <seconds>"},
		{"noteon 16 60 100", "channel 16 out of range 0-15"},
		{"pc -1 0", "channel -1 out of range 0-15"},
		{"NOTEON 0 60 100", "unknown command: NOTEON"},
		{"hello", "unknown command: hello"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := Parse(tt.line)
			require.ErrorIs(t, err, contracts.ErrProtocol)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
