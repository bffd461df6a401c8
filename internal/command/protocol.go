// Package command implements the line oriented live control protocol and the
// listener loops that read it from a stream or a unix socket.
package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Verb identifies a protocol command.
type Verb int

const (
	VerbNone Verb = iota // blank line
	VerbNoteOn
	VerbNoteOff
	VerbControlChange
	VerbProgramChange
	VerbPitchBend
	VerbPanic
	VerbSleep
	VerbQuit
)

type verbSpec struct {
	verb  Verb
	args  int
	usage string
}

var verbs = map[string]verbSpec{
	"noteon":  {VerbNoteOn, 3, "noteon <channel> <note> <velocity>"},
	"noteoff": {VerbNoteOff, 2, "noteoff <channel> <note>"},
	"cc":      {VerbControlChange, 3, "cc <channel> <controller> <value>"},
	"pc":      {VerbProgramChange, 2, "pc <channel> <program>"},
	"pitch":   {VerbPitchBend, 2, "pitch <channel> <value>"},
	"panic":   {VerbPanic, 0, "panic"},
	"sleep":   {VerbSleep, 1, "sleep <seconds>"},
	"quit":    {VerbQuit, 0, "quit"},
	"exit":    {VerbQuit, 0, "exit"},
}

// Usage lists the protocol, one command per line.
const Usage = `  noteon <ch> <note> <vel>   Note on
  noteoff <ch> <note>        Note off
  cc <ch> <ctrl> <val>       Control change
  pc <ch> <prog>             Program change
  pitch <ch> <val>           Pitch bend (0-16383, centre 8192)
  panic                      All notes off
  sleep <seconds>            Pause the listener
  quit                       Exit`

// Command is one parsed protocol line. Numeric fields are already range
// checked and clamped.
type Command struct {
	Verb    Verb
	Channel int
	Key     int // note or controller
	Value   int // velocity, controller value, program or pitch
	Sleep   time.Duration
}

// Parse parses one line. Extra trailing arguments are ignored. Malformed
// lines return an error wrapping contracts.ErrProtocol.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{Verb: VerbNone}, nil
	}
	spec, ok := verbs[fields[0]]
	if !ok {
		return Command{}, contracts.ProtocolErrorf("unknown command: %s", fields[0])
	}
	args := fields[1:]
	if len(args) < spec.args {
		return Command{}, contracts.ProtocolErrorf("usage: %s", spec.usage)
	}

	cmd := Command{Verb: spec.verb}
	switch spec.verb {
	case VerbSleep:
		seconds, err := strconv.ParseFloat(args[0], 64)
		if err != nil || seconds < 0 {
			return Command{}, contracts.ProtocolErrorf("usage: %s", spec.usage)
		}
		cmd.Sleep = time.Duration(seconds * float64(time.Second))
		return cmd, nil
	case VerbPanic, VerbQuit:
		return cmd, nil
	}

	nums := make([]int, spec.args)
	for i := range nums {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return Command{}, contracts.ProtocolErrorf("usage: %s", spec.usage)
		}
		nums[i] = n
	}
	if nums[0] < 0 || nums[0] > 15 {
		return Command{}, contracts.ProtocolErrorf("channel %d out of range 0-15", nums[0])
	}
	cmd.Channel = nums[0]

	switch spec.verb {
	case VerbNoteOn:
		cmd.Key = clamp(nums[1], 0, 127)
		cmd.Value = clamp(nums[2], 0, 127)
	case VerbNoteOff:
		cmd.Key = clamp(nums[1], 0, 127)
	case VerbControlChange:
		cmd.Key = clamp(nums[1], 0, 127)
		cmd.Value = controllerValue(nums[2])
	case VerbProgramChange:
		cmd.Value = clamp(nums[1], 0, 127)
	case VerbPitchBend:
		cmd.Value = clamp(nums[1], 0, contracts.PitchBendMax)
	}
	return cmd, nil
}

// Execute applies cmd to synth. Sleep and quit are handled by the listener
// and do nothing here.
func Execute(cmd Command, synth contracts.Synth) {
	switch cmd.Verb {
	case VerbNoteOn:
		synth.NoteOn(cmd.Channel, cmd.Key, float32(cmd.Value)/127)
	case VerbNoteOff:
		synth.NoteOff(cmd.Channel, cmd.Key)
	case VerbControlChange:
		synth.ControlChange(cmd.Channel, cmd.Key, cmd.Value)
	case VerbProgramChange:
		synth.ProgramChange(cmd.Channel, cmd.Value)
	case VerbPitchBend:
		synth.PitchBend(cmd.Channel, cmd.Value)
	case VerbPanic:
		synth.AllNotesOff()
	}
}

// controllerValue passes 7-bit values through and reduces anything larger as
// a 14-bit value.
func controllerValue(v int) int {
	if v <= 127 {
		return clamp(v, 0, 127)
	}
	return contracts.Reduce14(v)
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
