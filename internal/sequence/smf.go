package sequence

import (
	"fmt"
	"io"
	"sort"

	"github.com/leandrodaf/midisynth/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadSMF loads a Standard MIDI File and flattens all of its tracks into one
// time-ordered event list. Times are milliseconds, resolved through the
// file's tempo map.
func ReadSMF(path string) ([]contracts.TimedEvent, error) {
	file, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contracts.ErrSequenceLoad, path, err)
	}
	return flatten(file), nil
}

// ParseSMF is ReadSMF for an already opened stream.
func ParseSMF(r io.Reader) ([]contracts.TimedEvent, error) {
	file, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrSequenceLoad, err)
	}
	return flatten(file), nil
}

func flatten(file *smf.SMF) []contracts.TimedEvent {
	events := []contracts.TimedEvent{}
	for _, track := range file.Tracks {
		var ticks int64
		for _, ev := range track {
			ticks += int64(ev.Delta)
			te, ok := decodeMessage(midi.Message(ev.Message))
			if !ok {
				continue
			}
			te.Time = float64(file.TimeAt(ticks)) / 1000
			events = append(events, te)
		}
	}
	// tracks are merged; events at the same instant keep track order
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	return events
}

// decodeMessage keeps the channel messages the player can dispatch. A note
// on with zero velocity stays a note on; the player treats it as a note off.
func decodeMessage(msg midi.Message) (contracts.TimedEvent, bool) {
	var ch, key, val uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &val):
		return contracts.TimedEvent{Kind: contracts.EventNoteOn, Channel: int(ch), Key: int(key), Value: int(val)}, true
	case msg.GetNoteOff(&ch, &key, &val):
		return contracts.TimedEvent{Kind: contracts.EventNoteOff, Channel: int(ch), Key: int(key)}, true
	case msg.GetControlChange(&ch, &key, &val):
		return contracts.TimedEvent{Kind: contracts.EventControlChange, Channel: int(ch), Key: int(key), Value: int(val)}, true
	case msg.GetProgramChange(&ch, &val):
		return contracts.TimedEvent{Kind: contracts.EventProgramChange, Channel: int(ch), Value: int(val)}, true
	}
	var rel int16
	var abs uint16
	if msg.GetPitchBend(&ch, &rel, &abs) {
		return contracts.TimedEvent{Kind: contracts.EventPitchBend, Channel: int(ch), Bend: int(abs)}, true
	}
	return contracts.TimedEvent{}, false
}
