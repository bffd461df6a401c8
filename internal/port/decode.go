// Package port receives events from platform sequencer ports and feeds them
// to the synthesizer.
package port

import (
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
)

// Decode converts one raw channel message. Pitch bend values are returned
// signed, -8192..8191. System and unsupported messages report false.
func Decode(raw []byte) (contracts.PortEvent, bool) {
	msg := midi.Message(raw)
	var ch, a, b uint8
	switch {
	case msg.GetNoteOn(&ch, &a, &b):
		return contracts.PortEvent{Kind: contracts.EventNoteOn, Channel: int(ch), Param: int(a), Value: int(b)}, true
	case msg.GetNoteOff(&ch, &a, &b):
		return contracts.PortEvent{Kind: contracts.EventNoteOff, Channel: int(ch), Param: int(a)}, true
	case msg.GetControlChange(&ch, &a, &b):
		return contracts.PortEvent{Kind: contracts.EventControlChange, Channel: int(ch), Param: int(a), Value: int(b)}, true
	case msg.GetProgramChange(&ch, &a):
		return contracts.PortEvent{Kind: contracts.EventProgramChange, Channel: int(ch), Value: int(a)}, true
	}
	var rel int16
	var abs uint16
	if msg.GetPitchBend(&ch, &rel, &abs) {
		return contracts.PortEvent{Kind: contracts.EventPitchBend, Channel: int(ch), Value: int(rel)}, true
	}
	return contracts.PortEvent{}, false
}

// MessageLength returns the size of the channel message starting with
// status, or 0 when status is not a channel status byte.
func MessageLength(status byte) int {
	switch status & 0xF0 {
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 3
	case 0xC0, 0xD0:
		return 2
	}
	return 0
}

// Split breaks a packet that may hold several messages into single channel
// messages. System messages are skipped. A truncated trailing message is
// reported through incomplete.
func Split(data []byte) (msgs [][]byte, incomplete bool) {
	for i := 0; i < len(data); {
		status := data[i]
		if status < 0x80 {
			i++ // stray data byte
			continue
		}
		if status == 0xF0 {
			end := i + 1
			for end < len(data) && data[end] != 0xF7 {
				end++
			}
			i = end + 1
			continue
		}
		n := MessageLength(status)
		if n == 0 {
			i++
			continue
		}
		if i+n > len(data) {
			return msgs, true
		}
		msgs = append(msgs, data[i:i+n])
		i += n
	}
	return msgs, false
}
