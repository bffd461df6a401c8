package contracts

// EventKind identifies the payload of a timed or port event.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventNoteOn
	EventNoteOff
	EventControlChange
	// EventControl14 carries a combined 14-bit controller value.
	EventControl14
	EventProgramChange
	EventPitchBend
)

func (k EventKind) String() string {
	switch k {
	case EventNoteOn:
		return "note_on"
	case EventNoteOff:
		return "note_off"
	case EventControlChange:
		return "control_change"
	case EventControl14:
		return "control_14"
	case EventProgramChange:
		return "program_change"
	case EventPitchBend:
		return "pitch_bend"
	}
	return "unknown"
}

// TimedEvent is one entry of a loaded sequence. Time is absolute, in
// milliseconds from the start of the sequence.
type TimedEvent struct {
	Time    float64
	Kind    EventKind
	Channel int
	Key     int // note number or controller number
	Value   int // velocity, controller value or program
	Bend    int // 14-bit pitch wheel value, centre 8192
}

// PortEvent is one event received from a sequencer port. Value holds the
// velocity, controller value or program; for EventPitchBend it holds the
// signed bend in -8192..8191 as delivered by sequencer APIs.
type PortEvent struct {
	Kind    EventKind
	Channel int
	Param   int
	Value   int
}
