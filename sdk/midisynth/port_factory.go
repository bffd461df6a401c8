package midisynth

import (
	"fmt"
	"runtime"

	"github.com/leandrodaf/midisynth/internal/port/mididarwin"
	"github.com/leandrodaf/midisynth/internal/port/midiwindows"
	"github.com/leandrodaf/midisynth/internal/port/portrtmidi"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// portBackend opens and enumerates sequencer ports on one operating system.
type portBackend struct {
	open func(*contracts.Options) (contracts.SequencerPort, error)
	list func(*contracts.Options) ([]contracts.PortInfo, error)
}

// portBackends maps OS names to sequencer port backends.
var portBackends = map[string]portBackend{
	"linux":   {open: portrtmidi.Open, list: portrtmidi.List},   // virtual ALSA input through RtMidi
	"darwin":  {open: mididarwin.Open, list: mididarwin.List},   // CoreMIDI source
	"windows": {open: midiwindows.Open, list: midiwindows.List}, // winmm input device
}

// backendFor returns the backend for the current operating system, or
// contracts.ErrUnsupportedOS.
func backendFor(goos string) (portBackend, error) {
	if b, ok := portBackends[goos]; ok {
		return b, nil
	}
	return portBackend{}, fmt.Errorf("%w: %s", contracts.ErrUnsupportedOS, goos)
}

// OpenPort opens the sequencer port for the running OS.
func OpenPort(options *contracts.Options) (contracts.SequencerPort, error) {
	b, err := backendFor(runtime.GOOS)
	if err != nil {
		return nil, err
	}
	return b.open(options)
}

// ListPorts lists the MIDI sources visible on the running OS.
func ListPorts(options *contracts.Options) ([]contracts.PortInfo, error) {
	b, err := backendFor(runtime.GOOS)
	if err != nil {
		return nil, err
	}
	return b.list(options)
}
