//go:build !cgo || windows

package portrtmidi

import (
	"fmt"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Open reports that virtual ports need an RtMidi build.
func Open(options *contracts.Options) (contracts.SequencerPort, error) {
	options.Logger.Warn("Virtual MIDI ports are not available in this build")
	return nil, fmt.Errorf("%w: virtual MIDI ports need cgo and RtMidi", contracts.ErrUnsupportedOS)
}

func List(options *contracts.Options) ([]contracts.PortInfo, error) {
	return nil, fmt.Errorf("%w: virtual MIDI ports need cgo and RtMidi", contracts.ErrUnsupportedOS)
}
