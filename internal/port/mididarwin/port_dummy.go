//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

func Open(options *contracts.Options) (contracts.SequencerPort, error) {
	options.Logger.Warn("CoreMIDI port requested on a non-macOS system")
	return nil, fmt.Errorf("%w: CoreMIDI is only available on macOS", contracts.ErrUnsupportedOS)
}

func List(options *contracts.Options) ([]contracts.PortInfo, error) {
	options.Logger.Warn("List called on dummy CoreMIDI backend")
	return nil, fmt.Errorf("%w: CoreMIDI is only available on macOS", contracts.ErrUnsupportedOS)
}
