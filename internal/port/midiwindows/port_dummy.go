//go:build !windows
// +build !windows

package midiwindows

import (
	"fmt"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Open reports that winmm input is unavailable on this platform.
func Open(options *contracts.Options) (contracts.SequencerPort, error) {
	options.Logger.Warn("winmm port requested on a non-Windows system")
	return nil, fmt.Errorf("%w: winmm is only available on Windows", contracts.ErrUnsupportedOS)
}

// List logs a warning and returns an error indicating that winmm is unavailable.
func List(options *contracts.Options) ([]contracts.PortInfo, error) {
	options.Logger.Warn("List called on dummy winmm backend")
	return nil, fmt.Errorf("%w: winmm is only available on Windows", contracts.ErrUnsupportedOS)
}
