//go:build cgo && !windows

// Package portrtmidi opens a virtual MIDI input through RtMidi (ALSA on
// Linux, CoreMIDI on macOS) that other applications can connect to.
package portrtmidi

import (
	"fmt"

	"github.com/leandrodaf/midisynth/internal/port"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/multierr"
)

// Open creates a virtual input named after the configured client name.
func Open(options *contracts.Options) (contracts.SequencerPort, error) {
	name := options.PortConfig.ClientName
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("%w: rtmidi: %v", contracts.ErrPortOpen, err)
	}
	in, err := drv.OpenVirtualIn(name)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("%w: virtual input %q: %v", contracts.ErrPortOpen, name, err)
	}

	var stopListening func()
	q := port.NewQueue(name, port.DefaultQueueSize, options.Logger, func() error {
		if stopListening != nil {
			stopListening()
		}
		return multierr.Append(in.Close(), drv.Close())
	})
	stopListening, err = midi.ListenTo(in, func(msg midi.Message, _ int32) {
		q.Push(msg)
	}, midi.HandleError(q.Fail))
	if err != nil {
		q.Close()
		return nil, fmt.Errorf("%w: listen on %q: %v", contracts.ErrPortOpen, name, err)
	}

	options.Logger.Info("Virtual MIDI input opened", options.Logger.Field().String("name", name))
	return q, nil
}

// List returns the MIDI inputs visible to RtMidi.
func List(options *contracts.Options) ([]contracts.PortInfo, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("%w: rtmidi: %v", contracts.ErrPortOpen, err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI inputs: %w", err)
	}
	infos := make([]contracts.PortInfo, len(ins))
	for i, in := range ins {
		infos[i] = contracts.PortInfo{Name: in.String(), EntityName: in.String()}
	}
	return infos, nil
}
