//go:build darwin
// +build darwin

// Package mididarwin connects to a CoreMIDI source on macOS.
package mididarwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/midisynth/internal/port"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices       = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice   = errors.New("invalid MIDI device")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("error creating input port")
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// inputPort receives packets from one CoreMIDI source. CoreMIDI calls
// handleMIDIMessage on its own thread; packets go straight into the queue.
type inputPort struct {
	*port.Queue
	logger    contracts.Logger
	client    coremidi.Client
	inputPort coremidi.InputPort
	portConn  internalPortConnection
	mu        sync.Mutex
	wg        sync.WaitGroup
	closing   bool
}

// Open connects to the source selected by PortConfig.DeviceID; a negative ID
// picks the first source.
func Open(options *contracts.Options) (contracts.SequencerPort, error) {
	cfg := options.PortConfig
	client, err := coremidi.NewClient(cfg.ClientName)
	if err != nil {
		return nil, fmt.Errorf("%w: coremidi client: %v", contracts.ErrPortOpen, err)
	}
	options.Logger.Info("MIDI client successfully created")

	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("%w: error retrieving MIDI sources: %v", contracts.ErrPortOpen, err)
	}
	if len(sources) == 0 {
		options.Logger.Warn(ErrNoMIDIDevices.Error())
		return nil, fmt.Errorf("%w: %w", contracts.ErrPortOpen, ErrNoMIDIDevices)
	}
	id := cfg.DeviceID
	if id < 0 {
		id = 0
	}
	if id >= len(sources) {
		options.Logger.Error(ErrInvalidMIDIDevice.Error(), options.Logger.Field().Int("deviceID", id))
		return nil, fmt.Errorf("%w: %w", contracts.ErrPortOpen, ErrInvalidMIDIDevice)
	}
	source := sources[id]

	p := &inputPort{logger: options.Logger, client: client}
	p.Queue = port.NewQueue(source.Name(), port.DefaultQueueSize, options.Logger, p.disconnect)

	p.inputPort, err = coremidi.NewInputPort(client, "Input Port", p.handleMIDIMessage)
	if err != nil {
		options.Logger.Error(ErrCreateInputPort.Error())
		return nil, fmt.Errorf("%w: %w: %v", contracts.ErrPortOpen, ErrCreateInputPort, err)
	}
	p.portConn, err = p.inputPort.Connect(source)
	if err != nil {
		options.Logger.Error(ErrMIDIConnectionError.Error())
		return nil, fmt.Errorf("%w: %w: %v", contracts.ErrPortOpen, ErrMIDIConnectionError, err)
	}

	options.Logger.Info("MIDI device successfully connected",
		options.Logger.Field().Int("deviceID", id),
		options.Logger.Field().String("deviceName", source.Name()))
	return p, nil
}

// List retrieves the available MIDI sources.
func List(options *contracts.Options) ([]contracts.PortInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		options.Logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	infos := make([]contracts.PortInfo, len(sources))
	for i, source := range sources {
		sourceEntity := source.Entity()
		infos[i] = contracts.PortInfo{
			Name:         source.Name(),
			EntityName:   sourceEntity.Name(),
			Manufacturer: sourceEntity.Manufacturer(),
		}
	}
	return infos, nil
}

func (p *inputPort) handleMIDIMessage(source coremidi.Source, packet coremidi.Packet) {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()
	defer p.wg.Done()

	p.Push(packet.Data)
}

// disconnect detaches from the source and waits for in-flight callbacks.
func (p *inputPort) disconnect() error {
	p.mu.Lock()
	p.closing = true
	if p.portConn != nil {
		p.portConn.Disconnect()
		p.portConn = nil
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info("MIDI capture stopped")
	return nil
}
