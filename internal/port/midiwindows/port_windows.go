//go:build windows
// +build windows

// Package midiwindows receives MIDI input through the winmm API.
package midiwindows

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/leandrodaf/midisynth/internal/port"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"go.uber.org/multierr"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type HMIDIIN windows.Handle

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

// Struct representing MIDI device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

var errNoDevices = errors.New("no MIDI devices found")

// Load the winmm.dll library and required functions
var (
	winmm                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen       = winmm.NewProc("midiInOpen")
	procMidiInStart      = winmm.NewProc("midiInStart")
	procMidiInStop       = winmm.NewProc("midiInStop")
	procMidiInClose      = winmm.NewProc("midiInClose")
)

// Callbacks created with windows.NewCallback are never released, so one is
// shared by every open port. Ports are looked up by the instance id passed
// to midiInOpen.
var (
	callbackOnce sync.Once
	callbackPtr  uintptr
	portsMu      sync.Mutex
	ports        = map[uintptr]*inputPort{}
	nextPortID   uintptr
)

type inputPort struct {
	*port.Queue
	logger contracts.Logger
	id     uintptr
	handle HMIDIIN
}

// Open opens and starts the winmm input device selected by
// PortConfig.DeviceID; a negative ID picks the first device.
func Open(options *contracts.Options) (contracts.SequencerPort, error) {
	infos, err := List(options)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contracts.ErrPortOpen, err)
	}
	deviceID := options.PortConfig.DeviceID
	if deviceID < 0 {
		deviceID = 0
	}
	if deviceID >= len(infos) {
		return nil, fmt.Errorf("%w: invalid MIDI device %d", contracts.ErrPortOpen, deviceID)
	}

	callbackOnce.Do(func() { callbackPtr = windows.NewCallback(midiInCallback) })

	p := &inputPort{logger: options.Logger}
	p.Queue = port.NewQueue(infos[deviceID].Name, port.DefaultQueueSize, options.Logger, p.stopCapture)

	portsMu.Lock()
	nextPortID++
	p.id = nextPortID
	ports[p.id] = p
	portsMu.Unlock()

	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&p.handle)),
		uintptr(deviceID),
		callbackPtr,
		p.id,
		uintptr(CALLBACK_FUNCTION|MIDI_IO_STATUS),
	)
	if r1 != 0 {
		p.unregister()
		options.Logger.Error("Failed to open MIDI device", options.Logger.Field().Int("deviceID", deviceID))
		return nil, fmt.Errorf("%w: failed to open MIDI device %d: %v", contracts.ErrPortOpen, deviceID, err)
	}

	r1, _, err = procMidiInStart.Call(uintptr(p.handle))
	if r1 != 0 {
		procMidiInClose.Call(uintptr(p.handle))
		p.unregister()
		return nil, fmt.Errorf("%w: failed to start MIDI capture: %v", contracts.ErrPortOpen, err)
	}

	options.Logger.Info("MIDI device connected",
		options.Logger.Field().Int("deviceID", deviceID),
		options.Logger.Field().String("deviceName", infos[deviceID].Name))
	return p, nil
}

// List lists the available MIDI input devices.
func List(options *contracts.Options) ([]contracts.PortInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		options.Logger.Warn("No MIDI devices found")
		return nil, errNoDevices
	}

	infos := make([]contracts.PortInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			options.Logger.Warn("Failed to get information for MIDI device", options.Logger.Field().Int("deviceID", int(i)))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		infos = append(infos, contracts.PortInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		})
	}
	return infos, nil
}

// midiInCallback processes incoming MIDI messages on the winmm thread.
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	portsMu.Lock()
	p := ports[dwInstance]
	portsMu.Unlock()
	if p == nil {
		return 0
	}

	switch wMsg {
	case MIM_OPEN:
		p.logger.Debug("MIDI device opened")
	case MIM_CLOSE:
		p.logger.Debug("MIDI device closed")
	case MIM_DATA:
		status := byte(dwParam1 & 0xFF)
		data1 := byte((dwParam1 >> 8) & 0xFF)
		data2 := byte((dwParam1 >> 16) & 0xFF)
		p.Push([]byte{status, data1, data2}[:max(port.MessageLength(status), 1)])
	case MIM_ERROR, MIM_LONGERROR:
		p.logger.Warn("MIDI error", p.logger.Field().Uint64("msg", uint64(wMsg)))
	case MIM_MOREDATA:
		p.logger.Debug("Received MIM_MOREDATA message; ignored")
	}
	return 0
}

// stopCapture stops the capture and releases the device.
func (p *inputPort) stopCapture() error {
	defer p.unregister()
	if p.handle == 0 {
		return nil
	}
	var errs error
	if r1, _, err := procMidiInStop.Call(uintptr(p.handle)); r1 != 0 {
		errs = multierr.Append(errs, fmt.Errorf("failed to stop MIDI capture: %v", err))
	}
	if r1, _, err := procMidiInClose.Call(uintptr(p.handle)); r1 != 0 {
		errs = multierr.Append(errs, fmt.Errorf("failed to close MIDI device: %v", err))
	}
	p.handle = 0
	p.logger.Info("MIDI capture stopped and device closed")
	return errs
}

func (p *inputPort) unregister() {
	portsMu.Lock()
	delete(ports, p.id)
	portsMu.Unlock()
}
