//go:build headless

package audio

import "github.com/leandrodaf/midisynth/sdk/contracts"

// NewPlatformTransport returns a real-time paced transport that discards audio.
// Builds tagged headless carry no audio device support.
func NewPlatformTransport() contracts.AudioTransport {
	return NewClockTransport()
}
