package midisynth

import (
	"fmt"

	"github.com/leandrodaf/midisynth/internal/audio"
	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// applyDefaultOptions sets default values for Options if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify Options.
//
// Returns:
//   - contracts.Options: The finalized options with defaults applied.
//   - error: An error if the log destination could not be opened.
func applyDefaultOptions(opts ...contracts.Option) (contracts.Options, error) {
	options := &contracts.Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.SampleRate <= 0 {
		options.SampleRate = contracts.DefaultSampleRate
	}
	if options.BufferFrames <= 0 {
		options.BufferFrames = contracts.DefaultBufferFrames
	}
	if options.BufferCount <= 0 {
		options.BufferCount = contracts.DefaultBufferCount
	}
	if options.PollInterval <= 0 {
		options.PollInterval = contracts.DefaultPollInterval
	}
	if options.PortConfig == nil {
		options.PortConfig = &contracts.PortConfig{ClientName: contracts.DefaultClientName, DeviceID: -1}
	} else if options.PortConfig.ClientName == "" {
		options.PortConfig.ClientName = contracts.DefaultClientName
	}
	if options.Transport == nil {
		options.Transport = audio.NewPlatformTransport()
	}

	options.Logger.SetLevel(options.LogLevel)
	if options.LogFilePath != "" {
		if err := options.Logger.SetDestination(contracts.FileLog, options.LogFilePath); err != nil {
			return contracts.Options{}, fmt.Errorf("open log file: %w", err)
		}
	}
	return *options, nil
}
