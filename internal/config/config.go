// Package config loads file based defaults and locates a soundfont.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
	"gopkg.in/yaml.v3"
)

// Config mirrors the command line flags. Zero values leave the built-in
// defaults in place.
type Config struct {
	SoundFont    string        `yaml:"soundfont"`
	Socket       string        `yaml:"socket"`
	ClientName   string        `yaml:"client_name"`
	DeviceID     *int          `yaml:"device_id"`
	SampleRate   int           `yaml:"sample_rate"`
	BufferFrames int           `yaml:"buffer_frames"`
	BufferCount  int           `yaml:"buffer_count"`
	PollInterval time.Duration `yaml:"poll_interval"`
	LogLevel     string        `yaml:"log_level"`
	LogFile      string        `yaml:"log_file"`
	Watch        bool          `yaml:"watch"`
}

// Load reads a YAML config file. Unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.SampleRate < 0:
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	case c.BufferFrames < 0:
		return fmt.Errorf("buffer_frames must be positive, got %d", c.BufferFrames)
	case c.BufferCount < 0:
		return fmt.Errorf("buffer_count must be positive, got %d", c.BufferCount)
	case c.PollInterval < 0:
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.LogLevel != "" {
		if _, ok := contracts.ParseLogLevel(c.LogLevel); !ok {
			return fmt.Errorf("unknown log_level %q", c.LogLevel)
		}
	}
	return nil
}

// Merge returns c with every non-zero field of override applied on top.
func (c Config) Merge(override Config) Config {
	if override.SoundFont != "" {
		c.SoundFont = override.SoundFont
	}
	if override.Socket != "" {
		c.Socket = override.Socket
	}
	if override.ClientName != "" {
		c.ClientName = override.ClientName
	}
	if override.DeviceID != nil {
		c.DeviceID = override.DeviceID
	}
	if override.SampleRate != 0 {
		c.SampleRate = override.SampleRate
	}
	if override.BufferFrames != 0 {
		c.BufferFrames = override.BufferFrames
	}
	if override.BufferCount != 0 {
		c.BufferCount = override.BufferCount
	}
	if override.PollInterval != 0 {
		c.PollInterval = override.PollInterval
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.LogFile != "" {
		c.LogFile = override.LogFile
	}
	if override.Watch {
		c.Watch = true
	}
	return c
}

// Options converts the configuration into service options. The soundfont
// path is resolved separately with FindSoundFont.
func (c Config) Options() []contracts.Option {
	var opts []contracts.Option
	if c.SampleRate > 0 {
		opts = append(opts, contracts.WithSampleRate(c.SampleRate))
	}
	if c.BufferFrames > 0 || c.BufferCount > 0 {
		opts = append(opts, contracts.WithBuffers(c.BufferFrames, c.BufferCount))
	}
	if c.PollInterval > 0 {
		opts = append(opts, contracts.WithPollInterval(c.PollInterval))
	}
	if c.LogLevel != "" {
		level, _ := contracts.ParseLogLevel(c.LogLevel)
		opts = append(opts, contracts.WithLogLevel(level))
	}
	if c.LogFile != "" {
		opts = append(opts, contracts.WithLogFile(c.LogFile))
	}
	if c.ClientName != "" || c.DeviceID != nil {
		pc := contracts.PortConfig{ClientName: c.ClientName, DeviceID: -1}
		if c.DeviceID != nil {
			pc.DeviceID = *c.DeviceID
		}
		opts = append(opts, contracts.WithPortConfig(pc))
	}
	if c.Watch {
		opts = append(opts, contracts.WithSoundFontWatch(true))
	}
	return opts
}
