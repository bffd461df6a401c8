// Package midisynth is the public entry point: it wires one event source, the
// audio renderer and the synthesizer facade for each run mode.
package midisynth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/leandrodaf/midisynth/internal/audio"
	"github.com/leandrodaf/midisynth/internal/command"
	"github.com/leandrodaf/midisynth/internal/config"
	"github.com/leandrodaf/midisynth/internal/port"
	"github.com/leandrodaf/midisynth/internal/sequence"
	"github.com/leandrodaf/midisynth/internal/synth"
	"github.com/leandrodaf/midisynth/internal/watch"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// DefaultRenderTail is the audio rendered after the last event of an offline
// render, so that released notes can decay.
const DefaultRenderTail = time.Second

// ListenOptions selects the transport of the live command source.
type ListenOptions struct {
	Socket  string    // Unix socket path. Empty reads commands from Input.
	Input   io.Reader // Command stream; defaults to os.Stdin.
	OnReady func()    // Called once commands are accepted.
}

// liveSource is an event source whose loop can fail mid-run.
type liveSource interface {
	contracts.Source
	Err() error
}

// Service owns the synthesizer and runs one mode at a time.
type Service struct {
	options    contracts.Options
	logger     contracts.Logger
	synth      *synth.Synthesizer
	openPort   func(*contracts.Options) (contracts.SequencerPort, error)
	renderTail time.Duration
	debounce   time.Duration
}

// NewService creates a service with the specified options.
// It applies default options and builds the synthesizer facade. No soundfont
// is loaded until a mode needs one.
//
// opts ...contracts.Option: A variadic list of option functions to customize the service.
//
// Returns:
//   - *Service: The service.
//   - error: An error, if any occurred while applying the options.
func NewService(opts ...contracts.Option) (*Service, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Service{
		options:    options,
		logger:     options.Logger,
		synth:      synth.NewSynthesizer(&options),
		openPort:   OpenPort,
		renderTail: DefaultRenderTail,
		debounce:   watch.DefaultDebounce,
	}, nil
}

// LoadSoundFont resolves the soundfont through the discovery chain and loads
// it. It does nothing if a soundfont is already loaded.
func (s *Service) LoadSoundFont() (string, error) {
	if s.synth.Loaded() {
		return s.synth.SoundFont(), nil
	}
	path, err := config.FindSoundFont(s.options.SoundFontPath)
	if err != nil {
		s.logger.Error("No soundfont available", s.logger.Field().Error("error", err))
		return "", err
	}
	s.logger.Info("Loading soundfont", s.logger.Field().String("path", path))
	if err := s.synth.LoadSoundFont(path); err != nil {
		return "", err
	}
	return path, nil
}

// SoundFont returns the path of the loaded soundfont, or "".
func (s *Service) SoundFont() string { return s.synth.SoundFont() }

// ListInstruments loads the soundfont and returns its preset names in order.
func (s *Service) ListInstruments() ([]string, error) {
	if _, err := s.LoadSoundFont(); err != nil {
		return nil, err
	}
	return s.synth.Presets(), nil
}

// ListPorts lists the MIDI sources of the running OS.
func (s *Service) ListPorts() ([]contracts.PortInfo, error) {
	return ListPorts(&s.options)
}

// Play renders file in real time on the configured transport. It returns when
// the sequence has finished or ctx is done.
func (s *Service) Play(ctx context.Context, file string) error {
	if err := s.prepare(); err != nil {
		return err
	}
	player := sequence.NewPlayer(s.synth, &s.options)
	if err := player.Load(file); err != nil {
		return err
	}

	renderer := audio.NewRenderer(s.options.Transport, &s.options)
	if err := s.startPlayer(renderer, player); err != nil {
		return err
	}
	s.logger.Info("Playing",
		s.logger.Field().String("file", file),
		s.logger.Field().Float64("durationMs", player.Duration()))

	err := s.supervise(ctx, player.Done())
	if player.Finished() {
		s.logger.Info("Playback finished")
	} else {
		s.logger.Info("Playback interrupted", s.logger.Field().Float64("positionMs", player.Clock()))
	}
	player.Stop()
	return multierr.Append(err, renderer.Close())
}

// Render writes file to out as a WAV file, as fast as the engine renders.
// DefaultRenderTail of audio follows the last event.
func (s *Service) Render(ctx context.Context, file, out string) (err error) {
	if err := s.prepare(); err != nil {
		return err
	}
	player := sequence.NewPlayer(s.synth, &s.options)
	if err := player.Load(file); err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	ww, err := audio.NewWAVWriter(f, contracts.AudioFormat{
		SampleRate: s.synth.SampleRate(),
		Channels:   contracts.DefaultChannels,
	})
	if err != nil {
		return err
	}
	transport := audio.NewWAVTransport(ww)
	renderer := audio.NewRenderer(transport, &s.options)
	if err := s.startPlayer(renderer, player); err != nil {
		return multierr.Append(err, ww.Close())
	}

	err = s.awaitTail(ctx, player.Done(), transport, ww.Frames)
	player.Stop()
	closeErr := multierr.Combine(renderer.Close(), ww.Close())
	if err == nil {
		err = transport.Err()
	}
	err = multierr.Append(err, closeErr)
	if err == nil {
		s.logger.Info("Render finished",
			s.logger.Field().String("output", out),
			s.logger.Field().Int("frames", ww.Frames()))
	}
	return err
}

// Listen executes text commands from a stream or a unix socket until the
// source ends, a quit command arrives or ctx is done.
func (s *Service) Listen(ctx context.Context, lo ListenOptions) error {
	if err := s.prepare(); err != nil {
		return err
	}
	var src liveSource
	if lo.Socket != "" {
		src = command.NewSocketSource(lo.Socket, s.synth, &s.options)
	} else {
		input := lo.Input
		if input == nil {
			input = os.Stdin
		}
		src = command.NewStreamSource(input, s.synth, &s.options)
	}
	return s.runSource(ctx, src, lo.OnReady)
}

// Serve plays events arriving on the system sequencer port. onReady, if set,
// receives the port name once the port is listening.
func (s *Service) Serve(ctx context.Context, onReady func(portName string)) error {
	if err := s.prepare(); err != nil {
		return err
	}
	p, err := s.openPort(&s.options)
	if err != nil {
		if !errors.Is(err, contracts.ErrSetup) {
			err = fmt.Errorf("%w: %w", contracts.ErrPortOpen, err)
		}
		s.logger.Error("Failed to open sequencer port", s.logger.Field().Error("error", err))
		return err
	}
	src := port.NewSource(p, s.synth, &s.options)
	return s.runSource(ctx, src, func() {
		if onReady != nil {
			onReady(src.PortName())
		}
	})
}

// Close releases the engine and flushes the logger.
func (s *Service) Close() error {
	s.synth.Close()
	return s.logger.Sync()
}

// prepare loads the soundfont and fixes the output format.
func (s *Service) prepare() error {
	if _, err := s.LoadSoundFont(); err != nil {
		return err
	}
	return s.synth.SetOutputFormat(s.options.SampleRate, contracts.DefaultChannels)
}

// startPlayer wires the player ahead of the engine in the fill function, so
// events due in a buffer are applied before that buffer is rendered.
func (s *Service) startPlayer(renderer *audio.Renderer, player *sequence.Player) error {
	err := renderer.Initialize(func(buf []int16, frames int) {
		player.Process(frames)
		s.synth.Render(buf, frames)
	})
	if err != nil {
		return err
	}
	player.Play()
	if err := renderer.Start(); err != nil {
		return multierr.Append(err, renderer.Close())
	}
	return nil
}

// runSource starts audio, then src, and tears both down in reverse order.
func (s *Service) runSource(ctx context.Context, src liveSource, onReady func()) error {
	renderer := audio.NewRenderer(s.options.Transport, &s.options)
	err := renderer.Initialize(s.synth.Render)
	if err == nil {
		err = renderer.Start()
	}
	if err != nil {
		src.Stop()
		return multierr.Append(err, renderer.Close())
	}

	quit := make(chan struct{})
	if err := src.Start(func() { close(quit) }); err != nil {
		src.Stop()
		return multierr.Append(err, renderer.Close())
	}
	if onReady != nil {
		onReady()
	}

	err = s.supervise(ctx, quit)
	src.Stop()
	s.synth.AllNotesOff()
	return multierr.Combine(err, src.Err(), renderer.Close())
}

// supervise blocks until done is closed or ctx ends. When soundfont watching
// is enabled the watcher runs alongside and stops with it.
func (s *Service) supervise(ctx context.Context, done <-chan struct{}) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if s.options.WatchSoundFont {
		w, err := watch.New(s.synth.SoundFont(), s.synth.LoadSoundFont, s.logger)
		if err != nil {
			s.logger.Warn("Soundfont watch disabled", s.logger.Field().Error("error", err))
		} else {
			w.SetDebounce(s.debounce)
			s.logger.Info("Watching soundfont", s.logger.Field().String("path", s.synth.SoundFont()))
			g.Go(func() error { return w.Run(gctx) })
		}
	}
	g.Go(func() error {
		select {
		case <-done:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}

// errReporter is a transport that records write failures instead of
// stopping on them.
type errReporter interface {
	Err() error
}

// awaitTail waits for done, then for renderTail more frames to be written.
// It gives up as soon as the transport reports a failure, since frames stop
// advancing after one.
func (s *Service) awaitTail(ctx context.Context, done <-chan struct{}, transport errReporter, frames func() int) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	target := -1
	for {
		if err := transport.Err(); err != nil {
			return err
		}
		if target < 0 {
			select {
			case <-done:
				target = frames() + int(s.renderTail.Seconds()*float64(s.synth.SampleRate()))
			default:
			}
		}
		if target >= 0 && frames() >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
