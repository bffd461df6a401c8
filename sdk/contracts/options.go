package contracts

import "time"

// Defaults used when an option is not provided.
const (
	DefaultSampleRate   = 44100
	DefaultChannels     = 2
	DefaultBufferFrames = 1024
	DefaultBufferCount  = 2
	DefaultPollInterval = 100 * time.Millisecond
	DefaultClientName   = "midisynth"
)

// PortEventFilter restricts which port event kinds reach the synthesizer.
type PortEventFilter struct {
	Kinds []EventKind // Allowed kinds. Empty means all.
}

// Allows reports whether kind passes the filter.
func (f *PortEventFilter) Allows(kind EventKind) bool {
	if f == nil || len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// PortConfig holds configuration for the sequencer port backend.
type PortConfig struct {
	ClientName string // Name announced to the system sequencer.
	DeviceID   int    // Source to connect to on backends without virtual ports; -1 picks the first.
}

// Options defines the configuration of a synthesizer service.
type Options struct {
	Logger          Logger           // Logger for logging events and errors.
	LogLevel        LogLevel         // Level of logging to use.
	LogFilePath     string           // File path for logging if file logging is enabled.
	SoundFontPath   string           // Soundfont to load; empty triggers discovery.
	SampleRate      int              // Output sample rate in Hz.
	BufferFrames    int              // Frames per audio buffer.
	BufferCount     int              // Number of alternating audio buffers.
	PollInterval    time.Duration    // Bounded wait used by listener loops.
	EngineFactory   EngineFactory    // Tone engine constructor.
	Transport       AudioTransport   // Audio output; nil selects the platform default.
	PortConfig      *PortConfig      // Sequencer port configuration.
	PortEventFilter *PortEventFilter // Optional filter for port events.
	WatchSoundFont  bool             // Reload the soundfont when the file changes.
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(opts *Options) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level LogLevel) Option {
	return func(opts *Options) {
		opts.LogLevel = level
	}
}

// WithLogFile directs logs to a file.
func WithLogFile(path string) Option {
	return func(opts *Options) {
		opts.LogFilePath = path
	}
}

// WithSoundFont sets the soundfont path.
func WithSoundFont(path string) Option {
	return func(opts *Options) {
		opts.SoundFontPath = path
	}
}

// WithSampleRate sets the output sample rate.
func WithSampleRate(rate int) Option {
	return func(opts *Options) {
		opts.SampleRate = rate
	}
}

// WithBuffers sets the audio buffer size in frames and the buffer count.
func WithBuffers(frames, count int) Option {
	return func(opts *Options) {
		opts.BufferFrames = frames
		opts.BufferCount = count
	}
}

// WithPollInterval sets the listener poll timeout.
func WithPollInterval(d time.Duration) Option {
	return func(opts *Options) {
		opts.PollInterval = d
	}
}

// WithEngineFactory overrides the tone engine constructor.
func WithEngineFactory(f EngineFactory) Option {
	return func(opts *Options) {
		opts.EngineFactory = f
	}
}

// WithTransport sets the audio transport.
func WithTransport(t AudioTransport) Option {
	return func(opts *Options) {
		opts.Transport = t
	}
}

// WithPortConfig sets the sequencer port configuration.
func WithPortConfig(config PortConfig) Option {
	return func(opts *Options) {
		opts.PortConfig = &config
	}
}

// WithPortEventFilter sets the port event filter.
func WithPortEventFilter(filter PortEventFilter) Option {
	return func(opts *Options) {
		opts.PortEventFilter = &filter
	}
}

// WithSoundFontWatch enables soundfont hot reload.
func WithSoundFontWatch(enabled bool) Option {
	return func(opts *Options) {
		opts.WatchSoundFont = enabled
	}
}
