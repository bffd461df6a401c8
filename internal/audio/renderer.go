// Package audio drives buffer-queue audio transports from a fill function.
package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// FillFunc fills buf with frames of interleaved samples. It runs on the
// transport's callback context and must not block.
type FillFunc func(buf []int16, frames int)

// underrunCounter is implemented by transports that track starvation.
type underrunCounter interface {
	Underruns() uint64
}

// Renderer owns a fixed ring of sample buffers. Each completion reported by
// the transport refills exactly one buffer, in round-robin order, and submits
// it again.
type Renderer struct {
	transport contracts.AudioTransport
	logger    contracts.Logger
	format    contracts.AudioFormat
	frames    int
	buffers   [][]int16
	fill      FillFunc

	mu          sync.Mutex // setup and control only
	initialized bool
	running     atomic.Bool
	current     int // next buffer to refill; touched by Start and the callback only
	cycles      atomic.Uint64
	dropped     atomic.Uint64
}

// NewRenderer allocates the buffer ring described by options.
func NewRenderer(transport contracts.AudioTransport, options *contracts.Options) *Renderer {
	frames := options.BufferFrames
	if frames <= 0 {
		frames = contracts.DefaultBufferFrames
	}
	count := options.BufferCount
	if count <= 0 {
		count = contracts.DefaultBufferCount
	}
	rate := options.SampleRate
	if rate <= 0 {
		rate = contracts.DefaultSampleRate
	}
	format := contracts.AudioFormat{SampleRate: rate, Channels: contracts.DefaultChannels}

	buffers := make([][]int16, count)
	for i := range buffers {
		buffers[i] = make([]int16, frames*format.Channels)
	}
	return &Renderer{
		transport: transport,
		logger:    options.Logger,
		format:    format,
		frames:    frames,
		buffers:   buffers,
	}
}

// Initialize configures the transport and stores the fill function.
func (r *Renderer) Initialize(fill FillFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fill = fill
	if err := r.transport.Open(r.format, r.frames, len(r.buffers), r.onBufferComplete); err != nil {
		r.logger.Error("Failed to initialize audio transport", r.logger.Field().Error("error", err))
		return fmt.Errorf("%w: %v", contracts.ErrTransportInit, err)
	}
	r.initialized = true
	r.logger.Debug("Audio transport initialized",
		r.logger.Field().Int("sampleRate", r.format.SampleRate),
		r.logger.Field().Int("bufferFrames", r.frames),
		r.logger.Field().Int("buffers", len(r.buffers)))
	return nil
}

// Start pre-fills and submits every buffer, then starts playback.
func (r *Renderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return fmt.Errorf("%w: renderer not initialized", contracts.ErrTransportStart)
	}
	if r.running.Load() {
		return nil
	}

	r.running.Store(true)
	r.current = 0
	for i := range r.buffers {
		r.fillBuffer(i)
	}
	if err := r.transport.Play(); err != nil {
		r.running.Store(false)
		r.transport.Clear()
		r.logger.Error("Failed to start playback", r.logger.Field().Error("error", err))
		return fmt.Errorf("%w: %v", contracts.ErrTransportStart, err)
	}
	r.logger.Debug("Audio playback started")
	return nil
}

// Stop halts playback and drops pending buffers. It is safe to call at any time.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running.Swap(false) {
		return
	}
	if err := r.transport.Stop(); err != nil {
		r.logger.Warn("Audio transport stop failed", r.logger.Field().Error("error", err))
	}
	r.transport.Clear()
	r.logger.Debug("Audio playback stopped", r.logger.Field().Uint64("cycles", r.cycles.Load()))
}

// Close stops playback and releases the transport.
func (r *Renderer) Close() error {
	r.Stop()
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return nil
	}
	r.initialized = false
	return r.transport.Close()
}

// Running reports whether playback was started and not stopped.
func (r *Renderer) Running() bool { return r.running.Load() }

// Cycles returns how many buffers were refilled after completion.
func (r *Renderer) Cycles() uint64 { return r.cycles.Load() }

// Underruns returns the transport's starvation count, if it keeps one.
func (r *Renderer) Underruns() uint64 {
	if u, ok := r.transport.(underrunCounter); ok {
		return u.Underruns()
	}
	return 0
}

// Format returns the output format.
func (r *Renderer) Format() contracts.AudioFormat { return r.format }

// onBufferComplete runs on the transport's callback context.
func (r *Renderer) onBufferComplete() {
	if !r.running.Load() {
		return
	}
	r.fillBuffer(r.current)
	r.current = (r.current + 1) % len(r.buffers)
	r.cycles.Add(1)
}

func (r *Renderer) fillBuffer(i int) {
	buf := r.buffers[i]
	if r.fill != nil {
		r.fill(buf, r.frames)
	} else {
		clear(buf)
	}
	if err := r.transport.Enqueue(buf); err != nil {
		r.dropped.Add(1)
	}
}

// Dropped returns how many filled buffers the transport refused.
func (r *Renderer) Dropped() uint64 { return r.dropped.Load() }
