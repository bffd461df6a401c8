//go:build !headless

package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
	otoFormat      contracts.AudioFormat
)

// sharedOtoContext returns the process-wide oto context. oto allows only one.
func sharedOtoContext(format contracts.AudioFormat, bufferFrames int) (*oto.Context, error) {
	otoContextOnce.Do(func() {
		otoFormat = format
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   time.Duration(bufferFrames) * time.Second / time.Duration(format.SampleRate),
		})
		if err != nil {
			otoContextErr = err
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoContextErr != nil {
		return nil, otoContextErr
	}
	if otoFormat != format {
		return nil, fmt.Errorf("audio context already initialized at %d Hz/%d ch", otoFormat.SampleRate, otoFormat.Channels)
	}
	return otoContext, nil
}

// OtoTransport plays queued buffers through oto. oto pulls audio through Read
// on its own goroutine, which is the callback context: Read copies from the
// head buffer, fires the completion callback once a buffer is drained and
// pads with silence when the queue runs dry.
type OtoTransport struct {
	bufferQueue

	mu     sync.Mutex // setup/control only
	player *oto.Player

	readMu    sync.Mutex
	head      []int16
	pos       int
	playing   atomic.Bool
	underruns atomic.Uint64
}

// NewPlatformTransport returns the default hardware transport.
func NewPlatformTransport() contracts.AudioTransport {
	return &OtoTransport{}
}

func (t *OtoTransport) Open(format contracts.AudioFormat, bufferFrames, bufferCount int, onComplete func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.player != nil {
		return errors.New("oto transport already open")
	}
	ctx, err := sharedOtoContext(format, bufferFrames)
	if err != nil {
		return fmt.Errorf("cannot create oto context: %w", err)
	}
	t.open(bufferCount, onComplete)
	t.player = ctx.NewPlayer(t)
	t.player.SetBufferSize(bufferFrames * format.Channels * bytesPerSample)
	return nil
}

func (t *OtoTransport) Enqueue(buf []int16) error {
	return t.enqueue(buf)
}

func (t *OtoTransport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.player == nil {
		return errors.New("oto transport not open")
	}
	t.playing.Store(true)
	t.player.Play()
	return t.player.Err()
}

func (t *OtoTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing.Store(false)
	if t.player != nil {
		t.player.Pause()
	}
	return nil
}

func (t *OtoTransport) Clear() {
	t.readMu.Lock()
	t.head, t.pos = nil, 0
	t.readMu.Unlock()
	t.drain()
}

func (t *OtoTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing.Store(false)
	if t.player == nil {
		return nil
	}
	err := t.player.Close()
	t.player = nil
	if err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

// Underruns counts Read calls that found no queued audio while playing.
func (t *OtoTransport) Underruns() uint64 {
	return t.underruns.Load()
}

// Read implements io.Reader for the oto player.
func (t *OtoTransport) Read(p []byte) (int, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	n := 0
	for n+bytesPerSample <= len(p) {
		if t.head == nil {
			buf, ok := t.tryNext()
			if !ok {
				if t.playing.Load() {
					t.underruns.Add(1)
				}
				clear(p[n:])
				return len(p), nil
			}
			t.head, t.pos = buf, 0
		}
		written := putSamples(p[n:], t.head[t.pos:])
		n += written * bytesPerSample
		t.pos += written
		if t.pos >= len(t.head) {
			t.head = nil
			t.complete()
		}
	}
	return n, nil
}
