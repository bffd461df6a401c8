package audio

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualTransport queues buffers and lets the test decide when one completes.
type manualTransport struct {
	mu         sync.Mutex
	format     contracts.AudioFormat
	frames     int
	count      int
	onComplete func()
	queue      [][]int16
	enqueued   [][]int16
	playing    bool
	stops      int
	clears     int
	closed     bool
	openErr    error
	playErr    error
}

func (m *manualTransport) Open(format contracts.AudioFormat, frames, count int, onComplete func()) error {
	if m.openErr != nil {
		return m.openErr
	}
	m.format, m.frames, m.count, m.onComplete = format, frames, count, onComplete
	return nil
}

func (m *manualTransport) Enqueue(buf []int16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) >= m.count {
		return errQueueFull
	}
	m.queue = append(m.queue, buf)
	m.enqueued = append(m.enqueued, buf)
	return nil
}

func (m *manualTransport) Play() error {
	if m.playErr != nil {
		return m.playErr
	}
	m.playing = true
	return nil
}

func (m *manualTransport) Stop() error { m.playing = false; m.stops++; return nil }
func (m *manualTransport) Clear()      { m.mu.Lock(); m.queue = nil; m.clears++; m.mu.Unlock() }
func (m *manualTransport) Close() error {
	m.closed = true
	return nil
}

// consume pops the head buffer and reports its completion.
func (m *manualTransport) consume() []int16 {
	m.mu.Lock()
	head := m.queue[0]
	m.queue = m.queue[1:]
	m.mu.Unlock()
	m.onComplete()
	return head
}

func testOptions() *contracts.Options {
	return &contracts.Options{
		Logger:       logger.NewNopLogger(),
		SampleRate:   1000,
		BufferFrames: 4,
		BufferCount:  2,
	}
}

func TestStartPrefillsEveryBuffer(t *testing.T) {
	tr := &manualTransport{}
	r := NewRenderer(tr, testOptions())

	fills := 0
	require.NoError(t, r.Initialize(func(buf []int16, frames int) {
		fills++
		assert.Equal(t, 4, frames)
		assert.Len(t, buf, 8)
		for i := range buf {
			buf[i] = int16(fills)
		}
	}))
	require.NoError(t, r.Start())

	assert.Equal(t, 2, fills)
	assert.True(t, tr.playing)
	require.Len(t, tr.enqueued, 2)
	assert.Equal(t, int16(1), tr.enqueued[0][0])
	assert.Equal(t, int16(2), tr.enqueued[1][0])
	assert.Equal(t, contracts.AudioFormat{SampleRate: 1000, Channels: 2}, tr.format)
	assert.Equal(t, 4, tr.frames)
	assert.Equal(t, 2, tr.count)
}

func TestCompletionRefillsRoundRobin(t *testing.T) {
	tr := &manualTransport{}
	r := NewRenderer(tr, testOptions())
	fills := 0
	require.NoError(t, r.Initialize(func(buf []int16, frames int) { fills++ }))
	require.NoError(t, r.Start())

	first, second := tr.enqueued[0], tr.enqueued[1]
	for i := 0; i < 6; i++ {
		done := tr.consume()
		// the buffer just consumed is the one refilled and resubmitted
		last := tr.enqueued[len(tr.enqueued)-1]
		assert.Same(t, &done[0], &last[0])
	}

	assert.Equal(t, 8, fills)
	assert.Equal(t, uint64(6), r.Cycles())
	order := tr.enqueued[2:]
	for i, buf := range order {
		want := first
		if i%2 == 1 {
			want = second
		}
		assert.Same(t, &want[0], &buf[0], "cycle %d", i)
	}
	assert.Zero(t, r.Dropped())
}

func TestStopIsIdempotentAndHaltsRefill(t *testing.T) {
	tr := &manualTransport{}
	r := NewRenderer(tr, testOptions())
	r.Stop() // never started

	fills := 0
	require.NoError(t, r.Initialize(func(buf []int16, frames int) { fills++ }))
	require.NoError(t, r.Start())
	r.Stop()
	r.Stop()

	assert.Equal(t, 1, tr.stops)
	assert.Equal(t, 1, tr.clears)
	assert.False(t, r.Running())

	tr.onComplete()
	assert.Equal(t, 2, fills)

	require.NoError(t, r.Close())
	assert.True(t, tr.closed)
}

func TestRendererErrors(t *testing.T) {
	r := NewRenderer(&manualTransport{}, testOptions())
	err := r.Start()
	assert.ErrorIs(t, err, contracts.ErrTransportStart)

	r = NewRenderer(&manualTransport{openErr: errors.New("no device")}, testOptions())
	err = r.Initialize(nil)
	assert.ErrorIs(t, err, contracts.ErrTransportInit)
	assert.ErrorIs(t, err, contracts.ErrSetup)

	tr := &manualTransport{playErr: errors.New("rejected")}
	r = NewRenderer(tr, testOptions())
	require.NoError(t, r.Initialize(nil))
	err = r.Start()
	assert.ErrorIs(t, err, contracts.ErrTransportStart)
	assert.False(t, r.Running())
	assert.Equal(t, 1, tr.clears)
}

func TestNilFillRendersSilence(t *testing.T) {
	tr := &manualTransport{}
	r := NewRenderer(tr, testOptions())
	require.NoError(t, r.Initialize(nil))
	r.buffers[0][0] = 42
	require.NoError(t, r.Start())
	assert.Equal(t, make([]int16, 8), tr.enqueued[0])
}

func TestSinkTransportDrivesRenderer(t *testing.T) {
	var (
		mu      sync.Mutex
		written int
	)
	tr := NewSinkTransport(func(buf []int16) error {
		mu.Lock()
		written++
		mu.Unlock()
		return nil
	})
	r := NewRenderer(tr, testOptions())
	require.NoError(t, r.Initialize(nil))
	require.NoError(t, r.Start())

	require.Eventually(t, func() bool { return tr.Written() >= 20 }, time.Second, time.Millisecond)
	require.NoError(t, r.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, written, 20)
	assert.GreaterOrEqual(t, r.Cycles(), uint64(19))
}

func TestClockTransportPacesBuffers(t *testing.T) {
	tr := NewClockTransport()
	opts := testOptions()
	opts.SampleRate = 8000
	opts.BufferFrames = 80 // 10ms per buffer
	r := NewRenderer(tr, opts)
	require.NoError(t, r.Initialize(nil))
	require.NoError(t, r.Start())
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, r.Close())

	assert.Greater(t, tr.Written(), uint64(3))
	assert.Less(t, tr.Written(), uint64(30))
}

func TestWAVTransportWritesPlayableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	format := contracts.AudioFormat{SampleRate: 1000, Channels: 2}
	ww, err := NewWAVWriter(f, format)
	require.NoError(t, err)

	tr := NewWAVTransport(ww)
	r := NewRenderer(tr, testOptions())
	require.NoError(t, r.Initialize(func(buf []int16, frames int) {
		for i := range buf {
			buf[i] = 7
		}
	}))
	require.NoError(t, r.Start())
	require.Eventually(t, func() bool { return ww.Frames() >= 40 }, time.Second, time.Millisecond)
	require.NoError(t, r.Close())
	require.NoError(t, ww.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), wavHeaderSize)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	dataSize := binary.LittleEndian.Uint32(data[40:])
	assert.Equal(t, len(data)-wavHeaderSize, int(dataSize))
	assert.Equal(t, uint32(36)+dataSize, binary.LittleEndian.Uint32(data[4:]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[22:]))
	assert.Equal(t, int16(7), int16(binary.LittleEndian.Uint16(data[wavHeaderSize:])))
}
