package port

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leandrodaf/midisynth/internal/logger"
	"github.com/leandrodaf/midisynth/internal/synthtest"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPoll = 10 * time.Millisecond

func testOptions() *contracts.Options {
	return &contracts.Options{Logger: logger.NewNopLogger(), PollInterval: testPoll}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("source did not exit")
	}
}

func TestSourceTranslatesEvents(t *testing.T) {
	closed := 0
	q := NewQueue("128:0", 16, logger.NewNopLogger(), func() error { closed++; return nil })
	rec := &synthtest.Recorder{}
	src := NewSource(q, rec, testOptions())
	assert.Equal(t, "128:0", src.PortName())

	q.PushEvent(contracts.PortEvent{Kind: contracts.EventNoteOn, Channel: 0, Param: 60, Value: 127})
	q.PushEvent(contracts.PortEvent{Kind: contracts.EventNoteOn, Channel: 0, Param: 60, Value: 0})
	q.PushEvent(contracts.PortEvent{Kind: contracts.EventNoteOff, Channel: 1, Param: 62})
	q.PushEvent(contracts.PortEvent{Kind: contracts.EventControlChange, Channel: 2, Param: 7, Value: 100})
	q.PushEvent(contracts.PortEvent{Kind: contracts.EventControl14, Channel: 2, Param: 1, Value: 16383})
	q.PushEvent(contracts.PortEvent{Kind: contracts.EventProgramChange, Channel: 9, Value: 3})
	q.PushEvent(contracts.PortEvent{Kind: contracts.EventPitchBend, Channel: 0, Value: -8192})
	q.PushEvent(contracts.PortEvent{Kind: contracts.EventPitchBend, Channel: 0, Value: 0})
	q.PushEvent(contracts.PortEvent{Kind: contracts.EventPitchBend, Channel: 0, Value: 8191})
	q.PushEvent(contracts.PortEvent{Kind: contracts.EventUnknown, Channel: 0})

	var quits atomic.Int32
	require.NoError(t, src.Start(func() { quits.Add(1) }))
	require.Eventually(t, func() bool { return src.Received()+src.Ignored() == 10 }, 2*time.Second, time.Millisecond)
	src.Stop()

	assert.Equal(t, []synthtest.Call{
		"noteOn(0,60,1.00)",
		"noteOff(0,60)",
		"noteOff(1,62)",
		"cc(2,7,100)",
		"cc(2,1,127)",
		"pc(9,3)",
		"pitch(0,0)",
		"pitch(0,8192)",
		"pitch(0,16383)",
	}, rec.Calls())
	assert.Equal(t, uint64(1), src.Ignored())
	assert.Equal(t, int32(1), quits.Load())
	assert.Equal(t, 1, closed, "the source closes its port")
	assert.NoError(t, src.Err())
}

func TestSourceAppliesFilter(t *testing.T) {
	q := NewQueue("test", 16, logger.NewNopLogger(), nil)
	rec := &synthtest.Recorder{}
	opts := testOptions()
	opts.PortEventFilter = &contracts.PortEventFilter{Kinds: []contracts.EventKind{contracts.EventNoteOn, contracts.EventNoteOff}}
	src := NewSource(q, rec, opts)

	q.Push([]byte{0xC0, 5})
	q.Push([]byte{0x90, 64, 90})
	q.Push([]byte{0xE0, 0, 0x40})
	q.Push([]byte{0x80, 64, 0})

	require.NoError(t, src.Start(nil))
	require.Eventually(t, func() bool { return src.Received()+src.Ignored() == 4 }, 2*time.Second, time.Millisecond)
	src.Stop()

	assert.Equal(t, []synthtest.Call{"noteOn(0,64,0.71)", "noteOff(0,64)"}, rec.Calls())
	assert.Equal(t, uint64(2), src.Ignored())
}

func TestSourceExitsWhenPortCloses(t *testing.T) {
	q := NewQueue("test", 16, logger.NewNopLogger(), nil)
	src := NewSource(q, &synthtest.Recorder{}, testOptions())
	var quits atomic.Int32
	require.NoError(t, src.Start(func() { quits.Add(1) }))

	require.NoError(t, q.Close())
	waitDone(t, src.Done())
	assert.False(t, src.Running())
	assert.NoError(t, src.Err())
	assert.Equal(t, int32(1), quits.Load())
}

func TestSourceExitsOnTransportError(t *testing.T) {
	q := NewQueue("test", 16, logger.NewNopLogger(), nil)
	src := NewSource(q, &synthtest.Recorder{}, testOptions())
	var quits atomic.Int32
	require.NoError(t, src.Start(func() { quits.Add(1) }))

	q.Fail(errors.New("device unplugged"))
	waitDone(t, src.Done())
	assert.ErrorIs(t, src.Err(), contracts.ErrRuntimeTransport)
	assert.Contains(t, src.Err().Error(), "device unplugged")
	assert.Equal(t, int32(1), quits.Load())
}

func TestConcurrentStopQuitsOnce(t *testing.T) {
	q := NewQueue("test", 16, logger.NewNopLogger(), nil)
	src := NewSource(q, &synthtest.Recorder{}, testOptions())
	var quits atomic.Int32
	require.NoError(t, src.Start(func() { quits.Add(1) }))
	assert.True(t, src.Running())

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.Stop()
		}()
	}
	wg.Wait()
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int32(1), quits.Load())
	assert.ErrorIs(t, src.Start(nil), errAlreadyStarted)
}

func TestStopWithoutStartClosesPort(t *testing.T) {
	closed := 0
	q := NewQueue("test", 16, logger.NewNopLogger(), func() error { closed++; return nil })
	src := NewSource(q, &synthtest.Recorder{}, testOptions())
	src.Stop()
	src.Stop()
	assert.Equal(t, 1, closed)
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue("test", 2, logger.NewNopLogger(), nil)
	for i := 0; i < 5; i++ {
		q.PushEvent(contracts.PortEvent{Kind: contracts.EventNoteOn, Param: i, Value: 1})
	}
	assert.Equal(t, uint64(3), q.Dropped())

	ev, ok, err := q.Receive(testPoll)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, ev.Param)

	_, _, _ = q.Receive(testPoll)
	_, ok, err = q.Receive(testPoll)
	assert.NoError(t, err)
	assert.False(t, ok, "timed out")

	require.NoError(t, q.Close())
	_, _, err = q.Receive(testPoll)
	assert.ErrorIs(t, err, contracts.ErrPortClosed)
}

