package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

const wavHeaderSize = 44

// WAVWriter streams 16-bit PCM into a RIFF/WAVE file. The header is written
// up front with zero sizes and patched by Close.
type WAVWriter struct {
	mu       sync.Mutex
	w        io.WriteSeeker
	format   contracts.AudioFormat
	dataSize uint32
	scratch  []byte
	closed   bool
}

// NewWAVWriter writes a provisional header to w.
func NewWAVWriter(w io.WriteSeeker, format contracts.AudioFormat) (*WAVWriter, error) {
	ww := &WAVWriter{w: w, format: format}
	if _, err := w.Write(ww.header()); err != nil {
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	return ww, nil
}

// WriteSamples appends interleaved samples.
func (ww *WAVWriter) WriteSamples(samples []int16) error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return errors.New("wav writer closed")
	}
	need := len(samples) * bytesPerSample
	if cap(ww.scratch) < need {
		ww.scratch = make([]byte, need)
	}
	buf := ww.scratch[:need]
	putSamples(buf, samples)
	if _, err := ww.w.Write(buf); err != nil {
		return err
	}
	ww.dataSize += uint32(need)
	return nil
}

// Frames returns the number of frames written so far.
func (ww *WAVWriter) Frames() int {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	return int(ww.dataSize) / (bytesPerSample * ww.format.Channels)
}

// Close rewrites the header with the final sizes.
func (ww *WAVWriter) Close() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	ww.closed = true
	if _, err := ww.w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := ww.w.Write(ww.header()); err != nil {
		return err
	}
	_, err := ww.w.Seek(0, io.SeekEnd)
	return err
}

func (ww *WAVWriter) header() []byte {
	channels := ww.format.Channels
	byteRate := ww.format.SampleRate * channels * bytesPerSample
	out := make([]byte, wavHeaderSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], 36+ww.dataSize)
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(ww.format.SampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(channels*bytesPerSample))
	binary.LittleEndian.PutUint16(out[34:], 16)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], ww.dataSize)
	return out
}

// NewWAVTransport returns an offline transport writing every buffer to ww.
func NewWAVTransport(ww *WAVWriter) *PacedTransport {
	return NewSinkTransport(ww.WriteSamples)
}
