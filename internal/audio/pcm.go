package audio

import "encoding/binary"

// bytesPerSample is the size of one signed 16-bit sample.
const bytesPerSample = 2

// putSamples encodes samples as little-endian int16 into dst and returns the
// number of samples written.
func putSamples(dst []byte, samples []int16) int {
	n := len(dst) / bytesPerSample
	if n > len(samples) {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(dst[i*bytesPerSample:], uint16(samples[i]))
	}
	return n
}
