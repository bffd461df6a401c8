package synth

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/oggvorbis"
)

// SF3 soundfonts store every sample as an Ogg Vorbis stream inside the smpl
// chunk. expandSF3 rewrites such a file as an SF2 with 16-bit PCM, which is
// the only sample format the engine reads.

const (
	shdrSize         = 46
	sampleTypeVorbis = 0x10
	samplePadFrames  = 46 // zero frames SF2 requires after each sample
)

var errMalformedSoundFont = errors.New("malformed soundfont")

// vorbisDecoder decodes one Ogg Vorbis stream into mono 16-bit samples.
type vorbisDecoder func(ogg []byte) ([]int16, error)

type riffChunk struct {
	id   string
	form string // LIST form type, empty for plain chunks
	data []byte
}

func readChunks(data []byte) ([]riffChunk, error) {
	var chunks []riffChunk
	for len(data) > 0 {
		if len(data) < 8 {
			return nil, fmt.Errorf("%w: truncated chunk header", errMalformedSoundFont)
		}
		id := string(data[:4])
		size := int(binary.LittleEndian.Uint32(data[4:8]))
		if size > len(data)-8 {
			return nil, fmt.Errorf("%w: chunk %q overruns its parent", errMalformedSoundFont, id)
		}
		c := riffChunk{id: id, data: data[8 : 8+size]}
		if id == "LIST" {
			if size < 4 {
				return nil, fmt.Errorf("%w: empty LIST chunk", errMalformedSoundFont)
			}
			c.form, c.data = string(c.data[:4]), c.data[4:]
		}
		chunks = append(chunks, c)
		data = data[8+size:]
		if size%2 == 1 && len(data) > 0 {
			data = data[1:]
		}
	}
	return chunks, nil
}

func writeChunks(buf *bytes.Buffer, chunks []riffChunk) {
	var size [4]byte
	for _, c := range chunks {
		n := len(c.data)
		if c.form != "" {
			n += 4
		}
		binary.LittleEndian.PutUint32(size[:], uint32(n))
		buf.WriteString(c.id)
		buf.Write(size[:])
		buf.WriteString(c.form)
		buf.Write(c.data)
		if n%2 == 1 {
			buf.WriteByte(0)
		}
	}
}

func findChunk(chunks []riffChunk, id, form string) int {
	for i, c := range chunks {
		if c.id == id && c.form == form {
			return i
		}
	}
	return -1
}

// expandSF3 returns data unchanged unless it is a soundfont with
// Vorbis-compressed samples.
func expandSF3(data []byte, decode vorbisDecoder) ([]byte, error) {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "sfbk" {
		return data, nil
	}
	end := min(8+int(binary.LittleEndian.Uint32(data[4:8])), len(data))
	top, err := readChunks(data[12:end])
	if err != nil {
		return nil, err
	}
	sdta, pdta := findChunk(top, "LIST", "sdta"), findChunk(top, "LIST", "pdta")
	if sdta < 0 || pdta < 0 {
		return data, nil
	}
	hydra, err := readChunks(top[pdta].data)
	if err != nil {
		return nil, err
	}
	shdr := findChunk(hydra, "shdr", "")
	if shdr < 0 || len(hydra[shdr].data)%shdrSize != 0 {
		return nil, fmt.Errorf("%w: bad sample headers", errMalformedSoundFont)
	}
	if !hasVorbisSamples(hydra[shdr].data) {
		return data, nil
	}
	sampleData, err := readChunks(top[sdta].data)
	if err != nil {
		return nil, err
	}
	smpl := findChunk(sampleData, "smpl", "")
	if smpl < 0 {
		return nil, fmt.Errorf("%w: no sample data", errMalformedSoundFont)
	}

	headers, pcm, err := decodeSamples(hydra[shdr].data, sampleData[smpl].data, decode)
	if err != nil {
		return nil, err
	}
	hydra[shdr].data = headers
	sdtaBuf := &bytes.Buffer{}
	writeChunks(sdtaBuf, []riffChunk{{id: "smpl", data: pcm}})
	top[sdta].data = sdtaBuf.Bytes()
	pdtaBuf := &bytes.Buffer{}
	writeChunks(pdtaBuf, hydra)
	top[pdta].data = pdtaBuf.Bytes()
	if info := findChunk(top, "LIST", "INFO"); info >= 0 {
		top[info].data = downgradeVersion(top[info].data)
	}

	body := &bytes.Buffer{}
	body.WriteString("sfbk")
	writeChunks(body, top)
	out := &bytes.Buffer{}
	writeChunks(out, []riffChunk{{id: "RIFF", data: body.Bytes()}})
	return out.Bytes(), nil
}

func hasVorbisSamples(headers []byte) bool {
	for i := 0; i+shdrSize <= len(headers); i += shdrSize {
		if binary.LittleEndian.Uint16(headers[i+44:])&sampleTypeVorbis != 0 {
			return true
		}
	}
	return false
}

// decodeSamples lays every sample out again as PCM and rewrites its header.
// Compressed samples address the smpl chunk in bytes and keep loop points
// relative to their own start; PCM samples use absolute frame offsets.
func decodeSamples(shdr, smpl []byte, decode vorbisDecoder) ([]byte, []byte, error) {
	headers := bytes.Clone(shdr)
	var pcm []byte
	le := binary.LittleEndian
	count := len(headers)/shdrSize - 1 // the last record terminates the list
	for i := 0; i < count; i++ {
		h := headers[i*shdrSize : (i+1)*shdrSize]
		name := strings.TrimRight(string(h[:20]), "\x00")
		start, end := int(le.Uint32(h[20:])), int(le.Uint32(h[24:]))
		loopStart, loopEnd := int(le.Uint32(h[28:])), int(le.Uint32(h[32:]))
		sampleType := le.Uint16(h[44:])
		base := len(pcm) / 2

		if sampleType&sampleTypeVorbis != 0 {
			if start > end || end > len(smpl) {
				return nil, nil, fmt.Errorf("%w: sample %q out of range", errMalformedSoundFont, name)
			}
			samples, err := decode(smpl[start:end])
			if err != nil {
				return nil, nil, fmt.Errorf("decode sample %q: %w", name, err)
			}
			for _, v := range samples {
				pcm = le.AppendUint16(pcm, uint16(v))
			}
			loopStart += base
			loopEnd += base
			sampleType &^= sampleTypeVorbis
		} else {
			if start > end || 2*end > len(smpl) {
				return nil, nil, fmt.Errorf("%w: sample %q out of range", errMalformedSoundFont, name)
			}
			pcm = append(pcm, smpl[2*start:2*end]...)
			loopStart += base - start
			loopEnd += base - start
		}
		last := len(pcm) / 2
		pcm = append(pcm, make([]byte, 2*samplePadFrames)...)

		le.PutUint32(h[20:], uint32(base))
		le.PutUint32(h[24:], uint32(last))
		le.PutUint32(h[28:], uint32(max(loopStart, 0)))
		le.PutUint32(h[32:], uint32(max(loopEnd, 0)))
		le.PutUint16(h[44:], sampleType)
	}
	return headers, pcm, nil
}

// downgradeVersion marks the file as SF2 in the ifil sub-chunk.
func downgradeVersion(info []byte) []byte {
	chunks, err := readChunks(info)
	if err != nil {
		return info
	}
	i := findChunk(chunks, "ifil", "")
	if i < 0 || len(chunks[i].data) < 4 || binary.LittleEndian.Uint16(chunks[i].data) < 3 {
		return info
	}
	ifil := bytes.Clone(chunks[i].data)
	binary.LittleEndian.PutUint16(ifil[0:], 2)
	binary.LittleEndian.PutUint16(ifil[2:], 4)
	chunks[i].data = ifil
	buf := &bytes.Buffer{}
	writeChunks(buf, chunks)
	return buf.Bytes()
}

// decodeVorbis decodes an Ogg Vorbis stream, keeping the first channel.
func decodeVorbis(ogg []byte) ([]int16, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(ogg))
	if err != nil {
		return nil, err
	}
	channels := max(format.Channels, 1)
	out := make([]int16, 0, len(samples)/channels)
	for i := 0; i < len(samples); i += channels {
		out = append(out, toInt16(samples[i]))
	}
	return out, nil
}
