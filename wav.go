package kaiku

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// wavEncoding describes one of the two sample encodings the exporter writes.
// Float data carries a fact chunk and a fmt extension size field; integer
// PCM uses the plain 16-byte fmt chunk. Refer to:
// http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
type wavEncoding struct {
	formatTag      uint16
	bytesPerSample int
	fmtChunkSize   int
	factChunk      bool
}

var (
	wavPCM16   = wavEncoding{formatTag: 1, bytesPerSample: 2, fmtChunkSize: 16}
	wavFloat32 = wavEncoding{formatTag: 3, bytesPerSample: 4, fmtChunkSize: 18, factChunk: true}
)

func wavEncodingFor(pcm16 bool) wavEncoding {
	if pcm16 {
		return wavPCM16
	}
	return wavFloat32
}

// Wav encodes the buffer as a stereo .wav file at the given sample rate. If
// pcm16 is true the samples are converted to 16-bit integer PCM; otherwise
// they are written as 32-bit IEEE floats.
func (b AudioBuffer) Wav(sampleRate int, pcm16 bool) ([]byte, error) {
	enc := wavEncodingFor(pcm16)
	buf := new(bytes.Buffer)
	enc.writeHeader(buf, len(b)*2, sampleRate)
	if err := enc.writeSamples(buf, b.Interleave(nil)); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Raw encodes the buffer as interleaved raw samples, float32 or 16-bit PCM.
func (b AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := wavEncodingFor(pcm16).writeSamples(buf, b.Interleave(nil)); err != nil {
		return nil, fmt.Errorf("Raw failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (e wavEncoding) writeSamples(buf *bytes.Buffer, data []float32) error {
	var err error
	if e.formatTag == wavPCM16.formatTag {
		int16data := make([]int16, len(data))
		for i, v := range data {
			int16data[i] = int16(clamp(int(v*math.MaxInt16), math.MinInt16, math.MaxInt16))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, data)
	}
	if err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %w", err)
	}
	return nil
}

// writeHeader writes the RIFF/WAVE preamble for stereo data. bufferLength is
// the length in individual samples, so stereo frames count twice.
func (e wavEncoding) writeHeader(buf *bytes.Buffer, bufferLength, sampleRate int) {
	const numChannels = 2
	dataSize := e.bytesPerSample * bufferLength
	chunkSize := 20 + e.fmtChunkSize + dataSize
	if e.factChunk {
		chunkSize += 12
	}
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(e.fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, e.formatTag)
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*e.bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*e.bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*e.bytesPerSample))                      // bits per sample
	if e.fmtChunkSize > 16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
	}
	if e.factChunk {
		buf.Write([]byte("fact"))
		binary.Write(buf, binary.LittleEndian, uint32(4))            // fact chunk size
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength)) // sample length
	}
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
