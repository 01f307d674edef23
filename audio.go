package kaiku

type (
	// AudioBuffer is a buffer of stereo samples: [i][0] is the left channel,
	// [i][1] the right.
	AudioBuffer [][2]float32

	// AudioSink accepts rendered audio, e.g. a sound card or a file writer.
	AudioSink interface {
		WriteAudio(buffer AudioBuffer) error
		Close() error
	}

	// AudioContext is a handle to an audio backend from which sinks are
	// created.
	AudioContext interface {
		Output() AudioSink
		Close() error
	}
)

// Interleave flattens the buffer into an interleaved L R L R... slice,
// appending to dst (which may be nil).
func (b AudioBuffer) Interleave(dst []float32) []float32 {
	for _, frame := range b {
		dst = append(dst, frame[0], frame[1])
	}
	return dst
}
