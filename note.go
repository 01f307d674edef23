package kaiku

import "github.com/chewxy/math32"

// NoteToFreq converts a MIDI note number to a frequency in Hz, using equal
// temperament with A4 (note 69) at 440 Hz.
func NoteToFreq(note byte) float32 {
	return 440 * math32.Exp2((float32(note)-69)/12)
}

// SemitonesToRatio converts a pitch offset in semitones to a frequency
// multiplier: 0 semitones is 1.0, +12 is 2.0, -12 is 0.5.
func SemitonesToRatio(semitones float32) float32 {
	return math32.Exp2(semitones / 12)
}
