package rack

import (
	"github.com/chewxy/math32"
	"github.com/viterin/vek/vek32"
)

// levelWindowSize is the number of frames per metering window. RMS and peak
// are recomputed only when a full window has been collected, so readings
// update every windowSize frames and are stable in between.
const levelWindowSize = 2048

type (
	// Levels is one stereo metering reading: linear RMS and absolute peak
	// over the most recent complete window. Zero until the first window
	// fills.
	Levels struct {
		RMSL, RMSR   float32
		PeakL, PeakR float32
	}

	// levelWindow accumulates frames and batch-computes Levels on wrap.
	levelWindow struct {
		l, r    []float32
		scratch []float32
		cursor  int
		levels  Levels
	}
)

func makeLevelWindow(size int) levelWindow {
	return levelWindow{
		l:       make([]float32, size),
		r:       make([]float32, size),
		scratch: make([]float32, size),
	}
}

func (w *levelWindow) push(l, r float32) {
	w.l[w.cursor] = l
	w.r[w.cursor] = r
	w.cursor++
	if w.cursor == len(w.l) {
		w.cursor = 0
		w.levels = Levels{
			RMSL:  rms(w.l, w.scratch),
			RMSR:  rms(w.r, w.scratch),
			PeakL: peak(w.l, w.scratch),
			PeakR: peak(w.r, w.scratch),
		}
	}
}

func rms(samples, scratch []float32) float32 {
	vek32.Mul_Into(scratch, samples, samples)
	return math32.Sqrt(vek32.Mean(scratch))
}

func peak(samples, scratch []float32) float32 {
	vek32.Abs_Into(scratch, samples)
	return vek32.Max(scratch)
}

// InputLevels returns the input-side metering of the stage at index.
func (c *Chain) InputLevels(index int) (Levels, bool) {
	if index < 0 || index >= len(c.effects) {
		return Levels{}, false
	}
	return c.effects[index].inLevels.levels, true
}

// OutputLevels returns the output-side metering of the stage at index.
func (c *Chain) OutputLevels(index int) (Levels, bool) {
	if index < 0 || index >= len(c.effects) {
		return Levels{}, false
	}
	return c.effects[index].outLevels.levels, true
}
