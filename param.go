package kaiku

import (
	"math"
	"sync/atomic"
)

// Param is a single float32 shared between the control thread and the render
// thread. The value is published through one atomic word, so readers never
// observe a torn value and writers never block readers. No ordering is
// guaranteed between separate Params written "simultaneously"; each scalar is
// independently atomic and that is the whole contract.
type Param struct {
	bits atomic.Uint32
}

// NewParam returns a Param holding the given initial value.
func NewParam(value float32) *Param {
	p := &Param{}
	p.Set(value)
	return p
}

// Set publishes a new value. Safe to call from any thread; never blocks,
// never allocates.
func (p *Param) Set(value float32) {
	p.bits.Store(math.Float32bits(value))
}

// Value returns the most recently published value.
func (p *Param) Value() float32 {
	return math.Float32frombits(p.bits.Load())
}

// SmoothedParam reads a Param on the render thread through a one-pole
// smoother, removing the zipper noise of abrupt control changes. Next is
// called once per sample by the processor that owns it; the Param itself
// stays the only cross-thread surface.
type SmoothedParam struct {
	target  *Param
	state   float32
	coeff   float32
	started bool
}

// SmoothParam wraps target with a smoothing time constant of roughly tau
// seconds at the given sample rate.
func SmoothParam(target *Param, tau float32, rate float64) *SmoothedParam {
	coeff := float32(math.Exp(-1 / (float64(tau) * rate)))
	return &SmoothedParam{target: target, coeff: coeff}
}

// Next advances the smoother by one sample and returns the smoothed value.
func (s *SmoothedParam) Next() float32 {
	t := s.target.Value()
	if !s.started {
		// jump straight to the target on the first sample so a freshly
		// built processor does not fade in from zero
		s.state = t
		s.started = true
		return t
	}
	s.state = t + (s.state-t)*s.coeff
	return s.state
}

// Reset makes the next call to Next jump directly to the target value.
func (s *SmoothedParam) Reset() {
	s.started = false
}
