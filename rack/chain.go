// Package rack implements the effect chain engine: an ordered, dynamically
// mutable sequence of stereo effect stages with per-stage bypass/mute,
// sidechain routing, level and CPU metering, and persistence.
//
// The render path (Process/ProcessSidechain) never allocates and never
// blocks. Structural mutations (Add, Remove, Move, FromState) must happen on
// the goroutine that renders, between Process calls; see the engine package
// for a command queue that arranges exactly that. Parameter writes are the
// exception: they go through kaiku.Param atomics and may race freely with
// rendering.
package rack

import (
	"github.com/google/uuid"

	"github.com/kaikusynth/kaiku"
)

type (
	// Effect is one stage of the chain: a processor plus its live controls,
	// flags and meters. Stages are owned exclusively by the chain; the
	// Controls map is the only part shared with other goroutines.
	Effect struct {
		// ID is an optional stable identity for the stage, uuid.Nil when
		// the stage was added without one.
		ID   uuid.UUID
		Name string
		// Controls are the live parameters built by the factory.
		Controls kaiku.Controls

		processor      kaiku.Processor
		sidechain      kaiku.SidechainProcessor
		defs           []kaiku.ParameterDef
		latencySamples int
		bypassed       bool
		muted          bool
		inLevels       levelWindow
		outLevels      levelWindow
		meter          *kaiku.CPUMeter
	}

	// Chain is an ordered list of effects processed first to last. Index 0
	// is the first stage.
	Chain struct {
		effects    []*Effect
		bypassed   bool
		sampleRate float64
		factory    kaiku.EffectFactory
	}
)

const defaultSampleRate = 48000

// New returns an empty chain bound to the given factory. The factory may be
// nil, in which case Add fails until SetFactory is called; this mirrors
// restoring a chain before its plugin set is known.
func New(factory kaiku.EffectFactory) *Chain {
	return &Chain{factory: factory, sampleRate: defaultSampleRate}
}

// SetFactory binds the factory used by Add and FromState.
func (c *Chain) SetFactory(factory kaiku.EffectFactory) {
	c.factory = factory
}

// SampleRate returns the current sample rate.
func (c *Chain) SampleRate() float64 { return c.sampleRate }

// SetSampleRate sets the sample rate for the chain and all current stages.
func (c *Chain) SetSampleRate(rate float64) {
	c.sampleRate = rate
	for _, e := range c.effects {
		e.processor.SetSampleRate(rate)
		e.meter.SetSampleRate(rate)
	}
}

// Add builds the named effect with the factory and appends it as the last
// stage, returning its index. The chain is left unchanged on failure.
func (c *Chain) Add(name string, params map[string]float32) (int, error) {
	return c.AddWithID(uuid.Nil, name, params)
}

// AddWithID is Add with a caller-chosen stage identity, used when restoring
// persisted state or synchronizing with an external view of the chain.
func (c *Chain) AddWithID(id uuid.UUID, name string, params map[string]float32) (int, error) {
	if c.factory == nil {
		return 0, kaiku.ErrNoFactory
	}
	processor, controls, err := c.factory.Build(name, params)
	if err != nil {
		return 0, err
	}
	latency := 0
	var defs []kaiku.ParameterDef
	if meta, ok := c.factory.Metadata(name); ok {
		latency = meta.LatencySamples
		defs = meta.Parameters
	}
	processor.SetSampleRate(c.sampleRate)
	e := &Effect{
		ID:             id,
		Name:           name,
		Controls:       controls,
		defs:           defs,
		processor:      processor,
		sidechain:      c.factory.BuildSidechain(name, params, c.sampleRate),
		latencySamples: latency,
		inLevels:       makeLevelWindow(levelWindowSize),
		outLevels:      makeLevelWindow(levelWindowSize),
		meter:          kaiku.NewCPUMeter(c.sampleRate),
	}
	c.effects = append(c.effects, e)
	return len(c.effects) - 1, nil
}

// Remove removes the stage at index. Returns false if the index is out of
// range; index-based operations fail softly since control surfaces may race
// with concurrent removals.
func (c *Chain) Remove(index int) bool {
	if index < 0 || index >= len(c.effects) {
		return false
	}
	c.effects = append(c.effects[:index], c.effects[index+1:]...)
	return true
}

// Move moves the stage at from to position to, shifting the stages between
// them. Returns false if either index is out of range.
func (c *Chain) Move(from, to int) bool {
	if from < 0 || from >= len(c.effects) || to < 0 || to >= len(c.effects) {
		return false
	}
	e := c.effects[from]
	c.effects = append(c.effects[:from], c.effects[from+1:]...)
	c.effects = append(c.effects[:to], append([]*Effect{e}, c.effects[to:]...)...)
	return true
}

// IndexOf returns the index of the stage with the given ID.
func (c *Chain) IndexOf(id uuid.UUID) (int, bool) {
	if id == uuid.Nil {
		return 0, false
	}
	for i, e := range c.effects {
		if e.ID == id {
			return i, true
		}
	}
	return 0, false
}

// RemoveByID removes the stage with the given ID.
func (c *Chain) RemoveByID(id uuid.UUID) bool {
	if i, ok := c.IndexOf(id); ok {
		return c.Remove(i)
	}
	return false
}

// Bypass sets the bypass flag of the stage at index: a bypassed stage passes
// audio through unchanged. Idempotent; false only for invalid indices.
func (c *Chain) Bypass(index int, bypassed bool) bool {
	if index < 0 || index >= len(c.effects) {
		return false
	}
	c.effects[index].bypassed = bypassed
	return true
}

// Mute sets the mute flag of the stage at index: a muted stage outputs
// silence.
func (c *Chain) Mute(index int, muted bool) bool {
	if index < 0 || index >= len(c.effects) {
		return false
	}
	c.effects[index].muted = muted
	return true
}

// IsBypassed returns the bypass flag of the stage at index.
func (c *Chain) IsBypassed(index int) (bool, bool) {
	if index < 0 || index >= len(c.effects) {
		return false, false
	}
	return c.effects[index].bypassed, true
}

// IsMuted returns the mute flag of the stage at index.
func (c *Chain) IsMuted(index int) (bool, bool) {
	if index < 0 || index >= len(c.effects) {
		return false, false
	}
	return c.effects[index].muted, true
}

// SetParam writes the named live parameter of the stage at index, clamped to
// the range its factory metadata declares, so live writes cannot push a
// processor outside the range build-time parameters are held to. Unknown
// parameter names are silently ignored; only an invalid index returns false.
func (c *Chain) SetParam(index int, name string, value float32) bool {
	if index < 0 || index >= len(c.effects) {
		return false
	}
	e := c.effects[index]
	e.Controls.Set(name, e.clampParam(name, value))
	return true
}

func (e *Effect) clampParam(name string, value float32) float32 {
	for _, d := range e.defs {
		if d.Name == name {
			return d.Clamp(value)
		}
	}
	return value
}

// SetParamByID is SetParam addressed by stage identity.
func (c *Chain) SetParamByID(id uuid.UUID, name string, value float32) bool {
	if i, ok := c.IndexOf(id); ok {
		return c.SetParam(i, name, value)
	}
	return false
}

// Param reads the current value of the named live parameter of the stage at
// index.
func (c *Chain) Param(index int, name string) (float32, bool) {
	if index < 0 || index >= len(c.effects) {
		return 0, false
	}
	return c.effects[index].Controls.Get(name)
}

// SetBypass sets the chain-level bypass; a bypassed chain passes its input
// through all stages unchanged.
func (c *Chain) SetBypass(bypassed bool) { c.bypassed = bypassed }

// Bypassed returns the chain-level bypass flag.
func (c *Chain) Bypassed() bool { return c.bypassed }

// Len returns the number of stages.
func (c *Chain) Len() int { return len(c.effects) }

// Name returns the effect name of the stage at index.
func (c *Chain) Name(index int) (string, bool) {
	if index < 0 || index >= len(c.effects) {
		return "", false
	}
	return c.effects[index].Name, true
}

// EffectID returns the ID of the stage at index, uuid.Nil if it has none.
func (c *Chain) EffectID(index int) (uuid.UUID, bool) {
	if index < 0 || index >= len(c.effects) {
		return uuid.Nil, false
	}
	return c.effects[index].ID, true
}

// Clear removes all stages.
func (c *Chain) Clear() { c.effects = c.effects[:0] }

// TotalLatency returns the summed latency of all non-bypassed stages, in
// samples. Advisory only, for downstream delay compensation.
func (c *Chain) TotalLatency() int {
	total := 0
	for _, e := range c.effects {
		if !e.bypassed {
			total += e.latencySamples
		}
	}
	return total
}

// EffectLatency returns the latency of the stage at index.
func (c *Chain) EffectLatency(index int) (int, bool) {
	if index < 0 || index >= len(c.effects) {
		return 0, false
	}
	return c.effects[index].latencySamples, true
}

// Process runs one stereo sample through every stage in order. This is the
// render-path entry point: no allocation, no locking, no errors.
func (c *Chain) Process(l, r float32) (float32, float32) {
	return c.process(l, r, 0, 0, false)
}

// ProcessSidechain is Process with a sidechain signal: stages that own a
// sidechain-aware processor use it, all others process normally.
func (c *Chain) ProcessSidechain(l, r, scL, scR float32) (float32, float32) {
	return c.process(l, r, scL, scR, true)
}

func (c *Chain) process(l, r, scL, scR float32, hasSidechain bool) (float32, float32) {
	if c.bypassed || len(c.effects) == 0 {
		return l, r
	}
	for _, e := range c.effects {
		e.inLevels.push(l, r)
		switch {
		case e.muted:
			l, r = 0, 0
		case !e.bypassed:
			start := e.meter.StartTiming()
			if hasSidechain && e.sidechain != nil {
				l, r = e.sidechain.ProcessSidechain(l, r, scL, scR)
			} else {
				l, r = e.processor.ProcessSample(l, r)
			}
			e.meter.StopTiming(start, 1)
		}
		// a bypassed stage passes the sample through untouched
		e.outLevels.push(l, r)
	}
	return l, r
}

// Reset resets every stage's processor state, leaving the structure, flags
// and parameters intact.
func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.processor.Reset()
	}
}
