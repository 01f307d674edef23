// Package engine ties the effect chain and the voice pool together behind a
// single render loop. Control threads (MIDI handlers, UIs, sequencers) post
// events through a bounded queue; the render goroutine drains the queue at
// the top of every Render call and applies all structural mutations there,
// so the chain and the pool are only ever touched between buffers and the
// per-sample path stays free of locks and allocation.
package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/kaikusynth/kaiku"
	"github.com/kaikusynth/kaiku/poly"
	"github.com/kaikusynth/kaiku/rack"
)

type (
	noteOnEvent struct {
		note     byte
		velocity float32
	}
	noteOffEvent     struct{ note byte }
	allNotesOffEvent struct{}
	pitchBendEvent   struct{ semitones float32 }
	pressureEvent    struct{ pressure float32 }
	cutoffEvent      struct{ hz float32 }
	resonanceEvent   struct{ q float32 }
	sourceEvent      struct {
		name   string
		params map[string]float32
	}
	addEffectEvent struct {
		name   string
		params map[string]float32
	}
	removeEffectEvent struct{ index int }
	moveEffectEvent   struct{ from, to int }
	bypassEvent       struct {
		index    int
		bypassed bool
	}
	muteEvent struct {
		index int
		muted bool
	}
	paramEvent struct {
		index int
		name  string
		value float32
	}
	stateEvent struct{ state rack.State }

	// Engine owns one chain and one voice pool. All exported methods except
	// Render, Chain and Voices may be called from any goroutine; Render
	// must always run on the same goroutine, and Chain/Voices hand out the
	// render goroutine's exclusive property.
	Engine struct {
		chain  *rack.Chain
		voices *poly.Manager
		events chan any
		master *kaiku.CPUMeter
		log    logrus.FieldLogger
	}
)

// queueSize bounds the number of control events pending between two Render
// calls. At typical buffer cadence this is far more than any live source
// produces; overflow drops the event rather than blocking the sender.
const queueSize = 256

// New returns an engine rendering the named synth sound through an initially
// empty effect chain.
func New(effects kaiku.EffectFactory, synths kaiku.SynthFactory, source string, maxVoices int) *Engine {
	return &Engine{
		chain:  rack.New(effects),
		voices: poly.New(synths, source, maxVoices),
		events: make(chan any, queueSize),
		master: kaiku.NewCPUMeter(48000),
		log:    logrus.StandardLogger(),
	}
}

// SetLogger replaces the logger. Call before the engine is shared between
// goroutines.
func (e *Engine) SetLogger(log logrus.FieldLogger) { e.log = log }

// SetSampleRate sets the sample rate everywhere. Render goroutine only.
func (e *Engine) SetSampleRate(rate float64) {
	e.chain.SetSampleRate(rate)
	e.voices.SetSampleRate(rate)
	e.master.SetSampleRate(rate)
}

// Chain returns the effect chain. Render goroutine only.
func (e *Engine) Chain() *rack.Chain { return e.chain }

// Voices returns the voice pool. Render goroutine only.
func (e *Engine) Voices() *poly.Manager { return e.voices }

func (e *Engine) post(event any) {
	select {
	case e.events <- event:
	default:
		e.log.WithField("event", event).Warn("event queue full, dropping")
	}
}

// NoteOn queues a note trigger.
func (e *Engine) NoteOn(note byte, velocity float32) { e.post(noteOnEvent{note, velocity}) }

// NoteOff queues a note release.
func (e *Engine) NoteOff(note byte) { e.post(noteOffEvent{note}) }

// AllNotesOff queues a release of every sounding voice.
func (e *Engine) AllNotesOff() { e.post(allNotesOffEvent{}) }

// PitchBend queues a bend, in semitones, of all sounding voices.
func (e *Engine) PitchBend(semitones float32) { e.post(pitchBendEvent{semitones}) }

// SetPressure queues a channel pressure change.
func (e *Engine) SetPressure(pressure float32) { e.post(pressureEvent{pressure}) }

// SetCutoff queues a filter cutoff change for voices that have one.
func (e *Engine) SetCutoff(hz float32) { e.post(cutoffEvent{hz}) }

// SetResonance queues a filter resonance change for voices that have one.
func (e *Engine) SetResonance(q float32) { e.post(resonanceEvent{q}) }

// SetSource queues a switch of the synth sound used for new notes.
func (e *Engine) SetSource(name string, params map[string]float32) {
	e.post(sourceEvent{name, params})
}

// AddEffect queues appending an effect to the chain.
func (e *Engine) AddEffect(name string, params map[string]float32) {
	e.post(addEffectEvent{name, params})
}

// RemoveEffect queues removal of the chain stage at index.
func (e *Engine) RemoveEffect(index int) { e.post(removeEffectEvent{index}) }

// MoveEffect queues reordering a chain stage.
func (e *Engine) MoveEffect(from, to int) { e.post(moveEffectEvent{from, to}) }

// BypassEffect queues a bypass flag change.
func (e *Engine) BypassEffect(index int, bypassed bool) { e.post(bypassEvent{index, bypassed}) }

// MuteEffect queues a mute flag change.
func (e *Engine) MuteEffect(index int, muted bool) { e.post(muteEvent{index, muted}) }

// SetEffectParam queues a parameter write on the chain stage at index.
func (e *Engine) SetEffectParam(index int, name string, value float32) {
	e.post(paramEvent{index, name, value})
}

// LoadState queues a full chain rebuild from persisted state.
func (e *Engine) LoadState(state rack.State) { e.post(stateEvent{state}) }

// processEvents drains the queue and applies every pending event. Runs on
// the render goroutine, between buffers.
func (e *Engine) processEvents() {
	for {
		select {
		case event := <-e.events:
			e.apply(event)
		default:
			return
		}
	}
}

func (e *Engine) apply(event any) {
	switch v := event.(type) {
	case noteOnEvent:
		if _, ok := e.voices.NoteOn(v.note, v.velocity); !ok {
			e.log.WithField("note", v.note).Warn("could not trigger note")
		}
	case noteOffEvent:
		e.voices.NoteOff(v.note)
	case allNotesOffEvent:
		e.voices.AllNotesOff()
	case pitchBendEvent:
		e.voices.PitchBend(v.semitones)
	case pressureEvent:
		e.voices.SetPressure(v.pressure)
	case cutoffEvent:
		e.voices.SetCutoff(v.hz)
	case resonanceEvent:
		e.voices.SetResonance(v.q)
	case sourceEvent:
		e.voices.SetSource(v.name, v.params)
	case addEffectEvent:
		if _, err := e.chain.Add(v.name, v.params); err != nil {
			e.log.WithField("effect", v.name).WithError(err).Warn("could not add effect")
		}
	case removeEffectEvent:
		e.chain.Remove(v.index)
	case moveEffectEvent:
		e.chain.Move(v.from, v.to)
	case bypassEvent:
		e.chain.Bypass(v.index, v.bypassed)
	case muteEvent:
		e.chain.Mute(v.index, v.muted)
	case paramEvent:
		e.chain.SetParam(v.index, v.name, v.value)
	case stateEvent:
		if err := e.chain.FromState(v.state); err != nil {
			e.log.WithError(err).Warn("could not restore chain state")
		}
	}
}

// Render drains pending control events, then fills buf with the voice mix
// run through the effect chain. Render goroutine only.
func (e *Engine) Render(buf kaiku.AudioBuffer) {
	e.processEvents()
	start := e.master.StartTiming()
	for i := range buf {
		l, r := e.voices.NextSample()
		l, r = e.chain.Process(l, r)
		buf[i][0], buf[i][1] = l, r
	}
	e.master.StopTiming(start, len(buf))
}

// RenderSidechain is Render with an external sidechain buffer of the same
// length driving the chain's sidechain-aware stages.
func (e *Engine) RenderSidechain(buf, sidechain kaiku.AudioBuffer) {
	e.processEvents()
	start := e.master.StartTiming()
	for i := range buf {
		l, r := e.voices.NextSample()
		l, r = e.chain.ProcessSidechain(l, r, sidechain[i][0], sidechain[i][1])
		buf[i][0], buf[i][1] = l, r
	}
	e.master.StopTiming(start, len(buf))
}

// Metrics returns the master render meter snapshot. Advisory; reading it
// from another goroutine races benignly with Render.
func (e *Engine) Metrics() kaiku.Metrics { return e.master.Metrics() }
