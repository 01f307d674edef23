// Package poly implements the polyphonic voice manager: a bounded pool of
// generator voices with note-to-voice binding, retrigger, lazy allocation and
// least-recently-triggered voice stealing.
//
// Like the effect chain, the manager is single-owner: note events and
// NextSample must come from the same goroutine, with the engine package
// queueing control-thread events in between render calls. Broadcast parameter
// setters (PitchBend, SetCutoff, SetResonance, SetPressure) only touch
// kaiku.Param atomics and may be called from any goroutine.
package poly

import (
	"slices"

	"github.com/chewxy/math32"

	"github.com/kaikusynth/kaiku"
)

type (
	// voice is one pool slot. A slot is free when note < 0; a free slot
	// keeps its last generator around but contributes exact silence because
	// its amplitude is hard-zeroed on release.
	voice struct {
		generator kaiku.Generator
		controls  kaiku.VoiceControls
		note      int
		age       uint64
	}

	// Manager owns the voice pool for one synth sound. Voices are allocated
	// lazily up to maxVoices; beyond that the oldest-triggered voice is
	// stolen.
	Manager struct {
		factory    kaiku.SynthFactory
		source     string
		params     map[string]float32
		voices     []voice
		maxVoices  int
		ageCounter uint64
		sampleRate float64
		meter      *kaiku.CPUMeter
	}
)

const defaultSampleRate = 48000

// New returns a manager that builds voices of the named synth sound. The pool
// starts empty and grows on demand up to maxVoices.
func New(factory kaiku.SynthFactory, source string, maxVoices int) *Manager {
	if maxVoices < 1 {
		maxVoices = 1
	}
	return &Manager{
		factory:    factory,
		source:     source,
		maxVoices:  maxVoices,
		sampleRate: defaultSampleRate,
		meter:      kaiku.NewCPUMeter(defaultSampleRate),
	}
}

// SetSource switches the synth sound and default parameters used for voices
// triggered from now on. Already sounding voices keep playing their old sound
// until released.
func (m *Manager) SetSource(source string, params map[string]float32) {
	m.source = source
	m.params = params
}

// Source returns the current synth sound name.
func (m *Manager) Source() string { return m.source }

// SetSampleRate sets the sample rate for the manager and all current voices.
func (m *Manager) SetSampleRate(rate float64) {
	if rate <= 0 {
		rate = defaultSampleRate
	}
	m.sampleRate = rate
	m.meter.SetSampleRate(rate)
	for i := range m.voices {
		m.voices[i].generator.SetSampleRate(rate)
	}
}

// NoteOn triggers a note and returns the index of the voice that plays it.
// A voice already holding the note is retriggered in place; otherwise a free
// voice is rebuilt, the pool grows if below its bound, and as a last resort
// the voice with the oldest trigger is stolen (ties to the lowest index).
// Returns false only when the factory cannot build the sound; the pool is
// left unchanged in that case.
func (m *Manager) NoteOn(note byte, velocity float32) (int, bool) {
	for i := range m.voices {
		if m.voices[i].note == int(note) {
			m.retrigger(i, velocity)
			return i, true
		}
	}
	for i := range m.voices {
		if m.voices[i].note < 0 {
			if !m.rebuild(i, note, velocity) {
				return 0, false
			}
			return i, true
		}
	}
	if len(m.voices) < m.maxVoices {
		m.voices = append(m.voices, voice{note: -1})
		i := len(m.voices) - 1
		if !m.rebuild(i, note, velocity) {
			m.voices = m.voices[:i]
			return 0, false
		}
		return i, true
	}
	steal := 0
	for i := 1; i < len(m.voices); i++ {
		if m.voices[i].age < m.voices[steal].age {
			steal = i
		}
	}
	if !m.rebuild(steal, note, velocity) {
		return 0, false
	}
	return steal, true
}

func (m *Manager) retrigger(i int, velocity float32) {
	v := &m.voices[i]
	v.controls.Amp.Set(velocity)
	v.controls.PitchBend.Set(1)
	v.age = m.ageCounter
	m.ageCounter++
}

func (m *Manager) rebuild(i int, note byte, velocity float32) bool {
	generator, controls, err := m.factory.Build(m.source, kaiku.NoteToFreq(note), m.params)
	if err != nil {
		return false
	}
	generator.SetSampleRate(m.sampleRate)
	controls.Amp.Set(velocity)
	controls.PitchBend.Set(1)
	m.voices[i] = voice{
		generator: generator,
		controls:  controls,
		note:      int(note),
		age:       m.ageCounter,
	}
	m.ageCounter++
	return true
}

// NoteOff releases the note: its voice's amplitude drops to zero immediately
// and the slot becomes free. There is no release envelope at this level; a
// sound wanting a tail must implement it inside its generator. Unknown notes
// are a no-op.
func (m *Manager) NoteOff(note byte) {
	for i := range m.voices {
		if m.voices[i].note == int(note) {
			m.voices[i].controls.Amp.Set(0)
			m.voices[i].note = -1
		}
	}
}

// AllNotesOff releases every sounding voice.
func (m *Manager) AllNotesOff() {
	for i := range m.voices {
		if m.voices[i].note >= 0 {
			m.voices[i].controls.Amp.Set(0)
			m.voices[i].note = -1
		}
	}
}

// PitchBend bends every sounding voice by the given amount in semitones.
func (m *Manager) PitchBend(semitones float32) {
	ratio := kaiku.SemitonesToRatio(semitones)
	for i := range m.voices {
		if m.voices[i].note >= 0 {
			m.voices[i].controls.PitchBend.Set(ratio)
		}
	}
}

// SetCutoff sets the filter cutoff of every sounding voice that has one;
// voices without a filter are skipped.
func (m *Manager) SetCutoff(hz float32) {
	for i := range m.voices {
		if m.voices[i].note >= 0 && m.voices[i].controls.Cutoff != nil {
			m.voices[i].controls.Cutoff.Set(hz)
		}
	}
}

// SetResonance sets the filter resonance of every sounding voice that has
// one.
func (m *Manager) SetResonance(q float32) {
	for i := range m.voices {
		if m.voices[i].note >= 0 && m.voices[i].controls.Resonance != nil {
			m.voices[i].controls.Resonance.Set(q)
		}
	}
}

// SetPressure sets the channel pressure of every sounding voice.
func (m *Manager) SetPressure(pressure float32) {
	for i := range m.voices {
		if m.voices[i].note >= 0 {
			m.voices[i].controls.Pressure.Set(pressure)
		}
	}
}

// NextSample renders one stereo sample: the amplitude-scaled sum of every
// voice, divided by sqrt(voice count) to bound additive gain growth. Free
// voices contribute exact silence since their amplitude is zeroed. Never
// allocates, never fails.
func (m *Manager) NextSample() (float32, float32) {
	if len(m.voices) == 0 {
		return 0, 0
	}
	start := m.meter.StartTiming()
	var sumL, sumR float32
	for i := range m.voices {
		l, r := m.voices[i].generator.NextSample()
		amp := m.voices[i].controls.Amp.Value()
		sumL += l * amp
		sumR += r * amp
	}
	if len(m.voices) > 1 {
		scale := 1 / math32.Sqrt(float32(len(m.voices)))
		sumL *= scale
		sumR *= scale
	}
	m.meter.StopTiming(start, 1)
	return sumL, sumR
}

// ActiveVoices returns the number of currently sounding voices.
func (m *Manager) ActiveVoices() int {
	n := 0
	for i := range m.voices {
		if m.voices[i].note >= 0 {
			n++
		}
	}
	return n
}

// PlayingNotes returns the currently held notes in ascending order.
func (m *Manager) PlayingNotes() []byte {
	notes := make([]byte, 0, len(m.voices))
	for i := range m.voices {
		if m.voices[i].note >= 0 {
			notes = append(notes, byte(m.voices[i].note))
		}
	}
	slices.Sort(notes)
	return notes
}

// VoiceNote returns the note held by the voice at index, or false if the
// voice is free or the index invalid.
func (m *Manager) VoiceNote(index int) (byte, bool) {
	if index < 0 || index >= len(m.voices) || m.voices[index].note < 0 {
		return 0, false
	}
	return byte(m.voices[index].note), true
}

// Len returns the number of allocated pool slots, sounding or free.
func (m *Manager) Len() int { return len(m.voices) }

// MaxVoices returns the pool bound.
func (m *Manager) MaxVoices() int { return m.maxVoices }

// Metrics returns a snapshot of the render CPU metrics of the whole pool.
func (m *Manager) Metrics() kaiku.Metrics { return m.meter.Metrics() }

// ResetMeter resets the pool's CPU meter.
func (m *Manager) ResetMeter() { m.meter.Reset() }
