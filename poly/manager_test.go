package poly_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaikusynth/kaiku"
	"github.com/kaikusynth/kaiku/poly"
)

// dcGenerator outputs a constant level scaled by pitch bend, making both the
// mixdown and the broadcast setters observable without real oscillators.
type dcGenerator struct {
	level    float32
	controls kaiku.VoiceControls
}

func (g *dcGenerator) NextSample() (float32, float32) {
	v := g.level * g.controls.PitchBend.Value()
	return v, v
}

func (g *dcGenerator) Reset()                  {}
func (g *dcGenerator) SetSampleRate(r float64) {}

type testSynths struct {
	filtered bool // whether built voices expose cutoff/resonance
}

func (f testSynths) Build(name string, freq float32, params map[string]float32) (kaiku.Generator, kaiku.VoiceControls, error) {
	if name != "dc" {
		return nil, kaiku.VoiceControls{}, kaiku.NotFoundError(name)
	}
	controls := kaiku.VoiceControls{
		Amp:       kaiku.NewParam(0),
		PitchBend: kaiku.NewParam(1),
		Pressure:  kaiku.NewParam(0),
	}
	if f.filtered {
		controls.Cutoff = kaiku.NewParam(1000)
		controls.Resonance = kaiku.NewParam(0.7)
	}
	return &dcGenerator{level: 1, controls: controls}, controls, nil
}

func (testSynths) Metadata(name string) (kaiku.SynthMetadata, bool) {
	return kaiku.SynthMetadata{Name: name}, name == "dc"
}

func (testSynths) Contains(name string) bool { return name == "dc" }

func TestNoteOnAllocation(t *testing.T) {
	m := poly.New(testSynths{}, "dc", 4)
	seen := map[int]bool{}
	for _, note := range []byte{60, 62, 64, 65} {
		i, ok := m.NoteOn(note, 0.8)
		require.True(t, ok)
		assert.False(t, seen[i], "distinct notes get distinct voices")
		seen[i] = true
	}
	assert.Equal(t, 4, m.ActiveVoices())
	assert.Equal(t, 4, m.Len())

	// Pool exhausted: the next note steals the first-triggered voice.
	i, ok := m.NoteOn(67, 0.8)
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, 4, m.ActiveVoices())
	note, held := m.VoiceNote(0)
	require.True(t, held)
	assert.Equal(t, byte(67), note)
}

func TestNoteOnRetrigger(t *testing.T) {
	m := poly.New(testSynths{}, "dc", 4)
	first, ok := m.NoteOn(60, 0.5)
	require.True(t, ok)
	m.PitchBend(2)

	second, ok := m.NoteOn(60, 0.9)
	require.True(t, ok)
	assert.Equal(t, first, second, "retrigger reuses the voice holding the note")
	assert.Equal(t, 1, m.ActiveVoices(), "exactly one binding for the note")
	assert.Equal(t, []byte{60}, m.PlayingNotes())

	// Retrigger refreshes amplitude and resets the bend to unity.
	l, _ := m.NextSample()
	assert.InDelta(t, 0.9, l, 1e-6)
}

func TestStealScenario(t *testing.T) {
	m := poly.New(testSynths{}, "dc", 2)
	i, ok := m.NoteOn(60, 0.8)
	require.True(t, ok)
	assert.Equal(t, 0, i)
	i, ok = m.NoteOn(64, 0.8)
	require.True(t, ok)
	assert.Equal(t, 1, i)
	i, ok = m.NoteOn(67, 0.8)
	require.True(t, ok)
	assert.Equal(t, 0, i, "the oldest trigger is stolen")
	assert.Equal(t, []byte{64, 67}, m.PlayingNotes())
}

func TestStealAgeOrder(t *testing.T) {
	// Retriggering note 60 refreshes its age, so the steal victim is 64.
	m := poly.New(testSynths{}, "dc", 2)
	m.NoteOn(60, 0.8)
	m.NoteOn(64, 0.8)
	m.NoteOn(60, 0.8)
	i, ok := m.NoteOn(67, 0.8)
	require.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, []byte{60, 67}, m.PlayingNotes())
}

func TestNoteOff(t *testing.T) {
	m := poly.New(testSynths{}, "dc", 4)
	m.NoteOn(60, 0.8)
	m.NoteOn(64, 0.8)

	m.NoteOff(60)
	assert.Equal(t, 1, m.ActiveVoices())
	assert.Equal(t, []byte{64}, m.PlayingNotes())
	assert.Equal(t, 2, m.Len(), "the slot stays allocated for reuse")

	// Released voices are hard-zeroed: only the held voice sounds, and the
	// two-slot pool still scales by sqrt(2).
	l, _ := m.NextSample()
	assert.InDelta(t, 0.8/1.4142135, l, 1e-4)

	m.NoteOff(99) // not held, no-op
	assert.Equal(t, 1, m.ActiveVoices())

	m.AllNotesOff()
	assert.Zero(t, m.ActiveVoices())
	l, r := m.NextSample()
	assert.Zero(t, l)
	assert.Zero(t, r)
}

func TestMixdownScaling(t *testing.T) {
	m := poly.New(testSynths{}, "dc", 4)
	_, ok := m.NoteOn(60, 1)
	require.True(t, ok)
	l, _ := m.NextSample()
	assert.InDelta(t, 1, l, 1e-6, "a single voice is not scaled")

	m.NoteOn(64, 1)
	m.NoteOn(67, 1)
	m.NoteOn(71, 1)
	l, _ = m.NextSample()
	assert.InDelta(t, 4.0/2, l, 1e-5, "four voices scale by sqrt(4)")
}

func TestBroadcastControls(t *testing.T) {
	m := poly.New(testSynths{filtered: true}, "dc", 4)
	m.NoteOn(60, 1)
	m.NoteOn(64, 1)

	m.PitchBend(12)
	l, _ := m.NextSample()
	assert.InDelta(t, 2*2/1.4142135, l, 1e-4, "an octave bend doubles the test generator's level")

	// These only touch sounding voices that expose the control; with the
	// filtered factory they must not panic and must reach both voices.
	m.SetCutoff(500)
	m.SetResonance(1.2)
	m.SetPressure(0.5)
}

func TestBroadcastSkipsMissingControls(t *testing.T) {
	m := poly.New(testSynths{}, "dc", 2)
	m.NoteOn(60, 1)
	m.SetCutoff(500)    // no cutoff control, skipped
	m.SetResonance(0.5) // no resonance control, skipped
	assert.Equal(t, 1, m.ActiveVoices())
}

func TestNoteOnUnknownSource(t *testing.T) {
	m := poly.New(testSynths{}, "dc", 2)
	m.SetSource("nonexistent", nil)
	_, ok := m.NoteOn(60, 1)
	assert.False(t, ok)
	assert.Zero(t, m.Len(), "a failed allocation does not grow the pool")

	m.SetSource("dc", nil)
	assert.Equal(t, "dc", m.Source())
	_, ok = m.NoteOn(60, 1)
	assert.True(t, ok)
}

func TestManagerMetrics(t *testing.T) {
	m := poly.New(testSynths{}, "dc", 2)
	m.NoteOn(60, 1)
	for i := 0; i < 64; i++ {
		m.NextSample()
	}
	assert.Equal(t, uint64(64), m.Metrics().SamplesProcessed)
	m.ResetMeter()
	assert.Zero(t, m.Metrics().SamplesProcessed)
}
