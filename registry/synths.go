package registry

import (
	"github.com/chewxy/math32"

	"github.com/kaikusynth/kaiku"
)

// BuiltinSynths returns a registry with all builtin generators: sine, saw,
// square, triangle, pulse, dsaw, noise and lead (a filtered saw exposing
// cutoff and resonance voice controls).
func BuiltinSynths() *Synths {
	s := NewSynths()
	for _, entry := range []struct {
		name, description string
		wave              func(phase float32) float32
	}{
		{"sine", "sine oscillator", func(phase float32) float32 {
			return math32.Sin(2 * math32.Pi * phase)
		}},
		{"saw", "sawtooth oscillator", func(phase float32) float32 {
			return 2*phase - 1
		}},
		{"square", "square oscillator", func(phase float32) float32 {
			if phase < 0.5 {
				return 1
			}
			return -1
		}},
		{"triangle", "triangle oscillator", func(phase float32) float32 {
			return 1 - 4*math32.Abs(phase-0.5)
		}},
	} {
		wave := entry.wave
		s.Register(kaiku.SynthMetadata{Name: entry.name, Description: entry.description},
			func(freq float32, params map[string]float32) (kaiku.Generator, kaiku.VoiceControls) {
				c := newVoiceControls(false)
				return &waveVoice{osc: newOscillator(freq, c.PitchBend), wave: wave}, c
			})
	}
	s.Register(kaiku.SynthMetadata{
		Name:        "pulse",
		Description: "pulse oscillator with fixed width",
		Parameters: []kaiku.ParameterDef{
			{Name: "width", Default: 0.25, Min: 0.05, Max: 0.95},
		},
	}, buildPulse)
	s.Register(kaiku.SynthMetadata{
		Name:        "dsaw",
		Description: "two detuned sawtooth oscillators",
		Parameters: []kaiku.ParameterDef{
			{Name: "detune", Default: 0.1, Min: 0, Max: 1},
		},
	}, buildDsaw)
	s.Register(kaiku.SynthMetadata{
		Name:        "noise",
		Description: "white noise",
	}, buildNoise)
	s.Register(kaiku.SynthMetadata{
		Name:        "lead",
		Description: "sawtooth through a lowpass filter with live cutoff and resonance",
		Parameters: []kaiku.ParameterDef{
			{Name: "cutoff", Default: 2000, Min: 20, Max: 20000},
			{Name: "resonance", Default: 0.7, Min: 0.1, Max: 2},
		},
	}, buildLead)
	return s
}

func newVoiceControls(filtered bool) kaiku.VoiceControls {
	c := kaiku.VoiceControls{
		Amp:       kaiku.NewParam(0),
		PitchBend: kaiku.NewParam(1),
		Pressure:  kaiku.NewParam(0),
	}
	if filtered {
		c.Cutoff = kaiku.NewParam(0)
		c.Resonance = kaiku.NewParam(0)
	}
	return c
}

// oscillator advances a [0, 1) phase at the voice frequency scaled by the
// live pitch bend ratio.
type oscillator struct {
	freq  float32
	bend  *kaiku.Param
	phase float32
	rate  float64
}

func newOscillator(freq float32, bend *kaiku.Param) oscillator {
	return oscillator{freq: freq, bend: bend, rate: buildSampleRate}
}

func (o *oscillator) step() float32 {
	phase := o.phase
	o.phase += o.freq * o.bend.Value() / float32(o.rate)
	o.phase -= math32.Floor(o.phase)
	return phase
}

type waveVoice struct {
	osc  oscillator
	wave func(phase float32) float32
}

func (v *waveVoice) NextSample() (float32, float32) {
	s := v.wave(v.osc.step())
	return s, s
}

func (v *waveVoice) Reset() { v.osc.phase = 0 }

func (v *waveVoice) SetSampleRate(rate float64) { v.osc.rate = rate }

type pulseVoice struct {
	osc   oscillator
	width float32
}

func buildPulse(freq float32, params map[string]float32) (kaiku.Generator, kaiku.VoiceControls) {
	c := newVoiceControls(false)
	return &pulseVoice{osc: newOscillator(freq, c.PitchBend), width: params["width"]}, c
}

func (v *pulseVoice) NextSample() (float32, float32) {
	s := float32(-1)
	if v.osc.step() < v.width {
		s = 1
	}
	return s, s
}

func (v *pulseVoice) Reset() { v.osc.phase = 0 }

func (v *pulseVoice) SetSampleRate(rate float64) { v.osc.rate = rate }

// dsawVoice runs two saws detuned around the note, one per channel, for a
// wide stereo spread.
type dsawVoice struct {
	oscA, oscB oscillator
}

func buildDsaw(freq float32, params map[string]float32) (kaiku.Generator, kaiku.VoiceControls) {
	c := newVoiceControls(false)
	detune := kaiku.SemitonesToRatio(params["detune"])
	return &dsawVoice{
		oscA: newOscillator(freq/detune, c.PitchBend),
		oscB: newOscillator(freq*detune, c.PitchBend),
	}, c
}

func (v *dsawVoice) NextSample() (float32, float32) {
	a := 2*v.oscA.step() - 1
	b := 2*v.oscB.step() - 1
	return (a*2 + b) / 3, (a + b*2) / 3
}

func (v *dsawVoice) Reset() {
	v.oscA.phase = 0
	v.oscB.phase = 0
}

func (v *dsawVoice) SetSampleRate(rate float64) {
	v.oscA.rate = rate
	v.oscB.rate = rate
}

// noiseVoice is a plain linear congruential noise source; good enough for
// percussion and cheap to keep allocation free.
type noiseVoice struct {
	state uint32
}

func buildNoise(freq float32, params map[string]float32) (kaiku.Generator, kaiku.VoiceControls) {
	return &noiseVoice{state: 1}, newVoiceControls(false)
}

func (v *noiseVoice) next() float32 {
	v.state = v.state*1664525 + 1013904223
	return float32(int32(v.state)) / (1 << 31)
}

func (v *noiseVoice) NextSample() (float32, float32) {
	return v.next(), v.next()
}

func (v *noiseVoice) Reset() { v.state = 1 }

func (v *noiseVoice) SetSampleRate(_ float64) {}

// leadVoice is a saw through a lowpass state variable filter whose cutoff
// and resonance are live voice controls, so they respond to broadcast
// set_cutoff/set_resonance events.
type leadVoice struct {
	osc       oscillator
	cutoff    *kaiku.Param
	resonance *kaiku.Param
	low, band float32
	rate      float64
}

func buildLead(freq float32, params map[string]float32) (kaiku.Generator, kaiku.VoiceControls) {
	c := newVoiceControls(true)
	c.Cutoff.Set(params["cutoff"])
	c.Resonance.Set(params["resonance"])
	return &leadVoice{
		osc:       newOscillator(freq, c.PitchBend),
		cutoff:    c.Cutoff,
		resonance: c.Resonance,
		rate:      buildSampleRate,
	}, c
}

func (v *leadVoice) NextSample() (float32, float32) {
	x := 2*v.osc.step() - 1
	q := 1 / v.resonance.Value()
	freq := svfCoeff(v.cutoff.Value(), float32(v.rate), q)
	s := svfStep(&v.low, &v.band, x, freq, q, filterLow)
	return s, s
}

func (v *leadVoice) Reset() {
	v.osc.phase = 0
	v.low, v.band = 0, 0
}

func (v *leadVoice) SetSampleRate(rate float64) {
	v.osc.rate = rate
	v.rate = rate
}
