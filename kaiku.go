package kaiku

type (
	// Processor is an opaque stereo signal processor: one stereo sample in,
	// one stereo sample out. Implementations keep whatever internal state
	// they need (filter memories, delay lines, envelopes); this layer never
	// looks inside. ProcessSample must not allocate, block or return errors;
	// once a processor has been built it accepts any finite sample.
	Processor interface {
		ProcessSample(l, r float32) (outL, outR float32)
		Reset()
		SetSampleRate(rate float64)
	}

	// Generator is a signal source with no input, used for synth voices. A
	// generator is built for a fixed frequency; changing the note means
	// building a new generator, not mutating an old one.
	Generator interface {
		NextSample() (l, r float32)
		Reset()
		SetSampleRate(rate float64)
	}

	// SidechainProcessor is implemented by effects that can react to a
	// signal other than the one they process, e.g. a compressor ducking a
	// pad from a kick drum.
	SidechainProcessor interface {
		ProcessSidechain(l, r, scL, scR float32) (outL, outR float32)
	}

	// EffectFactory builds stereo effect processors from a name and a
	// parameter map. It is the only channel through which the effect chain
	// learns about concrete effects; see the registry package for the
	// builtin implementation.
	EffectFactory interface {
		Build(name string, params map[string]float32) (Processor, Controls, error)
		// BuildSidechain returns a sidechain-aware processor for the name,
		// or nil if the effect has no sidechain variant.
		BuildSidechain(name string, params map[string]float32, rate float64) SidechainProcessor
		Metadata(name string) (EffectMetadata, bool)
		Contains(name string) bool
	}

	// SynthFactory builds fixed-frequency generators for synth voices.
	SynthFactory interface {
		Build(name string, freq float32, params map[string]float32) (Generator, VoiceControls, error)
		Metadata(name string) (SynthMetadata, bool)
		Contains(name string) bool
	}

	// EffectMetadata documents one effect type: what parameters it takes and
	// how much latency it introduces.
	EffectMetadata struct {
		Name           string
		Description    string
		Parameters     []ParameterDef
		LatencySamples int
		Sidechain      bool
	}

	// SynthMetadata documents one synth type.
	SynthMetadata struct {
		Name        string
		Description string
		Parameters  []ParameterDef
	}

	// Controls is the set of live parameters of one effect instance. The
	// map is built once by the factory and never mutated afterwards, so the
	// control thread and the render thread may both hold it; all writes go
	// through the individual Params.
	Controls map[string]*Param

	// VoiceControls are the live parameters of one synth voice. Amp,
	// PitchBend and Pressure are always present; Cutoff and Resonance are
	// nil for synths without a filter.
	VoiceControls struct {
		Amp       *Param
		PitchBend *Param
		Pressure  *Param
		Cutoff    *Param
		Resonance *Param
	}
)

// Set writes the named parameter, if this instance has it. Unknown names are
// ignored on purpose: control surfaces probe optimistically and a stray write
// is not an error.
func (c Controls) Set(name string, value float32) {
	if p, ok := c[name]; ok {
		p.Set(value)
	}
}

// Get returns the current value of the named parameter.
func (c Controls) Get(name string) (float32, bool) {
	if p, ok := c[name]; ok {
		return p.Value(), true
	}
	return 0, false
}

// Names returns the parameter names of this instance, in map order.
func (c Controls) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	return names
}
