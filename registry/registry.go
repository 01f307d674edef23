// Package registry maps processor names to constructors: the builtin effect
// and synth factories behind the rack and poly packages. Registries are
// populated once at startup and only read afterwards, so they need no
// locking.
package registry

import (
	"sort"

	"github.com/kaikusynth/kaiku"
)

type (
	effectEntry struct {
		meta  kaiku.EffectMetadata
		build func(params map[string]float32) (kaiku.Processor, kaiku.Controls)
		// buildSidechain is nil for effects without a sidechain variant.
		buildSidechain func(params map[string]float32, rate float64) kaiku.SidechainProcessor
	}

	synthEntry struct {
		meta  kaiku.SynthMetadata
		build func(freq float32, params map[string]float32) (kaiku.Generator, kaiku.VoiceControls)
	}

	// Effects is a name-to-constructor registry implementing
	// kaiku.EffectFactory.
	Effects struct {
		entries map[string]effectEntry
	}

	// Synths is a name-to-constructor registry implementing
	// kaiku.SynthFactory.
	Synths struct {
		entries map[string]synthEntry
	}
)

// NewEffects returns an empty effect registry.
func NewEffects() *Effects {
	return &Effects{entries: map[string]effectEntry{}}
}

// Register adds an effect constructor under meta.Name, replacing any previous
// registration. The builder receives a parameter map already filled with
// clamped defaults.
func (e *Effects) Register(
	meta kaiku.EffectMetadata,
	build func(params map[string]float32) (kaiku.Processor, kaiku.Controls),
	buildSidechain func(params map[string]float32, rate float64) kaiku.SidechainProcessor,
) {
	meta.Sidechain = buildSidechain != nil
	e.entries[meta.Name] = effectEntry{meta: meta, build: build, buildSidechain: buildSidechain}
}

// Build constructs the named effect. Missing parameters take their defaults;
// out-of-range values are clamped.
func (e *Effects) Build(name string, params map[string]float32) (kaiku.Processor, kaiku.Controls, error) {
	entry, ok := e.entries[name]
	if !ok {
		return nil, nil, kaiku.NotFoundError(name)
	}
	p, c := entry.build(kaiku.DefaultsFrom(entry.meta.Parameters, params))
	return p, c, nil
}

// BuildSidechain constructs the sidechain variant of the named effect, or nil
// if it has none.
func (e *Effects) BuildSidechain(name string, params map[string]float32, rate float64) kaiku.SidechainProcessor {
	entry, ok := e.entries[name]
	if !ok || entry.buildSidechain == nil {
		return nil
	}
	return entry.buildSidechain(kaiku.DefaultsFrom(entry.meta.Parameters, params), rate)
}

// Metadata returns the metadata of the named effect.
func (e *Effects) Metadata(name string) (kaiku.EffectMetadata, bool) {
	entry, ok := e.entries[name]
	return entry.meta, ok
}

// Contains reports whether the name is registered.
func (e *Effects) Contains(name string) bool {
	_, ok := e.entries[name]
	return ok
}

// Names returns all registered effect names, sorted.
func (e *Effects) Names() []string {
	names := make([]string, 0, len(e.entries))
	for name := range e.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewSynths returns an empty synth registry.
func NewSynths() *Synths {
	return &Synths{entries: map[string]synthEntry{}}
}

// Register adds a synth constructor under meta.Name.
func (s *Synths) Register(
	meta kaiku.SynthMetadata,
	build func(freq float32, params map[string]float32) (kaiku.Generator, kaiku.VoiceControls),
) {
	s.entries[meta.Name] = synthEntry{meta: meta, build: build}
}

// Build constructs a generator of the named sound at the given frequency.
func (s *Synths) Build(name string, freq float32, params map[string]float32) (kaiku.Generator, kaiku.VoiceControls, error) {
	entry, ok := s.entries[name]
	if !ok {
		return nil, kaiku.VoiceControls{}, kaiku.NotFoundError(name)
	}
	g, c := entry.build(freq, kaiku.DefaultsFrom(entry.meta.Parameters, params))
	return g, c, nil
}

// Metadata returns the metadata of the named synth.
func (s *Synths) Metadata(name string) (kaiku.SynthMetadata, bool) {
	entry, ok := s.entries[name]
	return entry.meta, ok
}

// Contains reports whether the name is registered.
func (s *Synths) Contains(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// Names returns all registered synth names, sorted.
func (s *Synths) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
