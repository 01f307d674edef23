// Package preset ships ready-made effect chain configurations as persisted
// chain states, restorable into any chain backed by the builtin effects.
package preset

import (
	"sort"

	"github.com/kaikusynth/kaiku/rack"
)

var presets = map[string]rack.State{
	"mastering": {
		Version: 1,
		Effects: []rack.EffectState{
			{Name: "gain", Parameters: map[string]float32{"level": 1.2}},
			{Name: "compressor", Parameters: map[string]float32{
				"threshold": 0.6, "ratio": 3, "attack": 0.01, "release": 0.2, "makeup": 1.1,
			}},
			{Name: "clip", Parameters: map[string]float32{"level": 0.98}},
		},
	},
	"mixing": {
		Version: 1,
		Effects: []rack.EffectState{
			{Name: "filter", Parameters: map[string]float32{"cutoff": 12000, "resonance": 0.5}},
			{Name: "pan", Parameters: map[string]float32{"position": 0}},
			{Name: "delay", Parameters: map[string]float32{
				"time": 0.3, "feedback": 0.25, "damp": 0.4, "mix": 0.15,
			}},
		},
	},
	"vocal": {
		Version: 1,
		Effects: []rack.EffectState{
			{Name: "filter", Parameters: map[string]float32{"cutoff": 120, "resonance": 0.5, "mode": 1}},
			{Name: "compressor", Parameters: map[string]float32{
				"threshold": 0.4, "ratio": 4, "attack": 0.005, "release": 0.15, "makeup": 1.3,
			}},
			{Name: "delay", Parameters: map[string]float32{
				"time": 0.18, "feedback": 0.2, "damp": 0.5, "mix": 0.12,
			}},
		},
	},
	"crunch": {
		Version: 1,
		Effects: []rack.EffectState{
			{Name: "distort", Parameters: map[string]float32{"drive": 0.85}},
			{Name: "crush", Parameters: map[string]float32{"bits": 6}},
			{Name: "gain", Parameters: map[string]float32{"level": 0.8}},
		},
	},
}

// Load returns the named preset state.
func Load(name string) (rack.State, bool) {
	s, ok := presets[name]
	return s, ok
}

// Names returns all preset names, sorted.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
