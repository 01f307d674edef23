package kaiku

// ParameterDef documents one parameter an effect or synth takes: its name,
// default value and inclusive range. Factories expose these through metadata
// so control surfaces can build UIs without knowing the processor internals.
type ParameterDef struct {
	Name    string  `yaml:"name" json:"name"`
	Default float32 `yaml:"default" json:"default"`
	Min     float32 `yaml:"min" json:"min"`
	Max     float32 `yaml:"max" json:"max"`
}

// Clamp limits value to the parameter's range.
func (d ParameterDef) Clamp(value float32) float32 {
	if value < d.Min {
		return d.Min
	}
	if value > d.Max {
		return d.Max
	}
	return value
}

// Normalize maps value from [Min, Max] to [0, 1]. A degenerate range maps to
// zero.
func (d ParameterDef) Normalize(value float32) float32 {
	if d.Max == d.Min {
		return 0
	}
	return (value - d.Min) / (d.Max - d.Min)
}

// Denormalize maps a [0, 1] value back to [Min, Max].
func (d ParameterDef) Denormalize(normalized float32) float32 {
	return d.Min + normalized*(d.Max-d.Min)
}

// DefaultsFrom builds a parameter map from the defs, with values from params
// overriding the defaults. Values are clamped to their defined ranges;
// parameters not in defs are passed through untouched, as factories may take
// construction-only options that are not live parameters.
func DefaultsFrom(defs []ParameterDef, params map[string]float32) map[string]float32 {
	ret := make(map[string]float32, len(defs)+len(params))
	for _, d := range defs {
		ret[d.Name] = d.Default
	}
	for k, v := range params {
		found := false
		for _, d := range defs {
			if d.Name == k {
				ret[k] = d.Clamp(v)
				found = true
				break
			}
		}
		if !found {
			ret[k] = v
		}
	}
	return ret
}
