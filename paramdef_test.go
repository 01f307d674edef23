package kaiku_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kaikusynth/kaiku"
)

func TestParameterDefClamp(t *testing.T) {
	d := kaiku.ParameterDef{Name: "cutoff", Default: 1000, Min: 20, Max: 20000}
	assert.Equal(t, float32(20), d.Clamp(-5))
	assert.Equal(t, float32(20000), d.Clamp(1e6))
	assert.Equal(t, float32(440), d.Clamp(440))
}

func TestParameterDefNormalize(t *testing.T) {
	d := kaiku.ParameterDef{Min: -1, Max: 1}
	assert.Equal(t, float32(0.5), d.Normalize(0))
	assert.Equal(t, float32(0), d.Normalize(-1))
	assert.Equal(t, float32(1), d.Normalize(1))
	assert.Equal(t, float32(0), d.Denormalize(0.5))

	degenerate := kaiku.ParameterDef{Min: 3, Max: 3}
	assert.Equal(t, float32(0), degenerate.Normalize(3))
}

func TestDefaultsFrom(t *testing.T) {
	defs := []kaiku.ParameterDef{
		{Name: "gain", Default: 1, Min: 0, Max: 4},
		{Name: "pan", Default: 0, Min: -1, Max: 1},
	}
	params := kaiku.DefaultsFrom(defs, map[string]float32{
		"gain":  9, // clamped to the defined range
		"order": 2, // construction-only option, passed through
	})
	assert.Equal(t, float32(4), params["gain"])
	assert.Equal(t, float32(0), params["pan"])
	assert.Equal(t, float32(2), params["order"])
}

func TestControls(t *testing.T) {
	c := kaiku.Controls{"gain": kaiku.NewParam(1)}
	c.Set("gain", 2)
	v, ok := c.Get("gain")
	assert.True(t, ok)
	assert.Equal(t, float32(2), v)

	c.Set("bogus", 5) // ignored
	_, ok = c.Get("bogus")
	assert.False(t, ok)
	assert.Equal(t, []string{"gain"}, c.Names())
}
