package rack_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaikusynth/kaiku"
	"github.com/kaikusynth/kaiku/rack"
)

// gainProcessor scales both channels by a live gain parameter.
type gainProcessor struct {
	gain *kaiku.Param
	rate float64
}

func (g *gainProcessor) ProcessSample(l, r float32) (float32, float32) {
	v := g.gain.Value()
	return l * v, r * v
}

func (g *gainProcessor) Reset()                  {}
func (g *gainProcessor) SetSampleRate(r float64) { g.rate = r }

// duckProcessor halves the signal whenever the sidechain is hot.
type duckProcessor struct {
	gainProcessor
}

func (d *duckProcessor) ProcessSidechain(l, r, scL, scR float32) (float32, float32) {
	l, r = d.ProcessSample(l, r)
	if scL > 0.5 || scR > 0.5 {
		return l * 0.5, r * 0.5
	}
	return l, r
}

// testFactory builds "gain" and "duck" effects for the chain tests.
type testFactory struct{}

func (testFactory) Build(name string, params map[string]float32) (kaiku.Processor, kaiku.Controls, error) {
	if !factoryContains(name) {
		return nil, nil, kaiku.NotFoundError(name)
	}
	gain := float32(1)
	if v, ok := params["gain"]; ok {
		gain = v
	}
	p := kaiku.NewParam(gain)
	controls := kaiku.Controls{"gain": p}
	if name == "duck" {
		return &duckProcessor{gainProcessor{gain: p}}, controls, nil
	}
	return &gainProcessor{gain: p}, controls, nil
}

func (f testFactory) BuildSidechain(name string, params map[string]float32, rate float64) kaiku.SidechainProcessor {
	if name != "duck" {
		return nil
	}
	gain := float32(1)
	if v, ok := params["gain"]; ok {
		gain = v
	}
	return &duckProcessor{gainProcessor{gain: kaiku.NewParam(gain), rate: rate}}
}

func (testFactory) Metadata(name string) (kaiku.EffectMetadata, bool) {
	if !factoryContains(name) {
		return kaiku.EffectMetadata{}, false
	}
	meta := kaiku.EffectMetadata{
		Name:       name,
		Parameters: []kaiku.ParameterDef{{Name: "gain", Default: 1, Min: 0, Max: 4}},
	}
	if name == "duck" {
		meta.LatencySamples = 64
		meta.Sidechain = true
	}
	return meta, true
}

func (testFactory) Contains(name string) bool { return factoryContains(name) }

func factoryContains(name string) bool { return name == "gain" || name == "duck" }

func TestChainAddRemoveMove(t *testing.T) {
	c := rack.New(testFactory{})
	for _, params := range []map[string]float32{{"gain": 2}, {"gain": 3}, {"gain": 5}} {
		_, err := c.Add("gain", params)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, c.Len())
	l, _ := c.Process(1, 1)
	assert.InDelta(t, 30, l, 1e-6)

	ok := c.Move(2, 0)
	assert.True(t, ok)
	v, _ := c.Param(0, "gain")
	assert.Equal(t, float32(5), v)
	l, _ = c.Process(1, 1)
	assert.InDelta(t, 30, l, 1e-6, "reordering linear gains must not change the product")

	assert.True(t, c.Remove(1))
	assert.Equal(t, 2, c.Len())
	l, _ = c.Process(1, 1)
	assert.InDelta(t, 15, l, 1e-6)

	assert.False(t, c.Remove(2))
	assert.False(t, c.Move(0, 5))
	assert.Equal(t, 2, c.Len())
}

func TestChainAddUnknownEffect(t *testing.T) {
	c := rack.New(testFactory{})
	_, err := c.Add("nonexistent", nil)
	assert.ErrorIs(t, err, kaiku.ErrProcessorNotFound)
	assert.Equal(t, 0, c.Len())
}

func TestChainNoFactory(t *testing.T) {
	c := rack.New(nil)
	_, err := c.Add("gain", nil)
	assert.ErrorIs(t, err, kaiku.ErrNoFactory)
	c.SetFactory(testFactory{})
	_, err = c.Add("gain", nil)
	assert.NoError(t, err)
}

func TestChainBypassAndMute(t *testing.T) {
	c := rack.New(testFactory{})
	_, err := c.Add("gain", map[string]float32{"gain": 2})
	require.NoError(t, err)

	l, r := c.Process(0.25, -0.25)
	assert.Equal(t, float32(0.5), l)
	assert.Equal(t, float32(-0.5), r)

	c.Bypass(0, true)
	l, r = c.Process(0.25, -0.25)
	assert.Equal(t, float32(0.25), l)
	assert.Equal(t, float32(-0.25), r)
	bypassed, ok := c.IsBypassed(0)
	assert.True(t, ok)
	assert.True(t, bypassed)

	c.Bypass(0, false)
	c.Mute(0, true)
	l, r = c.Process(0.25, -0.25)
	assert.Zero(t, l)
	assert.Zero(t, r)

	c.SetBypass(true)
	c.Mute(0, false)
	l, _ = c.Process(0.25, -0.25)
	assert.Equal(t, float32(0.25), l, "chain bypass passes input through unchanged")

	assert.False(t, c.Bypass(7, true))
	assert.False(t, c.Mute(-1, true))
}

func TestChainSetParam(t *testing.T) {
	c := rack.New(testFactory{})
	_, err := c.Add("gain", nil)
	require.NoError(t, err)

	assert.True(t, c.SetParam(0, "gain", 3))
	v, ok := c.Param(0, "gain")
	assert.True(t, ok)
	assert.Equal(t, float32(3), v)

	assert.True(t, c.SetParam(0, "no_such_param", 1), "unknown names are ignored, not errors")
	assert.False(t, c.SetParam(1, "gain", 1))
}

func TestChainSetParamClamped(t *testing.T) {
	// Live writes are held to the same declared range as build parameters.
	c := rack.New(testFactory{})
	_, err := c.Add("gain", nil)
	require.NoError(t, err)

	c.SetParam(0, "gain", 99)
	v, _ := c.Param(0, "gain")
	assert.Equal(t, float32(4), v)

	c.SetParam(0, "gain", -1)
	v, _ = c.Param(0, "gain")
	assert.Equal(t, float32(0), v)
}

func TestChainSidechain(t *testing.T) {
	c := rack.New(testFactory{})
	_, err := c.Add("duck", nil)
	require.NoError(t, err)

	l, _ := c.ProcessSidechain(1, 1, 0, 0)
	assert.Equal(t, float32(1), l)
	l, _ = c.ProcessSidechain(1, 1, 0.9, 0.9)
	assert.Equal(t, float32(0.5), l)
	l, _ = c.Process(1, 1)
	assert.Equal(t, float32(1), l, "without a sidechain signal the main path is used")
}

func TestChainLatency(t *testing.T) {
	c := rack.New(testFactory{})
	_, err := c.Add("gain", nil)
	require.NoError(t, err)
	duck, err := c.Add("duck", nil)
	require.NoError(t, err)

	assert.Equal(t, 64, c.TotalLatency())
	c.Bypass(duck, true)
	assert.Equal(t, 0, c.TotalLatency(), "bypassed stages do not contribute latency")
	lat, ok := c.EffectLatency(duck)
	assert.True(t, ok)
	assert.Equal(t, 64, lat)
}

func TestChainLevels(t *testing.T) {
	c := rack.New(testFactory{})
	_, err := c.Add("gain", map[string]float32{"gain": 2})
	require.NoError(t, err)

	// Levels stay zero until a full window has been collected.
	for i := 0; i < 2047; i++ {
		c.Process(0.25, 0.25)
	}
	in, ok := c.InputLevels(0)
	require.True(t, ok)
	assert.Zero(t, in.RMSL)

	c.Process(0.25, 0.25)
	in, _ = c.InputLevels(0)
	out, _ := c.OutputLevels(0)
	assert.InDelta(t, 0.25, in.RMSL, 1e-4)
	assert.InDelta(t, 0.25, in.PeakR, 1e-6)
	assert.InDelta(t, 0.5, out.RMSL, 1e-4)
	assert.InDelta(t, 0.5, out.PeakL, 1e-6)

	// The reading is stable until the next window completes.
	c.Process(1, 1)
	in2, _ := c.InputLevels(0)
	assert.Equal(t, in, in2)

	_, ok = c.InputLevels(3)
	assert.False(t, ok)
}

func TestChainCPUReport(t *testing.T) {
	c := rack.New(testFactory{})
	_, err := c.Add("gain", nil)
	require.NoError(t, err)
	_, err = c.Add("duck", nil)
	require.NoError(t, err)

	for i := 0; i < 256; i++ {
		c.Process(0.5, 0.5)
	}
	report := c.CPUReport()
	require.Len(t, report, 2)
	assert.Equal(t, "gain", report[0].Name)
	assert.Equal(t, "duck", report[1].Name)
	m, ok := c.EffectCPU(0)
	require.True(t, ok)
	assert.Equal(t, uint64(256), m.SamplesProcessed)

	c.ResetMeters()
	m, _ = c.EffectCPU(0)
	assert.Zero(t, m.SamplesProcessed)
	assert.Zero(t, c.TotalCPU())
	assert.False(t, c.Overloaded())
}

func TestChainIndexOf(t *testing.T) {
	c := rack.New(testFactory{})
	id := uuid.New()
	_, err := c.AddWithID(id, "gain", nil)
	require.NoError(t, err)
	_, err = c.Add("gain", nil)
	require.NoError(t, err)

	i, ok := c.IndexOf(id)
	assert.True(t, ok)
	assert.Equal(t, 0, i)
	_, ok = c.IndexOf(uuid.New())
	assert.False(t, ok)
	_, ok = c.IndexOf(uuid.Nil)
	assert.False(t, ok, "stages without identity are not addressable by ID")

	assert.True(t, c.SetParamByID(id, "gain", 4))
	v, _ := c.Param(0, "gain")
	assert.Equal(t, float32(4), v)

	assert.True(t, c.RemoveByID(id))
	assert.Equal(t, 1, c.Len())
}
