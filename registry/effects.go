package registry

import (
	"github.com/chewxy/math32"

	"github.com/kaikusynth/kaiku"
)

const (
	buildSampleRate = 48000 // until the chain sets the real rate
	maxDelaySeconds = 2
)

// BuiltinEffects returns a registry with all builtin effects: gain, pan,
// distort, clip, crush, delay, filter and compressor.
func BuiltinEffects() *Effects {
	e := NewEffects()
	e.Register(kaiku.EffectMetadata{
		Name:        "gain",
		Description: "smoothed stereo level",
		Parameters: []kaiku.ParameterDef{
			{Name: "level", Default: 1, Min: 0, Max: 4},
		},
	}, buildGain, nil)
	e.Register(kaiku.EffectMetadata{
		Name:        "pan",
		Description: "equal-power stereo balance",
		Parameters: []kaiku.ParameterDef{
			{Name: "position", Default: 0, Min: -1, Max: 1},
		},
	}, buildPan, nil)
	e.Register(kaiku.EffectMetadata{
		Name:        "distort",
		Description: "waveshaping distortion",
		Parameters: []kaiku.ParameterDef{
			{Name: "drive", Default: 0.7, Min: 0.01, Max: 0.99},
		},
	}, buildDistort, nil)
	e.Register(kaiku.EffectMetadata{
		Name:        "clip",
		Description: "hard clipper",
		Parameters: []kaiku.ParameterDef{
			{Name: "level", Default: 1, Min: 0.01, Max: 4},
		},
	}, buildClip, nil)
	e.Register(kaiku.EffectMetadata{
		Name:        "crush",
		Description: "bit depth reduction",
		Parameters: []kaiku.ParameterDef{
			{Name: "bits", Default: 8, Min: 1, Max: 16},
		},
	}, buildCrush, nil)
	e.Register(kaiku.EffectMetadata{
		Name:        "delay",
		Description: "feedback delay with damping",
		Parameters: []kaiku.ParameterDef{
			{Name: "time", Default: 0.25, Min: 0.001, Max: maxDelaySeconds},
			{Name: "feedback", Default: 0.4, Min: 0, Max: 0.95},
			{Name: "damp", Default: 0.2, Min: 0, Max: 1},
			{Name: "mix", Default: 0.3, Min: 0, Max: 1},
		},
	}, buildDelay, nil)
	e.Register(kaiku.EffectMetadata{
		Name:        "filter",
		Description: "state variable filter",
		Parameters: []kaiku.ParameterDef{
			{Name: "cutoff", Default: 1000, Min: 20, Max: 20000},
			{Name: "resonance", Default: 0.7, Min: 0.1, Max: 2},
			{Name: "mode", Default: filterLow, Min: filterLow, Max: filterBand},
		},
	}, buildFilter, nil)
	e.Register(kaiku.EffectMetadata{
		Name:        "compressor",
		Description: "feed-forward compressor, sidechain capable",
		Parameters: []kaiku.ParameterDef{
			{Name: "threshold", Default: 0.5, Min: 0.01, Max: 1},
			{Name: "ratio", Default: 4, Min: 1, Max: 20},
			{Name: "attack", Default: 0.005, Min: 0.0001, Max: 1},
			{Name: "release", Default: 0.1, Min: 0.001, Max: 3},
			{Name: "makeup", Default: 1, Min: 0.25, Max: 4},
		},
	}, buildCompressor, buildSidechainCompressor)
	return e
}

func controlsFor(params map[string]float32, names ...string) kaiku.Controls {
	c := make(kaiku.Controls, len(names))
	for _, name := range names {
		c[name] = kaiku.NewParam(params[name])
	}
	return c
}

type gainEffect struct {
	level    *kaiku.Param
	smoothed *kaiku.SmoothedParam
}

func buildGain(params map[string]float32) (kaiku.Processor, kaiku.Controls) {
	c := controlsFor(params, "level")
	g := &gainEffect{level: c["level"]}
	g.SetSampleRate(buildSampleRate)
	return g, c
}

func (g *gainEffect) ProcessSample(l, r float32) (float32, float32) {
	v := g.smoothed.Next()
	return l * v, r * v
}

func (g *gainEffect) Reset() { g.smoothed.Reset() }

func (g *gainEffect) SetSampleRate(rate float64) {
	// 5 ms of smoothing keeps level jumps free of zipper noise
	g.smoothed = kaiku.SmoothParam(g.level, 0.005, rate)
}

type panEffect struct {
	position *kaiku.Param
}

func buildPan(params map[string]float32) (kaiku.Processor, kaiku.Controls) {
	c := controlsFor(params, "position")
	return &panEffect{position: c["position"]}, c
}

func (p *panEffect) ProcessSample(l, r float32) (float32, float32) {
	angle := (p.position.Value() + 1) * (math32.Pi / 4)
	return l * math32.Cos(angle) * sqrt2, r * math32.Sin(angle) * sqrt2
}

func (p *panEffect) Reset()                  {}
func (p *panEffect) SetSampleRate(_ float64) {}

// sqrt2 renormalizes the equal-power law so that center position is unity.
const sqrt2 = 1.41421356

type distortEffect struct {
	drive *kaiku.Param
}

func buildDistort(params map[string]float32) (kaiku.Processor, kaiku.Controls) {
	c := controlsFor(params, "drive")
	return &distortEffect{drive: c["drive"]}, c
}

func (d *distortEffect) ProcessSample(l, r float32) (float32, float32) {
	a := d.drive.Value()
	return waveshape(l, a), waveshape(r, a)
}

func (d *distortEffect) Reset()                  {}
func (d *distortEffect) SetSampleRate(_ float64) {}

// waveshape maps x through a sigmoid whose shape a=0.5 leaves the signal
// untouched; higher values push toward hard clipping, lower toward expansion.
func waveshape(x, a float32) float32 {
	return x * a / (1 - a + (2*a-1)*math32.Abs(x))
}

type clipEffect struct {
	level *kaiku.Param
}

func buildClip(params map[string]float32) (kaiku.Processor, kaiku.Controls) {
	c := controlsFor(params, "level")
	return &clipEffect{level: c["level"]}, c
}

func (c *clipEffect) ProcessSample(l, r float32) (float32, float32) {
	level := c.level.Value()
	return clampf(l, -level, level), clampf(r, -level, level)
}

func (c *clipEffect) Reset()                  {}
func (c *clipEffect) SetSampleRate(_ float64) {}

func clampf(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

type crushEffect struct {
	bits *kaiku.Param
}

func buildCrush(params map[string]float32) (kaiku.Processor, kaiku.Controls) {
	c := controlsFor(params, "bits")
	return &crushEffect{bits: c["bits"]}, c
}

func (c *crushEffect) ProcessSample(l, r float32) (float32, float32) {
	res := math32.Exp2(c.bits.Value() - 1)
	return math32.Round(l*res) / res, math32.Round(r*res) / res
}

func (c *crushEffect) Reset()                  {}
func (c *crushEffect) SetSampleRate(_ float64) {}

type delayEffect struct {
	time     *kaiku.Param
	feedback *kaiku.Param
	damp     *kaiku.Param
	mix      *kaiku.Param

	bufL, bufR   []float32
	pos          int
	filtL, filtR float32
	rate         float64
}

func buildDelay(params map[string]float32) (kaiku.Processor, kaiku.Controls) {
	c := controlsFor(params, "time", "feedback", "damp", "mix")
	d := &delayEffect{
		time:     c["time"],
		feedback: c["feedback"],
		damp:     c["damp"],
		mix:      c["mix"],
	}
	d.SetSampleRate(buildSampleRate)
	return d, c
}

func (d *delayEffect) ProcessSample(l, r float32) (float32, float32) {
	length := len(d.bufL)
	offset := int(d.time.Value() * float32(d.rate))
	if offset < 1 {
		offset = 1
	}
	if offset >= length {
		offset = length - 1
	}
	read := d.pos - offset
	if read < 0 {
		read += length
	}
	wetL, wetR := d.bufL[read], d.bufR[read]
	// one-pole lowpass in the feedback path darkens each repeat; damp 0
	// passes the wet signal back unfiltered
	damp := d.damp.Value()
	d.filtL += (1 - damp) * (wetL - d.filtL)
	d.filtR += (1 - damp) * (wetR - d.filtR)
	feedback := d.feedback.Value()
	d.bufL[d.pos] = l + d.filtL*feedback
	d.bufR[d.pos] = r + d.filtR*feedback
	d.pos++
	if d.pos == length {
		d.pos = 0
	}
	mix := d.mix.Value()
	return l + (wetL-l)*mix, r + (wetR-r)*mix
}

func (d *delayEffect) Reset() {
	for i := range d.bufL {
		d.bufL[i] = 0
		d.bufR[i] = 0
	}
	d.filtL, d.filtR = 0, 0
	d.pos = 0
}

func (d *delayEffect) SetSampleRate(rate float64) {
	if rate == d.rate {
		return
	}
	d.rate = rate
	length := int(maxDelaySeconds*rate) + 1
	d.bufL = make([]float32, length)
	d.bufR = make([]float32, length)
	d.Reset()
}

const (
	filterLow = iota
	filterHigh
	filterBand
)

type filterEffect struct {
	cutoff    *kaiku.Param
	resonance *kaiku.Param
	mode      *kaiku.Param

	lowL, bandL float32
	lowR, bandR float32
	rate        float64
}

func buildFilter(params map[string]float32) (kaiku.Processor, kaiku.Controls) {
	c := controlsFor(params, "cutoff", "resonance", "mode")
	f := &filterEffect{cutoff: c["cutoff"], resonance: c["resonance"], mode: c["mode"]}
	f.SetSampleRate(buildSampleRate)
	return f, c
}

func (f *filterEffect) ProcessSample(l, r float32) (float32, float32) {
	q := 1 / f.resonance.Value()
	freq := svfCoeff(f.cutoff.Value(), float32(f.rate), q)
	mode := int(f.mode.Value())

	outL := svfStep(&f.lowL, &f.bandL, l, freq, q, mode)
	outR := svfStep(&f.lowR, &f.bandR, r, freq, q, mode)
	return outL, outR
}

// svfCoeff returns the integrator coefficient for a cutoff and damping,
// keeping the Chamberlin discretization stable over the whole advertised
// parameter range. The cutoff is capped near rate/6, and the coefficient is
// further bounded by sqrt(q*q+4)-q: the state update is stable only while
// freq*freq < 4-2*freq*q, and that bound is where the two meet (it also
// guarantees freq*q < 2). The 0.95 leaves a margin against float32 rounding.
func svfCoeff(cutoff, rate, q float32) float32 {
	if limit := rate / 6; cutoff > limit {
		cutoff = limit
	}
	freq := 2 * math32.Sin(math32.Pi*cutoff/rate)
	if limit := 0.95 * (math32.Sqrt(q*q+4) - q); freq > limit {
		freq = limit
	}
	return freq
}

func svfStep(low, band *float32, x, freq, q float32, mode int) float32 {
	*low += freq * *band
	high := x - *low - q**band
	*band += freq * high
	switch mode {
	case filterHigh:
		return high
	case filterBand:
		return *band
	default:
		return *low
	}
}

func (f *filterEffect) Reset() {
	f.lowL, f.bandL, f.lowR, f.bandR = 0, 0, 0, 0
}

func (f *filterEffect) SetSampleRate(rate float64) { f.rate = rate }

type compressorEffect struct {
	threshold *kaiku.Param
	ratio     *kaiku.Param
	attack    *kaiku.Param
	release   *kaiku.Param
	makeup    *kaiku.Param

	envelope float32
	rate     float64
}

func buildCompressor(params map[string]float32) (kaiku.Processor, kaiku.Controls) {
	c := controlsFor(params, "threshold", "ratio", "attack", "release", "makeup")
	comp := newCompressor(c, buildSampleRate)
	return comp, c
}

func buildSidechainCompressor(params map[string]float32, rate float64) kaiku.SidechainProcessor {
	c := controlsFor(params, "threshold", "ratio", "attack", "release", "makeup")
	return newCompressor(c, rate)
}

func newCompressor(c kaiku.Controls, rate float64) *compressorEffect {
	return &compressorEffect{
		threshold: c["threshold"],
		ratio:     c["ratio"],
		attack:    c["attack"],
		release:   c["release"],
		makeup:    c["makeup"],
		rate:      rate,
	}
}

func (c *compressorEffect) ProcessSample(l, r float32) (float32, float32) {
	return c.compress(l, r, l, r)
}

// ProcessSidechain compresses the main signal based on the level of the
// sidechain signal, the classic ducking configuration.
func (c *compressorEffect) ProcessSidechain(l, r, scL, scR float32) (float32, float32) {
	return c.compress(l, r, scL, scR)
}

func (c *compressorEffect) compress(l, r, detL, detR float32) (float32, float32) {
	level := math32.Max(math32.Abs(detL), math32.Abs(detR))
	tau := c.release.Value()
	if level > c.envelope {
		tau = c.attack.Value()
	}
	coeff := math32.Exp(-1 / (tau * float32(c.rate)))
	c.envelope = level + (c.envelope-level)*coeff

	gain := c.makeup.Value()
	threshold := c.threshold.Value()
	if c.envelope > threshold {
		// gain reduction pulling the envelope toward threshold + excess/ratio
		gain *= math32.Pow(c.envelope/threshold, 1/c.ratio.Value()-1)
	}
	return l * gain, r * gain
}

func (c *compressorEffect) Reset() { c.envelope = 0 }

func (c *compressorEffect) SetSampleRate(rate float64) { c.rate = rate }
