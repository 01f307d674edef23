package rack

import "github.com/kaikusynth/kaiku"

// CPULoad is one row of a chain CPU report.
type CPULoad struct {
	Name       string
	Percent    float64
	Overloaded bool
}

// EffectCPU returns a snapshot of the CPU metrics of the stage at index.
func (c *Chain) EffectCPU(index int) (kaiku.Metrics, bool) {
	if index < 0 || index >= len(c.effects) {
		return kaiku.Metrics{}, false
	}
	return c.effects[index].meter.Metrics(), true
}

// TotalCPU returns the summed CPU usage of all stages as a fraction of the
// real-time budget, 1.0 meaning the chain alone consumes the whole budget.
func (c *Chain) TotalCPU() float64 {
	total := 0.0
	for _, e := range c.effects {
		total += e.meter.Metrics().CPUUsage
	}
	return total
}

// Overloaded reports whether the summed chain load exceeds the real-time
// budget.
func (c *Chain) Overloaded() bool { return c.TotalCPU() > 1 }

// CPUReport returns per-stage CPU loads, first stage first.
func (c *Chain) CPUReport() []CPULoad {
	report := make([]CPULoad, len(c.effects))
	for i, e := range c.effects {
		m := e.meter.Metrics()
		report[i] = CPULoad{Name: e.Name, Percent: m.CPUPercent(), Overloaded: m.Overloaded()}
	}
	return report
}

// ResetMeters resets the CPU meters of all stages.
func (c *Chain) ResetMeters() {
	for _, e := range c.effects {
		e.meter.Reset()
	}
}
