package kaiku

import "time"

type (
	// Metrics is a snapshot of one CPUMeter. AvgSampleTime is exponentially
	// smoothed; CPUUsage relates it to the real-time budget of one sample,
	// so 1.0 means the processor spends exactly as long computing a sample
	// as the sample lasts.
	Metrics struct {
		AvgSampleTimeNs  float64
		PeakSampleTimeNs uint64
		CPUUsage         float64
		SamplesProcessed uint64
		TotalTimeNs      uint64
	}

	// CPUMeter tracks how much of the real-time budget a processor uses.
	// It is advisory instrumentation only: a timestamp and a few arithmetic
	// operations per block, no allocation, and it never alters processing.
	// A meter is owned and updated by the render path exclusively.
	CPUMeter struct {
		metrics        Metrics
		sampleBudgetNs float64
		smoothing      float64
	}
)

const defaultMeterSmoothing = 0.99

// NewCPUMeter returns a meter with the per-sample time budget derived from
// the sample rate.
func NewCPUMeter(rate float64) *CPUMeter {
	m := &CPUMeter{smoothing: defaultMeterSmoothing}
	m.SetSampleRate(rate)
	return m
}

// StartTiming captures a monotonic timestamp for a processing block.
func (m *CPUMeter) StartTiming() time.Time {
	return time.Now()
}

// StopTiming folds the elapsed time since start into the metrics, attributing
// it evenly over numSamples samples.
func (m *CPUMeter) StopTiming(start time.Time, numSamples int) {
	m.record(uint64(time.Since(start).Nanoseconds()), numSamples)
}

func (m *CPUMeter) record(elapsed uint64, numSamples int) {
	if numSamples <= 0 {
		return
	}
	m.metrics.SamplesProcessed += uint64(numSamples)
	m.metrics.TotalTimeNs += elapsed
	perSample := elapsed / uint64(numSamples)
	if perSample > m.metrics.PeakSampleTimeNs {
		m.metrics.PeakSampleTimeNs = perSample
	}
	if m.metrics.AvgSampleTimeNs == 0 {
		m.metrics.AvgSampleTimeNs = float64(perSample)
	} else {
		m.metrics.AvgSampleTimeNs = m.metrics.AvgSampleTimeNs*m.smoothing + float64(perSample)*(1-m.smoothing)
	}
	m.metrics.CPUUsage = m.metrics.AvgSampleTimeNs / m.sampleBudgetNs
}

// Measure times f, attributing the elapsed time to numSamples samples.
func (m *CPUMeter) Measure(numSamples int, f func()) {
	start := m.StartTiming()
	f()
	m.StopTiming(start, numSamples)
}

// Metrics returns the current snapshot.
func (m *CPUMeter) Metrics() Metrics {
	return m.metrics
}

// Reset zeroes all counters.
func (m *CPUMeter) Reset() {
	m.metrics = Metrics{}
}

// SetSampleRate updates the per-sample budget. Falls back to 48 kHz for
// nonpositive rates so the meter never divides by zero.
func (m *CPUMeter) SetSampleRate(rate float64) {
	if rate <= 0 {
		rate = 48000
	}
	m.sampleBudgetNs = 1e9 / rate
}

// SetSmoothing sets the EMA smoothing factor; 0 disables smoothing.
func (m *CPUMeter) SetSmoothing(factor float64) {
	if factor < 0 {
		factor = 0
	}
	if factor > 0.999 {
		factor = 0.999
	}
	m.smoothing = factor
}

// CPUPercent returns usage as a 0-100 percentage.
func (m Metrics) CPUPercent() float64 { return m.CPUUsage * 100 }

// Overloaded reports usage beyond 80% of the real-time budget, the point
// where dropouts become likely.
func (m Metrics) Overloaded() bool { return m.CPUUsage > 0.8 }

// Moderate reports usage within [40%, 80%] of the budget.
func (m Metrics) Moderate() bool { return m.CPUUsage >= 0.4 && m.CPUUsage <= 0.8 }

// Low reports usage below 40% of the budget.
func (m Metrics) Low() bool { return m.CPUUsage < 0.4 }
