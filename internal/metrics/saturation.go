package metrics

import (
	"math"

	"github.com/san-kum/latctl/internal/sim"
)

// SaturationRatio is the fraction of engaged ticks the controller reported
// saturated.
type SaturationRatio struct {
	name      string
	saturated int
	samples   int
}

func NewSaturationRatio() *SaturationRatio {
	return &SaturationRatio{name: "saturation_ratio"}
}

func (r *SaturationRatio) Name() string { return r.name }

func (r *SaturationRatio) Observe(s sim.Sample) {
	if !s.Diagnostics.Active {
		return
	}
	r.samples++
	if s.Diagnostics.Saturated {
		r.saturated++
	}
}

func (r *SaturationRatio) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return float64(r.saturated) / float64(r.samples)
}

func (r *SaturationRatio) Reset() {
	r.saturated = 0
	r.samples = 0
}

// IntegratorPeak is the largest |i| seen in a run.
type IntegratorPeak struct {
	peak float64
}

func NewIntegratorPeak() *IntegratorPeak { return &IntegratorPeak{} }

func (p *IntegratorPeak) Name() string { return "integrator_peak" }

func (p *IntegratorPeak) Observe(s sim.Sample) {
	p.peak = math.Max(p.peak, math.Abs(s.Diagnostics.I))
}

func (p *IntegratorPeak) Value() float64 { return p.peak }
func (p *IntegratorPeak) Reset()         { p.peak = 0 }
