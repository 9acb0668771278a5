package metrics

import (
	"math"

	"github.com/san-kum/latctl/internal/sim"
)

// ControlEffort is the mean |torque| over engaged ticks.
type ControlEffort struct {
	sum    float64
	active int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (*ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(s sim.Sample) {
	if s.Diagnostics.Active {
		c.sum += math.Abs(s.Torque)
		c.active++
	}
}

func (c *ControlEffort) Value() float64 {
	if c.active == 0 {
		return 0
	}
	return c.sum / float64(c.active)
}

func (c *ControlEffort) Reset() { *c = ControlEffort{} }

// TorqueRate is the mean |dTorque/dt| between consecutive engaged ticks, per
// second. High values mean a twitchy wheel even when tracking is good.
type TorqueRate struct {
	sum   float64
	n     int
	prev  sim.Sample
	valid bool
}

func NewTorqueRate() *TorqueRate { return &TorqueRate{} }

func (*TorqueRate) Name() string { return "torque_rate" }

func (r *TorqueRate) Observe(s sim.Sample) {
	if !s.Diagnostics.Active {
		r.valid = false
		return
	}
	if r.valid && s.Time > r.prev.Time {
		r.sum += math.Abs(s.Torque-r.prev.Torque) / (s.Time - r.prev.Time)
		r.n++
	}
	r.prev, r.valid = s, true
}

func (r *TorqueRate) Value() float64 {
	if r.n == 0 {
		return 0
	}
	return r.sum / float64(r.n)
}

func (r *TorqueRate) Reset() { *r = TorqueRate{} }
