package scenario

import (
	"errors"
	"fmt"
	"math"
)

var ErrPlannerRate = errors.New("scenario: control rate must be an integer multiple of the planner rate")

// Planner samples the scenario's desired curvature at the planner rate and
// holds it between refreshes, the way an upstream planner feeds the
// controller.
type Planner struct {
	scen       *Scenario
	decimation int
	period     float64

	tick      int
	curvature float64
	rate      float64
}

func NewPlanner(scen *Scenario, controlHz, plannerHz float64) (*Planner, error) {
	if controlHz <= 0 || plannerHz <= 0 {
		return nil, fmt.Errorf("%w: %.3f / %.3f", ErrPlannerRate, controlHz, plannerHz)
	}
	r := controlHz / plannerHz
	n := math.Round(r)
	if n < 1 || math.Abs(r-n) > 1e-9 {
		return nil, fmt.Errorf("%w: %.3f / %.3f", ErrPlannerRate, controlHz, plannerHz)
	}
	return &Planner{
		scen:       scen,
		decimation: int(n),
		period:     1 / plannerHz,
	}, nil
}

// Step is called once per control tick and returns the held desired
// curvature and its rate.
func (p *Planner) Step(t float64) (curvature, rate float64) {
	if p.tick%p.decimation == 0 {
		next := p.scen.Eval(t).Curvature
		if p.tick == 0 {
			p.rate = 0
		} else {
			p.rate = (next - p.curvature) / p.period
		}
		p.curvature = next
	}
	p.tick++
	return p.curvature, p.rate
}

// Refreshed reports whether the most recent Step sampled the scenario.
func (p *Planner) Refreshed() bool {
	return (p.tick-1)%p.decimation == 0
}

func (p *Planner) Decimation() int { return p.decimation }
