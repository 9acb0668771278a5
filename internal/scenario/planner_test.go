package scenario

import (
	"errors"
	"testing"
)

func rampScenario() *Scenario {
	end := 0.01
	return &Scenario{Duration: 1, Segments: []Segment{
		{T0: 0, T1: 1, Speed: 10, CurvatureEnd: &end},
	}}
}

func TestPlannerHoldsBetweenRefreshes(t *testing.T) {
	p, err := NewPlanner(rampScenario(), 100, 20)
	if err != nil {
		t.Fatal(err)
	}
	if p.Decimation() != 5 {
		t.Fatalf("expected decimation 5, got %d", p.Decimation())
	}

	var held float64
	for tick := 0; tick < 20; tick++ {
		tm := float64(tick) * 0.01
		k, _ := p.Step(tm)
		if tick%5 == 0 {
			if !p.Refreshed() {
				t.Errorf("tick %d should refresh", tick)
			}
			held = k
			continue
		}
		if p.Refreshed() {
			t.Errorf("tick %d should not refresh", tick)
		}
		if k != held {
			t.Errorf("tick %d: curvature %v changed from held %v", tick, k, held)
		}
	}
}

func TestPlannerRate(t *testing.T) {
	p, _ := NewPlanner(rampScenario(), 100, 20)

	_, rate := p.Step(0)
	if rate != 0 {
		t.Errorf("first refresh should report zero rate, got %v", rate)
	}
	for tick := 1; tick < 5; tick++ {
		p.Step(float64(tick) * 0.01)
	}
	_, rate = p.Step(0.05)
	if rate < 0.0099 || rate > 0.0101 {
		t.Errorf("ramp rate = %v, want ~0.01", rate)
	}
}

func TestPlannerRejectsFractionalRatio(t *testing.T) {
	if _, err := NewPlanner(rampScenario(), 100, 30); !errors.Is(err, ErrPlannerRate) {
		t.Errorf("expected ErrPlannerRate, got %v", err)
	}
	if _, err := NewPlanner(rampScenario(), 100, 0); !errors.Is(err, ErrPlannerRate) {
		t.Errorf("expected ErrPlannerRate for zero rate, got %v", err)
	}
}
