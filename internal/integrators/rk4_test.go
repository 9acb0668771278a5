package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/latctl/internal/dynamo"
)

type simpleDynamics struct{}

func (s *simpleDynamics) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (s *simpleDynamics) StateDim() int   { return 2 }
func (s *simpleDynamics) ControlDim() int { return 0 }

// firstOrder is a steering-rack style lag toward u[0] with time constant 0.1s.
type firstOrder struct{}

func (f *firstOrder) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{(u[0] - x[0]) / 0.1}
}

func (f *firstOrder) StateDim() int   { return 1 }
func (f *firstOrder) ControlDim() int { return 1 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &simpleDynamics{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestFirstOrderLag(t *testing.T) {
	tests := []struct {
		name  string
		integ dynamo.Integrator
		tol   float64
	}{
		{"euler", NewEuler(), 1e-2},
		{"rk4", NewRK4(), 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := dynamo.State{0}
			u := dynamo.Control{1}
			dt := 0.01
			for i := 0; i < 50; i++ {
				x = tt.integ.Step(&firstOrder{}, x, u, float64(i)*dt, dt)
			}
			expected := 1 - math.Exp(-5)
			if math.Abs(x[0]-expected) > tt.tol {
				t.Errorf("got %.6f, want %.6f", x[0], expected)
			}
		})
	}
}

func TestRK4DoesNotMutateInput(t *testing.T) {
	x := dynamo.State{1.0, 0.0}
	_ = NewRK4().Step(&simpleDynamics{}, x, nil, 0, 0.1)
	if x[0] != 1.0 || x[1] != 0.0 {
		t.Errorf("input state mutated: %v", x)
	}
}

func TestRK4SubSteps(t *testing.T) {
	dyn := &firstOrder{}
	u := dynamo.Control{1}

	coarse := NewRK4()
	fine := NewRK4()
	fine.MaxStep = 0.01

	xc := coarse.Step(dyn, dynamo.State{0}, u, 0, 0.5)
	xf := fine.Step(dyn, dynamo.State{0}, u, 0, 0.5)

	expected := 1 - math.Exp(-5)
	if math.Abs(xf[0]-expected) > 1e-6 {
		t.Errorf("sub-stepped: expected %.6f, got %.6f", expected, xf[0])
	}
	if math.Abs(xc[0]-expected) <= math.Abs(xf[0]-expected) {
		t.Errorf("a single 0.5s step should be less accurate than sub-steps (coarse %.6f, fine %.6f)", xc[0], xf[0])
	}
}
