package integrators

import (
	"math"

	"github.com/san-kum/latctl/internal/dynamo"
)

// RK4 is the classic fourth-order Runge-Kutta step. With MaxStep set, a
// longer step is split into equal sub-steps no longer than MaxStep.
type RK4 struct {
	MaxStep float64

	k1, k2, k3, k4 dynamo.State
	tmp            dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := 1
	if r.MaxStep > 0 && dt > r.MaxStep {
		n = int(math.Ceil(dt / r.MaxStep))
	}
	h := dt / float64(n)

	x = x.Clone()
	for i := 0; i < n; i++ {
		r.advance(dyn, x, u, t+float64(i)*h, h)
	}
	return x
}

// advance integrates x in place over one step h.
func (r *RK4) advance(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, h float64) {
	if len(r.tmp) != len(x) {
		r.k1 = make(dynamo.State, len(x))
		r.k2 = make(dynamo.State, len(x))
		r.k3 = make(dynamo.State, len(x))
		r.k4 = make(dynamo.State, len(x))
		r.tmp = make(dynamo.State, len(x))
	}

	stage := func(dst, from dynamo.State, c float64) {
		for i := range x {
			r.tmp[i] = x[i] + c*h*from[i]
		}
		copy(dst, dyn.Derive(r.tmp, u, t+c*h))
	}

	copy(r.k1, dyn.Derive(x, u, t))
	stage(r.k2, r.k1, 0.5)
	stage(r.k3, r.k2, 0.5)
	stage(r.k4, r.k3, 1)

	for i := range x {
		x[i] += h / 6 * (r.k1[i] + 2*r.k2[i] + 2*r.k3[i] + r.k4[i])
	}
}
