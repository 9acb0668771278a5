package integrators

import (
	"math"

	"github.com/san-kum/latctl/internal/dynamo"
)

// Dormand-Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// fifth-order weights minus the embedded fourth-order ones
	dpE = [7]float64{
		35.0/384 - 5179.0/57600,
		0,
		500.0/1113 - 7571.0/16695,
		125.0/192 - 393.0/640,
		-2187.0/6784 + 92097.0/339200,
		11.0/84 - 187.0/2100,
		-1.0 / 40,
	}
)

// RK45 covers each requested step with as many Dormand-Prince sub-steps as
// the error tolerance needs. The rack lag is stiff relative to a long control
// period, so a single fixed step can be too coarse.
type RK45 struct {
	Tol      float64
	MaxSteps int

	safety, minScale, maxScale float64

	k       [7]dynamo.State
	scratch dynamo.State
	// h carries the last accepted sub-step into the next call.
	h float64
}

func NewRK45() *RK45 {
	return &RK45{
		Tol:      1e-6,
		MaxSteps: 1000,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 5.0,
	}
}

func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	end := t + dt
	h := r.h
	if h <= 0 || h > dt {
		h = dt
	}

	x = x.Clone()
	for n := 0; t < end && n < r.MaxSteps; n++ {
		step := math.Min(h, end-t)
		next, errRatio := r.try(dyn, x, u, t, step)
		if !next.IsValid() {
			return next
		}
		if errRatio <= 1 || n == r.MaxSteps-1 {
			t += step
			x = next
			if step < h {
				// clipped to the end of the period; keep the proposal
				continue
			}
		}
		h = step * r.scale(errRatio)
	}
	r.h = h
	return x
}

func (r *RK45) scale(errRatio float64) float64 {
	if errRatio == 0 {
		return r.maxScale
	}
	s := r.safety * math.Pow(errRatio, -0.2)
	return math.Max(r.minScale, math.Min(r.maxScale, s))
}

// try takes one sub-step of size h and returns the new state and the error
// estimate relative to Tol.
func (r *RK45) try(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, h float64) (dynamo.State, float64) {
	n := len(x)
	if len(r.scratch) != n {
		r.scratch = make(dynamo.State, n)
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
	}

	copy(r.k[0], dyn.Derive(x, u, t))
	var next dynamo.State
	for s := 1; s < 7; s++ {
		for i := 0; i < n; i++ {
			acc := 0.0
			for j := 0; j < s; j++ {
				acc += dpA[s][j] * r.k[j][i]
			}
			r.scratch[i] = x[i] + h*acc
		}
		if s == 6 {
			next = r.scratch.Clone()
		}
		copy(r.k[s], dyn.Derive(r.scratch, u, t+dpC[s]*h))
	}

	errMax := 0.0
	for i := 0; i < n; i++ {
		est := 0.0
		for s := 0; s < 7; s++ {
			est += dpE[s] * r.k[s][i]
		}
		sc := math.Abs(x[i]) + math.Abs(h*r.k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(h*est)/sc)
	}
	return next, errMax / r.Tol
}
