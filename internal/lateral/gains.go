package lateral

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Gain returns a controller gain for the current vehicle speed.
type Gain func(speed float64) float64

func Constant(k float64) Gain {
	return func(float64) float64 { return k }
}

// Interpolated builds a speed-scheduled gain. Speeds outside the table hold
// the first or last value. A single breakpoint yields a constant gain.
func Interpolated(breakpoints, values []float64) (Gain, error) {
	if len(breakpoints) == 0 || len(breakpoints) != len(values) {
		return nil, fmt.Errorf("%w: %d breakpoints, %d values", ErrInvalidSchedule, len(breakpoints), len(values))
	}
	for i := 1; i < len(breakpoints); i++ {
		if breakpoints[i] <= breakpoints[i-1] {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, breakpoints)
		}
	}
	if len(breakpoints) == 1 {
		return Constant(values[0]), nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(breakpoints, values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return pl.Predict, nil
}
