package lateral

import "errors"

var (
	ErrInvalidRate      = errors.New("lateral: control and upstream rates must be positive")
	ErrDecimationRatio  = errors.New("lateral: control rate must be an integer multiple of the upstream rate")
	ErrInvalidLimit     = errors.New("lateral: saturation limit must be positive")
	ErrInvalidSchedule  = errors.New("lateral: gain breakpoints must be strictly increasing and match values")
	ErrMissingModel     = errors.New("lateral: steering-angle measurement requires a curvature model")
	ErrMissingGain      = errors.New("lateral: kp and ki must be set")
	ErrNegativeMinSpeed = errors.New("lateral: minimum steer speed must be non-negative")
	ErrUnknownParam     = errors.New("lateral: unknown parameter")
)
