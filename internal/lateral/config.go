package lateral

import (
	"fmt"
	"math"
)

type MeasurementMode int

const (
	// MeasureYawRate takes actual curvature as yaw rate over speed.
	MeasureYawRate MeasurementMode = iota
	// MeasureSteeringAngle inverts the kinematic model at the calibrated
	// steering angle.
	MeasureSteeringAngle
)

func (m MeasurementMode) String() string {
	switch m {
	case MeasureSteeringAngle:
		return "steering_angle"
	default:
		return "yaw_rate"
	}
}

type DerivativeMode int

const (
	// DerivativeContinuous differentiates the error every control tick.
	DerivativeContinuous DerivativeMode = iota
	// DerivativeDecimated differentiates once per upstream refresh and holds
	// the value in between.
	DerivativeDecimated
)

func (m DerivativeMode) String() string {
	switch m {
	case DerivativeDecimated:
		return "decimated"
	default:
		return "continuous"
	}
}

const (
	DefaultControlHz         = 100.0
	DefaultUpstreamHz        = 20.0
	DefaultMinSteerSpeed     = 0.3
	DefaultSaturationLimit   = 1.0
	DefaultSaturationEpsilon = 1e-3
	DefaultCurvatureScale    = 400.0
	DefaultSatCheckSpeed     = 10.0
	DefaultSatLimitSeconds   = 1.0
)

type Config struct {
	Kp Gain
	Ki Gain
	Kd float64
	Kf float64

	// CurvatureScale converts curvature into lateral-acceleration units so
	// the two can be blended at low speed.
	CurvatureScale float64

	SaturationLimit   float64
	SaturationEpsilon float64
	MinSteerSpeed     float64

	ControlHz  float64
	UpstreamHz float64
	Derivative DerivativeMode

	Measurement MeasurementMode

	// UnwindRate bleeds the integrator toward zero while the driver
	// overrides, in integrator units per second. Zero freezes it.
	UnwindRate float64

	// The sustained saturation flag needs saturation above SatCheckSpeed for
	// SatLimitSeconds.
	SatCheckSpeed   float64
	SatLimitSeconds float64
}

func DefaultConfig() Config {
	return Config{
		Kp:                Constant(1.0),
		Ki:                Constant(0.1),
		Kf:                1.0,
		CurvatureScale:    DefaultCurvatureScale,
		SaturationLimit:   DefaultSaturationLimit,
		SaturationEpsilon: DefaultSaturationEpsilon,
		MinSteerSpeed:     DefaultMinSteerSpeed,
		ControlHz:         DefaultControlHz,
		UpstreamHz:        DefaultUpstreamHz,
		Derivative:        DerivativeContinuous,
		Measurement:       MeasureYawRate,
		SatCheckSpeed:     DefaultSatCheckSpeed,
		SatLimitSeconds:   DefaultSatLimitSeconds,
	}
}

func (c Config) Validate() error {
	if c.Kp == nil || c.Ki == nil {
		return ErrMissingGain
	}
	if c.ControlHz <= 0 || c.UpstreamHz <= 0 {
		return fmt.Errorf("%w: control %.3f Hz, upstream %.3f Hz", ErrInvalidRate, c.ControlHz, c.UpstreamHz)
	}
	if c.Derivative == DerivativeDecimated {
		if _, err := c.DecimationRatio(); err != nil {
			return err
		}
	}
	if c.SaturationLimit <= 0 {
		return fmt.Errorf("%w: %f", ErrInvalidLimit, c.SaturationLimit)
	}
	if c.MinSteerSpeed < 0 {
		return fmt.Errorf("%w: %f", ErrNegativeMinSpeed, c.MinSteerSpeed)
	}
	return nil
}

// DecimationRatio is the number of control ticks per upstream refresh.
func (c Config) DecimationRatio() (int, error) {
	r := c.ControlHz / c.UpstreamHz
	n := math.Round(r)
	if n < 1 || math.Abs(r-n) > 1e-9 {
		return 0, fmt.Errorf("%w: %.3f / %.3f", ErrDecimationRatio, c.ControlHz, c.UpstreamHz)
	}
	return int(n), nil
}

func (c Config) TickPeriod() float64     { return 1.0 / c.ControlHz }
func (c Config) UpstreamPeriod() float64 { return 1.0 / c.UpstreamHz }
