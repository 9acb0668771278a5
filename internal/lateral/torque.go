package lateral

import (
	"fmt"
	"math"
)

// TorqueController turns a desired curvature into a normalized steering
// torque. It is Inactive below MinSteerSpeed or when the request is not
// active, and Active otherwise.
//
// A TorqueController is not safe for concurrent use; one control loop owns it.
type TorqueController struct {
	cfg   Config
	model *ErrorModel
	pid   *PID
	sat   saturationTimer
}

// New validates cfg. vm may be nil in yaw-rate mode.
func New(cfg Config, vm CurvatureModel) (*TorqueController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Measurement == MeasureSteeringAngle && vm == nil {
		return nil, ErrMissingModel
	}
	if cfg.SaturationEpsilon <= 0 {
		cfg.SaturationEpsilon = DefaultSaturationEpsilon
	}

	decimation := 1
	if cfg.Derivative == DerivativeDecimated {
		decimation, _ = cfg.DecimationRatio()
	}

	return &TorqueController{
		cfg:   cfg,
		model: NewErrorModel(cfg.CurvatureScale, cfg.Measurement, vm),
		pid:   newPID(cfg, decimation),
		sat:   newSaturationTimer(cfg.TickPeriod(), cfg.SatLimitSeconds, cfg.SatCheckSpeed),
	}, nil
}

// Update runs one control tick.
func (c *TorqueController) Update(req ControlRequest, vs VehicleState, cal Calibration) Output {
	if !req.Active || vs.Speed < c.cfg.MinSteerSpeed {
		// The saturation counter drains only on active ticks or an explicit Reset.
		c.pid.Reset()
		return Output{}
	}

	setpoint, measurement, ff := c.model.Compute(req.Curvature, vs, cal)
	raw := c.pid.Update(setpoint, measurement, ff, vs.Speed, vs.SteeringPressed)
	saturated := math.Abs(raw) >= c.cfg.SaturationLimit-c.cfg.SaturationEpsilon

	p, i, d, f := c.pid.Terms()
	torque := -raw

	return Output{
		Torque: torque,
		Diagnostics: Diagnostics{
			Active:             true,
			Error:              setpoint - measurement,
			P:                  p,
			I:                  i,
			D:                  d,
			F:                  f,
			Output:             torque,
			Saturated:          saturated,
			SaturatedSustained: c.sat.update(saturated, vs.Speed, vs.SteeringPressed),
		},
	}
}

// Reset clears the PID state and the saturation counter. Safe to call repeatedly.
func (c *TorqueController) Reset() {
	c.pid.Reset()
	c.sat.reset()
}

func (c *TorqueController) State() State {
	s := c.pid.state
	s.SatCounter = c.sat.count
	return s
}

func (c *TorqueController) Config() Config { return c.cfg }

// ErrorModel exposes the curvature conversion used by the controller.
func (c *TorqueController) ErrorModel() *ErrorModel { return c.model }

// Params returns the scalar tunables for live adjustment. Scheduled gains
// are reported at standstill.
func (c *TorqueController) Params() map[string]float64 {
	return map[string]float64{
		"kp":    c.pid.kp(0),
		"ki":    c.pid.ki(0),
		"kd":    c.pid.kd,
		"kf":    c.pid.kf,
		"scale": c.model.scale,
	}
}

// SetParam replaces a tunable. Setting kp or ki drops any speed schedule.
func (c *TorqueController) SetParam(name string, value float64) error {
	switch name {
	case "kp":
		c.pid.kp = Constant(value)
		c.cfg.Kp = c.pid.kp
	case "ki":
		c.pid.ki = Constant(value)
		c.cfg.Ki = c.pid.ki
	case "kd":
		c.pid.kd = value
		c.cfg.Kd = value
	case "kf":
		c.pid.kf = value
		c.cfg.Kf = value
	case "scale":
		c.model.scale = value
		c.cfg.CurvatureScale = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}
