package lateral

import "math"

// CurvatureModel maps a steering-wheel angle in radians to path
// curvature. Both sides are left positive.
type CurvatureModel interface {
	Curvature(steerRad, speed, roll float64) float64
}

// ErrorModel puts desired and actual curvature into a common
// lateral-acceleration-like domain.
type ErrorModel struct {
	scale float64
	mode  MeasurementMode
	vm    CurvatureModel
}

func NewErrorModel(scale float64, mode MeasurementMode, vm CurvatureModel) *ErrorModel {
	return &ErrorModel{scale: scale, mode: mode, vm: vm}
}

// ActualCurvature requires vs.Speed to be above the minimum steer speed in
// yaw-rate mode; the division is not guarded.
func (m *ErrorModel) ActualCurvature(vs VehicleState, cal Calibration) float64 {
	if m.mode == MeasureSteeringAngle {
		steer := (vs.SteeringAngleDeg - cal.AngleOffsetDeg) * math.Pi / 180
		return m.vm.Curvature(steer, vs.Speed, cal.Roll)
	}
	return vs.YawRate / vs.Speed
}

// Compute returns the blended setpoint and measurement, and the desired
// lateral acceleration as the feedforward signal.
func (m *ErrorModel) Compute(desired float64, vs VehicleState, cal Calibration) (setpoint, measurement, feedforward float64) {
	actual := m.ActualCurvature(vs, cal)
	v2 := vs.Speed * vs.Speed

	desiredLatAccel := desired * v2
	actualLatAccel := actual * v2

	setpoint = desiredLatAccel + m.scale*desired
	measurement = actualLatAccel + m.scale*actual
	return setpoint, measurement, desiredLatAccel
}
