package vehicle

import (
	"errors"
	"fmt"
	"math"
)

const Gravity = 9.81

var ErrInvalidModel = errors.New("vehicle: invalid model parameters")

// Model is a single-track (bicycle) model with linear tyres. Steering angles
// are steering-wheel angles in radians; curvature is left positive.
type Model struct {
	Mass               float64 // kg
	Wheelbase          float64 // m
	CenterToFront      float64 // m, centre of gravity to front axle
	TireStiffnessFront float64 // N/rad
	TireStiffnessRear  float64 // N/rad
	SteerRatio         float64
	// SteerRatioRear is the rear-wheel steering ratio relative to the front
	// (zero without rear steering).
	SteerRatioRear float64
}

func NewModel() *Model {
	return &Model{
		Mass:               1500,
		Wheelbase:          2.70,
		CenterToFront:      1.19,
		TireStiffnessFront: 150000,
		TireStiffnessRear:  180000,
		SteerRatio:         15.3,
	}
}

func (m *Model) Validate() error {
	if m.Mass <= 0 || m.Wheelbase <= 0 || m.SteerRatio <= 0 {
		return fmt.Errorf("%w: mass %.1f, wheelbase %.2f, steer ratio %.2f", ErrInvalidModel, m.Mass, m.Wheelbase, m.SteerRatio)
	}
	if m.CenterToFront <= 0 || m.CenterToFront >= m.Wheelbase {
		return fmt.Errorf("%w: center to front %.2f outside wheelbase", ErrInvalidModel, m.CenterToFront)
	}
	if m.TireStiffnessFront <= 0 || m.TireStiffnessRear <= 0 {
		return fmt.Errorf("%w: tire stiffness must be positive", ErrInvalidModel)
	}
	return nil
}

func (m *Model) centerToRear() float64 { return m.Wheelbase - m.CenterToFront }

// SlipFactor is negative for an understeering vehicle.
func (m *Model) SlipFactor() float64 {
	cF, cR := m.TireStiffnessFront, m.TireStiffnessRear
	return m.Mass * (cF*m.CenterToFront - cR*m.centerToRear()) / (m.Wheelbase * m.Wheelbase * cF * cR)
}

// CurvatureFactor is steady-state curvature per road-wheel angle at speed v.
func (m *Model) CurvatureFactor(v float64) float64 {
	sf := m.SlipFactor()
	return (1 - m.SteerRatioRear) / (1 - sf*v*v) / m.Wheelbase
}

// RollCompensation is the curvature induced by road bank at speed v.
func (m *Model) RollCompensation(roll, v float64) float64 {
	sf := m.SlipFactor()
	if math.Abs(sf) < 1e-6 {
		return 0
	}
	return Gravity * roll / (1/sf - v*v)
}

func (m *Model) Curvature(steerRad, v, roll float64) float64 {
	return m.CurvatureFactor(v)*steerRad/m.SteerRatio + m.RollCompensation(roll, v)
}

func (m *Model) SteerFromCurvature(curvature, v, roll float64) float64 {
	return (curvature - m.RollCompensation(roll, v)) * m.SteerRatio / m.CurvatureFactor(v)
}
