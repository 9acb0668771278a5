package vehicle

import (
	"math"

	"github.com/san-kum/latctl/internal/dynamo"
)

// Plant state indices.
const (
	LateralOffset = iota
	Heading
	SteerAngle
)

// Plant is the closed-loop lateral plant driven by the torque command.
// State is [lateral offset m, heading rad, steering-wheel angle rad];
// control is [torque command, driver torque], both in actuator units where
// negative torque steers left.
//
// Speed and Roll are inputs; the simulator sets them before each step.
type Plant struct {
	Model *Model

	Speed float64
	Roll  float64

	// LatAccelFactor is the lateral acceleration one unit of torque holds
	// at steady state, m/s^2.
	LatAccelFactor float64
	// RackTimeConstant is the lag of the steering rack toward its
	// commanded angle, s.
	RackTimeConstant float64
	// MaxSteerAngle clamps the steering-wheel angle, rad.
	MaxSteerAngle float64
}

// minPlantSpeed keeps the torque-to-curvature map finite near standstill.
const minPlantSpeed = 1.0

func NewPlant(m *Model) *Plant {
	return &Plant{
		Model:            m,
		LatAccelFactor:   2.5,
		RackTimeConstant: 0.15,
		MaxSteerAngle:    8.0,
	}
}

func (p *Plant) StateDim() int   { return 3 }
func (p *Plant) ControlDim() int { return 2 }

func (p *Plant) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	psi, delta := x[Heading], x[SteerAngle]

	torque, driver := 0.0, 0.0
	if len(u) >= 1 {
		torque = u[0]
	}
	if len(u) >= 2 {
		driver = u[1]
	}

	v := p.Speed
	v2 := math.Max(v*v, minPlantSpeed*minPlantSpeed)
	targetCurvature := (-torque + driver) * p.LatAccelFactor / v2
	deltaCmd := p.Model.SteerFromCurvature(targetCurvature, v, p.Roll)
	deltaCmd = math.Max(-p.MaxSteerAngle, math.Min(p.MaxSteerAngle, deltaCmd))

	return dynamo.State{
		v * math.Sin(psi),
		v * p.Model.Curvature(delta, v, p.Roll),
		(deltaCmd - delta) / p.RackTimeConstant,
	}
}

// Curvature is the path curvature the plant follows in state x.
func (p *Plant) Curvature(x dynamo.State) float64 {
	return p.Model.Curvature(x[SteerAngle], p.Speed, p.Roll)
}

// YawRate is the noiseless yaw rate in state x.
func (p *Plant) YawRate(x dynamo.State) float64 {
	return p.Speed * p.Curvature(x)
}

// SteeringAngleDeg is the measured steering-wheel angle including the
// sensor's zero offset.
func (p *Plant) SteeringAngleDeg(x dynamo.State, offsetDeg float64) float64 {
	return x[SteerAngle]*180/math.Pi + offsetDeg
}
