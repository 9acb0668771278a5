package sim

import "github.com/san-kum/latctl/internal/lateral"

// Controller is the lateral controller under test.
type Controller interface {
	Update(req lateral.ControlRequest, vs lateral.VehicleState, cal lateral.Calibration) lateral.Output
	Reset()
}

// Sample is everything recorded for one control tick.
type Sample struct {
	Time float64 `json:"t"`

	// Offset is the lateral deviation from the desired path, m, left
	// positive. Heading is in the world frame.
	Offset     float64 `json:"offset"`
	Heading    float64 `json:"heading"`
	SteerAngle float64 `json:"steer_angle"`

	Speed                float64 `json:"speed"`
	Roll                 float64 `json:"roll"`
	Engaged              bool    `json:"engaged"`
	Override             bool    `json:"override"`
	DesiredCurvature     float64 `json:"desired_curvature"`
	DesiredCurvatureRate float64 `json:"desired_curvature_rate"`
	ActualCurvature      float64 `json:"actual_curvature"`

	Torque      float64             `json:"torque"`
	Diagnostics lateral.Diagnostics `json:"diagnostics"`
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

type Config struct {
	ControlHz float64
	PlannerHz float64
	Duration  float64
	Seed      int64

	YawRateNoise   float64
	AngleOffsetDeg float64

	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		ControlHz:     100,
		PlannerHz:     20,
		Duration:      10,
		ValidateState: true,
	}
}

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}
