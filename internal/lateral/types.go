package lateral

// VehicleState is the per-tick vehicle input. Speed must be non-negative.
type VehicleState struct {
	Speed            float64 // m/s
	SteeringAngleDeg float64
	SteeringPressed  bool    // driver torque detected on the wheel
	YawRate          float64 // calibrated angular velocity about z, rad/s
}

// Calibration is only consulted in MeasureSteeringAngle mode.
type Calibration struct {
	AngleOffsetDeg float64
	Roll           float64 // rad
}

// ControlRequest carries the planner output for one tick.
type ControlRequest struct {
	Active        bool
	Curvature     float64 // 1/m, left positive
	CurvatureRate float64 // passed through, not used by the torque law
}

// Diagnostics is the snapshot handed to telemetry after every tick.
// P, I, D and F are in the internal convention; Output is the returned
// command.
type Diagnostics struct {
	Active             bool    `json:"active"`
	Error              float64 `json:"error"`
	P                  float64 `json:"p"`
	I                  float64 `json:"i"`
	D                  float64 `json:"d"`
	F                  float64 `json:"f"`
	Output             float64 `json:"output"`
	Saturated          bool    `json:"saturated"`
	SaturatedSustained bool    `json:"saturated_sustained"`
}

type Output struct {
	Torque float64
	// AngleRate is reserved for a steering-rate term and is always zero.
	AngleRate   float64
	Diagnostics Diagnostics
}

// State is the controller memory carried between ticks.
type State struct {
	Integrator   float64
	PrevError    float64
	SampledError float64
	Derivative   float64
	Ticks        uint64
	SatCounter   float64
}
