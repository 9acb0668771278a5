package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/latctl/internal/dynamo"
	"github.com/san-kum/latctl/internal/lateral"
	"github.com/san-kum/latctl/internal/scenario"
	"github.com/san-kum/latctl/internal/vehicle"
)

// Simulator closes the loop between a Controller and the vehicle plant over
// a scenario. It is not safe for concurrent use; one Session at a time.
type Simulator struct {
	plant      *vehicle.Plant
	integrator dynamo.Integrator
	controller Controller
	scen       *scenario.Scenario
	metrics    []Metric
	observers  []Observer
}

func New(plant *vehicle.Plant, integrator dynamo.Integrator, controller Controller, scen *scenario.Scenario) *Simulator {
	return &Simulator{
		plant:      plant,
		integrator: integrator,
		controller: controller,
		scen:       scen,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Session is one run of the closed loop, advanced a tick at a time.
type Session struct {
	s       *Simulator
	cfg     Config
	planner *scenario.Planner
	rng     *rand.Rand
	x       dynamo.State
	dt      float64
	steps   int
	tick    int

	// Reference path heading and the vehicle's lateral deviation from it,
	// measured along the path normal.
	refHeading float64
	pathOffset float64
}

// Start resets the controller and returns a session positioned at t=0.
func (s *Simulator) Start(cfg Config) (*Session, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	planner, err := scenario.NewPlanner(s.scen, cfg.ControlHz, cfg.PlannerHz)
	if err != nil {
		return nil, err
	}
	s.controller.Reset()
	return &Session{
		s:       s,
		cfg:     cfg,
		planner: planner,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		x:       make(dynamo.State, s.plant.StateDim()),
		dt:      1 / cfg.ControlHz,
		steps:   int(cfg.Duration*cfg.ControlHz + 0.5),
	}, nil
}

// Done reports whether the scenario has run to its end.
func (ss *Session) Done() bool { return ss.tick >= ss.steps }

// Steps is the total number of ticks in the session.
func (ss *Session) Steps() int { return ss.steps }

// Tick is the number of ticks run so far.
func (ss *Session) Tick() int { return ss.tick }

// Step runs the controller at the current tick and advances the plant by
// one period. The returned sample describes the tick before integration.
func (ss *Session) Step() (Sample, error) {
	s := ss.s
	i := ss.tick
	t := float64(i) * ss.dt
	in := s.scen.Eval(t)
	s.plant.Speed = in.Speed
	s.plant.Roll = in.Roll

	curvature, rate := ss.planner.Step(t)

	yawRate := s.plant.YawRate(ss.x)
	if ss.cfg.YawRateNoise > 0 {
		yawRate += ss.rng.NormFloat64() * ss.cfg.YawRateNoise
	}
	vs := lateral.VehicleState{
		Speed:            in.Speed,
		SteeringAngleDeg: s.plant.SteeringAngleDeg(ss.x, ss.cfg.AngleOffsetDeg),
		SteeringPressed:  in.Override,
		YawRate:          yawRate,
	}
	cal := lateral.Calibration{AngleOffsetDeg: ss.cfg.AngleOffsetDeg, Roll: in.Roll}
	req := lateral.ControlRequest{Active: in.Engaged, Curvature: curvature, CurvatureRate: rate}

	out := s.controller.Update(req, vs, cal)

	sample := Sample{
		Time:                 t,
		Offset:               ss.pathOffset,
		Heading:              ss.x[vehicle.Heading],
		SteerAngle:           ss.x[vehicle.SteerAngle],
		Speed:                in.Speed,
		Roll:                 in.Roll,
		Engaged:              in.Engaged,
		Override:             in.Override,
		DesiredCurvature:     curvature,
		DesiredCurvatureRate: rate,
		ActualCurvature:      s.plant.Curvature(ss.x),
		Torque:               out.Torque,
		Diagnostics:          out.Diagnostics,
	}

	for _, m := range s.metrics {
		m.Observe(sample)
	}
	for _, obs := range s.observers {
		obs.OnStep(sample)
	}

	ss.tick++
	u := dynamo.Control{out.Torque, in.DriverTorque}
	next := s.integrator.Step(s.plant, ss.x, u, t, ss.dt)
	if len(next) != len(ss.x) {
		ss.tick = ss.steps
		return sample, &dynamo.SimulationError{
			Step:    i,
			Time:    t,
			State:   next,
			Wrapped: fmt.Errorf("%w: integrator returned %d states, plant has %d", dynamo.ErrDimensionMismatch, len(next), len(ss.x)),
		}
	}
	if ss.cfg.ValidateState && !next.IsValid() {
		ss.tick = ss.steps
		return sample, &dynamo.SimulationError{
			Step:    i,
			Time:    t,
			State:   next,
			Wrapped: fmt.Errorf("%w: %v", dynamo.ErrInvalidState, dynamo.StepError{Time: t, Step: i, Message: "plant diverged"}),
		}
	}
	ss.advancePath(next, in.Speed, curvature)
	ss.x = next
	return sample, nil
}

// advancePath moves the reference path along the desired curvature for one
// period and accumulates the vehicle's drift off it with the trapezoid rule.
func (ss *Session) advancePath(next dynamo.State, speed, curvature float64) {
	before := math.Sin(ss.x[vehicle.Heading] - ss.refHeading)
	ss.refHeading += speed * curvature * ss.dt
	after := math.Sin(next[vehicle.Heading] - ss.refHeading)
	ss.pathOffset += speed * ss.dt * (before + after) / 2
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	ss, err := s.Start(cfg)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Samples: make([]Sample, 0, ss.Steps()),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	for !ss.Done() {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		sample, err := ss.Step()
		result.Samples = append(result.Samples, sample)
		result.StepsTaken++
		if err != nil {
			result.Errors = append(result.Errors, err)
			break
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// RunWithCallback runs until the scenario ends, ctx is done or callback
// returns false. Metrics are observed but not collected.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Sample) bool) error {
	ss, err := s.Start(cfg)
	if err != nil {
		return err
	}

	for !ss.Done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sample, err := ss.Step()
		if err != nil {
			return err
		}
		if !callback(sample) {
			return nil
		}
	}

	return nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.ControlHz <= 0 {
		return fmt.Errorf("control rate must be positive, got %f", cfg.ControlHz)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.YawRateNoise < 0 {
		return fmt.Errorf("yaw rate noise must be non-negative, got %f", cfg.YawRateNoise)
	}
	return nil
}
