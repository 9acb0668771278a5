package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/latctl/internal/config"
	"github.com/san-kum/latctl/internal/lateral"
	"github.com/san-kum/latctl/internal/scenario"
	"github.com/san-kum/latctl/internal/sim"
)

// Experiment is one configured closed-loop run: a controller built from a
// config, a plant, an integrator and a scenario.
type Experiment struct {
	cfg        *config.Config
	scenario   *scenario.Scenario
	controller *lateral.TorqueController
	simulator  *sim.Simulator
}

func New(cfg *config.Config, reg *Registry) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lc, err := cfg.LateralConfig()
	if err != nil {
		return nil, err
	}
	scen, err := reg.GetScenario(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	plant := cfg.Plant()
	if err := plant.Model.Validate(); err != nil {
		return nil, err
	}
	ctrl, err := lateral.New(lc, plant.Model)
	if err != nil {
		return nil, err
	}

	s := sim.New(plant, integ, ctrl, scen)
	for _, m := range reg.DefaultMetrics() {
		s.AddMetric(m)
	}

	return &Experiment{
		cfg:        cfg,
		scenario:   scen,
		controller: ctrl,
		simulator:  s,
	}, nil
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		ControlHz:      e.cfg.ControlHz,
		PlannerHz:      e.cfg.PlannerHz,
		Duration:       e.scenario.Duration,
		Seed:           e.cfg.Seed,
		YawRateNoise:   e.cfg.Sensors.YawRateNoise,
		AngleOffsetDeg: e.cfg.Sensors.AngleOffsetDeg,
		ValidateState:  true,
	}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.SimConfig())
}

func (e *Experiment) RunWithCallback(ctx context.Context, callback func(sim.Sample) bool) error {
	return e.simulator.RunWithCallback(ctx, e.SimConfig(), callback)
}

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

func (e *Experiment) Controller() *lateral.TorqueController { return e.controller }

func (e *Experiment) Scenario() *scenario.Scenario { return e.scenario }

func (e *Experiment) Config() *config.Config { return e.cfg }
