package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/latctl/internal/config"
	"github.com/san-kum/latctl/internal/experiment"
	"github.com/san-kum/latctl/internal/sim"
)

// Batch is a scripted list of runs.
type Batch struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Steps       []BatchStep `yaml:"steps"`
}

type BatchStep struct {
	Scenario   string             `yaml:"scenario"`
	Preset     string             `yaml:"preset"`
	Config     string             `yaml:"config,omitempty"`
	Integrator string             `yaml:"integrator,omitempty"`
	Seed       int64              `yaml:"seed,omitempty"`
	Params     map[string]float64 `yaml:"params,omitempty"`
	SaveAs     string             `yaml:"save_as,omitempty"`
}

func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("batch %s: %w", path, err)
	}
	if len(batch.Steps) == 0 {
		return nil, fmt.Errorf("batch %s: no steps", path)
	}
	return &batch, nil
}

// ResolveConfig builds the run configuration of a step: config file, else
// preset, else defaults, then the step overrides.
func (s BatchStep) ResolveConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	default:
		cfg = config.DefaultConfig()
	}
	if s.Scenario != "" {
		cfg.Scenario = s.Scenario
	}
	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	return cfg, nil
}

// BatchResult pairs a step with its run.
type BatchResult struct {
	Step   BatchStep
	Config *config.Config
	Params map[string]float64
	Result *sim.Result
}

// RunBatch executes all steps in order and stops at the first failure.
func RunBatch(ctx context.Context, batch *Batch, registry *experiment.Registry, log *zap.Logger) ([]BatchResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]BatchResult, 0, len(batch.Steps))

	for i, step := range batch.Steps {
		log.Info("batch step", zap.Int("step", i+1), zap.Int("of", len(batch.Steps)),
			zap.String("scenario", step.Scenario), zap.String("preset", step.Preset))

		cfg, err := step.ResolveConfig()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp, err := experiment.New(cfg, registry)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		if err := applyParams(exp, step.Params); err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, BatchResult{
			Step:   step,
			Config: cfg,
			Params: exp.Controller().Params(),
			Result: result,
		})
	}

	return results, nil
}

func applyParams(exp *experiment.Experiment, params map[string]float64) error {
	for k, v := range params {
		if err := exp.Controller().SetParam(k, v); err != nil {
			return err
		}
	}
	return nil
}

// ParameterSweep runs one scenario across a range of one controller gain.
type ParameterSweep struct {
	Config    *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
	Failed     bool
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, log *zap.Logger) ([]SweepResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	paramStep := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		exp, err := experiment.New(sweep.Config, registry)
		if err != nil {
			return nil, err
		}
		if err := exp.Controller().SetParam(sweep.ParamName, paramVal); err != nil {
			return nil, err
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, err
		}

		results = append(results, SweepResult{
			ParamValue: paramVal,
			Metrics:    result.Metrics,
			Failed:     len(result.Errors) > 0,
		})

		log.Debug("sweep", zap.Int("step", i+1), zap.String("param", sweep.ParamName), zap.Float64("value", paramVal))
	}

	return results, nil
}

// MonteCarloConfig runs a configuration repeatedly with fresh sensor noise
// seeds and a random steering-angle offset in ±OffsetSpreadDeg.
type MonteCarloConfig struct {
	Config          *config.Config
	NumTrials       int
	OffsetSpreadDeg float64
	Seed            int64
	// MinLaneKeeping is the lane_keeping fraction a trial needs to count as
	// stable.
	MinLaneKeeping float64
}

type MonteCarloResult struct {
	TrialID        int
	Seed           int64
	AngleOffsetDeg float64
	Metrics        map[string]float64
	Stable         bool
}

func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry, log *zap.Logger) ([]MonteCarloResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)
	rng := rand.New(rand.NewSource(cfg.Seed))

	for trial := 0; trial < cfg.NumTrials; trial++ {
		trialCfg := *cfg.Config
		trialCfg.Seed = rng.Int63()
		trialCfg.Sensors.AngleOffsetDeg = cfg.Config.Sensors.AngleOffsetDeg + (rng.Float64()-0.5)*2*cfg.OffsetSpreadDeg

		exp, err := experiment.New(&trialCfg, registry)
		if err != nil {
			return nil, err
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, err
		}

		stable := len(result.Errors) == 0 && result.Metrics["lane_keeping"] >= cfg.MinLaneKeeping
		results = append(results, MonteCarloResult{
			TrialID:        trial,
			Seed:           trialCfg.Seed,
			AngleOffsetDeg: trialCfg.Sensors.AngleOffsetDeg,
			Metrics:        result.Metrics,
			Stable:         stable,
		})

		if (trial+1)%10 == 0 {
			log.Info("monte carlo progress", zap.Int("done", trial+1), zap.Int("trials", cfg.NumTrials))
		}
	}

	return results, nil
}

// MetricSummary is the spread of one metric across trials.
type MetricSummary struct {
	Mean, Std, Min, Max float64
}

// MonteCarloStats counts stable trials and summarises every metric.
func MonteCarloStats(results []MonteCarloResult) (stableCount, unstableCount int, summary map[string]MetricSummary) {
	values := make(map[string][]float64)
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
		for name, v := range r.Metrics {
			values[name] = append(values[name], v)
		}
	}

	summary = make(map[string]MetricSummary, len(values))
	for name, vs := range values {
		mean, std := stat.MeanStdDev(vs, nil)
		if len(vs) < 2 {
			std = 0
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range vs {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		summary[name] = MetricSummary{Mean: mean, Std: std, Min: lo, Max: hi}
	}
	return
}
