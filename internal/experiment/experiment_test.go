package experiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/latctl/internal/config"
	"github.com/san-kum/latctl/internal/scenario"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{"euler", "rk4", "rk45"} {
		if _, err := reg.GetIntegrator(name); err != nil {
			t.Errorf("integrator %s: %v", name, err)
		}
	}
	if _, err := reg.GetIntegrator("verlet"); err == nil {
		t.Error("expected error for unknown integrator")
	}

	if got := len(reg.ListScenarios()); got != len(scenario.List()) {
		t.Errorf("expected %d scenarios, got %d", len(scenario.List()), got)
	}
	if _, err := reg.GetScenario("nowhere"); !errors.Is(err, scenario.ErrUnknownScenario) {
		t.Errorf("expected ErrUnknownScenario, got %v", err)
	}
}

func TestRegistryScenarioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	data := []byte("name: file\nduration: 2\nsegments:\n  - {t0: 0, t1: 2, speed: 15, curvature: 0.001}\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	scen, err := NewRegistry().GetScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if scen.Name != "file" {
		t.Errorf("expected scenario 'file', got %q", scen.Name)
	}
}

func TestExperimentRunsEveryPreset(t *testing.T) {
	reg := NewRegistry()

	for _, name := range config.ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := config.GetPreset(name)
			cfg.Scenario = "step"

			exp, err := New(cfg, reg)
			if err != nil {
				t.Fatalf("setup: %v", err)
			}
			result, err := exp.Run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(result.Errors) != 0 {
				t.Fatalf("run errors: %v", result.Errors)
			}
			for _, m := range []string{"tracking_error", "control_effort", "saturation_ratio", "integrator_peak"} {
				if _, ok := result.Metrics[m]; !ok {
					t.Errorf("missing metric %s", m)
				}
			}
		})
	}
}

func TestExperimentRejectsBadConfig(t *testing.T) {
	reg := NewRegistry()

	cfg := config.DefaultConfig()
	cfg.Integrator = "leapfrog"
	if _, err := New(cfg, reg); err == nil {
		t.Error("expected error for unknown integrator")
	}

	cfg = config.DefaultConfig()
	cfg.PlannerHz = 30
	if _, err := New(cfg, reg); err == nil {
		t.Error("expected error for non-integer decimation")
	}
}
