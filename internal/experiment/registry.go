package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/latctl/internal/dynamo"
	"github.com/san-kum/latctl/internal/integrators"
	"github.com/san-kum/latctl/internal/metrics"
	"github.com/san-kum/latctl/internal/scenario"
	"github.com/san-kum/latctl/internal/sim"
)

type Registry struct {
	integrators map[string]func() dynamo.Integrator
	scenarios   map[string]func() (*scenario.Scenario, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		scenarios:   make(map[string]func() (*scenario.Scenario, error)),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	for _, name := range scenario.List() {
		name := name
		r.scenarios[name] = func() (*scenario.Scenario, error) { return scenario.Get(name) }
	}

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

// GetScenario resolves a built-in scenario name or, failing that, a path to
// a scenario file.
func (r *Registry) GetScenario(name string) (*scenario.Scenario, error) {
	if fn, ok := r.scenarios[name]; ok {
		return fn()
	}
	scen, err := scenario.Load(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", scenario.ErrUnknownScenario, name)
	}
	return scen, nil
}

func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListScenarios() []string   { return sortedKeys(r.scenarios) }

func (r *Registry) DefaultMetrics() []sim.Metric {
	return metrics.Default()
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
