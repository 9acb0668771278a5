// Package metrics holds the run metrics the simulator reports per run.
package metrics

import "github.com/san-kum/latctl/internal/sim"

// Default returns a fresh set of the standard run metrics.
func Default() []sim.Metric {
	return []sim.Metric{
		NewTrackingError(),
		NewControlEffort(),
		NewTorqueRate(),
		NewSaturationRatio(),
		NewIntegratorPeak(),
		NewLaneKeeping(0.5),
	}
}
