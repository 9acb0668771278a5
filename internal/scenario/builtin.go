package scenario

import (
	"fmt"
	"sort"
)

func f64(v float64) *float64 { return &v }
func flag(v bool) *bool      { return &v }

var builtins = map[string]Scenario{
	"lane_keep": {
		Name:        "lane_keep",
		Description: "gentle highway curves at 25 m/s",
		Duration:    20,
		Segments: []Segment{
			{T0: 0, T1: 20, Speed: 25, SineAmplitude: 0.0005, SinePeriod: 8},
		},
	},
	"step": {
		Name:        "step",
		Description: "curvature step into a steady turn",
		Duration:    15,
		Segments: []Segment{
			{T0: 0, T1: 2, Speed: 20},
			{T0: 2, T1: 15, Speed: 20, Curvature: 0.002},
		},
	},
	"slalom": {
		Name:        "slalom",
		Description: "aggressive weave that runs the actuator into saturation",
		Duration:    16,
		Segments: []Segment{
			{T0: 0, T1: 16, Speed: 15, SineAmplitude: 0.012, SinePeriod: 4},
		},
	},
	"override": {
		Name:        "override",
		Description: "driver override then disengagement in a steady turn",
		Duration:    20,
		Segments: []Segment{
			{T0: 0, T1: 5, Speed: 20, Curvature: 0.001},
			{T0: 5, T1: 8, Speed: 20, Curvature: 0.001, Override: true, DriverTorque: 0.3, Comment: "driver pulls right"},
			{T0: 8, T1: 12, Speed: 20, Curvature: 0.001},
			{T0: 12, T1: 14, Speed: 20, Curvature: 0.001, Engaged: flag(false)},
			{T0: 14, T1: 20, Speed: 20, Curvature: 0.001},
		},
	},
	"low_speed": {
		Name:        "low_speed",
		Description: "pull away from rest into a tight turn",
		Duration:    15,
		Segments: []Segment{
			{T0: 0, T1: 15, Speed: 0, SpeedEnd: f64(8), Curvature: 0.02},
		},
	},
	"banked": {
		Name:        "banked",
		Description: "straight road with a bank the integrator has to trim out",
		Duration:    15,
		Segments: []Segment{
			{T0: 0, T1: 15, Speed: 25, Roll: 0.05},
		},
	},
}

// Get returns a copy of a built-in scenario.
func Get(name string) (*Scenario, error) {
	s, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownScenario, name, List())
	}
	s.Segments = append([]Segment(nil), s.Segments...)
	return &s, nil
}

func List() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
