package scenario

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidScenario = errors.New("scenario: invalid scenario")
	ErrUnknownScenario = errors.New("scenario: unknown scenario")
)

// Scenario is a timeline of driving conditions. Segments are evaluated in
// order; the first one containing t wins.
type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Duration    float64   `yaml:"duration"`
	Segments    []Segment `yaml:"segments"`
}

type Segment struct {
	T0 float64 `yaml:"t0"`
	T1 float64 `yaml:"t1"`

	Speed    float64  `yaml:"speed"`
	SpeedEnd *float64 `yaml:"speed_end,omitempty"`

	Curvature     float64  `yaml:"curvature"`
	CurvatureEnd  *float64 `yaml:"curvature_end,omitempty"`
	SineAmplitude float64  `yaml:"sine_amplitude,omitempty"`
	SinePeriod    float64  `yaml:"sine_period,omitempty"`

	Engaged      *bool   `yaml:"engaged,omitempty"`
	Override     bool    `yaml:"override,omitempty"`
	DriverTorque float64 `yaml:"driver_torque,omitempty"`
	Roll         float64 `yaml:"roll,omitempty"`
	Comment      string  `yaml:"comment,omitempty"`
}

// Inputs are the scenario conditions at one instant.
type Inputs struct {
	Speed        float64
	Curvature    float64
	Roll         float64
	DriverTorque float64
	Engaged      bool
	Override     bool
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) Validate() error {
	if s.Duration <= 0 {
		return fmt.Errorf("%w: duration %f", ErrInvalidScenario, s.Duration)
	}
	if len(s.Segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrInvalidScenario)
	}
	for i, seg := range s.Segments {
		if seg.T1 <= seg.T0 {
			return fmt.Errorf("%w: segment %d ends at %.2f before it starts at %.2f", ErrInvalidScenario, i, seg.T1, seg.T0)
		}
		if seg.Speed < 0 || (seg.SpeedEnd != nil && *seg.SpeedEnd < 0) {
			return fmt.Errorf("%w: segment %d has negative speed", ErrInvalidScenario, i)
		}
		if seg.SineAmplitude != 0 && seg.SinePeriod <= 0 {
			return fmt.Errorf("%w: segment %d sine period must be positive", ErrInvalidScenario, i)
		}
	}
	return nil
}

// Eval returns the conditions at time t. Past the last segment the final
// segment's end state is held; gaps between segments are disengaged at rest.
func (s *Scenario) Eval(t float64) Inputs {
	for _, seg := range s.Segments {
		if t >= seg.T0 && t < seg.T1 {
			return seg.eval(t)
		}
	}
	if n := len(s.Segments); n > 0 && t >= s.Segments[n-1].T1 {
		last := s.Segments[n-1]
		return last.eval(last.T1)
	}
	return Inputs{}
}

func (seg Segment) eval(t float64) Inputs {
	frac := (t - seg.T0) / (seg.T1 - seg.T0)

	speed := seg.Speed
	if seg.SpeedEnd != nil {
		speed += (*seg.SpeedEnd - seg.Speed) * frac
	}

	curvature := seg.Curvature
	if seg.CurvatureEnd != nil {
		curvature += (*seg.CurvatureEnd - seg.Curvature) * frac
	}
	if seg.SineAmplitude != 0 {
		curvature += seg.SineAmplitude * math.Sin(2*math.Pi*(t-seg.T0)/seg.SinePeriod)
	}

	engaged := true
	if seg.Engaged != nil {
		engaged = *seg.Engaged
	}

	return Inputs{
		Speed:        speed,
		Curvature:    curvature,
		Roll:         seg.Roll,
		DriverTorque: seg.DriverTorque,
		Engaged:      engaged,
		Override:     seg.Override,
	}
}
