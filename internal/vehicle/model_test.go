package vehicle

import (
	"errors"
	"math"
	"testing"
)

func TestModelLowSpeedCurvature(t *testing.T) {
	m := NewModel()
	steer := 0.5

	got := m.Curvature(steer, 0, 0)
	want := steer / m.SteerRatio / m.Wheelbase
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("curvature at standstill = %v, want %v", got, want)
	}
}

func TestModelUndersteer(t *testing.T) {
	m := NewModel()
	if sf := m.SlipFactor(); sf >= 0 {
		t.Fatalf("default model should understeer, slip factor %v", sf)
	}

	prev := m.CurvatureFactor(0)
	for _, v := range []float64{5, 10, 20, 30} {
		cf := m.CurvatureFactor(v)
		if cf >= prev {
			t.Errorf("curvature factor should fall with speed: %v at %v m/s, %v before", cf, v, prev)
		}
		prev = cf
	}
}

func TestModelSteerFromCurvatureInverts(t *testing.T) {
	m := NewModel()
	tests := []struct {
		curvature, v, roll float64
	}{
		{0.01, 5, 0},
		{-0.002, 25, 0},
		{0.001, 30, 0.05},
		{0, 20, -0.03},
	}

	for _, tt := range tests {
		steer := m.SteerFromCurvature(tt.curvature, tt.v, tt.roll)
		got := m.Curvature(steer, tt.v, tt.roll)
		if math.Abs(got-tt.curvature) > 1e-12 {
			t.Errorf("curvature(%v, %v, %v) round trip = %v", tt.curvature, tt.v, tt.roll, got)
		}
	}
}

func TestModelRollCompensation(t *testing.T) {
	m := NewModel()
	if rc := m.RollCompensation(0, 20); rc != 0 {
		t.Errorf("expected zero compensation on a flat road, got %v", rc)
	}
	if m.RollCompensation(0.05, 20) == 0 {
		t.Error("expected non-zero compensation on a banked road")
	}

	neutral := NewModel()
	neutral.TireStiffnessRear = neutral.TireStiffnessFront * neutral.CenterToFront / (neutral.Wheelbase - neutral.CenterToFront)
	if rc := neutral.RollCompensation(0.05, 20); rc != 0 {
		t.Errorf("neutral steer should need no roll compensation, got %v", rc)
	}
}

func TestModelValidate(t *testing.T) {
	if err := NewModel().Validate(); err != nil {
		t.Fatalf("default model invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Model)
	}{
		{"zero mass", func(m *Model) { m.Mass = 0 }},
		{"zero wheelbase", func(m *Model) { m.Wheelbase = 0 }},
		{"cg behind rear axle", func(m *Model) { m.CenterToFront = 3 }},
		{"zero steer ratio", func(m *Model) { m.SteerRatio = 0 }},
		{"negative stiffness", func(m *Model) { m.TireStiffnessRear = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel()
			tt.mutate(m)
			if err := m.Validate(); !errors.Is(err, ErrInvalidModel) {
				t.Errorf("expected ErrInvalidModel, got %v", err)
			}
		})
	}
}
