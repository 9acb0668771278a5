package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/latctl/internal/lateral"
	"github.com/san-kum/latctl/internal/vehicle"
)

const (
	DefaultScenario   = "lane_keep"
	DefaultIntegrator = "rk4"
	DefaultControlHz  = lateral.DefaultControlHz
	DefaultPlannerHz  = lateral.DefaultUpstreamHz
)

var (
	ErrUnknownMode = errors.New("config: unknown mode")
	ErrInvalid     = errors.New("config: invalid configuration")
)

type Config struct {
	Name       string           `yaml:"name,omitempty"`
	Scenario   string           `yaml:"scenario"`
	Integrator string           `yaml:"integrator"`
	Seed       int64            `yaml:"seed"`
	ControlHz  float64          `yaml:"control_hz"`
	PlannerHz  float64          `yaml:"planner_hz"`
	Controller ControllerConfig `yaml:"controller"`
	Vehicle    VehicleConfig    `yaml:"vehicle"`
	Sensors    SensorConfig     `yaml:"sensors"`
}

type ControllerConfig struct {
	Kp              Gain    `yaml:"kp"`
	Ki              Gain    `yaml:"ki"`
	Kd              float64 `yaml:"kd"`
	Kf              float64 `yaml:"kf"`
	CurvatureScale  float64 `yaml:"curvature_scale"`
	SaturationLimit float64 `yaml:"saturation_limit"`
	MinSteerSpeed   float64 `yaml:"min_steer_speed"`
	Derivative      string  `yaml:"derivative"`
	Measurement     string  `yaml:"measurement"`
	UnwindRate      float64 `yaml:"unwind_rate"`
	SatCheckSpeed   float64 `yaml:"sat_check_speed"`
	SatLimitSeconds float64 `yaml:"sat_limit_seconds"`
}

type VehicleConfig struct {
	Mass               float64 `yaml:"mass"`
	Wheelbase          float64 `yaml:"wheelbase"`
	CenterToFront      float64 `yaml:"center_to_front"`
	TireStiffnessFront float64 `yaml:"tire_stiffness_front"`
	TireStiffnessRear  float64 `yaml:"tire_stiffness_rear"`
	SteerRatio         float64 `yaml:"steer_ratio"`
	LatAccelFactor     float64 `yaml:"lat_accel_factor"`
	RackTimeConstant   float64 `yaml:"rack_time_constant"`
	MaxSteerAngle      float64 `yaml:"max_steer_angle"`
}

type SensorConfig struct {
	YawRateNoise   float64 `yaml:"yaw_rate_noise"`
	AngleOffsetDeg float64 `yaml:"angle_offset_deg"`
}

func DefaultConfig() *Config {
	m := vehicle.NewModel()
	p := vehicle.NewPlant(m)
	return &Config{
		Name:       "torque",
		Scenario:   DefaultScenario,
		Integrator: DefaultIntegrator,
		ControlHz:  DefaultControlHz,
		PlannerHz:  DefaultPlannerHz,
		Controller: ControllerConfig{
			Kp:              Scalar(1.0 / p.LatAccelFactor),
			Ki:              Scalar(0.1 / p.LatAccelFactor),
			Kf:              1.0 / p.LatAccelFactor,
			CurvatureScale:  lateral.DefaultCurvatureScale,
			SaturationLimit: lateral.DefaultSaturationLimit,
			MinSteerSpeed:   lateral.DefaultMinSteerSpeed,
			Derivative:      lateral.DerivativeContinuous.String(),
			Measurement:     lateral.MeasureYawRate.String(),
			SatCheckSpeed:   lateral.DefaultSatCheckSpeed,
			SatLimitSeconds: lateral.DefaultSatLimitSeconds,
		},
		Vehicle: VehicleConfig{
			Mass:               m.Mass,
			Wheelbase:          m.Wheelbase,
			CenterToFront:      m.CenterToFront,
			TireStiffnessFront: m.TireStiffnessFront,
			TireStiffnessRear:  m.TireStiffnessRear,
			SteerRatio:         m.SteerRatio,
			LatAccelFactor:     p.LatAccelFactor,
			RackTimeConstant:   p.RackTimeConstant,
			MaxSteerAngle:      p.MaxSteerAngle,
		},
		Sensors: SensorConfig{
			YawRateNoise: 0.001,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.ControlHz <= 0 || c.PlannerHz <= 0 {
		return fmt.Errorf("%w: rates must be positive (control %.2f Hz, planner %.2f Hz)", ErrInvalid, c.ControlHz, c.PlannerHz)
	}
	rates := lateral.Config{ControlHz: c.ControlHz, UpstreamHz: c.PlannerHz}
	if _, err := rates.DecimationRatio(); err != nil {
		return err
	}
	if _, err := c.LateralConfig(); err != nil {
		return err
	}
	if err := c.VehicleModel().Validate(); err != nil {
		return err
	}
	if c.Vehicle.RackTimeConstant <= 0 || c.Vehicle.MaxSteerAngle <= 0 {
		return fmt.Errorf("%w: rack time constant and max steer angle must be positive", ErrInvalid)
	}
	if c.Sensors.YawRateNoise < 0 {
		return fmt.Errorf("%w: negative yaw rate noise", ErrInvalid)
	}
	return nil
}

// LateralConfig builds the controller configuration.
func (c *Config) LateralConfig() (lateral.Config, error) {
	cc := c.Controller

	kp, err := cc.Kp.Build()
	if err != nil {
		return lateral.Config{}, fmt.Errorf("kp: %w", err)
	}
	ki, err := cc.Ki.Build()
	if err != nil {
		return lateral.Config{}, fmt.Errorf("ki: %w", err)
	}
	derivative, err := ParseDerivative(cc.Derivative)
	if err != nil {
		return lateral.Config{}, err
	}
	measurement, err := ParseMeasurement(cc.Measurement)
	if err != nil {
		return lateral.Config{}, err
	}

	lc := lateral.Config{
		Kp:                kp,
		Ki:                ki,
		Kd:                cc.Kd,
		Kf:                cc.Kf,
		CurvatureScale:    cc.CurvatureScale,
		SaturationLimit:   cc.SaturationLimit,
		SaturationEpsilon: lateral.DefaultSaturationEpsilon,
		MinSteerSpeed:     cc.MinSteerSpeed,
		ControlHz:         c.ControlHz,
		UpstreamHz:        c.PlannerHz,
		Derivative:        derivative,
		Measurement:       measurement,
		UnwindRate:        cc.UnwindRate,
		SatCheckSpeed:     cc.SatCheckSpeed,
		SatLimitSeconds:   cc.SatLimitSeconds,
	}
	if err := lc.Validate(); err != nil {
		return lateral.Config{}, err
	}
	return lc, nil
}

func (c *Config) VehicleModel() *vehicle.Model {
	return &vehicle.Model{
		Mass:               c.Vehicle.Mass,
		Wheelbase:          c.Vehicle.Wheelbase,
		CenterToFront:      c.Vehicle.CenterToFront,
		TireStiffnessFront: c.Vehicle.TireStiffnessFront,
		TireStiffnessRear:  c.Vehicle.TireStiffnessRear,
		SteerRatio:         c.Vehicle.SteerRatio,
	}
}

func (c *Config) Plant() *vehicle.Plant {
	p := vehicle.NewPlant(c.VehicleModel())
	p.LatAccelFactor = c.Vehicle.LatAccelFactor
	p.RackTimeConstant = c.Vehicle.RackTimeConstant
	p.MaxSteerAngle = c.Vehicle.MaxSteerAngle
	return p
}

func ParseDerivative(s string) (lateral.DerivativeMode, error) {
	switch s {
	case "", "continuous":
		return lateral.DerivativeContinuous, nil
	case "decimated":
		return lateral.DerivativeDecimated, nil
	default:
		return 0, fmt.Errorf("%w: derivative %q", ErrUnknownMode, s)
	}
}

func ParseMeasurement(s string) (lateral.MeasurementMode, error) {
	switch s {
	case "", "yaw_rate":
		return lateral.MeasureYawRate, nil
	case "steering_angle":
		return lateral.MeasureSteeringAngle, nil
	default:
		return 0, fmt.Errorf("%w: measurement %q", ErrUnknownMode, s)
	}
}
