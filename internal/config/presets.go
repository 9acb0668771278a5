package config

import "sort"

// Presets are the controller tunings the lab ships with. Each builds on
// DefaultConfig.
var Presets = map[string]func(*Config){
	"torque": func(c *Config) {},
	"torque_angle": func(c *Config) {
		c.Controller.Measurement = "steering_angle"
		c.Sensors.AngleOffsetDeg = 1.5
	},
	"craycray": func(c *Config) {
		c.Controller.CurvatureScale = 200
		c.Controller.Kp = Gain{BP: []float64{0, 9, 20, 35}, V: []float64{0.25, 0.3, 0.4, 0.45}}
		c.Controller.Ki = Gain{BP: []float64{0, 9, 20, 35}, V: []float64{0.02, 0.03, 0.04, 0.05}}
		c.Controller.Kf = 0.4
		c.Controller.Measurement = "yaw_rate"
	},
	"pid_decimated": func(c *Config) {
		c.Controller.Kd = 0.02
		c.Controller.Derivative = "decimated"
	},
	"pid_continuous": func(c *Config) {
		c.Controller.Kd = 0.002
		c.Controller.Derivative = "continuous"
	},
	"unwind": func(c *Config) {
		c.Controller.UnwindRate = 0.3
	},
}

func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Name = name
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
