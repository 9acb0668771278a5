// Package telemetry logs controller diagnostics from a running simulation.
package telemetry

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/latctl/internal/sim"
)

// NewLogger builds a console logger at the named level ("debug", "info",
// "warn", "error").
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = ""
	return cfg.Build()
}

// Sink is a sim.Observer that logs state edges at info and every tick at
// debug.
type Sink struct {
	log *zap.Logger

	started   bool
	active    bool
	override  bool
	saturated bool
	sustained bool
}

func NewSink(log *zap.Logger) *Sink {
	return &Sink{log: log}
}

var _ sim.Observer = (*Sink)(nil)

func (k *Sink) OnStep(s sim.Sample) {
	d := s.Diagnostics
	t := zap.Float64("t", s.Time)

	if !k.started {
		k.started = true
		k.log.Info("run started", t, zap.Float64("speed", s.Speed), zap.Bool("engaged", s.Engaged))
	}

	if d.Active != k.active {
		if d.Active {
			k.log.Info("controller engaged", t, zap.Float64("speed", s.Speed))
		} else {
			k.log.Info("controller disengaged", t, zap.Float64("speed", s.Speed), zap.Bool("engaged", s.Engaged))
		}
		k.active = d.Active
	}

	if s.Override != k.override {
		if s.Override {
			k.log.Info("driver override", t, zap.Float64("i", d.I))
		} else {
			k.log.Info("driver released", t, zap.Float64("i", d.I))
		}
		k.override = s.Override
	}

	if d.Saturated != k.saturated {
		if d.Saturated {
			k.log.Info("torque saturated", t, zap.Float64("torque", s.Torque), zap.Float64("error", d.Error))
		} else {
			k.log.Info("torque unsaturated", t, zap.Float64("torque", s.Torque))
		}
		k.saturated = d.Saturated
	}

	if d.SaturatedSustained != k.sustained {
		if d.SaturatedSustained {
			k.log.Warn("sustained saturation", t, zap.Float64("speed", s.Speed), zap.Float64("desired_curvature", s.DesiredCurvature))
		}
		k.sustained = d.SaturatedSustained
	}

	if ce := k.log.Check(zap.DebugLevel, "tick"); ce != nil {
		ce.Write(
			t,
			zap.Float64("desired_curvature", s.DesiredCurvature),
			zap.Float64("actual_curvature", s.ActualCurvature),
			zap.Float64("error", d.Error),
			zap.Float64("p", d.P),
			zap.Float64("i", d.I),
			zap.Float64("d", d.D),
			zap.Float64("f", d.F),
			zap.Float64("torque", s.Torque),
		)
	}
}
