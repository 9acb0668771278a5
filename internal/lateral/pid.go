package lateral

import "math"

// PID is the regulator behind TorqueController. Gains on P and I may be
// speed scheduled; the integrator carries Ki already applied.
type PID struct {
	kp, ki Gain
	kd, kf float64
	limit  float64

	dt             float64
	upstreamPeriod float64
	decimation     uint64
	mode           DerivativeMode
	unwindPerTick  float64

	state State

	p, d, f float64
	control float64
}

func newPID(cfg Config, decimation int) *PID {
	return &PID{
		kp:             cfg.Kp,
		ki:             cfg.Ki,
		kd:             cfg.Kd,
		kf:             cfg.Kf,
		limit:          cfg.SaturationLimit,
		dt:             cfg.TickPeriod(),
		upstreamPeriod: cfg.UpstreamPeriod(),
		decimation:     uint64(decimation),
		mode:           cfg.Derivative,
		unwindPerTick:  cfg.UnwindRate * cfg.TickPeriod(),
	}
}

// Update runs one regulation step and returns the clamped control in the
// internal sign convention.
func (p *PID) Update(setpoint, measurement, feedforward, speed float64, override bool) float64 {
	err := setpoint - measurement

	p.p = p.kp(speed) * err
	p.d = p.kd * p.derivative(err)
	p.f = p.kf * feedforward

	if override {
		p.unwind()
	} else {
		i := p.state.Integrator + p.ki(speed)*err*p.dt
		control := p.p + p.d + p.f + i
		// Only integrate when it moves the control away from the limit or
		// pulls the integrator back toward the error's sign.
		if (err >= 0 && (control <= p.limit || i < 0)) ||
			(err <= 0 && (control >= -p.limit || i > 0)) {
			p.state.Integrator = i
		}
	}

	p.control = clamp(p.p+p.state.Integrator+p.d+p.f, -p.limit, p.limit)
	return p.control
}

func (p *PID) derivative(err float64) float64 {
	switch p.mode {
	case DerivativeDecimated:
		if p.state.Ticks%p.decimation == 0 {
			p.state.Derivative = (err - p.state.SampledError) / p.upstreamPeriod
			p.state.SampledError = err
		}
	default:
		p.state.Derivative = (err - p.state.PrevError) / p.dt
	}
	p.state.PrevError = err
	p.state.Ticks++
	return p.state.Derivative
}

func (p *PID) unwind() {
	if p.unwindPerTick <= 0 {
		return
	}
	if math.Abs(p.state.Integrator) <= p.unwindPerTick {
		p.state.Integrator = 0
		return
	}
	p.state.Integrator -= math.Copysign(p.unwindPerTick, p.state.Integrator)
}

// Reset clears integral and derivative history.
func (p *PID) Reset() {
	p.state = State{}
	p.p, p.d, p.f, p.control = 0, 0, 0, 0
}

func (p *PID) Terms() (pTerm, iTerm, dTerm, fTerm float64) {
	return p.p, p.state.Integrator, p.d, p.f
}

func (p *PID) Control() float64 { return p.control }
