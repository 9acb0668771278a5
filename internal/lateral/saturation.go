package lateral

// saturationTimer debounces the instantaneous saturation flag. It charges
// while saturated at speed without driver override and drains otherwise.
type saturationTimer struct {
	count    float64
	rate     float64
	limit    float64
	minSpeed float64
}

func newSaturationTimer(tickPeriod, limitSeconds, minSpeed float64) saturationTimer {
	return saturationTimer{rate: tickPeriod, limit: limitSeconds, minSpeed: minSpeed}
}

func (s *saturationTimer) update(saturated bool, speed float64, override bool) bool {
	if s.limit <= 0 {
		return saturated
	}
	if saturated && speed > s.minSpeed && !override {
		s.count += s.rate
	} else {
		s.count -= s.rate
	}
	s.count = clamp(s.count, 0, s.limit)
	return s.count > s.limit-1e-3
}

func (s *saturationTimer) reset() {
	s.count = 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
