package metrics

import (
	"math"

	"github.com/san-kum/latctl/internal/sim"
)

// LaneKeeping is the fraction of ticks the lateral offset stays inside
// threshold metres.
type LaneKeeping struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewLaneKeeping(threshold float64) *LaneKeeping {
	return &LaneKeeping{
		name:      "lane_keeping",
		threshold: threshold,
	}
}

func (l *LaneKeeping) Name() string {
	return l.name
}

func (l *LaneKeeping) Observe(s sim.Sample) {
	l.samples++
	if math.Abs(s.Offset) > l.threshold {
		l.violations++
	}
}

func (l *LaneKeeping) Value() float64 {
	if l.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(l.violations)/float64(l.samples)
}

func (l *LaneKeeping) Reset() {
	l.violations = 0
	l.samples = 0
}
