package lateral_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/latctl/internal/lateral"
)

func newController(mutate func(*lateral.Config)) *lateral.TorqueController {
	cfg := lateral.DefaultConfig()
	cfg.Kp = lateral.Constant(1.0)
	cfg.Ki = lateral.Constant(0.0)
	cfg.Kf = 0.0
	if mutate != nil {
		mutate(&cfg)
	}
	ctrl, err := lateral.New(cfg, nil)
	Expect(err).NotTo(HaveOccurred())
	return ctrl
}

func engaged(curvature float64) lateral.ControlRequest {
	return lateral.ControlRequest{Active: true, Curvature: curvature}
}

var _ = Describe("TorqueController", func() {
	var (
		cal lateral.Calibration
		vs  lateral.VehicleState
	)

	BeforeEach(func() {
		cal = lateral.Calibration{}
		vs = lateral.VehicleState{Speed: 10}
	})

	Describe("construction", func() {
		It("rejects a non-integer decimation ratio", func() {
			cfg := lateral.DefaultConfig()
			cfg.Derivative = lateral.DerivativeDecimated
			cfg.UpstreamHz = 30
			_, err := lateral.New(cfg, nil)
			Expect(err).To(MatchError(lateral.ErrDecimationRatio))
		})

		It("rejects non-positive rates", func() {
			cfg := lateral.DefaultConfig()
			cfg.ControlHz = 0
			_, err := lateral.New(cfg, nil)
			Expect(err).To(MatchError(lateral.ErrInvalidRate))
		})

		It("requires a curvature model in steering-angle mode", func() {
			cfg := lateral.DefaultConfig()
			cfg.Measurement = lateral.MeasureSteeringAngle
			_, err := lateral.New(cfg, nil)
			Expect(err).To(MatchError(lateral.ErrMissingModel))
		})

		It("rejects a non-positive saturation limit", func() {
			cfg := lateral.DefaultConfig()
			cfg.SaturationLimit = 0
			_, err := lateral.New(cfg, nil)
			Expect(err).To(MatchError(lateral.ErrInvalidLimit))
		})
	})

	Describe("inactive state", func() {
		It("outputs exactly zero when not engaged", func() {
			ctrl := newController(nil)
			out := ctrl.Update(lateral.ControlRequest{Curvature: 0.01}, vs, cal)

			Expect(out.Torque).To(Equal(0.0))
			Expect(out.AngleRate).To(Equal(0.0))
			Expect(out.Diagnostics.Active).To(BeFalse())
		})

		It("outputs exactly zero below the minimum steer speed", func() {
			ctrl := newController(nil)
			vs.Speed = 0.2
			out := ctrl.Update(engaged(0.01), vs, cal)

			Expect(out.Torque).To(Equal(0.0))
			Expect(out.Diagnostics.Active).To(BeFalse())
		})

		It("clears the integrator when disengaging mid-run", func() {
			ctrl := newController(func(c *lateral.Config) { c.Ki = lateral.Constant(1.0) })
			for i := 0; i < 20; i++ {
				ctrl.Update(engaged(0.0005), vs, cal)
			}
			Expect(ctrl.State().Integrator).NotTo(BeZero())

			out := ctrl.Update(lateral.ControlRequest{Active: false, Curvature: 0.0005}, vs, cal)

			Expect(out.Torque).To(Equal(0.0))
			Expect(ctrl.State()).To(Equal(lateral.State{}))
		})

		It("resets idempotently", func() {
			ctrl := newController(func(c *lateral.Config) { c.Ki = lateral.Constant(1.0) })
			ctrl.Update(engaged(0.0005), vs, cal)

			ctrl.Reset()
			first := ctrl.State()
			ctrl.Reset()

			Expect(first).To(Equal(lateral.State{}))
			Expect(ctrl.State()).To(Equal(first))
		})
	})

	Describe("regulation law", func() {
		It("negates the internal output at the boundary", func() {
			ctrl := newController(func(c *lateral.Config) { c.Kf = 0.5 })
			vs.Speed = 5

			out := ctrl.Update(engaged(0.001), vs, cal)

			// setpoint 0.025 + 0.4, feedforward 0.5 * 0.025
			Expect(out.Diagnostics.Error).To(BeNumerically("~", 0.425, 1e-12))
			Expect(out.Diagnostics.P).To(BeNumerically("~", 0.425, 1e-12))
			Expect(out.Diagnostics.F).To(BeNumerically("~", 0.0125, 1e-12))
			Expect(out.Torque).To(BeNumerically("~", -0.4375, 1e-12))
			Expect(out.Diagnostics.Output).To(Equal(out.Torque))
			Expect(out.Diagnostics.Saturated).To(BeFalse())
		})

		It("uses the speed-scheduled proportional gain", func() {
			kp, err := lateral.Interpolated([]float64{0, 20}, []float64{0.5, 1.5})
			Expect(err).NotTo(HaveOccurred())
			ctrl := newController(func(c *lateral.Config) { c.Kp = kp })

			out := ctrl.Update(engaged(0.0001), vs, cal)

			Expect(out.Diagnostics.P).To(BeNumerically("~", 1.0*out.Diagnostics.Error, 1e-12))
		})

		It("never exceeds the saturation limit", func() {
			ctrl := newController(func(c *lateral.Config) { c.Kf = 1.0 })
			for _, k := range []float64{-0.2, -0.01, 0.01, 0.2} {
				out := ctrl.Update(engaged(k), vs, cal)
				Expect(math.Abs(out.Torque)).To(BeNumerically("<=", 1.0))
				Expect(out.Diagnostics.Saturated).To(BeTrue())
			}
		})

		It("flags saturation exactly when the output is within epsilon of the limit", func() {
			ctrl := newController(nil)
			for _, k := range []float64{0, 0.0001, 0.0005, 0.00199, 0.002, 0.0021, -0.00199, -0.01} {
				out := ctrl.Update(engaged(k), vs, cal)
				want := math.Abs(out.Torque) >= 1.0-1e-3
				Expect(out.Diagnostics.Saturated).To(Equal(want), "curvature %v output %v", k, out.Torque)
			}
		})

		It("counts an output exactly at limit minus epsilon as saturated", func() {
			ctrl := newController(func(c *lateral.Config) {
				c.CurvatureScale = 412
				c.SaturationEpsilon = 0.25
			})

			// (100 + 412) * 3/2048 is exactly 0.75
			out := ctrl.Update(engaged(3.0/2048), vs, cal)
			Expect(out.Torque).To(Equal(-0.75))
			Expect(out.Diagnostics.Saturated).To(BeTrue())

			out = ctrl.Update(engaged(2.9/2048), vs, cal)
			Expect(out.Diagnostics.Saturated).To(BeFalse())
		})

		It("passes the curvature rate through without effect", func() {
			a := newController(nil)
			b := newController(nil)
			req := engaged(0.001)
			outA := a.Update(req, vs, cal)
			req.CurvatureRate = 0.5
			outB := b.Update(req, vs, cal)

			Expect(outB).To(Equal(outA))
		})
	})

	Describe("integrator", func() {
		var ctrl *lateral.TorqueController

		BeforeEach(func() {
			ctrl = newController(func(c *lateral.Config) { c.Ki = lateral.Constant(10.0) })
			for i := 0; i < 10; i++ {
				ctrl.Update(engaged(0.0001), vs, cal)
			}
			Expect(ctrl.State().Integrator).To(BeNumerically(">", 0))
		})

		It("freezes while the driver overrides", func() {
			before := ctrl.State().Integrator
			vs.SteeringPressed = true

			out := ctrl.Update(engaged(0.001), vs, cal)

			Expect(ctrl.State().Integrator).To(Equal(before))
			Expect(out.Diagnostics.P).NotTo(BeZero())
			Expect(out.Diagnostics.I).To(Equal(before))
		})

		It("does not wind up further into saturation", func() {
			before := ctrl.State().Integrator
			for i := 0; i < 50; i++ {
				out := ctrl.Update(engaged(0.01), vs, cal)
				Expect(out.Diagnostics.Saturated).To(BeTrue())
			}
			Expect(ctrl.State().Integrator).To(Equal(before))
		})

		It("still unwinds when the error reverses", func() {
			for i := 0; i < 50; i++ {
				ctrl.Update(engaged(0.01), vs, cal)
			}
			before := ctrl.State().Integrator

			ctrl.Update(engaged(-0.0001), vs, cal)

			Expect(ctrl.State().Integrator).To(BeNumerically("<", before))
		})

		It("bleeds toward zero on override when an unwind rate is set", func() {
			ctrl = newController(func(c *lateral.Config) {
				c.Ki = lateral.Constant(10.0)
				c.UnwindRate = 0.3
			})
			for i := 0; i < 10; i++ {
				ctrl.Update(engaged(0.0001), vs, cal)
			}
			before := ctrl.State().Integrator
			vs.SteeringPressed = true

			ctrl.Update(engaged(0.001), vs, cal)
			after := ctrl.State().Integrator
			Expect(after).To(BeNumerically("<", before))
			Expect(after).To(BeNumerically(">=", 0))

			for i := 0; i < 1000; i++ {
				ctrl.Update(engaged(0.001), vs, cal)
			}
			Expect(ctrl.State().Integrator).To(Equal(0.0))
		})
	})

	Describe("derivative", func() {
		curvatures := []float64{0.0001, 0.0002, 0.00015, 0.0003, 0.00025, 0.0004, 0.0001, 0.0002, 0.0003, 0.0001, 0.0005}

		It("differentiates every tick in continuous mode", func() {
			ctrl := newController(func(c *lateral.Config) { c.Kd = 0.01 })
			prev := ctrl.Update(engaged(curvatures[0]), vs, cal)
			for _, k := range curvatures[1:] {
				out := ctrl.Update(engaged(k), vs, cal)
				want := (out.Diagnostics.Error - prev.Diagnostics.Error) / (1.0 / 100.0)
				Expect(ctrl.State().Derivative).To(Equal(want))
				Expect(out.Diagnostics.D).To(Equal(0.01 * want))
				prev = out
			}
		})

		It("holds the derivative between upstream refreshes in decimated mode", func() {
			ctrl := newController(func(c *lateral.Config) {
				c.Kd = 0.01
				c.Derivative = lateral.DerivativeDecimated
			})

			var sampled float64
			var held float64
			for tick, k := range curvatures {
				out := ctrl.Update(engaged(k), vs, cal)
				st := ctrl.State()
				Expect(st.Ticks).To(Equal(uint64(tick + 1)))

				if tick%5 == 0 {
					want := (out.Diagnostics.Error - sampled) / (1.0 / 20.0)
					Expect(st.Derivative).To(Equal(want), "refresh tick %d", tick)
					sampled = out.Diagnostics.Error
					held = st.Derivative
				} else {
					Expect(st.Derivative).To(Equal(held), "held tick %d", tick)
				}
				Expect(st.SampledError).To(Equal(sampled))
			}
		})

		It("restarts decimation alignment after a reset", func() {
			ctrl := newController(func(c *lateral.Config) {
				c.Kd = 0.01
				c.Derivative = lateral.DerivativeDecimated
			})
			for i := 0; i < 3; i++ {
				ctrl.Update(engaged(0.0001), vs, cal)
			}
			ctrl.Update(lateral.ControlRequest{}, vs, cal)

			out := ctrl.Update(engaged(0.0002), vs, cal)

			Expect(ctrl.State().Ticks).To(Equal(uint64(1)))
			Expect(ctrl.State().Derivative).To(Equal(out.Diagnostics.Error / (1.0 / 20.0)))
		})
	})

	Describe("sustained saturation", func() {
		It("debounces the saturation flag over the limit time", func() {
			ctrl := newController(func(c *lateral.Config) { c.SatLimitSeconds = 0.1 })
			vs.Speed = 20

			var flags []bool
			for i := 0; i < 12; i++ {
				out := ctrl.Update(engaged(0.01), vs, cal)
				Expect(out.Diagnostics.Saturated).To(BeTrue())
				flags = append(flags, out.Diagnostics.SaturatedSustained)
			}

			Expect(flags[8]).To(BeFalse())
			Expect(flags[11]).To(BeTrue())
		})

		It("does not charge while the driver overrides", func() {
			ctrl := newController(func(c *lateral.Config) { c.SatLimitSeconds = 0.1 })
			vs.Speed = 20
			vs.SteeringPressed = true

			for i := 0; i < 50; i++ {
				out := ctrl.Update(engaged(0.01), vs, cal)
				Expect(out.Diagnostics.SaturatedSustained).To(BeFalse())
			}
			Expect(ctrl.State().SatCounter).To(Equal(0.0))
		})

		It("keeps the counter across inactive ticks until an explicit reset", func() {
			ctrl := newController(func(c *lateral.Config) { c.SatLimitSeconds = 0.5 })
			vs.Speed = 20

			for i := 0; i < 20; i++ {
				ctrl.Update(engaged(0.01), vs, cal)
			}
			charged := ctrl.State().SatCounter
			Expect(charged).To(BeNumerically("~", 0.2, 1e-9))

			out := ctrl.Update(lateral.ControlRequest{}, vs, cal)
			Expect(out).To(Equal(lateral.Output{}))
			Expect(ctrl.State().SatCounter).To(Equal(charged))
			Expect(ctrl.State().Integrator).To(Equal(0.0))

			slow := vs
			slow.Speed = 0
			ctrl.Update(engaged(0.01), slow, cal)
			Expect(ctrl.State().SatCounter).To(Equal(charged))

			ctrl.Update(engaged(0.01), vs, cal)
			Expect(ctrl.State().SatCounter).To(BeNumerically(">", charged))

			ctrl.Reset()
			Expect(ctrl.State().SatCounter).To(Equal(0.0))
		})

		It("does not charge below the check speed", func() {
			ctrl := newController(func(c *lateral.Config) { c.SatLimitSeconds = 0.1 })
			vs.Speed = 5

			for i := 0; i < 50; i++ {
				out := ctrl.Update(engaged(0.05), vs, cal)
				Expect(out.Diagnostics.Saturated).To(BeTrue())
				Expect(out.Diagnostics.SaturatedSustained).To(BeFalse())
			}
		})
	})

	Describe("live tuning", func() {
		It("replaces scalar parameters", func() {
			ctrl := newController(nil)
			Expect(ctrl.SetParam("kf", 0.5)).To(Succeed())
			Expect(ctrl.SetParam("kp", 2.0)).To(Succeed())

			params := ctrl.Params()
			Expect(params["kf"]).To(Equal(0.5))
			Expect(params["kp"]).To(Equal(2.0))
			Expect(ctrl.Config().Kf).To(Equal(0.5))
		})

		It("rejects unknown parameters", func() {
			ctrl := newController(nil)
			Expect(ctrl.SetParam("kz", 1)).To(MatchError(lateral.ErrUnknownParam))
		})
	})
})
