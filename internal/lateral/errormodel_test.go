package lateral_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/latctl/internal/lateral"
)

// linearModel is curvature = k * steer and remembers its last arguments.
type linearModel struct {
	k                  float64
	steer, speed, roll float64
	calls              int
}

func (m *linearModel) Curvature(steerRad, speed, roll float64) float64 {
	m.steer, m.speed, m.roll = steerRad, speed, roll
	m.calls++
	return m.k * steerRad
}

var _ = Describe("ErrorModel", func() {
	It("uses yaw rate over speed in yaw-rate mode", func() {
		m := lateral.NewErrorModel(400, lateral.MeasureYawRate, nil)
		vs := lateral.VehicleState{Speed: 10, YawRate: 0.2}

		Expect(m.ActualCurvature(vs, lateral.Calibration{})).To(BeNumerically("~", 0.02, 1e-15))
	})

	It("inverts the kinematic model at the calibrated angle", func() {
		vm := &linearModel{k: 0.1}
		m := lateral.NewErrorModel(400, lateral.MeasureSteeringAngle, vm)
		vs := lateral.VehicleState{Speed: 10, SteeringAngleDeg: 10}
		cal := lateral.Calibration{AngleOffsetDeg: 2}

		want := 0.1 * 8 * math.Pi / 180
		Expect(m.ActualCurvature(vs, cal)).To(BeNumerically("~", want, 1e-15))
	})

	It("hands speed and calibrated roll to the vehicle model", func() {
		vm := &linearModel{k: 0.1}
		m := lateral.NewErrorModel(400, lateral.MeasureSteeringAngle, vm)
		vs := lateral.VehicleState{Speed: 17.5, SteeringAngleDeg: -4, YawRate: 0.3}
		cal := lateral.Calibration{AngleOffsetDeg: 1, Roll: 0.05}

		m.Compute(0.001, vs, cal)

		Expect(vm.calls).To(Equal(1))
		Expect(vm.speed).To(Equal(17.5))
		Expect(vm.roll).To(Equal(0.05))
		Expect(vm.steer).To(BeNumerically("~", -5*math.Pi/180, 1e-15))
	})

	It("ignores the vehicle model in yaw-rate mode", func() {
		vm := &linearModel{k: 0.1}
		m := lateral.NewErrorModel(400, lateral.MeasureYawRate, vm)

		m.Compute(0.001, lateral.VehicleState{Speed: 10, YawRate: 0.1}, lateral.Calibration{Roll: 0.05})

		Expect(vm.calls).To(BeZero())
	})

	It("blends lateral acceleration with scaled curvature", func() {
		m := lateral.NewErrorModel(200, lateral.MeasureYawRate, nil)
		vs := lateral.VehicleState{Speed: 20, YawRate: 0.02}

		setpoint, measurement, ff := m.Compute(0.002, vs, lateral.Calibration{})

		Expect(setpoint).To(BeNumerically("~", 0.002*400+200*0.002, 1e-12))
		Expect(measurement).To(BeNumerically("~", 0.001*400+200*0.001, 1e-12))
		Expect(ff).To(BeNumerically("~", 0.002*400, 1e-12))
	})

	It("feeds forward desired lateral acceleration only", func() {
		m := lateral.NewErrorModel(400, lateral.MeasureYawRate, nil)
		_, _, ff := m.Compute(0.01, lateral.VehicleState{Speed: 1}, lateral.Calibration{})

		Expect(ff).To(BeNumerically("~", 0.01, 1e-15))
	})
})
