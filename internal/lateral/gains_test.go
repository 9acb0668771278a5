package lateral_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/latctl/internal/lateral"
)

var _ = Describe("Gain", func() {
	It("returns the same value at every speed when constant", func() {
		g := lateral.Constant(0.7)
		Expect(g(0)).To(Equal(0.7))
		Expect(g(35)).To(Equal(0.7))
	})

	It("interpolates between breakpoints and holds the ends", func() {
		g, err := lateral.Interpolated([]float64{0, 20}, []float64{0.5, 1.5})
		Expect(err).NotTo(HaveOccurred())

		Expect(g(10)).To(BeNumerically("~", 1.0, 1e-12))
		Expect(g(-5)).To(Equal(0.5))
		Expect(g(40)).To(Equal(1.5))
	})

	It("treats a single breakpoint as constant", func() {
		g, err := lateral.Interpolated([]float64{0}, []float64{0.3})
		Expect(err).NotTo(HaveOccurred())
		Expect(g(25)).To(Equal(0.3))
	})

	DescribeTable("rejects bad tables",
		func(bp, v []float64) {
			_, err := lateral.Interpolated(bp, v)
			Expect(err).To(MatchError(lateral.ErrInvalidSchedule))
		},
		Entry("empty", []float64{}, []float64{}),
		Entry("length mismatch", []float64{0, 10}, []float64{1}),
		Entry("not increasing", []float64{10, 0}, []float64{1, 2}),
		Entry("duplicate breakpoint", []float64{0, 0}, []float64{1, 2}),
	)
})
