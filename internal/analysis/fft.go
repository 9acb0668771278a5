package analysis

import (
	"errors"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

var ErrTooShort = errors.New("analysis: need at least 4 samples")

// PowerSpectrum returns the one-sided magnitude spectrum of data sampled at
// sampleHz, with the mean removed. freqs[i] is the frequency of power[i] in
// Hz.
func PowerSpectrum(data []float64, sampleHz float64) (freqs, power []float64, err error) {
	if len(data) < 4 {
		return nil, nil, ErrTooShort
	}

	mean := stat.Mean(data, nil)
	centred := make([]float64, len(data))
	for i, v := range data {
		centred[i] = v - mean
	}

	fft := fourier.NewFFT(len(centred))
	coeff := fft.Coefficients(nil, centred)

	freqs = make([]float64, len(coeff))
	power = make([]float64, len(coeff))
	for i, c := range coeff {
		freqs[i] = fft.Freq(i) * sampleHz
		power[i] = cmplx.Abs(c)
	}
	return freqs, power, nil
}

// DominantFrequency is the non-DC frequency with the most power.
func DominantFrequency(data []float64, sampleHz float64) (freq, power float64, err error) {
	freqs, ps, err := PowerSpectrum(data, sampleHz)
	if err != nil {
		return 0, 0, err
	}
	best := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	return freqs[best], ps[best], nil
}
