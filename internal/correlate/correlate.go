// Package correlate broadens the ideal reflectivity and yield curves by the
// monochromator response and an additional Gaussian.
package correlate

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// fftThreshold is the product of input lengths above which Full switches
// from the direct sum to an FFT.
const fftThreshold = 1 << 18

// Full returns the full cross-correlation of a with v,
//
//	c[k+len(v)-1] = Σ_n a[n+k]·v[n],  k = -(len(v)-1) .. len(a)-1,
//
// of length len(a)+len(v)-1.
func Full(a, v []float64) []float64 {
	if len(a) == 0 || len(v) == 0 {
		return nil
	}
	if len(a)*len(v) > fftThreshold {
		return fullFFT(a, v)
	}
	return fullDirect(a, v)
}

func fullDirect(a, v []float64) []float64 {

	na, nv := len(a), len(v)
	out := make([]float64, na+nv-1)
	for j := range out {
		k := j - (nv - 1)
		lo, hi := 0, nv
		if -k > lo {
			lo = -k
		}
		if na-k < hi {
			hi = na - k
		}
		var s float64
		for n := lo; n < hi; n++ {
			s += a[n+k] * v[n]
		}
		out[j] = s
	}
	return out
}

// fullFFT computes the same correlation as the convolution of a with v
// reversed.
func fullFFT(a, v []float64) []float64 {

	n := len(a) + len(v) - 1
	m := 1
	for m < n {
		m <<= 1
	}

	pa := make([]float64, m)
	copy(pa, a)
	pv := make([]float64, m)
	for i, x := range v {
		pv[len(v)-1-i] = x
	}

	fft := fourier.NewFFT(m)
	ca := fft.Coefficients(nil, pa)
	cv := fft.Coefficients(nil, pv)
	for i := range ca {
		ca[i] *= cv[i]
	}
	seq := fft.Sequence(nil, ca)

	out := make([]float64, n)
	scale := 1 / float64(m)
	for i := range out {
		out[i] = seq[i] * scale
	}
	return out
}

// Same returns the central len(a) values of the full correlation, aligned
// so that a kernel v centred on its middle sample leaves the axis of a
// unchanged.
func Same(a, v []float64) []float64 {

	full := Full(a, v)
	if full == nil {
		return nil
	}
	off := len(v) - 1 - len(v)/2
	out := make([]float64, len(a))
	copy(out, full[off:off+len(a)])
	return out
}

// FullAxis is the energy axis of a full correlation of two curves that
// share an n-point grid of spacing step: n·step below zero to (n-1)·step
// above, in 2n-1 evenly spaced samples.
func FullAxis(n int, step float64) []float64 {

	m := 2*n - 1
	lo, hi := -float64(n)*step, float64(n-1)*step
	x := make([]float64, m)
	if m == 1 {
		x[0] = lo
		return x
	}
	d := (hi - lo) / float64(m-1)
	for i := range x {
		x[i] = lo + float64(i)*d
	}
	x[m-1] = hi
	return x
}
