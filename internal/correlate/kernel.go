package correlate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian samples a zero-centred normal density of width sigma on x and
// normalises the samples to unit sum. A zero width yields a unit impulse
// at the sample nearest zero; the sign of sigma is ignored.
func Gaussian(sigma float64, x []float64) []float64 {

	g := make([]float64, len(x))
	if len(x) == 0 {
		return g
	}

	sigma = math.Abs(sigma)
	if sigma > 0 {
		n := distuv.Normal{Mu: 0, Sigma: sigma}
		for i, xi := range x {
			g[i] = n.Prob(xi)
		}
		if s := floats.Sum(g); s > 0 {
			floats.Scale(1/s, g)
			return g
		}
	}

	best := 0
	for i, xi := range x {
		if math.Abs(xi) < math.Abs(x[best]) {
			best = i
		}
	}
	for i := range g {
		g[i] = 0
	}
	g[best] = 1
	return g
}

// MonoKernel is the squared monochromator reflectivity (two bounces)
// normalised to unit sum, so that correlating with it preserves the area of
// the sample curve.
func MonoKernel(
	reflMono []float64,
) (
	[]float64, error,
) {

	k := make([]float64, len(reflMono))
	for i, r := range reflMono {
		k[i] = r * r
	}
	s := floats.Sum(k)
	if !(s > 0) || math.IsInf(s, 0) {
		return nil, fmt.Errorf("monochromator reflectivity has no weight (sum of squares %g)", s)
	}
	floats.Scale(1/s, k)
	return k, nil
}
