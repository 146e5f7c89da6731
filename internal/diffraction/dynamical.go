package diffraction

import (
	"math"
	"math/cmplx"
)

// Reflector is one diffracting crystal as seen by the dynamical theory.
// Theta is in radians. GammaFactor is r_e·λ²/(π·V).
type Reflector struct {
	F0, FH, FHbar complex128
	B             float64
	P             float64
	Theta         float64
	GammaFactor   float64
}

// Eta is the deviation parameter at dE eV from the Bragg energy eB.
func (r Reflector) Eta(
	dE, eB float64,
) complex128 {

	b := complex(r.B, 0)
	g := complex(r.GammaFactor, 0)
	s := math.Sin(r.Theta)

	num := complex(2*r.B*(dE/eB)*s*s, 0) + g*r.F0*(1-b)/2
	den := complex(math.Abs(r.P), 0) * g * cmplx.Sqrt(complex(math.Abs(r.B), 0)*r.FH*r.FHbar)
	return num / den
}

// Roots returns the two solutions E_H/E_0 of the dispersion equation.
func (r Reflector) Roots(
	eta complex128,
) (
	plus, minus complex128,
) {

	sign := complex(-r.P/math.Abs(r.P), 0)
	root := cmplx.Sqrt(eta*eta - 1)
	scale := cmplx.Sqrt(complex(math.Abs(r.B), 0) * r.FH / r.FHbar)

	plus = sign * (eta + root) * scale
	minus = sign * (eta - root) * scale
	return plus, minus
}

// phase is arctan(Im/Re), confined to (-π/2, π/2]. Quadrant corrections are
// applied by the branch selection.
func phase(z complex128) float64 {
	return math.Atan(imag(z) / real(z))
}

func refl(z complex128) float64 {
	a := cmplx.Abs(z)
	return a * a
}

// SampleBranch keeps the root whose reflectivity lies strictly inside
// (0, 1), trying the plus root first. When the minus root is used its phase
// gains π if Re is negative for σ light or positive for π light.
func SampleBranch(
	plus, minus complex128,
	pol Polarization,
) (
	r, ph float64,
) {

	if rp := refl(plus); rp > 0 && rp < 1 {
		return rp, phase(plus)
	}

	r, ph = refl(minus), phase(minus)
	switch {
	case real(minus) < 0 && pol == Sigma:
		ph += math.Pi
	case real(minus) > 0 && pol == Pi:
		ph += math.Pi
	}
	return r, ph
}

// MonoBranch prefers the minus root, adding π to its phase when the plus
// root has a negative real part.
func MonoBranch(
	plus, minus complex128,
) (
	r, ph float64,
) {

	if rm := refl(minus); rm > 0 && rm < 1 {
		ph = phase(minus)
		if real(plus) < 0 {
			ph += math.Pi
		}
		return rm, ph
	}
	return refl(plus), phase(plus)
}
