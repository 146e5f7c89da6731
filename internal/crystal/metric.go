package crystal

import (
	"fmt"
	"math"
)

// Volume of the unit cell in Å³ (general triclinic form).
func Volume(c Crystal) float64 {

	al, be, ga := c.Alpha, c.Beta, c.Gamma
	return 2 * c.A * c.B * c.C * math.Sqrt(
		math.Sin((al+be+ga)/2)*
			math.Sin((-al+be+ga)/2)*
			math.Sin((al-be+ga)/2)*
			math.Sin((al+be-ga)/2),
	)
}

// Reciprocal holds the reciprocal-lattice lengths (Å⁻¹) and angle cosines.
type Reciprocal struct {
	A, B, C                     float64
	CosAlpha, CosBeta, CosGamma float64
}

func ReciprocalOf(c Crystal) Reciprocal {

	v := Volume(c)
	sa, sb, sg := math.Sin(c.Alpha), math.Sin(c.Beta), math.Sin(c.Gamma)
	ca, cb, cg := math.Cos(c.Alpha), math.Cos(c.Beta), math.Cos(c.Gamma)

	return Reciprocal{
		A:        c.B * c.C * sa / v,
		B:        c.A * c.C * sb / v,
		C:        c.A * c.B * sg / v,
		CosAlpha: (cb*cg - ca) / (sb * sg),
		CosBeta:  (ca*cg - cb) / (sa * sg),
		CosGamma: (ca*cb - cg) / (sa * sb),
	}
}

// DSpacing returns d_hkl in Å for any lattice system.
func DSpacing(
	c Crystal,
	r Reflection,
) (
	float64, error,
) {

	if r.Zero() {
		return 0, fmt.Errorf("%s: the (000) reflection has no d-spacing", c.Name)
	}

	rc := ReciprocalOf(c)
	h, k, l := float64(r.H), float64(r.K), float64(r.L)
	q := h*h*rc.A*rc.A + k*k*rc.B*rc.B + l*l*rc.C*rc.C +
		2*h*k*rc.A*rc.B*rc.CosGamma +
		2*h*l*rc.A*rc.C*rc.CosBeta +
		2*k*l*rc.B*rc.C*rc.CosAlpha

	d := 1 / math.Sqrt(q)
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, fmt.Errorf("%s %s: invalid lattice, d = %g", c.Name, r, d)
	}
	return d, nil
}

// Bragg returns the photon energy (eV) and wavelength (Å) for diffraction
// from planes of spacing d at incidence angle theta (degrees).
func Bragg(
	d, theta float64,
) (
	energy, lambda float64,
) {

	lambda = 2 * d * math.Sin(rad(theta))
	energy = PlanckEV * SpeedOfLight / (lambda * 1e-10)
	return energy, lambda
}

// Wavelength in Å of a photon of the given energy in eV.
func Wavelength(energy float64) float64 {
	return PlanckEV * SpeedOfLight / energy * 1e10
}
