// Package diffraction computes the dynamical-diffraction reflectivity and
// phase of the sample and monochromator crystals around the Bragg energy.
package diffraction

import (
	"fmt"
	"math"
)

type Polarization string

const (
	Sigma Polarization = "sigma"
	Pi    Polarization = "pi"
)

func ParsePolarization(
	s string,
) (
	Polarization, error,
) {

	switch Polarization(s) {
	case Sigma, Pi:
		return Polarization(s), nil
	}
	return "", fmt.Errorf("unknown polarisation %q (want sigma or pi)", s)
}

// Geometry is the experimental arrangement of the sample. Angles are in
// degrees: Deviation is the departure from normal incidence, Miscut the
// angle between surface and Bragg planes, Emission the photoelectron
// take-off angle.
type Geometry struct {
	Deviation    float64
	Miscut       float64
	Emission     float64
	Polarization Polarization
}

// B is the asymmetry parameter of the sample reflection.
func (g Geometry) B() float64 {
	return -math.Sin(rad(90-g.Miscut-g.Deviation)) / math.Sin(rad(90+g.Miscut-g.Deviation))
}

// Theta is the Bragg angle in degrees.
func (g Geometry) Theta() float64 { return 90 - g.Deviation }

// PRefl is the x-ray polarisation factor.
func (g Geometry) PRefl() float64 {
	if g.Polarization == Pi {
		return -math.Cos(rad(2 * g.Deviation))
	}
	return 1
}

// PElectrons is the photoelectron polarisation factor; zero for σ light,
// where it is not defined.
func (g Geometry) PElectrons() float64 {
	if g.Polarization != Pi {
		return 0
	}
	return math.Sin(rad(g.Emission-2*g.Deviation)) / math.Sin(rad(g.Emission))
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
