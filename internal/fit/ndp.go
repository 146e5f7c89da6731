package fit

import (
	"math"
	"math/cmplx"

	"github.com/HamletTheHamster/nixsw/internal/diffraction"
)

// NDP holds the non-dipolar coefficients of the photoelectron yield.
type NDP struct {
	Sr, Si, Psi float64
	Q0, QH      float64
}

// NonDipolar derives Sr, |Si| and Ψ from the non-dipolar parameter γ and
// the phase shift Δ (rad). With σ polarisation the yield is purely dipolar.
func NonDipolar(gamma, delta float64, g diffraction.Geometry) NDP {

	if g.Polarization != diffraction.Pi {
		return NDP{Sr: 1, Si: 1}
	}

	phi := g.Emission * math.Pi / 180
	twoXi := 2 * g.Deviation * math.Pi / 180
	q0 := gamma * math.Cos(phi) / 3
	qh := gamma * math.Cos(phi-twoXi) / 3
	pe := g.PElectrons()

	si := complex(pe, 0) * complex(1+(qh-q0)/2, math.Tan(delta)*(qh+q0)/2) / complex(1-q0, 0)
	abs, psi := cmplx.Polar(si)
	return NDP{
		Sr:  pe * pe * (1 + qh) / (1 - q0),
		Si:  abs,
		Psi: psi,
		Q0:  q0,
		QH:  qh,
	}
}
