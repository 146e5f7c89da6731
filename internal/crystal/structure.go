package crystal

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/cmplx"

	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

// forbiddenTol is the |FH| below which a reflection is treated as extinct.
const forbiddenTol = 1e-10

// Params selects the crystal, reflection and conditions of one structure
// factor calculation. Theta (degrees) fixes the Bragg energy of a sample;
// a monochromator instead takes BraggEnergy from the sample.
type Params struct {
	Crystal     Crystal
	Reflection  Reflection
	Method      Method
	Temperature float64
	Mono        bool
	BraggEnergy float64
	Theta       float64
}

// Result is the outcome of StructureFactor. DWA and DWB are B values (Å²),
// i.e. the applied exponents multiplied by 4d². Lambda is zero for a
// monochromator.
type Result struct {
	D           float64
	BraggEnergy float64
	F0          complex128
	FH          complex128
	FHbar       complex128
	DWA, DWB    float64
	Volume      float64
	Lambda      float64
}

// StructureFactor computes d-spacing, Bragg energy and the complex structure
// factors F0, FH and FHbar for one reflection. An extinct reflection returns
// a *nixerr.ForbiddenError.
func StructureFactor(
	lk Lookup,
	p Params,
) (
	Result, error,
) {

	c := p.Crystal
	d, err := DSpacing(c, p.Reflection)
	if err != nil {
		return Result{}, err
	}

	res := Result{D: d, Volume: Volume(c)}
	if p.Mono {
		if p.BraggEnergy <= 0 {
			return Result{}, fmt.Errorf("%s monochromator: a positive Bragg energy is required", c.Name)
		}
		res.BraggEnergy = p.BraggEnergy
	} else {
		res.BraggEnergy, res.Lambda = Bragg(d, p.Theta)
	}

	dwA, dwB, err := DebyeWaller(lk, p.Method, c, p.Temperature, d)
	if errors.Is(err, ErrUnknownMethod) {
		log.Printf("%v; proceeding without Debye-Waller correction", err)
		dwA, dwB = 0, 0
	} else if err != nil {
		return Result{}, fmt.Errorf("%s Debye-Waller: %w", c.Name, err)
	}

	species := map[string]atom{}
	a, err := scatterer(lk, c.ElementA, d, res.BraggEnergy)
	if err != nil {
		return Result{}, err
	}
	a.dw = dwA
	species["A"] = a
	if c.Compound() {
		b, err := scatterer(lk, c.ElementB, d, res.BraggEnergy)
		if err != nil {
			return Result{}, err
		}
		b.dw = dwB
		species["B"] = b
	}

	basis, err := lk.Basis(c.CellType)
	if err != nil {
		return Result{}, err
	}

	h, k, l := float64(p.Reflection.H), float64(p.Reflection.K), float64(p.Reflection.L)
	for _, s := range basis {
		at, ok := species[s.Species]
		if !ok {
			return Result{}, fmt.Errorf("%s: basis of %s names species %q", c.Name, c.CellType, s.Species)
		}
		anomalous := complex(at.f1, at.f2)
		amp := complex(at.f0-float64(at.z), 0) + anomalous
		phase := 2 * math.Pi * (h*s.X + k*s.Y + l*s.Z)

		res.F0 += anomalous
		res.FH += amp * cmplx.Exp(complex(-at.dw, phase))
		res.FHbar += amp * cmplx.Exp(complex(-at.dw, -phase))
	}

	if cmplx.Abs(res.FH) < forbiddenTol {
		return Result{}, &nixerr.ForbiddenError{
			H: p.Reflection.H, K: p.Reflection.K, L: p.Reflection.L, FH: res.FH,
		}
	}

	res.DWA = dwA * 4 * d * d
	res.DWB = dwB * 4 * d * d
	return res, nil
}

type atom struct {
	z          int
	f0, f1, f2 float64
	dw         float64
}

func scatterer(
	lk Lookup,
	element string,
	d, energy float64,
) (
	atom, error,
) {

	z, err := lk.Z(element)
	if err != nil {
		return atom{}, err
	}
	f0, err := lk.F0(element, 1/(2*d))
	if err != nil {
		return atom{}, fmt.Errorf("f0 of %s: %w", element, err)
	}
	f1, f2, err := lk.F1F2(element, energy)
	if err != nil {
		return atom{}, fmt.Errorf("f1, f2 of %s: %w", element, err)
	}
	return atom{z: z, f0: f0, f1: f1, f2: f2}, nil
}
