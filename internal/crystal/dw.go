package crystal

import (
	"errors"
	"fmt"
	"math"
)

type Method string

const (
	Gao     Method = "Gao"
	Sears   Method = "Sears"
	Warren  Method = "Warren"
	Zywietz Method = "Zywietz"
	None    Method = "None"
)

// gaoSwitch is the temperature in K above which the high-temperature Gao
// coefficients apply.
const gaoSwitch = 80.0

var ErrUnknownMethod = errors.New("unknown Debye-Waller method")

// DebyeWaller returns the exponents applied to atoms of species A and B for
// planes of spacing d at the given temperature. For every method but Warren
// the exponent is B/(4d²).
func DebyeWaller(
	lk Lookup,
	m Method,
	c Crystal,
	temperature, d float64,
) (
	dwA, dwB float64,
	err error,
) {

	switch m {
	case None:
		return 0, 0, nil

	case Gao:
		g, ok := lk.Gao(c.ElementA, temperature > gaoSwitch)
		if !ok {
			return 0, 0, fmt.Errorf("no Gao coefficients for %s at %g K", c.ElementA, temperature)
		}
		b := 0.0
		for i := len(g.A) - 1; i >= 0; i-- {
			b = b*temperature + g.A[i]
		}
		dw := b / (4 * d * d)
		return dw, dw, nil

	case Sears:
		s, ok := lk.Sears(c.ElementA)
		if !ok {
			return 0, 0, fmt.Errorf("no Sears constants for %s", c.ElementA)
		}
		rt := temperature / s.Tm
		var j float64
		if rt < 0.2 {
			j = s.FMin1 + (math.Pi*math.Pi/3)*s.Alpha*rt*rt
		} else {
			j = 2*s.FMin2*rt + 1/(6*rt) - s.F2/(360*rt*rt*rt)
		}
		b := 39.904 * j / (s.M * s.Vm)
		dw := b / (4 * d * d)
		return dw, dw, nil

	case Warren:
		if Classify(c) != Cubic {
			return 0, 0, fmt.Errorf("Warren Debye-Waller needs a cubic lattice, %s is %s", c.Name, Classify(c))
		}
		s, ok := lk.Sears(c.ElementA)
		if !ok {
			return 0, 0, fmt.Errorf("no Debye temperature for %s", c.ElementA)
		}
		rt := temperature / s.Tm
		q := 1 / (2 * d * 1e-10)
		mw := 12 * temperature * Planck * Planck * q * q *
			(1 + rt*rt/36 - rt*rt*rt*rt/3600) /
			(1e-3 * s.M * Boltzmann * s.Tm * s.Tm / Avogadro)
		return mw, mw, nil

	case Zywietz:
		if !c.Compound() {
			return 0, 0, fmt.Errorf("Zywietz Debye-Waller applies to compounds only, %s is elemental", c.Name)
		}
		uA, err := lk.MSD(c.ElementA, temperature)
		if err != nil {
			return 0, 0, err
		}
		uB, err := lk.MSD(c.ElementB, temperature)
		if err != nil {
			return 0, 0, err
		}
		bA := 8 * math.Pi * math.Pi * uA * 1e-2
		bB := 8 * math.Pi * math.Pi * uB * 1e-2
		return bA / (4 * d * d), bB / (4 * d * d), nil
	}

	return 0, 0, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
}

// Methods lists the Debye-Waller methods the reference data supports for c
// at the given temperature. None is always last.
func Methods(
	lk Lookup,
	c Crystal,
	temperature float64,
) []Method {

	var out []Method

	if c.Compound() {
		if c.Name == "6H-SiC" {
			out = append(out, Zywietz)
		}
		return append(out, None)
	}

	abbr := Abbreviation(c)
	if g, ok := lk.Gao(c.ElementA, temperature > gaoSwitch); ok && g.LatticeType == abbr {
		out = append(out, Gao)
	}
	if s, ok := lk.Sears(c.ElementA); ok && s.LatticeType == abbr {
		out = append(out, Sears)
		if Classify(c) == Cubic {
			out = append(out, Warren)
		}
	}
	return append(out, None)
}
