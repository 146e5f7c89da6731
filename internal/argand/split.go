package argand

import (
	"errors"
	"log"
	"math"
	"math/cmplx"
)

var ErrSplitFraction = errors.New("argand: split fraction nA must differ from 1")

// Split finds two vectors of fraction fcSplit, symmetric about sum, whose
// nA-weighted combination is sum. fcSplit must exceed sum.Fc; otherwise
// sum.Fc+0.1 is used.
func Split(sum Vector, fcSplit, nA float64) (a, b Vector, err error) {

	if fcSplit < sum.Fc {
		log.Printf("split fraction %g is below Fc = %g of the vector to split; using %g", fcSplit, sum.Fc, sum.Fc+0.1)
		fcSplit = sum.Fc + 0.1
	}
	dp := math.Acos(sum.Fc/fcSplit) / (2 * math.Pi)
	a = FromCartesian(ToCartesian(Vector{Pc: sum.Pc - dp, Fc: fcSplit}))
	b, err = SplitAt(sum, a, nA)
	return a, b, err
}

// SplitAt returns B such that nA·A + (1−nA)·B = sum.
func SplitAt(sum, a Vector, nA float64) (Vector, error) {

	if nA == 1 {
		return Vector{}, ErrSplitFraction
	}
	zb := (ToCartesian(sum) - complex(nA, 0)*ToCartesian(a)) / complex(1-nA, 0)
	return FromCartesian(zb), nil
}

// Symmetric moves A onto the line through sum perpendicular to it, so that
// A and its partner lie symmetric about sum.
func Symmetric(sum, a Vector) Vector {

	zs := ToCartesian(sum)
	if zs == 0 {
		return a
	}
	u := zs / complex(cmplx.Abs(zs), 0)
	za := ToCartesian(a)
	d := za - zs
	along := real(d)*real(u) + imag(d)*imag(u)
	return FromCartesian(za - complex(along, 0)*u)
}
