package argand

import (
	"math"
	"math/cmplx"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/HamletTheHamster/nixsw/internal/dataio"
)

// Vector is a coherent position and fraction, the polar form of
// Fc·exp(2πi·Pc).
type Vector struct {
	Pc, Fc float64
}

func ToCartesian(v Vector) complex128 {
	return cmplx.Rect(v.Fc, 2*math.Pi*v.Pc)
}

// FromCartesian returns the vector of z with Pc in [0, 1).
func FromCartesian(z complex128) Vector {

	pc := cmplx.Phase(z) / (2 * math.Pi)
	if pc < 0 {
		pc++
	}
	if pc >= 1 {
		pc = 0
	}
	return Vector{Pc: pc, Fc: cmplx.Abs(z)}
}

// Member is a vector with its errors.
type Member struct {
	Vector
	PcErr, FcErr float64
}

// Aggregate recomputes a group's Pc, Fc and their errors from its checked
// points. Every change of membership does this already.
func (a *Arena) Aggregate(id uuid.UUID) error {

	g, err := a.Group(id)
	if err != nil {
		return err
	}
	a.aggregate(g)
	return nil
}

func (a *Arena) aggregate(g *Group) {

	var checked []*Point
	for _, id := range g.points {
		if p := a.points[id]; p.Checked {
			checked = append(checked, p)
		}
	}

	rec := g.Record
	if len(checked) == 1 {
		for _, k := range []string{"Pc", "Fc", "Pc_err", "Fc_err"} {
			rec[k] = checked[0].Record[k]
		}
		return
	}

	members := make([]Member, 0, len(checked))
	for _, p := range checked {
		m, ok := parseMember(p.Record)
		if !ok {
			members = nil
			break
		}
		members = append(members, m)
	}

	avg, ok := WeightedAverage(members)
	if !ok {
		for _, k := range []string{"Pc", "Fc", "Pc_err", "Fc_err"} {
			rec[k] = dataio.Missing
		}
		return
	}
	rec.SetFloat("Pc", avg.Pc)
	rec.SetFloat("Fc", avg.Fc)
	rec.SetFloat("Pc_err", avg.PcErr)
	rec.SetFloat("Fc_err", avg.FcErr)
}

func parseMember(r dataio.Record) (Member, bool) {

	pc, ok1 := r.Float("Pc")
	fc, ok2 := r.Float("Fc")
	pe, ok3 := r.Float("Pc_err")
	fe, ok4 := r.Float("Fc_err")
	if !(ok1 && ok2 && ok3 && ok4) || pe < minFraction || fe < minFraction {
		return Member{}, false
	}
	return Member{Vector: Vector{Pc: pc, Fc: fc}, PcErr: pe, FcErr: fe}, true
}

// WeightedAverage averages at least two vectors in the complex plane,
// weighting real and imaginary parts by their inverse propagated variance.
// Each error is the larger of the propagated error and the spread of the
// members about the mean. It fails for fewer than two members or when the
// result is not finite.
func WeightedAverage(members []Member) (Member, bool) {

	n := len(members)
	if n < 2 {
		return Member{}, false
	}

	re := make([]float64, n)
	im := make([]float64, n)
	wRe := make([]float64, n)
	wIm := make([]float64, n)
	for i, m := range members {
		phi := 2 * math.Pi * m.Pc
		c, s := math.Cos(phi), math.Sin(phi)
		eRe := math.Hypot(c*m.FcErr, 2*math.Pi*m.Fc*s*m.PcErr)
		eIm := math.Hypot(s*m.FcErr, 2*math.Pi*m.Fc*c*m.PcErr)
		re[i], im[i] = m.Fc*c, m.Fc*s
		wRe[i], wIm[i] = 1/(eRe*eRe), 1/(eIm*eIm)
	}

	avRe := stat.Mean(re, wRe)
	avIm := stat.Mean(im, wIm)
	errRe := math.Sqrt(1 / floats.Sum(wRe))
	errIm := math.Sqrt(1 / floats.Sum(wIm))

	bessel := float64(n) / float64(n-1)
	sdRe := math.Sqrt(stat.MomentAbout(2, re, avRe, nil) * bessel)
	sdIm := math.Sqrt(stat.MomentAbout(2, im, avIm, nil) * bessel)

	v := FromCartesian(complex(avRe, avIm))
	fc2 := v.Fc * v.Fc
	pcErr := func(eRe, eIm float64) float64 {
		return math.Hypot(avIm*eRe/(2*math.Pi*fc2), avRe*eIm/(2*math.Pi*fc2))
	}
	fcErr := func(eRe, eIm float64) float64 {
		return math.Hypot(avRe*eRe/v.Fc, avIm*eIm/v.Fc)
	}

	avg := Member{
		Vector: v,
		PcErr:  math.Max(pcErr(errRe, errIm), pcErr(sdRe, sdIm)),
		FcErr:  math.Max(fcErr(errRe, errIm), fcErr(sdRe, sdIm)),
	}
	return avg, finite(avg.Pc, avg.Fc, avg.PcErr, avg.FcErr)
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
