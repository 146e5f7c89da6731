package fit

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/HamletTheHamster/nixsw/internal/correlate"
	"github.com/HamletTheHamster/nixsw/internal/diffraction"
	"github.com/HamletTheHamster/nixsw/internal/nixerr"
	"github.com/HamletTheHamster/nixsw/internal/tables"
)

// YieldData is a measured photoelectron yield on the Bragg-centred energy
// axis (eV).
type YieldData struct {
	Energy []float64
	Yield  []float64
	Error  []float64
}

// YieldParams are the yield model parameters. Delta never varies; Sr is
// used in SrMode and Gamma in GammaMode.
type YieldParams struct {
	Fc, Pc, N float64
	Sr        float64
	Gamma     float64
	Delta     float64
}

type NDPMode int

const (
	// SrMode takes Sr as a parameter; |Si| and Ψ follow from the initial γ.
	SrMode NDPMode = iota
	// GammaMode derives Sr, |Si| and Ψ from γ at every evaluation.
	GammaMode
)

func (m NDPMode) String() string {
	if m == GammaMode {
		return "gamma"
	}
	return "Sr"
}

// YieldOptions selects the free parameters.
type YieldOptions struct {
	FitFc, FitPc, FitN bool
	Mode               NDPMode
	// FitNDP lets Sr or γ vary, according to Mode.
	FitNDP bool
	// IgnoreErrors fits unweighted residuals; the reported χ² is then 0.
	IgnoreErrors bool
}

// YieldModel is the dipole plus non-dipolar photoelectron yield of the
// sample, broadened by the Gaussian and the monochromator found by the
// reflectivity fit.
type YieldModel struct {
	pl       *correlate.Pipeline
	sp       *diffraction.Spectrum
	geometry diffraction.Geometry
	refl     ReflParams
}

func NewYieldModel(
	pl *correlate.Pipeline,
	sp *diffraction.Spectrum,
	g diffraction.Geometry,
	refl ReflParams,
) (
	*YieldModel, error,
) {

	if len(sp.PhaseSample) != len(sp.ReflSample) {
		return nil, fmt.Errorf(
			"%w: %d phases, %d reflectivities", nixerr.ErrShapeMismatch, len(sp.PhaseSample), len(sp.ReflSample),
		)
	}
	return &YieldModel{pl: pl, sp: sp, geometry: g, refl: refl}, nil
}

// NDP resolves the non-dipolar coefficients used for p. In SrMode, γ is
// never varied, so |Si| and Ψ stay those of the initial γ.
func (m *YieldModel) NDP(p YieldParams, mode NDPMode) NDP {
	n := NonDipolar(p.Gamma, p.Delta, m.geometry)
	if mode == SrMode {
		n.Sr = p.Sr
	}
	return n
}

// Curve returns the model interpolator on the full correlation axis.
func (m *YieldModel) Curve(
	p YieldParams,
	n NDP,
) (
	*tables.Linear, error,
) {

	ey := make([]float64, len(m.sp.ReflSample))
	for i, r := range m.sp.ReflSample {
		ey[i] = 1 + n.Sr*r + 2*p.Fc*n.Si*math.Sqrt(r)*math.Cos(m.sp.PhaseSample[i]-2*math.Pi*p.Pc+n.Psi)
	}
	return m.pl.MonoCorrelated(m.pl.Broaden(ey, m.refl.Sigma))
}

// At evaluates the model at the experimental energies shifted by the
// reflectivity ΔE.
func (m *YieldModel) At(
	p YieldParams,
	n NDP,
	energy []float64,
) (
	[]float64, error,
) {

	l, err := m.Curve(p, n)
	if err != nil {
		return nil, err
	}
	shifted := make([]float64, len(energy))
	for i, e := range energy {
		shifted[i] = e + m.refl.DeltaE
	}
	y, err := l.AtAll(shifted)
	if err != nil {
		return nil, fmt.Errorf("experimental yield exceeds the theory range, widen it: %w", err)
	}
	return y, nil
}

type YieldResult struct {
	Params YieldParams
	// StdErr is zero for parameters that were held fixed.
	StdErr YieldParams
	NDP    NDP
	// ChiSq is the reduced χ² of the weighted residuals, or 0 when errors
	// are ignored.
	ChiSq      float64
	RSquared   float64
	RSquaredOK bool
	Residuals  []float64
	Model      []float64
	// Curve is the model on the theory grid.
	Curve []float64
}

// yieldVector maps the free parameters to and from the solver vector.
type yieldVector struct {
	base  YieldParams
	names []string
	ptrs  []func(*YieldParams) *float64
}

func newYieldVector(init YieldParams, o YieldOptions) *yieldVector {

	v := &yieldVector{base: init}
	add := func(ok bool, name string, f func(*YieldParams) *float64) {
		if ok {
			v.names = append(v.names, name)
			v.ptrs = append(v.ptrs, f)
		}
	}
	add(o.FitFc, "Fc", func(p *YieldParams) *float64 { return &p.Fc })
	add(o.FitPc, "Pc", func(p *YieldParams) *float64 { return &p.Pc })
	add(o.FitN, "N", func(p *YieldParams) *float64 { return &p.N })
	add(o.FitNDP && o.Mode == SrMode, "Sr", func(p *YieldParams) *float64 { return &p.Sr })
	add(o.FitNDP && o.Mode == GammaMode, "gamma", func(p *YieldParams) *float64 { return &p.Gamma })
	return v
}

func (v *yieldVector) init() []float64 {
	x := make([]float64, len(v.ptrs))
	p := v.base
	for i, f := range v.ptrs {
		x[i] = *f(&p)
	}
	return x
}

func (v *yieldVector) params(x []float64) YieldParams {
	p := v.base
	for i, f := range v.ptrs {
		*f(&p) = x[i]
	}
	return p
}

// FitYield adjusts the coherent fraction and position, the normalisation
// and optionally Sr or γ to a measured yield.
func FitYield(
	m *YieldModel,
	d YieldData,
	init YieldParams,
	o YieldOptions,
	trace *TraceLog,
) (
	*YieldResult, error,
) {

	n := len(d.Yield)
	if len(d.Energy) != n || (!o.IgnoreErrors && len(d.Error) != n) {
		return nil, fmt.Errorf(
			"%w: %d energies, %d yields, %d errors", nixerr.ErrShapeMismatch, len(d.Energy), n, len(d.Error),
		)
	}
	if !o.IgnoreErrors {
		for i, e := range d.Error {
			if !(e > 0) {
				return nil, fmt.Errorf("yield error at point %d is %g; fit without weights instead", i, e)
			}
		}
	}

	vec := newYieldVector(init, o)
	ndp := func(p YieldParams) NDP { return m.NDP(p, o.Mode) }

	trace.Printf("All the fit parameters combinations tested are reported in the following:")
	problem := Problem{
		Names: vec.names,
		Init:  vec.init(),
		Size:  n,
		Residual: func(dst, x []float64) error {
			p := vec.params(x)
			model, err := m.At(p, ndp(p), d.Energy)
			if err != nil {
				return err
			}
			line := fmt.Sprintf("Fc=%g\tPc=%g\tN=%g", p.Fc, p.Pc, p.N)
			if o.FitNDP && o.Mode == SrMode {
				line += fmt.Sprintf("\tSr=%g", p.Sr)
			} else if o.FitNDP {
				line += fmt.Sprintf("\tgamma=%g", p.Gamma)
			}
			trace.Printf("%s", line)
			yieldResiduals(dst, d, model, p.N, o.IgnoreErrors)
			return nil
		},
	}

	sol, err := Minimize(problem)
	if err != nil {
		trace.Printf("Fit did not converge: %v", err)
		return nil, fmt.Errorf("yield fit: %w", err)
	}
	trace.Printf("Successful fit of %s", strings.Join(vec.names, ", "))

	p := vec.params(sol.X)
	nd := ndp(p)
	model, err := m.At(p, nd, d.Energy)
	if err != nil {
		return nil, fmt.Errorf("yield fit: %w", err)
	}

	var ss float64
	for _, r := range sol.Residuals {
		ss += r * r
	}
	redchi := ss / float64(n-len(sol.X))
	var se YieldParams
	stderr := sol.StdErr(redchi)
	for i, f := range vec.ptrs {
		*f(&se) = stderr[i]
	}

	exp := make([]float64, n)
	for i, y := range d.Yield {
		exp[i] = y / p.N
	}
	r2 := stat.RSquaredFrom(model, exp, nil)

	curve, err := m.Curve(p, nd)
	if err != nil {
		return nil, fmt.Errorf("yield fit: %w", err)
	}
	onGrid, err := curve.AtAll(m.pl.Energy)
	if err != nil {
		return nil, fmt.Errorf("yield fit: %w", err)
	}

	res := &YieldResult{
		Params:     p,
		StdErr:     se,
		NDP:        nd,
		RSquared:   r2,
		RSquaredOK: r2 >= 0 && r2 <= 1,
		Residuals:  sol.Residuals,
		Model:      model,
		Curve:      onGrid,
	}
	if !o.IgnoreErrors {
		res.ChiSq = redchi
	}
	trace.Printf("Reduced chi squared = %g", redchi)
	trace.Printf("R_squared = %g", r2)
	logCorrelations(trace, sol)
	return res, nil
}

func yieldResiduals(dst []float64, d YieldData, model []float64, norm float64, ignoreErrors bool) {
	for i, y := range d.Yield {
		dst[i] = y/norm - model[i]
		if !ignoreErrors {
			dst[i] /= d.Error[i] / norm
		}
	}
}

// Normalised returns the measured yield divided by the fitted N, with the
// energies shifted by the reflectivity ΔE.
func (r *YieldResult) Normalised(m *YieldModel, d YieldData) (energy, yield, yieldErr []float64) {

	energy = make([]float64, len(d.Energy))
	yield = make([]float64, len(d.Yield))
	yieldErr = make([]float64, len(d.Error))
	for i, e := range d.Energy {
		energy[i] = e + m.refl.DeltaE
	}
	for i, y := range d.Yield {
		yield[i] = y / r.Params.N
	}
	for i, e := range d.Error {
		yieldErr[i] = e / r.Params.N
	}
	return energy, yield, yieldErr
}
