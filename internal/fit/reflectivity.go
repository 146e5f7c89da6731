package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/HamletTheHamster/nixsw/internal/correlate"
	"github.com/HamletTheHamster/nixsw/internal/diffraction"
	"github.com/HamletTheHamster/nixsw/internal/nixerr"
	"github.com/HamletTheHamster/nixsw/internal/tables"
)

// ReflData is a measured reflectivity curve on the Bragg-centred energy
// axis (eV).
type ReflData struct {
	Energy []float64
	Refl   []float64
	Error  []float64
}

type ReflParams struct {
	Sigma      float64
	N          float64
	Background float64
	DeltaE     float64
}

var reflNames = []string{"Sigma", "Norm", "Bgd", "DeltaEn"}

func (p ReflParams) vector() []float64 {
	return []float64{p.Sigma, p.N, p.Background, p.DeltaE}
}

func reflParams(x []float64) ReflParams {
	return ReflParams{Sigma: x[0], N: x[1], Background: x[2], DeltaE: x[3]}
}

// ReflModel is the ideal sample reflectivity after the monochromator
// correlation, on the theory grid.
type ReflModel struct {
	pl     *correlate.Pipeline
	Energy []float64
	Theory []float64
}

func NewReflModel(
	pl *correlate.Pipeline,
	sp *diffraction.Spectrum,
) (
	*ReflModel, error,
) {

	theory, err := pl.OnGrid(sp.ReflSample)
	if err != nil {
		return nil, fmt.Errorf("reflectivity model: %w", err)
	}
	return &ReflModel{pl: pl, Energy: pl.Energy, Theory: theory}, nil
}

// Resolution is the smallest σ the theory grid resolves. Below a quarter of
// the grid step the sampled Gaussian is a unit impulse to within exp(-8).
func (m *ReflModel) Resolution() float64 {
	return (m.Energy[1] - m.Energy[0]) / 4
}

// Curve is the model broadened by a Gaussian of width sigma, on the theory
// grid.
func (m *ReflModel) Curve(sigma float64) []float64 {
	return m.pl.Broaden(m.Theory, sigma)
}

// At evaluates N·Curve(σ) at energy+ΔE, without the background.
func (m *ReflModel) At(
	p ReflParams,
	energy []float64,
) (
	[]float64, error,
) {

	l, err := tables.NewLinear("reflectivity fit", "photon energy", m.Energy, m.Curve(p.Sigma))
	if err != nil {
		return nil, err
	}
	shifted := make([]float64, len(energy))
	for i, e := range energy {
		shifted[i] = e + p.DeltaE
	}
	y, err := l.AtAll(shifted)
	if err != nil {
		return nil, fmt.Errorf("experimental reflectivity exceeds the theory range, widen it: %w", err)
	}
	floats.Scale(p.N, y)
	return y, nil
}

// GuessReflectivity derives starting values from the peak of the data and
// of the model.
func GuessReflectivity(m *ReflModel, d ReflData) ReflParams {

	p := ReflParams{Sigma: 0.1}
	if len(d.Refl) == 0 || len(m.Theory) == 0 {
		return p
	}
	if top := floats.Max(m.Theory); top != 0 {
		p.N = floats.Max(d.Refl) / top
	}
	p.Background = d.Refl[0]
	p.DeltaE = m.Energy[floats.MaxIdx(m.Theory)] - d.Energy[floats.MaxIdx(d.Refl)]
	return p
}

type ReflResult struct {
	Params ReflParams
	StdErr ReflParams
	// SigmaFixed is set when σ fell below the resolution and was held at
	// zero.
	SigmaFixed bool
	// ChiSq is Pearson's reduced χ², Σ r²/model over n minus the fitted
	// parameters.
	ChiSq float64
	// RSquared is kept even when it falls outside [0, 1]; RSquaredOK says
	// whether it did not.
	RSquared   float64
	RSquaredOK bool
	Residuals  []float64
	// Model is N·Curve(σ) at the shifted experimental energies.
	Model []float64
	// Curve is the broadened model on the theory grid, unscaled.
	Curve []float64
}

// Normalised returns the data on the model's scale: shifted by ΔE, with
// the background removed and divided by N.
func (r *ReflResult) Normalised(d ReflData) (energy, refl, refErr []float64) {

	p := r.Params
	energy = make([]float64, len(d.Energy))
	refl = make([]float64, len(d.Refl))
	refErr = make([]float64, len(d.Error))
	for i := range d.Energy {
		energy[i] = d.Energy[i] + p.DeltaE
	}
	for i := range d.Refl {
		refl[i] = (d.Refl[i] - p.Background) / p.N
	}
	for i := range d.Error {
		refErr[i] = d.Error[i] / p.N
	}
	return energy, refl, refErr
}

// FitReflectivity adjusts σ, N, background and ΔE so that
// (R_exp − bg) matches N·model(E+ΔE). The data points are not weighted.
//
// A σ below the model's Resolution cannot be told from zero. When the fit
// lands there, or σ leaves the covariance singular, the fit is repeated
// with σ held at zero, SigmaFixed is set and StdErr.Sigma is NaN.
func FitReflectivity(
	m *ReflModel,
	d ReflData,
	init ReflParams,
	trace *TraceLog,
) (
	*ReflResult, error,
) {

	if len(d.Energy) != len(d.Refl) {
		return nil, fmt.Errorf(
			"%w: %d energies, %d reflectivity values", nixerr.ErrShapeMismatch, len(d.Energy), len(d.Refl),
		)
	}

	trace.Printf("All the fit parameters combinations tested are reported in the following:")
	problem, params := reflProblem(m, d, init, false, trace)
	sol, err := Minimize(problem)
	fixed := false
	switch {
	case err == nil && math.Abs(sol.X[0]) < m.Resolution():
		trace.Printf("Sigma=%g is below the resolution %g, fitting again with Sigma=0", sol.X[0], m.Resolution())
		init = params(sol.X)
		fixed = true
	case errors.Is(err, nixerr.ErrSingularCovariance):
		trace.Printf("%v; fitting again with Sigma=0", err)
		fixed = true
	case err != nil:
		trace.Printf("Fit failed: %v", err)
		return nil, fmt.Errorf("reflectivity fit: %w", err)
	}
	if fixed {
		first := err
		init.Sigma = 0
		problem, params = reflProblem(m, d, init, true, trace)
		if sol, err = Minimize(problem); err != nil {
			trace.Printf("Fit failed: %v", err)
			if first != nil {
				err = first
			}
			return nil, fmt.Errorf("reflectivity fit: %w", err)
		}
	}

	p := params(sol.X)
	p.Sigma = math.Abs(p.Sigma)
	model, err := m.At(p, d.Energy)
	if err != nil {
		return nil, fmt.Errorf("reflectivity fit: %w", err)
	}

	chi2 := pearson(sol.Residuals, model, len(sol.X))
	se := sol.StdErr(chi2)
	stdErr := reflParams(se)
	if fixed {
		stdErr = ReflParams{Sigma: math.NaN(), N: se[0], Background: se[1], DeltaE: se[2]}
	}

	exp := make([]float64, len(d.Refl))
	for i, r := range d.Refl {
		exp[i] = r - p.Background
	}
	r2 := stat.RSquaredFrom(model, exp, nil)

	res := &ReflResult{
		Params:     p,
		StdErr:     stdErr,
		SigmaFixed: fixed,
		ChiSq:      chi2,
		RSquared:   r2,
		RSquaredOK: r2 >= 0 && r2 <= 1,
		Residuals:  sol.Residuals,
		Model:      model,
		Curve:      m.Curve(p.Sigma),
	}
	trace.Printf("*** R_squared = %g", r2)
	trace.Printf("Pearson chi squared = %g", chi2)
	logCorrelations(trace, sol)
	return res, nil
}

// reflProblem builds the least-squares problem over all four parameters,
// or over N, background and ΔE with σ fixed at init.Sigma. params maps a
// solver vector back to the parameters.
func reflProblem(
	m *ReflModel,
	d ReflData,
	init ReflParams,
	fixSigma bool,
	trace *TraceLog,
) (
	problem Problem,
	params func([]float64) ReflParams,
) {

	names, x0 := reflNames, init.vector()
	params = reflParams
	if fixSigma {
		names, x0 = reflNames[1:], x0[1:]
		params = func(x []float64) ReflParams {
			return ReflParams{Sigma: init.Sigma, N: x[0], Background: x[1], DeltaE: x[2]}
		}
	}

	problem = Problem{
		Names: names,
		Init:  x0,
		Size:  len(d.Refl),
		Residual: func(dst, x []float64) error {
			p := params(x)
			model, err := m.At(p, d.Energy)
			if err != nil {
				return err
			}
			trace.Printf("Sigma=%g\tNorm=%g\tBgd=%g\tDeltaEn=%g", p.Sigma, p.N, p.Background, p.DeltaE)
			for i, r := range d.Refl {
				dst[i] = (r - p.Background) - model[i]
			}
			return nil
		},
	}
	return problem, params
}

// pearson sums r²/model over the points where the model is positive and
// divides by the degrees of freedom.
func pearson(residuals, model []float64, params int) float64 {

	var sum float64
	for i, r := range residuals {
		if model[i] > 0 {
			sum += r * r / model[i]
		}
	}
	return sum / float64(len(residuals)-params)
}

func logCorrelations(trace *TraceLog, sol *Solution) {

	names := sol.Names
	trace.Printf("Correlations:")
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			trace.Printf("--> %s with %s: %.3f", names[i], names[j], sol.Correlation(i, j))
		}
	}
}
