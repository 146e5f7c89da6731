// Package fit adjusts the reflectivity and photoelectron-yield models to
// measured curves with Levenberg-Marquardt and reports the parameter
// uncertainties.
package fit

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

// Settings bounds the Levenberg-Marquardt iterations.
var Settings = lm.Settings{Iterations: 1000, ObjectiveTol: 1e-24}

// Problem is a least-squares problem over the parameters that vary. Names
// labels the parameters in errors and in the correlation log. Residual must
// only read shared state: it is called from several goroutines at once.
type Problem struct {
	Names    []string
	Init     []float64
	Size     int
	Residual func(dst, x []float64) error
}

type Solution struct {
	Names     []string
	X         []float64
	Residuals []float64
	// Cov is (JᵀJ)⁻¹ at X, not yet scaled by the reduced χ².
	Cov    *mat.Dense
	Status optimize.Status
}

// StdErr scales the covariance diagonal by chi2 and returns the standard
// errors.
func (s *Solution) StdErr(chi2 float64) []float64 {
	out := make([]float64, len(s.X))
	for i := range out {
		out[i] = math.Sqrt(chi2 * s.Cov.At(i, i))
	}
	return out
}

func (s *Solution) Correlation(i, j int) float64 {
	return s.Cov.At(i, j) / math.Sqrt(s.Cov.At(i, i)*s.Cov.At(j, j))
}

// Minimize runs Levenberg-Marquardt from p.Init with a central-difference
// Jacobian. The first residual error aborts the fit and is returned as is.
func Minimize(
	p Problem,
) (
	*Solution, error,
) {

	dim := len(p.Init)
	if dim == 0 {
		return nil, errors.New("fit: no free parameters")
	}
	if len(p.Names) != dim {
		return nil, fmt.Errorf("%w: %d names for %d parameters", nixerr.ErrShapeMismatch, len(p.Names), dim)
	}
	if p.Size <= dim {
		return nil, fmt.Errorf(
			"%w: %d points cannot constrain %d parameters", nixerr.ErrShapeMismatch, p.Size, dim,
		)
	}

	var (
		mu       sync.Mutex
		firstErr error
	)
	failed := func() error {
		mu.Lock()
		defer mu.Unlock()
		return firstErr
	}
	f := func(dst, x []float64) {
		if failed() == nil {
			err := p.Residual(dst, x)
			if err == nil {
				return
			}
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
		for i := range dst {
			dst[i] = math.NaN()
		}
	}

	jac := lm.NumJac{Func: f}
	problem := lm.LMProblem{
		Dim:        dim,
		Size:       p.Size,
		Func:       f,
		Jac:        jac.Jac,
		InitParams: p.Init,
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	x, status, err := solve(problem)
	if ferr := failed(); ferr != nil {
		return nil, ferr
	}
	if err != nil {
		return nil, err
	}
	if status == optimize.IterationLimit {
		return nil, fmt.Errorf("%w: iteration limit %d reached at %v", nixerr.ErrNonConvergence, Settings.Iterations, x)
	}

	res := make([]float64, p.Size)
	if err := p.Residual(res, x); err != nil {
		return nil, err
	}
	if !finite(res) {
		return nil, fmt.Errorf("%w: non-finite residuals at %v", nixerr.ErrNonConvergence, x)
	}

	cov, err := covariance(f, x, p.Size, p.Names)
	if ferr := failed(); ferr != nil {
		return nil, ferr
	}
	if err != nil {
		return nil, err
	}
	return &Solution{Names: p.Names, X: x, Residuals: res, Cov: cov, Status: status}, nil
}

// solve runs the solver, turning its panic on singular normal equations
// into an error.
func solve(
	problem lm.LMProblem,
) (
	x []float64,
	status optimize.Status,
	err error,
) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", nixerr.ErrSingularCovariance, r)
		}
	}()

	settings := Settings
	result, err := lm.LM(problem, &settings)
	if err != nil {
		return nil, status, err
	}
	return result.X, result.Status, nil
}

func covariance(
	f func(dst, x []float64),
	x []float64,
	size int,
	names []string,
) (
	*mat.Dense, error,
) {

	jac := mat.NewDense(size, len(x), nil)
	fd.Jacobian(jac, f, x, &fd.JacobianSettings{Formula: fd.Central})

	var jtj, cov mat.Dense
	jtj.Mul(jac.T(), jac)
	for i, name := range names {
		if jtj.At(i, i) == 0 {
			return nil, fmt.Errorf("%w: %s does not change the residuals at %v", nixerr.ErrSingularCovariance, name, x)
		}
	}
	if err := cov.Inverse(&jtj); err != nil {
		var c mat.Condition
		if !errors.As(err, &c) || math.IsInf(float64(c), 1) {
			return nil, fmt.Errorf("%w: %v", nixerr.ErrSingularCovariance, err)
		}
		log.Printf("fit: ill-conditioned normal equations: %v", err)
	}
	for i := range x {
		if v := cov.At(i, i); !(v >= 0) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: variance of %s is %g", nixerr.ErrSingularCovariance, names[i], v)
		}
	}
	return &cov, nil
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
