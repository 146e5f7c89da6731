// Package nixerr holds the error classes shared by the analysis packages.
package nixerr

import (
	"errors"
	"fmt"
	"math/cmplx"
)

var (
	ErrForbiddenReflection = errors.New("forbidden reflection")
	ErrDomain              = errors.New("value outside table domain")
	ErrNonConvergence      = errors.New("fit did not converge")
	ErrSingularCovariance  = errors.New("singular covariance matrix")
	ErrShapeMismatch       = errors.New("data shape mismatch")
	ErrIO                  = errors.New("i/o failure")
)

// DomainError reports an interpolation request outside the tabulated range.
type DomainError struct {
	Table    string
	Column   string
	X        float64
	Min, Max float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf(
		"%s: %s = %g outside [%g, %g]", e.Table, e.Column, e.X, e.Min, e.Max,
	)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

// ForbiddenError is returned when |FH| vanishes for the requested reflection.
type ForbiddenError struct {
	H, K, L int
	FH      complex128
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf(
		"reflection (%d%d%d) is forbidden: |FH| = %.3g", e.H, e.K, e.L, cmplx.Abs(e.FH),
	)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbiddenReflection }
