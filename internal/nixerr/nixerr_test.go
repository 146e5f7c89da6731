package nixerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrappedClasses(t *testing.T) {

	d := fmt.Errorf("f0 lookup: %w", &DomainError{Table: "f0.csv", Column: "1/2dhkl", X: 3, Min: 0, Max: 2})
	if !errors.Is(d, ErrDomain) {
		t.Errorf("domain error does not unwrap to ErrDomain: %v", d)
	}
	var de *DomainError
	if !errors.As(d, &de) || de.X != 3 {
		t.Errorf("errors.As lost the DomainError: %v", d)
	}

	f := fmt.Errorf("sample: %w", &ForbiddenError{H: 1, K: 0, L: 0})
	if !errors.Is(f, ErrForbiddenReflection) {
		t.Errorf("forbidden error does not unwrap: %v", f)
	}
	if errors.Is(f, ErrDomain) {
		t.Errorf("forbidden error matched ErrDomain")
	}
}
