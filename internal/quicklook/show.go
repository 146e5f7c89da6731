//go:build !gnuplot

package quicklook

import (
	"fmt"

	"github.com/HamletTheHamster/nixsw/internal/report"
)

// Show checks the curves and reports ErrUnavailable.
func Show(
	title, xlabel, ylabel string,
	data, fit report.Curve,
) error {

	if err := data.Check(); err != nil {
		return err
	}
	if err := fit.Check(); err != nil {
		return err
	}
	return fmt.Errorf("quick-look %s: %w", title, ErrUnavailable)
}
