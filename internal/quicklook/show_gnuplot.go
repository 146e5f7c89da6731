//go:build gnuplot

package quicklook

import (
	"fmt"

	"github.com/Arafatk/glot"

	"github.com/HamletTheHamster/nixsw/internal/report"
)

// Show plots data as points and fit as a line.
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

	dimensions := 2
	persist := true
	debug := false
	plot, err := glot.NewPlot(dimensions, persist, debug)
	if err != nil {
		return fmt.Errorf("quick-look: %w", err)
	}

	plot.SetTitle(title)
	plot.SetXLabel(xlabel)
	plot.SetYLabel(ylabel)

	if err := plot.AddPointGroup(data.Label, "points", [][]float64{data.X, data.Y}); err != nil {
		return fmt.Errorf("quick-look: %w", err)
	}
	if err := plot.AddPointGroup(fit.Label, "lines", [][]float64{fit.X, fit.Y}); err != nil {
		return fmt.Errorf("quick-look: %w", err)
	}
	return nil
}
