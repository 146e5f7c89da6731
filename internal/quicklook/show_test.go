//go:build !gnuplot

package quicklook

import (
	"errors"
	"testing"

	"github.com/HamletTheHamster/nixsw/internal/nixerr"
	"github.com/HamletTheHamster/nixsw/internal/report"
)

func TestShowWithoutGnuplot(t *testing.T) {

	data := report.Curve{Label: "C1s", X: []float64{-1, 0, 1}, Y: []float64{1, 2, 1}}
	fit := report.Curve{Label: "fit", X: []float64{-1, 0, 1}, Y: []float64{1, 2.1, 1}}
	if err := Show("EY", "E", "Y", data, fit); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestShowShapeMismatch(t *testing.T) {

	data := report.Curve{Label: "C1s", X: []float64{-1, 0, 1}, Y: []float64{1, 2}}
	fit := report.Curve{Label: "fit", X: []float64{0}, Y: []float64{1}}
	if err := Show("EY", "E", "Y", data, fit); !errors.Is(err, nixerr.ErrShapeMismatch) {
		t.Errorf("err = %v, want ErrShapeMismatch", err)
	}
}
