package correlate

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

var ErrNoPeak = errors.New("no half-maximum crossing on both sides of the peak")

// FWHM returns the full width at half maximum of the highest peak of y(x),
// with the crossings located by linear interpolation.
func FWHM(
	x, y []float64,
) (
	float64, error,
) {

	if len(x) != len(y) || len(x) < 3 {
		return 0, fmt.Errorf("fwhm needs matching x and y of at least 3 points, got %d and %d", len(x), len(y))
	}

	i := floats.MaxIdx(y)
	half := y[i] / 2

	left := -1
	for j := i; j > 0; j-- {
		if y[j-1] <= half {
			left = j - 1
			break
		}
	}
	right := -1
	for j := i; j < len(y)-1; j++ {
		if y[j+1] <= half {
			right = j + 1
			break
		}
	}
	if left < 0 || right < 0 {
		return 0, ErrNoPeak
	}

	cross := func(a, b int) float64 {
		if y[b] == y[a] {
			return x[a]
		}
		return x[a] + (half-y[a])*(x[b]-x[a])/(y[b]-y[a])
	}
	return cross(right-1, right) - cross(left, left+1), nil
}
