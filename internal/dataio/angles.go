package dataio

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

// Angles maps slice numbers to emission angles (degrees).
type Angles struct {
	Description string
	Angle       map[int]float64
}

// LoadAngles reads an angles file: five header lines, the second and third
// describing the measurement, followed by "slice angle" pairs.
func LoadAngles(
	path string,
) (
	*Angles, error,
) {

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	defer f.Close()

	cols, header, err := readFields(path, f, 5)
	if err != nil {
		return nil, err
	}
	if len(cols) != 2 {
		return nil, fmt.Errorf("%s: want slice and angle columns, found %d", path, len(cols))
	}

	a := &Angles{Angle: make(map[int]float64, len(cols[0]))}
	if len(header) >= 3 {
		a.Description = strings.TrimSpace(header[1] + " " + header[2])
	}
	for i, s := range cols[0] {
		if s != math.Trunc(s) {
			return nil, fmt.Errorf("%s: slice number %g is not an integer", path, s)
		}
		a.Angle[int(s)] = cols[1][i]
	}
	return a, nil
}
