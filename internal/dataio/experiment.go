// Package dataio reads the measured reflectivity and yield files and writes
// the result tables of an analysis.
package dataio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/HamletTheHamster/nixsw/internal/nixerr"
	"github.com/HamletTheHamster/nixsw/internal/tables"
)

// EnergyTolerance is the largest accepted photon-energy mismatch (eV)
// between the reflectivity and yield files.
const EnergyTolerance = 0.1

// ImportOptions describes one reflectivity/yield measurement.
type ImportOptions struct {
	ReflPath  string
	YieldPath string
	// Components are the yield components to sum, counted from 0.
	Components []int
	// Angular treats the yield file as consecutive blocks, one per slice.
	Angular bool
	Slice   int
	// AnglesPath optionally maps slices to emission angles.
	AnglesPath        string
	IgnoreEnergyCheck bool
	BraggEnergy       float64
}

// Experiment is the measurement normalised to the mean beam intensity.
type Experiment struct {
	Energy []float64
	// Centred is Energy relative to the Bragg energy.
	Centred  []float64
	Refl     []float64
	ReflErr  []float64
	Yield    []float64
	YieldErr []float64
	// Component names the summed yield columns.
	Component string
	// Slices is the number of slices found in angular mode.
	Slices int
	// Angle is the emission angle of the slice, when an angles file was
	// given.
	Angle    float64
	HasAngle bool
}

// Load reads and normalises a measurement. Reflectivity and yield are
// divided by I0 and scaled by its mean; the reflectivity error is taken
// as √R and the yield errors of summed components add in quadrature.
func Load(
	o ImportOptions,
) (
	*Experiment, error,
) {

	if o.ReflPath == "" || o.YieldPath == "" {
		return nil, fmt.Errorf("both a reflectivity and a yield file are needed")
	}
	if len(o.Components) == 0 {
		o.Components = []int{0}
	}

	refl, err := readReflectivity(o.ReflPath)
	if err != nil {
		return nil, err
	}
	names, ey, err := readYield(o.YieldPath)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(o.Components))
	for i, c := range o.Components {
		col := 2*c + 1
		if c < 0 || col+1 >= len(ey) {
			return nil, fmt.Errorf("yield component %d does not exist in %s (%d columns)", c, o.YieldPath, len(ey))
		}
		if col < len(names) {
			labels[i] = strings.TrimSpace(names[col])
		}
	}

	n := len(refl[0])
	exp := &Experiment{Component: strings.Join(labels, ", ")}

	lo, hi := 0, len(ey[0])
	if o.Angular {
		if hi%n != 0 {
			return nil, fmt.Errorf(
				"%w: %d yield rows are not a whole number of %d-point slices", nixerr.ErrShapeMismatch, hi, n,
			)
		}
		exp.Slices = hi / n
		if o.Slice < 0 || o.Slice >= exp.Slices {
			return nil, fmt.Errorf("slice %d outside 0..%d", o.Slice, exp.Slices-1)
		}
		lo, hi = o.Slice*n, (o.Slice+1)*n
	}
	if hi-lo != n {
		return nil, fmt.Errorf(
			"%w: reflectivity has %d points, yield %d; angular mode may be intended", nixerr.ErrShapeMismatch, n, hi-lo,
		)
	}

	i0 := refl[2]
	mean := stat.Mean(i0, nil)
	exp.Energy = make([]float64, n)
	exp.Centred = make([]float64, n)
	exp.Refl = make([]float64, n)
	exp.ReflErr = make([]float64, n)
	exp.Yield = make([]float64, n)
	exp.YieldErr = make([]float64, n)
	for i := 0; i < n; i++ {
		e := refl[0][i]
		if !o.Angular && !o.IgnoreEnergyCheck && math.Abs(e-ey[0][lo+i]) > EnergyTolerance {
			return nil, fmt.Errorf(
				"%w: photon energies differ at point %d (%g eV in reflectivity, %g eV in yield)",
				nixerr.ErrShapeMismatch, i, e, ey[0][lo+i],
			)
		}
		if !(i0[i] > 0) {
			return nil, fmt.Errorf("beam intensity at point %d is %g", i, i0[i])
		}
		scale := mean / i0[i]

		var y, v float64
		for _, c := range o.Components {
			y += ey[2*c+1][lo+i]
			v += ey[2*c+2][lo+i] * ey[2*c+2][lo+i]
		}
		if math.IsNaN(y) || math.IsNaN(v) {
			return nil, fmt.Errorf("%s: blank yield cell at row %d", o.YieldPath, lo+i)
		}

		exp.Energy[i] = e
		exp.Centred[i] = e - o.BraggEnergy
		exp.Refl[i] = refl[1][i] * scale
		exp.ReflErr[i] = math.Sqrt(exp.Refl[i])
		exp.Yield[i] = y * scale
		exp.YieldErr[i] = math.Sqrt(v) * scale
	}

	if o.Angular && o.AnglesPath != "" {
		angles, err := LoadAngles(o.AnglesPath)
		if err != nil {
			return nil, err
		}
		if len(angles.Angle) != exp.Slices {
			return nil, fmt.Errorf(
				"%w: %d angles for %d slices", nixerr.ErrShapeMismatch, len(angles.Angle), exp.Slices,
			)
		}
		a, ok := angles.Angle[o.Slice]
		if !ok {
			return nil, fmt.Errorf("%s: no angle for slice %d", o.AnglesPath, o.Slice)
		}
		exp.Angle, exp.HasAngle = a, true
	}
	return exp, nil
}

// readReflectivity returns the energy, reflectivity and I0 columns.
func readReflectivity(
	path string,
) (
	[][]float64, error,
) {

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	defer f.Close()

	cols, _, err := readFields(path, f, 1)
	if err != nil {
		return nil, err
	}
	if len(cols) < 3 {
		return nil, fmt.Errorf("%s: want energy, reflectivity and I0 columns, found %d", path, len(cols))
	}
	if len(cols[0]) < 2 {
		return nil, fmt.Errorf("%s: only %d data rows", path, len(cols[0]))
	}
	return cols, nil
}

// readYield returns the column names of line 3 and the numeric block that
// follows, first column being the photon energy.
func readYield(
	path string,
) (
	[]string, [][]float64, error,
) {

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var header string
	for i := 0; i < 3; i++ {
		header, err = br.ReadString('\n')
		if err != nil {
			return nil, nil, fmt.Errorf("%s: missing header line %d: %v", path, i+1, err)
		}
	}
	names := strings.Split(strings.TrimRight(header, "\r\n"), "\t")

	cols, err := tables.ReadMatrix(path, br, '\t')
	if err != nil {
		return nil, nil, err
	}
	return names, cols, nil
}

// readFields reads whitespace-separated numeric columns after skip
// header lines and returns the skipped lines too.
func readFields(
	name string,
	r io.Reader,
	skip int,
) (
	[][]float64, []string, error,
) {

	var (
		cols    [][]float64
		skipped []string
	)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if line <= skip {
			skipped = append(skipped, sc.Text())
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if cols == nil {
			cols = make([][]float64, len(fields))
		}
		if len(fields) != len(cols) {
			return nil, nil, fmt.Errorf("%s:%d: %d columns, want %d", name, line, len(fields), len(cols))
		}
		for j, s := range fields {
			x, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s:%d: %q is not a number", name, line, s)
			}
			cols[j] = append(cols[j], x)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", nixerr.ErrIO, name, err)
	}
	if cols == nil {
		return nil, nil, fmt.Errorf("%s: no data", name)
	}
	return cols, skipped, nil
}
