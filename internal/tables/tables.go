// Package tables reads the crystallographic reference tables and answers
// interpolated lookups on them.
package tables

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/interp"

	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

// Table is a named reference table with header-addressed columns.
type Table struct {
	Name string
	df   dataframe.DataFrame
}

// Load reads a delimited table from disk. delim is ',' for the .csv tables
// and '\t' for the .nff scattering-factor files.
func Load(
	path string,
	delim rune,
) (
	*Table, error,
) {

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	defer f.Close()

	return Read(filepath.Base(path), f, delim)
}

func Read(
	name string,
	r io.Reader,
	delim rune,
) (
	*Table, error,
) {

	df := dataframe.ReadCSV(
		r,
		dataframe.WithDelimiter(delim),
		dataframe.WithComments('#'),
		dataframe.WithLazyQuotes(true),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("table %s: %w", name, df.Err)
	}

	return &Table{Name: name, df: df}, nil
}

func (t *Table) Rows() int { return t.df.Nrow() }

// Names returns the column names in file order.
func (t *Table) Names() []string { return t.df.Names() }

func (t *Table) Has(col string) bool {
	for _, n := range t.df.Names() {
		if n == col {
			return true
		}
	}
	return false
}

// Strings returns the raw cells of a column.
func (t *Table) Strings(
	col string,
) (
	[]string, error,
) {

	s := t.df.Col(col)
	if s.Err != nil {
		return nil, fmt.Errorf("table %s: column %q: %w", t.Name, col, s.Err)
	}
	return s.Records(), nil
}

// Floats returns a numeric column; any unparsable cell is an error.
func (t *Table) Floats(
	col string,
) (
	[]float64, error,
) {

	cells, err := t.Strings(col)
	if err != nil {
		return nil, err
	}
	v := make([]float64, len(cells))
	for i, c := range cells {
		x, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil || math.IsNaN(x) {
			return nil, fmt.Errorf("table %s: column %q row %d is not a number: %q", t.Name, col, i, c)
		}
		v[i] = x
	}
	return v, nil
}

// ReadMatrix reads a headerless numeric block column by column. Blank
// cells, as left by trailing delimiters, read as NaN so that callers only
// reject the columns they use.
func ReadMatrix(
	name string,
	r io.Reader,
	delim rune,
) (
	[][]float64, error,
) {

	df := dataframe.ReadCSV(
		r,
		dataframe.WithDelimiter(delim),
		dataframe.WithLazyQuotes(true),
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%s: %w", name, df.Err)
	}

	cols := make([][]float64, df.Ncol())
	for j := range cols {
		cells := df.Col(df.Names()[j]).Records()
		cols[j] = make([]float64, len(cells))
		for i, c := range cells {
			c = strings.TrimSpace(c)
			if c == "" || c == "NaN" {
				cols[j][i] = math.NaN()
				continue
			}
			x, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d column %d is not a number: %q", name, i+1, j, c)
			}
			cols[j][i] = x
		}
	}
	return cols, nil
}

// Row returns the index of the first row whose key column equals key.
func (t *Table) Row(
	keyCol, key string,
) (
	int, error,
) {

	keys, err := t.Strings(keyCol)
	if err != nil {
		return -1, err
	}
	for i, k := range keys {
		if strings.TrimSpace(k) == key {
			return i, nil
		}
	}
	return -1, fmt.Errorf("table %s: no row with %s = %q", t.Name, keyCol, key)
}

// Value returns a single numeric cell.
func (t *Table) Value(
	row int,
	col string,
) (
	float64, error,
) {

	v, err := t.Floats(col)
	if err != nil {
		return 0, err
	}
	if row < 0 || row >= len(v) {
		return 0, fmt.Errorf("table %s: row %d out of range", t.Name, row)
	}
	return v[row], nil
}

// Interpolate linearly interpolates yCol at xCol = x. Values outside the
// tabulated x range return a *nixerr.DomainError.
func (t *Table) Interpolate(
	xCol string,
	x float64,
	yCol string,
) (
	float64, error,
) {

	xs, err := t.Floats(xCol)
	if err != nil {
		return 0, err
	}
	ys, err := t.Floats(yCol)
	if err != nil {
		return 0, err
	}
	l, err := NewLinear(t.Name, xCol, xs, ys)
	if err != nil {
		return 0, err
	}
	return l.At(x)
}

// Linear is a piecewise-linear interpolator that refuses to extrapolate.
type Linear struct {
	name, column string
	min, max     float64
	pl           interp.PiecewiseLinear
}

// NewLinear sorts the (x, y) pairs by x and prepares the interpolator.
// Repeated x values are rejected.
func NewLinear(
	name, column string,
	xs, ys []float64,
) (
	*Linear, error,
) {

	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%s: %w: %d x values, %d y values", name, nixerr.ErrShapeMismatch, len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("%s: need at least two points to interpolate %s", name, column)
	}

	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	sx := make([]float64, len(xs))
	sy := make([]float64, len(ys))
	for i, j := range idx {
		sx[i], sy[i] = xs[j], ys[j]
		if i > 0 && !(sx[i] > sx[i-1]) {
			return nil, fmt.Errorf("%s: %s is not strictly increasing at %g", name, column, sx[i])
		}
	}

	l := &Linear{name: name, column: column, min: sx[0], max: sx[len(sx)-1]}
	if err := l.pl.Fit(sx, sy); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Linear) Domain() (float64, float64) { return l.min, l.max }

func (l *Linear) At(
	x float64,
) (
	float64, error,
) {

	if math.IsNaN(x) || x < l.min || x > l.max {
		return 0, &nixerr.DomainError{Table: l.name, Column: l.column, X: x, Min: l.min, Max: l.max}
	}
	return l.pl.Predict(x), nil
}

// AtAll evaluates the interpolator on every x; the first out-of-range value
// aborts the whole evaluation.
func (l *Linear) AtAll(
	xs []float64,
) (
	[]float64, error,
) {

	out := make([]float64, len(xs))
	for i, x := range xs {
		y, err := l.At(x)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}
