package dataio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/HamletTheHamster/nixsw/internal/nixerr"
	"github.com/HamletTheHamster/nixsw/internal/tables"
)

const (
	Program = "Torricelli"
	Version = "3.0"
	// Missing marks a value that could not be determined.
	Missing = "-"
)

// ResultColumns is the field schema shared by the results file and the
// Argand file, in file order.
var ResultColumns = []string{
	"Name", "Symbol", "Color", "Component", "Slice nb", "Phi",
	"Pc", "Fc", "Pc_err", "Fc_err",
	"Core level", "Gamma", "Gamma_err", "Q_0", "Q_H", "Delta", "P el",
	"Sr", "Sr_err", "|Si|", "Psi", "Zeta", "b sample", "b DCM", "Xi", "Pol.",
	"P Refl", "Substrate", "(hkl)", "DW", "Temp.", "delta hnu", "Sigma",
	"R2 Refl", "X2 Yield", "Monte Carlo analysis", "Yield file", "Note",
	"Path",
}

// Record is one row of a results or Argand file, keyed by column name.
type Record map[string]string

// Float parses a numeric field. Blank and Missing fields are not numbers.
func (r Record) Float(key string) (float64, bool) {

	s := strings.TrimSpace(r[key])
	if s == "" || s == Missing {
		return 0, false
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

// SetFloat stores x, or Missing when x is not finite.
func (r Record) SetFloat(key string, x float64) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		r[key] = Missing
		return
	}
	r[key] = strconv.FormatFloat(x, 'g', -1, 64)
}

// Copy returns an independent copy of r.
func (r Record) Copy() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// numeric reports whether s is written unquoted.
func numeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil && strings.TrimSpace(s) != ""
}

func quote(s string) string {
	if numeric(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// WriteRecords writes '#' comment lines, a header and the rows, ';'
// delimited, quoting every field that is not a number.
func WriteRecords(
	w io.Writer,
	comments []string,
	fields []string,
	rows []Record,
) error {

	bw := bufio.NewWriter(w)
	for _, c := range comments {
		fmt.Fprintf(bw, "# %s\n", c)
	}
	line := make([]string, len(fields))
	for i, f := range fields {
		line[i] = quote(f)
	}
	fmt.Fprintln(bw, strings.Join(line, ";"))
	for _, r := range rows {
		for i, f := range fields {
			line[i] = quote(r[f])
		}
		fmt.Fprintln(bw, strings.Join(line, ";"))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	return nil
}

// ReadRecords is the inverse of WriteRecords. Comments are returned
// without their leading "# ".
func ReadRecords(
	name string,
	r io.Reader,
) (
	comments, fields []string,
	rows []Record,
	err error,
) {

	var body bytes.Buffer
	lines := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		text := sc.Text()
		if strings.HasPrefix(text, "#") {
			comments = append(comments, strings.TrimSpace(strings.TrimPrefix(text, "#")))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		body.WriteString(text)
		body.WriteByte('\n')
		lines++
	}
	if err := sc.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %s: %v", nixerr.ErrIO, name, err)
	}

	switch lines {
	case 0:
		return nil, nil, nil, fmt.Errorf("%s: no header", name)
	case 1:
		cr := csv.NewReader(&body)
		cr.Comma = ';'
		fields, err = cr.Read()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s: header: %v", name, err)
		}
		return comments, fields, nil, nil
	}

	t, err := tables.Read(name, &body, ';')
	if err != nil {
		return nil, nil, nil, err
	}
	fields = t.Names()
	rows = make([]Record, t.Rows())
	for i := range rows {
		rows[i] = make(Record, len(fields))
	}
	for _, f := range fields {
		cells, err := t.Strings(f)
		if err != nil {
			return nil, nil, nil, err
		}
		for i, c := range cells {
			rows[i][f] = c
		}
	}
	return comments, fields, rows, nil
}
