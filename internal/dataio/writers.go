package dataio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/HamletTheHamster/nixsw/internal/crystal"
	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

// SFSummary is one crystal's section of the structure factor summary.
type SFSummary struct {
	Name   string
	Result crystal.Result
	B      float64
	P      float64
}

// WriteStructureFactor writes the "Structure Factor.dat" summary of the
// sample and the monochromator.
func WriteStructureFactor(
	path string,
	sample, mono SFSummary,
) error {

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	kv := func(k string, v interface{}) { fmt.Fprintf(w, "%s\t=\t%v\n", k, v) }

	s := sample.Result
	fmt.Fprintf(w, "--- %s Sample parameters ---\n", sample.Name)
	kv("F0", s.F0)
	kv("FH", s.FH)
	kv("FHbar", s.FHbar)
	fmt.Fprintf(w, "DW for element A\t=\t%v (for elemental and compounds) \n", s.DWA)
	fmt.Fprintf(w, "DW for element B\t=\t%v (for compounds only)\n", s.DWB)
	kv("d hkl", s.D)
	kv("Bragg energy", s.BraggEnergy)
	kv("b", sample.B)
	kv("P", sample.P)

	m := mono.Result
	fmt.Fprintf(w, "--- %s DCM  ---\n", mono.Name)
	kv("DW", m.DWA)
	kv("F0", m.F0)
	kv("FH", m.FH)
	kv("FHbar", m.FHbar)
	kv("d hkl", m.D)
	kv("b", mono.B)
	kv("P", mono.P)

	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	return nil
}

// WriteColumns dumps equally long columns as a tab-separated table with a
// header of names. Every line ends with a tab.
func WriteColumns(
	w io.Writer,
	names []string,
	cols ...[]float64,
) error {

	if len(names) != len(cols) {
		return fmt.Errorf("%w: %d names for %d columns", nixerr.ErrShapeMismatch, len(names), len(cols))
	}
	n := 0
	if len(cols) > 0 {
		n = len(cols[0])
	}
	for i, c := range cols {
		if len(c) != n {
			return fmt.Errorf(
				"%w: column %q has %d values, want %d", nixerr.ErrShapeMismatch, names[i], len(c), n,
			)
		}
	}

	bw := bufio.NewWriter(w)
	for _, name := range names {
		bw.WriteString(name)
		bw.WriteByte('\t')
	}
	bw.WriteByte('\n')
	for i := 0; i < n; i++ {
		for _, c := range cols {
			bw.WriteString(strconv.FormatFloat(c[i], 'g', -1, 64))
			bw.WriteByte('\t')
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	return nil
}

// WriteColumnsFile is WriteColumns into a new file at path.
func WriteColumnsFile(
	path string,
	names []string,
	cols ...[]float64,
) error {

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	defer f.Close()

	if err := WriteColumns(f, names, cols...); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ReplaceFile writes a file next to path with write and renames it over
// path once it is complete. path is left untouched when write or the close
// fails.
func ReplaceFile(
	path string,
	write func(io.Writer) error,
) error {

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	return nil
}
