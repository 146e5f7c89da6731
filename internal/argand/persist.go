package argand

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/HamletTheHamster/nixsw/internal/dataio"
	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

const (
	checkedState   = "checked"
	uncheckedState = "unchecked"
)

// Fields is the column order of an Argand file.
func Fields() []string {
	return append([]string{"Type", "checkState"}, dataio.ResultColumns...)
}

func state(checked bool) string {
	if checked {
		return checkedState
	}
	return uncheckedState
}

// Save writes every group followed by its points. An existing file is kept
// as path~.
func Save(path string, a *Arena) error {

	if !strings.HasSuffix(path, ".csv") {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+"~"); err != nil {
			return fmt.Errorf("%w: backup of %s: %v", nixerr.ErrIO, path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}

	var rows []dataio.Record
	for _, g := range a.Groups() {
		r := g.Record.Copy()
		r["Type"] = "Group"
		r["checkState"] = state(g.Checked)
		rows = append(rows, r)
		for _, id := range g.points {
			p := a.points[id]
			r := p.Record.Copy()
			r["Type"] = "Point"
			r["checkState"] = state(p.Checked)
			rows = append(rows, r)
		}
	}

	header := []string{dataio.Program + " ver" + dataio.Version}
	err := dataio.ReplaceFile(path, func(w io.Writer) error {
		return dataio.WriteRecords(w, header, Fields(), rows)
	})
	if err != nil {
		return fmt.Errorf("argand %s: %w", path, err)
	}
	return nil
}

// Load rebuilds an arena from a file written by Save. Points belong to the
// group row above them.
func Load(path string) (*Arena, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	defer f.Close()

	_, _, rows, err := dataio.ReadRecords(filepath.Base(path), f)
	if err != nil {
		return nil, err
	}

	a := NewArena()
	group := uuid.Nil
	for i, r := range rows {
		kind, checked := r["Type"], r["checkState"] != uncheckedState
		delete(r, "Type")
		delete(r, "checkState")
		switch kind {
		case "Group":
			group = a.AddGroup(r)
			a.groups[group].Checked = checked
		case "Point":
			if group == uuid.Nil {
				return nil, fmt.Errorf("%s: point on row %d precedes every group", path, i+1)
			}
			if _, err := a.addPoint(group, r, checked); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%s: row %d has unknown type %q", path, i+1, kind)
		}
	}
	return a, nil
}
