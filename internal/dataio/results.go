package dataio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

// TimeLayout stamps the results file headers.
const TimeLayout = "Mon Jan _2 15:04:05 2006"

const (
	createdPrefix = "file created on:"
	changedPrefix = "file changed:"
)

// ResultsFile is the per-folder table of fit results, one row per
// (Name, Component, Slice nb).
type ResultsFile struct {
	Path string
}

// ResultsFileFor names the results file of a data folder after its last
// path element.
func ResultsFileFor(dir string) ResultsFile {
	base := filepath.Base(filepath.Clean(dir))
	name := fmt.Sprintf("RESULTS_%s_%s_ver%s.csv", base, Program, Version)
	return ResultsFile{Path: filepath.Join(dir, name)}
}

// Rows reads the file; a missing file has no rows.
func (f ResultsFile) Rows() ([]Record, error) {
	_, rows, err := f.read()
	return rows, err
}

func (f ResultsFile) read() ([]string, []Record, error) {

	fh, err := os.Open(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	defer fh.Close()

	comments, _, rows, err := ReadRecords(filepath.Base(f.Path), fh)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range rows {
		r["Slice nb"] = sliceKey(r["Slice nb"])
	}
	return comments, rows, nil
}

// Upsert replaces the row with the same key as row, or appends it, keeps
// the rows sorted and refreshes the change time.
func (f ResultsFile) Upsert(
	row Record,
	now time.Time,
) error {

	comments, rows, err := f.read()
	if err != nil {
		return err
	}

	row = row.Copy()
	row["Slice nb"] = sliceKey(row["Slice nb"])
	replaced := false
	for i, r := range rows {
		if sameKey(r, row) {
			rows[i] = row
			replaced = true
			break
		}
	}
	if !replaced {
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return lessKey(rows[i], rows[j]) })

	stamp := now.Format(TimeLayout)
	created := createdPrefix + " " + stamp
	for _, c := range comments {
		if strings.HasPrefix(c, createdPrefix) {
			created = c
		}
	}
	header := []string{
		Program + " ver" + Version,
		created,
		changedPrefix + " " + stamp,
	}

	err = ReplaceFile(f.Path, func(w io.Writer) error {
		return WriteRecords(w, header, ResultColumns, rows)
	})
	if err != nil {
		return fmt.Errorf("results %s: %w", f.Path, err)
	}
	return nil
}

// sliceKey writes slice numbers as integers, so that "3.0" and "3" match.
func sliceKey(s string) string {

	x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strconv.Itoa(int(x))
}

func sameKey(a, b Record) bool {
	return a["Name"] == b["Name"] && a["Component"] == b["Component"] && a["Slice nb"] == b["Slice nb"]
}

func lessKey(a, b Record) bool {

	if a["Name"] != b["Name"] {
		return a["Name"] < b["Name"]
	}
	if a["Component"] != b["Component"] {
		return a["Component"] < b["Component"]
	}
	x, errX := strconv.Atoi(a["Slice nb"])
	y, errY := strconv.Atoi(b["Slice nb"])
	if errX == nil && errY == nil {
		return x < y
	}
	return a["Slice nb"] < b["Slice nb"]
}
