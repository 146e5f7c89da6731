package dataio

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/HamletTheHamster/nixsw/internal/crystal"
	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

const reflDat = `E R I0
100.0  0.2  1
100.5  0.4  2
101.0  0.6  3
101.5  0.8  2
`

// eyFile has two components, (1 ± 0.3) and (2 ± 0.4).
func eyFile(energies ...float64) string {

	var b strings.Builder
	b.WriteString("region\nsweeps 10\nEnergy\tC1s\tC1s_err\tO1s\tO1s_err\t\n")
	for _, e := range energies {
		b.WriteString(strings.Join([]string{ftoa(e), "1", "0.3", "2", "0.4", ""}, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

func ftoa(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {

	dir := t.TempDir()
	o := ImportOptions{
		ReflPath:    writeFile(t, dir, "refl.dat", reflDat),
		YieldPath:   writeFile(t, dir, "ey.txt", eyFile(100, 100.5, 101, 101.5)),
		Components:  []int{0, 1},
		BraggEnergy: 100.75,
	}
	exp, err := Load(o)
	if err != nil {
		t.Fatal(err)
	}

	scale := []float64{2, 1, 2.0 / 3, 1}
	wantRefl := []float64{0.4, 0.4, 0.4, 0.8}
	if !floats.EqualApprox(exp.Refl, wantRefl, 1e-12) {
		t.Errorf("reflectivity: got %v, want %v", exp.Refl, wantRefl)
	}
	for i := range scale {
		if math.Abs(exp.ReflErr[i]-math.Sqrt(wantRefl[i])) > 1e-12 {
			t.Errorf("reflectivity error %d: got %g", i, exp.ReflErr[i])
		}
		if math.Abs(exp.Yield[i]-3*scale[i]) > 1e-12 {
			t.Errorf("yield %d: got %g, want %g", i, exp.Yield[i], 3*scale[i])
		}
		if math.Abs(exp.YieldErr[i]-0.5*scale[i]) > 1e-12 {
			t.Errorf("yield error %d: got %g, want %g", i, exp.YieldErr[i], 0.5*scale[i])
		}
	}
	if !floats.EqualApprox(exp.Centred, []float64{-0.75, -0.25, 0.25, 0.75}, 1e-12) {
		t.Errorf("centred energies: %v", exp.Centred)
	}
	if exp.Component != "C1s, O1s" {
		t.Errorf("component label: %q", exp.Component)
	}
}

func TestLoadEnergyMismatch(t *testing.T) {

	dir := t.TempDir()
	o := ImportOptions{
		ReflPath:  writeFile(t, dir, "refl.dat", reflDat),
		YieldPath: writeFile(t, dir, "ey.txt", eyFile(100, 100.5, 101.2, 101.5)),
	}
	if _, err := Load(o); !errors.Is(err, nixerr.ErrShapeMismatch) {
		t.Fatalf("expected a shape mismatch, got %v", err)
	}
	o.IgnoreEnergyCheck = true
	if _, err := Load(o); err != nil {
		t.Fatalf("ignoring the energy check: %v", err)
	}
}

func TestLoadRowCount(t *testing.T) {

	dir := t.TempDir()
	o := ImportOptions{
		ReflPath:  writeFile(t, dir, "refl.dat", reflDat),
		YieldPath: writeFile(t, dir, "ey.txt", eyFile(100, 100.5, 101)),
	}
	if _, err := Load(o); !errors.Is(err, nixerr.ErrShapeMismatch) {
		t.Fatalf("expected a shape mismatch, got %v", err)
	}
}

func TestLoadMissingComponent(t *testing.T) {

	dir := t.TempDir()
	o := ImportOptions{
		ReflPath:   writeFile(t, dir, "refl.dat", reflDat),
		YieldPath:  writeFile(t, dir, "ey.txt", eyFile(100, 100.5, 101, 101.5)),
		Components: []int{2},
	}
	if _, err := Load(o); err == nil {
		t.Fatal("expected an error for a missing component")
	}
}

const anglesDat = `angles
ARPES map
lens mode WAM
slice angle
-----
0 12.5
1 17.5
`

func TestLoadAngular(t *testing.T) {

	dir := t.TempDir()
	o := ImportOptions{
		ReflPath:   writeFile(t, dir, "refl.dat", reflDat),
		YieldPath:  writeFile(t, dir, "ey.txt", eyFile(100, 100.5, 101, 101.5, 100, 100.5, 101, 101.5)),
		Angular:    true,
		Slice:      1,
		AnglesPath: writeFile(t, dir, "angles.txt", anglesDat),
	}
	exp, err := Load(o)
	if err != nil {
		t.Fatal(err)
	}
	if exp.Slices != 2 {
		t.Errorf("slices: got %d, want 2", exp.Slices)
	}
	if !exp.HasAngle || exp.Angle != 17.5 {
		t.Errorf("angle: got %g (%v), want 17.5", exp.Angle, exp.HasAngle)
	}
	if len(exp.Yield) != 4 {
		t.Errorf("got %d yield points, want 4", len(exp.Yield))
	}

	o.Slice = 2
	if _, err := Load(o); err == nil {
		t.Error("expected an error for a slice beyond the file")
	}
}

func TestLoadAngles(t *testing.T) {

	a, err := LoadAngles(writeFile(t, t.TempDir(), "angles.txt", anglesDat))
	if err != nil {
		t.Fatal(err)
	}
	if a.Description != "ARPES map lens mode WAM" {
		t.Errorf("description: %q", a.Description)
	}
	if len(a.Angle) != 2 || a.Angle[0] != 12.5 {
		t.Errorf("angles: %v", a.Angle)
	}
}

func TestRecordsQuoting(t *testing.T) {

	var buf bytes.Buffer
	rows := []Record{{"Name": "Cu", "Pc": "0.25", "Fc": Missing, "Note": ""}}
	if err := WriteRecords(&buf, []string{"hello"}, []string{"Name", "Pc", "Fc", "Note"}, rows); err != nil {
		t.Fatal(err)
	}
	want := "# hello\n\"Name\";\"Pc\";\"Fc\";\"Note\"\n\"Cu\";0.25;\"-\";\"\"\n"
	if buf.String() != want {
		t.Errorf("got\n%s\nwant\n%s", buf.String(), want)
	}

	comments, fields, got, err := ReadRecords("mem", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 1 || comments[0] != "hello" {
		t.Errorf("comments: %q", comments)
	}
	if strings.Join(fields, ",") != "Name,Pc,Fc,Note" {
		t.Errorf("fields: %q", fields)
	}
	if len(got) != 1 || got[0]["Fc"] != Missing || got[0]["Pc"] != "0.25" || got[0]["Name"] != "Cu" {
		t.Errorf("rows: %v", got)
	}
}

func TestReadRecordsHeaderOnly(t *testing.T) {

	_, fields, rows, err := ReadRecords("mem", strings.NewReader("# c\n\"A\";\"B\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 || len(rows) != 0 {
		t.Errorf("fields %q, %d rows", fields, len(rows))
	}
}

func TestResultsUpsert(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "Cu111")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	rf := ResultsFileFor(dir)
	if filepath.Base(rf.Path) != "RESULTS_Cu111_Torricelli_ver"+Version+".csv" {
		t.Errorf("file name: %s", rf.Path)
	}

	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := []Record{
		{"Name": "b", "Component": "C1s", "Slice nb": "0", "Pc": "0.1"},
		{"Name": "a", "Component": "C1s", "Slice nb": "10.0", "Pc": "0.2"},
		{"Name": "a", "Component": "C1s", "Slice nb": "2", "Pc": "0.3"},
	}
	for i, r := range rows {
		if err := rf.Upsert(r, t0.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	// Same key as the second row, written as an integer slice number.
	if err := rf.Upsert(Record{"Name": "a", "Component": "C1s", "Slice nb": "10", "Pc": "0.9"}, t0.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := rf.Rows()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}
	order := []struct{ name, slice, pc string }{{"a", "2", "0.3"}, {"a", "10", "0.9"}, {"b", "0", "0.1"}}
	for i, o := range order {
		if got[i]["Name"] != o.name || got[i]["Slice nb"] != o.slice || got[i]["Pc"] != o.pc {
			t.Errorf("row %d: %v", i, got[i])
		}
	}

	raw, err := os.ReadFile(rf.Path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	if !strings.Contains(text, "# file created on: "+t0.Format(TimeLayout)) {
		t.Errorf("creation time lost:\n%s", text)
	}
	if !strings.Contains(text, "# file changed: "+t0.Add(time.Hour).Format(TimeLayout)) {
		t.Errorf("change time not refreshed:\n%s", text)
	}
}

func TestWriteColumns(t *testing.T) {

	var buf bytes.Buffer
	if err := WriteColumns(&buf, []string{"E", "R"}, []float64{1, 2}, []float64{0.5, 0.25}); err != nil {
		t.Fatal(err)
	}
	want := "E\tR\t\n1\t0.5\t\n2\t0.25\t\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	err := WriteColumns(&buf, []string{"E", "R"}, []float64{1, 2}, []float64{0.5})
	if !errors.Is(err, nixerr.ErrShapeMismatch) {
		t.Errorf("uneven columns: got %v", err)
	}
	err = WriteColumns(&buf, []string{"E"}, []float64{1}, []float64{0.5})
	if !errors.Is(err, nixerr.ErrShapeMismatch) {
		t.Errorf("name count: got %v", err)
	}
}

func TestWriteStructureFactor(t *testing.T) {

	path := filepath.Join(t.TempDir(), "Structure Factor.dat")
	sample := SFSummary{
		Name:   "Cu(111)",
		Result: crystal.Result{D: 2.087, BraggEnergy: 2970.6, FH: complex(20, 1), DWA: 0.55},
		B:      -1,
		P:      1,
	}
	mono := SFSummary{Name: "Si(111)", Result: crystal.Result{D: 3.135}, B: -1, P: 1}
	if err := WriteStructureFactor(path, sample, mono); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{
		"--- Cu(111) Sample parameters ---",
		"FH\t=\t(20+1i)",
		"DW for element A\t=\t0.55 (for elemental and compounds) ",
		"Bragg energy\t=\t2970.6",
		"--- Si(111) DCM  ---",
		"d hkl\t=\t3.135",
	} {
		if !strings.Contains(string(raw), line+"\n") {
			t.Errorf("missing line %q in\n%s", line, raw)
		}
	}
}

func TestReplaceFileKeepsOldOnFailure(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "RESULTS.csv")
	if err := os.WriteFile(path, []byte("old rows\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	failed := errors.New("disk full")
	err := ReplaceFile(path, func(w io.Writer) error {
		io.WriteString(w, "half a ro")
		return failed
	})
	if !errors.Is(err, failed) {
		t.Fatalf("err = %v, want the write error", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "old rows\n" {
		t.Errorf("after failed write: %q, %v", raw, err)
	}

	if err := ReplaceFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "new rows\n")
		return err
	}); err != nil {
		t.Fatal(err)
	}
	raw, _ = os.ReadFile(path)
	if string(raw) != "new rows\n" {
		t.Errorf("after write: %q", raw)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("%d files left in %s, want 1", len(entries), dir)
	}
}
