package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HamletTheHamster/nixsw/internal/argand"
	"github.com/HamletTheHamster/nixsw/internal/config"
	"github.com/HamletTheHamster/nixsw/internal/dataio"
	"github.com/HamletTheHamster/nixsw/internal/fit"
	"github.com/HamletTheHamster/nixsw/internal/report"
)

func TestSessionFlagsOverrideFile(t *testing.T) {

	path := filepath.Join(t.TempDir(), "s.json")
	body := `{"sample": {"name": "Ag", "hkl": [1, 1, 1]},
"data": {"reflectivity": "r.dat", "yield": "y.dat"},
"output": {"note": "from file"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := session([]string{"-config", path, "-note", "from flag", "-slice", "2"})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if s.Sample.Name != "Ag" {
		t.Errorf("sample %q, want Ag from the file", s.Sample.Name)
	}
	if s.Output.Note != "from flag" || s.Data.Slice != 2 {
		t.Errorf("note %q, slice %d", s.Output.Note, s.Data.Slice)
	}
}

func TestSessionInvalid(t *testing.T) {
	if _, err := session([]string{"-width", "-1"}); err == nil {
		t.Fatal("session without data files and with negative width accepted")
	}
}

func TestResolve(t *testing.T) {

	if got := resolve("data", "r.dat"); got != filepath.Join("data", "r.dat") {
		t.Errorf("relative: %q", got)
	}
	if got := resolve("data", "/abs/r.dat"); got != "/abs/r.dat" {
		t.Errorf("absolute: %q", got)
	}
	if got := resolve("data", ""); got != "" {
		t.Errorf("empty: %q", got)
	}
}

func TestComponentsLabel(t *testing.T) {

	cfg := config.Default()
	cfg.Data.Components = []int{0, 2}
	if got := components(cfg); got != "[0 2]" {
		t.Errorf("components = %q", got)
	}
	cfg.Data.Angular = true
	cfg.Data.Slice = 3
	if got := components(cfg); got != "[0 2]_slice03" {
		t.Errorf("angular components = %q", got)
	}
}

func TestResultName(t *testing.T) {

	cfg := config.Default()
	cfg.Data.Dir = filepath.Join("beamtime", "Cu111_C1s", "sum")
	if got := resultName(cfg); got != "Cu111_C1s" {
		t.Errorf("sum folder: %q", got)
	}
	cfg.Data.Dir = filepath.Join("beamtime", "Cu111_O1s")
	if got := resultName(cfg); got != "Cu111_O1s" {
		t.Errorf("plain folder: %q", got)
	}
	cfg.Output.Name = "custom"
	if got := resultName(cfg); got != "custom" {
		t.Errorf("named: %q", got)
	}
}

func TestResultRecord(t *testing.T) {

	cfg := config.Default()
	cfg.Output.Name = "Cu"
	exp := &dataio.Experiment{Component: "C1s"}
	refl := &fit.ReflResult{Params: fit.ReflParams{Sigma: 0.2, N: 1, DeltaE: 0.05}, RSquared: 0.99}
	ey := &fit.YieldResult{
		Params: fit.YieldParams{Fc: 0.8, Pc: 0.95, N: 1, Sr: 1},
		StdErr: fit.YieldParams{Fc: 0.02, Pc: 0.01},
		NDP:    fit.NDP{Sr: 1, Si: 1},
		ChiSq:  1.2,
	}

	r := resultRecord(cfg, exp, refl, ey)
	want := map[string]string{
		"Name": "Cu", "Component": "C1s", "Slice nb": "0",
		"Fc": "0.8", "Pc": "0.95", "Fc_err": "0.02", "Pc_err": "0.01",
		"Gamma": dataio.Missing, "Psi": dataio.Missing, "Sr": "1", "Sr_err": dataio.Missing,
		"Pol.": "Sigma", "(hkl)": "111", "Sigma": "0.2", "delta hnu": "0.05",
	}
	for k, v := range want {
		if r[k] != v {
			t.Errorf("%s = %q, want %q", k, r[k], v)
		}
	}
	for _, k := range dataio.ResultColumns {
		if _, ok := r[k]; !ok && k != "Gamma_err" {
			t.Errorf("column %q not set", k)
		}
	}
}

func TestAddOrReplace(t *testing.T) {

	a := argand.NewArena()
	g := a.AddGroup(dataio.Record{"Name": "live"})
	row := dataio.Record{"Name": "Cu", "Component": "C1s", "Slice nb": "0", "Pc": "0.9", "Fc": "0.8", "Pc_err": "0.01", "Fc_err": "0.01"}
	if err := addOrReplace(a, g, row); err != nil {
		t.Fatal(err)
	}
	row2 := row.Copy()
	row2["Pc"] = "0.92"
	if err := addOrReplace(a, g, row2); err != nil {
		t.Fatal(err)
	}
	points, _ := a.Points(g)
	if len(points) != 1 || points[0].Record["Pc"] != "0.92" {
		t.Fatalf("points = %d, Pc = %q", len(points), points[0].Record["Pc"])
	}

	row3 := row.Copy()
	row3["Slice nb"] = "1"
	if err := addOrReplace(a, g, row3); err != nil {
		t.Fatal(err)
	}
	if points, _ := a.Points(g); len(points) != 2 {
		t.Errorf("points = %d, want 2", len(points))
	}
}

type fullDisk struct{}

func (fullDisk) Write([]byte) (int, error) { return 0, errors.New("no space left on device") }

func TestCloseTraceLogsFailure(t *testing.T) {

	var lg report.Log
	trace := fit.NewTrace(fullDisk{})
	trace.Printf("Sigma=%g", 0.1)
	closeTrace(trace, &lg)

	lines := lg.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "fit log") || !strings.Contains(lines[0], "no space") {
		t.Errorf("log = %q", lines)
	}

	lg = report.Log{}
	closeTrace(fit.NewTrace(&strings.Builder{}), &lg)
	if len(lg.Lines()) != 0 {
		t.Errorf("log after a clean close = %q", lg.Lines())
	}
}
