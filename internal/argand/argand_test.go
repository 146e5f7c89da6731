package argand

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/HamletTheHamster/nixsw/internal/dataio"
)

func point(name string, pc, fc, pcErr, fcErr float64) dataio.Record {
	r := dataio.Record{"Name": name}
	r.SetFloat("Pc", pc)
	r.SetFloat("Fc", fc)
	r.SetFloat("Pc_err", pcErr)
	r.SetFloat("Fc_err", fcErr)
	return r
}

func groupValues(t *testing.T, g *Group) (pc, fc, pcErr, fcErr float64) {
	t.Helper()
	var ok [4]bool
	pc, ok[0] = g.Record.Float("Pc")
	fc, ok[1] = g.Record.Float("Fc")
	pcErr, ok[2] = g.Record.Float("Pc_err")
	fcErr, ok[3] = g.Record.Float("Fc_err")
	if ok != [4]bool{true, true, true, true} {
		t.Fatalf("group %q is not numeric: %v", g.Record["Name"], g.Record)
	}
	return pc, fc, pcErr, fcErr
}

func TestCartesianRoundTrip(t *testing.T) {

	for _, v := range []Vector{{0, 0.5}, {0.25, 1}, {0.6, 0.3}, {0.999, 0.8}} {
		got := FromCartesian(ToCartesian(v))
		if !scalar.EqualWithinAbs(got.Pc, v.Pc, 1e-12) || !scalar.EqualWithinAbs(got.Fc, v.Fc, 1e-12) {
			t.Errorf("%v: round trip gave %v", v, got)
		}
	}
	if got := FromCartesian(ToCartesian(Vector{Pc: -0.25, Fc: 1})); !scalar.EqualWithinAbs(got.Pc, 0.75, 1e-12) {
		t.Errorf("negative position not wrapped: %v", got)
	}
}

func TestAggregateIdenticalPoints(t *testing.T) {

	a := NewArena()
	g := a.AddGroup(dataio.Record{"Name": "Cu"})
	for _, name := range []string{"p1", "p2"} {
		if _, err := a.AddPoint(g, point(name, 0.25, 0.8, 0.01, 0.02)); err != nil {
			t.Fatal(err)
		}
	}

	grp, _ := a.Group(g)
	pc, fc, pcErr, fcErr := groupValues(t, grp)
	if !scalar.EqualWithinAbs(pc, 0.25, 1e-12) || !scalar.EqualWithinAbs(fc, 0.8, 1e-12) {
		t.Errorf("average: Pc %g, Fc %g", pc, fc)
	}
	if !scalar.EqualWithinAbsOrRel(pcErr, 0.01/math.Sqrt2, 1e-9, 1e-9) {
		t.Errorf("Pc error: got %g, want %g", pcErr, 0.01/math.Sqrt2)
	}
	if !scalar.EqualWithinAbsOrRel(fcErr, 0.02/math.Sqrt2, 1e-9, 1e-9) {
		t.Errorf("Fc error: got %g, want %g", fcErr, 0.02/math.Sqrt2)
	}
}

func TestAggregateSpread(t *testing.T) {

	ms := []Member{
		{Vector{Pc: 0.15, Fc: 0.8}, 0.001, 0.001},
		{Vector{Pc: 0.35, Fc: 0.8}, 0.001, 0.001},
	}
	avg, ok := WeightedAverage(ms)
	if !ok {
		t.Fatal("no average")
	}
	if !scalar.EqualWithinAbs(avg.Pc, 0.25, 1e-9) {
		t.Errorf("Pc: got %g, want 0.25", avg.Pc)
	}
	// The members lie far apart compared to their errors, so the spread
	// dominates.
	if avg.PcErr < 0.05 {
		t.Errorf("Pc error %g ignores the spread of the members", avg.PcErr)
	}
}

func TestAggregateMembership(t *testing.T) {

	a := NewArena()
	g := a.AddGroup(nil)
	grp, _ := a.Group(g)
	if grp.Record["Pc"] != dataio.Missing || grp.Record["Name"] != "NewGroup" || grp.Record["Symbol"] != "+" {
		t.Errorf("empty group: %v", grp.Record)
	}

	p1, _ := a.AddPoint(g, point("p1", 0.4, 0.7, 0.01, 0.02))
	if grp.Record["Pc"] != "0.4" || grp.Record["Fc_err"] != "0.02" {
		t.Errorf("single member not copied: %v", grp.Record)
	}

	// A second member without errors gets the default error.
	p2, _ := a.AddPoint(g, dataio.Record{"Pc": "0.5", "Fc": "0.6"})
	if p, _ := a.Point(p2); p.Record["Pc_err"] != "0.0001" || p.Record["Symbol"] != "o" {
		t.Errorf("point defaults: %v", p.Record)
	}
	if _, err := a.Point(p1); err != nil {
		t.Fatal(err)
	}
	groupValues(t, grp)

	// A zero error makes the average undefined.
	if err := a.Update(p2, dataio.Record{"Fc_err": "0"}); err != nil {
		t.Fatal(err)
	}
	if grp.Record["Pc"] != dataio.Missing {
		t.Errorf("zero error: group shows %q", grp.Record["Pc"])
	}

	// Unchecking it leaves one member again.
	if err := a.SetChecked(p2, false); err != nil {
		t.Fatal(err)
	}
	if grp.Record["Pc"] != "0.4" {
		t.Errorf("after unchecking: %v", grp.Record)
	}
}

func TestAddPointUnchecked(t *testing.T) {

	a := NewArena()
	g := a.AddGroup(nil)
	for _, rec := range []dataio.Record{
		{"Pc": dataio.Missing, "Fc": "0.5"},
		{"Pc": "0.5", "Fc": "1e-9"},
	} {
		id, err := a.AddPoint(g, rec)
		if err != nil {
			t.Fatal(err)
		}
		if p, _ := a.Point(id); p.Checked {
			t.Errorf("%v: point should start unchecked", rec)
		}
	}
}

func TestMoveAndRemove(t *testing.T) {

	a := NewArena()
	g1 := a.AddGroup(dataio.Record{"Name": "one"})
	g2 := a.AddGroup(dataio.Record{"Name": "two"})
	p, _ := a.AddPoint(g1, point("p", 0.2, 0.5, 0.01, 0.01))

	if err := a.Move(p, g2); err != nil {
		t.Fatal(err)
	}
	one, _ := a.Group(g1)
	two, _ := a.Group(g2)
	if one.Record["Pc"] != dataio.Missing || two.Record["Pc"] != "0.2" {
		t.Errorf("after move: one %q, two %q", one.Record["Pc"], two.Record["Pc"])
	}

	if err := a.RemoveGroup(g2); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Point(p); !errors.Is(err, ErrNotFound) {
		t.Errorf("point survived its group: %v", err)
	}
	if len(a.Groups()) != 1 {
		t.Errorf("got %d groups, want 1", len(a.Groups()))
	}
	if g, ok := a.GroupByName("one"); !ok || g.ID != g1 {
		t.Error("group lookup by name failed")
	}
}

func TestRegroupBySlice(t *testing.T) {

	a := NewArena()
	g := a.AddGroup(dataio.Record{"Name": "map"})
	for i, s := range []string{"0", "1", "1.0", "0"} {
		r := point("p", 0.1*float64(i+1), 0.5, 0.01, 0.01)
		r["Slice nb"] = s
		if _, err := a.AddPoint(g, r); err != nil {
			t.Fatal(err)
		}
	}

	created, err := a.RegroupBySlice([]uuid.UUID{g}, "C1s")
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 2 || len(a.Groups()) != 2 {
		t.Fatalf("created %d groups, arena has %d", len(created), len(a.Groups()))
	}
	first, _ := a.Group(created[0])
	second, _ := a.Group(created[1])
	if first.Record["Name"] != "00_C1s" || second.Record["Name"] != "01_C1s" {
		t.Errorf("names: %q, %q", first.Record["Name"], second.Record["Name"])
	}
	if first.Record["Color"] != "(0, 0, 255)" || second.Record["Color"] != "(127, 0, 128)" {
		t.Errorf("colors: %q, %q", first.Record["Color"], second.Record["Color"])
	}
	for _, id := range created {
		ps, _ := a.Points(id)
		if len(ps) != 2 {
			t.Errorf("group %s has %d points, want 2", id, len(ps))
		}
	}
}

func TestSplit(t *testing.T) {

	sum := Vector{Pc: 0.3, Fc: 0.5}
	va, vb, err := Split(sum, 1, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(va.Fc, 1, 1e-12) || !scalar.EqualWithinAbs(vb.Fc, 1, 1e-12) {
		t.Errorf("split fractions: %g, %g", va.Fc, vb.Fc)
	}
	dp := math.Acos(0.5) / (2 * math.Pi)
	if !scalar.EqualWithinAbs(va.Pc, 0.3-dp, 1e-12) || !scalar.EqualWithinAbs(vb.Pc, 0.3+dp, 1e-12) {
		t.Errorf("split positions: %g, %g", va.Pc, vb.Pc)
	}

	z := 0.5*ToCartesian(va) + 0.5*ToCartesian(vb)
	if got := FromCartesian(z); !scalar.EqualWithinAbs(got.Fc, sum.Fc, 1e-12) || !scalar.EqualWithinAbs(got.Pc, sum.Pc, 1e-12) {
		t.Errorf("halves recombine to %v, want %v", got, sum)
	}

	// Weighted split: nA·A + (1−nA)·B must still give the sum.
	vb, err = SplitAt(sum, Vector{Pc: 0.1, Fc: 0.9}, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	z = 0.3*ToCartesian(Vector{Pc: 0.1, Fc: 0.9}) + 0.7*ToCartesian(vb)
	if got := FromCartesian(z); !scalar.EqualWithinAbs(got.Fc, sum.Fc, 1e-12) || !scalar.EqualWithinAbs(got.Pc, sum.Pc, 1e-12) {
		t.Errorf("weighted split recombines to %v", got)
	}

	if _, err := SplitAt(sum, va, 1); !errors.Is(err, ErrSplitFraction) {
		t.Errorf("nA = 1: got %v", err)
	}
}

func TestSplitFractionTooSmall(t *testing.T) {

	va, _, err := Split(Vector{Pc: 0.5, Fc: 0.9}, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(va.Fc, 1.0, 1e-12) {
		t.Errorf("split fraction: got %g, want 1.0", va.Fc)
	}
}

func TestSymmetric(t *testing.T) {

	sum := Vector{Pc: 0, Fc: 0.5}
	got := Symmetric(sum, Vector{Pc: 0.125, Fc: 1})
	z := ToCartesian(got)
	if !scalar.EqualWithinAbs(real(z), 0.5, 1e-12) {
		t.Errorf("symmetric point %v does not lie on the perpendicular through the sum", z)
	}
	if !scalar.EqualWithinAbs(imag(z), math.Sqrt2/2, 1e-12) {
		t.Errorf("imaginary part changed: %g", imag(z))
	}
}

func TestSaveLoad(t *testing.T) {

	a := NewArena()
	g := a.AddGroup(dataio.Record{"Name": "Cu/111_C1s", "Color": "(10, 20, 30)"})
	a.AddPoint(g, point("p1", 0.25, 0.8, 0.01, 0.02))
	p2, _ := a.AddPoint(g, point("p2", 0.3, 0.7, 0.01, 0.02))
	a.SetChecked(p2, false)
	empty := a.AddGroup(dataio.Record{"Name": "empty", "Note": `say "hi"`})
	a.SetChecked(empty, false)

	path := filepath.Join(t.TempDir(), "argand.csv")
	if err := Save(path, a); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, a); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + "~"); err != nil {
		t.Errorf("no backup: %v", err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	gs := b.Groups()
	if len(gs) != 2 {
		t.Fatalf("got %d groups, want 2", len(gs))
	}
	if gs[0].Record["Name"] != "Cu/111_C1s" || gs[0].Record["Color"] != "(10, 20, 30)" || !gs[0].Checked {
		t.Errorf("group 0: %v", gs[0].Record)
	}
	if gs[1].Checked || gs[1].Record["Note"] != `say "hi"` {
		t.Errorf("group 1: checked %v, %v", gs[1].Checked, gs[1].Record)
	}
	ps, _ := b.Points(gs[0].ID)
	if len(ps) != 2 || !ps[0].Checked || ps[1].Checked {
		t.Fatalf("points: %d", len(ps))
	}
	if ps[0].Record["Pc"] != "0.25" || ps[1].Record["Name"] != "p2" {
		t.Errorf("points: %v, %v", ps[0].Record, ps[1].Record)
	}
	if gs[0].Record["Pc"] != "0.25" {
		t.Errorf("group aggregate after load: %q", gs[0].Record["Pc"])
	}
}

func TestLiveGroupName(t *testing.T) {
	if got := LiveGroupName("/data/Cu/111", "C1s"); got != "Cu/111_C1s" {
		t.Errorf("got %q", got)
	}
}
