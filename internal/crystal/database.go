package crystal

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HamletTheHamster/nixsw/internal/tables"
)

// Database reads the reference tables of a folder laid out as
//
//	Lattices/CrystallographicData_Elemental.csv
//	Lattices/CrystallographicData_Compound.csv
//	Lattices/AtomCoordinates_<cell_type>.csv
//	DW/DW_Gao_Elemental_highT.csv, DW/DW_Gao_Elemental_lowT.csv
//	DW/DW_Sears.csv, DW/DW_Zywietz_<element>.csv
//	f0.csv
//	f1 and f2/<element>.nff
//
// Lattice and Debye-Waller tables are read by Open; the others on first use.
// A Database is not safe for concurrent use.
type Database struct {
	Dir string

	crystals map[string]Crystal
	gaoHT    map[string]GaoCoeffs
	gaoLT    map[string]GaoCoeffs
	sears    map[string]SearsCoeffs

	f0    *tables.Table
	nff   map[string]*tables.Table
	basis map[string][]Site
	msd   map[string]*tables.Table
}

func Open(
	dir string,
) (
	*Database, error,
) {

	db := &Database{
		Dir:      dir,
		crystals: map[string]Crystal{},
		gaoHT:    map[string]GaoCoeffs{},
		gaoLT:    map[string]GaoCoeffs{},
		sears:    map[string]SearsCoeffs{},
		nff:      map[string]*tables.Table{},
		basis:    map[string][]Site{},
		msd:      map[string]*tables.Table{},
	}

	if err := db.loadLattices("CrystallographicData_Elemental.csv", false); err != nil {
		return nil, err
	}
	if err := db.loadLattices("CrystallographicData_Compound.csv", true); err != nil {
		return nil, err
	}

	var err error
	if db.gaoHT, err = loadGao(filepath.Join(dir, "DW", "DW_Gao_Elemental_highT.csv")); err != nil {
		return nil, err
	}
	if db.gaoLT, err = loadGao(filepath.Join(dir, "DW", "DW_Gao_Elemental_lowT.csv")); err != nil {
		return nil, err
	}
	if db.sears, err = loadSears(filepath.Join(dir, "DW", "DW_Sears.csv")); err != nil {
		return nil, err
	}

	return db, nil
}

// Crystal returns the named elemental or compound crystal.
func (db *Database) Crystal(
	name string,
) (
	Crystal, error,
) {

	c, ok := db.crystals[name]
	if !ok {
		return Crystal{}, fmt.Errorf("no crystal named %q in %s", name, db.Dir)
	}
	return c, nil
}

// Names lists the crystals in the database.
func (db *Database) Names() []string {
	out := make([]string, 0, len(db.crystals))
	for n := range db.crystals {
		out = append(out, n)
	}
	return out
}

func (db *Database) Z(
	element string,
) (
	int, error,
) {

	if z, ok := atomicNumber[element]; ok {
		return z, nil
	}
	return 0, fmt.Errorf("unknown element %q", element)
}

func (db *Database) F0(
	element string,
	s float64,
) (
	float64, error,
) {

	if db.f0 == nil {
		t, err := tables.Load(filepath.Join(db.Dir, "f0.csv"), ',')
		if err != nil {
			return 0, err
		}
		db.f0 = t
	}
	return db.f0.Interpolate("1/2dhkl", s, element)
}

func (db *Database) F1F2(
	element string,
	energy float64,
) (
	float64, float64, error,
) {

	t, ok := db.nff[element]
	if !ok {
		var err error
		path := filepath.Join(db.Dir, "f1 and f2", strings.ToLower(element)+".nff")
		if t, err = tables.Load(path, '\t'); err != nil {
			return 0, 0, err
		}
		db.nff[element] = t
	}

	f1, err := t.Interpolate("E(eV)", energy, "f1")
	if err != nil {
		return 0, 0, err
	}
	f2, err := t.Interpolate("E(eV)", energy, "f2")
	if err != nil {
		return 0, 0, err
	}
	return f1, f2, nil
}

func (db *Database) Basis(
	cellType string,
) (
	[]Site, error,
) {

	if b, ok := db.basis[cellType]; ok {
		return b, nil
	}

	t, err := tables.Load(filepath.Join(db.Dir, "Lattices", "AtomCoordinates_"+cellType+".csv"), ',')
	if err != nil {
		return nil, err
	}
	b, err := ReadBasis(t)
	if err != nil {
		return nil, err
	}
	db.basis[cellType] = b
	return b, nil
}

// ReadBasis converts an atom-coordinate table. Coordinates may be written
// as fractions such as "1/4".
func ReadBasis(
	t *tables.Table,
) (
	[]Site, error,
) {

	cols := [3][]string{}
	for i, name := range []string{"x (a)", "y (b)", "z (c)"} {
		v, err := t.Strings(name)
		if err != nil {
			return nil, err
		}
		cols[i] = v
	}
	species, err := t.Strings("Element")
	if err != nil {
		return nil, err
	}

	sites := make([]Site, len(species))
	for i := range species {
		var xyz [3]float64
		for j := range xyz {
			if xyz[j], err = ParseFraction(cols[j][i]); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", t.Name, i, err)
			}
		}
		sites[i] = Site{X: xyz[0], Y: xyz[1], Z: xyz[2], Species: strings.TrimSpace(species[i])}
	}
	return sites, nil
}

// ParseFraction parses "0.25", "1/4" or "-3/4".
func ParseFraction(
	s string,
) (
	float64, error,
) {

	s = strings.TrimSpace(s)
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return strconv.ParseFloat(s, 64)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("zero denominator in %q", s)
	}
	return n / d, nil
}

func (db *Database) Gao(
	element string,
	highT bool,
) (
	GaoCoeffs, bool,
) {

	if highT {
		g, ok := db.gaoHT[element]
		return g, ok
	}
	g, ok := db.gaoLT[element]
	return g, ok
}

func (db *Database) Sears(
	element string,
) (
	SearsCoeffs, bool,
) {

	s, ok := db.sears[element]
	return s, ok
}

func (db *Database) MSD(
	element string,
	temperature float64,
) (
	float64, error,
) {

	t, ok := db.msd[element]
	if !ok {
		var err error
		if t, err = tables.Load(filepath.Join(db.Dir, "DW", "DW_Zywietz_"+element+".csv"), ','); err != nil {
			return 0, err
		}
		db.msd[element] = t
	}
	return t.Interpolate("T", temperature, "<u^2_"+element+">")
}

func (db *Database) loadLattices(
	file string,
	compound bool,
) error {

	path := filepath.Join(db.Dir, "Lattices", file)
	if _, err := os.Stat(path); os.IsNotExist(err) && compound {
		return nil
	}
	t, err := tables.Load(path, ',')
	if err != nil {
		return err
	}

	names, err := t.Strings("Name")
	if err != nil {
		return err
	}
	cells, err := t.Strings("cell_type")
	if err != nil {
		return err
	}
	checked, err := t.Strings("checked_values")
	if err != nil {
		return err
	}

	num := map[string][]float64{}
	cols := []string{"a", "b", "c", "alpha", "beta", "gamma"}
	if compound {
		cols = append(cols, "Z_A", "Z_B")
	}
	for _, col := range cols {
		if num[col], err = t.Floats(col); err != nil {
			return err
		}
	}

	for i, name := range names {
		c := Crystal{
			Name:     name,
			CellType: cells[i],
			A:        num["a"][i] / 100,
			B:        num["b"][i] / 100,
			C:        num["c"][i] / 100,
			Alpha:    rad(num["alpha"][i]),
			Beta:     rad(num["beta"][i]),
			Gamma:    rad(num["gamma"][i]),
			Checked:  strings.TrimSpace(checked[i]) == "yes",
			ElementA: name,
		}
		if compound {
			var okA, okB bool
			c.ElementA, okA = Symbol(int(math.Round(num["Z_A"][i])))
			c.ElementB, okB = Symbol(int(math.Round(num["Z_B"][i])))
			if !okA || !okB {
				return fmt.Errorf("%s: %s has unknown atomic numbers", file, name)
			}
		}
		db.crystals[name] = c
	}
	return nil
}

func loadGao(
	path string,
) (
	map[string]GaoCoeffs, error,
) {

	t, err := tables.Load(path, ',')
	if err != nil {
		return nil, err
	}
	symbols, err := t.Strings("symbol")
	if err != nil {
		return nil, err
	}
	lattice, err := t.Strings("lattice_type")
	if err != nil {
		return nil, err
	}

	var a [5][]float64
	for i := range a {
		if a[i], err = t.Floats(fmt.Sprintf("a%d", i)); err != nil {
			return nil, err
		}
	}

	out := map[string]GaoCoeffs{}
	for r, s := range symbols {
		g := GaoCoeffs{LatticeType: lattice[r]}
		for i := range a {
			g.A[i] = a[i][r]
		}
		out[s] = g
	}
	return out, nil
}

func loadSears(
	path string,
) (
	map[string]SearsCoeffs, error,
) {

	t, err := tables.Load(path, ',')
	if err != nil {
		return nil, err
	}
	symbols, err := t.Strings("symbol")
	if err != nil {
		return nil, err
	}
	lattice, err := t.Strings("lattice_type")
	if err != nil {
		return nil, err
	}

	col := map[string][]float64{}
	for _, name := range []string{"M", "vm", "Tm", "alpha", "f-2", "f-1", "f2"} {
		if col[name], err = t.Floats(name); err != nil {
			return nil, err
		}
	}

	out := map[string]SearsCoeffs{}
	for r, s := range symbols {
		out[s] = SearsCoeffs{
			LatticeType: lattice[r],
			M:           col["M"][r],
			Vm:          col["vm"][r],
			Tm:          col["Tm"][r],
			Alpha:       col["alpha"][r],
			FMin2:       col["f-2"][r],
			FMin1:       col["f-1"][r],
			F2:          col["f2"][r],
		}
	}
	return out, nil
}
