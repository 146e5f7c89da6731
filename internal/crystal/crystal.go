// Package crystal describes crystal lattices and computes d-spacings,
// Debye-Waller exponents and complex structure factors for a reflection.
package crystal

import (
	"fmt"
	"math"
)

type System string

const (
	Cubic        System = "Cubic"
	Hexagonal    System = "Hexagonal"
	Tetragonal   System = "Tetragonal"
	Trigonal     System = "Trigonal"
	Orthorhombic System = "Orthorhombic"
	Monoclinic   System = "Monoclinic"
	Triclinic    System = "Triclinic"
	Unknown      System = "Unknown"
)

// Crystal is an immutable lattice description. Lengths are in Ångström and
// angles in radians. ElementB is empty for elemental crystals.
type Crystal struct {
	Name     string
	CellType string
	A, B, C  float64
	Alpha    float64
	Beta     float64
	Gamma    float64
	Checked  bool
	ElementA string
	ElementB string
}

func (c Crystal) Compound() bool { return c.ElementB != "" }

// Reflection is a set of Miller indices.
type Reflection struct {
	H, K, L int
}

func (r Reflection) String() string { return fmt.Sprintf("(%d%d%d)", r.H, r.K, r.L) }

func (r Reflection) Zero() bool { return r.H == 0 && r.K == 0 && r.L == 0 }

const classifyTol = 1e-5

// Classify returns the crystal system of c. Lattices are tested in the order
// Cubic, Hexagonal, Tetragonal, Trigonal, Orthorhombic, Monoclinic,
// Triclinic, and the first match wins.
func Classify(c Crystal) System {

	eq := func(x, y float64) bool { return math.Abs(x-y) < classifyTol }

	a, b, cc := c.A, c.B, c.C
	al, be, ga := deg(c.Alpha), deg(c.Beta), deg(c.Gamma)

	switch {
	case eq(a, b) && eq(b, cc) && eq(al, 90) && eq(be, 90) && eq(ga, 90):
		return Cubic
	case eq(a, b) && !eq(b, cc) && eq(al, 90) && eq(be, 90) && eq(ga, 120):
		return Hexagonal
	case eq(a, b) && !eq(b, cc) && eq(al, 90) && eq(be, 90) && eq(ga, 90):
		return Tetragonal
	case eq(a, b) && eq(b, cc) && eq(al, be) && eq(be, ga) && !eq(be, 90):
		return Trigonal
	case !eq(a, b) && !eq(b, cc) && !eq(a, cc) && eq(al, 90) && eq(be, 90) && eq(ga, 90):
		return Orthorhombic
	case !eq(a, b) && !eq(b, cc) && !eq(a, cc) && eq(al, ga) && !eq(be, 90) && eq(ga, 90):
		return Monoclinic
	case !eq(a, b) && !eq(b, cc) && !eq(a, cc) && !eq(al, ga) && !eq(al, be) && !eq(be, ga):
		return Triclinic
	}
	return Unknown
}

// Abbreviation names the structure the way the Debye-Waller tables do:
// FCC, BCC, HCP or DIAMOND.
func Abbreviation(c Crystal) string {

	sys := Classify(c)
	switch {
	case c.CellType == "faceCentered" && sys == Cubic:
		return "FCC"
	case c.CellType == "bodyCentered" && sys == Cubic:
		return "BCC"
	case c.CellType == "HCP" && sys == Hexagonal:
		return "HCP"
	case c.CellType == "diamond" && sys == Cubic:
		return "DIAMOND"
	}
	return string(Unknown)
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }

func rad(deg float64) float64 { return deg * math.Pi / 180 }
