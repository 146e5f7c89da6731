package crystal

// Site is one basis position in fractional coordinates. Species is "A" or
// "B", naming the first or second element of the crystal.
type Site struct {
	X, Y, Z float64
	Species string
}

// GaoCoeffs are the polynomial coefficients of B(T) in Å².
type GaoCoeffs struct {
	LatticeType string
	A           [5]float64
}

// SearsCoeffs are the per-element constants of the Sears and Shelley model.
// Tm and M also feed the Warren formula.
type SearsCoeffs struct {
	LatticeType string
	M           float64 // atomic mass, g/mol
	Vm          float64
	Tm          float64
	Alpha       float64
	FMin2       float64
	FMin1       float64
	F2          float64
}

// Lookup is the reference data the structure-factor engine reads.
type Lookup interface {
	// Z is the atomic number of an element symbol.
	Z(element string) (int, error)
	// F0 is the Thomson scattering factor at s = 1/(2d) in Å⁻¹.
	F0(element string, s float64) (float64, error)
	// F1F2 are the anomalous scattering factors at the photon energy in eV.
	F1F2(element string, energy float64) (f1, f2 float64, err error)
	Basis(cellType string) ([]Site, error)
	Gao(element string, highT bool) (GaoCoeffs, bool)
	Sears(element string) (SearsCoeffs, bool)
	// MSD is the tabulated mean-square displacement <u²> of a species in a
	// compound, in units of 1e-2 Å².
	MSD(element string, temperature float64) (float64, error)
}
