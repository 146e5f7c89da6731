package tables

import "fmt"

// GammaEnergyColumn is the kinetic-energy column of the non-dipolar
// parameter table. Every other column is a core level such as "C 1s".
const GammaEnergyColumn = "E_kin (eV)"

// Gamma interpolates the non-dipolar parameter of a core level at the given
// photoelectron kinetic energy.
func Gamma(
	t *Table,
	level string,
	ekin float64,
) (
	float64, error,
) {

	if !t.Has(level) {
		return 0, fmt.Errorf("table %s: no gamma values for core level %q", t.Name, level)
	}
	g, err := t.Interpolate(GammaEnergyColumn, ekin, level)
	if err != nil {
		return 0, fmt.Errorf("gamma for %s at %.1f eV: %w", level, ekin, err)
	}
	return g, nil
}

// KineticEnergy is the photoelectron energy at the Bragg condition.
func KineticEnergy(braggEnergy, bindingEnergy float64) float64 {
	return braggEnergy - bindingEnergy
}
