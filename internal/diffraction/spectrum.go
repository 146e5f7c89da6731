package diffraction

import (
	"fmt"
	"math"

	"github.com/HamletTheHamster/nixsw/internal/crystal"
)

// Step is the photon-energy spacing of the theory grid in eV.
const Step = 0.02

// Grid returns the energies, relative to the Bragg energy, from -halfWidth
// to +halfWidth in Step increments.
func Grid(
	halfWidth float64,
) (
	[]float64, error,
) {

	if !(halfWidth > 0) {
		return nil, fmt.Errorf("theory half-width must be positive, got %g", halfWidth)
	}
	n := int(math.Round(2*halfWidth/Step)) + 1
	e := make([]float64, n)
	for i := range e {
		e[i] = -halfWidth + float64(i)*Step
	}
	return e, nil
}

// Setup collects everything the theory curves depend on. The monochromator
// works at the sample's Bragg energy with σ polarisation.
type Setup struct {
	Sample    crystal.Result
	Mono      crystal.Result
	Geometry  Geometry
	MonoB     float64
	HalfWidth float64
}

// Spectrum holds the ideal curves on the relative energy grid.
type Spectrum struct {
	BraggEnergy float64
	Energy      []float64
	ReflSample  []float64
	PhaseSample []float64
	ReflMono    []float64
	PhaseMono   []float64
}

// Reflectors derives the sample and monochromator crystals of a setup.
func (s Setup) Reflectors() (
	sample, mono Reflector,
	err error,
) {

	lambda := s.Sample.Lambda
	if !(lambda > 0) {
		return Reflector{}, Reflector{}, fmt.Errorf("sample wavelength must be positive, got %g", lambda)
	}
	if lambda > 2*s.Mono.D {
		return Reflector{}, Reflector{}, fmt.Errorf(
			"monochromator d = %.4f Å cannot reflect λ = %.4f Å", s.Mono.D, lambda,
		)
	}

	sample = Reflector{
		F0: s.Sample.F0, FH: s.Sample.FH, FHbar: s.Sample.FHbar,
		B:           s.Geometry.B(),
		P:           s.Geometry.PRefl(),
		Theta:       rad(s.Geometry.Theta()),
		GammaFactor: crystal.ElectronRadius * 1e10 * lambda * lambda / (math.Pi * s.Sample.Volume),
	}
	mono = Reflector{
		F0: s.Mono.F0, FH: s.Mono.FH, FHbar: s.Mono.FHbar,
		B:           s.MonoB,
		P:           1,
		Theta:       math.Asin(lambda / (2 * s.Mono.D)),
		GammaFactor: crystal.ElectronRadius * 1e10 * lambda * lambda / (math.Pi * s.Mono.Volume),
	}
	if sample.P == 0 {
		return Reflector{}, Reflector{}, fmt.Errorf("polarisation factor vanishes at %g° deviation", s.Geometry.Deviation)
	}
	return sample, mono, nil
}

// Compute evaluates the sample and monochromator reflectivity and phase on
// the theory grid.
func Compute(
	s Setup,
) (
	*Spectrum, error,
) {

	grid, err := Grid(s.HalfWidth)
	if err != nil {
		return nil, err
	}
	sample, mono, err := s.Reflectors()
	if err != nil {
		return nil, err
	}

	eB := s.Sample.BraggEnergy
	n := len(grid)
	sp := &Spectrum{
		BraggEnergy: eB,
		Energy:      grid,
		ReflSample:  make([]float64, n),
		PhaseSample: make([]float64, n),
		ReflMono:    make([]float64, n),
		PhaseMono:   make([]float64, n),
	}

	for i, dE := range grid {
		p, m := sample.Roots(sample.Eta(dE, eB))
		sp.ReflSample[i], sp.PhaseSample[i] = SampleBranch(p, m, s.Geometry.Polarization)

		p, m = mono.Roots(mono.Eta(dE, eB))
		sp.ReflMono[i], sp.PhaseMono[i] = MonoBranch(p, m)

		if math.IsNaN(sp.ReflSample[i]) || math.IsNaN(sp.ReflMono[i]) {
			return nil, fmt.Errorf("reflectivity undefined at %+.2f eV", dE)
		}
	}
	return sp, nil
}
