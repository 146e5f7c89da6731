package correlate

import (
	"fmt"

	"github.com/HamletTheHamster/nixsw/internal/diffraction"
	"github.com/HamletTheHamster/nixsw/internal/nixerr"
	"github.com/HamletTheHamster/nixsw/internal/tables"
)

// Pipeline carries the theory grid and the normalised monochromator kernel
// shared by the reflectivity and yield models.
type Pipeline struct {
	Energy []float64
	Kernel []float64
	axis   []float64
}

func NewPipeline(
	sp *diffraction.Spectrum,
) (
	*Pipeline, error,
) {

	n := len(sp.Energy)
	if n < 2 {
		return nil, fmt.Errorf("theory grid has %d points", n)
	}
	if len(sp.ReflSample) != n || len(sp.ReflMono) != n {
		return nil, fmt.Errorf(
			"%w: grid %d, sample %d, monochromator %d points",
			nixerr.ErrShapeMismatch, n, len(sp.ReflSample), len(sp.ReflMono),
		)
	}

	k, err := MonoKernel(sp.ReflMono)
	if err != nil {
		return nil, err
	}
	step := sp.Energy[1] - sp.Energy[0]
	return &Pipeline{Energy: sp.Energy, Kernel: k, axis: FullAxis(n, step)}, nil
}

// MonoCorrelated correlates a curve on the theory grid with the
// monochromator kernel and returns an interpolator on the full-correlation
// energy axis.
func (p *Pipeline) MonoCorrelated(
	curve []float64,
) (
	*tables.Linear, error,
) {

	if len(curve) != len(p.Energy) {
		return nil, fmt.Errorf("%w: curve has %d points, grid %d", nixerr.ErrShapeMismatch, len(curve), len(p.Energy))
	}
	return tables.NewLinear("monochromator correlation", "photon energy", p.axis, Full(curve, p.Kernel))
}

// OnGrid is MonoCorrelated resampled on the theory grid.
func (p *Pipeline) OnGrid(
	curve []float64,
) (
	[]float64, error,
) {

	l, err := p.MonoCorrelated(curve)
	if err != nil {
		return nil, err
	}
	return l.AtAll(p.Energy)
}

// Broaden correlates a curve on the theory grid with a centred Gaussian of
// width sigma, keeping the grid.
func (p *Pipeline) Broaden(curve []float64, sigma float64) []float64 {
	return Same(curve, Gaussian(sigma, p.Energy))
}
