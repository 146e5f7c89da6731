package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/HamletTheHamster/nixsw/internal/config"
	"github.com/HamletTheHamster/nixsw/internal/correlate"
	"github.com/HamletTheHamster/nixsw/internal/crystal"
	"github.com/HamletTheHamster/nixsw/internal/dataio"
	"github.com/HamletTheHamster/nixsw/internal/diffraction"
	"github.com/HamletTheHamster/nixsw/internal/report"
)

type theory struct {
	sample, mono crystal.Result
	spectrum     *diffraction.Spectrum
	pipeline     *correlate.Pipeline
	// correlated is the sample reflectivity correlated with the
	// monochromator, on the theory grid.
	correlated []float64
}

func structureFactor(
	db *crystal.Database,
	c config.Crystal,
	p crystal.Params,
	lg *report.Log,
) (
	crystal.Result, error,
) {

	cr, err := db.Crystal(c.Name)
	if err != nil {
		return crystal.Result{}, err
	}
	method := crystal.Method(c.DW)
	if available := crystal.Methods(db, cr, c.Temperature); !slices.Contains(available, method) {
		lg.Printf("Warning: %s Debye-Waller is not tabulated for %s at %g K (available: %v)", method, c.Name, c.Temperature, available)
	}

	p.Crystal = cr
	p.Reflection = c.Reflection()
	p.Method = method
	p.Temperature = c.Temperature
	return crystal.StructureFactor(db, p)
}

func computeTheory(
	cfg config.Session,
	run string,
	lg *report.Log,
) (
	*theory, error,
) {

	db, err := crystal.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	g := cfg.Sample.Geometry()
	sample, err := structureFactor(db, cfg.Sample.Crystal, crystal.Params{Theta: g.Theta()}, lg)
	if err != nil {
		return nil, fmt.Errorf("sample %s%s: %w", cfg.Sample.Name, cfg.Sample.Reflection(), err)
	}
	mono, err := structureFactor(db, cfg.Mono.Crystal, crystal.Params{Mono: true, BraggEnergy: sample.BraggEnergy}, lg)
	if err != nil {
		return nil, fmt.Errorf("monochromator %s%s: %w", cfg.Mono.Name, cfg.Mono.Reflection(), err)
	}

	lg.Section("Theory")
	lg.Printf("Bragg energy = %.3f eV, d = %.5f Å, λ = %.5f Å", sample.BraggEnergy, sample.D, sample.Lambda)
	lg.Printf("Sample F0 = %.4f, FH = %.4f, FHbar = %.4f", sample.F0, sample.FH, sample.FHbar)
	lg.Printf("Monochromator F0 = %.4f, FH = %.4f, FHbar = %.4f", mono.F0, mono.FH, mono.FHbar)

	sp, err := diffraction.Compute(diffraction.Setup{
		Sample:    sample,
		Mono:      mono,
		Geometry:  g,
		MonoB:     cfg.Mono.B,
		HalfWidth: cfg.Theory.HalfWidth,
	})
	if err != nil {
		return nil, err
	}
	pl, err := correlate.NewPipeline(sp)
	if err != nil {
		return nil, err
	}
	cc, err := pl.OnGrid(sp.ReflSample)
	if err != nil {
		return nil, err
	}

	if w, err := correlate.FWHM(sp.Energy, sp.ReflSample); err == nil {
		lg.Printf("Sample reflectivity FWHM = %.1f meV", 1000*w)
	}
	if w, err := correlate.FWHM(sp.Energy, cc); err == nil {
		lg.Printf("Correlated reflectivity FWHM = %.1f meV", 1000*w)
	} else if !errors.Is(err, correlate.ErrNoPeak) {
		return nil, err
	}

	sf := filepath.Join(run, "Structure Factor.dat")
	err = dataio.WriteStructureFactor(
		sf,
		dataio.SFSummary{Name: cfg.Sample.Name, Result: sample, B: g.B(), P: g.PRefl()},
		dataio.SFSummary{Name: cfg.Mono.Name, Result: mono, B: cfg.Mono.B, P: 1},
	)
	if err != nil {
		return nil, err
	}
	err = dataio.WriteColumnsFile(
		filepath.Join(run, "Theoretical values.dat"),
		[]string{"photonEnergy", "Refl_sample", "Phase_Sample", "Refl_Monochromator", "Phase_Monochromator", "ReflSample_cc_ReflMono2"},
		sp.Energy, sp.ReflSample, sp.PhaseSample, sp.ReflMono, sp.PhaseMono, cc,
	)
	if err != nil {
		return nil, err
	}

	return &theory{sample: sample, mono: mono, spectrum: sp, pipeline: pl, correlated: cc}, nil
}
