package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/HamletTheHamster/nixsw/internal/config"
	"github.com/HamletTheHamster/nixsw/internal/dataio"
	"github.com/HamletTheHamster/nixsw/internal/fit"
	"github.com/HamletTheHamster/nixsw/internal/quicklook"
	"github.com/HamletTheHamster/nixsw/internal/report"
	"github.com/HamletTheHamster/nixsw/internal/tables"
)

const energyLabel = "E - E_Bragg (eV)"

func fitReflectivity(
	cfg config.Session,
	th *theory,
	exp *dataio.Experiment,
	run string,
	lg *report.Log,
) (
	*fit.ReflResult, error,
) {

	m, err := fit.NewReflModel(th.pipeline, th.spectrum)
	if err != nil {
		return nil, err
	}
	d := fit.ReflData{Energy: exp.Centred, Refl: exp.Refl, Error: exp.ReflErr}

	init := cfg.Reflectivity.Params()
	if cfg.Reflectivity.Guess {
		init = fit.GuessReflectivity(m, d)
	}

	trace, err := fit.CreateTrace(filepath.Join(run, "Fit_refl.log"))
	if err != nil {
		return nil, err
	}
	defer closeTrace(trace, lg)

	res, err := fit.FitReflectivity(m, d, init, trace)
	if err != nil {
		return nil, err
	}

	p, e := res.Params, res.StdErr
	lg.Section("Reflectivity fit")
	if res.SigmaFixed {
		lg.Printf("σ = 0 ± - (below the %.1f meV grid resolution)", 1000*m.Resolution())
	} else {
		lg.Printf("σ = %.3f meV ± %.3f", 1000*p.Sigma, 1000*e.Sigma)
	}
	lg.Printf("N = %.4g ± %.2g", p.N, e.N)
	lg.Printf("background = %.4g ± %.2g", p.Background, e.Background)
	lg.Printf("δhν = %.3f eV ± %.3f", p.DeltaE, e.DeltaE)
	lg.Printf("χ² (Pearson) = %.3f", res.ChiSq)
	if !res.RSquaredOK {
		lg.Printf("Warning: R² = %.3f is outside [0, 1]", res.RSquared)
	}

	energy, refl, reflErr := res.Normalised(d)
	err = dataio.WriteColumnsFile(
		filepath.Join(run, "Exp_refl_norm_centred.dat"),
		[]string{"Exp_photonEnergy_BraggCentered", "Exp_Refl_Normalised", "Exp_Refl_Estimated_Error"},
		energy, refl, reflErr,
	)
	if err != nil {
		return nil, err
	}
	err = dataio.WriteColumnsFile(
		filepath.Join(run, "Fit_result_refl.dat"),
		[]string{"Theory_photonEnergy", "Fit_result_Refl"},
		th.spectrum.Energy, res.Curve,
	)
	if err != nil {
		return nil, err
	}

	data := report.Curve{Label: "measured", X: energy, Y: refl, Err: reflErr}
	curve := report.Curve{Label: "fit", X: th.spectrum.Energy, Y: res.Curve}
	figures(cfg, run, "Reflectivity fit", "Reflectivity", "reflectivity", data, curve, lg)
	return res, nil
}

// closeTrace flushes a fit log; a failure is logged, not returned.
func closeTrace(trace *fit.TraceLog, lg *report.Log) {
	if err := trace.Close(); err != nil {
		lg.Printf("Warning: %v", err)
	}
}

// gamma looks the non-dipolar parameter up in the configured table, or
// returns the configured value.
func gamma(
	cfg config.Session,
	braggEnergy float64,
	lg *report.Log,
) (
	float64, error,
) {

	y := cfg.Yield
	if y.GammaTable == "" {
		return y.Gamma, nil
	}
	t, err := tables.Load(resolve(cfg.Data.Dir, y.GammaTable), ',')
	if err != nil {
		return 0, err
	}
	ekin := tables.KineticEnergy(braggEnergy, y.BindingEnergy)
	g, err := tables.Gamma(t, y.CoreLevel, ekin)
	if err != nil {
		return 0, err
	}
	lg.Printf("γ(%s) = %.4f at E_kin = %.1f eV", y.CoreLevel, g, ekin)
	return g, nil
}

// components is the label of the summed yield columns in file names.
func components(cfg config.Session) string {

	s := fmt.Sprint(cfg.Data.Components)
	if cfg.Data.Angular {
		s += fmt.Sprintf("_slice%02d", cfg.Data.Slice)
	}
	return s
}

func fitYield(
	cfg config.Session,
	th *theory,
	exp *dataio.Experiment,
	refl *fit.ReflResult,
	run string,
	lg *report.Log,
) (
	*fit.YieldResult, error,
) {

	g := cfg.Sample.Geometry()
	if exp.HasAngle {
		g.Emission = exp.Angle
	}
	m, err := fit.NewYieldModel(th.pipeline, th.spectrum, g, refl.Params)
	if err != nil {
		return nil, err
	}
	d := fit.YieldData{Energy: exp.Centred, Yield: exp.Yield, Error: exp.YieldErr}

	lg.Section("Yield fit")
	init := cfg.Yield.Params()
	if init.Gamma, err = gamma(cfg, th.spectrum.BraggEnergy, lg); err != nil {
		return nil, err
	}
	o := cfg.Yield.Options()

	trace, err := fit.CreateTrace(filepath.Join(run, "Fit_EY.log"))
	if err != nil {
		return nil, err
	}
	defer closeTrace(trace, lg)

	res, err := fit.FitYield(m, d, init, o, trace)
	if err != nil {
		return nil, err
	}

	p, e := res.Params, res.StdErr
	lg.Printf("Fc = %.3f ± %.3f", p.Fc, e.Fc)
	lg.Printf("Pc = %.3f ± %.3f", p.Pc, e.Pc)
	lg.Printf("N = %.4g ± %.2g", p.N, e.N)
	if o.Mode == fit.GammaMode {
		lg.Printf("γ = %.4f ± %.4f", p.Gamma, e.Gamma)
	} else {
		lg.Printf("Sr = %.4f ± %.4f", p.Sr, e.Sr)
	}
	lg.Printf("|Si| = %.4f, Ψ = %.4f, Q0 = %.4f, QH = %.4f", res.NDP.Si, res.NDP.Psi, res.NDP.Q0, res.NDP.QH)
	lg.Printf("reduced χ² = %.3f", res.ChiSq)
	if !res.RSquaredOK {
		lg.Printf("Warning: R² = %.3f is outside [0, 1]", res.RSquared)
	}

	label := components(cfg)
	energy, yield, yieldErr := res.Normalised(m, d)
	err = dataio.WriteColumnsFile(
		filepath.Join(run, "Exp_ey_norm_centred"+label+".dat"),
		[]string{"Exp_photonEnergy_BraggCentered", "Exp_EY_Normalised", "Exp_EY_casaXPS_Error"},
		energy, yield, yieldErr,
	)
	if err != nil {
		return nil, err
	}
	err = dataio.WriteColumnsFile(
		filepath.Join(run, "Fit_ey_comp"+label+".dat"),
		[]string{"Theory_photonEnergy", "Fit_Result_EY"},
		th.spectrum.Energy, res.Curve,
	)
	if err != nil {
		return nil, err
	}

	data := report.Curve{Label: exp.Component, X: energy, Y: yield, Err: yieldErr}
	curve := report.Curve{Label: "fit", X: th.spectrum.Energy, Y: res.Curve}
	name := "ey_comp" + strings.ReplaceAll(label, " ", "_")
	figures(cfg, run, "Yield fit "+exp.Component, "Normalised yield", name, data, curve, lg)
	return res, nil
}

// figures saves and optionally shows a fit. Failures are logged, not
// returned.
func figures(
	cfg config.Session,
	run, title, ylabel, name string,
	data, curve report.Curve,
	lg *report.Log,
) {

	if cfg.Output.Plots {
		p, err := report.FitPlot(title, energyLabel, ylabel, data, curve, false)
		if err == nil {
			err = report.Save(p, run, name)
		}
		if err != nil {
			lg.Printf("Warning: %s figure: %v", name, err)
		}
	}
	if cfg.Output.QuickLook {
		if err := quicklook.Show(title, energyLabel, ylabel, data, curve); err != nil {
			lg.Printf("Warning: %v", err)
		}
	}
}
