// Package config holds the settings of one analysis session.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/HamletTheHamster/nixsw/internal/crystal"
	"github.com/HamletTheHamster/nixsw/internal/diffraction"
	"github.com/HamletTheHamster/nixsw/internal/fit"
	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

// Crystal selects a crystal of the reference database and its reflection.
type Crystal struct {
	Name        string  `json:"name"`
	HKL         [3]int  `json:"hkl"`
	DW          string  `json:"dw_method"`
	Temperature float64 `json:"temperature"`
}

func (c Crystal) Reflection() crystal.Reflection {
	return crystal.Reflection{H: c.HKL[0], K: c.HKL[1], L: c.HKL[2]}
}

// Sample is the crystal under study and its geometry. Angles in degrees.
type Sample struct {
	Crystal
	Deviation    float64 `json:"deviation"`
	Miscut       float64 `json:"miscut"`
	Polarization string  `json:"polarization"`
	Emission     float64 `json:"emission"`
}

func (s Sample) Geometry() diffraction.Geometry {
	return diffraction.Geometry{
		Deviation:    s.Deviation,
		Miscut:       s.Miscut,
		Emission:     s.Emission,
		Polarization: diffraction.Polarization(s.Polarization),
	}
}

type Mono struct {
	Crystal
	B float64 `json:"b"`
}

type Theory struct {
	// HalfWidth is the half-width (eV) of the theory energy window.
	HalfWidth float64 `json:"half_width"`
}

// Reflectivity holds the starting values of the reflectivity fit. With
// Guess set they are derived from the data.
type Reflectivity struct {
	Guess      bool    `json:"guess"`
	Sigma      float64 `json:"sigma"`
	N          float64 `json:"norm"`
	Background float64 `json:"background"`
	DeltaE     float64 `json:"delta_e"`
}

func (r Reflectivity) Params() fit.ReflParams {
	return fit.ReflParams{Sigma: r.Sigma, N: r.N, Background: r.Background, DeltaE: r.DeltaE}
}

// Yield holds the starting values and free parameters of the yield fit.
type Yield struct {
	Fc    float64 `json:"fc"`
	Pc    float64 `json:"pc"`
	N     float64 `json:"norm"`
	Sr    float64 `json:"sr"`
	Gamma float64 `json:"gamma"`
	// Delta is the phase shift Δ in radians; it is never fitted.
	Delta float64 `json:"delta"`

	FitFc  bool `json:"fit_fc"`
	FitPc  bool `json:"fit_pc"`
	FitN   bool `json:"fit_norm"`
	FitNDP bool `json:"fit_ndp"`
	// Mode is "Sr" or "gamma".
	Mode         string `json:"mode"`
	IgnoreErrors bool   `json:"ignore_errors"`

	// GammaTable optionally looks γ up for CoreLevel at the kinetic energy
	// E_Bragg − BindingEnergy, replacing Gamma.
	GammaTable    string  `json:"gamma_table"`
	CoreLevel     string  `json:"core_level"`
	BindingEnergy float64 `json:"binding_energy"`
}

func (y Yield) NDPMode() fit.NDPMode {
	if y.Mode == fit.GammaMode.String() {
		return fit.GammaMode
	}
	return fit.SrMode
}

func (y Yield) Params() fit.YieldParams {
	return fit.YieldParams{Fc: y.Fc, Pc: y.Pc, N: y.N, Sr: y.Sr, Gamma: y.Gamma, Delta: y.Delta}
}

func (y Yield) Options() fit.YieldOptions {
	return fit.YieldOptions{
		FitFc:        y.FitFc,
		FitPc:        y.FitPc,
		FitN:         y.FitN,
		Mode:         y.NDPMode(),
		FitNDP:       y.FitNDP,
		IgnoreErrors: y.IgnoreErrors,
	}
}

// Data locates the measurement. Paths are relative to Dir unless absolute.
type Data struct {
	Dir               string `json:"dir"`
	Reflectivity      string `json:"reflectivity"`
	Yield             string `json:"yield"`
	Components        []int  `json:"components"`
	Angular           bool   `json:"angular"`
	Slice             int    `json:"slice"`
	Angles            string `json:"angles"`
	IgnoreEnergyCheck bool   `json:"ignore_energy_check"`
}

type Output struct {
	// Results is the folder of the run folders, relative to the data folder.
	Results string `json:"results"`
	Note    string `json:"note"`
	Plots   bool   `json:"plots"`
	// QuickLook opens the fits in gnuplot.
	QuickLook bool `json:"quicklook"`
	// Argand is the Argand file the fitted point is added to; empty skips it.
	Argand string `json:"argand"`
	Name   string `json:"name"`
}

// Session is every setting of one analysis run.
type Session struct {
	Database     string       `json:"database"`
	Sample       Sample       `json:"sample"`
	Mono         Mono         `json:"mono"`
	Theory       Theory       `json:"theory"`
	Reflectivity Reflectivity `json:"reflectivity"`
	Yield        Yield        `json:"yield"`
	Data         Data         `json:"data"`
	Output       Output       `json:"output"`
}

// Default is a Cu(111) sample at normal incidence on a Si(111) double
// crystal monochromator.
func Default() Session {
	return Session{
		Database: "database",
		Sample: Sample{
			Crystal:      Crystal{Name: "Cu", HKL: [3]int{1, 1, 1}, DW: string(crystal.None), Temperature: 300},
			Deviation:    0,
			Polarization: string(diffraction.Sigma),
			Emission:     90,
		},
		Mono: Mono{
			Crystal: Crystal{Name: "Si", HKL: [3]int{1, 1, 1}, DW: string(crystal.None), Temperature: 300},
			B:       -1,
		},
		Theory:       Theory{HalfWidth: 5},
		Reflectivity: Reflectivity{Guess: true, Sigma: 0.1, N: 1},
		Yield: Yield{
			Fc: 0.5, Pc: 0.5, N: 1, Sr: 1,
			FitFc: true, FitPc: true, FitN: true,
			Mode: fit.SrMode.String(),
		},
		Data:   Data{Dir: ".", Components: []int{0}},
		Output: Output{Results: "results", Plots: true},
	}
}

// Load reads a JSON session over the defaults, so that a file only needs
// the settings that differ.
func Load(path string) (Session, error) {

	s := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("session %s: %w", path, err)
	}
	return s, nil
}

// Save writes s as indented JSON.
func (s Session) Save(path string) error {

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	return nil
}

// Validate rejects settings no analysis can run with.
func (s Session) Validate() error {

	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(s.Database != "", "no reference database folder")
	check(s.Sample.Name != "", "no sample crystal")
	check(s.Mono.Name != "", "no monochromator crystal")
	check(!s.Sample.Reflection().Zero(), "sample reflection (000)")
	check(!s.Mono.Reflection().Zero(), "monochromator reflection (000)")
	_, err := diffraction.ParsePolarization(s.Sample.Polarization)
	check(err == nil, "sample: %v", err)
	check(s.Sample.Deviation >= 0 && s.Sample.Deviation < 90, "deviation angle %g° outside [0, 90)", s.Sample.Deviation)
	check(s.Sample.Polarization != string(diffraction.Pi) || s.Sample.Emission != 0, "emission angle 0° with π polarisation")
	check(s.Sample.Temperature >= 0 && s.Mono.Temperature >= 0, "negative temperature")
	check(s.Mono.B < 0, "monochromator asymmetry b = %g must be negative (Bragg case)", s.Mono.B)
	check(s.Theory.HalfWidth > 0, "theory half-width %g must be positive", s.Theory.HalfWidth)
	check(s.Reflectivity.Guess || s.Reflectivity.Sigma > 0, "reflectivity σ %g must be positive", s.Reflectivity.Sigma)
	check(s.Yield.N != 0, "yield normalisation 0")
	check(s.Yield.Mode == fit.SrMode.String() || s.Yield.Mode == fit.GammaMode.String(), "yield mode %q (want Sr or gamma)", s.Yield.Mode)
	check(s.Yield.FitFc || s.Yield.FitPc || s.Yield.FitN || s.Yield.FitNDP, "no free yield parameter")
	check(s.Yield.GammaTable == "" || s.Yield.CoreLevel != "", "gamma table without a core level")
	check(s.Data.Reflectivity != "" && s.Data.Yield != "", "reflectivity and yield files are required")
	for _, c := range s.Data.Components {
		check(c >= 0, "negative yield component %d", c)
	}
	check(s.Data.Slice >= 0, "negative slice %d", s.Data.Slice)

	return errors.Join(errs...)
}

// Flags registers command-line overrides of s on fs. Call fs.Parse
// afterwards.
func (s *Session) Flags(fs *flag.FlagSet) {

	fs.StringVar(&s.Database, "db", s.Database, "reference database folder")
	fs.StringVar(&s.Sample.Name, "sample", s.Sample.Name, "sample crystal")
	fs.StringVar(&s.Sample.DW, "dw", s.Sample.DW, "sample Debye-Waller method: Gao, Sears, Warren, Zywietz, None")
	fs.Float64Var(&s.Sample.Temperature, "temp", s.Sample.Temperature, "sample temperature in K")
	fs.Float64Var(&s.Sample.Deviation, "xi", s.Sample.Deviation, "deviation from normal incidence in degrees")
	fs.Float64Var(&s.Sample.Miscut, "zeta", s.Sample.Miscut, "miscut in degrees")
	fs.StringVar(&s.Sample.Polarization, "pol", s.Sample.Polarization, "polarisation: sigma or pi")
	fs.Float64Var(&s.Sample.Emission, "phi", s.Sample.Emission, "photoelectron emission angle in degrees")
	fs.StringVar(&s.Mono.Name, "mono", s.Mono.Name, "monochromator crystal")
	fs.Float64Var(&s.Theory.HalfWidth, "width", s.Theory.HalfWidth, "half-width of the theory window in eV")
	fs.StringVar(&s.Data.Dir, "dir", s.Data.Dir, "data folder")
	fs.StringVar(&s.Data.Reflectivity, "refl", s.Data.Reflectivity, "reflectivity file")
	fs.StringVar(&s.Data.Yield, "ey", s.Data.Yield, "yield file")
	fs.BoolVar(&s.Data.Angular, "angular", s.Data.Angular, "yield file holds one block per slice")
	fs.IntVar(&s.Data.Slice, "slice", s.Data.Slice, "slice to fit in angular mode")
	fs.StringVar(&s.Data.Angles, "angles", s.Data.Angles, "slice to emission angle file")
	fs.BoolVar(&s.Data.IgnoreEnergyCheck, "ignore-energy", s.Data.IgnoreEnergyCheck, "accept differing photon energies")
	fs.StringVar(&s.Yield.Mode, "mode", s.Yield.Mode, "non-dipolar parameter: Sr or gamma")
	fs.BoolVar(&s.Yield.FitNDP, "fit-ndp", s.Yield.FitNDP, "fit Sr or gamma")
	fs.BoolVar(&s.Yield.IgnoreErrors, "noweights", s.Yield.IgnoreErrors, "fit the yield without error weights")
	fs.StringVar(&s.Output.Results, "out", s.Output.Results, "results folder")
	fs.StringVar(&s.Output.Note, "note", s.Output.Note, "note to append folder name")
	fs.BoolVar(&s.Output.Plots, "plots", s.Output.Plots, "save figures")
	fs.BoolVar(&s.Output.QuickLook, "quicklook", s.Output.QuickLook, "show the fits in gnuplot")
	fs.StringVar(&s.Output.Argand, "argand", s.Output.Argand, "Argand file to add the result to")
	fs.StringVar(&s.Output.Name, "name", s.Output.Name, "name of the result")
}
