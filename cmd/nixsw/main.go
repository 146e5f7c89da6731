// Command nixsw analyses one NIXSW measurement: it computes the theoretical
// reflectivity of the sample, fits the measured reflectivity and
// photoelectron yield, and files the coherent fraction and position in the
// folder's results table and in an Argand file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/HamletTheHamster/nixsw/internal/config"
	"github.com/HamletTheHamster/nixsw/internal/dataio"
	"github.com/HamletTheHamster/nixsw/internal/report"
)

func main() {

	log.SetFlags(0)
	log.SetPrefix("nixsw: ")

	cfg, err := session(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	start := time.Now()
	run := report.RunDir(resolve(cfg.Data.Dir, cfg.Output.Results), cfg.Output.Note, start)
	if err := os.MkdirAll(run, 0o755); err != nil {
		log.Fatal(err)
	}

	var lg report.Log
	logHeader(&lg, cfg)

	th, err := computeTheory(cfg, run, &lg)
	if err != nil {
		lg.Write(run)
		log.Fatal("theory failed: ", err)
	}

	exp, err := dataio.Load(importOptions(cfg, th.spectrum.BraggEnergy))
	if err != nil {
		lg.Write(run)
		log.Fatal("import failed: ", err)
	}
	lg.Section("Experiment")
	lg.Printf("Component: %s (%d points)", exp.Component, len(exp.Energy))
	if cfg.Data.Angular {
		lg.Printf("Slice %d of %d", cfg.Data.Slice, exp.Slices)
	}
	if exp.HasAngle {
		lg.Printf("Emission angle from angles file: %g°", exp.Angle)
	}

	refl, err := fitReflectivity(cfg, th, exp, run, &lg)
	if err != nil {
		lg.Write(run)
		log.Fatal("reflectivity fit failed: ", err)
	}

	ey, err := fitYield(cfg, th, exp, refl, run, &lg)
	if err != nil {
		lg.Write(run)
		log.Fatal("yield fit failed: ", err)
	}

	row := resultRecord(cfg, exp, refl, ey)
	results := dataio.ResultsFileFor(cfg.Data.Dir)
	if err := results.Upsert(row, time.Now()); err != nil {
		log.Print("results table: ", err)
	} else {
		lg.Printf("Results filed in %s", results.Path)
	}

	if cfg.Output.Argand != "" {
		if err := fileArgand(cfg, row, run, &lg); err != nil {
			log.Print("argand file: ", err)
		}
	}

	if err := cfg.Save(filepath.Join(run, "session.json")); err != nil {
		log.Print(err)
	}
	lg.Printf("\nDone in %v", time.Since(start).Round(time.Millisecond))
	if err := lg.Write(run); err != nil {
		log.Fatal(err)
	}
}

// session reads the optional -config file, then lets the remaining flags
// override it.
func session(
	args []string,
) (
	config.Session, error,
) {

	var path string
	parse := func(s *config.Session) error {
		fs := flag.NewFlagSet("nixsw", flag.ContinueOnError)
		fs.StringVar(&path, "config", path, "JSON session file")
		s.Flags(fs)
		return fs.Parse(args)
	}

	s := config.Default()
	if err := parse(&s); err != nil {
		return s, err
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return s, err
		}
		s = loaded
		if err := parse(&s); err != nil {
			return s, err
		}
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("session: %w", err)
	}
	return s, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func logHeader(
	lg *report.Log,
	cfg config.Session,
) {

	lg.Printf("Sample: %s%s, %s Debye-Waller at %g K", cfg.Sample.Name, cfg.Sample.Reflection(), cfg.Sample.DW, cfg.Sample.Temperature)
	lg.Printf("Monochromator: %s%s, b = %g", cfg.Mono.Name, cfg.Mono.Reflection(), cfg.Mono.B)
	lg.Printf("Geometry: ξ = %g°, ζ = %g°, φ = %g°, %s polarisation",
		cfg.Sample.Deviation, cfg.Sample.Miscut, cfg.Sample.Emission, cfg.Sample.Polarization)
	if cfg.Output.Note != "" {
		lg.Printf("Runtime note: %s", cfg.Output.Note)
	}
	lg.Printf("Data: %s", cfg.Data.Dir)
}

func importOptions(
	cfg config.Session,
	braggEnergy float64,
) dataio.ImportOptions {

	d := cfg.Data
	o := dataio.ImportOptions{
		ReflPath:          resolve(d.Dir, d.Reflectivity),
		YieldPath:         resolve(d.Dir, d.Yield),
		Components:        d.Components,
		Angular:           d.Angular,
		Slice:             d.Slice,
		IgnoreEnergyCheck: d.IgnoreEnergyCheck,
		BraggEnergy:       braggEnergy,
	}
	if d.Angles != "" {
		o.AnglesPath = resolve(d.Dir, d.Angles)
	}
	return o
}
