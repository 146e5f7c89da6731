package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/HamletTheHamster/nixsw/internal/argand"
	"github.com/HamletTheHamster/nixsw/internal/config"
	"github.com/HamletTheHamster/nixsw/internal/dataio"
	"github.com/HamletTheHamster/nixsw/internal/diffraction"
	"github.com/HamletTheHamster/nixsw/internal/fit"
	"github.com/HamletTheHamster/nixsw/internal/report"
)

// resultName names a measurement after its folder, or the folder above
// when the folder only holds a sum or a slice.
func resultName(cfg config.Session) string {

	if cfg.Output.Name != "" {
		return cfg.Output.Name
	}
	dir, err := filepath.Abs(cfg.Data.Dir)
	if err != nil {
		dir = cfg.Data.Dir
	}
	name := filepath.Base(dir)
	if strings.Contains(name, "sum") || strings.Contains(name, "Slice") {
		name = filepath.Base(filepath.Dir(dir))
	}
	return name
}

func resultRecord(
	cfg config.Session,
	exp *dataio.Experiment,
	refl *fit.ReflResult,
	ey *fit.YieldResult,
) dataio.Record {

	g := cfg.Sample.Geometry()
	if exp.HasAngle {
		g.Emission = exp.Angle
	}
	y, o := cfg.Yield, cfg.Yield.Options()
	p, e := ey.Params, ey.StdErr

	path, err := filepath.Abs(cfg.Data.Dir)
	if err != nil {
		path = cfg.Data.Dir
	}
	pol := "Sigma"
	if g.Polarization == diffraction.Pi {
		pol = "Pi"
	}
	hkl := cfg.Sample.HKL

	r := dataio.Record{
		"Name":                 resultName(cfg),
		"Symbol":               "s",
		"Color":                "(0, 0, 0)",
		"Component":            exp.Component,
		"Slice nb":             strconv.Itoa(cfg.Data.Slice),
		"Core level":           y.CoreLevel,
		"Pol.":                 pol,
		"Substrate":            cfg.Sample.Name,
		"(hkl)":                fmt.Sprintf("%d%d%d", hkl[0], hkl[1], hkl[2]),
		"DW":                   cfg.Sample.DW,
		"Monte Carlo analysis": "Without",
		"Yield file":           cfg.Data.Yield,
		"Note":                 cfg.Output.Note,
		"Path":                 path,
	}

	set := func(key string, x float64, ok bool) {
		if ok {
			r.SetFloat(key, x)
		} else {
			r[key] = dataio.Missing
		}
	}
	gammaMode := o.Mode == fit.GammaMode

	set("Phi", g.Emission, true)
	set("Fc", p.Fc, true)
	set("Pc", p.Pc, true)
	set("Fc_err", e.Fc, o.FitFc)
	set("Pc_err", e.Pc, o.FitPc)
	set("Gamma", p.Gamma, gammaMode)
	set("Gamma_err", e.Gamma, gammaMode && o.FitNDP)
	set("Q_0", ey.NDP.Q0, gammaMode)
	set("Q_H", ey.NDP.QH, gammaMode)
	set("Delta", p.Delta, gammaMode)
	set("|Si|", ey.NDP.Si, gammaMode)
	set("Psi", ey.NDP.Psi, gammaMode)
	set("P el", g.PElectrons(), true)
	set("Sr", ey.NDP.Sr, true)
	set("Sr_err", e.Sr, !gammaMode && o.FitNDP)
	set("Zeta", g.Miscut, true)
	set("b sample", g.B(), true)
	set("b DCM", cfg.Mono.B, true)
	set("Xi", g.Deviation, true)
	set("P Refl", g.PRefl(), true)
	set("Temp.", cfg.Sample.Temperature, true)
	set("delta hnu", refl.Params.DeltaE, true)
	set("Sigma", refl.Params.Sigma, true)
	set("R2 Refl", refl.RSquared, true)
	set("X2 Yield", ey.ChiSq, true)
	return r
}

// fileArgand adds the result as a point of the folder's live group in the
// configured Argand file and draws the file.
func fileArgand(
	cfg config.Session,
	row dataio.Record,
	run string,
	lg *report.Log,
) error {

	path := cfg.Output.Argand
	a := argand.NewArena()
	if _, err := os.Stat(path); err == nil {
		if a, err = argand.Load(path); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	name := argand.LiveGroupName(cfg.Data.Dir, row["Component"])
	var id uuid.UUID
	if group, ok := a.GroupByName(name); ok {
		id = group.ID
	} else {
		id = a.AddGroup(dataio.Record{"Name": name})
	}
	if err := addOrReplace(a, id, row); err != nil {
		return err
	}
	if err := argand.Save(path, a); err != nil {
		return err
	}
	g, _ := a.Group(id)
	lg.Section("Argand")
	lg.Printf("Point added to group %s of %s: Pc = %s ± %s, Fc = %s ± %s",
		name, path, g.Record["Pc"], g.Record["Pc_err"], g.Record["Fc"], g.Record["Fc_err"])

	if cfg.Output.Plots {
		p, err := report.ArgandPlot(resultName(cfg), a, false)
		if err != nil {
			return err
		}
		return report.Save(p, run, "argand")
	}
	return nil
}

// addOrReplace updates the point of the group with the same name, component
// and slice as row, or adds row as a new point.
func addOrReplace(
	a *argand.Arena,
	group uuid.UUID,
	row dataio.Record,
) error {

	points, err := a.Points(group)
	if err != nil {
		return err
	}
	for _, p := range points {
		r := p.Record
		if r["Name"] == row["Name"] && r["Component"] == row["Component"] && r["Slice nb"] == row["Slice nb"] {
			return a.Update(p.ID, row)
		}
	}
	_, err = a.AddPoint(group, row)
	return err
}
