package diffraction

import (
	"math"
	"math/cmplx"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/HamletTheHamster/nixsw/internal/crystal"
)

// Cu(111) near normal incidence on a Si(111) double-crystal monochromator.
func testSetup(pol Polarization) Setup {

	cu := crystal.Result{
		D:      3.6149 / math.Sqrt(3),
		F0:     4 * complex(27.5, 0.6),
		FH:     4 * complex(19.8, 0.6),
		FHbar:  4 * complex(19.8, 0.6),
		Volume: 3.6149 * 3.6149 * 3.6149,
	}
	cu.BraggEnergy, cu.Lambda = crystal.Bragg(cu.D, 89)

	f := complex(10.5, 0.15)
	si := crystal.Result{
		D:           5.431 / math.Sqrt(3),
		F0:          8 * complex(14.2, 0.15),
		FH:          4 * complex(1, -1) * f,
		FHbar:       4 * complex(1, 1) * f,
		Volume:      5.431 * 5.431 * 5.431,
		BraggEnergy: cu.BraggEnergy,
	}

	return Setup{
		Sample:    cu,
		Mono:      si,
		Geometry:  Geometry{Deviation: 1, Emission: 45, Polarization: pol},
		MonoB:     -1,
		HalfWidth: 5,
	}
}

func TestGeometry(t *testing.T) {

	g := Geometry{Polarization: Sigma, Emission: 45}
	if g.B() != -1 || g.Theta() != 90 || g.PRefl() != 1 || g.PElectrons() != 0 {
		t.Errorf("normal incidence σ: b=%g θ=%g P=%g Pe=%g", g.B(), g.Theta(), g.PRefl(), g.PElectrons())
	}

	g = Geometry{Polarization: Pi, Deviation: 3, Emission: 60}
	if want := -math.Cos(6 * math.Pi / 180); !scalar.EqualWithinAbsOrRel(g.PRefl(), want, 1e-14, 1e-14) {
		t.Errorf("P = %g, want %g", g.PRefl(), want)
	}
	if want := math.Sin(54*math.Pi/180) / math.Sin(60*math.Pi/180); !scalar.EqualWithinAbsOrRel(g.PElectrons(), want, 1e-14, 1e-14) {
		t.Errorf("Pe = %g, want %g", g.PElectrons(), want)
	}

	g = Geometry{Deviation: 2, Miscut: 1}
	want := -math.Sin(87*math.Pi/180) / math.Sin(89*math.Pi/180)
	if !scalar.EqualWithinAbsOrRel(g.B(), want, 1e-14, 1e-14) || g.Theta() != 88 {
		t.Errorf("b = %g, want %g; θ = %g", g.B(), want, g.Theta())
	}

	if _, err := ParsePolarization("circular"); err == nil {
		t.Errorf("circular polarisation accepted")
	}
}

func TestGrid(t *testing.T) {

	e, err := Grid(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(e) != 1001 {
		t.Fatalf("len = %d", len(e))
	}
	if e[0] != -10 || !scalar.EqualWithinAbsOrRel(e[len(e)-1], 10, 1e-12, 1e-12) || !scalar.EqualWithinAbsOrRel(e[500], 0, 1e-12, 1e-12) {
		t.Errorf("grid ends %g .. %g, middle %g", e[0], e[len(e)-1], e[500])
	}
	if _, err := Grid(0); err == nil {
		t.Errorf("zero half-width accepted")
	}
}

func TestFarFromBragg(t *testing.T) {

	sample, mono, err := testSetup(Sigma).Reflectors()
	if err != nil {
		t.Fatal(err)
	}
	eB := testSetup(Sigma).Sample.BraggEnergy

	prev := 1.0
	for _, dE := range []float64{20, 50, 200, 1000} {
		eta := sample.Eta(dE, eB)
		p, m := sample.Roots(eta)
		r, _ := SampleBranch(p, m, Sigma)
		if r < 0 || r >= prev {
			t.Errorf("ΔE = %g (|η| = %.1f): R = %g, previous %g", dE, cmplx.Abs(eta), r, prev)
		}
		prev = r
	}
	if prev > 1e-4 {
		t.Errorf("R = %g far from the Bragg condition", prev)
	}

	p, m := mono.Roots(mono.Eta(-1000, eB))
	if r, _ := MonoBranch(p, m); r > 1e-4 {
		t.Errorf("mono R = %g far from the Bragg condition", r)
	}
}

func TestCentreOfDispersion(t *testing.T) {

	sample, _, err := testSetup(Sigma).Reflectors()
	if err != nil {
		t.Fatal(err)
	}
	p, m := sample.Roots(0)
	r, _ := SampleBranch(p, m, Sigma)
	if r < 0 || r > 1+1e-12 {
		t.Errorf("R(η=0) = %g", r)
	}
}

func TestBranchSwitchContinuity(t *testing.T) {

	for _, pol := range []Polarization{Sigma, Pi} {
		s := testSetup(pol)
		sample, mono, err := s.Reflectors()
		if err != nil {
			t.Fatal(err)
		}
		eB := s.Sample.BraggEnergy

		for dE := -3.0; dE <= 3.0; dE += 0.001 {
			p0, n0 := sample.Roots(sample.Eta(dE, eB))
			p1, n1 := sample.Roots(sample.Eta(dE+1e-6, eB))
			r0, _ := SampleBranch(p0, n0, pol)
			r1, _ := SampleBranch(p1, n1, pol)
			if r0 < 0 || r0 > 1 {
				t.Fatalf("%s: R(%g) = %g", pol, dE, r0)
			}
			if math.Abs(r1-r0) > 1e-3 {
				t.Fatalf("%s: jump of %g at ΔE = %g", pol, r1-r0, dE)
			}

			m0, _ := MonoBranch(mono.Roots(mono.Eta(dE, eB)))
			m1, _ := MonoBranch(mono.Roots(mono.Eta(dE+1e-6, eB)))
			if math.Abs(m1-m0) > 1e-3 {
				t.Fatalf("mono: jump of %g at ΔE = %g", m1-m0, dE)
			}
		}
	}
}

func TestCompute(t *testing.T) {

	sp, err := Compute(testSetup(Sigma))
	if err != nil {
		t.Fatal(err)
	}
	n := len(sp.Energy)
	if n != 501 || len(sp.ReflSample) != n || len(sp.PhaseMono) != n {
		t.Fatalf("lengths %d %d %d", n, len(sp.ReflSample), len(sp.PhaseMono))
	}
	for i := range sp.Energy {
		if sp.ReflSample[i] < 0 || sp.ReflSample[i] > 1 || sp.ReflMono[i] < 0 || sp.ReflMono[i] > 1 {
			t.Fatalf("reflectivity outside [0,1] at %g eV", sp.Energy[i])
		}
	}

	peak := floats.Max(sp.ReflSample)
	if peak < 0.5 {
		t.Errorf("peak sample reflectivity %g", peak)
	}
	if at := sp.Energy[floats.MaxIdx(sp.ReflSample)]; math.Abs(at) > 2 {
		t.Errorf("sample peak %g eV from the Bragg energy", at)
	}
	if sp.ReflSample[0] > 0.1*peak || sp.ReflSample[n-1] > 0.1*peak {
		t.Errorf("tails too high: %g, %g", sp.ReflSample[0], sp.ReflSample[n-1])
	}
}

func TestMonoCannotReflect(t *testing.T) {

	s := testSetup(Sigma)
	s.Mono.D = 1
	if _, err := Compute(s); err == nil {
		t.Errorf("λ > 2d accepted for the monochromator")
	}
}
