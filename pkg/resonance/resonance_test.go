package resonance

import (
	"math"
	"testing"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/numeric"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// O VII-like line absorbed by a blue-shifted transition.
var testParams = Params{
	Tau0:      1,
	Beta:      1,
	DeltaE:    -0.004,
	GammaE:    0.1367 / 727.395,
	VInfinity: 2500 / 2.9979e5,
}

func newTestModel(t *testing.T, p Params) *Model {
	t.Helper()
	m, err := New(p, numeric.QuadratureOptions{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(p *Params)
		wantErr bool
	}{
		{"valid", func(p *Params) {}, false},
		{"negative tau0", func(p *Params) { p.Tau0 = -1 }, true},
		{"zero width", func(p *Params) { p.GammaE = 0 }, true},
		{"superluminal", func(p *Params) { p.VInfinity = 1 }, true},
		{"delta out of range", func(p *Params) { p.DeltaE = 1.5 }, true},
		{"negative beta", func(p *Params) { p.Beta = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams
			tt.modify(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeConfiguration) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeConfiguration)
			}
		})
	}
}

func TestIntegrandPeakLocalization(t *testing.T) {
	m := newTestModel(t, testParams)
	const p, z0 = 2.0, -5.0

	res, err := m.ResonancePoint(p, z0)
	if err != nil {
		t.Fatalf("ResonancePoint() error = %v", err)
	}
	if !res.Found {
		t.Fatal("ResonancePoint() found no resonance")
	}

	const dz = 1e-3
	bestZ, best := 0.0, 0.0
	for z := z0; z < 20; z += dz {
		if v := m.Integrand(p, z0, z); v > best {
			best, bestZ = v, z
		}
	}
	if math.Abs(bestZ-res.Z) > 2*dz {
		t.Errorf("integrand peak at z = %v, resonance root at %v", bestZ, res.Z)
	}

	// Single dominant peak: far from the root the integrand is tiny.
	for _, k := range []float64{-50, 50, 200} {
		z := res.Z + k*res.Width
		if z < z0 {
			continue
		}
		if ratio := m.Integrand(p, z0, z) / best; ratio > 1e-3 {
			t.Errorf("integrand at %g widths = %g of peak", k, ratio)
		}
	}
}

func TestIntegralOmittingPeak(t *testing.T) {
	m := newTestModel(t, testParams)
	const p, z0 = 2.0, -5.0

	res, err := m.ResonancePoint(p, z0)
	if err != nil || !res.Found {
		t.Fatalf("ResonancePoint() = %+v, %v", res, err)
	}
	g := func(z float64) float64 { return m.Integrand(p, z0, z) }
	w := res.Width

	withPeak, err := numeric.IntegrateBreakpoints(g, []float64{res.Z - 5*w, res.Z, res.Z + 5*w}, numeric.QuadratureOptions{})
	if err != nil {
		t.Fatalf("Integrate() error = %v", err)
	}
	off, err := numeric.Integrate(g, res.Z+195*w, res.Z+205*w, numeric.QuadratureOptions{})
	if err != nil {
		t.Fatalf("Integrate() error = %v", err)
	}
	if off.Value/withPeak.Value > 1e-3 {
		t.Errorf("off-peak window = %g, peak window = %g", off.Value, withPeak.Value)
	}
}

func TestDepthMatchesSobolev(t *testing.T) {
	m := newTestModel(t, testParams)
	const p, z0 = 2.0, -5.0

	res, err := m.ResonancePoint(p, z0)
	if err != nil || !res.Found {
		t.Fatalf("ResonancePoint() = %+v, %v", res, err)
	}

	got, err := m.Depth(p, z0)
	if err != nil {
		t.Fatalf("Depth() error = %v", err)
	}

	// In the narrow-line limit the depth is the Sobolev value
	// u²/w / |dx/dz| at the resonance.
	v := wind.Velocity{Beta: testParams.Beta}
	u := wind.U(p, res.Z)
	slope := (1 - testParams.DeltaE) * testParams.VInfinity * v.DLineOfSight(p, res.Z)
	sobolev := u * u / v.W(u) / slope

	if math.Abs(got-sobolev)/sobolev > 0.05 {
		t.Errorf("Depth() = %v, Sobolev estimate %v", got, sobolev)
	}
}

func TestDepthWithoutResonance(t *testing.T) {
	params := testParams
	params.DeltaE = 0.004 // red-shifted transition is never reached
	m := newTestModel(t, params)

	res, err := m.ResonancePoint(2, -5)
	if err != nil {
		t.Fatalf("ResonancePoint() error = %v", err)
	}
	if res.Found {
		t.Errorf("ResonancePoint() = %+v, want none", res)
	}

	got, err := m.Depth(2, -5)
	if err != nil {
		t.Fatalf("Depth() error = %v", err)
	}
	resonant, err := newTestModel(t, testParams).Depth(2, -5)
	if err != nil {
		t.Fatalf("Depth() error = %v", err)
	}
	if got < 0 || got > 2e-2*resonant {
		t.Errorf("Depth() without resonance = %v, with resonance = %v", got, resonant)
	}
}

func TestDepthEdgeCases(t *testing.T) {
	m := newTestModel(t, testParams)

	if got, err := m.Depth(0.5, -1); err != nil || got != wind.OccultedDepth {
		t.Errorf("Depth(occulted) = %v, %v; want %v", got, err, wind.OccultedDepth)
	}
	if got, err := m.TotalDepth(0.9); err != nil || got != wind.OccultedDepth {
		t.Errorf("TotalDepth(0.9) = %v, %v; want %v", got, err, wind.OccultedDepth)
	}

	zero := testParams
	zero.Tau0 = 0
	if got, err := newTestModel(t, zero).Depth(2, 0); err != nil || got != 0 {
		t.Errorf("Depth(tau0=0) = %v, %v; want 0", got, err)
	}

	// Depth scales linearly with tau0.
	double := testParams
	double.Tau0 = 2
	a, errA := m.Depth(3, -2)
	b, errB := newTestModel(t, double).Depth(3, -2)
	if errA != nil || errB != nil {
		t.Fatalf("Depth() errors = %v, %v", errA, errB)
	}
	if math.Abs(b-2*a) > 1e-9*b {
		t.Errorf("Depth(tau0=2) = %v, want %v", b, 2*a)
	}
}

func TestTotalDepth(t *testing.T) {
	m := newTestModel(t, testParams)
	total, err := m.TotalDepth(2)
	if err != nil {
		t.Fatalf("TotalDepth() error = %v", err)
	}
	if !(total > 0) || math.IsInf(total, 0) {
		t.Errorf("TotalDepth(2) = %v, want finite positive", total)
	}
}

func TestOpticalDepth(t *testing.T) {
	m := newTestModel(t, testParams)
	points := [][2]float64{{2, -5}, {3, -2}, {0.5, -1}, {1.5, 4}}
	for _, pt := range points {
		want, err := m.Depth(pt[0], pt[1])
		if err != nil {
			t.Fatalf("Depth(%v, %v) error = %v", pt[0], pt[1], err)
		}
		got, err := OpticalDepth(pt[0], pt[1], testParams)
		if err != nil {
			t.Fatalf("OpticalDepth(%v, %v) error = %v", pt[0], pt[1], err)
		}
		if got != want {
			t.Errorf("OpticalDepth(%v, %v) = %v, want %v", pt[0], pt[1], got, want)
		}
	}

	bad := testParams
	bad.GammaE = 0
	if _, err := OpticalDepth(2, -5, bad); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("OpticalDepth(gamma_e=0) error = %v, want %v", err, errors.ErrCodeConfiguration)
	}
}

func TestPackageIntegrand(t *testing.T) {
	m := newTestModel(t, testParams)
	for _, z := range []float64{-3, -1.13, 0, 4} {
		got := Integrand(z, 2, -5, testParams.Beta, testParams.DeltaE, testParams.GammaE, testParams.VInfinity)
		want := m.Integrand(2, -5, z)
		if got != want {
			t.Errorf("Integrand(%v) = %v, want %v", z, got, want)
		}
		if got < 0 {
			t.Errorf("Integrand(%v) = %v, want non-negative", z, got)
		}
	}
}
