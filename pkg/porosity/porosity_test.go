package porosity

import (
	"fmt"
	"math"
	"testing"
)

func TestEffectiveOpacityIdentity(t *testing.T) {
	for _, kappa := range []float64{0, 1e-300, 1e-8, 0.5, 1, 3.7, 1e6, math.MaxFloat64} {
		if got := EffectiveOpacity(kappa, 0); got != kappa {
			t.Errorf("EffectiveOpacity(%v, 0) = %v, want %v", kappa, got, kappa)
		}
		if got := EffectiveOpacityRosseland(kappa, 0); got != kappa {
			t.Errorf("EffectiveOpacityRosseland(%v, 0) = %v, want %v", kappa, got, kappa)
		}
	}
}

func TestEffectiveOpacityMonotone(t *testing.T) {
	hs := []float64{0, 0.01, 0.1, 1, 10}
	kappas := []float64{0, 0.01, 0.1, 1, 10, 100}

	for _, h := range hs {
		prev := -1.0
		for _, k := range kappas {
			got := EffectiveOpacity(k, h)
			if got < prev {
				t.Errorf("EffectiveOpacity not non-decreasing in kappa at h=%v: %v after %v", h, got, prev)
			}
			if h > 0 && got > 1/h*(1+1e-12) {
				t.Errorf("EffectiveOpacity(%v, %v) = %v exceeds saturation 1/h", k, h, got)
			}
			prev = got
		}
	}

	for _, k := range kappas {
		prev := math.Inf(1)
		for _, h := range hs {
			got := EffectiveOpacity(k, h)
			if got > prev {
				t.Errorf("EffectiveOpacity not non-increasing in h at kappa=%v: %v after %v", k, got, prev)
			}
			prev = got
		}
	}
}

func TestFactor(t *testing.T) {
	tests := []struct {
		name string
		law  Law
		u    float64
		mu   float64
		want float64
	}{
		{"smooth", Law{}, 1, 0.3, 1},
		{"bridging", Law{TauClump0: 2}, 1, 0.3, (1 - math.Exp(-2)) / 2},
		{"bridging r=2", Law{TauClump0: 2}, 0.5, 0.3, (1 - math.Exp(-0.5)) / 0.5},
		{"rosseland", Law{TauClump0: 2, Rosseland: true}, 1, 0.3, 1.0 / 3},
		{"anisotropic rosseland", Law{TauClump0: 2, Rosseland: true, Anisotropic: true}, 1, 0.5, 0.5 / 2.5},
		{"anisotropic", Law{TauClump0: 1, Anisotropic: true}, 1, 0.5, (1 - math.Exp(-2)) / 2},
		{"anisotropic sign", Law{TauClump0: 1, Anisotropic: true}, 1, -0.5, (1 - math.Exp(-2)) / 2},
		{"anisotropic grazing", Law{TauClump0: 1, Anisotropic: true}, 1, 1e-12, 1e-12},
		{"at infinity", Law{TauClump0: 5}, 0, 0.9, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.law.Factor(tt.u, tt.mu)
			if math.Abs(got-tt.want) > 1e-12*math.Max(1, tt.want) {
				t.Errorf("Factor(%v, %v) = %v, want %v", tt.u, tt.mu, got, tt.want)
			}
			if got <= 0 || got > 1 {
				t.Errorf("Factor(%v, %v) = %v, want in (0, 1]", tt.u, tt.mu, got)
			}
		})
	}
}

func TestFactorMatchesEffectiveOpacity(t *testing.T) {
	// Any opacity κ with clump separation τc/κ gives the same ratio.
	for _, rosseland := range []bool{false, true} {
		law := Law{TauClump0: 3, Rosseland: rosseland}
		effective := EffectiveOpacity
		if rosseland {
			effective = EffectiveOpacityRosseland
		}
		for _, u := range []float64{0.05, 0.4, 1} {
			tc := law.TauClump(u)
			for _, kappa := range []float64{1e-3, 0.7, 50} {
				want := effective(kappa, tc/kappa) / kappa
				if got := law.Factor(u, 0.8); math.Abs(got-want) > 1e-12*want {
					t.Errorf("rosseland=%v: Factor(%v) = %v, want %v", rosseland, u, got, want)
				}
			}
		}
	}
}

func TestExprel(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{0, 1},
		{1e-8, 1 + 5e-9},
		{-1, 1 - math.Exp(-1)},
		{2, (math.Exp(2) - 1) / 2},
		{-1000, 1e-3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.x), func(t *testing.T) {
			if got := Exprel(tt.x); math.Abs(got-tt.want) > 1e-14*math.Max(1, math.Abs(tt.want)) {
				t.Errorf("Exprel(%v) = %v, want %v", tt.x, got, tt.want)
			}
		})
	}
}

func ExampleEffectiveOpacity() {
	fmt.Println(EffectiveOpacity(2.5, 0))
	fmt.Printf("%.4f\n", EffectiveOpacity(100, 1))
	// Output:
	// 2.5
	// 1.0000
}
