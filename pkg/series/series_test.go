package series

import (
	"fmt"
	"math"
	"testing"

	"github.com/matzehuels/windprofile/pkg/numeric"
)

func TestNewTable(t *testing.T) {
	tests := []struct {
		order   int
		wantErr bool
	}{
		{1, false},
		{DefaultOrder, false},
		{MaxOrder, false},
		{0, true},
		{-3, true},
		{MaxOrder + 1, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.order), func(t *testing.T) {
			tab, err := NewTable(tt.order)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTable(%d) error = %v, wantErr %v", tt.order, err, tt.wantErr)
			}
			if err == nil && tab.Order() != tt.order {
				t.Errorf("Order() = %d, want %d", tab.Order(), tt.order)
			}
		})
	}
}

func TestIsotropic(t *testing.T) {
	tab := MustNewTable(DefaultOrder)

	if got := tab.Isotropic(0); got != 1 {
		t.Errorf("Isotropic(0) = %v, want 1", got)
	}

	for _, x := range []float64{1e-6, 0.01, 0.05, 0.099, 0.3} {
		want := math.Atan(x) / x
		got := tab.Isotropic(x)
		bound := tab.IsotropicErrorBound(x) + 1e-16
		if math.Abs(got-want) > bound {
			t.Errorf("Isotropic(%v) = %.17g, want %.17g (bound %g)", x, got, want, bound)
		}
	}
}

func TestIsotropicTruncationOrder(t *testing.T) {
	// A short table is visibly worse, and its error respects the bound.
	short := MustNewTable(2)
	x := 0.3
	errShort := math.Abs(short.Isotropic(x) - math.Atan(x)/x)
	if errShort > short.IsotropicErrorBound(x) {
		t.Errorf("order-2 error %g exceeds bound %g", errShort, short.IsotropicErrorBound(x))
	}
	if errShort < 1e-5 {
		t.Errorf("order-2 error %g is implausibly small", errShort)
	}
}

// smoothIntegral is the β = 1 smooth-wind optical depth per unit τ*,
// ∫_z^∞ dz'/(r(r-1)).
func smoothIntegral(t *testing.T, p, z float64) float64 {
	t.Helper()
	res, err := numeric.Integrate(func(s float64) float64 {
		r := math.Hypot(p, s)
		return 1 / (r * (r - 1))
	}, z, math.Inf(1), numeric.QuadratureOptions{RelTol: 1e-11})
	if err != nil {
		t.Fatalf("Integrate() error = %v", err)
	}
	return res.Value
}

func TestSmoothA1(t *testing.T) {
	tab := MustNewTable(DefaultOrder)

	tests := []struct {
		name string
		p, z float64
	}{
		{"grazing", 1, 2},
		{"just outside", 1.0005, 3},
		{"just inside", 0.9995, 3},
		{"inside far", 0.99, 5},
		{"outside near", 1.02, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := smoothIntegral(t, tt.p, tt.z)
			got := tab.SmoothA1(tt.p, tt.z)
			tol := tab.SmoothA1ErrorBound(tt.p, tt.z) + 1e-9*want
			if math.Abs(got-want) > tol {
				t.Errorf("SmoothA1(%v, %v) = %.15g, want %.15g", tt.p, tt.z, got, want)
			}
		})
	}
}

func TestSmoothA1ClosedFormAtLimb(t *testing.T) {
	tab := MustNewTable(1)
	z := 2.0
	r := math.Hypot(1, z)
	want := 1/z + r/z - 1
	if got := tab.SmoothA1(1, z); math.Abs(got-want) > 1e-15 {
		t.Errorf("SmoothA1(1, %v) = %v, want %v", z, got, want)
	}
}

func TestApplies(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"limb in front", SmoothA1Applies(1, 2), true},
		{"near limb", SmoothA1Applies(1+1e-6, 2), true},
		{"far from limb", SmoothA1Applies(1.5, 2), false},
		{"behind", SmoothA1Applies(1, -1), false},
		{"midplane", SmoothA1Applies(1, 0), false},
		{"small x", IsotropicApplies(0.05), true},
		{"large x", IsotropicApplies(0.5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func ExampleTable_Isotropic() {
	tab := MustNewTable(DefaultOrder)
	fmt.Printf("%.9f\n", tab.Isotropic(0.05))
	fmt.Printf("%.9f\n", math.Atan(0.05)/0.05)
	// Output:
	// 0.999167914
	// 0.999167914
}
