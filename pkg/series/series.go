// Package series evaluates the two truncated power series used by the
// analytic optical-depth strategy.
//
// Both series share the coefficients 1/(2n+1), n = 0..N-1, which live in an
// immutable [Table]. A Table is built once with [NewTable] and passed by
// pointer to whoever needs it; it is never written after construction, so it
// may be shared by any number of goroutines.
//
// # Isotropic series
//
// The porous "stretch" model needs (1/x)·atan(x) for small x:
//
//	Isotropic(x) = Σ (-x²)ⁿ/(2n+1)
//
// The series alternates, so the truncation error is bounded by the first
// omitted term, |x|^{2N}/(2N+1).
//
// # SmoothA1 series
//
// The smooth-wind closed form has a removable singularity at p = 1 where
// z* = sqrt|1 - p²| vanishes. Near that ray the expansion in a = 1 - p²
//
//	SmoothA1(p, z) = Σ aⁿ/(2n+1)·(z^{-(2n+1)} + μ^{-(2n+1)} - 1)
//
// is used instead, with μ = z/r.
package series

import (
	"math"

	"github.com/matzehuels/windprofile/pkg/errors"
)

const (
	// DefaultOrder is the number of terms kept in each series. With the
	// thresholds below the truncation error is below 1e-16 relative.
	DefaultOrder = 8

	// MaxOrder bounds the table size.
	MaxOrder = 64

	// IsotropicThreshold is the largest x for which the isotropic series
	// replaces the arctangent.
	IsotropicThreshold = 0.1

	// SmoothA1Threshold is the largest z*/μ for which the SmoothA1 series
	// replaces the closed form.
	SmoothA1Threshold = 1e-2
)

// Table holds the shared coefficients 1/(2n+1).
type Table struct {
	coeff []float64
}

// NewTable builds a table with the given number of terms.
func NewTable(order int) (*Table, error) {
	if order < 1 || order > MaxOrder {
		return nil, errors.New(errors.ErrCodeConfiguration, "series order must be in [1, %d], got %d", MaxOrder, order)
	}
	c := make([]float64, order)
	for n := range c {
		c[n] = 1 / float64(2*n+1)
	}
	return &Table{coeff: c}, nil
}

// MustNewTable is like NewTable but panics on an invalid order.
func MustNewTable(order int) *Table {
	t, err := NewTable(order)
	if err != nil {
		panic(err)
	}
	return t
}

// Order returns the number of terms.
func (t *Table) Order() int { return len(t.coeff) }

// Isotropic returns Σ (-x²)ⁿ/(2n+1), which equals atan(x)/x for |x| < 1.
func (t *Table) Isotropic(x float64) float64 {
	x2 := -x * x
	term, sum := 1.0, 0.0
	for _, c := range t.coeff {
		sum += c * term
		term *= x2
	}
	return sum
}

// IsotropicErrorBound returns the truncation error bound |x|^{2N}/(2N+1).
func (t *Table) IsotropicErrorBound(x float64) float64 {
	n := len(t.coeff)
	return math.Pow(math.Abs(x), float64(2*n)) / float64(2*n+1)
}

// IsotropicApplies reports whether the isotropic series should be used for
// argument x.
func IsotropicApplies(x float64) bool {
	return math.Abs(x) < IsotropicThreshold
}

// SmoothA1 returns the near-grazing expansion of the smooth optical-depth
// integral at (p, z). It requires z > 0.
func (t *Table) SmoothA1(p, z float64) float64 {
	a := 1 - p*p
	mu := z / math.Hypot(p, z)
	z2, mu2 := z*z, mu*mu

	aTerm, zTerm, muTerm := 1.0, 1/z, 1/mu
	var sum float64
	for _, c := range t.coeff {
		sum += c * aTerm * (zTerm + muTerm - 1)
		aTerm *= a
		zTerm /= z2
		muTerm /= mu2
	}
	return sum
}

// SmoothA1ErrorBound bounds the tail of the SmoothA1 series at (p, z) by
// summing the geometric majorants of its three parts. It returns +Inf when
// the series does not converge there.
func (t *Table) SmoothA1ErrorBound(p, z float64) float64 {
	a := math.Abs(1 - p*p)
	mu := z / math.Hypot(p, z)
	n := float64(len(t.coeff))

	tail := func(ratio, scale float64) float64 {
		if ratio >= 1 {
			return math.Inf(1)
		}
		return math.Pow(ratio, n) / (1 - ratio) * scale
	}
	sum := tail(a/(z*z), 1/z) + tail(a/(mu*mu), 1/mu) + tail(a, 1)
	return sum / (2*n + 1)
}

// SmoothA1Applies reports whether (p, z) is close enough to the grazing ray
// for the SmoothA1 series to replace the closed form.
func SmoothA1Applies(p, z float64) bool {
	if z <= 0 {
		return false
	}
	zstar := math.Sqrt(math.Abs(1 - p*p))
	mu := z / math.Hypot(p, z)
	return zstar/mu < SmoothA1Threshold
}
