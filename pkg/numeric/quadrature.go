package numeric

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/matzehuels/windprofile/pkg/errors"
)

// Func is a real function of one real variable.
type Func func(float64) float64

// Default quadrature settings.
const (
	DefaultRelTol       = 1e-6
	DefaultAbsTol       = 1e-12
	DefaultMaxIntervals = 1000
)

// QuadratureOptions controls the accuracy and budget of [Integrate].
// Zero values select the package defaults.
type QuadratureOptions struct {
	RelTol       float64 `json:"rel_tol,omitempty" toml:"rel_tol"`
	AbsTol       float64 `json:"abs_tol,omitempty" toml:"abs_tol"`
	MaxIntervals int     `json:"max_intervals,omitempty" toml:"max_intervals"`

	// SingularLower weakens an integrable singularity at the lower limit of a
	// finite interval by substituting x = a + (b-a)t³.
	SingularLower bool `json:"-" toml:"-"`
}

func (o QuadratureOptions) withDefaults() QuadratureOptions {
	if o.RelTol <= 0 {
		o.RelTol = DefaultRelTol
	}
	if o.AbsTol <= 0 {
		o.AbsTol = DefaultAbsTol
	}
	if o.MaxIntervals <= 0 {
		o.MaxIntervals = DefaultMaxIntervals
	}
	return o
}

// Coarsen returns a copy of o with both tolerances multiplied by factor.
// It is the explicit way for a caller to trade accuracy for resilience.
func (o QuadratureOptions) Coarsen(factor float64) QuadratureOptions {
	o = o.withDefaults()
	o.RelTol *= factor
	o.AbsTol *= factor
	return o
}

// QuadratureResult is the outcome of an integration.
type QuadratureResult struct {
	Value       float64 // Integral estimate
	Error       float64 // Absolute error estimate
	Evaluations int     // Integrand evaluations
	Intervals   int     // Subintervals in the final partition
}

// =============================================================================
// Gauss-Legendre rule pair
// =============================================================================

// rulePair holds a low- and a high-order Gauss-Legendre rule on [-1, 1].
// It is built once and only read afterwards.
type rulePair struct {
	lowX, lowW   []float64
	highX, highW []float64
}

func newRulePair(low, high int) *rulePair {
	r := &rulePair{
		lowX:  make([]float64, low),
		lowW:  make([]float64, low),
		highX: make([]float64, high),
		highW: make([]float64, high),
	}
	quad.Legendre{}.FixedLocations(r.lowX, r.lowW, -1, 1)
	quad.Legendre{}.FixedLocations(r.highX, r.highW, -1, 1)
	return r
}

var gauss = newRulePair(10, 21)

// apply integrates g over [lo, hi] and returns the high-order estimate and
// the difference between the two rules.
func (r *rulePair) apply(g Func, lo, hi float64) (est, diff float64) {
	c := 0.5 * (lo + hi)
	h := 0.5 * (hi - lo)
	var low, high float64
	for i, x := range r.lowX {
		low += r.lowW[i] * g(c+h*x)
	}
	for i, x := range r.highX {
		high += r.highW[i] * g(c+h*x)
	}
	return high * h, math.Abs(high-low) * h
}

func (r *rulePair) evaluations() int {
	return len(r.lowX) + len(r.highX)
}

// =============================================================================
// Interval heap
// =============================================================================

type interval struct {
	lo, hi float64
	est    float64
	err    float64
}

// intervalHeap is a max-heap on the error estimate.
type intervalHeap []interval

func (h intervalHeap) Len() int           { return len(h) }
func (h intervalHeap) Less(i, j int) bool { return h[i].err > h[j].err }
func (h intervalHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intervalHeap) Push(x any)        { *h = append(*h, x.(interval)) }
func (h *intervalHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// =============================================================================
// Integrate
// =============================================================================

// Integrate computes the integral of f over [a, b]. Either limit may be
// infinite. If b < a the result is the negated integral over [b, a].
//
// A NonConvergenceError is returned, together with the best estimate so far,
// when the error estimate has not met max(AbsTol, RelTol·|value|) by the
// time the interval budget is exhausted or bisection reaches rounding noise.
func Integrate(f Func, a, b float64, opts QuadratureOptions) (QuadratureResult, error) {
	if math.IsNaN(a) || math.IsNaN(b) {
		return QuadratureResult{}, errors.New(errors.ErrCodeInvalidInput, "integration limits must not be NaN")
	}
	if a == b {
		return QuadratureResult{}, nil
	}
	if b < a {
		res, err := Integrate(f, b, a, opts)
		res.Value = -res.Value
		return res, err
	}
	opts = opts.withDefaults()

	switch {
	case math.IsInf(a, -1) && math.IsInf(b, 1):
		left, err := Integrate(f, a, 0, opts)
		if err != nil {
			return left, err
		}
		right, err := Integrate(f, 0, b, opts)
		return combine(left, right), err
	case math.IsInf(b, 1):
		g := func(t float64) float64 {
			s := 1 - t
			return f(a+t/s) / (s * s)
		}
		return adapt(g, 0, 1, opts)
	case math.IsInf(a, -1):
		g := func(t float64) float64 {
			s := 1 - t
			return f(b-t/s) / (s * s)
		}
		return adapt(g, 0, 1, opts)
	case opts.SingularLower:
		width := b - a
		g := func(t float64) float64 {
			t2 := t * t
			return 3 * width * t2 * f(a+width*t2*t)
		}
		return adapt(g, 0, 1, opts)
	default:
		return adapt(f, a, b, opts)
	}
}

// IntegrateBreakpoints integrates f over consecutive pieces
// [points[0], points[1]], [points[1], points[2]], ... and sums the results.
// Use it when the integrand is known to have kinks or peaks at interior
// points. The last point may be +Inf. Degenerate pieces are skipped.
func IntegrateBreakpoints(f Func, points []float64, opts QuadratureOptions) (QuadratureResult, error) {
	if len(points) < 2 {
		return QuadratureResult{}, errors.New(errors.ErrCodeInvalidInput, "need at least two breakpoints, got %d", len(points))
	}
	var total QuadratureResult
	for i := 1; i < len(points); i++ {
		lo, hi := points[i-1], points[i]
		if hi < lo {
			return total, errors.New(errors.ErrCodeInvalidInput, "breakpoints must be ascending (%g after %g)", hi, lo)
		}
		if hi == lo {
			continue
		}
		pieceOpts := opts
		pieceOpts.SingularLower = opts.SingularLower && i == 1
		res, err := Integrate(f, lo, hi, pieceOpts)
		total = combine(total, res)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func combine(a, b QuadratureResult) QuadratureResult {
	return QuadratureResult{
		Value:       a.Value + b.Value,
		Error:       a.Error + b.Error,
		Evaluations: a.Evaluations + b.Evaluations,
		Intervals:   a.Intervals + b.Intervals,
	}
}

// adapt runs the globally adaptive bisection on a finite interval.
func adapt(g Func, a, b float64, opts QuadratureOptions) (QuadratureResult, error) {
	est, diff := gauss.apply(g, a, b)
	res := QuadratureResult{Evaluations: gauss.evaluations(), Intervals: 1}
	if !isFinite(est) {
		return res, errors.New(errors.ErrCodeInvalidInput, "integrand is not finite on [%g, %g]", a, b)
	}

	h := &intervalHeap{{lo: a, hi: b, est: est, err: diff}}
	total, totalErr := est, diff

	for {
		if totalErr <= tolerance(total, opts) {
			// The running sums drift; confirm against a fresh sum.
			if total, totalErr = sum(*h); totalErr <= tolerance(total, opts) {
				break
			}
		}
		if h.Len() >= opts.MaxIntervals {
			return unconverged(res, *h, "quadrature")
		}

		worst := heap.Pop(h).(interval)
		mid := 0.5 * (worst.lo + worst.hi)
		if mid <= worst.lo || mid >= worst.hi || worst.err <= roundoff(worst.est) {
			// No interval can be refined any further, yet the summed error
			// is still above tolerance.
			heap.Push(h, worst)
			return unconverged(res, *h, "quadrature (roundoff limit)")
		}

		le, ld := gauss.apply(g, worst.lo, mid)
		re, rd := gauss.apply(g, mid, worst.hi)
		res.Evaluations += 2 * gauss.evaluations()
		if !isFinite(le) || !isFinite(re) {
			return res, errors.New(errors.ErrCodeInvalidInput, "integrand is not finite on [%g, %g]", worst.lo, worst.hi)
		}

		heap.Push(h, interval{lo: worst.lo, hi: mid, est: le, err: ld})
		heap.Push(h, interval{lo: mid, hi: worst.hi, est: re, err: rd})
		total += le + re - worst.est
		totalErr += ld + rd - worst.err
	}

	res.Value, res.Error = sum(*h)
	res.Intervals = h.Len()
	return res, nil
}

// unconverged returns the best estimate held in h with a
// NonConvergenceError carrying the achieved error.
func unconverged(res QuadratureResult, h intervalHeap, op string) (QuadratureResult, error) {
	res.Value, res.Error = sum(h)
	res.Intervals = h.Len()
	return res, &errors.NonConvergenceError{
		Op:         op,
		Iterations: h.Len(),
		Estimate:   res.Value,
		Residual:   res.Error,
	}
}

func sum(h intervalHeap) (value, errEst float64) {
	for _, it := range h {
		value += it.est
		errEst += it.err
	}
	return value, errEst
}

func tolerance(value float64, opts QuadratureOptions) float64 {
	return math.Max(opts.AbsTol, opts.RelTol*math.Abs(value))
}

func roundoff(est float64) float64 {
	return 50 * epsilon * math.Abs(est)
}

const epsilon = 2.220446049250313e-16

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
