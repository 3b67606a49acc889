package numeric

import (
	"math"

	"github.com/matzehuels/windprofile/pkg/errors"
)

// Default root-finding settings.
const (
	DefaultRootRelTol  = 1e-10
	DefaultRootAbsTol  = 1e-14
	DefaultRootMaxIter = 100
)

// RootProblem describes a one-dimensional root solve.
//
// Lo and Hi define the bracket used by the bisection fallback; a bracket is
// considered supplied when Lo < Hi. Newton iterates are never accepted
// outside a supplied bracket.
type RootProblem struct {
	F       Func    // Function whose root is sought
	DF      Func    // Derivative of F
	Guess   float64 // Initial Newton iterate
	Lo, Hi  float64 // Bracket (optional)
	RelTol  float64 // Relative step tolerance
	AbsTol  float64 // Absolute step tolerance
	MaxIter int     // Iteration budget shared by Newton and bisection
}

// RootResult is the outcome of [SolveRoot].
type RootResult struct {
	Root       float64
	Iterations int
	Bisections int // Iterations that fell back to bisection
}

// SolveRoot finds a root of p.F.
//
// Newton's method is tried first. A step is rejected in favour of bisection
// when the derivative vanishes, the iterate is not finite, the iterate leaves
// the bracket, or the step fails to halve compared with the previous one.
// Without a sign-changing bracket a rejected step ends the solve with a
// NonConvergenceError.
func SolveRoot(p RootProblem) (RootResult, error) {
	if p.F == nil || p.DF == nil {
		return RootResult{}, errors.New(errors.ErrCodeInvalidInput, "root problem needs both F and DF")
	}
	if p.RelTol <= 0 {
		p.RelTol = DefaultRootRelTol
	}
	if p.AbsTol <= 0 {
		p.AbsTol = DefaultRootAbsTol
	}
	if p.MaxIter <= 0 {
		p.MaxIter = DefaultRootMaxIter
	}

	hasBracket := p.Lo < p.Hi
	lo, hi := p.Lo, p.Hi
	var flo float64
	bracketed := false
	if hasBracket {
		flo = p.F(lo)
		fhi := p.F(hi)
		if flo == 0 {
			return RootResult{Root: lo}, nil
		}
		if fhi == 0 {
			return RootResult{Root: hi}, nil
		}
		bracketed = math.Signbit(flo) != math.Signbit(fhi)
	}

	x := p.Guess
	if hasBracket && (x <= lo || x >= hi || math.IsNaN(x)) {
		x = 0.5 * (lo + hi)
	}

	res := RootResult{}
	dxPrev := math.Inf(1)
	for res.Iterations < p.MaxIter {
		res.Iterations++
		fx := p.F(x)
		if fx == 0 {
			res.Root = x
			return res, nil
		}
		if bracketed {
			if math.Signbit(fx) == math.Signbit(flo) {
				lo, flo = x, fx
			} else {
				hi = x
			}
		}

		dfx := p.DF(x)
		next := x - fx/dfx
		rejected := dfx == 0 || !isFinite(next) ||
			(hasBracket && (next <= lo || next >= hi)) ||
			(bracketed && math.Abs(next-x) > 0.5*math.Abs(dxPrev))

		if rejected {
			if !bracketed {
				return res, &errors.NonConvergenceError{
					Op:         "root",
					Iterations: res.Iterations,
					Estimate:   x,
					Residual:   math.Abs(fx),
				}
			}
			next = 0.5 * (lo + hi)
			res.Bisections++
		}

		step := math.Abs(next - x)
		if step <= p.AbsTol+p.RelTol*math.Abs(next) {
			res.Root = next
			return res, nil
		}
		if rejected {
			dxPrev = hi - lo
		} else {
			dxPrev = step
		}
		x = next
	}

	return res, &errors.NonConvergenceError{
		Op:         "root",
		Iterations: res.Iterations,
		Estimate:   x,
		Residual:   math.Abs(p.F(x)),
	}
}
