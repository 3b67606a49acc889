// Package numeric provides the quadrature and root-finding kernels used by
// the optical-depth engine and its integrators.
//
// # Quadrature
//
// [Integrate] is a globally adaptive Gauss-Legendre scheme. Every subinterval
// is evaluated with a 10-point and a 21-point rule (node tables come from
// gonum's integrate/quad package); the difference between the two is the
// local error estimate, and the interval with the largest estimate is
// bisected until the total estimate meets the tolerance or the interval
// budget is exhausted.
//
// Semi-infinite and infinite intervals are mapped onto [0, 1) with
// x = a + t/(1-t). Gauss nodes never touch the endpoints, so integrable
// endpoint singularities are survivable; [QuadratureOptions.SingularLower]
// additionally applies x = a + (b-a)t³ on finite intervals, which weakens
// a power-law singularity at the lower limit.
//
//	res, err := numeric.Integrate(func(x float64) float64 {
//	    return 1 / (x * x)
//	}, 1, math.Inf(1), numeric.QuadratureOptions{})
//	// res.Value ≈ 1
//
// # Root finding
//
// [SolveRoot] runs Newton iteration and falls back to bisection whenever a
// Newton step leaves the bracket, stalls, or meets a vanishing derivative.
// When neither method reaches the tolerance within MaxIter iterations it
// returns a [errors.NonConvergenceError]; callers attribute it to the ray
// that triggered it.
//
// Both kernels are pure functions of their arguments and safe for
// concurrent use.
package numeric
