package integrators

import (
	"math"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/numeric"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// grazingP is the impact parameter at which the emitting region of a red
// shifted frequency is cut off. It sits just outside the limb to keep the
// quadrature away from the occultation edge.
const grazingP = 1 + 1e-5

// UxRoot returns the inverse radius u at which the surface of constant
// frequency x crosses the impact parameter p = 1 + 1e-5, i.e. the root of
//
//	f(u) = w²(1 - p²u²) - x²
//
// in [0, 1/p]. The velocity law must have no floor.
func UxRoot(vel wind.Velocity, x float64) (float64, error) {
	const p2 = grazingP * grazingP
	x2 := x * x
	beta := vel.Beta

	f := func(u float64) float64 {
		w := vel.W(u)
		return w*w*(1-p2*u*u) - x2
	}
	df := func(u float64) float64 {
		w := vel.W(u)
		return -2 * w * w * (beta + p2*u - (1+beta)*u*u*p2) / (1 - u)
	}

	res, err := numeric.SolveRoot(numeric.RootProblem{
		F:     f,
		DF:    df,
		Guess: 1 - math.Pow(math.Abs(x), 1/beta),
		Lo:    0,
		Hi:    1 / grazingP,
	})
	if err != nil {
		return 0, errors.AttributeX(err, x)
	}
	return res.Root, nil
}
