package opticaldepth

import (
	"math"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/numeric"
	"github.com/matzehuels/windprofile/pkg/porosity"
	"github.com/matzehuels/windprofile/pkg/wind"
)

const (
	// muSplit is the direction cosine above which the integral is taken in
	// u = 1/r instead of z. The u form converges faster in the outer wind
	// but poorly at small μ.
	muSplit = 0.6

	// largeP is the impact parameter beyond which the wind is treated as
	// coasting at terminal speed and the integral is done in closed form.
	largeP = 1e4

	// Butterworth filter standing in for the ionisation fraction of the
	// He-like contaminant: 1 - sqrt(u^2n/(u^2n + ub^2n)).
	butterworthOrder = 3
	butterworthU     = 0.2
)

// numerical integrates the local opacity
//
//	dτ/dz = τ*·u²/w · P(u, μ) · (1 + κ·f(u))
//
// along the ray, where P is the porosity factor and f the He-like filter.
// W carries the velocity floor, so w never reaches zero.
type numerical struct {
	tauStar float64
	vel     wind.Velocity
	law     porosity.Law
	kappa   float64
	quad    numeric.QuadratureOptions
}

func newNumerical(m *wind.Model) *numerical {
	n := &numerical{
		tauStar: m.TauStar(),
		vel:     m.Velocity(),
		law: porosity.Law{
			TauClump0:   m.TauClump0(),
			Anisotropic: m.Anisotropic(),
			Rosseland:   m.Rosseland(),
		},
		quad: m.Quadrature(),
	}
	if m.HeLike() {
		n.kappa = m.KappaRatio()
	}
	return n
}

func (n *numerical) Method() wind.Method { return wind.MethodNumerical }

// heLike returns the opacity multiplier 1 + κ·f(u).
func (n *numerical) heLike(u float64) float64 {
	if n.kappa == 0 {
		return 1
	}
	return 1 + n.kappa*ButterworthFilter(u)
}

// ButterworthFilter approximates the fraction of the He-like contaminant
// that is still recombining at inverse radius u. It is 1 far out and falls
// to 0 near the star.
func ButterworthFilter(u float64) float64 {
	u2n := math.Pow(u, 2*butterworthOrder)
	ub2n := math.Pow(butterworthU, 2*butterworthOrder)
	return 1 - math.Sqrt(u2n/(u2n+ub2n))
}

func (n *numerical) depth(p, z float64) (float64, []errors.Warning, error) {
	if n.tauStar == 0 {
		return 0, nil, nil
	}
	t, err := integrateRay(p, z, n.local, n.quad)
	if err != nil {
		return 0, nil, err
	}
	return n.tauStar * t, nil, nil
}

// local is the opacity per unit τ*·u² at inverse radius u and direction
// cosine mu.
func (n *numerical) local(u, mu float64) float64 {
	return n.law.Factor(u, mu) * n.heLike(u) / n.vel.W(u)
}

// integrateRay integrates dτ/dz = u²·local(u, μ) along the ray p from z to
// the observer. Points with z < 0 use τ(z) = 2τ(0) - τ(-z), which holds for
// any local opacity that depends on μ only through |μ|.
func integrateRay(p, z float64, local func(u, mu float64) float64, quad numeric.QuadratureOptions) (float64, error) {
	if z < 0 {
		mid, err := integrateRay(p, 0, local, quad)
		if err != nil {
			return 0, err
		}
		near, err := integrateRay(p, -z, local, quad)
		if err != nil {
			return 0, err
		}
		return 2*mid - near, nil
	}

	var (
		res numeric.QuadratureResult
		err error
	)
	switch {
	case wind.Mu(p, z) > muSplit:
		// dz = du/(u²·sqrt(1 - p²u²))
		res, err = numeric.Integrate(func(u float64) float64 {
			mu := math.Sqrt(1 - p*p*u*u)
			return local(u, mu) / mu
		}, 0, wind.U(p, z), quad)
	case p > largeP:
		return local(0, 1) * (math.Pi/2 - math.Atan(z/p)) / p, nil
	default:
		res, err = numeric.Integrate(func(s float64) float64 {
			u := 1 / math.Hypot(p, s)
			return u * u * local(u, s*u)
		}, z, math.Inf(1), quad)
	}
	if err != nil {
		return 0, errors.Attribute(err, p, z)
	}
	return res.Value, nil
}
