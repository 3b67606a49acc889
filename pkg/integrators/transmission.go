package integrators

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/numeric"
	"github.com/matzehuels/windprofile/pkg/opticaldepth"
)

// occultationMargin widens the occulting disk used for angle averaging, so
// that no ray passes within 1% of the limb where the velocity vanishes.
const occultationMargin = 1.01

// AngleAveragedTransmission returns the mean of e^{-τ} over the directions
// from a point at inverse radius u that are not blocked by the star:
//
//	T(u) = ½ ∫_{μocc}^{1} e^{-τ(p, z)} dμ,  p = sqrt(1-μ²)/u, z = μ/u
//
// with μocc = -sqrt(1 - (1.01u)²).
func AngleAveragedTransmission(e *opticaldepth.Engine, u float64) (float64, error) {
	if err := errors.ValidateRange(errors.ErrCodeInvalidInput, "u", u, 0, 1); err != nil {
		return 0, err
	}
	if u == 0 {
		return 1, nil
	}
	pu := occultationMargin * u
	muOcc := 0.0
	if pu < 1 {
		muOcc = -math.Sqrt(1 - pu*pu)
	}

	var firstErr error
	g := func(mu float64) float64 {
		if firstErr != nil {
			return 0
		}
		p := math.Sqrt(1-mu*mu) / u
		tau, err := e.Tau(p, mu/u)
		if err != nil {
			firstErr = err
			return 0
		}
		return math.Exp(-tau)
	}
	res, err := numeric.Integrate(g, muOcc, 1, e.Model().Quadrature())
	if firstErr != nil {
		return 0, firstErr
	}
	if err != nil {
		return 0, err
	}
	return 0.5 * res.Value, nil
}

// TransmissionCurve evaluates AngleAveragedTransmission at every u in
// parallel.
func TransmissionCurve(ctx context.Context, e *opticaldepth.Engine, us []float64) ([]float64, error) {
	out := make([]float64, len(us))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers())
	for i, u := range us {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := AngleAveragedTransmission(e, u)
			if err != nil {
				return err
			}
			out[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Luminosity is the wind-integrated line luminosity.
type Luminosity struct {
	Absorbed    float64 `json:"absorbed"`
	Transparent float64 `json:"transparent"`
	// Fraction is Absorbed/Transparent, the fractional emission that
	// escapes the wind.
	Fraction float64 `json:"fraction"`
}

// IntegratedLuminosity returns
//
//	L = ∫_{Umin}^{U0} u^q T(u) / w² du
//
// with T the angle-averaged transmission, or T = 1 when transparentCore is
// set.
func IntegratedLuminosity(e *opticaldepth.Engine, transparentCore bool) (float64, error) {
	m := e.Model()
	vel := m.EmissionVelocity()
	q := m.Q()

	var firstErr error
	g := func(u float64) float64 {
		if firstErr != nil {
			return 0
		}
		t := 1.0
		if !transparentCore {
			var err error
			if t, err = AngleAveragedTransmission(e, u); err != nil {
				firstErr = err
				return 0
			}
		}
		w := vel.W(u)
		return math.Pow(u, q) * t / (w * w)
	}

	opts := m.Quadrature()
	if !transparentCore {
		opts = opts.Coarsen(10)
	}
	opts.SingularLower = q < 0 && m.UMin() == 0
	res, err := numeric.Integrate(g, m.UMin(), m.U0(), opts)
	if firstErr != nil {
		return 0, firstErr
	}
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// FractionalEmission returns the absorbed and transparent-core luminosities
// and their ratio.
func FractionalEmission(e *opticaldepth.Engine) (Luminosity, error) {
	abs, err := IntegratedLuminosity(e, false)
	if err != nil {
		return Luminosity{}, err
	}
	intrinsic, err := IntegratedLuminosity(e, true)
	if err != nil {
		return Luminosity{}, err
	}
	l := Luminosity{Absorbed: abs, Transparent: intrinsic}
	if intrinsic > 0 {
		l.Fraction = abs / intrinsic
	}
	return l, nil
}
