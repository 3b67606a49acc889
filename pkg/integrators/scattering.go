package integrators

import (
	"math/cmplx"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/porosity"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// Castor's two-point approximation to the angle-averaged Sobolev escape
// probability (Radiation Hydrodynamics, pp. 128-129).
var (
	castorZ   = complex(-0.97515, -1.193464)
	castorRBZ = complex(-0.5, 0.01193391)
)

// Scattering describes resonance scattering of the emitted line in the
// Sobolev approximation. The zero value is optically thin and leaves the
// emission unchanged.
type Scattering struct {
	Tau0Star       float64 `json:"tau0_star" toml:"tau0_star"`
	BetaSobolev    float64 `json:"beta_sobolev" toml:"beta_sobolev"`
	OpticallyThick bool    `json:"optically_thick,omitempty" toml:"optically_thick"`
}

// Validate rejects negative parameters.
func (s Scattering) Validate() error {
	if err := errors.ValidateNonNegative(errors.ErrCodeConfiguration, "tau0_star", s.Tau0Star); err != nil {
		return err
	}
	return errors.ValidateNonNegative(errors.ErrCodeConfiguration, "beta_sobolev", s.BetaSobolev)
}

// Active reports whether scattering modifies the emission.
func (s Scattering) Active() bool { return s.OpticallyThick || s.Tau0Star > 0 }

// EscapeProbability returns the directional escape probability at inverse
// radius u towards direction cosine mu, normalised by its angle average.
func (s Scattering) EscapeProbability(u, mu float64, vel wind.Velocity) float64 {
	if !s.Active() {
		return 1
	}
	sigma := s.BetaSobolev*u/(1-u) - 1
	if s.OpticallyThick {
		return (1 + sigma*mu*mu) / (1 + sigma/3)
	}
	w := vel.W(u)
	return escape(s.Tau0Star*u/(w*w), sigma, mu)
}

// escape is the ratio of the escape probability along μ to its angle
// average, for line-centre depth tau0 and velocity-gradient anisotropy σ.
func escape(tau0, sigma, mu float64) float64 {
	angle := 1 + sigma*mu*mu
	if angle <= 0 {
		return 0
	}
	return porosity.Exprel(-tau0/angle) / averageEscape(tau0, sigma)
}

func averageEscape(tau0, sigma float64) float64 {
	t0 := complex(tau0, 0)
	if sigma == 0 {
		return 2 * real(castorRBZ/(t0/castorZ-1))
	}
	s := complex(sigma, 0)
	t := cmplx.Sqrt((t0/castorZ - 1) / s)
	tlog := t0 * cmplx.Log((t-1)/(t+1))
	return -2 * real(castorRBZ*(tlog/(t*castorZ*2*s)+1))
}
