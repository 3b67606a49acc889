package integrators

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/windprofile/pkg/errors"
)

// LineType selects a component of the He-like triplet.
type LineType int

const (
	Resonance        LineType = iota // w
	Intercombination                 // y (x is not modelled)
	Forbidden                        // z
)

func (t LineType) String() string {
	switch t {
	case Intercombination:
		return "intercombination"
	case Forbidden:
		return "forbidden"
	default:
		return "resonance"
	}
}

// HeLikeRatio models the radial dependence of the forbidden-to-
// intercombination ratio under photoexcitation by the stellar radiation
// field:
//
//	R(u) = R0 / (1 + P·(1 - sqrt(1 - u²)))
//
// where the bracket is twice the geometric dilution factor.
type HeLikeRatio struct {
	R0 float64 `json:"r0" toml:"r0"`
	P  float64 `json:"p" toml:"p"`
}

// Validate rejects negative parameters.
func (h HeLikeRatio) Validate() error {
	if err := errors.ValidateNonNegative(errors.ErrCodeConfiguration, "r0", h.R0); err != nil {
		return err
	}
	return errors.ValidateNonNegative(errors.ErrCodeConfiguration, "p", h.P)
}

// R returns the f/i ratio at inverse radius u.
func (h HeLikeRatio) R(u float64) float64 {
	return h.R0 / (1 + h.P*(1-math.Sqrt(1-u*u)))
}

// Factor returns the fraction of the upper-level population that decays
// through line t at inverse radius u. The resonance line is unaffected.
func (h HeLikeRatio) Factor(u float64, t LineType) float64 {
	switch t {
	case Intercombination:
		return 1 / (1 + h.R(u))
	case Forbidden:
		r := h.R(u)
		return r / (1 + r)
	default:
		return 1
	}
}

// CombineTriplet returns (r + G·(i + f))/(1 + G) bin by bin.
func CombineTriplet(r, i, f []float64, g float64) []float64 {
	out := make([]float64, len(r))
	floats.AddTo(out, i, f)
	floats.Scale(g, out)
	floats.Add(out, r)
	floats.Scale(1/(1+g), out)
	return out
}
