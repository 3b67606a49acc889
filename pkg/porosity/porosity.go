// Package porosity implements the clumped-wind ("porous") reduction of the
// continuum opacity.
//
// The wind is made of clumps whose optical depth at inverse radius u is
// τc(u) = τc0·u², with τc0 = τ*·h. A clump that is optically thick shields
// its own interior, so the effective opacity saturates:
//
//	κ_eff / κ = (1 - e^{-τc}) / τc
//
// The Rosseland variant uses the harmonic weighting 1/(1 + τc) instead, and
// the anisotropic variants flatten the clumps so that τc is divided by the
// direction cosine of the ray.
package porosity

import "math"

// anisotropicFloor is the |μ|/τc ratio below which the anisotropic bridging
// law is replaced by its asymptote |μ|/τc.
const anisotropicFloor = 1e-10

// Law is a porosity law. The zero value is a smooth wind.
type Law struct {
	TauClump0   float64 // Clump optical depth at the photosphere, τ*·h
	Anisotropic bool    // Flattened clumps; the factor depends on μ
	Rosseland   bool    // Harmonic (Rosseland-mean) weighting
}

// Porous reports whether the law changes the opacity at all.
func (l Law) Porous() bool { return l.TauClump0 > 0 }

// TauClump returns the clump optical depth at inverse radius u.
func (l Law) TauClump(u float64) float64 { return l.TauClump0 * u * u }

// Factor returns κ_eff/κ at inverse radius u for a ray with direction
// cosine mu. The result lies in (0, 1].
//
// The factor is [EffectiveOpacity] (or its Rosseland form) per unit
// opacity, with the clump optical depth τc(u) standing in for κh.
// Flattened clumps see τc/|μ|.
func (l Law) Factor(u, mu float64) float64 {
	if !l.Porous() {
		return 1
	}
	t := l.TauClump(u)
	if t == 0 {
		return 1
	}
	if l.Anisotropic {
		mu = math.Abs(mu)
		if mu/t <= anisotropicFloor {
			return mu / t
		}
		t /= mu
	}
	return l.perUnitOpacity(t)
}

// perUnitOpacity evaluates the effective opacity of clumps with optical
// depth t, for κ = t and unit separation, divided by κ.
func (l Law) perUnitOpacity(t float64) float64 {
	if l.Rosseland {
		return EffectiveOpacityRosseland(t, 1) / t
	}
	return EffectiveOpacity(t, 1) / t
}

// EffectiveOpacity maps a local smooth opacity per unit length κ to the
// effective opacity of a wind whose clumps are separated by h. The clump
// optical depth is κh, so
//
//	EffectiveOpacity(κ, h) = κ·(1 - e^{-κh})/(κh) = (1 - e^{-κh})/h
//
// It is exactly κ for h = 0, non-decreasing in κ, non-increasing in h, and
// bounded by 1/h.
func EffectiveOpacity(kappa, h float64) float64 {
	if h == 0 || kappa == 0 {
		return kappa
	}
	return kappa * Exprel(-kappa*h)
}

// EffectiveOpacityRosseland is the Rosseland-weighted counterpart of
// EffectiveOpacity: κ/(1 + κh).
func EffectiveOpacityRosseland(kappa, h float64) float64 {
	if h == 0 || kappa == 0 {
		return kappa
	}
	return kappa / (1 + kappa*h)
}

// Exprel returns (e^x - 1)/x, continuous at x = 0.
func Exprel(x float64) float64 {
	if x == 0 {
		return 1
	}
	if math.Abs(x) < 1e-5 {
		return 1 + x/2 + x*x/6
	}
	if x < -700 {
		return -1 / x
	}
	return math.Expm1(x) / x
}
