package opticaldepth

import (
	"math"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/numeric"
	"github.com/matzehuels/windprofile/pkg/series"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// grazingWindow is the |p - 1| below which analytic results carry a
// DOMAIN_WARNING.
const grazingWindow = 1e-3

// analytic evaluates closed-form optical depths for a β = 1 wind with zero
// velocity floor. Porous winds use one of three clump models:
//
//   - stretch (isotropic): κ_eff/κ = 1/(1 + τc0·u²)
//   - expansion: κ_eff/κ = w/(w + τc0·u)
//   - anisotropic: κ_eff/κ = min(1, |μ|/(τc0·u²))
//
// The He-like contaminant has no closed form. Its share κ·∫f(u)·u²/w·P dz
// is integrated with the same filter f as the numerical strategy and added
// to the closed-form depth.
type analytic struct {
	tauStar     float64
	tauClump0   float64
	anisotropic bool
	expansion   bool
	kappa       float64
	quad        numeric.QuadratureOptions
	table       *series.Table
}

func newAnalytic(m *wind.Model, table *series.Table) *analytic {
	a := &analytic{
		tauStar:     m.TauStar(),
		tauClump0:   m.TauClump0(),
		anisotropic: m.Anisotropic(),
		expansion:   m.Expansion(),
		quad:        m.Quadrature(),
		table:       table,
	}
	if m.HeLike() {
		a.kappa = m.KappaRatio()
	}
	return a
}

func (a *analytic) Method() wind.Method { return wind.MethodAnalytic }

func (a *analytic) depth(p, z float64) (float64, []errors.Warning, error) {
	var warnings []errors.Warning
	if math.Abs(p-1) <= grazingWindow {
		warnings = append(warnings, errors.DomainWarning(p, z,
			"ray grazes the photosphere (|p-1| = %.2g); analytic result is approximate", math.Abs(p-1)))
	}
	if a.tauStar == 0 {
		return 0, warnings, nil
	}

	var t float64
	switch {
	case a.tauClump0 == 0:
		t = a.smooth(p, z)
	case a.anisotropic:
		t = a.anisotropicDepth(p, z)
	case a.expansion:
		t = a.expansionDepth(p, z)
	default:
		t = a.isotropic(p, z)
	}
	if a.kappa > 0 {
		he, err := integrateRay(p, z, a.heLikeLocal, a.quad)
		if err != nil {
			return 0, nil, err
		}
		t += a.kappa * he
	}
	return a.tauStar * t, warnings, nil
}

// clumpFactor is κ_eff/κ of the closed-form clump model at inverse radius u
// and direction cosine mu.
func (a *analytic) clumpFactor(u, mu float64) float64 {
	tc := a.tauClump0
	switch {
	case tc == 0:
		return 1
	case a.anisotropic:
		if t := tc * u * u; t > math.Abs(mu) {
			return math.Abs(mu) / t
		}
		return 1
	case a.expansion:
		w := 1 - u
		return w / (w + tc*u)
	default:
		return 1 / (1 + tc*u*u)
	}
}

// heLikeLocal is the He-like opacity per unit κ·τ*·u² of a β = 1 wind.
func (a *analytic) heLikeLocal(u, mu float64) float64 {
	return ButterworthFilter(u) * a.clumpFactor(u, mu) / (1 - u)
}

// smooth is ∫_z^∞ dz'/(r(r-1)), the optical depth per unit τ* of a smooth
// β = 1 wind.
func (a *analytic) smooth(p, z float64) float64 {
	if series.SmoothA1Applies(p, z) {
		return a.table.SmoothA1(p, z)
	}
	r := math.Hypot(p, z)
	mu := z / r
	zstar := math.Sqrt(math.Abs(1 - p*p))
	if p > 1 {
		return (math.Pi/2 + math.Atan(1/zstar) - math.Atan(z/zstar) - math.Atan(mu/zstar)) / zstar
	}
	arg := (mu + zstar) * (z + zstar) * (r / (r*r - 1)) / (1 + zstar)
	return math.Log(arg) / zstar
}

// isotropic is the stretch porosity model.
func (a *analytic) isotropic(p, z float64) float64 {
	return (a.smooth(p, z) + a.isotropicCorrection(p, z)) / (1 + a.tauClump0)
}

func (a *analytic) isotropicCorrection(p, z float64) float64 {
	s2 := a.tauClump0
	s := math.Sqrt(s2)
	zh := math.Hypot(p, s)
	r2 := p*p + z*z
	mu := z / math.Sqrt(r2)

	var first float64
	if x := zh / z; z > 0 && series.IsotropicApplies(x) {
		first = s2 / z * a.table.Isotropic(x)
	} else {
		first = s2 / zh * (math.Pi/2 - math.Atan(z/zh))
	}
	second := s / zh * math.Atanh(zh*s/(s2+r2*(1+mu)))
	return first + second
}

// expansionDepth is the expansion porosity model, split on whether a clump
// at the photosphere is optically thick.
func (a *analytic) expansionDepth(p, z float64) float64 {
	switch {
	case a.tauClump0 > 1:
		return expansionThick(p, z, a.tauClump0-1)
	case a.tauClump0 == 1:
		return expansionMarginal(p, z)
	default:
		return expansionThin(p, z, 1-a.tauClump0)
	}
}

func expansionThick(p, z, s float64) float64 {
	if p == 0 {
		return math.Log1p(s/z) / s
	}
	mu := z / math.Hypot(p, z)
	switch {
	case p > s:
		zh := math.Sqrt(p*p - s*s)
		return (math.Pi/2 + math.Atan(-s/zh) - math.Atan(-s*mu/zh) - math.Atan(z/zh)) / zh
	case p == s:
		return (mu-1)/(s*mu) + 1/z
	default:
		zh := math.Sqrt(s*s - p*p)
		if z == zh {
			return math.Log1p(zh/s) / zh
		}
		ka := (s + zh) / (s - zh)
		kb := (s*mu - zh) / (s*mu + zh)
		kc := (z + zh) / (z - zh)
		return math.Log(ka*kb*kc) / (2 * zh)
	}
}

func expansionMarginal(p, z float64) float64 {
	if p == 0 {
		return 1 / z
	}
	return (math.Pi/2 - math.Atan(z/p)) / p
}

func expansionThin(p, z, s float64) float64 {
	if p == 0 {
		return math.Log(z/(z-s)) / s
	}
	mu := z / math.Hypot(p, z)
	switch {
	case p > s:
		zh := math.Sqrt(p*p - s*s)
		return (math.Pi/2 + math.Atan(s/zh) - math.Atan(s*mu/zh) - math.Atan(z/zh)) / zh
	case p == s:
		return (1-mu)/(mu*s) + 1/z
	default:
		zh := math.Sqrt(s*s - p*p)
		ka := (s - zh) / (s + zh)
		kb := (s*mu + zh) / (s*mu - zh)
		kc := (z + zh) / (z - zh)
		return math.Log(ka*kb*kc) / (2 * zh)
	}
}

// anisotropicDepth is the flattened-clump model. Inside the radius r1 where
// |μ| = τc0·u² the clumps are opaque and the opacity is purely geometric.
func (a *analytic) anisotropicDepth(p, z float64) float64 {
	tc := a.tauClump0
	r1sq := (p*p + math.Hypot(p*p, 2*tc)) / 2
	r1 := math.Sqrt(r1sq)
	z1 := math.Sqrt(r1sq - p*p)
	r := math.Hypot(p, z)

	switch {
	case z > z1:
		return a.smooth(p, z)
	case z >= 0:
		return a.smooth(p, z1) + opaqueShell(r, r1)/tc
	case z >= -z1:
		return a.smooth(p, z1) + (2*opaqueShell(p, r1)-opaqueShell(r, r1))/tc
	default:
		return 2*(a.smooth(p, z1)+opaqueShell(p, r1)/tc) - a.smooth(p, -z)
	}
}

// opaqueShell is ∫ r/(r-1) dr from ra to rb.
func opaqueShell(ra, rb float64) float64 {
	return rb - ra + math.Log((rb-1)/(ra-1))
}
