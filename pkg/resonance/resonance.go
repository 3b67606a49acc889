// Package resonance computes the optical depth of a Doppler-shifted
// resonance line ("RAD" absorption) along a ray through the wind.
//
// A photon emitted at depth z0 with line-of-sight wind velocity wz0 = w·μ
// sees absorbers further out moving at wz ≥ wz0. In the absorber's frame its
// energy offset from the absorbing transition is
//
//	x(z) = ΔE + (1 - ΔE)(wz(z) - wz0)·v∞
//
// and the local absorption rate is the wind density times a Lorentzian
// (Cauchy) profile in x with half width γE/2:
//
//	dτ/dz = τ0 · u²/w · φ(x; γE/2)
//
// ΔE and γE are in units of the absorbing line energy and v∞ in units of c.
//
// The profile can be much narrower than the ray, so [Model.Depth] solves the
// resonance condition x(z) = 0 with [numeric.SolveRoot] and puts quadrature
// breakpoints around the root rather than relying on a fixed grid.
package resonance

import (
	"math"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/numeric"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// peakWidths is the half-width, in units of the Lorentzian width mapped to
// z, of the window that is integrated separately around a resonance.
const peakWidths = 10

// Params are the physical parameters of the resonance line.
type Params struct {
	Tau0      float64 `json:"tau0" toml:"tau0"`
	Beta      float64 `json:"beta" toml:"beta"`
	DeltaE    float64 `json:"delta_e" toml:"delta_e"`
	GammaE    float64 `json:"gamma_e" toml:"gamma_e"`
	VInfinity float64 `json:"v_infinity" toml:"v_infinity"`
}

// Validate reports out-of-domain parameters as configuration errors.
func (p Params) Validate() error {
	if err := errors.ValidateNonNegative(errors.ErrCodeConfiguration, "tau0", p.Tau0); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative(errors.ErrCodeConfiguration, "beta", p.Beta); err != nil {
		return err
	}
	if err := errors.ValidateOpenRange(errors.ErrCodeConfiguration, "delta_e", p.DeltaE, -1, 1); err != nil {
		return err
	}
	if err := errors.ValidateOpenRange(errors.ErrCodeConfiguration, "v_infinity", p.VInfinity, 0, 1); err != nil {
		return err
	}
	if err := errors.ValidateFinite("gamma_e", p.GammaE); err != nil || p.GammaE <= 0 {
		return errors.New(errors.ErrCodeConfiguration, "gamma_e must be positive and finite, got %g", p.GammaE)
	}
	return nil
}

// ParamsFromWind extracts the resonance parameters of a wind model. τ* is
// read as τ0.
func ParamsFromWind(m *wind.Model) Params {
	return Params{
		Tau0:      m.TauStar(),
		Beta:      m.Beta(),
		DeltaE:    m.DeltaE(),
		GammaE:    m.GammaE(),
		VInfinity: m.VInfinity(),
	}
}

// Model evaluates resonance optical depths for fixed line parameters.
// It is immutable and safe for concurrent use.
type Model struct {
	params Params
	vel    wind.Velocity
	quad   numeric.QuadratureOptions
}

// New validates params and returns a Model.
func New(params Params, quad numeric.QuadratureOptions) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Model{
		params: params,
		vel:    wind.Velocity{Beta: params.Beta},
		quad:   quad,
	}, nil
}

// Params returns the line parameters.
func (m *Model) Params() Params { return m.params }

// start returns the projected velocity at the emission point. A start at
// z0 = -∞ sees the full approaching wind, wz0 = -1.
func (m *Model) start(p, z0 float64) float64 {
	if math.IsInf(z0, -1) {
		return -m.vel.W(0)
	}
	return m.vel.LineOfSight(p, z0)
}

// offset returns x for an absorber with projected velocity wz.
func (m *Model) offset(wz, wz0 float64) float64 {
	d := m.params.DeltaE
	return d + (1-d)*(wz-wz0)*m.params.VInfinity
}

// Integrand returns the local resonance absorption rate per unit τ0 at depth
// z, for a photon emitted at z0 on the ray with impact parameter p.
func (m *Model) Integrand(p, z0, z float64) float64 {
	return m.integrand(p, m.start(p, z0), z)
}

func (m *Model) integrand(p, wz0, z float64) float64 {
	u := wind.U(p, z)
	w := m.vel.W(u)
	x := m.offset(w*wind.Mu(p, z), wz0)
	return u * u / w * lorentzian(x, m.params.GammaE/2)
}

// Integrand is the package-level form of [Model.Integrand] for callers that
// inspect the integrand without building a Model. The velocity law is
// unfloored.
func Integrand(z, p, z0, beta, deltaE, gammaE, vInfinity float64) float64 {
	m := &Model{
		params: Params{Beta: beta, DeltaE: deltaE, GammaE: gammaE, VInfinity: vInfinity},
		vel:    wind.Velocity{Beta: beta},
	}
	return m.Integrand(p, z0, z)
}

// lorentzian is the Cauchy density with half width at half maximum a.
func lorentzian(x, a float64) float64 {
	y := x / a
	return 1 / (math.Pi * a * (1 + y*y))
}

// Resonance describes where, if anywhere, the resonance condition x = 0 is
// met beyond the emission point.
type Resonance struct {
	Z     float64 // Depth of the resonance
	Width float64 // Lorentzian half width mapped to z
	Found bool
}

// ResonancePoint locates the depth z > z0 at which x(z) = 0.
//
// The projected velocity is non-decreasing in z, so a resonance exists only
// if the target velocity wz0 - ΔE/((1-ΔE)v∞) lies in (wz0, 1). Otherwise
// Found is false and no error is returned.
func (m *Model) ResonancePoint(p, z0 float64) (Resonance, error) {
	wz0 := m.start(p, z0)
	target := wz0 - m.params.DeltaE/((1-m.params.DeltaE)*m.params.VInfinity)
	if !(target > wz0 && target < m.vel.W(0)) {
		return Resonance{}, nil
	}

	f := func(z float64) float64 { return m.vel.LineOfSight(p, z) - target }
	df := func(z float64) float64 { return m.vel.DLineOfSight(p, z) }

	lo := z0
	if math.IsInf(lo, -1) {
		lo = -1
		for f(lo) >= 0 {
			lo *= 2
			if lo < -1e15 {
				return Resonance{}, errors.New(errors.ErrCodeInternal, "no lower bracket for resonance on p=%g", p)
			}
		}
	}
	hi := math.Max(lo, 0) + 1
	for f(hi) <= 0 {
		hi = 2*hi + 1
		if hi > 1e15 {
			return Resonance{}, errors.New(errors.ErrCodeInternal, "no upper bracket for resonance on p=%g", p)
		}
	}

	res, err := numeric.SolveRoot(numeric.RootProblem{
		F:     f,
		DF:    df,
		Guess: 0.5 * (lo + hi),
		Lo:    lo,
		Hi:    hi,
	})
	if err != nil {
		return Resonance{}, errors.Attribute(err, p, z0)
	}

	slope := (1 - m.params.DeltaE) * m.params.VInfinity * df(res.Root)
	width := math.Inf(1)
	if slope > 0 {
		width = m.params.GammaE / 2 / slope
	}
	return Resonance{Z: res.Root, Width: width, Found: true}, nil
}

// Depth returns the resonance optical depth from the emission point (p, z0)
// to the observer. Occulted points return wind.OccultedDepth.
func (m *Model) Depth(p, z0 float64) (float64, error) {
	if wind.IsOcculted(p, z0) {
		return wind.OccultedDepth, nil
	}
	if m.params.Tau0 == 0 {
		return 0, nil
	}

	wz0 := m.start(p, z0)
	g := func(z float64) float64 { return m.integrand(p, wz0, z) }

	points, err := m.breakpoints(p, z0)
	if err != nil {
		return 0, err
	}
	res, err := numeric.IntegrateBreakpoints(g, points, m.quad)
	if err != nil {
		return 0, errors.Attribute(err, p, z0)
	}
	return m.params.Tau0 * res.Value, nil
}

// TotalDepth returns the resonance optical depth along the whole ray, from
// z = -∞. Rays with p ≤ 1 are occulted.
func (m *Model) TotalDepth(p float64) (float64, error) {
	if p <= 1 {
		return wind.OccultedDepth, nil
	}
	return m.Depth(p, math.Inf(-1))
}

// breakpoints returns the quadrature breakpoints from z0 to +∞, bracketing
// the resonance when there is one.
func (m *Model) breakpoints(p, z0 float64) ([]float64, error) {
	r, err := m.ResonancePoint(p, z0)
	if err != nil {
		return nil, err
	}
	if !r.Found {
		return []float64{z0, math.Inf(1)}, nil
	}

	points := []float64{z0}
	if lo := r.Z - peakWidths*r.Width; lo > z0 && !math.IsInf(lo, 0) {
		points = append(points, lo)
	}
	if r.Z > z0 {
		points = append(points, r.Z)
	}
	if hi := r.Z + peakWidths*r.Width; !math.IsInf(hi, 0) && hi > points[len(points)-1] {
		points = append(points, hi)
	}
	return append(points, math.Inf(1)), nil
}

// OpticalDepth is a one-shot convenience wrapper around [New] and
// [Model.Depth] with default quadrature settings.
func OpticalDepth(p, z float64, params Params) (float64, error) {
	m, err := New(params, numeric.QuadratureOptions{})
	if err != nil {
		return 0, err
	}
	return m.Depth(p, z)
}
