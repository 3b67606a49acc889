package integrators

import (
	"math"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/numeric"
	"github.com/matzehuels/windprofile/pkg/opticaldepth"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// smallQ is the emissivity index below which the u integral of L(x) is
// split near u = 0, where the u^q factor is steep.
const smallQ = -0.5

// Emitter integrates the X-ray line emission of the wind at a scaled
// frequency x, attenuated by the continuum optical depth of an engine.
//
// An Emitter is immutable; the With* and Line methods return modified
// copies that share the underlying engines.
type Emitter struct {
	engine   *opticaldepth.Engine
	absorber *opticaldepth.Engine
	vel      wind.Velocity

	q, u0, umin float64

	ratio       *HeLikeRatio
	line        LineType
	scattering  Scattering
	transparent bool

	quad    numeric.QuadratureOptions
	workers int
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithAbsorber adds resonance (RAD) absorption by a Doppler-shifted line.
// The engine must use the resonance method.
func WithAbsorber(e *opticaldepth.Engine) EmitterOption {
	return func(em *Emitter) { em.absorber = e }
}

// WithHeLikeRatio enables the radial f/i ratio for the He-like triplet.
func WithHeLikeRatio(r HeLikeRatio) EmitterOption {
	return func(em *Emitter) { em.ratio = &r }
}

// WithScattering enables resonance scattering of the emitted line.
func WithScattering(s Scattering) EmitterOption {
	return func(em *Emitter) { em.scattering = s }
}

// WithTransparentWind ignores all absorption.
func WithTransparentWind() EmitterOption {
	return func(em *Emitter) { em.transparent = true }
}

// WithEmitterQuadrature overrides the quadrature settings of the u and x
// integrals. By default the wind model's settings are used.
func WithEmitterQuadrature(q numeric.QuadratureOptions) EmitterOption {
	return func(em *Emitter) { em.quad = q }
}

// NewEmitter builds an emitter for the wind described by engine's model.
// q, U0 and Umin come from the model; the emitting velocity law has no floor.
func NewEmitter(engine *opticaldepth.Engine, opts ...EmitterOption) (*Emitter, error) {
	if engine == nil {
		return nil, errors.New(errors.ErrCodeConfiguration, "nil optical-depth engine")
	}
	m := engine.Model()
	em := &Emitter{
		engine:  engine,
		vel:     m.EmissionVelocity(),
		q:       m.Q(),
		u0:      m.U0(),
		umin:    m.UMin(),
		quad:    m.Quadrature(),
		workers: engine.Workers(),
	}
	for _, opt := range opts {
		opt(em)
	}

	if em.absorber != nil && em.absorber.Model().Method() != wind.MethodResonance {
		return nil, errors.New(errors.ErrCodeConfiguration,
			"absorber must use the resonance method, got %s", em.absorber.Model().Method())
	}
	if m.Method() == wind.MethodResonance {
		return nil, errors.New(errors.ErrCodeConfiguration,
			"the continuum engine cannot use the resonance method; pass it as an absorber")
	}
	if err := em.scattering.Validate(); err != nil {
		return nil, err
	}
	if em.ratio != nil {
		if err := em.ratio.Validate(); err != nil {
			return nil, err
		}
	}
	return em, nil
}

// Line returns a copy of e emitting triplet component t.
func (e *Emitter) Line(t LineType) *Emitter {
	out := *e
	out.line = t
	return &out
}

// Transparent returns a copy of e with all absorption switched off.
func (e *Emitter) Transparent() *Emitter {
	out := *e
	out.transparent = true
	return &out
}

// WithoutAbsorber returns a copy of e without resonance absorption.
func (e *Emitter) WithoutAbsorber() *Emitter {
	out := *e
	out.absorber = nil
	return &out
}

// HasAbsorber reports whether resonance absorption is enabled.
func (e *Emitter) HasAbsorber() bool { return e.absorber != nil }

// XKink is the blue-side frequency below which the outer emission cut-off
// U0 no longer limits the emitting shell, -(1 - U0)^β.
func (e *Emitter) XKink() float64 { return -math.Pow(1-e.u0, e.vel.Beta) }

// XOcc is the red-side frequency above which part of the emitting region
// lies behind the star.
func (e *Emitter) XOcc() float64 {
	return e.vel.W(e.u0) * math.Sqrt(1-e.u0*e.u0)
}

// L returns the line luminosity per unit scaled frequency at x, in units
// where a transparent, q = 0 wind gives ∫ du/w³.
func (e *Emitter) L(x float64) (float64, error) {
	if math.Abs(x) >= 1 {
		return 0, nil
	}
	ux := math.Min(1-math.Pow(math.Abs(x), 1/e.vel.Beta), e.u0)
	if x >= e.XOcc() {
		root, err := UxRoot(e.vel, x)
		if err != nil {
			return 0, err
		}
		ux = math.Min(ux, root)
	}
	if ux <= e.umin {
		return 0, nil
	}

	var firstErr error
	g := func(u float64) float64 {
		if firstErr != nil {
			return 0
		}
		v, err := e.integrand(x, u)
		if err != nil {
			firstErr = err
			return 0
		}
		return v
	}

	var (
		res numeric.QuadratureResult
		err error
	)
	switch {
	case e.umin > 0:
		res, err = numeric.Integrate(g, e.umin, ux, e.quad)
	case e.q < smallQ:
		lower := e.quad
		lower.SingularLower = true
		res, err = numeric.IntegrateBreakpoints(g, []float64{0, ux / 10, ux}, lower)
	default:
		res, err = numeric.Integrate(g, 0, ux, e.quad)
	}
	if firstErr != nil {
		return 0, errors.AttributeX(firstErr, x)
	}
	if err != nil {
		return 0, errors.AttributeX(err, x)
	}
	return res.Value, nil
}

// integrand is the emission from inverse radius u on the surface of
// constant frequency x.
func (e *Emitter) integrand(x, u float64) (float64, error) {
	if u == 0 {
		// Gauss nodes are interior, so this is only reached by direct
		// evaluation; 0^q is 1 for q = 0 and 0 for q > 0.
		if e.q == 0 {
			return 1, nil
		}
		return 0, nil
	}
	w := e.vel.W(u)
	mu := -x / w
	if mu*mu > 1 {
		return 0, nil
	}
	p := math.Sqrt(1-mu*mu) / u
	z := mu / u
	if wind.IsOcculted(p, z) {
		return 0, nil
	}

	transmission := 1.0
	if !e.transparent {
		tau, err := e.engine.Tau(p, z)
		if err != nil {
			return 0, err
		}
		if e.absorber != nil {
			rad, err := e.absorber.Tau(p, z)
			if err != nil {
				return 0, err
			}
			tau += rad
		}
		transmission = math.Exp(-tau)
	}

	v := math.Pow(u, e.q) / (w * w * w) * transmission
	if e.ratio != nil && e.line != Resonance {
		v *= e.ratio.Factor(u, e.line)
	} else {
		v *= e.scattering.EscapeProbability(u, mu, e.vel)
	}
	return v, nil
}

// Flux returns ∫ L(x) dx over the bin between x1 and x2, in either order.
// The bin is clipped to |x| < 1 and split at XKink and XOcc.
func (e *Emitter) Flux(x1, x2 float64) (float64, error) {
	lo, hi := math.Min(x1, x2), math.Max(x1, x2)
	lo, hi = math.Max(lo, -1), math.Min(hi, 1)
	if lo >= hi {
		return 0, nil
	}

	points := []float64{lo}
	for _, k := range []float64{e.XKink(), e.XOcc()} {
		if k > points[len(points)-1] && k < hi {
			points = append(points, k)
		}
	}
	points = append(points, hi)

	var firstErr error
	g := func(x float64) float64 {
		if firstErr != nil {
			return 0
		}
		v, err := e.L(x)
		if err != nil {
			firstErr = err
			return 0
		}
		return v
	}
	// The inner integral is only accurate to its own tolerance.
	res, err := numeric.IntegrateBreakpoints(g, points, e.quad.Coarsen(10))
	if firstErr != nil {
		return 0, firstErr
	}
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// TotalFlux returns the flux of the whole line, ∫ L dx over [-1, 1].
func (e *Emitter) TotalFlux() (float64, error) { return e.Flux(-1, 1) }
