package wind

import "github.com/matzehuels/windprofile/pkg/numeric"

// Model is a validated, immutable wind configuration. It is safe to share
// across goroutines.
type Model struct {
	cfg Config
}

// New validates cfg and returns the corresponding Model. Zero-valued fields
// with a default are filled first. Incompatible method axes are rejected
// here, before any numerical work.
func New(cfg Config) (*Model, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{cfg: cfg}, nil
}

// MustNew is like New but panics on an invalid configuration.
// It is intended for tests and package-level fixtures.
func MustNew(cfg Config) *Model {
	m, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return m
}

// Config returns a copy of the validated configuration.
func (m *Model) Config() Config { return m.cfg }

func (m *Model) Method() Method                        { return m.cfg.Method }
func (m *Model) Beta() float64                         { return m.cfg.Beta }
func (m *Model) TauStar() float64                      { return m.cfg.TauStar }
func (m *Model) H() float64                            { return m.cfg.H }
func (m *Model) Q() float64                            { return m.cfg.Q }
func (m *Model) U0() float64                           { return m.cfg.U0 }
func (m *Model) UMin() float64                         { return m.cfg.UMin }
func (m *Model) Anisotropic() bool                     { return m.cfg.Anisotropic }
func (m *Model) Rosseland() bool                       { return m.cfg.Rosseland }
func (m *Model) Expansion() bool                       { return m.cfg.Expansion }
func (m *Model) HeLike() bool                          { return m.cfg.HeLike }
func (m *Model) KappaRatio() float64                   { return m.cfg.KappaRatio }
func (m *Model) DeltaE() float64                       { return m.cfg.DeltaE }
func (m *Model) GammaE() float64                       { return m.cfg.GammaE }
func (m *Model) VInfinity() float64                    { return m.cfg.VInfinity }
func (m *Model) Quadrature() numeric.QuadratureOptions { return m.cfg.Quadrature }

// TauClump0 is the optical depth of a single clump at the stellar surface,
// τ*·h.
func (m *Model) TauClump0() float64 { return m.cfg.TauStar * m.cfg.H }

// Porous reports whether the clump optical depth is non-zero.
func (m *Model) Porous() bool { return m.TauClump0() > 0 }

// Velocity returns the velocity law used inside optical-depth integrals.
// The numerical path floors it at MinimumVelocity.
func (m *Model) Velocity() Velocity {
	v := Velocity{Beta: m.cfg.Beta}
	if m.cfg.Method == MethodNumerical {
		v.WMin = MinimumVelocity
	}
	return v
}

// EmissionVelocity returns the unfloored velocity law used by the emission
// integrators and the resonance model.
func (m *Model) EmissionVelocity() Velocity {
	return Velocity{Beta: m.cfg.Beta}
}

// WithTauStar returns a copy of m with a different τ*. Sweeps use it to walk
// a τ* grid without re-validating the method axes by hand.
func (m *Model) WithTauStar(tauStar float64) (*Model, error) {
	cfg := m.cfg
	cfg.TauStar = tauStar
	return New(cfg)
}

// WithQuadrature returns a copy of m with different quadrature options,
// which is how callers request a coarser tolerance after a NON_CONVERGENCE.
func (m *Model) WithQuadrature(q numeric.QuadratureOptions) (*Model, error) {
	cfg := m.cfg
	cfg.Quadrature = q
	return New(cfg)
}

func (m *Model) String() string { return m.cfg.String() }
