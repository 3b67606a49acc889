package opticaldepth

import (
	"math"
	"runtime"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/resonance"
	"github.com/matzehuels/windprofile/pkg/series"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// Occulted is the optical depth reported for points hidden by the star.
const Occulted = wind.OccultedDepth

// Strategy computes optical depths for one method. The set of strategies is
// closed: an Engine selects exactly one when it is built.
type Strategy interface {
	Method() wind.Method
	depth(p, z float64) (float64, []errors.Warning, error)
}

// resonant adapts a resonance.Model to Strategy.
type resonant struct {
	model *resonance.Model
}

func (r *resonant) Method() wind.Method { return wind.MethodResonance }

func (r *resonant) depth(p, z float64) (float64, []errors.Warning, error) {
	t, err := r.model.Depth(p, z)
	return t, nil, err
}

// Sample is the optical depth at one point, with any diagnostics.
type Sample struct {
	Tau      float64          `json:"tau"`
	Occulted bool             `json:"occulted,omitempty"`
	Warnings []errors.Warning `json:"warnings,omitempty"`
}

// Engine evaluates optical depths for one wind model. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	model     *wind.Model
	strategy  Strategy
	resonance *resonance.Model
	table     *series.Table
	workers   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of goroutines used by grid evaluation.
// Values below 1 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithSeriesTable shares a pre-built series table between engines.
func WithSeriesTable(t *series.Table) Option {
	return func(e *Engine) { e.table = t }
}

// New builds an engine and selects its strategy from the model's method.
func New(m *wind.Model, opts ...Option) (*Engine, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeConfiguration, "nil wind model")
	}
	e := &Engine{model: m}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}

	switch m.Method() {
	case wind.MethodAnalytic:
		if e.table == nil {
			t, err := series.NewTable(series.DefaultOrder)
			if err != nil {
				return nil, err
			}
			e.table = t
		}
		e.strategy = newAnalytic(m, e.table)
	case wind.MethodNumerical:
		e.strategy = newNumerical(m)
	case wind.MethodResonance:
		rm, err := resonance.New(resonance.ParamsFromWind(m), m.Quadrature())
		if err != nil {
			return nil, err
		}
		e.resonance = rm
		e.strategy = &resonant{model: rm}
	default:
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown method %q", m.Method())
	}
	return e, nil
}

// Model returns the wind model the engine was built for.
func (e *Engine) Model() *wind.Model { return e.model }

// Strategy returns the selected strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Workers returns the grid concurrency limit.
func (e *Engine) Workers() int { return e.workers }

// Depth returns the optical depth from (p, z) to the observer at z = +∞.
//
// Points hidden by the photosphere are not an error: they return Occulted
// with Sample.Occulted set. A quadrature or root failure is returned as a
// NonConvergenceError attributed to (p, z).
func (e *Engine) Depth(p, z float64) (Sample, error) {
	if err := validatePoint(p, z); err != nil {
		return Sample{}, err
	}
	if wind.IsOcculted(p, z) {
		return Sample{Tau: Occulted, Occulted: true}, nil
	}
	t, warnings, err := e.strategy.depth(p, z)
	if err != nil {
		return Sample{}, errors.Attribute(err, p, z)
	}
	if t < 0 {
		// Rounding in the symmetric reconstruction can leave a tiny
		// negative residue near τ = 0.
		t = 0
	}
	return Sample{Tau: t, Warnings: warnings}, nil
}

// Tau is Depth without diagnostics.
func (e *Engine) Tau(p, z float64) (float64, error) {
	s, err := e.Depth(p, z)
	return s.Tau, err
}

// TotalDepth returns the optical depth along the whole ray p, from z = -∞
// to the observer. Rays with p ≤ 1 hit the star and are occulted.
func (e *Engine) TotalDepth(p float64) (Sample, error) {
	if err := validatePoint(p, 0); err != nil {
		return Sample{}, err
	}
	if p <= 1 {
		return Sample{Tau: Occulted, Occulted: true}, nil
	}
	if e.resonance != nil {
		t, err := e.resonance.TotalDepth(p)
		if err != nil {
			return Sample{}, errors.Attribute(err, p, math.Inf(-1))
		}
		return Sample{Tau: t}, nil
	}
	s, err := e.Depth(p, 0)
	if err != nil {
		return Sample{}, err
	}
	s.Tau *= 2
	return s, nil
}

func validatePoint(p, z float64) error {
	if err := errors.ValidateFinite("p", p); err != nil {
		return err
	}
	if err := errors.ValidateFinite("z", z); err != nil {
		return err
	}
	if p < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "impact parameter must not be negative, got %g", p)
	}
	return nil
}
