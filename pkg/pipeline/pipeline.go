// Package pipeline runs the windprofile computations behind the CLI and the
// HTTP API.
//
// Every entry point (windprofile tau, windprofile grid, POST /v1/grid, ...)
// builds an [Options], lets [Options.ValidateAndSetDefaults] fill it in, and
// hands it to a [Runner]. The Runner turns the wind configuration into an
// optical-depth engine, runs the requested stage and caches the result under
// a hash of everything that determines it.
//
// # Stages
//
//   - Points: τ at paired (p, z) coordinates
//   - Grid: τ(p, z) on a rectangular grid
//   - Profile: a binned X-ray line profile, optionally with resonance
//     absorption, the He-like triplet and resonance scattering
//   - Transmission: the angle-averaged transmission T(u)
//   - Luminosity: the wind-integrated luminosity and fractional emission
//   - Sweep: Luminosity over a range of τ*
//   - Compare: the scalar and grid entry points on the same points
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Wind: wind.Config{Method: wind.MethodNumerical, Beta: 2, TauStar: 3},
//	    P:    []float64{0.5, 1.5, 3},
//	    Z:    []float64{-2, 0, 2},
//	}
//	res, err := runner.Grid(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Grid.Tau)
package pipeline

import (
	"io"
	"math"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/windprofile/pkg/cache"
	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/integrators"
	"github.com/matzehuels/windprofile/pkg/opticaldepth"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// Default grid: p in [0, 5], z in [-5, 5].
	DefaultPMin   = 0.0
	DefaultPMax   = 5.0
	DefaultPCount = 51
	DefaultZMin   = -5.0
	DefaultZMax   = 5.0
	DefaultZCount = 101

	// DefaultBins is the number of profile bins over DefaultXMin..DefaultXMax
	// when no energy grid is given.
	DefaultBins = 100
	DefaultXMin = -1.2
	DefaultXMax = 1.2

	// DefaultUCount is the number of transmission samples in (0, U0].
	DefaultUCount = 20

	// MaxCells bounds the work of a single request.
	MaxCells = 1 << 20
)

// Stage names, used for logging, cache key types and observability.
const (
	StageDepth        = "depth"
	StagePoints       = "points"
	StageGrid         = "grid"
	StageProfile      = "profile"
	StageTransmission = "transmission"
	StageLuminosity   = "luminosity"
	StageSweep        = "sweep"
	StageCompare      = "compare"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run. It decodes from JSON
// API requests; the CLI fills it from flags and a TOML wind file.
type Options struct {
	Wind wind.Config `json:"wind"`

	// Grid options
	P []float64 `json:"p,omitempty"`
	Z []float64 `json:"z,omitempty"`

	// Profile options. Energies (keV bin edges) take precedence over X.
	Energies   []float64                `json:"energies,omitempty"`
	X          []float64                `json:"x,omitempty"`
	Line       *integrators.Line        `json:"line,omitempty"`
	Triplet    *TripletOptions          `json:"triplet,omitempty"`
	Absorber   *wind.Config             `json:"absorber,omitempty"`
	HeLike     *integrators.HeLikeRatio `json:"he_like_ratio,omitempty"`
	Scattering *integrators.Scattering  `json:"scattering,omitempty"`

	// Transmission options
	U []float64 `json:"u,omitempty"`

	// Sweep options: luminosity for each τ*.
	TauStars []float64 `json:"tau_stars,omitempty"`

	Workers int  `json:"workers,omitempty"` // 0 means GOMAXPROCS
	Refresh bool `json:"refresh,omitempty"` // Recompute and overwrite cached results

	// Coarsen, when above 1, retries a NON_CONVERGENCE once with both
	// quadrature tolerances multiplied by it. 0 disables the retry.
	Coarsen float64 `json:"coarsen,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// TripletOptions selects a He-like triplet by atomic number.
type TripletOptions struct {
	AtomicNumber int     `json:"atomic_number"`
	G            float64 `json:"g"`
	VInfinity    float64 `json:"v_infinity"`
	// P is the photoexcitation parameter of the f/i ratio. R0 comes from the
	// atomic data unless HeLike is set explicitly.
	P float64 `json:"p"`
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults validates the wind configuration and applies the
// common defaults. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.Wind.SetDefaults()
	if err := o.Wind.Validate(); err != nil {
		return err
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeConfiguration, "workers must not be negative, got %d", o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Coarsen != 0 && (!(o.Coarsen >= 1) || math.IsInf(o.Coarsen, 1)) {
		return errors.New(errors.ErrCodeInvalidInput, "coarsen must be 0 or at least 1, got %g", o.Coarsen)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// SetGridDefaults fills empty grid axes.
func (o *Options) SetGridDefaults() {
	if len(o.P) == 0 {
		o.P = floats.Span(make([]float64, DefaultPCount), DefaultPMin, DefaultPMax)
	}
	if len(o.Z) == 0 {
		o.Z = floats.Span(make([]float64, DefaultZCount), DefaultZMin, DefaultZMax)
	}
}

// ValidateForGrid validates and sets defaults for grid evaluation.
func (o *Options) ValidateForGrid() error {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return err
	}
	o.SetGridDefaults()
	if err := errors.ValidateGrid("p", o.P); err != nil {
		return err
	}
	if err := errors.ValidateGrid("z", o.Z); err != nil {
		return err
	}
	if o.P[0] < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "impact parameters must not be negative, got %g", o.P[0])
	}
	if n := len(o.P) * len(o.Z); n > MaxCells {
		return errors.New(errors.ErrCodeInvalidInput, "grid has %d cells, limit is %d", n, MaxCells)
	}
	return nil
}

// SetProfileDefaults fills an empty x grid when no energy grid is given.
func (o *Options) SetProfileDefaults() {
	if len(o.Energies) == 0 && len(o.X) == 0 {
		o.X = floats.Span(make([]float64, DefaultBins+1), DefaultXMin, DefaultXMax)
	}
}

// ValidateForProfile validates and sets defaults for profile computation.
func (o *Options) ValidateForProfile() error {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if o.Wind.Method == wind.MethodResonance {
		return errors.New(errors.ErrCodeConfiguration,
			"profiles need a continuum method; pass the resonance wind as absorber")
	}
	o.SetProfileDefaults()

	if o.Absorber != nil {
		o.Absorber.SetDefaults()
		if o.Absorber.Method != wind.MethodResonance {
			return errors.New(errors.ErrCodeConfiguration, "absorber must use the resonance method, got %s", o.Absorber.Method)
		}
		if err := o.Absorber.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "absorber")
		}
	}
	if o.Scattering != nil {
		if err := o.Scattering.Validate(); err != nil {
			return err
		}
	}

	if o.Triplet != nil {
		if len(o.Energies) == 0 {
			return errors.New(errors.ErrCodeInvalidInput, "a triplet profile needs an energy grid")
		}
		ion, err := integrators.LookupIon(o.Triplet.AtomicNumber)
		if err != nil {
			return err
		}
		if o.HeLike == nil {
			o.HeLike = &integrators.HeLikeRatio{R0: ion.R0, P: o.Triplet.P}
		}
		if err := o.HeLike.Validate(); err != nil {
			return err
		}
		if err := errors.ValidateOpenRange(errors.ErrCodeConfiguration, "v_infinity", o.Triplet.VInfinity, 0, 1); err != nil {
			return err
		}
		return errors.ValidateNonNegative(errors.ErrCodeConfiguration, "g", o.Triplet.G)
	}

	if len(o.Energies) > 0 {
		if o.Line == nil {
			return errors.New(errors.ErrCodeInvalidInput, "an energy grid needs a line (wavelength and v_infinity)")
		}
		if err := o.Line.Validate(); err != nil {
			return err
		}
		return errors.ValidateGrid("energies", o.Energies)
	}
	if len(o.X) < 2 {
		return errors.New(errors.ErrCodeInvalidInput, "need at least two x bin edges, got %d", len(o.X))
	}
	return errors.ValidateGrid("x", o.X)
}

// SetTransmissionDefaults fills an empty u grid with DefaultUCount samples in
// (0, U0].
func (o *Options) SetTransmissionDefaults() {
	if len(o.U) == 0 {
		u0 := o.Wind.U0
		if u0 == 0 {
			u0 = wind.DefaultU0
		}
		o.U = floats.Span(make([]float64, DefaultUCount), u0/DefaultUCount, u0)
	}
}

// ValidateForTransmission validates and sets defaults for T(u).
func (o *Options) ValidateForTransmission() error {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return err
	}
	o.SetTransmissionDefaults()
	if err := errors.ValidateGrid("u", o.U); err != nil {
		return err
	}
	if o.U[0] < 0 || o.U[len(o.U)-1] > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "u must lie in [0, 1], got [%g, %g]", o.U[0], o.U[len(o.U)-1])
	}
	return nil
}

// ValidateForSweep validates the τ* values of a sweep.
func (o *Options) ValidateForSweep() error {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if len(o.TauStars) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "a sweep needs at least one tau_star value")
	}
	if err := errors.ValidateGrid("tau_stars", o.TauStars); err != nil {
		return err
	}
	return errors.ValidateNonNegative(errors.ErrCodeInvalidInput, "tau_star", o.TauStars[0])
}

// Model validates the wind configuration into a model.
func (o *Options) Model() (*wind.Model, error) {
	return wind.New(o.Wind)
}

// Engine builds the optical-depth engine for the wind.
func (o *Options) Engine() (*opticaldepth.Engine, error) {
	m, err := o.Model()
	if err != nil {
		return nil, err
	}
	return opticaldepth.New(m, opticaldepth.WithWorkers(o.Workers))
}

// Emitter builds the line emitter with the configured modifiers.
func (o *Options) Emitter() (*integrators.Emitter, error) {
	e, err := o.Engine()
	if err != nil {
		return nil, err
	}
	var opts []integrators.EmitterOption
	if o.Absorber != nil {
		am, err := wind.New(*o.Absorber)
		if err != nil {
			return nil, err
		}
		ae, err := opticaldepth.New(am, opticaldepth.WithWorkers(o.Workers))
		if err != nil {
			return nil, err
		}
		opts = append(opts, integrators.WithAbsorber(ae))
	}
	if o.HeLike != nil {
		opts = append(opts, integrators.WithHeLikeRatio(*o.HeLike))
	}
	if o.Scattering != nil {
		opts = append(opts, integrators.WithScattering(*o.Scattering))
	}
	return integrators.NewEmitter(e, opts...)
}

// ModelHash fingerprints the wind configuration. Quadrature settings are
// part of the hash since they change the results, and so is the coarse
// retry factor when one is set.
func (o *Options) ModelHash() string {
	var h string
	if o.Coarsen > 1 {
		h, _ = cache.HashJSON([]any{o.Wind, o.Coarsen})
	} else {
		h, _ = cache.HashJSON(o.Wind)
	}
	return h
}

// ProfileKeyOpts returns cache key options for profile computation.
func (o *Options) ProfileKeyOpts() cache.ProfileKeyOpts {
	k := cache.ProfileKeyOpts{Edges: o.X}
	if len(o.Energies) > 0 {
		k.Edges = o.Energies
		k.Energy = true
	}
	if o.Line != nil {
		k.Wavelength = o.Line.Wavelength
		k.VInfinity = o.Line.VInfinity
	}
	if o.Absorber != nil {
		k.Absorber, _ = cache.HashJSON(o.Absorber)
	}
	if o.HeLike != nil || o.Scattering != nil || o.Triplet != nil {
		k.Emitter, _ = cache.HashJSON([]any{o.HeLike, o.Scattering, o.Triplet})
	}
	return k
}

// =============================================================================
// Results
// =============================================================================

// Meta describes how a result was produced.
type Meta struct {
	RunID     string        `json:"run_id"`
	Stage     string        `json:"stage"`
	Method    wind.Method   `json:"method"`
	ModelHash string        `json:"model_hash"`
	CacheHit  bool          `json:"cache_hit"`
	Duration  time.Duration `json:"duration_ns"`
}

// DepthResult is a single optical depth. Total marks the depth along the
// whole ray, for which Z is unused.
type DepthResult struct {
	Meta
	P     float64 `json:"p"`
	Z     float64 `json:"z"`
	Total bool    `json:"total,omitempty"`
	opticaldepth.Sample
}

// PointsResult holds one optical depth per (P[k], Z[k]) pair.
type PointsResult struct {
	Meta
	P       []float64             `json:"p"`
	Z       []float64             `json:"z"`
	Samples []opticaldepth.Sample `json:"samples"`
}

// GridResult is an optical-depth grid.
type GridResult struct {
	Meta
	Grid *opticaldepth.Grid `json:"grid"`
}

// ProfileResult is a binned line profile.
type ProfileResult struct {
	Meta
	Profile *integrators.Profile `json:"profile"`
}

// TransmissionResult is T(u) on a u grid.
type TransmissionResult struct {
	Meta
	U []float64 `json:"u"`
	T []float64 `json:"t"`
}

// LuminosityResult is the integrated luminosity for one wind.
type LuminosityResult struct {
	Meta
	TauStar float64 `json:"tau_star"`
	integrators.Luminosity
}

// SweepResult is the integrated luminosity as a function of τ*.
type SweepResult struct {
	Meta
	Points []LuminosityResult `json:"points"`
}

// CompareResult compares the scalar and grid entry points.
type CompareResult struct {
	Meta
	Cells      int           `json:"cells"`
	ScalarTime time.Duration `json:"scalar_ns"`
	GridTime   time.Duration `json:"grid_ns"`
	MaxAbsDiff float64       `json:"max_abs_diff"`
}

// Speedup is ScalarTime/GridTime.
func (c *CompareResult) Speedup() float64 {
	if c.GridTime <= 0 {
		return 0
	}
	return float64(c.ScalarTime) / float64(c.GridTime)
}
