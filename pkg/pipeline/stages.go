package pipeline

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/windprofile/pkg/cache"
	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/integrators"
	"github.com/matzehuels/windprofile/pkg/observability"
	"github.com/matzehuels/windprofile/pkg/opticaldepth"
)

// =============================================================================
// Optical depth
// =============================================================================

// Depth evaluates τ(p, z) at a single point. Single points are not cached.
func (r *Runner) Depth(ctx context.Context, opts Options, p, z float64) (*DepthResult, error) {
	return r.depth(ctx, opts, p, z, false)
}

// TotalDepth evaluates the optical depth of the whole ray p.
func (r *Runner) TotalDepth(ctx context.Context, opts Options, p float64) (*DepthResult, error) {
	return r.depth(ctx, opts, p, 0, true)
}

func (r *Runner) depth(ctx context.Context, opts Options, p, z float64, total bool) (*DepthResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	e, err := opts.Engine()
	if err != nil {
		return nil, err
	}

	done := track(ctx, StageDepth, 1)
	s, err := retryCoarse(&opts, StageDepth, e, func(e *opticaldepth.Engine) (opticaldepth.Sample, error) {
		if total {
			return e.TotalDepth(p)
		}
		return e.Depth(p, z)
	})
	res := &DepthResult{Meta: newMeta(StageDepth, &opts), P: p, Z: z, Total: total, Sample: s}
	res.Duration = done(err)
	if err != nil {
		return nil, err
	}
	observability.Pipeline().OnWarnings(ctx, StageDepth, len(s.Warnings))
	return res, nil
}

// Points evaluates τ at the paired coordinates (ps[k], zs[k]) in parallel.
// Like single points, batches are not cached.
func (r *Runner) Points(ctx context.Context, opts Options, ps, zs []float64) (*PointsResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "need at least one point")
	}
	if len(ps) > MaxCells {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%d points exceed the limit of %d", len(ps), MaxCells)
	}
	e, err := opts.Engine()
	if err != nil {
		return nil, err
	}

	done := track(ctx, StagePoints, len(ps))
	samples, err := retryCoarse(&opts, StagePoints, e, func(e *opticaldepth.Engine) ([]opticaldepth.Sample, error) {
		return e.DepthBatch(ctx, ps, zs)
	})
	res := &PointsResult{Meta: newMeta(StagePoints, &opts), P: ps, Z: zs, Samples: samples}
	res.Duration = done(err)
	if err != nil {
		return nil, err
	}

	warnings := 0
	for _, s := range samples {
		warnings += len(s.Warnings)
	}
	observability.Pipeline().OnWarnings(ctx, StagePoints, warnings)
	opts.Logger.Debug("computed points", "points", len(ps), "warnings", warnings, "duration", res.Duration)
	return res, nil
}

// Grid evaluates τ on the p × z grid of opts, with caching.
func (r *Runner) Grid(ctx context.Context, opts Options) (*GridResult, error) {
	return r.GridFunc(ctx, opts, nil)
}

// GridFunc is Grid with a per-cell progress callback. The callback is not
// called on a cache hit and sees every cell again on a coarse retry. On cancellation the partial grid is returned with
// the context error and is not cached.
func (r *Runner) GridFunc(ctx context.Context, opts Options, onCell opticaldepth.CellFunc) (*GridResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForGrid(); err != nil {
		return nil, err
	}
	e, err := opts.Engine()
	if err != nil {
		return nil, err
	}

	res := &GridResult{Meta: newMeta(StageGrid, &opts)}
	cells := len(opts.P) * len(opts.Z)
	key := r.Keyer.GridKey(res.ModelHash, cache.GridKeyOpts{P: opts.P, Z: opts.Z})

	done := track(ctx, StageGrid, cells)
	g, hit, err := cached(ctx, r, StageGrid, key, cache.TTLGrid, opts.Refresh, func() (*opticaldepth.Grid, error) {
		return retryCoarse(&opts, StageGrid, e, func(e *opticaldepth.Engine) (*opticaldepth.Grid, error) {
			return e.DepthGridFunc(ctx, opts.P, opts.Z, onCell)
		})
	})
	res.Duration = done(err)
	res.Grid, res.CacheHit = g, hit
	if err != nil {
		return res, err
	}

	observability.Pipeline().OnWarnings(ctx, StageGrid, len(g.Warnings))
	opts.Logger.Info("computed grid",
		"method", res.Method,
		"cells", cells,
		"warnings", len(g.Warnings),
		"cached", hit,
		"duration", res.Duration)
	return res, nil
}

// Compare evaluates the grid of opts twice, once point by point through
// Engine.Depth and once through Engine.DepthGrid, and reports timings and
// the largest difference. Occulted cells agree by construction.
func (r *Runner) Compare(ctx context.Context, opts Options) (*CompareResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForGrid(); err != nil {
		return nil, err
	}
	e, err := opts.Engine()
	if err != nil {
		return nil, err
	}

	res := &CompareResult{Meta: newMeta(StageCompare, &opts), Cells: len(opts.P) * len(opts.Z)}
	done := track(ctx, StageCompare, res.Cells)

	scalar := make([]float64, 0, res.Cells)
	start := time.Now()
	for _, p := range opts.P {
		for _, z := range opts.Z {
			if err := ctx.Err(); err != nil {
				done(err)
				return nil, err
			}
			t, err := e.Tau(p, z)
			if err != nil {
				done(err)
				return nil, err
			}
			scalar = append(scalar, t)
		}
	}
	res.ScalarTime = time.Since(start)

	start = time.Now()
	g, err := e.DepthGrid(ctx, opts.P, opts.Z)
	res.GridTime = time.Since(start)
	res.Duration = done(err)
	if err != nil {
		return nil, err
	}

	grid := make([]float64, 0, res.Cells)
	for _, row := range g.Tau {
		grid = append(grid, row...)
	}
	res.MaxAbsDiff = floats.Distance(scalar, grid, math.Inf(1))

	opts.Logger.Info("compared scalar and grid evaluation",
		"cells", res.Cells,
		"scalar", res.ScalarTime,
		"grid", res.GridTime,
		"max_diff", res.MaxAbsDiff)
	return res, nil
}

// =============================================================================
// Line profiles
// =============================================================================

// Profile computes the binned line profile of opts, with caching.
func (r *Runner) Profile(ctx context.Context, opts Options) (*ProfileResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForProfile(); err != nil {
		return nil, err
	}
	em, err := opts.Emitter()
	if err != nil {
		return nil, err
	}

	res := &ProfileResult{Meta: newMeta(StageProfile, &opts)}
	bins := len(opts.X) - 1
	if len(opts.Energies) > 0 {
		bins = len(opts.Energies) - 1
	}
	key := r.Keyer.ProfileKey(res.ModelHash, opts.ProfileKeyOpts())

	done := track(ctx, StageProfile, bins)
	prof, hit, err := cached(ctx, r, StageProfile, key, cache.TTLProfile, opts.Refresh, func() (*integrators.Profile, error) {
		switch {
		case opts.Triplet != nil:
			ion, err := integrators.LookupIon(opts.Triplet.AtomicNumber)
			if err != nil {
				return nil, err
			}
			return em.TripletProfile(ctx, opts.Energies, integrators.Triplet{
				Ion:       ion,
				VInfinity: opts.Triplet.VInfinity,
				G:         opts.Triplet.G,
			})
		case len(opts.Energies) > 0:
			return em.Profile(ctx, opts.Energies, *opts.Line)
		default:
			return em.ProfileX(ctx, opts.X)
		}
	})
	res.Duration = done(err)
	if err != nil {
		return nil, err
	}
	res.Profile, res.CacheHit = prof, hit

	opts.Logger.Info("computed profile",
		"bins", bins,
		"total", prof.Total,
		"rad", em.HasAbsorber(),
		"cached", hit,
		"duration", res.Duration)
	return res, nil
}

// =============================================================================
// Transmission and luminosity
// =============================================================================

// Transmission computes the angle-averaged transmission on the u grid of
// opts, with caching.
func (r *Runner) Transmission(ctx context.Context, opts Options) (*TransmissionResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForTransmission(); err != nil {
		return nil, err
	}
	e, err := opts.Engine()
	if err != nil {
		return nil, err
	}

	res := &TransmissionResult{Meta: newMeta(StageTransmission, &opts), U: opts.U}
	key := r.Keyer.TransmissionKey(res.ModelHash, opts.U)

	done := track(ctx, StageTransmission, len(opts.U))
	t, hit, err := cached(ctx, r, StageTransmission, key, cache.TTLCurve, opts.Refresh, func() ([]float64, error) {
		return retryCoarse(&opts, StageTransmission, e, func(e *opticaldepth.Engine) ([]float64, error) {
			return integrators.TransmissionCurve(ctx, e, opts.U)
		})
	})
	res.Duration = done(err)
	if err != nil {
		return nil, err
	}
	res.T, res.CacheHit = t, hit

	opts.Logger.Info("computed transmission", "samples", len(t), "cached", hit, "duration", res.Duration)
	return res, nil
}

// Luminosity computes the integrated luminosity and fractional emission,
// with caching.
func (r *Runner) Luminosity(ctx context.Context, opts Options) (*LuminosityResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	e, err := opts.Engine()
	if err != nil {
		return nil, err
	}

	res := &LuminosityResult{Meta: newMeta(StageLuminosity, &opts), TauStar: opts.Wind.TauStar}
	key := r.Keyer.LuminosityKey(res.ModelHash)

	done := track(ctx, StageLuminosity, 1)
	l, hit, err := cached(ctx, r, StageLuminosity, key, cache.TTLLuminosity, opts.Refresh, func() (integrators.Luminosity, error) {
		if err := ctx.Err(); err != nil {
			return integrators.Luminosity{}, err
		}
		return retryCoarse(&opts, StageLuminosity, e, integrators.FractionalEmission)
	})
	res.Duration = done(err)
	if err != nil {
		return nil, err
	}
	res.Luminosity, res.CacheHit = l, hit

	opts.Logger.Debug("computed luminosity",
		"tau_star", res.TauStar,
		"fraction", l.Fraction,
		"cached", hit,
		"duration", res.Duration)
	return res, nil
}

// StepFunc is called after each point of a sweep.
type StepFunc func(done, total int)

// Sweep computes Luminosity for every τ* in opts.TauStars, in parallel. Each
// point is cached individually.
func (r *Runner) Sweep(ctx context.Context, opts Options, onStep StepFunc) (*SweepResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForSweep(); err != nil {
		return nil, err
	}

	res := &SweepResult{
		Meta:   newMeta(StageSweep, &opts),
		Points: make([]LuminosityResult, len(opts.TauStars)),
	}
	done := track(ctx, StageSweep, len(opts.TauStars))

	var (
		mu       sync.Mutex
		finished int
		hits     int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, ts := range opts.TauStars {
		g.Go(func() error {
			sub := opts
			sub.Wind.TauStar = ts
			l, err := r.Luminosity(gctx, sub)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return fmt.Errorf("tau_star=%g: %w", ts, err)
			}
			res.Points[i] = *l

			mu.Lock()
			finished++
			if l.CacheHit {
				hits++
			}
			n := finished
			mu.Unlock()
			if onStep != nil {
				onStep(n, len(opts.TauStars))
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	res.Duration = done(err)
	if err != nil {
		return nil, err
	}
	res.CacheHit = hits == len(opts.TauStars)

	opts.Logger.Info("completed sweep",
		"points", len(opts.TauStars),
		"cached", hits,
		"duration", res.Duration)
	return res, nil
}
