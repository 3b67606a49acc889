package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/windprofile/pkg/cache"
	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/observability"
	"github.com/matzehuels/windprofile/pkg/opticaldepth"
)

// Runner executes pipeline stages with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil keyer uses the DefaultKeyer, a nil cache
// disables caching and a nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// newMeta starts the metadata of a stage run.
func newMeta(stage string, opts *Options) Meta {
	return Meta{
		RunID:     uuid.NewString(),
		Stage:     stage,
		Method:    opts.Wind.Method,
		ModelHash: opts.ModelHash(),
	}
}

// cached returns the value stored at key, or computes, stores and returns
// it. Cache failures are logged and treated as misses. With refresh set the
// cache is not read but the new value is still written.
func cached[T any](ctx context.Context, r *Runner, stage, key string, ttl time.Duration, refresh bool, compute func() (T, error)) (T, bool, error) {
	hooks := observability.Cache()
	if !refresh {
		var v T
		err := cache.GetJSON(ctx, r.Cache, key, &v)
		switch {
		case err == nil:
			hooks.OnCacheHit(ctx, stage)
			r.Logger.Debug("cache hit", "stage", stage, "key", key)
			return v, true, nil
		case err != cache.ErrCacheMiss:
			r.Logger.Warn("cache read failed", "stage", stage, "err", err)
		}
		hooks.OnCacheMiss(ctx, stage)
	}

	v, err := compute()
	if err != nil {
		return v, false, err
	}
	size, err := cache.SetJSON(ctx, r.Cache, key, v, ttl)
	if err != nil {
		r.Logger.Warn("cache write failed", "stage", stage, "err", err)
		return v, false, nil
	}
	hooks.OnCacheSet(ctx, stage, size)
	return v, false, nil
}

// retryCoarse runs compute on e. If it fails to converge and opts.Coarsen
// is above 1, compute runs once more on an engine whose quadrature
// tolerances are multiplied by opts.Coarsen. The first error is returned
// when the coarser engine cannot be built.
func retryCoarse[T any](opts *Options, stage string, e *opticaldepth.Engine, compute func(*opticaldepth.Engine) (T, error)) (T, error) {
	v, err := compute(e)
	if err == nil || opts.Coarsen <= 1 || !errors.Is(err, errors.ErrCodeNonConvergence) {
		return v, err
	}
	m := e.Model()
	coarse, merr := m.WithQuadrature(m.Quadrature().Coarsen(opts.Coarsen))
	if merr != nil {
		return v, err
	}
	ce, merr := opticaldepth.New(coarse, opticaldepth.WithWorkers(e.Workers()))
	if merr != nil {
		return v, err
	}
	opts.Logger.Warn("retrying with coarser quadrature", "stage", stage, "factor", opts.Coarsen, "err", err)
	return compute(ce)
}

// track reports a stage to the observability hooks and returns a function
// that completes it.
func track(ctx context.Context, stage string, size int) func(error) time.Duration {
	start := time.Now()
	observability.Pipeline().OnStageStart(ctx, stage, size)
	return func(err error) time.Duration {
		d := time.Since(start)
		observability.Pipeline().OnStageComplete(ctx, stage, size, d, err)
		return d
	}
}
