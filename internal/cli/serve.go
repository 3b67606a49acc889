package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/windprofile/internal/server"
	"github.com/matzehuels/windprofile/pkg/cache"
	"github.com/matzehuels/windprofile/pkg/observability"
	"github.com/matzehuels/windprofile/pkg/pipeline"
)

// serveFlags configure the HTTP API.
type serveFlags struct {
	addr     string
	redis    string
	prefix   string
	noCache  bool
	timeout  time.Duration
	maxBytes int64
}

func (c *CLI) serveCommand() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the computations as a JSON HTTP API",
		Long: `Serve the windprofile computations over HTTP.

Results are cached in the local cache directory, or in Redis with --redis so
that several instances share them. --prefix scopes the keys of one
deployment within a shared Redis.

Stage, cache and route counters are served at GET /v1/stats.`,
		Example: `  windprofile serve --addr :9090
  windprofile serve --redis redis://localhost:6379/0 --prefix staging:`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.addr, "addr", server.DefaultAddr, "listen address")
	fs.StringVar(&f.redis, "redis", "", "Redis address or URL for a shared cache")
	fs.StringVar(&f.prefix, "prefix", "", "cache key prefix")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	fs.DurationVar(&f.timeout, "timeout", server.DefaultTimeout, "computation limit per request")
	fs.Int64Var(&f.maxBytes, "max-body", server.DefaultMaxBody, "request body limit in bytes")

	return cmd
}

// serveCache opens the cache backend selected by the flags.
func serveCache(ctx context.Context, f serveFlags) (cache.Cache, error) {
	switch {
	case f.noCache:
		return cache.NewNullCache(), nil
	case f.redis != "":
		return cache.NewRedisCache(ctx, f.redis)
	}
	return newCache(false)
}

func (c *CLI) runServe(ctx context.Context, f serveFlags) error {
	cc, err := serveCache(ctx, f)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	var keyer cache.Keyer
	if f.prefix != "" {
		keyer = cache.NewScopedKeyer(nil, f.prefix)
	}
	runner := pipeline.NewRunner(cc, keyer, c.Logger)
	defer runner.Close()

	counters := observability.NewCounters()
	observability.SetPipelineHooks(counters)
	observability.SetCacheHooks(counters)
	observability.SetHTTPHooks(counters)
	defer observability.Reset()

	srv := server.New(runner, c.Logger,
		server.WithCounters(counters),
		server.WithTimeout(f.timeout),
		server.WithMaxBody(f.maxBytes))

	backend := "file"
	switch {
	case f.noCache:
		backend = "none"
	case f.redis != "":
		backend = "redis"
	}
	c.Logger.Info("starting API server", "addr", f.addr, "cache", backend)
	return srv.ListenAndServe(ctx, f.addr)
}
