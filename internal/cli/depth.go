package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/matzehuels/windprofile/pkg/errors"
	wpio "github.com/matzehuels/windprofile/pkg/io"
	"github.com/matzehuels/windprofile/pkg/opticaldepth"
	"github.com/matzehuels/windprofile/pkg/pipeline"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// =============================================================================
// Shared Run Flags
// =============================================================================

// runFlags are the execution flags shared by all computing commands.
type runFlags struct {
	noCache bool
	refresh bool
	workers int
	coarsen float64
}

func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	fs.BoolVar(&f.refresh, "refresh", false, "recompute and overwrite cached results")
	fs.IntVarP(&f.workers, "workers", "j", 0, "parallel workers (0 for all CPUs)")
	fs.Float64Var(&f.coarsen, "coarsen", 0, "on non-convergence, retry once with tolerances multiplied by this factor")
}

// options starts pipeline options for the given wind.
func (f *runFlags) options(cfg wind.Config) pipeline.Options {
	return pipeline.Options{Wind: cfg, Workers: f.workers, Refresh: f.refresh, Coarsen: f.coarsen}
}

// parseFloats parses positional arguments named by names.
func parseFloats(args []string, names ...string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s: not a number: %q", names[i], a)
		}
		out[i] = v
	}
	return out, nil
}

// =============================================================================
// tau / total
// =============================================================================

func (c *CLI) tauCommand() *cobra.Command {
	var wf windFlags
	cmd := &cobra.Command{
		Use:   "tau P Z",
		Short: "Optical depth from a point in the wind to the observer",
		Long: `Compute τ(p, z), the optical depth from the point at impact parameter p and
height z (both in stellar radii) to an observer at z → +∞.

Points behind the stellar disk report τ = 1e6 and are marked occulted.`,
		Example: `  windprofile tau 0 2 --tau-star 1
  windprofile tau 0.5 1.2 -m numerical --beta 2 --h 0.5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pz, err := parseFloats(args, "p", "z")
			if err != nil {
				return err
			}
			cfg, err := wf.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runDepth(cmd.Context(), cfg, pz[0], pz[1], false)
		},
	}
	wf.register(cmd)
	return cmd
}

func (c *CLI) totalCommand() *cobra.Command {
	var wf windFlags
	cmd := &cobra.Command{
		Use:   "total P",
		Short: "Optical depth through the whole wind along a ray",
		Long: `Compute the optical depth along the entire ray at impact parameter p, from
z = -∞ to +∞. Rays with p ≤ 1 hit the star and are occulted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseFloats(args, "p")
			if err != nil {
				return err
			}
			cfg, err := wf.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runDepth(cmd.Context(), cfg, p[0], 0, true)
		},
	}
	wf.register(cmd)
	return cmd
}

// runDepth evaluates and prints one optical depth. Single points are not
// cached.
func (c *CLI) runDepth(ctx context.Context, cfg wind.Config, p, z float64, total bool) error {
	runner, err := c.newRunner(true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := pipeline.Options{Wind: cfg, Logger: c.Logger}
	var res *pipeline.DepthResult
	if total {
		res, err = runner.TotalDepth(ctx, opts, p)
	} else {
		res, err = runner.Depth(ctx, opts, p, z)
	}
	if err != nil {
		return err
	}

	printDepth(res)
	return nil
}

func printDepth(res *pipeline.DepthResult) {
	if res.Total {
		printKeyValue("p", formatFloat(res.P))
	} else {
		printKeyValue("(p, z)", fmt.Sprintf("(%s, %s)", formatFloat(res.P), formatFloat(res.Z)))
	}
	if res.Occulted {
		printKeyValue("tau", StyleWarning.Render("occulted"))
	} else {
		printKeyValue("tau", StyleNumber.Render(strconv.FormatFloat(res.Tau, 'g', -1, 64)))
	}
	msgs := make([]string, len(res.Warnings))
	for i, w := range res.Warnings {
		msgs[i] = w.Message
	}
	printWarnings(msgs)
	printStats(false, string(res.Method), res.Duration.String())
}

// =============================================================================
// grid
// =============================================================================

func (c *CLI) gridCommand() *cobra.Command {
	var (
		wf           windFlags
		rf           runFlags
		p, z         axis
		output       string
		format       string
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Optical depth on a grid of impact parameters and heights",
		Long: `Compute τ(p, z) on an evenly spaced p × z grid.

Without --output the grid is printed as a table, abbreviated to a few z
columns for large grids. With --output it is written as JSON or CSV depending
on the file extension. Use --format to write JSON or CSV to stdout instead.

Results are cached locally for faster subsequent runs.`,
		Example: `  windprofile grid --p-count 6 --z-count 7
  windprofile grid -c wind.toml -o tau.csv --progress
  windprofile grid show tau.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wf.resolve(cmd)
			if err != nil {
				return err
			}
			opts := rf.options(cfg)
			if opts.P, err = p.values("p"); err != nil {
				return err
			}
			if opts.Z, err = z.values("z"); err != nil {
				return err
			}
			return c.runGrid(cmd.Context(), opts, rf.noCache, output, format, showProgress)
		},
	}

	wf.register(cmd)
	rf.register(cmd)
	p.register(cmd, "p", "impact parameter", pipeline.DefaultPMin, pipeline.DefaultPMax, pipeline.DefaultPCount)
	z.register(cmd, "z", "height", pipeline.DefaultZMin, pipeline.DefaultZMax, pipeline.DefaultZCount)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.json or .csv)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "write json or csv to stdout instead of a table")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show a progress bar")

	cmd.AddCommand(c.gridShowCommand())
	return cmd
}

func (c *CLI) gridShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "Print a grid written by 'grid -o FILE.json'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := wpio.ImportGrid(args[0])
			if err != nil {
				return err
			}
			fmt.Println(renderGrid(g))
			printStats(true, fmt.Sprintf("%d × %d cells", len(g.P), len(g.Z)))
			return nil
		},
	}
}

func (c *CLI) runGrid(ctx context.Context, opts pipeline.Options, noCache bool, output, format string, showProgress bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	var res *pipeline.GridResult
	if showProgress {
		cells := len(opts.P) * len(opts.Z)
		var n atomic.Int64
		err = runWithProgress(ctx, "grid", cells, func(report func(int)) error {
			var err error
			res, err = runner.GridFunc(ctx, opts, func(i, j int, s opticaldepth.Sample) {
				report(int(n.Add(1)))
			})
			return err
		})
	} else {
		spinner := newSpinnerWithContext(ctx, "Computing optical depths...")
		spinner.Start()
		res, err = runner.Grid(ctx, opts)
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	g := res.Grid
	switch {
	case output != "":
		if err := wpio.ExportGrid(g, output); err != nil {
			return fmt.Errorf("write output %s: %w", output, err)
		}
		printSuccess("Grid complete")
		printFile(output)
	case format != "":
		f, err := wpio.ParseFormat(format)
		if err != nil {
			return err
		}
		return wpio.WriteGrid(g, os.Stdout, f)
	default:
		fmt.Println(renderGrid(g))
	}

	printStats(res.CacheHit,
		fmt.Sprintf("%d × %d cells", len(g.P), len(g.Z)),
		string(res.Method),
		res.Duration.String())
	if len(g.Warnings) > 0 {
		msgs := make([]string, len(g.Warnings))
		for i, w := range g.Warnings {
			msgs[i] = w.String()
		}
		printWarnings(msgs)
	}
	return nil
}

// renderGrid renders τ with one row per p. Large grids show an evenly
// spread subset of the z columns.
func renderGrid(g *opticaldepth.Grid) string {
	cols := columnSubset(len(g.Z), maxTableColumns)
	headers := []string{"p \\ z"}
	for _, j := range cols {
		headers = append(headers, formatFloat(g.Z[j]))
	}
	rows := make([][]string, len(g.P))
	for i, p := range g.P {
		row := []string{formatFloat(p)}
		for _, j := range cols {
			if t := g.Tau[i][j]; t == opticaldepth.Occulted {
				row = append(row, occultedCell)
			} else {
				row = append(row, formatFloat(t))
			}
		}
		rows[i] = row
	}
	return renderTable(headers, rows)
}

// columnSubset returns at most limit indices in [0, n), always including
// the first and last.
func columnSubset(n, limit int) []int {
	if n <= limit {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, limit)
	for k := range idx {
		idx[k] = k * (n - 1) / (limit - 1)
	}
	return idx
}

// =============================================================================
// compare
// =============================================================================

func (c *CLI) compareCommand() *cobra.Command {
	var (
		wf   windFlags
		rf   runFlags
		p, z axis
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare point-by-point and grid evaluation",
		Long: `Evaluate the same grid through the scalar entry point, one point at a time,
and through the parallel grid entry point. Reports both timings and the
largest difference between them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wf.resolve(cmd)
			if err != nil {
				return err
			}
			opts := rf.options(cfg)
			if opts.P, err = p.values("p"); err != nil {
				return err
			}
			if opts.Z, err = z.values("z"); err != nil {
				return err
			}
			return c.runCompare(cmd.Context(), opts)
		},
	}
	wf.register(cmd)
	rf.register(cmd)
	p.register(cmd, "p", "impact parameter", pipeline.DefaultPMin, pipeline.DefaultPMax, 11)
	z.register(cmd, "z", "height", pipeline.DefaultZMin, pipeline.DefaultZMax, 21)
	return cmd
}

func (c *CLI) runCompare(ctx context.Context, opts pipeline.Options) error {
	runner, err := c.newRunner(true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, "Comparing scalar and grid evaluation...")
	spinner.Start()
	res, err := runner.Compare(ctx, opts)
	spinner.Stop()
	if err != nil {
		return err
	}

	printSuccess("Compared %d cells", res.Cells)
	printKeyValue("scalar", res.ScalarTime.String())
	printKeyValue("grid", res.GridTime.String())
	printKeyValue("speedup", fmt.Sprintf("%.1fx", res.Speedup()))
	printKeyValue("max |Δτ|", StyleNumber.Render(formatFloat(res.MaxAbsDiff)))
	return nil
}
