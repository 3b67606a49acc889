package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/integrators"
	wpio "github.com/matzehuels/windprofile/pkg/io"
	"github.com/matzehuels/windprofile/pkg/pipeline"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// writeJSON writes v to stdout as indented JSON.
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// profile
// =============================================================================

// profileFlags are the line and emitter options of the profile command.
type profileFlags struct {
	bins       int
	xMin, xMax float64

	eMin, eMax float64
	eCount     int
	wavelength float64
	lineVInf   float64

	ion   int
	g     float64
	photo float64

	heR0, heP float64
	absorber  string

	scatterTau0  float64
	scatterBeta  float64
	scatterThick bool
}

func (f *profileFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.bins, "bins", pipeline.DefaultBins, "number of x bins")
	fs.Float64Var(&f.xMin, "x-min", pipeline.DefaultXMin, "lowest scaled wavelength x")
	fs.Float64Var(&f.xMax, "x-max", pipeline.DefaultXMax, "highest scaled wavelength x")

	fs.Float64Var(&f.eMin, "e-min", 0, "lowest bin energy, keV")
	fs.Float64Var(&f.eMax, "e-max", 0, "highest bin energy, keV")
	fs.IntVar(&f.eCount, "e-count", 0, "number of energy bins (0 to bin in x)")
	fs.Float64Var(&f.wavelength, "wavelength", 0, "rest wavelength of the line, Å")
	fs.Float64Var(&f.lineVInf, "line-v-inf", 0, "terminal velocity over c for the energy mapping")

	fs.IntVar(&f.ion, "ion", 0, "atomic number of a He-like triplet (replaces --wavelength)")
	fs.Float64Var(&f.g, "g", 1, "triplet (i + f)/r emissivity ratio")
	fs.Float64Var(&f.photo, "photo", 0, "photoexcitation parameter P of the f/i ratio")

	fs.Float64Var(&f.heR0, "he-r0", 0, "f/i ratio R0 without photoexcitation")
	fs.Float64Var(&f.heP, "he-p", 0, "photoexcitation parameter P for --he-r0")
	fs.StringVar(&f.absorber, "absorber", "", "resonance absorber wind TOML file")

	fs.Float64Var(&f.scatterTau0, "scatter-tau0", 0, "Sobolev optical depth scale of resonance scattering")
	fs.Float64Var(&f.scatterBeta, "scatter-beta", 0, "Sobolev angle parameter σ")
	fs.BoolVar(&f.scatterThick, "scatter-thick", false, "optically thick resonance scattering")
}

// apply fills the profile options of opts.
func (f *profileFlags) apply(cmd *cobra.Command, opts *pipeline.Options) error {
	var err error
	if f.eCount > 0 {
		if opts.Energies, err = span("energy", f.eMin, f.eMax, f.eCount+1); err != nil {
			return err
		}
	} else {
		if opts.X, err = span("x", f.xMin, f.xMax, f.bins+1); err != nil {
			return err
		}
	}

	switch {
	case f.ion > 0:
		opts.Triplet = &pipeline.TripletOptions{
			AtomicNumber: f.ion,
			G:            f.g,
			VInfinity:    f.lineVInf,
			P:            f.photo,
		}
	case f.wavelength > 0:
		opts.Line = &integrators.Line{Wavelength: f.wavelength, VInfinity: f.lineVInf}
	}

	fs := cmd.Flags()
	if fs.Changed("he-r0") || fs.Changed("he-p") {
		opts.HeLike = &integrators.HeLikeRatio{R0: f.heR0, P: f.heP}
	}
	if f.absorber != "" {
		a, err := loadWindConfig(f.absorber)
		if err != nil {
			return err
		}
		a.Method = wind.MethodResonance
		opts.Absorber = &a
	}
	if fs.Changed("scatter-tau0") || fs.Changed("scatter-beta") || f.scatterThick {
		opts.Scattering = &integrators.Scattering{
			Tau0Star:       f.scatterTau0,
			BetaSobolev:    f.scatterBeta,
			OpticallyThick: f.scatterThick,
		}
	}
	return nil
}

func (c *CLI) profileCommand() *cobra.Command {
	var (
		wf     windFlags
		rf     runFlags
		pf     profileFlags
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Binned X-ray emission line profile",
		Long: `Compute the emission line profile of the wind, binned in the scaled
wavelength x = (λ/λ0 - 1)/v∞ or, with --e-count, on an energy grid.

Resonance absorption (--absorber), a He-like triplet (--ion), an explicit
f/i ratio (--he-r0, --he-p) and resonance scattering (--scatter-*) modify the
emission. The profile is normalised to unit sum; the summary reports the
transmission relative to a transparent wind.`,
		Example: `  windprofile profile --tau-star 2 --bins 40
  windprofile profile -c wind.toml --e-min 0.56 --e-max 0.58 --e-count 50 --ion 8 --line-v-inf 0.005
  windprofile profile --tau-star 1 --absorber rad.toml -o profile.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wf.resolve(cmd)
			if err != nil {
				return err
			}
			opts := rf.options(cfg)
			if err := pf.apply(cmd, &opts); err != nil {
				return err
			}
			return c.runProfile(cmd.Context(), opts, rf.noCache, output, format)
		},
	}

	wf.register(cmd)
	rf.register(cmd)
	pf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.json or .csv)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "write json or csv to stdout instead of a summary")

	return cmd
}

func (c *CLI) runProfile(ctx context.Context, opts pipeline.Options, noCache bool, output, format string) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, "Computing line profile...")
	spinner.Start()
	res, err := runner.Profile(ctx, opts)
	spinner.Stop()
	if err != nil {
		return err
	}
	prof := res.Profile

	if format != "" {
		f, err := wpio.ParseFormat(format)
		if err != nil {
			return err
		}
		return wpio.WriteProfile(prof, os.Stdout, f)
	}

	printSuccess("Profile complete")
	if output != "" {
		if err := wpio.ExportProfile(prof, output); err != nil {
			return fmt.Errorf("write output %s: %w", output, err)
		}
		printFile(output)
	}
	fmt.Println("  " + StyleNumber.Render(sparkline(prof.Flux, 64)))
	printKeyValue("total", formatFloat(prof.Total))
	if prof.TransmissionRatio > 0 {
		printKeyValue("transmission", formatFloat(prof.TransmissionRatio))
	}
	if prof.RADFraction > 0 {
		printKeyValue("rad fraction", formatFloat(prof.RADFraction))
	}
	if prof.FToI > 0 {
		printKeyValue("f/i", formatFloat(prof.FToI))
	}
	printStats(res.CacheHit, fmt.Sprintf("%d bins", len(prof.Flux)), string(res.Method), res.Duration.String())
	return nil
}

// sparkRunes are the eighth-block glyphs used by sparkline.
var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline draws vs as block glyphs, averaging neighbouring values so that
// at most width glyphs are drawn.
func sparkline(vs []float64, width int) string {
	if len(vs) == 0 || width < 1 {
		return ""
	}
	n := min(len(vs), width)
	cells := make([]float64, n)
	for i := range cells {
		lo, hi := i*len(vs)/n, (i+1)*len(vs)/n
		cells[i] = floats.Sum(vs[lo:hi]) / float64(hi-lo)
	}
	top := floats.Max(cells)

	var b strings.Builder
	for _, v := range cells {
		k := 0
		if top > 0 && v > 0 {
			k = int(v / top * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[k])
	}
	return b.String()
}

// =============================================================================
// transmission
// =============================================================================

func (c *CLI) transmissionCommand() *cobra.Command {
	var (
		wf     windFlags
		rf     runFlags
		count  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "transmission",
		Short: "Angle-averaged transmission of the wind",
		Long: `Compute T(u), the transmission averaged over all directions from which the
observer can see a point at inverse radius u, on an even grid in (0, U0].`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wf.resolve(cmd)
			if err != nil {
				return err
			}
			opts := rf.options(cfg)
			if count < 1 {
				return errors.New(errors.ErrCodeInvalidInput, "u-count must be positive, got %d", count)
			}
			cfg.SetDefaults()
			u0 := cfg.U0
			if opts.U, err = span("u", u0/float64(count), u0, count); err != nil {
				return err
			}
			return c.runTransmission(cmd.Context(), opts, rf.noCache, asJSON)
		},
	}
	wf.register(cmd)
	rf.register(cmd)
	cmd.Flags().IntVar(&count, "u-count", pipeline.DefaultUCount, "number of u samples")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the result as JSON")
	return cmd
}

func (c *CLI) runTransmission(ctx context.Context, opts pipeline.Options, noCache, asJSON bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	prog := newProgress(c.Logger)
	res, err := runner.Transmission(ctx, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Computed %d transmission samples", len(res.T)))
	if asJSON {
		return writeJSON(res)
	}

	rows := make([][]string, len(res.U))
	for i := range res.U {
		rows[i] = []string{formatFloat(res.U[i]), formatFloat(1 / res.U[i]), formatFloat(res.T[i])}
	}
	fmt.Println(renderTable([]string{"u", "r", "T(u)"}, rows))
	printStats(res.CacheHit, string(res.Method), res.Duration.String())
	return nil
}

// =============================================================================
// luminosity
// =============================================================================

func (c *CLI) luminosityCommand() *cobra.Command {
	var (
		wf     windFlags
		rf     runFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "luminosity",
		Short: "Wind-integrated line luminosity and fractional emission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wf.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runLuminosity(cmd.Context(), rf.options(cfg), rf.noCache, asJSON)
		},
	}
	wf.register(cmd)
	rf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the result as JSON")
	return cmd
}

func (c *CLI) runLuminosity(ctx context.Context, opts pipeline.Options, noCache, asJSON bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	res, err := runner.Luminosity(ctx, opts)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(res)
	}

	printKeyValue("tau_star", formatFloat(res.TauStar))
	printKeyValue("absorbed", formatFloat(res.Absorbed))
	printKeyValue("transparent", formatFloat(res.Transparent))
	printKeyValue("fraction", StyleNumber.Render(formatFloat(res.Fraction)))
	printStats(res.CacheHit, string(res.Method), res.Duration.String())
	return nil
}

// =============================================================================
// sweep
// =============================================================================

func (c *CLI) sweepCommand() *cobra.Command {
	var (
		wf           windFlags
		rf           runFlags
		taus         axis
		logSpaced    bool
		asJSON       bool
		showProgress bool
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Fractional emission as a function of τ*",
		Long: `Compute the wind-integrated luminosity for a range of τ*, in parallel. Each
point is cached on its own, so extending a sweep only computes new points.`,
		Example: `  windprofile sweep --tau-min 0.1 --tau-max 100 --tau-count 13 --log
  windprofile sweep -c wind.toml --progress --json > sweep.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wf.resolve(cmd)
			if err != nil {
				return err
			}
			opts := rf.options(cfg)
			if opts.TauStars, err = sweepValues(taus, logSpaced); err != nil {
				return err
			}
			return c.runSweep(cmd.Context(), opts, rf.noCache, asJSON, showProgress)
		},
	}
	wf.register(cmd)
	rf.register(cmd)
	taus.register(cmd, "tau", "τ*", 0, 5, 11)
	cmd.Flags().BoolVar(&logSpaced, "log", false, "space τ* logarithmically")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the result as JSON")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show a progress bar")
	return cmd
}

// sweepValues returns the τ* samples of a sweep.
func sweepValues(a axis, logSpaced bool) ([]float64, error) {
	if !logSpaced || a.count < 2 {
		return a.values("tau")
	}
	if a.lo <= 0 || a.hi < a.lo {
		return nil, errors.New(errors.ErrCodeInvalidInput, "log sweep needs 0 < tau-min <= tau-max, got [%g, %g]", a.lo, a.hi)
	}
	return floats.LogSpan(make([]float64, a.count), a.lo, a.hi), nil
}

func (c *CLI) runSweep(ctx context.Context, opts pipeline.Options, noCache, asJSON, showProgress bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	var res *pipeline.SweepResult
	if showProgress {
		err = runWithProgress(ctx, "sweep", len(opts.TauStars), func(report func(int)) error {
			var err error
			res, err = runner.Sweep(ctx, opts, func(done, total int) { report(done) })
			return err
		})
	} else {
		prog := newProgress(c.Logger)
		res, err = runner.Sweep(ctx, opts, nil)
		if err == nil {
			prog.done(fmt.Sprintf("Swept %d values of tau_star", len(res.Points)))
		}
	}
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(res)
	}

	rows := make([][]string, len(res.Points))
	hits := 0
	for i, pt := range res.Points {
		rows[i] = []string{formatFloat(pt.TauStar), formatFloat(pt.Fraction), formatFloat(pt.Absorbed)}
		if pt.CacheHit {
			hits++
		}
	}
	fmt.Println(renderTable([]string{"τ*", "fraction", "absorbed"}, rows))
	printStats(res.CacheHit,
		fmt.Sprintf("%d points", len(res.Points)),
		fmt.Sprintf("%d cached", hits),
		res.Duration.String())
	return nil
}
