package cli

import (
	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// =============================================================================
// Wind Model Flags
// =============================================================================

// windFlags binds the wind model to flags. A TOML file given with --config
// is applied first; flags set explicitly on the command line override it.
type windFlags struct {
	path   string
	method string
	cfg    wind.Config
}

func (f *windFlags) register(cmd *cobra.Command) {
	d := wind.DefaultConfig()
	fs := cmd.Flags()
	fs.StringVarP(&f.path, "config", "c", "", "wind model TOML file")
	fs.StringVarP(&f.method, "method", "m", string(d.Method), "strategy: analytic, numerical, resonance")
	fs.Float64Var(&f.cfg.Beta, "beta", d.Beta, "velocity-law exponent β")
	fs.Float64Var(&f.cfg.U0, "u0", d.U0, "inverse onset radius of X-ray emission")
	fs.Float64Var(&f.cfg.UMin, "u-min", 0, "inverse outer radius of X-ray emission")
	fs.Float64Var(&f.cfg.Q, "q", 0, "emissivity exponent")
	fs.Float64VarP(&f.cfg.TauStar, "tau-star", "t", d.TauStar, "characteristic optical depth τ* (τ0 for resonance)")
	fs.Float64Var(&f.cfg.H, "h", 0, "porosity length scale (0 for a smooth wind)")
	fs.BoolVar(&f.cfg.Anisotropic, "anisotropic", false, "anisotropic (radially flattened) clumps")
	fs.BoolVar(&f.cfg.Rosseland, "rosseland", false, "Rosseland-mean porosity")
	fs.BoolVar(&f.cfg.Expansion, "expansion", false, "porosity length grows with radius")
	fs.BoolVar(&f.cfg.HeLike, "he-like", false, "He recombination edge opacity")
	fs.Float64Var(&f.cfg.KappaRatio, "kappa-ratio", 0, "He-like to base opacity ratio κ")
	fs.Float64Var(&f.cfg.DeltaE, "delta-e", 0, "resonance line offset ΔE/E")
	fs.Float64Var(&f.cfg.GammaE, "gamma-e", 0, "resonance line width γE/E")
	fs.Float64Var(&f.cfg.VInfinity, "v-inf", 0, "terminal velocity over c")
}

// resolve merges the config file and explicitly set flags.
func (f *windFlags) resolve(cmd *cobra.Command) (wind.Config, error) {
	cfg := wind.DefaultConfig()
	if f.path != "" {
		var err error
		if cfg, err = loadWindConfig(f.path); err != nil {
			return cfg, err
		}
	}

	fs := cmd.Flags()
	if fs.Changed("method") {
		m, err := wind.ParseMethod(f.method)
		if err != nil {
			return cfg, err
		}
		cfg.Method = m
	}
	overrides := map[string]func(){
		"beta":        func() { cfg.Beta = f.cfg.Beta },
		"u0":          func() { cfg.U0 = f.cfg.U0 },
		"u-min":       func() { cfg.UMin = f.cfg.UMin },
		"q":           func() { cfg.Q = f.cfg.Q },
		"tau-star":    func() { cfg.TauStar = f.cfg.TauStar },
		"h":           func() { cfg.H = f.cfg.H },
		"anisotropic": func() { cfg.Anisotropic = f.cfg.Anisotropic },
		"rosseland":   func() { cfg.Rosseland = f.cfg.Rosseland },
		"expansion":   func() { cfg.Expansion = f.cfg.Expansion },
		"he-like":     func() { cfg.HeLike = f.cfg.HeLike },
		"kappa-ratio": func() { cfg.KappaRatio = f.cfg.KappaRatio },
		"delta-e":     func() { cfg.DeltaE = f.cfg.DeltaE },
		"gamma-e":     func() { cfg.GammaE = f.cfg.GammaE },
		"v-inf":       func() { cfg.VInfinity = f.cfg.VInfinity },
	}
	for name, apply := range overrides {
		if fs.Changed(name) {
			apply()
		}
	}
	return cfg, nil
}

// loadWindConfig decodes a TOML wind file on top of the default model.
// Unknown keys are rejected so that typos do not go unnoticed.
func loadWindConfig(path string) (wind.Config, error) {
	cfg := wind.DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeConfiguration, err, "read %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.New(errors.ErrCodeConfiguration, "%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// =============================================================================
// Grids
// =============================================================================

// axis is an evenly spaced coordinate grid given as bounds and a count.
type axis struct {
	lo, hi float64
	count  int
}

func (a *axis) register(cmd *cobra.Command, name, unit string, lo, hi float64, count int) {
	fs := cmd.Flags()
	fs.Float64Var(&a.lo, name+"-min", lo, "smallest "+unit)
	fs.Float64Var(&a.hi, name+"-max", hi, "largest "+unit)
	fs.IntVar(&a.count, name+"-count", count, "number of "+unit+" samples")
}

// values returns the samples of the axis.
func (a axis) values(name string) ([]float64, error) {
	return span(name, a.lo, a.hi, a.count)
}

// span returns n evenly spaced values from lo to hi inclusive.
func span(name string, lo, hi float64, n int) ([]float64, error) {
	switch {
	case n < 1:
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s needs at least one sample, got %d", name, n)
	case n == 1:
		return []float64{lo}, nil
	case hi < lo:
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s range is reversed: [%g, %g]", name, lo, hi)
	}
	return floats.Span(make([]float64, n), lo, hi), nil
}
