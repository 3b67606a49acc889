package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/windprofile/pkg/pipeline"
	"github.com/matzehuels/windprofile/pkg/resonance"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// radCommand groups the resonance (RAD) line diagnostics. The wind flags are
// shared; --tau-star is read as τ0 and the method is always resonance.
func (c *CLI) radCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rad",
		Short: "Resonance line optical depths",
		Long: `Diagnostics of resonance-line absorption (RAD) in the wind.

The line is described by its offset --delta-e, its Lorentzian width --gamma-e
(both relative to the line energy) and the terminal velocity --v-inf in units
of c. --tau-star sets the line-centre opacity τ0.`,
	}

	cmd.AddCommand(c.radDepthCommand())
	cmd.AddCommand(c.radIntegrandCommand())
	cmd.AddCommand(c.radResonanceCommand())

	return cmd
}

// resolveResonance resolves the wind flags as a resonance line.
func resolveResonance(cmd *cobra.Command, wf *windFlags) (wind.Config, error) {
	cfg, err := wf.resolve(cmd)
	if err != nil {
		return cfg, err
	}
	cfg.Method = wind.MethodResonance
	return cfg, nil
}

// resonanceModel builds the resonance line model of cfg.
func resonanceModel(cfg wind.Config) (*resonance.Model, error) {
	m, err := wind.New(cfg)
	if err != nil {
		return nil, err
	}
	return resonance.New(resonance.ParamsFromWind(m), cfg.Quadrature)
}

func (c *CLI) radDepthCommand() *cobra.Command {
	var wf windFlags
	cmd := &cobra.Command{
		Use:     "depth P Z",
		Short:   "Resonance optical depth from (p, z) to the observer",
		Example: `  windprofile rad depth 0 2 --tau-star 2 --delta-e 0.002 --gamma-e 0.001 --v-inf 0.005`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pz, err := parseFloats(args, "p", "z")
			if err != nil {
				return err
			}
			cfg, err := resolveResonance(cmd, &wf)
			if err != nil {
				return err
			}
			return c.runDepth(cmd.Context(), cfg, pz[0], pz[1], false)
		},
	}
	wf.register(cmd)
	return cmd
}

func (c *CLI) radIntegrandCommand() *cobra.Command {
	var wf windFlags
	cmd := &cobra.Command{
		Use:   "integrand P Z0 Z",
		Short: "Resonance opacity at depth z for a photon emitted at z0",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "p", "z0", "z")
			if err != nil {
				return err
			}
			cfg, err := resolveResonance(cmd, &wf)
			if err != nil {
				return err
			}
			m, err := resonanceModel(cfg)
			if err != nil {
				return err
			}
			printKeyValue("integrand", StyleNumber.Render(formatFloat(m.Integrand(v[0], v[1], v[2]))))
			return nil
		},
	}
	wf.register(cmd)
	return cmd
}

func (c *CLI) radResonanceCommand() *cobra.Command {
	var wf windFlags
	cmd := &cobra.Command{
		Use:   "resonance P Z0",
		Short: "Locate where a photon emitted at (p, z0) comes into resonance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseFloats(args, "p", "z0")
			if err != nil {
				return err
			}
			cfg, err := resolveResonance(cmd, &wf)
			if err != nil {
				return err
			}
			return c.runResonance(cmd.Context(), cfg, v[0], v[1])
		},
	}
	wf.register(cmd)
	return cmd
}

func (c *CLI) runResonance(ctx context.Context, cfg wind.Config, p, z0 float64) error {
	m, err := resonanceModel(cfg)
	if err != nil {
		return err
	}
	r, err := m.ResonancePoint(p, z0)
	if err != nil {
		return err
	}
	if !r.Found {
		printInfo("No resonance beyond z0 = %s", formatFloat(z0))
		return nil
	}

	runner, err := c.newRunner(true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	res, err := runner.Depth(ctx, pipeline.Options{Wind: cfg, Logger: c.Logger}, p, z0)
	if err != nil {
		return err
	}

	printKeyValue("z_res", StyleNumber.Render(formatFloat(r.Z)))
	printKeyValue("width", formatFloat(r.Width))
	printKeyValue("tau", StyleNumber.Render(formatFloat(res.Tau)))
	return nil
}
