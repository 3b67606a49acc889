package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/windprofile/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// The --verbose flag is persistent and switches the shared logger to debug
// level before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   appName,
		Short: "Optical depths and X-ray line profiles of stellar winds",
		Long: `windprofile computes the optical depth of a spherically symmetric, radially
accelerating stellar wind, and the X-ray emission line profiles, transmission
and luminosities that follow from it.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := LogInfo
			if verbose {
				level = LogDebug
			}
			c.SetLogLevel(level)
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.tauCommand())
	root.AddCommand(c.totalCommand())
	root.AddCommand(c.gridCommand())
	root.AddCommand(c.compareCommand())
	root.AddCommand(c.radCommand())
	root.AddCommand(c.profileCommand())
	root.AddCommand(c.transmissionCommand())
	root.AddCommand(c.luminosityCommand())
	root.AddCommand(c.sweepCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}
