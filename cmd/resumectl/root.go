package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"resume-feedback/internal/bootstrap"
	"resume-feedback/internal/shared/config"
	"resume-feedback/internal/shared/telemetry"
)

var (
	noColor bool
	verbose bool
	cfg     config.Config

	// buildApp is replaced in tests to share one in-memory app across commands.
	buildApp = bootstrap.Build
)

var rootCmd = &cobra.Command{
	Use:           "resumectl",
	Short:         "Analyze resumes against a job description from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		cfg = config.Load()
		level := "warn"
		if verbose {
			level = "debug"
		}
		telemetry.Configure(telemetry.Options{
			Level:   level,
			Format:  "console",
			Output:  os.Stderr,
			Service: "resumectl",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(analyzeCmd, showCmd, tokenCmd)
}
