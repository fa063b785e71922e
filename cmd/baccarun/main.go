package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/sawpanic/baccarun/internal/interfaces/http"
)

const appName = "baccarun"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Baccarat prediction engine",
		Version: httpapi.Version,
		Long: `baccarun records a shoe hand by hand and combines eleven pattern analyzers
and an adaptive ensemble into a Player/Banker prediction with its reasoning.

Run 'baccarun play' for an interactive shoe or 'baccarun serve' for the HTTP API.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newPredictCmd(),
		newPlayCmd(),
		newServeCmd(),
		newWeightsCmd(),
		newExportCmd(),
		newImportCmd(),
	)
	return rootCmd
}
