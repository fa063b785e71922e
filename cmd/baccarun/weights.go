package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sawpanic/baccarun/internal/adaptive"
	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/config"
)

func newWeightsCmd() *cobra.Command {
	var (
		mode        string
		weightsFile string
	)

	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Show the analyzer weights of each mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(config.EngineConfig{WeightsFile: weightsFile})
			if err != nil {
				return err
			}
			modes := append([]combine.Mode{}, combine.FixedModes...)
			if mode != "" {
				m, err := combine.ParseMode(mode)
				if err != nil {
					return err
				}
				modes = []combine.Mode{m}
			}
			return printWeights(cmd.OutOrStdout(), engine.Weights(), engine.Registry().Names(), modes)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Only this mode")
	cmd.Flags().StringVar(&weightsFile, "weights", "", "Optional mode weights YAML")
	return cmd
}

func printWeights(w io.Writer, wm *combine.WeightManager, analyzers []string, modes []combine.Mode) error {
	for _, m := range modes {
		if m == combine.Adaptive {
			printAdaptivePrior(w)
			continue
		}
		preset, ok := wm.GetPreset(m)
		if !ok {
			return fmt.Errorf("%w: %s", combine.ErrUnknownMode, m)
		}
		fmt.Fprintf(w, "%s: %s\n", preset.Name, preset.Description)
		for _, name := range analyzers {
			fmt.Fprintf(w, "  %-13s %.2f\n", name, preset.Weights.Weight(name))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func printAdaptivePrior(w io.Writer) {
	prior := adaptive.Prior()
	names := make([]string, 0, len(prior))
	for name := range prior {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "adaptive: starting sub-model weights")
	for _, name := range names {
		fmt.Fprintf(w, "  %-13s %.2f\n", name, prior[name])
	}
	fmt.Fprintln(w)
}
