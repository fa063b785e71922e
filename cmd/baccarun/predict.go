package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sawpanic/baccarun/internal/advisor"
	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/config"
	"github.com/sawpanic/baccarun/internal/explain"
	"github.com/sawpanic/baccarun/internal/session"
)

type predictOptions struct {
	seq         string
	mode        combine.Mode
	advice      bool
	explain     bool
	json        bool
	weightsFile string
}

func newPredictCmd() *cobra.Command {
	opts := predictOptions{mode: combine.Balanced}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the next hand of a sequence",
		Long:  "Replays a hand history such as PBBTP and prints the prediction for the next hand",
		Example: `  baccarun predict --seq PBPPBBB
  baccarun predict --seq BBPB --mode adaptive --explain
  baccarun predict --seq PPPB --advice --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.seq, "seq", "", "Hand history, one of P, B or T per hand (separators ignored)")
	cmd.Flags().Var(&opts.mode, "mode", "Prediction mode (conservative|balanced|aggressive|adaptive)")
	cmd.Flags().BoolVar(&opts.advice, "advice", false, "Include staking advice")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show the per-analyzer breakdown")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print JSON")
	cmd.Flags().StringVar(&opts.weightsFile, "weights", "", "Optional mode weights YAML")
	return cmd
}

type predictOutput struct {
	Hands       int                  `json:"hands"`
	Mode        combine.Mode         `json:"mode"`
	Prediction  interface{}          `json:"prediction"`
	Winner      string               `json:"winner,omitempty"`
	Advice      *advisor.Advice      `json:"advice,omitempty"`
	Explanation *explain.Explanation `json:"explanation,omitempty"`
}

func runPredict(w io.Writer, opts predictOptions) error {
	engine, err := buildEngine(config.EngineConfig{WeightsFile: opts.weightsFile})
	if err != nil {
		return err
	}

	s := session.New("", engine)
	for _, c := range opts.seq {
		if strings.ContainsRune(" ,-", c) {
			continue
		}
		if _, err := s.RecordOutcome(string(c)); err != nil {
			return err
		}
	}

	var (
		f session.Forecast
		a advisor.Advice
	)
	if opts.advice {
		f, a, err = s.Advise(opts.mode)
	} else {
		f, err = s.Predict(opts.mode)
	}
	if err != nil {
		return err
	}

	if opts.json {
		out := predictOutput{Hands: f.Hands, Mode: f.Mode, Prediction: f.Prediction, Winner: f.Winner}
		if opts.advice {
			out.Advice = &a
		}
		if opts.explain {
			out.Explanation = &f.Explanation
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printForecast(w, f)
	if opts.advice {
		printAdvice(w, a)
	}
	if opts.explain {
		printExplanation(w, f.Explanation)
	}
	return nil
}

func printForecast(w io.Writer, f session.Forecast) {
	p := f.Prediction
	fmt.Fprintf(w, "[%s] after %d hands: %s %.1f%% (alt %s %.1f%%)\n", f.Mode, f.Hands,
		p.Primary.Outcome.Name(), p.Primary.Confidence, p.Alternative.Outcome.Name(), p.Alternative.Confidence)
	fmt.Fprintf(w, "  %s\n", p.Reasoning)
}

func printAdvice(w io.Writer, a advisor.Advice) {
	fmt.Fprintf(w, "  advice: %s (%s strategy, %s risk, %s)\n", a.RecommendedBet, a.Strategy, a.RiskLevel, a.UnitSize())
}

func printExplanation(w io.Writer, ex explain.Explanation) {
	fmt.Fprintf(w, "  %s\n", ex.Summary)
	for _, c := range ex.Contributions {
		switch {
		case c.Excluded:
			fmt.Fprintf(w, "    %-13s excluded (%s)\n", c.Name, c.Reason)
		case c.Outcome == "":
			fmt.Fprintf(w, "    %-13s no signal\n", c.Name)
		default:
			fmt.Fprintf(w, "    %-13s %s %5.1f%% x%.2f\n", c.Name, c.Outcome, c.Confidence, c.Weight)
		}
	}
	for _, flag := range ex.RiskFlags {
		fmt.Fprintf(w, "  ! %s\n", flag)
	}
}
