package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/config"
	"github.com/sawpanic/baccarun/internal/persistence/file"
	"github.com/sawpanic/baccarun/internal/session"
)

const playHelp = `commands:
  p b t      record Player, Banker or Tie
  u          undo the last hand
  n          new shoe (keeps adaptive weights)
  c          new shoe and reset adaptive weights
  m <mode>   switch mode (conservative|balanced|aggressive|adaptive)
  e          explain the current prediction
  a          staking advice
  s          shoe statistics
  h          help
  q          quit`

type playOptions struct {
	store     string
	sessionID string
	mode      combine.Mode
}

func newPlayCmd() *cobra.Command {
	opts := playOptions{mode: combine.Balanced}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Record a shoe interactively",
		Long:  "Reads one command per line and prints a fresh prediction after every hand",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.store, "store", "", "Snapshot directory; the session survives restarts when set")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "Resume this session id from --store")
	cmd.Flags().Var(&opts.mode, "mode", "Prediction mode")
	return cmd
}

// lineReader abstracts the raw terminal and a plain stdin scanner
type lineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct{ sc *bufio.Scanner }

func (r scannerReader) ReadLine() (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func runPlay(ctx context.Context, opts playOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	engine, err := buildEngine(config.EngineConfig{})
	if err != nil {
		return err
	}

	var managerOpts []session.ManagerOption
	if opts.store != "" {
		store, err := file.NewStore(opts.store)
		if err != nil {
			return err
		}
		managerOpts = append(managerOpts, session.WithStore(store))
	}
	manager := session.NewManager(engine, managerOpts...)

	id := opts.sessionID
	if id == "" {
		s, err := manager.Create(ctx)
		if err != nil {
			return err
		}
		id = s.ID()
	} else if _, err := manager.Get(ctx, id); err != nil {
		return err
	}

	var (
		in  lineReader
		out io.Writer = os.Stdout
	)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw terminal: %w", err)
		}
		defer term.Restore(fd, oldState)
		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{os.Stdin, os.Stdout}, "> ")
		in, out = t, t
	} else {
		in = scannerReader{sc: bufio.NewScanner(os.Stdin)}
	}

	p := &player{ctx: ctx, manager: manager, id: id, mode: opts.mode, out: out}
	fmt.Fprintf(out, "session %s, mode %s (h for help)\n", id, p.mode)
	p.showPrediction()
	for {
		line, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return manager.Flush(ctx)
		}
		if err != nil {
			return err
		}
		if quit := p.handle(strings.TrimSpace(line)); quit {
			return manager.Flush(ctx)
		}
	}
}

type player struct {
	ctx     context.Context
	manager *session.Manager
	id      string
	mode    combine.Mode
	out     io.Writer
}

// handle runs one command and reports whether to quit
func (p *player) handle(line string) bool {
	if line == "" {
		return false
	}
	fields := strings.Fields(strings.ToLower(line))
	switch fields[0] {
	case "p", "b", "t":
		rec, err := p.manager.Record(p.ctx, p.id, fields[0])
		if err != nil {
			p.fail(err)
			return false
		}
		if v := rec.Validated; v != nil {
			verdict := "missed"
			if v.Correct {
				verdict = "hit"
			}
			fmt.Fprintf(p.out, "hand %d: %s, prediction %s %s\n", rec.Index+1, rec.Outcome.Name(), v.Predicted, verdict)
		} else {
			fmt.Fprintf(p.out, "hand %d: %s\n", rec.Index+1, rec.Outcome.Name())
		}
		p.showPrediction()
	case "u":
		removed, err := p.manager.Undo(p.ctx, p.id)
		if errors.Is(err, session.ErrEmptySequence) {
			fmt.Fprintln(p.out, "nothing to undo")
			return false
		}
		if err != nil {
			p.fail(err)
			return false
		}
		fmt.Fprintf(p.out, "removed %s\n", removed.Name())
		p.showPrediction()
	case "n", "c":
		if err := p.manager.Reset(p.ctx, p.id, fields[0] == "c"); err != nil {
			p.fail(err)
			return false
		}
		fmt.Fprintln(p.out, "new shoe")
		p.showPrediction()
	case "m":
		if len(fields) < 2 {
			fmt.Fprintf(p.out, "mode is %s\n", p.mode)
			return false
		}
		mode, err := combine.ParseMode(fields[1])
		if err != nil {
			p.fail(err)
			return false
		}
		p.mode = mode
		p.showPrediction()
	case "e":
		s, err := p.manager.Get(p.ctx, p.id)
		if err != nil {
			p.fail(err)
			return false
		}
		f, err := s.Peek(p.mode)
		if err != nil {
			p.fail(err)
			return false
		}
		printExplanation(p.out, f.Explanation)
	case "a":
		f, a, err := p.manager.Advise(p.ctx, p.id, p.mode)
		if err != nil {
			p.fail(err)
			return false
		}
		printForecast(p.out, f)
		printAdvice(p.out, a)
	case "s":
		s, err := p.manager.Get(p.ctx, p.id)
		if err != nil {
			p.fail(err)
			return false
		}
		printStats(p.out, s.Stats())
	case "h", "?":
		fmt.Fprintln(p.out, playHelp)
	case "q", "quit", "exit":
		return true
	default:
		fmt.Fprintf(p.out, "unknown command %q (h for help)\n", line)
	}
	return false
}

func (p *player) showPrediction() {
	f, err := p.manager.Predict(p.ctx, p.id, p.mode)
	if err != nil {
		p.fail(err)
		return
	}
	printForecast(p.out, f)
}

func (p *player) fail(err error) {
	log.Debug().Err(err).Str("session", p.id).Msg("Command failed")
	fmt.Fprintf(p.out, "error: %v\n", err)
}

func printStats(w io.Writer, st session.ShoeStats) {
	fmt.Fprintf(w, "hands %d: P %d (%.1f%%) B %d (%.1f%%) T %d (%.1f%%)\n", st.Total,
		st.Player, st.PlayerPercent, st.Banker, st.BankerPercent, st.Tie, st.TiePercent)
	if st.CurrentStreak.Length > 0 {
		fmt.Fprintf(w, "streak %s x%d, longest P %d B %d\n", st.CurrentStreak.Outcome,
			st.CurrentStreak.Length, st.LongestPlayer, st.LongestBanker)
	}
	acc := st.Accuracy.Overall
	if acc.Total > 0 {
		fmt.Fprintf(w, "accuracy %d/%d (%.1f%%), last %d: %.1f%%\n", acc.Correct, acc.Total, acc.Rate,
			st.Accuracy.Recent.Total, st.Accuracy.Recent.Rate)
	}
}
