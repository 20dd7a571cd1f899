package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradereplay/internal/app"
	"github.com/rustyeddy/tradereplay/journal"
	"github.com/rustyeddy/tradereplay/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a feed headless and print the P/L summary",
	Long: `Fetch a feed and play it back on the playback clock, logging every signal,
then print realized, open and total P/L.

Examples:
  tradereplay replay --symbol SPY --strategy sma_crossover --resolution 1d
  tradereplay replay --file data/spy.csv --label ema-cross --instant
  tradereplay replay -f replay.yaml --speed 4x --org report.org`,
	RunE: runReplay,
}

var (
	replayFlags   playbackFlags
	replayInstant bool
	replayOrg     string
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayFlags.register(replayCmd)
	replayCmd.Flags().BoolVar(&replayInstant, "instant", false, "step through every bar without waiting on the clock")
	replayCmd.Flags().StringVar(&replayOrg, "org", "", "write an Org session report to this file")
}

func runReplay(cmd *cobra.Command, args []string) error {
	a, err := setup(false, replayFlags.apply(cmd))
	if err != nil {
		return err
	}
	defer teardown(a)

	q, err := a.Config.Query()
	if err != nil {
		return err
	}
	speed, err := a.Config.Speed()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := a.NewSession("", q, speed)
	if err != nil {
		return err
	}
	defer sess.Close()

	fmt.Printf("Replaying %s\n", q)
	if replayInstant {
		err = playInstant(ctx, sess)
	} else {
		err = playClocked(ctx, a, sess)
	}
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return err
	}

	sess.Notifications().Wait()
	printSummary(sess, interrupted)

	if replayOrg != "" {
		if err := writeOrgReport(replayOrg, sess); err != nil {
			return fmt.Errorf("org report: %w", err)
		}
		fmt.Printf("\nReport saved to: %s\n", replayOrg)
	}
	return nil
}

func playInstant(ctx context.Context, sess *replay.Session) error {
	for sess.State() != replay.Finished {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sess.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// playClocked starts the session and reports progress until it finishes or
// ctx is canceled.
func playClocked(ctx context.Context, a *app.App, sess *replay.Session) error {
	g, gctx := errgroup.WithContext(ctx)
	finished := make(chan struct{})

	g.Go(func() error {
		defer close(finished)
		if err := sess.Start(gctx); err != nil {
			return err
		}
		select {
		case <-sess.Done():
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})

	g.Go(func() error {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-finished:
				return nil
			case <-t.C:
				snap := sess.Snapshot()
				a.Log.Info("progress",
					zap.Int("played", snap.Played),
					zap.Int("total", snap.Total),
					zap.String("total_pl", snap.PnL.Total.StringFixed(2)),
				)
			}
		}
	})

	return g.Wait()
}

func printSummary(sess *replay.Session, interrupted bool) {
	snap := sess.Snapshot()
	pnl, stats := sess.Report()

	if interrupted {
		fmt.Printf("\nReplay interrupted at bar %d of %d\n", snap.Played, snap.Total)
	} else {
		fmt.Printf("\nReplay complete! (%d bars", snap.Total)
		if snap.DataSource != "" {
			fmt.Printf(", source %s", snap.DataSource)
		}
		fmt.Println(")")
	}
	fmt.Printf("  Realized P/L: %s\n", pnl.Realized.StringFixed(2))
	fmt.Printf("  Open P/L:     %s\n", pnl.Open.StringFixed(2))
	fmt.Printf("  Total P/L:    %s\n", pnl.Total.StringFixed(2))
	fmt.Printf("  Trades: %d (wins %d, losses %d, win rate %.1f%%)\n",
		stats.Trades, stats.Wins, stats.Losses, stats.WinRate*100)
	fmt.Printf("  Open positions: %d\n", pnl.OpenPositions)
}

func writeOrgReport(path string, sess *replay.Session) error {
	snap := sess.Snapshot()
	pnl, stats := sess.Report()

	r := journal.SessionReport{
		SessionID:  snap.ID,
		Created:    time.Now(),
		Symbol:     snap.Query.Symbol,
		Strategy:   snap.Query.Strategy,
		Resolution: snap.Query.Resolution.String(),
		DataSource: snap.DataSource,
		Bars:       snap.Played,
		PnL:        pnl,
		Stats:      stats,
	}
	if f := sess.Feed(); f.Len() > 0 {
		r.Start = string(f.Bars[0].Key)
		r.End = string(f.Bars[f.Len()-1].Key)
	}
	if snap.Played < snap.Total {
		r.Notes = append(r.Notes, fmt.Sprintf("stopped after %d of %d bars", snap.Played, snap.Total))
	}

	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteOrg(fh); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
