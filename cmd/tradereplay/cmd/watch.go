package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradereplay/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Replay a feed interactively in the terminal",
	Long: `Open a terminal view of a replay session with playback controls.

Keys: space play/pause, n step, r reset, +/- speed, x dismiss, c clear, q quit.
Logs go to log.file only while the view is open.

Example:
  tradereplay watch --symbol QQQ --resolution 1h --lookback 1mo`,
	RunE: runWatch,
}

var (
	watchFlags     playbackFlags
	watchAutoStart bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchFlags.register(watchCmd)
	watchCmd.Flags().BoolVar(&watchAutoStart, "start", false, "start playback immediately")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := setup(true, watchFlags.apply(cmd))
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

	if watchAutoStart {
		go func() { _ = sess.Start(ctx) }()
	}

	p := tea.NewProgram(tui.New(ctx, sess), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}
