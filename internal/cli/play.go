package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/macrorec-project/macrorec/pkg/color"
	"github.com/macrorec-project/macrorec/pkg/macro"
	"github.com/macrorec-project/macrorec/pkg/progress"
)

var (
	playDryRun     bool
	playNoProgress bool
)

var playCmd = &cobra.Command{
	Use:   "play [file]",
	Short: "Replay a saved timeline",
	Long: `Replay a saved timeline without the interactive screen.

Events are dispatched with the recorded delays between them. Interrupt
with Ctrl-C to stop early; the remaining events are not dispatched.

With --dry-run nothing is injected and each dispatch is printed instead.

Examples:
  macrorec play                 # Replay the default file
  macrorec play demo.json       # Replay demo.json
  macrorec play --dry-run       # Print what would be dispatched`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		closeLog, err := setupLogging(cfg, os.Stderr)
		if err != nil {
			return err
		}
		defer closeLog()

		name := cfg.Playback.Injector
		if playDryRun {
			name = "print"
		}
		var dispatchOut io.Writer = os.Stdout
		if jsonOutput {
			dispatchOut = os.Stderr
		}
		inj, err := newInjector(name, dispatchOut)
		if err != nil {
			return err
		}

		path := fileArg(cfg, args)
		bar := progress.NewTerminal(os.Stderr, "play", 0, !jsonOutput && !playNoProgress && !playDryRun)
		eng, err := newEngine(cfg, inj, bar.Callback())
		if err != nil {
			return err
		}
		defer eng.Quit()

		if err := eng.Load(path); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := eng.Play(); err != nil {
			return err
		}
		select {
		case <-eng.PlaybackDone():
		case <-ctx.Done():
			eng.StopPlayback()
			<-eng.PlaybackDone()
		}

		res := eng.Status().LastPlayback
		if res == nil {
			return fmt.Errorf("playback produced no result")
		}
		bar.Done(summary(*res), res.Cancelled)

		if jsonOutput {
			return outputJSON(res)
		}
		if res.Cancelled {
			printf("%s %s\n", color.Warning("Playback cancelled:"), summary(*res))
		} else {
			printf("%s %s\n", color.Success("Played"), summary(*res))
		}
		return nil
	},
}

func summary(r macro.Result) string {
	s := fmt.Sprintf("%d/%d events in %s", r.Dispatched, r.Total, r.Duration.Round(time.Millisecond))
	if r.Skipped > 0 || r.Failed > 0 {
		s += fmt.Sprintf(" (%d skipped, %d failed)", r.Skipped, r.Failed)
	}
	return s
}

func init() {
	playCmd.Flags().BoolVar(&playDryRun, "dry-run", false, "print dispatches instead of injecting input")
	playCmd.Flags().BoolVar(&playNoProgress, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(playCmd)
}
