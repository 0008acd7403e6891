package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/macrorec-project/macrorec/internal/input/terminal"
	"github.com/macrorec-project/macrorec/pkg/color"
	"github.com/macrorec-project/macrorec/pkg/config"
	"github.com/macrorec-project/macrorec/pkg/logging"
	"github.com/macrorec-project/macrorec/pkg/macro"
)

const redrawInterval = 100 * time.Millisecond

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Start an interactive recording session",
	Long: `Start an interactive session in the terminal.

Keyboard and mouse input delivered to the terminal is recorded while
recording is active. Control keys are never recorded:

  record   start or stop recording (discards the previous timeline)
  play     replay the timeline with its original timing
  save     write the timeline to the default file
  load     replace the timeline with the default file
  cancel   stop playback, or quit when nothing is playing

Bindings default to F8, F9, F10, F11 and Esc and can be changed with
"macrorec config set bindings.<action> <key>".

Edits to the config file while the session runs update the bindings.
Logs are written to logging.file when configured and discarded otherwise,
so they do not disturb the screen.

Examples:
  macrorec run                  # Start with an empty timeline
  macrorec run demo.json        # Start with demo.json loaded`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		closeLog, err := setupLogging(cfg, io.Discard)
		if err != nil {
			return err
		}
		defer closeLog()

		inj, err := newInjector(cfg.Playback.Injector, io.Discard)
		if err != nil {
			return err
		}
		eng, err := newEngine(cfg, inj, nil)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			if err := eng.Load(args[0]); err != nil {
				return err
			}
		}

		obs, err := terminal.NewDefault()
		if err != nil {
			return err
		}
		if err := eng.Attach(obs); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			eng.Quit()
		}()

		if w := watchBindings(ctx, eng); w != nil {
			defer w.Close()
		}

		ticker := time.NewTicker(redrawInterval)
		defer ticker.Stop()
		obs.Draw(statusLines(eng.Status(), eng.Bindings())...)
	loop:
		for {
			select {
			case <-eng.Done():
				break loop
			case <-ticker.C:
				obs.Draw(statusLines(eng.Status(), eng.Bindings())...)
			}
		}
		eng.Wait()

		st := eng.Status()
		if jsonOutput {
			return outputJSON(st)
		}
		c := st.Counters
		printf("%s\n", color.Header("Session ended"))
		printf("  Events in timeline: %s\n", color.Info(strconv.Itoa(st.Events)))
		printf("  Recordings:         %s\n", color.Info(strconv.FormatInt(c.Recordings, 10)))
		printf("  Playbacks:          %s (%d cancelled)\n", color.Info(strconv.FormatInt(c.Playbacks, 10)), c.PlaybacksCanceled)
		printf("  Saves / loads:      %d / %d\n", c.Saves, c.Loads)
		if c.FileErrors > 0 {
			printf("  File errors:        %s\n", color.Warning(strconv.FormatInt(c.FileErrors, 10)))
		}
		return nil
	},
}

// watchBindings reloads the key bindings when the config file changes. It
// returns nil when there is no config file to watch.
func watchBindings(ctx context.Context, eng *macro.Engine) *config.Watcher {
	path, err := resolveConfigPath()
	if err != nil {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	w, err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if err != nil {
			logging.Warn("config reload failed", map[string]any{"path": path, "error": err.Error()})
			return
		}
		eng.SetBindings(bindingsFrom(cfg))
	})
	if err != nil {
		logging.Warn("config watch unavailable", map[string]any{"path": path, "error": err.Error()})
		return nil
	}
	return w
}

// statusLines renders the interactive screen.
func statusLines(st macro.Status, b macro.Bindings) []string {
	lines := []string{
		"macrorec",
		"",
		"Status: " + st.Label,
		"Events: " + strconv.Itoa(st.Events),
		"File:   " + st.File,
	}
	if st.LastPlayback != nil {
		r := st.LastPlayback
		last := "Last playback: " + strconv.Itoa(r.Dispatched) + "/" + strconv.Itoa(r.Total) + " dispatched"
		if r.Cancelled {
			last += " (cancelled)"
		}
		lines = append(lines, last)
	}
	lines = append(lines, "")
	if st.Message != "" {
		lines = append(lines, st.Message, "")
	}
	lines = append(lines,
		displayKey(b.Record)+" record/stop  "+
			displayKey(b.Play)+" play  "+
			displayKey(b.Save)+" save  "+
			displayKey(b.Load)+" load  "+
			displayKey(b.Cancel)+" stop/quit",
	)
	return lines
}

var titleCaser = cases.Title(language.Und)

// displayKey turns a logical key identifier into a label such as "F8" or
// "Esc". Printable keys are shown as-is.
func displayKey(key string) string {
	name, ok := strings.CutPrefix(key, "Key.")
	if !ok {
		return key
	}
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

func init() {
	rootCmd.AddCommand(runCmd)
}
