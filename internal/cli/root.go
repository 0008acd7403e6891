package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/macrorec-project/macrorec/pkg/color"
)

var (
	jsonOutput bool
	configFile string
	noColor    bool
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "macrorec",
		Short: "macrorec - keyboard and mouse macro recorder",
		Long: `macrorec records a timestamped sequence of keyboard and mouse input and
replays it later with the original relative timing.

Start an interactive session with "macrorec run" and use the hotkeys
(F8 record/stop, F9 play, F10 save, F11 load, Esc stop playback or quit),
or replay a saved timeline headlessly with "macrorec play".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			color.Init(noColor)
		},
	}
)

func init() {
	addPersistentFlags(rootCmd)
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.config/macrorec/config.yaml)")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmtErr("%v", err)
		os.Exit(1)
	}
}

// outputJSON prints v as JSON if --json flag is set, otherwise does nothing.
func outputJSON(v any) error {
	if !jsonOutput {
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printf writes human output to stdout.
func printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}
