package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/macrorec-project/macrorec/internal/timeline"
	"github.com/macrorec-project/macrorec/pkg/color"
	"github.com/macrorec-project/macrorec/pkg/model"
)

var showLimit int

// timelineSummary describes a saved timeline.
type timelineSummary struct {
	File     string             `json:"file"`
	Events   int                `json:"events"`
	Duration time.Duration      `json:"duration"`
	Kinds    map[model.Kind]int `json:"kinds"`
	Timeline []model.Event      `json:"timeline"`
}

func summarize(path string, events []model.Event) timelineSummary {
	s := timelineSummary{
		File:     path,
		Events:   len(events),
		Kinds:    make(map[model.Kind]int),
		Timeline: events,
	}
	if n := len(events); n > 0 {
		s.Duration = time.Duration(events[n-1].Timestamp * float64(time.Second))
	}
	for _, ev := range events {
		s.Kinds[ev.Kind]++
	}
	return s
}

var showCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "List the events in a saved timeline",
	Long: `List the events in a saved timeline.

Examples:
  macrorec show                 # Show the default file
  macrorec show demo.json -n 20 # First 20 events of demo.json
  macrorec show --json          # Machine-readable output`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path = cfg.DefaultFile
		}

		events, err := timeline.LoadFile(path)
		if err != nil {
			return err
		}
		s := summarize(path, events)

		if jsonOutput {
			return outputJSON(s)
		}

		printf("%s: %d events, %.3fs\n", color.Header(path), s.Events, s.Duration.Seconds())
		for _, k := range model.Kinds {
			if n := s.Kinds[k]; n > 0 {
				printf("  %-10s %d\n", k, n)
			}
		}
		if len(events) == 0 {
			return nil
		}
		printf("\n")
		shown := events
		if showLimit > 0 && showLimit < len(shown) {
			shown = shown[:showLimit]
		}
		for i, ev := range shown {
			printf("%s %s\n", color.Dim(fmt.Sprintf("%5d", i)), ev.String())
		}
		if len(shown) < len(events) {
			printf("%s\n", color.Dim(fmt.Sprintf("... %d more", len(events)-len(shown))))
		}
		return nil
	},
}

func init() {
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "limit number of events shown")
	rootCmd.AddCommand(showCmd)
}
