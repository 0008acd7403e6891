package cli

import (
	"github.com/spf13/cobra"

	"github.com/macrorec-project/macrorec/internal/history"
	"github.com/macrorec-project/macrorec/pkg/color"
	"github.com/macrorec-project/macrorec/pkg/model"
)

var (
	historyLimit  int
	historyVerify bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the session history",
	Long: `Show the session history.

Every recording, playback, save and load is appended to a hash-chained
JSONL log (history.path, default next to the config file). Use --verify
to check that no record has been altered or removed.

Examples:
  macrorec history              # Show all records
  macrorec history -n 10        # Show the last 10 records
  macrorec history --verify     # Check the hash chain`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, err := cfg.HistoryPath()
		if err != nil {
			return err
		}
		log := history.New(path)

		if historyVerify {
			n, err := log.Verify()
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(map[string]any{"path": path, "records": n, "valid": true})
			}
			printf("%s %d records in %s\n", color.Success("History OK:"), n, path)
			return nil
		}

		records, err := log.Read()
		if err != nil {
			return err
		}
		if historyLimit > 0 && len(records) > historyLimit {
			records = records[len(records)-historyLimit:]
		}

		if jsonOutput {
			if records == nil {
				records = []model.HistoryRecord{}
			}
			return outputJSON(records)
		}
		if len(records) == 0 {
			printf("No history yet.\n")
			return nil
		}
		for _, rec := range records {
			session := rec.SessionID
			if len(session) > 8 {
				session = session[:8]
			}
			printf("%s  %-12s %-8s %5d", color.Dim(rec.Timestamp.Local().Format("2006-01-02 15:04:05")),
				rec.EventType, session, rec.EventCount)
			if p, ok := rec.Details["path"]; ok {
				printf("  %v", p)
			}
			if c, ok := rec.Details["cancelled"]; ok && c == true {
				printf("  %s", color.Warning("cancelled"))
			}
			printf("\n")
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show only the last N records")
	historyCmd.Flags().BoolVar(&historyVerify, "verify", false, "verify the hash chain")
	rootCmd.AddCommand(historyCmd)
}
