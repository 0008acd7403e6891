package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/macrorec-project/macrorec/internal/doctor"
	"github.com/macrorec-project/macrorec/pkg/color"
)

var doctorStrict bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that recording and playback can work",
	Long: `Check that recording and playback can work.

Runs diagnostic checks on the injector, the default timeline file, the
session history and leftover temp files, and reports any issues.
Use --strict to verify the history hash chain and inspect every event.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		result := doctor.NewDoctor(cfg).Check(doctorStrict)

		if jsonOutput {
			if err := outputJSON(result); err != nil {
				return err
			}
		} else if len(result.Findings) == 0 {
			printf("%s\n", color.Success("Setup is healthy."))
		} else {
			printf("Findings (%d):\n", len(result.Findings))
			for _, f := range result.Findings {
				printf("  [%s] %s: %s\n", severity(f.Severity), f.Category, f.Description)
			}
		}

		if !result.Healthy {
			return errors.New("doctor found problems")
		}
		return nil
	},
}

func severity(s string) string {
	switch s {
	case doctor.SeverityCritical, doctor.SeverityError:
		return color.Error(s)
	case doctor.SeverityWarning:
		return color.Warning(s)
	}
	return color.Dim(s)
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "include history chain and per-event checks")
	rootCmd.AddCommand(doctorCmd)
}
