package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/macrorec-project/macrorec/pkg/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config <command>",
	Short: "Manage macrorec configuration",
	Long: `Manage macrorec configuration stored in ~/.config/macrorec/config.yaml
(or the file given with --config).

Environment variables MACROREC_FILE, MACROREC_LOG_LEVEL and
MACROREC_INJECTOR override file values. A .env file in the working
directory is read first.

Available commands:
  show              - Show current configuration
  init              - Write the default configuration
  set <key> <value> - Set a configuration value
  get <key>         - Get a configuration value`,
	DisableFlagsInUseLine: true,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cfg)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		printf("# macrorec configuration\n# Location: %s\n\n%s", path, out)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long: `Write the default configuration file.

An existing file is left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := config.Save(path, config.Default()); err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]string{"path": path})
		}
		printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Examples:
  macrorec config set default_file ~/macros/demo.json
  macrorec config set bindings.record Key.f6
  macrorec config set playback.min_interval 1ms
  macrorec config set history.enabled false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		key, value := args[0], args[1]
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		printf("Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		key := args[0]
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if value == "" {
			printf("%s (not set)\n", key)
		} else {
			printf("%s\n", value)
		}
		return nil
	},
}

func init() {
	keys := "\n\nAvailable keys:\n  " + strings.Join(config.Keys(), "\n  ")
	configSetCmd.Long += keys
	configGetCmd.Long = "Get a configuration value." + keys

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}
