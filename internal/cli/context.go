package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/macrorec-project/macrorec/internal/history"
	"github.com/macrorec-project/macrorec/internal/input"
	"github.com/macrorec-project/macrorec/internal/input/xdotool"
	"github.com/macrorec-project/macrorec/pkg/color"
	"github.com/macrorec-project/macrorec/pkg/config"
	"github.com/macrorec-project/macrorec/pkg/logging"
	"github.com/macrorec-project/macrorec/pkg/macro"
	"github.com/macrorec-project/macrorec/pkg/metrics"
	"github.com/macrorec-project/macrorec/pkg/progress"
)

func fmtErr(format string, args ...any) {
	prefix := "macrorec: "
	if color.Enabled() {
		prefix = color.Error("macrorec:") + " "
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
}

// resolveConfigPath returns --config or the per-user default.
func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return config.DefaultPath()
}

// loadConfig reads the configuration and applies --log-level.
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if err := cfg.Set("logging.level", logLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// setupLogging installs the global logger described by cfg. Logs go to the
// configured file, or to fallback when none is set. The returned closer
// flushes and closes the log file.
func setupLogging(cfg *config.Config, fallback io.Writer) (func(), error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(level)
	logger.SetFormat(logging.Format(cfg.Logging.Format))

	closeFn := func() { _ = logger.Sync() }
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(f)
		closeFn = func() {
			_ = logger.Sync()
			_ = f.Close()
		}
	} else {
		logger.SetOutput(fallback)
	}
	logging.SetGlobal(logger)
	return closeFn, nil
}

// newInjector builds the injector named by cfg. The print injector writes
// to w.
func newInjector(name string, w io.Writer) (input.Injector, error) {
	switch name {
	case "print":
		return input.NewPrinter(w), nil
	case "xdotool":
		inj := xdotool.New()
		if !inj.Available() {
			return nil, fmt.Errorf("xdotool not found in PATH (use --dry-run or set playback.injector to print)")
		}
		return inj, nil
	}
	return nil, fmt.Errorf("unknown injector %q", name)
}

// openHistory returns the session history log, or nil when disabled.
func openHistory(cfg *config.Config) (*history.Log, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.New(path), nil
}

// newEngine assembles an engine from configuration.
func newEngine(cfg *config.Config, inj input.Injector, cb progress.Callback) (*macro.Engine, error) {
	hist, err := openHistory(cfg)
	if err != nil {
		return nil, err
	}
	return macro.New(macro.Options{
		Injector:    inj,
		Bindings:    bindingsFrom(cfg),
		DefaultFile: cfg.DefaultFile,
		MinInterval: cfg.MinInterval(),
		History:     hist,
		Metrics:     metrics.Default(),
		Progress:    cb,
	})
}

func bindingsFrom(cfg *config.Config) macro.Bindings {
	return macro.Bindings{
		Record: cfg.Bindings.Record,
		Play:   cfg.Bindings.Play,
		Save:   cfg.Bindings.Save,
		Load:   cfg.Bindings.Load,
		Cancel: cfg.Bindings.Cancel,
	}
}

// fileArg returns args[0] or the configured default file.
func fileArg(cfg *config.Config, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.DefaultFile
}
