// Package config provides configuration file support for macrorec.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/macrorec-project/macrorec/pkg/errclass"
	"github.com/macrorec-project/macrorec/pkg/fsutil"
)

// Environment variables that override file values.
const (
	EnvFile     = "MACROREC_FILE"
	EnvLogLevel = "MACROREC_LOG_LEVEL"
	EnvInjector = "MACROREC_INJECTOR"
)

// Config represents the macrorec configuration.
type Config struct {
	DefaultFile string         `yaml:"default_file" json:"default_file" validate:"required"`
	Playback    PlaybackConfig `yaml:"playback" json:"playback"`
	Bindings    BindingsConfig `yaml:"bindings" json:"bindings"`
	Logging     LoggingConfig  `yaml:"logging" json:"logging"`
	History     HistoryConfig  `yaml:"history" json:"history"`
}

// PlaybackConfig configures replay.
type PlaybackConfig struct {
	MinInterval string `yaml:"min_interval" json:"min_interval" validate:"required,duration"`
	Injector    string `yaml:"injector" json:"injector" validate:"oneof=xdotool print"`
}

// BindingsConfig maps control actions to key identifiers.
type BindingsConfig struct {
	Record string `yaml:"record" json:"record" validate:"required"`
	Play   string `yaml:"play" json:"play" validate:"required"`
	Save   string `yaml:"save" json:"save" validate:"required"`
	Load   string `yaml:"load" json:"load" validate:"required"`
	Cancel string `yaml:"cancel" json:"cancel" validate:"required"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=json text"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// HistoryConfig configures the session history log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DefaultFile: "macro.json",
		Playback: PlaybackConfig{
			MinInterval: "500us",
			Injector:    "xdotool",
		},
		Bindings: BindingsConfig{
			Record: "Key.f8",
			Play:   "Key.f9",
			Save:   "Key.f10",
			Load:   "Key.f11",
			Cancel: "Key.esc",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "macrorec"), nil
}

// DefaultPath returns ~/.config/macrorec/config.yaml (or the platform
// equivalent).
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads configuration from path, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errclass.ErrConfigInvalid.WithMessagef("parse %s: %v", path, err)
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to path atomically.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := fsutil.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvFile); v != "" {
		c.DefaultFile = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvInjector); v != "" {
		c.Playback.Injector = strings.ToLower(v)
	}
}

// MinInterval returns the parsed playback wait floor.
func (c *Config) MinInterval() time.Duration {
	d, err := time.ParseDuration(c.Playback.MinInterval)
	if err != nil {
		return 0
	}
	return d
}

// HistoryPath returns the configured history file, or history.jsonl next to
// the config file.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.jsonl"), nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	return v
}

// Validate checks field values and returns ErrConfigInvalid describing the
// first offending field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errclass.ErrConfigInvalid.WithMessage(err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return errclass.ErrConfigInvalid.WithMessagef("%s is required", fe.Namespace())
	case "oneof":
		return errclass.ErrConfigInvalid.WithMessagef("%s must be one of: %s", fe.Namespace(), fe.Param())
	case "duration":
		return errclass.ErrConfigInvalid.WithMessagef("%s must be a positive duration like 500us", fe.Namespace())
	}
	return errclass.ErrConfigInvalid.WithMessagef("%s failed %q", fe.Namespace(), fe.Tag())
}

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func stringField(p func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

var fields = map[string]field{
	"default_file":          stringField(func(c *Config) *string { return &c.DefaultFile }),
	"playback.min_interval": stringField(func(c *Config) *string { return &c.Playback.MinInterval }),
	"playback.injector":     stringField(func(c *Config) *string { return &c.Playback.Injector }),
	"bindings.record":       stringField(func(c *Config) *string { return &c.Bindings.Record }),
	"bindings.play":         stringField(func(c *Config) *string { return &c.Bindings.Play }),
	"bindings.save":         stringField(func(c *Config) *string { return &c.Bindings.Save }),
	"bindings.load":         stringField(func(c *Config) *string { return &c.Bindings.Load }),
	"bindings.cancel":       stringField(func(c *Config) *string { return &c.Bindings.Cancel }),
	"logging.level":         stringField(func(c *Config) *string { return &c.Logging.Level }),
	"logging.format":        stringField(func(c *Config) *string { return &c.Logging.Format }),
	"logging.file":          stringField(func(c *Config) *string { return &c.Logging.File }),
	"history.path":          stringField(func(c *Config) *string { return &c.History.Path }),
	"history.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.History.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errclass.ErrConfigInvalid.WithMessagef("history.enabled: %q is not a boolean", v)
			}
			c.History.Enabled = b
			return nil
		},
	},
}

// Keys returns the settable configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Get returns the value of key as a string.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", errclass.ErrConfigInvalid.WithMessagef("unknown key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return f.get(c), nil
}

// Set assigns value to key and revalidates. On failure the config is left
// unchanged.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return errclass.ErrConfigInvalid.WithMessagef("unknown key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	next := *c
	if err := f.set(&next, value); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
