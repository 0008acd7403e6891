package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/macrorec-project/macrorec/pkg/config"
	"github.com/macrorec-project/macrorec/pkg/errclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvFile, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvInjector, "")
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "macro.json", cfg.DefaultFile)
	assert.Equal(t, 500*time.Microsecond, cfg.MinInterval())
	assert.Equal(t, "xdotool", cfg.Playback.Injector)
	assert.Equal(t, "Key.f8", cfg.Bindings.Record)
	assert.Equal(t, "Key.esc", cfg.Bindings.Cancel)
	assert.True(t, cfg.History.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NotExists(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_Exists(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
default_file: demo.json
playback:
  min_interval: 2ms
  injector: print
bindings:
  record: r
  play: p
  save: s
  load: l
  cancel: q
logging:
  level: debug
  format: json
history:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo.json", cfg.DefaultFile)
	assert.Equal(t, 2*time.Millisecond, cfg.MinInterval())
	assert.Equal(t, "print", cfg.Playback.Injector)
	assert.Equal(t, "q", cfg.Bindings.Cancel)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.History.Enabled)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_file: other.json\n"), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other.json", cfg.DefaultFile)
	assert.Equal(t, "Key.f9", cfg.Bindings.Play)
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "default_file: [unclosed"},
		{"unknown key", "colour: blue\n"},
		{"bad injector", "playback:\n  injector: robot\n"},
		{"bad interval", "playback:\n  min_interval: soon\n"},
		{"zero interval", "playback:\n  min_interval: 0s\n"},
		{"empty binding", "bindings:\n  play: \"\"\n"},
		{"bad level", "logging:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := config.Load(path)
			assert.ErrorIs(t, err, errclass.ErrConfigInvalid)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(config.EnvFile, "env.json")
	t.Setenv(config.EnvLogLevel, "WARN")
	t.Setenv(config.EnvInjector, "print")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env.json", cfg.DefaultFile)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "print", cfg.Playback.Injector)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := config.Default()
	cfg.DefaultFile = "saved.json"
	cfg.Logging.File = "/tmp/macrorec.log"

	require.NoError(t, config.Save(path, cfg))
	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestConfig_GetSet(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, cfg.Set("default_file", "x.json"))
	v, err := cfg.Get("default_file")
	require.NoError(t, err)
	assert.Equal(t, "x.json", v)

	require.NoError(t, cfg.Set("history.enabled", "false"))
	v, err = cfg.Get("history.enabled")
	require.NoError(t, err)
	assert.Equal(t, "false", v)

	require.NoError(t, cfg.Set("bindings.record", "Key.f1"))
	assert.Equal(t, "Key.f1", cfg.Bindings.Record)
}

func TestConfig_SetRejects(t *testing.T) {
	cfg := config.Default()

	assert.ErrorIs(t, cfg.Set("nope", "x"), errclass.ErrConfigInvalid)
	assert.ErrorIs(t, cfg.Set("history.enabled", "maybe"), errclass.ErrConfigInvalid)
	assert.ErrorIs(t, cfg.Set("playback.injector", "robot"), errclass.ErrConfigInvalid)
	assert.Equal(t, "xdotool", cfg.Playback.Injector, "failed set leaves config unchanged")

	_, err := cfg.Get("nope")
	assert.ErrorIs(t, err, errclass.ErrConfigInvalid)
}

func TestKeys(t *testing.T) {
	keys := config.Keys()
	assert.Contains(t, keys, "default_file")
	assert.Contains(t, keys, "playback.min_interval")
	assert.Contains(t, keys, "bindings.cancel")
	assert.Contains(t, keys, "history.enabled")
	assert.IsIncreasing(t, keys)

	cfg := config.Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := config.Default()
	cfg.History.Path = "/var/tmp/h.jsonl"
	p, err := cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp/h.jsonl", p)
}
