package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrorec-project/macrorec/pkg/errclass"
)

type reloads struct {
	mu   sync.Mutex
	cfgs []*Config
	errs []error
}

func (r *reloads) record(cfg *Config, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	r.cfgs = append(r.cfgs, cfg)
}

func (r *reloads) last() (*Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cfg *Config
	var err error
	if len(r.cfgs) > 0 {
		cfg = r.cfgs[len(r.cfgs)-1]
	}
	if len(r.errs) > 0 {
		err = r.errs[len(r.errs)-1]
	}
	return cfg, err
}

func TestWatch_ReloadsOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, Default()))

	var got reloads
	w, err := Watch(context.Background(), path, got.record)
	require.NoError(t, err)
	defer w.Close()

	cfg := Default()
	cfg.Bindings.Record = "Key.f6"
	require.NoError(t, Save(path, cfg))

	require.Eventually(t, func() bool {
		c, _ := got.last()
		return c != nil && c.Bindings.Record == "Key.f6"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatch_ReportsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, Default()))

	var got reloads
	w, err := Watch(context.Background(), path, got.record)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("playback:\n  injector: robot\n"), 0644))

	require.Eventually(t, func() bool {
		_, err := got.last()
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)
	_, err = got.last()
	assert.ErrorIs(t, err, errclass.ErrConfigInvalid)
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, Save(path, Default()))

	var got reloads
	w, err := Watch(context.Background(), path, got.record)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.jsonl"), []byte("{}\n"), 0644))
	time.Sleep(3 * watchDebounce)
	w.Close()

	cfg, err := got.last()
	assert.Nil(t, cfg)
	assert.NoError(t, err)
}

func TestWatch_MissingDirectory(t *testing.T) {
	_, err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "config.yaml"), func(*Config, error) {})
	assert.Error(t, err)
}

func TestWatch_StopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	ctx, cancel := context.WithCancel(context.Background())
	w, err := Watch(ctx, path, func(*Config, error) {})
	require.NoError(t, err)

	cancel()
	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
	w.Close()
}
