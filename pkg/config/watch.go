package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the bursts of events editors and atomic renames
// produce for a single save.
const watchDebounce = 100 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk.
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	debounce time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// Watch watches the directory holding path and calls onChange with the
// reloaded configuration, or the load error, once changes settle. The
// directory is watched rather than the file so that replacement by rename
// is seen. onChange runs on the watcher goroutine.
func Watch(ctx context.Context, path string, onChange func(*Config, error)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		path:     abs,
		fsw:      fsw,
		debounce: watchDebounce,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.loop(ctx, onChange)
	return w, nil
}

// Close stops watching and waits for the watcher goroutine to exit.
func (w *Watcher) Close() {
	w.cancel()
	<-w.done
}

func (w *Watcher) loop(ctx context.Context, onChange func(*Config, error)) {
	defer close(w.done)
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			onChange(nil, fmt.Errorf("watch config: %w", err))
		case <-fire:
			fire = nil
			onChange(Load(w.path))
		}
	}
}
