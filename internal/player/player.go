// Package player replays a timeline snapshot through an input injector,
// reproducing the recorded delays between events.
package player

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/macrorec-project/macrorec/internal/input"
	"github.com/macrorec-project/macrorec/internal/mode"
	"github.com/macrorec-project/macrorec/internal/timeline"
	"github.com/macrorec-project/macrorec/pkg/errclass"
	"github.com/macrorec-project/macrorec/pkg/logging"
	"github.com/macrorec-project/macrorec/pkg/model"
	"github.com/macrorec-project/macrorec/pkg/progress"
)

// DefaultMinInterval is the floor applied to every positive wait.
const DefaultMinInterval = 500 * time.Microsecond

// Result summarizes one playback run.
type Result struct {
	Total      int           `json:"total"`
	Dispatched int           `json:"dispatched"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Cancelled  bool          `json:"cancelled"`
	Duration   time.Duration `json:"duration"`
}

// Player schedules replay on its own goroutine.
type Player struct {
	store       *timeline.Store
	machine     *mode.Machine
	injector    input.Injector
	minInterval time.Duration
	logger      *logging.Logger
	progress    progress.Callback
	onFinish    func(Result)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   *Result
}

// Option configures a Player.
type Option func(*Player)

// WithMinInterval sets the wait floor. Non-positive values keep the default.
func WithMinInterval(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.minInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Player) { p.logger = l }
}

// WithProgress registers a callback invoked after every processed event.
func WithProgress(cb progress.Callback) Option {
	return func(p *Player) { p.progress = cb }
}

// WithFinishHook registers a callback run once per playback, after the
// mode has returned to idle and before Done is closed.
func WithFinishHook(fn func(Result)) Option {
	return func(p *Player) { p.onFinish = fn }
}

// New creates a player reading from store and dispatching to injector.
func New(store *timeline.Store, machine *mode.Machine, injector input.Injector, opts ...Option) *Player {
	closed := make(chan struct{})
	close(closed)
	p := &Player{
		store:       store,
		machine:     machine,
		injector:    injector,
		minInterval: DefaultMinInterval,
		logger:      logging.WithFields(map[string]any{"component": "player"}),
		progress:    progress.Noop,
		done:        closed,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play starts replaying a snapshot of the timeline and returns at once.
// Preconditions are checked in order: not recording, timeline not empty,
// not already playing.
func (p *Player) Play() error {
	if p.machine.Mode() == model.ModeRecording {
		return errclass.ErrRecordingActive.WithMessage("stop recording before playing")
	}
	events := p.store.Snapshot()
	if len(events) == 0 {
		return errclass.ErrTimelineEmpty.WithMessage("no events to play")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.machine.BeginPlayback(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.logger.Info("playback started", map[string]any{"events": len(events)})
	go p.run(ctx, cancel, events, done)
	return nil
}

// Stop requests cancellation. It does not wait for the replay goroutine
// and is a no-op when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.logger.Info("playback stop requested")
	}
}

// Running reports whether a replay goroutine is active.
func (p *Player) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Done returns a channel closed when the current (or last) playback ends.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// LastResult returns the result of the most recent finished playback.
func (p *Player) LastResult() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Result{}, false
	}
	return *p.last, true
}

func (p *Player) run(ctx context.Context, cancel context.CancelFunc, events []model.Event, done chan struct{}) {
	res := Result{Total: len(events)}
	start := time.Now()

	defer func() {
		cancel()
		res.Duration = time.Since(start)

		p.mu.Lock()
		p.cancel = nil
		p.last = &res
		p.mu.Unlock()

		p.machine.EndPlayback()
		p.logger.Info("playback finished", map[string]any{
			"dispatched": res.Dispatched,
			"skipped":    res.Skipped,
			"failed":     res.Failed,
			"cancelled":  res.Cancelled,
			"duration":   res.Duration.String(),
		})
		if p.onFinish != nil {
			p.onFinish(res)
		}
		close(done)
	}()

	last := 0.0
	for i, ev := range events {
		if ctx.Err() != nil {
			res.Cancelled = true
			return
		}

		if wait := ev.Timestamp - last; wait > 0 {
			if !sleep(ctx, waitFor(wait, p.minInterval)) {
				res.Cancelled = true
				return
			}
		}
		last = ev.Timestamp

		switch err := p.dispatch(ev); {
		case errors.Is(err, errSkip):
			res.Skipped++
			p.logger.Debug("event skipped", map[string]any{"index": i, "kind": ev.Kind.String()})
		case err != nil:
			res.Failed++
			p.logger.Warn("inject failed", map[string]any{"index": i, "kind": ev.Kind.String(), "error": err.Error()})
		default:
			res.Dispatched++
		}
		p.progress("play", i+1, len(events), ev.Kind.String())
	}
}

// waitFor converts a gap in seconds to a sleep of at least floor. Gaps too
// long for a time.Duration saturate instead of wrapping negative.
func waitFor(seconds float64, floor time.Duration) time.Duration {
	ns := seconds * float64(time.Second)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return max(time.Duration(ns), floor)
}

// sleep waits for d or until ctx is done. It reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
