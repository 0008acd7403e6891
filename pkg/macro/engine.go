package macro

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/macrorec-project/macrorec/internal/history"
	"github.com/macrorec-project/macrorec/internal/input"
	"github.com/macrorec-project/macrorec/internal/mode"
	"github.com/macrorec-project/macrorec/internal/player"
	"github.com/macrorec-project/macrorec/internal/recorder"
	"github.com/macrorec-project/macrorec/internal/timeline"
	"github.com/macrorec-project/macrorec/pkg/errclass"
	"github.com/macrorec-project/macrorec/pkg/logging"
	"github.com/macrorec-project/macrorec/pkg/metrics"
	"github.com/macrorec-project/macrorec/pkg/model"
	"github.com/macrorec-project/macrorec/pkg/progress"
)

// DefaultFile is the timeline file used when Save or Load get no path.
const DefaultFile = "macro.json"

// Result summarizes one playback run.
type Result = player.Result

// Bindings maps control actions to key identifiers.
type Bindings = mode.Bindings

// DefaultBindings returns F8 record, F9 play, F10 save, F11 load, Esc cancel.
func DefaultBindings() Bindings { return mode.DefaultBindings() }

// Options configures an Engine.
type Options struct {
	Injector    input.Injector    // required
	Bindings    Bindings          // zero value means DefaultBindings
	DefaultFile string            // defaults to DefaultFile
	MinInterval time.Duration     // playback wait floor; zero keeps the player default
	History     *history.Log      // nil disables session history
	Metrics     *metrics.Registry // nil uses a private registry
	Logger      *logging.Logger   // nil uses the global logger
	Progress    progress.Callback // called after every replayed event
	Clock       func() time.Time  // recording clock, for tests
}

// Status is a point-in-time view of the engine.
type Status struct {
	Mode         model.Mode       `json:"mode"`
	Label        string           `json:"label"`
	Events       int              `json:"events"`
	File         string           `json:"file"`
	Message      string           `json:"message,omitempty"`
	LastPlayback *Result          `json:"last_playback,omitempty"`
	Counters     metrics.Snapshot `json:"counters"`
}

// Engine owns one timeline and the recording and playback machinery around it.
type Engine struct {
	store    *timeline.Store
	machine  *mode.Machine
	recorder *recorder.Recorder
	player   *player.Player
	coord    *mode.Coordinator
	history  *history.Log
	metrics  *metrics.Registry
	logger   *logging.Logger
	file     string

	ctx    context.Context
	cancel context.CancelFunc

	playMu sync.Mutex // orders play_start before play_finish

	mu        sync.Mutex
	observers []input.Observer
	message   string
	recordID  string
	playID    string
	quitOnce  sync.Once
	quit      chan struct{}
}

// New builds an engine.
func New(opts Options) (*Engine, error) {
	if opts.Injector == nil {
		return nil, errors.New("macro: injector is required")
	}
	if opts.Bindings == (Bindings{}) {
		opts.Bindings = DefaultBindings()
	}
	if opts.DefaultFile == "" {
		opts.DefaultFile = DefaultFile
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Global()
	}

	e := &Engine{
		store:   timeline.NewStore(),
		machine: mode.NewMachine(),
		history: opts.History,
		metrics: opts.Metrics,
		logger:  opts.Logger.WithFields(map[string]any{"component": "engine"}),
		file:    opts.DefaultFile,
		quit:    make(chan struct{}),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	var recOpts []recorder.Option
	if opts.Clock != nil {
		recOpts = append(recOpts, recorder.WithClock(opts.Clock))
	}
	e.recorder = recorder.New(e.store, e.machine, recOpts...)

	playOpts := []player.Option{
		player.WithMinInterval(opts.MinInterval),
		player.WithLogger(opts.Logger.WithFields(map[string]any{"component": "player"})),
		player.WithFinishHook(e.playbackFinished),
	}
	if opts.Progress != nil {
		playOpts = append(playOpts, player.WithProgress(opts.Progress))
	}
	e.player = player.New(e.store, e.machine, opts.Injector, playOpts...)
	e.coord = mode.NewCoordinator(e.machine, e.recorder, controls{e}, opts.Bindings)
	return e, nil
}

// StartRecording clears the timeline and starts a new recording session.
// It fails with E_PLAYBACK_ACTIVE while playing, leaving everything as is.
func (e *Engine) StartRecording() error {
	if err := e.recorder.Start(); err != nil {
		return e.conflict("start recording", err)
	}
	id := history.NewSessionID()
	e.mu.Lock()
	e.recordID = id
	e.mu.Unlock()

	e.logger.Info("recording started", map[string]any{"session": id})
	e.note("Recording...")
	e.appendHistory(model.HistoryRecordStart, id, 0, nil)
	return nil
}

// StopRecording ends the current session and returns the number of events
// recorded. It is a no-op when not recording.
func (e *Engine) StopRecording() int {
	if !e.recorder.Active() {
		return e.store.Len()
	}
	n := e.recorder.Stop()
	e.mu.Lock()
	id := e.recordID
	e.mu.Unlock()

	e.metrics.RecordRecording(n)
	e.logger.Info("recording stopped", map[string]any{"session": id, "events": n})
	e.note(fmt.Sprintf("Recorded %d events", n))
	e.appendHistory(model.HistoryRecordStop, id, n, nil)
	return n
}

// ToggleRecording stops an active recording or starts a new one.
func (e *Engine) ToggleRecording() error {
	if e.recorder.Active() {
		e.StopRecording()
		return nil
	}
	return e.StartRecording()
}

// Play starts replaying the timeline and returns immediately.
func (e *Engine) Play() error {
	e.playMu.Lock()
	defer e.playMu.Unlock()

	n := e.store.Len()
	if err := e.player.Play(); err != nil {
		return e.conflict("play", err)
	}
	id := history.NewSessionID()
	e.mu.Lock()
	e.playID = id
	e.mu.Unlock()

	e.note("Playing...")
	e.appendHistory(model.HistoryPlayStart, id, n, nil)
	return nil
}

// StopPlayback requests cancellation of the running playback. It does not
// wait; use PlaybackDone for that.
func (e *Engine) StopPlayback() {
	e.player.Stop()
}

// PlaybackDone returns a channel closed when the current or last playback
// has fully finished.
func (e *Engine) PlaybackDone() <-chan struct{} {
	return e.player.Done()
}

func (e *Engine) playbackFinished(r Result) {
	e.playMu.Lock()
	defer e.playMu.Unlock()

	e.metrics.RecordPlayback(r.Dispatched, r.Skipped, r.Failed, r.Cancelled, r.Duration)

	e.mu.Lock()
	id := e.playID
	e.mu.Unlock()

	msg := fmt.Sprintf("Played %d/%d events", r.Dispatched, r.Total)
	if r.Cancelled {
		msg = fmt.Sprintf("Playback cancelled after %d/%d events", r.Dispatched, r.Total)
	}
	e.note(msg)
	e.appendHistory(model.HistoryPlayFinish, id, r.Dispatched, map[string]any{
		"total":       r.Total,
		"skipped":     r.Skipped,
		"failed":      r.Failed,
		"cancelled":   r.Cancelled,
		"duration_ms": r.Duration.Milliseconds(),
	})
}

// Save writes a snapshot of the timeline to path, or to the default file
// when path is empty.
func (e *Engine) Save(path string) error {
	if path == "" {
		path = e.file
	}
	events := e.store.Snapshot()
	if err := timeline.SaveFile(path, events); err != nil {
		e.metrics.RecordSave(false)
		e.logger.ErrorErr("save failed", err, map[string]any{"path": path})
		e.note("Save failed: " + err.Error())
		return err
	}
	e.metrics.RecordSave(true)
	e.logger.Info("timeline saved", map[string]any{"path": path, "events": len(events)})
	e.note(fmt.Sprintf("Saved %d events to %s", len(events), path))
	e.appendHistory(model.HistorySave, "", len(events), map[string]any{"path": path})
	return nil
}

// Load replaces the timeline with the contents of path, or of the default
// file when path is empty. On any error the timeline is left untouched.
// Loading while recording fails with E_RECORDING_ACTIVE.
func (e *Engine) Load(path string) error {
	if path == "" {
		path = e.file
	}
	if e.recorder.Active() {
		return e.conflict("load", errclass.ErrRecordingActive.WithMessage("stop recording before loading"))
	}
	events, err := timeline.LoadFile(path)
	if err != nil {
		e.metrics.RecordLoad(false)
		e.logger.ErrorErr("load failed", err, map[string]any{"path": path})
		e.note("Load failed: " + err.Error())
		return err
	}
	if err := e.recorder.Replace(events); err != nil {
		return e.conflict("load", err)
	}
	e.metrics.RecordLoad(true)
	e.logger.Info("timeline loaded", map[string]any{"path": path, "events": len(events)})
	e.note(fmt.Sprintf("Loaded %d events from %s", len(events), path))
	e.appendHistory(model.HistoryLoad, "", len(events), map[string]any{"path": path})
	return nil
}

// SetTimeline replaces the timeline directly, for shells that decode events
// themselves. Events that could not be saved and loaded back are refused
// with E_FORMAT_INVALID.
func (e *Engine) SetTimeline(events []model.Event) error {
	if err := timeline.Validate(events); err != nil {
		return err
	}
	if err := e.recorder.Replace(events); err != nil {
		return e.conflict("set timeline", err)
	}
	return nil
}

// Events returns a copy of the current timeline.
func (e *Engine) Events() []model.Event {
	return e.store.Snapshot()
}

// Status reports the current mode, event count, last playback and counters.
func (e *Engine) Status() Status {
	m := e.machine.Mode()
	s := Status{
		Mode:     m,
		Label:    m.Label(),
		Events:   e.store.Len(),
		File:     e.file,
		Counters: e.metrics.Snapshot(),
	}
	if r, ok := e.player.LastResult(); ok {
		s.LastPlayback = &r
	}
	e.mu.Lock()
	s.Message = e.message
	e.mu.Unlock()
	return s
}

// Bindings returns the control key bindings.
func (e *Engine) Bindings() Bindings {
	return e.coord.Bindings()
}

// SetBindings replaces the control key bindings. The zero value restores
// DefaultBindings.
func (e *Engine) SetBindings(b Bindings) {
	if b == (Bindings{}) {
		b = DefaultBindings()
	}
	e.coord.SetBindings(b)
	e.logger.Info("bindings updated", map[string]any{
		"record": b.Record,
		"play":   b.Play,
		"save":   b.Save,
		"load":   b.Load,
		"cancel": b.Cancel,
	})
}

// HandleInput routes one live occurrence through the mode coordinator.
// Observers deliver input here.
func (e *Engine) HandleInput(o input.Occurrence) {
	e.coord.HandleInput(o)
}

// Attach starts obs and delivers its input to the engine until Quit.
func (e *Engine) Attach(obs input.Observer) error {
	select {
	case <-e.quit:
		return errors.New("macro: engine has quit")
	default:
	}
	if err := obs.Start(e.ctx, e); err != nil {
		return fmt.Errorf("attach observer: %w", err)
	}
	e.mu.Lock()
	e.observers = append(e.observers, obs)
	e.mu.Unlock()
	return nil
}

// Quit stops recording and playback, stops attached observers and releases
// Wait. It is safe to call more than once and from an observer callback.
func (e *Engine) Quit() {
	e.quitOnce.Do(func() {
		e.logger.Info("quit requested")
		e.StopRecording()
		e.player.Stop()
		<-e.player.Done()

		e.mu.Lock()
		observers := e.observers
		e.observers = nil
		e.mu.Unlock()
		for _, obs := range observers {
			if err := obs.Stop(); err != nil {
				e.logger.Warn("observer stop failed", map[string]any{"error": err.Error()})
			}
		}
		e.cancel()
		close(e.quit)
	})
}

// Wait blocks until Quit has completed.
func (e *Engine) Wait() {
	<-e.quit
}

// Done returns a channel closed once Quit has completed.
func (e *Engine) Done() <-chan struct{} {
	return e.quit
}

func (e *Engine) conflict(op string, err error) error {
	e.logger.Warn(op+" refused", map[string]any{"error": err.Error()})
	e.note(err.Error())
	return err
}

func (e *Engine) note(msg string) {
	e.mu.Lock()
	e.message = msg
	e.mu.Unlock()
}

func (e *Engine) appendHistory(t model.HistoryEventType, session string, count int, details map[string]any) {
	if e.history == nil {
		return
	}
	if err := e.history.Append(t, session, count, details); err != nil {
		e.logger.Warn("history append failed", map[string]any{"event": string(t), "error": err.Error()})
	}
}

// controls adapts the engine to the coordinator's hotkey actions. Errors are
// already logged and surfaced in Status by the engine methods.
type controls struct{ e *Engine }

func (c controls) ToggleRecording() { _ = c.e.ToggleRecording() }
func (c controls) Play()            { _ = c.e.Play() }
func (c controls) StopPlayback()    { c.e.StopPlayback() }
func (c controls) Save()            { _ = c.e.Save("") }
func (c controls) Load()            { _ = c.e.Load("") }
func (c controls) Quit()            { c.e.Quit() }
