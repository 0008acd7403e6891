// Package recorder turns live input occurrences into timestamped timeline
// events while a recording session is active.
package recorder

import (
	"sync"
	"time"

	"github.com/macrorec-project/macrorec/internal/input"
	"github.com/macrorec-project/macrorec/internal/mode"
	"github.com/macrorec-project/macrorec/internal/timeline"
	"github.com/macrorec-project/macrorec/pkg/errclass"
	"github.com/macrorec-project/macrorec/pkg/model"
)

// Recorder appends observed occurrences to a timeline store.
type Recorder struct {
	store   *timeline.Store
	machine *mode.Machine
	now     func() time.Time

	mu     sync.Mutex // serializes session start against Observe
	origin time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock replaces time.Now. The returned times must carry a monotonic
// reading (time.Now does) so elapsed time ignores wall-clock adjustments.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// New creates a recorder writing to store and gated by machine.
func New(store *timeline.Store, machine *mode.Machine, opts ...Option) *Recorder {
	r := &Recorder{
		store:   store,
		machine: machine,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins a new session: the clock origin is reset and the timeline
// cleared. It fails, leaving everything untouched, while playback runs.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.machine.BeginRecording(); err != nil {
		return err
	}
	r.origin = r.now()
	r.store.Clear()
	return nil
}

// Stop ends the session. It is idempotent and returns the event count.
func (r *Recorder) Stop() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.machine.EndRecording()
	return r.store.Len()
}

// Replace swaps the timeline contents for events unless a session is
// active. The check and the swap happen under the session lock, so a Start
// racing with Replace either sees the new timeline cleared or makes Replace
// fail with E_RECORDING_ACTIVE.
func (r *Recorder) Replace(events []model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.machine.Mode() == model.ModeRecording {
		return errclass.ErrRecordingActive.WithMessage("stop recording before replacing the timeline")
	}
	r.store.Replace(events)
	return nil
}

// Active reports whether a session is running.
func (r *Recorder) Active() bool {
	return r.machine.Mode() == model.ModeRecording
}

// Observe records occ if a session is active and is a no-op otherwise.
// Occurrences the timeline file cannot represent, such as an unknown mouse
// button, are dropped.
func (r *Recorder) Observe(occ input.Occurrence) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.machine.Mode() != model.ModeRecording {
		return
	}
	ts := r.now().Sub(r.origin).Seconds()
	if ts < 0 {
		ts = 0
	}
	ev, ok := occ.Event(ts)
	if !ok || ev.Validate() != nil {
		return
	}
	r.store.Append(ev)
}

// HandleInput lets the recorder act as an input.Handler.
func (r *Recorder) HandleInput(occ input.Occurrence) {
	r.Observe(occ)
}
