// Package metrics keeps in-process counters for recording and playback
// activity. Counters are exposed through Snapshot for status output.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Registry holds the macro engine counters.
type Registry struct {
	recordings       atomic.Int64
	eventsRecorded   atomic.Int64
	playbacks        atomic.Int64
	playbacksAborted atomic.Int64
	eventsDispatched atomic.Int64
	eventsSkipped    atomic.Int64
	injectFailures   atomic.Int64
	playbackNanos    atomic.Int64
	saves            atomic.Int64
	loads            atomic.Int64
	fileErrors       atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RecordRecording records one finished recording session.
func (r *Registry) RecordRecording(events int) {
	r.recordings.Add(1)
	r.eventsRecorded.Add(int64(events))
}

// RecordPlayback records one finished playback.
func (r *Registry) RecordPlayback(dispatched, skipped, failed int, cancelled bool, duration time.Duration) {
	r.playbacks.Add(1)
	if cancelled {
		r.playbacksAborted.Add(1)
	}
	r.eventsDispatched.Add(int64(dispatched))
	r.eventsSkipped.Add(int64(skipped))
	r.injectFailures.Add(int64(failed))
	r.playbackNanos.Add(int64(duration))
}

// RecordSave records a save attempt.
func (r *Registry) RecordSave(success bool) {
	if success {
		r.saves.Add(1)
		return
	}
	r.fileErrors.Add(1)
}

// RecordLoad records a load attempt.
func (r *Registry) RecordLoad(success bool) {
	if success {
		r.loads.Add(1)
		return
	}
	r.fileErrors.Add(1)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Recordings        int64         `json:"recordings"`
	EventsRecorded    int64         `json:"events_recorded"`
	Playbacks         int64         `json:"playbacks"`
	PlaybacksCanceled int64         `json:"playbacks_cancelled"`
	EventsDispatched  int64         `json:"events_dispatched"`
	EventsSkipped     int64         `json:"events_skipped"`
	InjectFailures    int64         `json:"inject_failures"`
	PlaybackTime      time.Duration `json:"playback_time"`
	Saves             int64         `json:"saves"`
	Loads             int64         `json:"loads"`
	FileErrors        int64         `json:"file_errors"`
}

// Snapshot returns the current counter values.
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		Recordings:        r.recordings.Load(),
		EventsRecorded:    r.eventsRecorded.Load(),
		Playbacks:         r.playbacks.Load(),
		PlaybacksCanceled: r.playbacksAborted.Load(),
		EventsDispatched:  r.eventsDispatched.Load(),
		EventsSkipped:     r.eventsSkipped.Load(),
		InjectFailures:    r.injectFailures.Load(),
		PlaybackTime:      time.Duration(r.playbackNanos.Load()),
		Saves:             r.saves.Load(),
		Loads:             r.loads.Load(),
		FileErrors:        r.fileErrors.Load(),
	}
}
