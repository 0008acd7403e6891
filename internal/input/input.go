// Package input defines the boundary between the engine and the OS-facing
// collaborators: observers that deliver live keyboard and mouse occurrences,
// and injectors that synthesize them during playback.
package input

import (
	"context"

	"github.com/macrorec-project/macrorec/pkg/model"
)

// Occurrence is one raw input occurrence delivered by an Observer.
// Only the fields relevant to Kind are meaningful.
type Occurrence struct {
	Kind   model.Kind
	Key    string
	Button model.Button
	X, Y   int
	DX, DY int
}

// KeyDown returns a key press occurrence.
func KeyDown(key string) Occurrence { return Occurrence{Kind: model.KindKeyDown, Key: key} }

// KeyUp returns a key release occurrence.
func KeyUp(key string) Occurrence { return Occurrence{Kind: model.KindKeyUp, Key: key} }

// Move returns a pointer move occurrence.
func Move(x, y int) Occurrence { return Occurrence{Kind: model.KindMouseMove, X: x, Y: y} }

// ButtonDown returns a mouse button press occurrence.
func ButtonDown(b model.Button, x, y int) Occurrence {
	return Occurrence{Kind: model.KindMouseDown, Button: b, X: x, Y: y}
}

// ButtonUp returns a mouse button release occurrence.
func ButtonUp(b model.Button, x, y int) Occurrence {
	return Occurrence{Kind: model.KindMouseUp, Button: b, X: x, Y: y}
}

// Scroll returns a wheel occurrence at (x, y).
func Scroll(x, y, dx, dy int) Occurrence {
	return Occurrence{Kind: model.KindScroll, X: x, Y: y, DX: dx, DY: dy}
}

// Event converts the occurrence into a timeline event at ts.
func (o Occurrence) Event(ts float64) (model.Event, bool) {
	switch o.Kind {
	case model.KindKeyDown:
		return model.NewKeyDown(ts, o.Key), true
	case model.KindKeyUp:
		return model.NewKeyUp(ts, o.Key), true
	case model.KindMouseMove:
		return model.NewMouseMove(ts, o.X, o.Y), true
	case model.KindMouseDown:
		return model.NewMouseDown(ts, o.Button, o.X, o.Y), true
	case model.KindMouseUp:
		return model.NewMouseUp(ts, o.Button, o.X, o.Y), true
	case model.KindScroll:
		return model.NewScroll(ts, o.X, o.Y, o.DX, o.DY), true
	}
	return model.Event{}, false
}

// Handler receives occurrences from an Observer. Implementations must not block.
type Handler interface {
	HandleInput(Occurrence)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Occurrence)

// HandleInput calls f(o).
func (f HandlerFunc) HandleInput(o Occurrence) { f(o) }

// Observer is the lifecycle wrapper around an input hook.
type Observer interface {
	// Start installs the hook and delivers occurrences to h until Stop is
	// called or ctx is done.
	Start(ctx context.Context, h Handler) error
	// Stop removes the hook. It is safe to call more than once.
	Stop() error
}

// Injector synthesizes input during playback.
type Injector interface {
	KeyDown(key string) error
	KeyUp(key string) error
	MoveTo(x, y int) error
	ButtonDown(b model.Button, x, y int) error
	ButtonUp(b model.Button, x, y int) error
	Scroll(dx, dy, x, y int) error
}
