package model

import (
	"encoding/json"
	"fmt"
	"math"

	"golang.org/x/text/unicode/norm"
)

// Kind identifies the type of input occurrence an Event describes.
type Kind string

const (
	KindKeyDown   Kind = "key_down"
	KindKeyUp     Kind = "key_up"
	KindMouseMove Kind = "mouse_move"
	KindMouseDown Kind = "mouse_down"
	KindMouseUp   Kind = "mouse_up"
	KindScroll    Kind = "scroll"
)

// Kinds lists every event kind in declaration order.
var Kinds = []Kind{KindKeyDown, KindKeyUp, KindMouseMove, KindMouseDown, KindMouseUp, KindScroll}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindKeyDown, KindKeyUp, KindMouseMove, KindMouseDown, KindMouseUp, KindScroll:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// UnmarshalJSON rejects unknown kinds so a bad record fails the whole load.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("kind: %w", err)
	}
	if !Kind(s).Valid() {
		return fmt.Errorf("unknown event kind %q", s)
	}
	*k = Kind(s)
	return nil
}

// Button identifies a mouse button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// Valid reports whether b is one of the known buttons.
func (b Button) Valid() bool {
	switch b {
	case ButtonLeft, ButtonRight, ButtonMiddle:
		return true
	}
	return false
}

func (b Button) String() string { return string(b) }

// UnmarshalJSON rejects unknown button names.
func (b *Button) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("button: %w", err)
	}
	if !Button(s).Valid() {
		return fmt.Errorf("unknown mouse button %q", s)
	}
	*b = Button(s)
	return nil
}

// Event is one timestamped keyboard or mouse occurrence in a timeline.
//
// Optional fields are pointers; a nil field is written as null and is
// tolerated on playback, which skips events lacking what it needs.
type Event struct {
	Timestamp float64 `json:"timestamp"` // seconds since recording start
	Kind      Kind    `json:"kind"`
	Key       *string `json:"key"`
	Button    *Button `json:"button"`
	X         *int    `json:"x"`
	Y         *int    `json:"y"`
	DX        *int    `json:"dx"`
	DY        *int    `json:"dy"`
}

// NewKeyDown returns a key_down event.
func NewKeyDown(ts float64, key string) Event {
	return Event{Timestamp: ts, Kind: KindKeyDown, Key: ptr(NormalizeKey(key))}
}

// NewKeyUp returns a key_up event.
func NewKeyUp(ts float64, key string) Event {
	return Event{Timestamp: ts, Kind: KindKeyUp, Key: ptr(NormalizeKey(key))}
}

// NewMouseMove returns a mouse_move event.
func NewMouseMove(ts float64, x, y int) Event {
	return Event{Timestamp: ts, Kind: KindMouseMove, X: ptr(x), Y: ptr(y)}
}

// NewMouseDown returns a mouse_down event.
func NewMouseDown(ts float64, b Button, x, y int) Event {
	return Event{Timestamp: ts, Kind: KindMouseDown, Button: ptr(b), X: ptr(x), Y: ptr(y)}
}

// NewMouseUp returns a mouse_up event.
func NewMouseUp(ts float64, b Button, x, y int) Event {
	return Event{Timestamp: ts, Kind: KindMouseUp, Button: ptr(b), X: ptr(x), Y: ptr(y)}
}

// NewScroll returns a scroll event at (x, y) with deltas (dx, dy).
func NewScroll(ts float64, x, y, dx, dy int) Event {
	return Event{Timestamp: ts, Kind: KindScroll, X: ptr(x), Y: ptr(y), DX: ptr(dx), DY: ptr(dy)}
}

// Validate checks that the event can be written and read back: a finite
// timestamp and known kind and button. Field completeness is not checked.
func (e Event) Validate() error {
	if math.IsNaN(e.Timestamp) || math.IsInf(e.Timestamp, 0) {
		return fmt.Errorf("timestamp %v is not finite", e.Timestamp)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.Button != nil && !e.Button.Valid() {
		return fmt.Errorf("unknown mouse button %q", *e.Button)
	}
	return nil
}

// Complete reports whether the event carries every field its kind needs
// for playback.
func (e Event) Complete() bool {
	_, _, hasPoint := e.Point()
	switch e.Kind {
	case KindKeyDown, KindKeyUp:
		return e.Key != nil && *e.Key != ""
	case KindMouseMove:
		return hasPoint
	case KindMouseDown, KindMouseUp:
		return hasPoint && e.Button != nil
	case KindScroll:
		return hasPoint && (e.DX != nil || e.DY != nil)
	}
	return false
}

// Point returns the event coordinates and whether both are present.
func (e Event) Point() (x, y int, ok bool) {
	if e.X == nil || e.Y == nil {
		return 0, 0, false
	}
	return *e.X, *e.Y, true
}

// String renders the event for listings and dry-run output.
func (e Event) String() string {
	s := fmt.Sprintf("%10.4f %-10s", e.Timestamp, e.Kind)
	if e.Key != nil {
		s += fmt.Sprintf(" key=%s", *e.Key)
	}
	if e.Button != nil {
		s += fmt.Sprintf(" button=%s", *e.Button)
	}
	if x, y, ok := e.Point(); ok {
		s += fmt.Sprintf(" at=(%d,%d)", x, y)
	}
	if e.DX != nil || e.DY != nil {
		s += fmt.Sprintf(" delta=(%d,%d)", deref(e.DX), deref(e.DY))
	}
	return s
}

// NormalizeKey returns the NFC form of a logical key identifier so that
// composed and decomposed characters compare equal.
func NormalizeKey(key string) string {
	return norm.NFC.String(key)
}

func ptr[T any](v T) *T { return &v }

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
