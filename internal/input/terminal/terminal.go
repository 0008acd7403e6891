// Package terminal observes keyboard and mouse input through a tcell
// screen. Terminals report key presses only, so every press is delivered as
// a key_down immediately followed by a key_up, wrapped in Key.ctrl_l for
// control chords.
package terminal

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/macrorec-project/macrorec/internal/input"
	"github.com/macrorec-project/macrorec/pkg/model"
)

// Observer implements input.Observer on a tcell screen and doubles as the
// status display for interactive sessions.
type Observer struct {
	screen tcell.Screen

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopOnce sync.Once
	done     chan struct{}

	// owned by the event loop
	buttons tcell.ButtonMask
	lastX   int
	lastY   int
	moved   bool
}

// New wraps screen. The screen is initialized by Start.
func New(screen tcell.Screen) *Observer {
	return &Observer{screen: screen, done: make(chan struct{})}
}

// NewDefault creates an observer on the controlling terminal.
func NewDefault() (*Observer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	return New(screen), nil
}

// Start initializes the screen with mouse reporting and delivers input to h
// from a background goroutine until Stop or ctx cancellation.
func (o *Observer) Start(ctx context.Context, h input.Handler) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started || o.stopped {
		return fmt.Errorf("terminal observer already started")
	}
	if err := o.screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	o.screen.EnableMouse(tcell.MouseMotionEvents)
	o.screen.HideCursor()
	o.started = true

	go o.loop(h)
	go func() {
		select {
		case <-ctx.Done():
			_ = o.Stop()
		case <-o.done:
		}
	}()
	return nil
}

// Stop restores the terminal. It does not wait for the event loop, so it is
// safe to call from inside a handler.
func (o *Observer) Stop() error {
	o.stopOnce.Do(func() {
		o.mu.Lock()
		started := o.started
		o.stopped = true
		o.mu.Unlock()
		if started {
			o.screen.Fini()
		} else {
			close(o.done)
		}
	})
	return nil
}

// Done is closed once the event loop has exited.
func (o *Observer) Done() <-chan struct{} {
	return o.done
}

// Draw replaces the screen contents with lines, one per row.
func (o *Observer) Draw(lines ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started || o.stopped {
		return
	}
	o.screen.Clear()
	for row, line := range lines {
		col := 0
		for _, r := range line {
			o.screen.SetContent(col, row, r, nil, tcell.StyleDefault)
			col++
		}
	}
	o.screen.Show()
}

func (o *Observer) loop(h input.Handler) {
	defer close(o.done)
	for {
		ev := o.screen.PollEvent()
		if ev == nil {
			return
		}
		for _, occ := range o.translate(ev) {
			h.HandleInput(occ)
		}
	}
}

func (o *Observer) translate(ev tcell.Event) []input.Occurrence {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return keyOccurrences(e)
	case *tcell.EventMouse:
		return o.mouse(e)
	case *tcell.EventResize:
		o.screen.Sync()
	}
	return nil
}

// ctrlKey is pressed around control chords, which terminals report as a
// single key.
const ctrlKey = "Key.ctrl_l"

func keyOccurrences(e *tcell.EventKey) []input.Occurrence {
	name := KeyName(e)
	if name == "" {
		return nil
	}
	if !isCtrlChord(e) {
		return []input.Occurrence{input.KeyDown(name), input.KeyUp(name)}
	}
	return []input.Occurrence{
		input.KeyDown(ctrlKey),
		input.KeyDown(name),
		input.KeyUp(name),
		input.KeyUp(ctrlKey),
	}
}

// isCtrlChord reports whether e was typed with Control held. Enter, Tab,
// Backspace and Esc share codes with Ctrl chords and count as plain keys.
func isCtrlChord(e *tcell.EventKey) bool {
	k := e.Key()
	if _, special := specialKeys[k]; special {
		return false
	}
	switch {
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ, k == tcell.KeyCtrlSpace:
		return true
	case k == tcell.KeyRune:
		return e.Modifiers()&tcell.ModCtrl != 0
	}
	return false
}

var buttonOrder = []struct {
	mask   tcell.ButtonMask
	button model.Button
}{
	{tcell.ButtonPrimary, model.ButtonLeft},
	{tcell.ButtonSecondary, model.ButtonRight},
	{tcell.ButtonMiddle, model.ButtonMiddle},
}

const pressMask = tcell.ButtonPrimary | tcell.ButtonSecondary | tcell.ButtonMiddle

func (o *Observer) mouse(e *tcell.EventMouse) []input.Occurrence {
	x, y := e.Position()
	btns := e.Buttons()
	var out []input.Occurrence

	if !o.moved || x != o.lastX || y != o.lastY {
		out = append(out, input.Move(x, y))
		o.lastX, o.lastY, o.moved = x, y, true
	}

	held := btns & pressMask
	for _, b := range buttonOrder {
		switch {
		case o.buttons&b.mask != 0 && held&b.mask == 0:
			out = append(out, input.ButtonUp(b.button, x, y))
		case o.buttons&b.mask == 0 && held&b.mask != 0:
			out = append(out, input.ButtonDown(b.button, x, y))
		}
	}
	o.buttons = held

	switch {
	case btns&tcell.WheelUp != 0:
		out = append(out, input.Scroll(x, y, 0, 1))
	case btns&tcell.WheelDown != 0:
		out = append(out, input.Scroll(x, y, 0, -1))
	case btns&tcell.WheelLeft != 0:
		out = append(out, input.Scroll(x, y, -1, 0))
	case btns&tcell.WheelRight != 0:
		out = append(out, input.Scroll(x, y, 1, 0))
	}
	return out
}

var specialKeys = map[tcell.Key]string{
	tcell.KeyEnter:      "Key.enter",
	tcell.KeyTab:        "Key.tab",
	tcell.KeyBacktab:    "Key.tab",
	tcell.KeyBackspace:  "Key.backspace",
	tcell.KeyBackspace2: "Key.backspace",
	tcell.KeyEscape:     "Key.esc",
	tcell.KeyDelete:     "Key.delete",
	tcell.KeyInsert:     "Key.insert",
	tcell.KeyHome:       "Key.home",
	tcell.KeyEnd:        "Key.end",
	tcell.KeyPgUp:       "Key.page_up",
	tcell.KeyPgDn:       "Key.page_down",
	tcell.KeyUp:         "Key.up",
	tcell.KeyDown:       "Key.down",
	tcell.KeyLeft:       "Key.left",
	tcell.KeyRight:      "Key.right",
	tcell.KeyPause:      "Key.pause",
	tcell.KeyPrint:      "Key.print_screen",
}

// KeyName returns the key identifier for a tcell key event: the character
// itself for printable keys, Key.<name> for special keys, and "" for keys
// with no identifier. Control chords report their letter; the observer adds
// the Control press around it.
func KeyName(e *tcell.EventKey) string {
	k := e.Key()
	if k == tcell.KeyRune {
		if e.Rune() == ' ' {
			return "Key.space"
		}
		return model.NormalizeKey(string(e.Rune()))
	}
	if name, ok := specialKeys[k]; ok {
		return name
	}
	switch {
	case k >= tcell.KeyF1 && k <= tcell.KeyF24:
		return fmt.Sprintf("Key.f%d", k-tcell.KeyF1+1)
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		return string(rune('a' + k - tcell.KeyCtrlA))
	case k == tcell.KeyCtrlSpace:
		return "Key.space"
	}
	return ""
}
