// Package xdotool injects keyboard and mouse input on X11 by running the
// xdotool command.
package xdotool

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/macrorec-project/macrorec/pkg/model"
)

// Runner executes one xdotool invocation.
type Runner func(args ...string) error

// Injector implements input.Injector on top of xdotool.
type Injector struct {
	bin string
	run Runner
}

// Option configures an Injector.
type Option func(*Injector)

// WithBinary overrides the xdotool executable.
func WithBinary(path string) Option {
	return func(i *Injector) { i.bin = path }
}

// WithRunner replaces process execution, typically in tests.
func WithRunner(r Runner) Option {
	return func(i *Injector) { i.run = r }
}

// New creates an injector running "xdotool" from PATH.
func New(opts ...Option) *Injector {
	i := &Injector{bin: "xdotool"}
	i.run = i.exec
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Available reports whether the xdotool binary can be found.
func (i *Injector) Available() bool {
	_, err := exec.LookPath(i.bin)
	return err == nil
}

func (i *Injector) exec(args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.Command(i.bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s %s: %w: %s", i.bin, args[0], err, msg)
		}
		return fmt.Errorf("%s %s: %w", i.bin, args[0], err)
	}
	return nil
}

func (i *Injector) KeyDown(key string) error {
	sym, err := Keysym(key)
	if err != nil {
		return err
	}
	return i.run("keydown", sym)
}

func (i *Injector) KeyUp(key string) error {
	sym, err := Keysym(key)
	if err != nil {
		return err
	}
	return i.run("keyup", sym)
}

func (i *Injector) MoveTo(x, y int) error {
	return i.run("mousemove", itoa(x), itoa(y))
}

func (i *Injector) ButtonDown(b model.Button, x, y int) error {
	n, err := buttonNumber(b)
	if err != nil {
		return err
	}
	return i.run("mousemove", itoa(x), itoa(y), "mousedown", n)
}

func (i *Injector) ButtonUp(b model.Button, x, y int) error {
	n, err := buttonNumber(b)
	if err != nil {
		return err
	}
	return i.run("mousemove", itoa(x), itoa(y), "mouseup", n)
}

// Scroll moves to (x, y) and clicks the X11 wheel buttons: 4 up, 5 down,
// 6 left, 7 right, once per unit of delta. Positive dy scrolls up.
func (i *Injector) Scroll(dx, dy, x, y int) error {
	args := []string{"mousemove", itoa(x), itoa(y)}
	if dy != 0 {
		args = append(args, wheel(dy, "4", "5")...)
	}
	if dx != 0 {
		args = append(args, wheel(dx, "7", "6")...)
	}
	return i.run(args...)
}

func wheel(delta int, positive, negative string) []string {
	button := positive
	if delta < 0 {
		button, delta = negative, -delta
	}
	return []string{"click", "--repeat", itoa(delta), button}
}

func buttonNumber(b model.Button) (string, error) {
	switch b {
	case model.ButtonLeft:
		return "1", nil
	case model.ButtonMiddle:
		return "2", nil
	case model.ButtonRight:
		return "3", nil
	}
	return "", fmt.Errorf("unsupported button %q", b)
}

func itoa(n int) string { return strconv.Itoa(n) }

// Keysym translates a key identifier into an X keysym name.
func Keysym(key string) (string, error) {
	if name, ok := strings.CutPrefix(key, "Key."); ok {
		if sym, ok := specialKeys[name]; ok {
			return sym, nil
		}
		if n, ok := strings.CutPrefix(name, "f"); ok {
			if v, err := strconv.Atoi(n); err == nil && v >= 1 && v <= 35 {
				return "F" + n, nil
			}
		}
		return "", fmt.Errorf("no keysym for %q", key)
	}

	r, size := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError || size != len(key) {
		return "", fmt.Errorf("no keysym for %q", key)
	}
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return key, nil
	}
	if sym, ok := punctuation[r]; ok {
		return sym, nil
	}
	return fmt.Sprintf("U%04X", r), nil
}

var specialKeys = map[string]string{
	"alt":          "Alt_L",
	"alt_l":        "Alt_L",
	"alt_r":        "Alt_R",
	"alt_gr":       "ISO_Level3_Shift",
	"backspace":    "BackSpace",
	"caps_lock":    "Caps_Lock",
	"cmd":          "Super_L",
	"cmd_l":        "Super_L",
	"cmd_r":        "Super_R",
	"ctrl":         "Control_L",
	"ctrl_l":       "Control_L",
	"ctrl_r":       "Control_R",
	"delete":       "Delete",
	"down":         "Down",
	"end":          "End",
	"enter":        "Return",
	"esc":          "Escape",
	"home":         "Home",
	"insert":       "Insert",
	"left":         "Left",
	"menu":         "Menu",
	"num_lock":     "Num_Lock",
	"page_down":    "Next",
	"page_up":      "Prior",
	"pause":        "Pause",
	"print_screen": "Print",
	"right":        "Right",
	"scroll_lock":  "Scroll_Lock",
	"shift":        "Shift_L",
	"shift_l":      "Shift_L",
	"shift_r":      "Shift_R",
	"space":        "space",
	"tab":          "Tab",
	"up":           "Up",
}

var punctuation = map[rune]string{
	' ':  "space",
	'!':  "exclam",
	'"':  "quotedbl",
	'#':  "numbersign",
	'$':  "dollar",
	'%':  "percent",
	'&':  "ampersand",
	'\'': "apostrophe",
	'(':  "parenleft",
	')':  "parenright",
	'*':  "asterisk",
	'+':  "plus",
	',':  "comma",
	'-':  "minus",
	'.':  "period",
	'/':  "slash",
	':':  "colon",
	';':  "semicolon",
	'<':  "less",
	'=':  "equal",
	'>':  "greater",
	'?':  "question",
	'@':  "at",
	'[':  "bracketleft",
	'\\': "backslash",
	']':  "bracketright",
	'^':  "asciicircum",
	'_':  "underscore",
	'`':  "grave",
	'{':  "braceleft",
	'|':  "bar",
	'}':  "braceright",
	'~':  "asciitilde",
	'\t': "Tab",
	'\n': "Return",
	'\r': "Return",
}
