package input

import (
	"fmt"
	"io"
	"sync"

	"github.com/macrorec-project/macrorec/pkg/model"
)

// Printer is an Injector that writes one line per dispatch instead of
// touching the OS. It backs dry-run playback.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) printf(format string, args ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.w, format+"\n", args...)
	return err
}

func (p *Printer) KeyDown(key string) error { return p.printf("key_down %s", key) }

func (p *Printer) KeyUp(key string) error { return p.printf("key_up %s", key) }

func (p *Printer) MoveTo(x, y int) error { return p.printf("move_to %d %d", x, y) }

func (p *Printer) ButtonDown(b model.Button, x, y int) error {
	return p.printf("button_down %s %d %d", b, x, y)
}

func (p *Printer) ButtonUp(b model.Button, x, y int) error {
	return p.printf("button_up %s %d %d", b, x, y)
}

func (p *Printer) Scroll(dx, dy, x, y int) error {
	return p.printf("scroll %d %d %d %d", dx, dy, x, y)
}
