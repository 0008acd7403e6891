// Package progress provides progress reporting for long-running operations
// such as playback.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Callback receives progress updates during long operations.
type Callback func(op string, current, total int, message string)

// Noop is a no-op callback for default behavior.
func Noop(op string, current, total int, message string) {}

// Terminal draws a single-line progress bar, redrawn in place.
type Terminal struct {
	mu          sync.Mutex
	writer      io.Writer
	op          string
	total       int
	current     int
	lastLineLen int
	enabled     bool
}

// NewTerminal creates a progress bar writing to w.
func NewTerminal(w io.Writer, op string, total int, enabled bool) *Terminal {
	return &Terminal{writer: w, op: op, total: total, enabled: enabled}
}

// Callback returns a Callback that redraws the bar. A non-zero total in the
// update overrides the one given to NewTerminal.
func (t *Terminal) Callback() Callback {
	return func(op string, current, total int, message string) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !t.enabled {
			return
		}
		if total > 0 {
			t.total = total
		}
		t.current = current
		t.render(message)
	}
}

func (t *Terminal) render(message string) {
	total := t.total
	if total <= 0 {
		total = 1
	}
	current := min(t.current, total)

	const barWidth = 30
	filled := barWidth * current / total
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)

	clear := "\r"
	if t.lastLineLen > 0 {
		clear = "\r" + strings.Repeat(" ", t.lastLineLen) + "\r"
	}

	line := fmt.Sprintf("%s [%s] %d/%d (%.0f%%)", t.op, bar, current, total, float64(current)/float64(total)*100)
	if message != "" {
		line += " " + message
	}
	fmt.Fprint(t.writer, clear+line)
	t.lastLineLen = len(line)
}

// Done draws the final state with message and ends the line. With cancelled
// set the bar is left at its current position.
func (t *Terminal) Done(message string, cancelled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	if !cancelled {
		t.current = t.total
	}
	t.render(message)
	fmt.Fprintln(t.writer)
}

// SetEnabled enables or disables the progress bar.
func (t *Terminal) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}
