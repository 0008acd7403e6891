// Package doctor checks that the local setup can record and replay.
package doctor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/macrorec-project/macrorec/internal/history"
	"github.com/macrorec-project/macrorec/internal/input/xdotool"
	"github.com/macrorec-project/macrorec/internal/timeline"
	"github.com/macrorec-project/macrorec/pkg/config"
)

// Severity levels, in increasing order.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Finding represents a detected issue.
type Finding struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Path        string `json:"path,omitempty"`
}

// Result contains doctor check results.
type Result struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
}

func (r *Result) add(f Finding) {
	r.Findings = append(r.Findings, f)
	if f.Severity == SeverityError || f.Severity == SeverityCritical {
		r.Healthy = false
	}
}

// Doctor performs setup health checks.
type Doctor struct {
	cfg       *config.Config
	available func(string) bool
	getenv    func(string) string
}

// Option configures a Doctor.
type Option func(*Doctor)

// WithInjectorCheck replaces the lookup used to decide whether the named
// injector binary is installed.
func WithInjectorCheck(fn func(name string) bool) Option {
	return func(d *Doctor) { d.available = fn }
}

// WithGetenv replaces os.Getenv.
func WithGetenv(fn func(string) string) Option {
	return func(d *Doctor) { d.getenv = fn }
}

// NewDoctor creates a new doctor for cfg.
func NewDoctor(cfg *config.Config, opts ...Option) *Doctor {
	d := &Doctor{
		cfg: cfg,
		available: func(name string) bool {
			return xdotool.New(xdotool.WithBinary(name)).Available()
		},
		getenv: os.Getenv,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check runs all diagnostic checks. Strict mode also verifies the history
// hash chain and inspects every event of the default file. Problems are
// reported as findings, never as errors.
func (d *Doctor) Check(strict bool) *Result {
	result := &Result{Healthy: true, Findings: []Finding{}}

	d.checkInjector(result)
	d.checkDefaultFile(result, strict)
	d.checkHistory(result, strict)
	d.checkOrphanTmp(result)

	return result
}

func (d *Doctor) checkInjector(result *Result) {
	if d.cfg.Playback.Injector != "xdotool" {
		return
	}
	if !d.available("xdotool") {
		result.add(Finding{
			Category:    "injector",
			Description: "xdotool not found in PATH; playback cannot inject input",
			Severity:    SeverityError,
		})
	}
	if runtime.GOOS == "linux" && d.getenv("DISPLAY") == "" {
		result.add(Finding{
			Category:    "injector",
			Description: "DISPLAY is not set; xdotool needs an X11 session",
			Severity:    SeverityWarning,
		})
	}
}

func (d *Doctor) checkDefaultFile(result *Result, strict bool) {
	path := d.cfg.DefaultFile
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		result.add(Finding{
			Category:    "timeline",
			Description: "default file does not exist yet",
			Severity:    SeverityInfo,
			Path:        path,
		})
		return
	}

	events, err := timeline.LoadFile(path)
	if err != nil {
		result.add(Finding{
			Category:    "timeline",
			Description: err.Error(),
			Severity:    SeverityError,
			Path:        path,
		})
		return
	}
	if !strict {
		return
	}

	incomplete, unordered := 0, 0
	for i, ev := range events {
		if !ev.Complete() {
			incomplete++
		}
		if i > 0 && ev.Timestamp < events[i-1].Timestamp {
			unordered++
		}
	}
	if incomplete > 0 {
		result.add(Finding{
			Category:    "timeline",
			Description: fmt.Sprintf("%d events lack required fields and will be skipped on playback", incomplete),
			Severity:    SeverityWarning,
			Path:        path,
		})
	}
	if unordered > 0 {
		result.add(Finding{
			Category:    "timeline",
			Description: fmt.Sprintf("%d events have a timestamp earlier than the previous event", unordered),
			Severity:    SeverityWarning,
			Path:        path,
		})
	}
}

func (d *Doctor) checkHistory(result *Result, strict bool) {
	if !d.cfg.History.Enabled {
		return
	}
	path, err := d.cfg.HistoryPath()
	if err != nil {
		result.add(Finding{
			Category:    "history",
			Description: err.Error(),
			Severity:    SeverityError,
		})
		return
	}

	log := history.New(path)
	if strict {
		_, err = log.Verify()
	} else {
		_, err = log.Read()
	}
	if err != nil {
		result.add(Finding{
			Category:    "history",
			Description: err.Error(),
			Severity:    SeverityCritical,
			Path:        path,
		})
	}
}

// checkOrphanTmp reports temp files left behind by interrupted atomic writes
// next to the default file and the history log.
func (d *Doctor) checkOrphanTmp(result *Result) {
	dirs := []string{filepath.Dir(d.cfg.DefaultFile)}
	if path, err := d.cfg.HistoryPath(); err == nil {
		if dir := filepath.Dir(path); dir != dirs[0] {
			dirs = append(dirs, dir)
		}
	}

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // directory doesn't exist, that's fine
		}
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), ".macrorec-tmp-") {
				result.add(Finding{
					Category:    "tmp",
					Description: fmt.Sprintf("orphan temp file: %s", entry.Name()),
					Severity:    SeverityInfo,
					Path:        filepath.Join(dir, entry.Name()),
				})
			}
		}
	}
}
