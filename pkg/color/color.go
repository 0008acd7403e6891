// Package color provides terminal color output for the CLI.
// It respects the NO_COLOR environment variable (https://no-color.org/).
package color

import (
	"os"
	"sync"

	fcolor "github.com/fatih/color"
)

var initOnce sync.Once

// Init decides once whether color output is enabled, based on NO_COLOR,
// TERM=dumb, whether stdout is a terminal, and the --no-color flag.
func Init(noColorFlag bool) {
	initOnce.Do(func() {
		_, noColorEnv := os.LookupEnv("NO_COLOR")
		if noColorEnv || os.Getenv("TERM") == "dumb" || noColorFlag {
			fcolor.NoColor = true
		}
	})
}

// Enabled returns true if color output is enabled.
func Enabled() bool {
	Init(false)
	return !fcolor.NoColor
}

// Disable turns off color output.
func Disable() { fcolor.NoColor = true }

// Enable turns on color output.
func Enable() { fcolor.NoColor = false }

var (
	green  = fcolor.New(fcolor.FgGreen).SprintFunc()
	red    = fcolor.New(fcolor.FgRed).SprintFunc()
	yellow = fcolor.New(fcolor.FgYellow).SprintFunc()
	cyan   = fcolor.New(fcolor.FgCyan).SprintFunc()
	bold   = fcolor.New(fcolor.Bold).SprintFunc()
	faint  = fcolor.New(fcolor.Faint).SprintFunc()
)

// Success formats a success message in green.
func Success(s string) string { return green(s) }

// Error formats an error message in red.
func Error(s string) string { return red(s) }

// Warning formats a warning message in yellow.
func Warning(s string) string { return yellow(s) }

// Info formats an informational message in cyan.
func Info(s string) string { return cyan(s) }

// Header formats a header in bold.
func Header(s string) string { return bold(s) }

// Dim formats secondary information.
func Dim(s string) string { return faint(s) }
