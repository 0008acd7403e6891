package errclass

import (
	"errors"
	"fmt"
)

// MacroError is a stable, machine-readable error class.
type MacroError struct {
	Code    string
	Message string
}

func (e *MacroError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *MacroError) Is(target error) bool {
	t, ok := target.(*MacroError)
	return ok && e.Code == t.Code
}

// WithMessage returns a new MacroError with the same Code but a specific message.
func (e *MacroError) WithMessage(msg string) *MacroError {
	return &MacroError{Code: e.Code, Message: msg}
}

// WithMessagef returns a new MacroError with a formatted message.
func (e *MacroError) WithMessagef(format string, args ...any) *MacroError {
	return &MacroError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// Stable error classes.
var (
	ErrRecordingActive = &MacroError{Code: "E_RECORDING_ACTIVE"}
	ErrPlaybackActive  = &MacroError{Code: "E_PLAYBACK_ACTIVE"}
	ErrTimelineEmpty   = &MacroError{Code: "E_TIMELINE_EMPTY"}
	ErrFormatInvalid   = &MacroError{Code: "E_FORMAT_INVALID"}
	ErrIO              = &MacroError{Code: "E_IO"}
	ErrConfigInvalid   = &MacroError{Code: "E_CONFIG_INVALID"}
	ErrHistoryBroken   = &MacroError{Code: "E_HISTORY_BROKEN"}
)

// IsStateConflict reports whether err is one of the non-fatal mode conflicts.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrRecordingActive) ||
		errors.Is(err, ErrPlaybackActive) ||
		errors.Is(err, ErrTimelineEmpty)
}
