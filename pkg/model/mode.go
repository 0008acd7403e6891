package model

// Mode is the mutually-exclusive engine state.
type Mode string

const (
	ModeIdle      Mode = "idle"
	ModeRecording Mode = "recording"
	ModePlaying   Mode = "playing"
)

// Label returns the status text shown to the user.
func (m Mode) Label() string {
	switch m {
	case ModeRecording:
		return "Recording..."
	case ModePlaying:
		return "Playing..."
	default:
		return "Idle"
	}
}
