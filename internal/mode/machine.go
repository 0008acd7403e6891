// Package mode holds the engine's Idle/Recording/Playing state machine and
// the coordinator that routes live input according to it.
package mode

import (
	"sync"

	"github.com/macrorec-project/macrorec/pkg/errclass"
	"github.com/macrorec-project/macrorec/pkg/model"
)

// Machine is the single shared mode value plus the ignore-input flag.
// Both are read and written only through its methods.
type Machine struct {
	mu     sync.Mutex
	mode   model.Mode
	ignore bool
}

// NewMachine returns a machine in ModeIdle.
func NewMachine() *Machine {
	return &Machine{mode: model.ModeIdle}
}

// Mode returns the current mode.
func (m *Machine) Mode() model.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// IgnoringInput reports whether live input must be dropped.
func (m *Machine) IgnoringInput() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ignore
}

// BeginRecording enters ModeRecording. It fails while playing.
// Calling it while already recording succeeds so a session can restart.
func (m *Machine) BeginRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == model.ModePlaying {
		return errclass.ErrPlaybackActive.WithMessage("cannot record while playback is running")
	}
	m.mode = model.ModeRecording
	return nil
}

// EndRecording leaves ModeRecording. It reports whether a recording was active.
func (m *Machine) EndRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != model.ModeRecording {
		return false
	}
	m.mode = model.ModeIdle
	return true
}

// BeginPlayback enters ModePlaying and starts ignoring live input.
func (m *Machine) BeginPlayback() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.mode {
	case model.ModeRecording:
		return errclass.ErrRecordingActive.WithMessage("stop recording before playing")
	case model.ModePlaying:
		return errclass.ErrPlaybackActive.WithMessage("playback already running")
	}
	m.mode = model.ModePlaying
	m.ignore = true
	return nil
}

// EndPlayback stops ignoring live input and returns to ModeIdle.
func (m *Machine) EndPlayback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignore = false
	if m.mode == model.ModePlaying {
		m.mode = model.ModeIdle
	}
}

// Reset forces ModeIdle and clears the ignore flag.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = model.ModeIdle
	m.ignore = false
}
