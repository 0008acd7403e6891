package mode

import (
	"sync"

	"github.com/macrorec-project/macrorec/internal/input"
	"github.com/macrorec-project/macrorec/pkg/model"
)

// Action is a control operation bound to a key.
type Action string

const (
	ActionNone   Action = ""
	ActionRecord Action = "record"
	ActionPlay   Action = "play"
	ActionSave   Action = "save"
	ActionLoad   Action = "load"
	ActionCancel Action = "cancel"
)

// Bindings maps control actions to logical key identifiers.
type Bindings struct {
	Record string `yaml:"record" json:"record"`
	Play   string `yaml:"play" json:"play"`
	Save   string `yaml:"save" json:"save"`
	Load   string `yaml:"load" json:"load"`
	Cancel string `yaml:"cancel" json:"cancel"`
}

// DefaultBindings returns F8 record, F9 play, F10 save, F11 load, Esc cancel.
func DefaultBindings() Bindings {
	return Bindings{
		Record: "Key.f8",
		Play:   "Key.f9",
		Save:   "Key.f10",
		Load:   "Key.f11",
		Cancel: "Key.esc",
	}
}

// Lookup returns the action bound to key, or ActionNone.
func (b Bindings) Lookup(key string) Action {
	if key == "" {
		return ActionNone
	}
	key = model.NormalizeKey(key)
	switch key {
	case model.NormalizeKey(b.Cancel):
		return ActionCancel
	case model.NormalizeKey(b.Record):
		return ActionRecord
	case model.NormalizeKey(b.Play):
		return ActionPlay
	case model.NormalizeKey(b.Save):
		return ActionSave
	case model.NormalizeKey(b.Load):
		return ActionLoad
	}
	return ActionNone
}

// Controls is the control surface the coordinator drives when a bound key
// is pressed.
type Controls interface {
	ToggleRecording()
	Play()
	StopPlayback()
	Save()
	Load()
	Quit()
}

// Coordinator filters live input according to the current mode.
//
// While playing, everything is dropped except the cancel key, which stops
// playback. Otherwise bound keys are intercepted as controls and the rest
// goes to the recording sink, which ignores it unless a session is active.
type Coordinator struct {
	machine  *Machine
	sink     input.Handler
	controls Controls

	mu       sync.RWMutex
	bindings Bindings
}

// NewCoordinator wires a coordinator.
func NewCoordinator(machine *Machine, sink input.Handler, controls Controls, bindings Bindings) *Coordinator {
	return &Coordinator{
		machine:  machine,
		sink:     sink,
		controls: controls,
		bindings: bindings,
	}
}

// Bindings returns the active key bindings.
func (c *Coordinator) Bindings() Bindings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bindings
}

// SetBindings replaces the key bindings. It takes effect for the next
// occurrence.
func (c *Coordinator) SetBindings(b Bindings) {
	c.mu.Lock()
	c.bindings = b
	c.mu.Unlock()
}

// HandleInput routes one live occurrence.
func (c *Coordinator) HandleInput(o input.Occurrence) {
	action := ActionNone
	if o.Kind == model.KindKeyDown || o.Kind == model.KindKeyUp {
		action = c.Bindings().Lookup(o.Key)
	}

	if action == ActionCancel && o.Kind == model.KindKeyDown {
		if c.machine.Mode() == model.ModePlaying {
			c.controls.StopPlayback()
		} else {
			c.controls.Quit()
		}
		return
	}

	if c.machine.IgnoringInput() {
		return
	}

	if action != ActionNone {
		if o.Kind == model.KindKeyDown {
			c.run(action)
		}
		return
	}

	c.sink.HandleInput(o)
}

func (c *Coordinator) run(a Action) {
	switch a {
	case ActionRecord:
		c.controls.ToggleRecording()
	case ActionPlay:
		c.controls.Play()
	case ActionSave:
		c.controls.Save()
	case ActionLoad:
		c.controls.Load()
	}
}
