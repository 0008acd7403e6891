package player

import (
	"errors"

	"github.com/macrorec-project/macrorec/pkg/model"
)

// errSkip marks an event that lacks the fields its kind needs.
var errSkip = errors.New("event skipped")

// dispatch hands ev to the injector according to its kind.
func (p *Player) dispatch(ev model.Event) error {
	if !ev.Complete() {
		return errSkip
	}
	switch ev.Kind {
	case model.KindKeyDown:
		return p.injector.KeyDown(*ev.Key)
	case model.KindKeyUp:
		return p.injector.KeyUp(*ev.Key)
	case model.KindMouseMove:
		return p.injector.MoveTo(*ev.X, *ev.Y)
	case model.KindMouseDown:
		return p.injector.ButtonDown(*ev.Button, *ev.X, *ev.Y)
	case model.KindMouseUp:
		return p.injector.ButtonUp(*ev.Button, *ev.X, *ev.Y)
	case model.KindScroll:
		return p.injector.Scroll(valueOr(ev.DX), valueOr(ev.DY), *ev.X, *ev.Y)
	}
	return errSkip
}

func valueOr(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
