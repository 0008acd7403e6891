package timeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/macrorec-project/macrorec/pkg/errclass"
	"github.com/macrorec-project/macrorec/pkg/fsutil"
	"github.com/macrorec-project/macrorec/pkg/model"
)

// record is the on-disk form of one event. The t/etype keys are accepted
// for files written by the earlier recorder.
type record struct {
	Timestamp *float64      `json:"timestamp"`
	T         *float64      `json:"t"`
	Kind      *model.Kind   `json:"kind"`
	EType     *model.Kind   `json:"etype"`
	Key       *string       `json:"key"`
	Button    *model.Button `json:"button"`
	X         *int          `json:"x"`
	Y         *int          `json:"y"`
	DX        *int          `json:"dx"`
	DY        *int          `json:"dy"`
}

func (r record) event(i int) (model.Event, error) {
	ts := r.Timestamp
	if ts == nil {
		ts = r.T
	}
	if ts == nil {
		return model.Event{}, errclass.ErrFormatInvalid.WithMessagef("record %d: missing timestamp", i)
	}
	kind := r.Kind
	if kind == nil {
		kind = r.EType
	}
	if kind == nil {
		return model.Event{}, errclass.ErrFormatInvalid.WithMessagef("record %d: missing kind", i)
	}
	return model.Event{
		Timestamp: *ts,
		Kind:      *kind,
		Key:       r.Key,
		Button:    r.Button,
		X:         r.X,
		Y:         r.Y,
		DX:        r.DX,
		DY:        r.DY,
	}, nil
}

// Encode writes events as an indented JSON array with null for absent fields.
// Events that Decode would reject fail with E_FORMAT_INVALID before anything
// is written.
func Encode(w io.Writer, events []model.Event) error {
	if err := Validate(events); err != nil {
		return err
	}
	if events == nil {
		events = []model.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write timeline: %w", err)
	}
	return nil
}

// Validate checks every event with model.Event.Validate and reports the first
// failure as E_FORMAT_INVALID.
func Validate(events []model.Event) error {
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			return errclass.ErrFormatInvalid.WithMessagef("event %d: %v", i, err)
		}
	}
	return nil
}

// Decode reads a JSON array of events. Any malformed record fails the
// whole decode; nothing is returned partially.
func Decode(r io.Reader) ([]model.Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read timeline: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errclass.ErrFormatInvalid.WithMessage("timeline must be a JSON array")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var recs []record
	if err := dec.Decode(&recs); err != nil {
		return nil, fmt.Errorf("%w: %w", errclass.ErrFormatInvalid.WithMessage("decode timeline"), err)
	}
	if dec.More() {
		return nil, errclass.ErrFormatInvalid.WithMessage("trailing data after timeline array")
	}

	events := make([]model.Event, 0, len(recs))
	for i, rec := range recs {
		ev, err := rec.event(i)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// SaveFile writes events to path atomically via a temp file and rename.
func SaveFile(path string, events []model.Event) error {
	var buf bytes.Buffer
	if err := Encode(&buf, events); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %w", errclass.ErrIO.WithMessagef("create directory for %s", path), err)
		}
	}
	if err := fsutil.AtomicWrite(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: %w", errclass.ErrIO.WithMessagef("save %s", path), err)
	}
	return nil
}

// LoadFile reads and decodes the timeline stored at path.
func LoadFile(path string) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errclass.ErrIO.WithMessagef("open %s", path), err)
	}
	defer f.Close()

	events, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return events, nil
}
