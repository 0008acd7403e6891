// Package history keeps an append-only, hash-chained JSONL log of session
// activity: recordings started and stopped, playbacks, saves and loads.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/macrorec-project/macrorec/pkg/errclass"
	"github.com/macrorec-project/macrorec/pkg/jsonutil"
	"github.com/macrorec-project/macrorec/pkg/model"
)

// Log appends history records to a JSONL file.
type Log struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// New returns a log writing to path. The file is created on first append.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.path
}

// NewSessionID returns a fresh identifier for a recording or playback session.
func NewSessionID() string {
	return uuid.NewString()
}

// Append adds one record, chaining it to the last record in the file.
func (l *Log) Append(eventType model.HistoryEventType, sessionID string, count int, details map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	defer unlockFile(file)

	prevHash, err := lastHash(file)
	if err != nil {
		return err
	}

	record := &model.HistoryRecord{
		Timestamp:  l.now().UTC(),
		EventType:  eventType,
		SessionID:  sessionID,
		EventCount: count,
		Details:    details,
		PrevHash:   prevHash,
	}
	if record.RecordHash, err = recordHash(record); err != nil {
		return err
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek history: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return file.Sync()
}

// Read returns every record in file order. A missing file yields no records.
func (l *Log) Read() ([]model.HistoryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	var records []model.HistoryRecord
	err = scan(file, func(line int, r model.HistoryRecord) error {
		records = append(records, r)
		return nil
	})
	return records, err
}

// Verify walks the chain and reports the number of valid records. The first
// malformed line, tampered record, or broken link fails with ErrHistoryBroken.
func (l *Log) Verify() (int, error) {
	records, err := l.Read()
	if err != nil {
		return 0, err
	}

	var prev model.HashValue
	for i, r := range records {
		if r.PrevHash != prev {
			return i, errclass.ErrHistoryBroken.WithMessagef("record %d: prev_hash does not match record %d", i+1, i)
		}
		want, err := recordHash(&r)
		if err != nil {
			return i, err
		}
		if r.RecordHash != want {
			return i, errclass.ErrHistoryBroken.WithMessagef("record %d: record_hash mismatch", i+1)
		}
		prev = r.RecordHash
	}
	return len(records), nil
}

func lastHash(file *os.File) (model.HashValue, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek history: %w", err)
	}
	var last model.HashValue
	err := scan(file, func(_ int, r model.HistoryRecord) error {
		last = r.RecordHash
		return nil
	})
	return last, err
}

func scan(r io.Reader, fn func(line int, rec model.HistoryRecord) error) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec model.HistoryRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return errclass.ErrHistoryBroken.WithMessagef("line %d: %v", line, err)
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan history: %w", err)
	}
	return nil
}

func recordHash(r *model.HistoryRecord) (model.HashValue, error) {
	unhashed := *r
	unhashed.RecordHash = ""
	sum, err := jsonutil.Digest(unhashed)
	if err != nil {
		return "", fmt.Errorf("hash history record: %w", err)
	}
	return model.HashValue(sum), nil
}
