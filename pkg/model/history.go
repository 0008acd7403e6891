package model

import "time"

// HistoryEventType identifies the type of session history record.
type HistoryEventType string

const (
	HistoryRecordStart HistoryEventType = "record_start"
	HistoryRecordStop  HistoryEventType = "record_stop"
	HistoryPlayStart   HistoryEventType = "play_start"
	HistoryPlayFinish  HistoryEventType = "play_finish"
	HistorySave        HistoryEventType = "save"
	HistoryLoad        HistoryEventType = "load"
)

// HashValue is a SHA-256 hash stored as hex string.
type HashValue string

// HistoryRecord is a single line in the session history (JSONL format).
type HistoryRecord struct {
	Timestamp  time.Time        `json:"timestamp"`
	EventType  HistoryEventType `json:"event_type"`
	SessionID  string           `json:"session_id,omitempty"`
	EventCount int              `json:"event_count"`
	Details    map[string]any   `json:"details,omitempty"`
	PrevHash   HashValue        `json:"prev_hash"`
	RecordHash HashValue        `json:"record_hash"`
}
