package history_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/macrorec-project/macrorec/internal/history"
	"github.com/macrorec-project/macrorec/pkg/errclass"
	"github.com/macrorec-project/macrorec/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLog(t *testing.T) *history.Log {
	t.Helper()
	return history.New(filepath.Join(t.TempDir(), "state", "history.jsonl"))
}

func TestLog_ReadMissingFile(t *testing.T) {
	records, err := newLog(t).Read()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLog_AppendAndChain(t *testing.T) {
	log := newLog(t)
	session := history.NewSessionID()

	require.NoError(t, log.Append(model.HistoryRecordStart, session, 0, nil))
	require.NoError(t, log.Append(model.HistoryRecordStop, session, 12, nil))
	require.NoError(t, log.Append(model.HistorySave, "", 12, map[string]any{"path": "macro.json"}))

	records, err := log.Read()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, model.HashValue(""), records[0].PrevHash)
	assert.Equal(t, records[0].RecordHash, records[1].PrevHash)
	assert.Equal(t, records[1].RecordHash, records[2].PrevHash)
	assert.Equal(t, session, records[1].SessionID)
	assert.Equal(t, 12, records[1].EventCount)
	assert.Equal(t, "macro.json", records[2].Details["path"])

	n, err := log.Verify()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLog_VerifyDetectsTampering(t *testing.T) {
	log := newLog(t)
	require.NoError(t, log.Append(model.HistoryPlayStart, "s1", 4, nil))
	require.NoError(t, log.Append(model.HistoryPlayFinish, "s1", 4, map[string]any{"cancelled": false}))

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"event_count":4`, `"event_count":5`, 1)
	require.NoError(t, os.WriteFile(log.Path(), []byte(tampered), 0644))

	n, err := log.Verify()
	assert.ErrorIs(t, err, errclass.ErrHistoryBroken)
	assert.Equal(t, 0, n)
}

func TestLog_MalformedLine(t *testing.T) {
	log := newLog(t)
	require.NoError(t, log.Append(model.HistoryLoad, "", 1, nil))

	f, err := os.OpenFile(log.Path(), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = log.Read()
	assert.ErrorIs(t, err, errclass.ErrHistoryBroken)
	assert.ErrorIs(t, log.Append(model.HistoryLoad, "", 1, nil), errclass.ErrHistoryBroken)
}

func TestLog_ConcurrentAppends(t *testing.T) {
	log := newLog(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, log.Append(model.HistoryRecordStop, "", i, nil))
		}(i)
	}
	wg.Wait()

	n, err := log.Verify()
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestNewSessionID(t *testing.T) {
	id := history.NewSessionID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, history.NewSessionID())
}
