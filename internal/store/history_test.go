package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *HistoryStore {
	h, err := NewHistoryStore(filepath.Join(t.TempDir(), "journal", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func sampleRun(id string, started time.Time) *Run {
	return &Run{
		ID:         id,
		TargetURL:  "http://localhost:8001",
		StartedAt:  started,
		FinishedAt: started.Add(20 * time.Second),
		Status:     RunWarnings,
		EntryCount: 0,
		Steps: []Step{
			{Index: 1, Name: "initial_view", Screenshot: "test_screenshots/01_initial_view.png", Outcome: OutcomeOK, At: started},
			{Index: 7, Name: "history_with_dream", Outcome: OutcomeWarn, Detail: "no dream entries found", At: started.Add(10 * time.Second)},
			{Index: 8, Name: "dream_selected", Outcome: OutcomeSkip, At: started.Add(10 * time.Second)},
		},
	}
}

func TestHistoryStore_SaveAndGetRun(t *testing.T) {
	h := newTestStore(t)
	started := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	require.NoError(t, h.SaveRun(sampleRun("run-1", started)))

	got, err := h.GetRun("run-1")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8001", got.TargetURL)
	assert.Equal(t, RunWarnings, got.Status)
	assert.True(t, got.StartedAt.Equal(started))
	require.Len(t, got.Steps, 3)
	assert.Equal(t, 1, got.Steps[0].Index)
	assert.Equal(t, OutcomeWarn, got.Steps[1].Outcome)
	assert.Equal(t, "no dream entries found", got.Steps[1].Detail)
	assert.Equal(t, 1, got.Warnings())
}

func TestHistoryStore_DuplicateRunRollsBack(t *testing.T) {
	h := newTestStore(t)
	started := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	require.NoError(t, h.SaveRun(sampleRun("dup", started)))
	require.Error(t, h.SaveRun(sampleRun("dup", started)))

	got, err := h.GetRun("dup")
	require.NoError(t, err)
	assert.Len(t, got.Steps, 3, "failed insert must not leave extra steps")
}

func TestHistoryStore_RecentRuns(t *testing.T) {
	h := newTestStore(t)
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	require.NoError(t, h.SaveRun(sampleRun("a", base)))
	require.NoError(t, h.SaveRun(sampleRun("b", base.Add(time.Hour))))
	require.NoError(t, h.SaveRun(sampleRun("c", base.Add(500*time.Millisecond))))

	runs, err := h.RecentRuns("http://localhost:8001", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, "c", runs[1].ID)
	assert.Empty(t, runs[0].Steps)
}

func TestHistoryStore_GetRunMissing(t *testing.T) {
	h := newTestStore(t)
	_, err := h.GetRun("nope")
	require.Error(t, err)
}

func TestHistoryStore_LastRun(t *testing.T) {
	h := newTestStore(t)

	last, err := h.LastRun("http://localhost:8001")
	require.NoError(t, err)
	assert.Nil(t, last)

	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	require.NoError(t, h.SaveRun(sampleRun("old", base)))
	require.NoError(t, h.SaveRun(sampleRun("new", base.Add(time.Minute))))

	other := sampleRun("elsewhere", base.Add(time.Hour))
	other.TargetURL = "http://127.0.0.1:3000"
	require.NoError(t, h.SaveRun(other))

	last, err = h.LastRun("http://localhost:8001")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "new", last.ID)
	require.Len(t, last.Steps, 3)
	assert.Equal(t, 1, last.Warnings())
}
