package walkthrough

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rahul/dreamscope-smoke/internal/store"
)

func TestDreamPayload_EmbedsTimestamp(t *testing.T) {
	now := time.Date(2026, 10, 19, 7, 3, 1, 0, time.Local)
	got := DreamPayload(now)

	assert.True(t, strings.HasPrefix(got, "テストの夢 - 2026-10-19 07:03:01\n"))
	assert.Contains(t, got, "空を飛ぶ夢を見ました。")
	assert.NotEqual(t, got, DreamPayload(now.Add(time.Second)))
}

func TestArtifacts_Path(t *testing.T) {
	a := Artifacts{Dir: "test_screenshots"}
	assert.Equal(t, "test_screenshots/01_initial_view.png", a.Path(1, "initial_view"))
	assert.Equal(t, "test_screenshots/10_final_state.png", a.Path(10, "final_state"))
}

func TestArtifacts_EnsureIsIdempotent(t *testing.T) {
	a := Artifacts{Dir: t.TempDir() + "/nested/shots"}
	assert.NoError(t, a.Ensure())
	assert.NoError(t, a.Ensure())
}

func TestSummary(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	run := &store.Run{
		TargetURL:  "http://localhost:8001",
		StartedAt:  start,
		FinishedAt: start.Add(21*time.Second + 340*time.Millisecond),
		Status:     store.RunWarnings,
		Steps: []store.Step{
			{Index: 1, Name: "initial_view", Outcome: store.OutcomeOK},
			{Index: 7, Name: "history_with_dream", Outcome: store.OutcomeWarn, Detail: "no dream entries found"},
			{Name: "save_dream", Outcome: store.OutcomeWarn, Detail: "element not found"},
			{Index: 8, Name: "dream_selected", Outcome: store.OutcomeSkip},
		},
	}

	got := Summary(run, "test_screenshots")
	want := strings.Join([]string{
		"⚠️ DreamScope smoke warnings",
		"target: http://localhost:8001",
		"dream entries: 0",
		"duration: 21.3s",
		"- 07 history_with_dream: no dream entries found",
		"- save_dream: element not found",
		"screenshots: test_screenshots/",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestSummary_Failed(t *testing.T) {
	run := &store.Run{TargetURL: "http://localhost:8001", Status: store.RunFailed, Error: "initial page load: refused"}
	got := Summary(run, "shots")
	assert.True(t, strings.HasPrefix(got, "❌ DreamScope smoke failed"))
	assert.Contains(t, got, "error: initial page load: refused")
	assert.NotContains(t, got, "dream entries")
}
