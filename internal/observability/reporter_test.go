package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporter_Narration(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	assert.Equal(t, 1, r.Stage("Testing application display"))
	r.OK("Application loaded successfully")
	assert.Equal(t, 2, r.Stage("Testing navigation buttons"))
	r.Warn("Record button not found")
	r.Info("first entry: %q", "flying")
	r.Done("test_screenshots", 1)

	want := strings.Join([]string{
		"1. Testing application display...",
		"✓ Application loaded successfully",
		"",
		"2. Testing navigation buttons...",
		"⚠ Record button not found",
		`  first entry: "flying"`,
		"",
		"✅ Testing completed with 1 warning(s). Screenshots saved in test_screenshots/",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestReporter_CleanRunSummary(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)
	r.Done("shots", 0)
	assert.Contains(t, buf.String(), "✅ Testing completed! Screenshots saved in shots/")
	assert.NotContains(t, buf.String(), "\033[", "no colour escapes off a terminal")
}

func TestPrintBanner_PlainWriter(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "UI SMOKE WALKTHROUGH")
	assert.NotContains(t, buf.String(), "\033[")
}
