package toolactivity

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/markstream/pkg/message"
)

func TestIconsAndLabels(t *testing.T) {
	tests := []struct {
		status message.ToolStatus
		icon   string
		label  string
	}{
		{message.ToolPending, "○", "Queued"},
		{message.ToolExecuting, "◐", "Running"},
		{message.ToolCompleted, "✓", "Done"},
		{message.ToolError, "✗", "Failed"},
		{message.ToolStatus("paused"), "·", "paused"},
		{message.ToolStatus(""), "·", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.icon, Icon(tt.status))
			assert.Equal(t, tt.label, Label(tt.status))
		})
	}
}

func TestExtract(t *testing.T) {
	records := []message.ToolCallRecord{
		{ID: "call_1", Name: "search", Status: message.ToolCompleted, Parameters: map[string]any{"q": "golang", "limit": 3}, Result: "3 results\nmore"},
		{ID: "call_2", Name: "fetch", Status: message.ToolError, RawParameters: json.RawMessage(`{"url":"https://x.example"}`), Error: "timeout"},
		{Name: "calc", Status: message.ToolExecuting, RawParameters: json.RawMessage(`{"expr":`)},
	}

	activities := Extract(records)
	require.Len(t, activities, 3)

	assert.Equal(t, "search(limit=3, q=golang)", activities[0].Summary)
	assert.Equal(t, "3 results …", activities[0].Preview)
	assert.Equal(t, "✓ Done search(limit=3, q=golang) → 3 results …", activities[0].Line())

	assert.Equal(t, "fetch(url=https://x.example)", activities[1].Summary)
	assert.Equal(t, "timeout", activities[1].Preview)
	assert.NoError(t, activities[1].Err)

	assert.Equal(t, "calc()", activities[2].Summary)
	assert.Error(t, activities[2].Err)
	assert.Equal(t, "◐", activities[2].Icon)
}

func TestExtractDoesNotMutate(t *testing.T) {
	records := []message.ToolCallRecord{{ID: "a", Name: "x", Status: message.ToolPending}}
	before := records[0]
	_ = Extract(records)
	assert.Equal(t, before, records[0])
}

func TestKeysAreStable(t *testing.T) {
	r := message.ToolCallRecord{ID: "call_1", Name: "search"}
	assert.Equal(t, Key(r, 0), Key(r, 5))

	anon := message.ToolCallRecord{Name: "search"}
	assert.Equal(t, Key(anon, 1), Key(anon, 1))
	assert.NotEqual(t, Key(anon, 1), Key(anon, 2))
}

func TestSummaryIsTruncated(t *testing.T) {
	long := strings.Repeat("x", 200)
	activities := Extract([]message.ToolCallRecord{{Name: "echo", Parameters: map[string]any{"text": long}}})
	require.Len(t, activities, 1)
	assert.True(t, strings.HasSuffix(activities[0].Summary, "…)"))
	assert.Less(t, len([]rune(activities[0].Summary)), 80)
}

func TestExtractEmpty(t *testing.T) {
	assert.Nil(t, Extract(nil))
}
