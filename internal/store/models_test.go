package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"open", "in-progress", "resolved", "closed"} {
		status, err := ParseStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(status))
	}

	_, err := ParseStatus("reopened")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
	_, err = ParseStatus("Open")
	assert.Error(t, err, "enum values are case sensitive")
}

func TestParsePriority(t *testing.T) {
	for _, valid := range []string{"low", "medium", "high", "critical"} {
		priority, err := ParsePriority(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(priority))
	}

	_, err := ParsePriority("urgent")
	assert.Error(t, err)
}

func TestParseIssueType(t *testing.T) {
	for _, valid := range []string{"bug", "feature", "task", "enhancement"} {
		typ, err := ParseIssueType(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(typ))
	}

	_, err := ParseIssueType("epic")
	assert.Error(t, err)
}

func TestParseBacklogCategory(t *testing.T) {
	for _, valid := range []string{"feature-request", "suggestions", "improvement", "must-have", "critical"} {
		category, err := ParseBacklogCategory(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(category))
	}

	_, err := ParseBacklogCategory("nice-to-have")
	assert.Error(t, err)
}

func TestIssueJSONShape(t *testing.T) {
	resolved := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issue := Issue{
		ID:         "abc",
		Title:      "t",
		Status:     StatusResolved,
		Priority:   PriorityHigh,
		Type:       TypeBug,
		ReporterID: "user-1",
		Tags:       []string{},
		ResolvedAt: &resolved,
	}

	payload, err := json.Marshal(issue)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(payload, &doc))

	assert.Equal(t, "user-1", doc["reporterId"])
	assert.Contains(t, doc, "resolvedAt")
	assert.NotContains(t, doc, "assigneeId", "empty assignee is omitted")
	assert.Contains(t, doc, "tags", "tags serialize even when empty")
}

func TestIssueDocRoundTripKeys(t *testing.T) {
	doc := issueDoc(Issue{
		Title:      "t",
		Status:     StatusOpen,
		Priority:   PriorityMedium,
		Type:       TypeBug,
		ReporterID: "user-1",
		AssigneeID: "user-2",
		Tags:       []string{"ui"},
	})

	assert.Equal(t, "user-1", doc["reporterId"])
	assert.Equal(t, "user-2", doc["assigneeId"])
	assert.NotContains(t, doc, "reporter_id", "document keys are camelCase")
}

func TestFieldKeyMapping(t *testing.T) {
	assert.Equal(t, "assigneeId", fieldKey("assignee_id"))
	assert.Equal(t, "resolvedAt", fieldKey("resolved_at"))
	assert.Equal(t, "lastLogin", fieldKey("last_login"))
	assert.Equal(t, "status", fieldKey("status"), "single-word fields pass through")
}
