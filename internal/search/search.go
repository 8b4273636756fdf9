// Package search maintains a best-effort full-text index of issues. The
// durable store is authoritative; the index can lag or miss entries without
// affecting correctness.
package search

import (
	"time"

	"issuetracker/api/internal/store"
)

// IssueRecord is the data we index for an issue.
type IssueRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Type        string   `json:"type"`
	ReporterID  string   `json:"reporterId"`
	AssigneeID  string   `json:"assigneeId,omitempty"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"createdAt"`
}

// RecordFromIssue flattens an issue into its indexable form.
func RecordFromIssue(issue store.Issue) IssueRecord {
	return IssueRecord{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Status:      string(issue.Status),
		Priority:    string(issue.Priority),
		Type:        string(issue.Type),
		ReporterID:  issue.ReporterID,
		AssigneeID:  issue.AssigneeID,
		Tags:        issue.Tags,
		CreatedAt:   issue.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Result is a single search hit returned to the caller. Title and Snippet
// carry <mark> highlight tags when the engine produced them.
type Result struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Type     string `json:"type"`
}

// Query describes a search request.
type Query struct {
	Text     string
	Status   string // empty = all statuses
	Priority string
	Limit    int
	Offset   int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}
