package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAddAndGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Add(ctx, "issues", map[string]any{"title": "t"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	doc, err := m.Get(ctx, "issues", id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["title"] != "t" {
		t.Errorf("expected stored title, got %v", doc["title"])
	}
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	m := NewMemory()

	doc, err := m.Get(context.Background(), "issues", "nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc != nil {
		t.Errorf("expected nil for missing doc, got %v", doc)
	}
}

func TestUpdateNilValueClearsField(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Add(ctx, "issues", map[string]any{"status": "resolved", "resolvedAt": time.Now()})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := m.Update(ctx, "issues", id, map[string]any{"status": "open", "resolvedAt": nil}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	doc, err := m.Get(ctx, "issues", id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["status"] != "open" {
		t.Errorf("expected status updated, got %v", doc["status"])
	}
	if _, ok := doc["resolvedAt"]; ok {
		t.Error("expected resolvedAt cleared by nil value")
	}
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	m := NewMemory()

	err := m.Update(context.Background(), "issues", "nope", map[string]any{"status": "open"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryFilterOrderLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	base := time.Now()
	docs := []map[string]any{
		{"status": "open", "createdAt": base},
		{"status": "closed", "createdAt": base.Add(time.Second)},
		{"status": "open", "createdAt": base.Add(2 * time.Second)},
		{"status": "open", "createdAt": base.Add(3 * time.Second)},
	}
	for _, doc := range docs {
		if _, err := m.Add(ctx, "issues", doc); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	snaps, err := m.Query(ctx, "issues", Query{
		Filters:    []Filter{{Field: "status", Value: "open"}},
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      2,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	first := snaps[0].Data["createdAt"].(time.Time)
	second := snaps[1].Data["createdAt"].(time.Time)
	if !first.After(second) {
		t.Errorf("expected descending order, got %v before %v", first, second)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Add(ctx, "issues", map[string]any{"tags": []string{"a"}})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	doc, err := m.Get(ctx, "issues", id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	doc["tags"].([]string)[0] = "mutated"

	fresh, err := m.Get(ctx, "issues", id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fresh["tags"].([]string)[0] != "a" {
		t.Error("expected stored doc isolated from returned copies")
	}
}

func TestFailingModeErrorsEveryCall(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Add(ctx, "issues", map[string]any{"title": "t"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	m.SetFailing(true)
	if _, err := m.Add(ctx, "issues", map[string]any{}); err == nil {
		t.Error("expected Add to fail during outage")
	}
	if _, err := m.Get(ctx, "issues", id); err == nil {
		t.Error("expected Get to fail during outage")
	}
	if _, err := m.Query(ctx, "issues", Query{}); err == nil {
		t.Error("expected Query to fail during outage")
	}

	m.SetFailing(false)
	if _, err := m.Get(ctx, "issues", id); err != nil {
		t.Errorf("expected recovery, got %v", err)
	}
}

func TestSubcollectionPathsAreIndependent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	issueID, err := m.Add(ctx, "issues", map[string]any{"title": "t"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := m.Add(ctx, "issues/"+issueID+"/comments", map[string]any{"content": "c"}); err != nil {
		t.Fatalf("Add to subcollection failed: %v", err)
	}

	parents, err := m.Query(ctx, "issues", Query{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(parents) != 1 {
		t.Errorf("expected subcollection docs excluded from parent, got %d", len(parents))
	}

	children, err := m.Query(ctx, "issues/"+issueID+"/comments", Query{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(children) != 1 {
		t.Errorf("expected 1 comment, got %d", len(children))
	}
}
