package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"issuetracker/api/internal/store"
)

func setupTestCache(t *testing.T) (*IssueCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	c, err := New("redis://"+s.Addr(), time.Hour, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create issue cache: %v", err)
	}
	return c, s
}

func testIssue(id string, createdAt time.Time) store.Issue {
	return store.Issue{
		ID:         id,
		Title:      "Test issue " + id,
		Status:     store.StatusOpen,
		Priority:   store.PriorityMedium,
		Type:       store.TypeBug,
		ReporterID: "user-1",
		Tags:       []string{},
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestStoreAndGetIssue(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	issue := testIssue("issue-1", time.Now())

	if err := c.StoreIssue(ctx, issue); err != nil {
		t.Fatalf("StoreIssue failed: %v", err)
	}

	got, err := c.GetIssue(ctx, "issue-1")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached issue, got nil")
	}
	if got.Title != issue.Title {
		t.Errorf("expected title %q, got %q", issue.Title, got.Title)
	}
	if got.Status != store.StatusOpen {
		t.Errorf("expected status open, got %s", got.Status)
	}
}

func TestGetMissingIssue(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	got, err := c.GetIssue(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing issue, got %+v", got)
	}
}

func TestGetIssueAfterExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()
	c, err := New("redis://"+s.Addr(), time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create issue cache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.StoreIssue(ctx, testIssue("issue-1", time.Now())); err != nil {
		t.Fatalf("StoreIssue failed: %v", err)
	}

	s.FastForward(2 * time.Second)

	got, err := c.GetIssue(ctx, "issue-1")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after expiry, got %+v", got)
	}
}

func TestListRecentIssuesNewestFirst(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Minute)
	for i, id := range []string{"old", "mid", "new"} {
		issue := testIssue(id, base.Add(time.Duration(i)*time.Second))
		if err := c.StoreIssue(ctx, issue); err != nil {
			t.Fatalf("StoreIssue %s failed: %v", id, err)
		}
	}

	issues := c.ListRecentIssues(ctx, 10)
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d", len(issues))
	}
	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if issues[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, issues[i].ID)
		}
	}
}

func TestListRecentIssuesSkipsExpiredRecords(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Minute)
	for i, id := range []string{"a", "b", "c"} {
		if err := c.StoreIssue(ctx, testIssue(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("StoreIssue %s failed: %v", id, err)
		}
	}

	// Expire the middle record only; its index entry stays behind.
	s.Del(issueKeyPrefix + "b")

	issues := c.ListRecentIssues(ctx, 10)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[0].ID != "c" || issues[1].ID != "a" {
		t.Errorf("expected [c a], got [%s %s]", issues[0].ID, issues[1].ID)
	}
}

func TestListRecentIssuesLimit(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Minute)
	for i, id := range []string{"a", "b", "c"} {
		if err := c.StoreIssue(ctx, testIssue(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("StoreIssue %s failed: %v", id, err)
		}
	}

	issues := c.ListRecentIssues(ctx, 2)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[0].ID != "c" {
		t.Errorf("expected newest issue c first, got %s", issues[0].ID)
	}
}

func TestDeleteIssueLeavesIndexEntry(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	if err := c.StoreIssue(ctx, testIssue("issue-1", time.Now())); err != nil {
		t.Fatalf("StoreIssue failed: %v", err)
	}

	if err := c.DeleteIssue(ctx, "issue-1"); err != nil {
		t.Fatalf("DeleteIssue failed: %v", err)
	}

	got, err := c.GetIssue(ctx, "issue-1")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}

	// The index entry is pruned lazily, not on delete.
	ids, err := s.ZMembers(recentIssuesKey)
	if err != nil {
		t.Fatalf("reading index: %v", err)
	}
	if len(ids) != 1 || ids[0] != "issue-1" {
		t.Errorf("expected index to still hold issue-1, got %v", ids)
	}

	// And the lazy path hides it from listings.
	if issues := c.ListRecentIssues(ctx, 10); len(issues) != 0 {
		t.Errorf("expected empty listing after delete, got %d issues", len(issues))
	}
}

func TestUpdateIssueRefreshesRecord(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	issue := testIssue("issue-1", time.Now())
	if err := c.StoreIssue(ctx, issue); err != nil {
		t.Fatalf("StoreIssue failed: %v", err)
	}

	issue.Status = store.StatusResolved
	if err := c.UpdateIssue(ctx, issue); err != nil {
		t.Fatalf("UpdateIssue failed: %v", err)
	}

	got, err := c.GetIssue(ctx, "issue-1")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got == nil || got.Status != store.StatusResolved {
		t.Errorf("expected resolved status after update, got %+v", got)
	}
}
