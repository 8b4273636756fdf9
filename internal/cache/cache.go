// Package cache maintains a best-effort, TTL-bounded view of recently created
// issues in Redis. The durable store stays authoritative: entries expiring out
// of this cache is expected behavior, never an error.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"issuetracker/api/internal/store"
)

const (
	issueKeyPrefix  = "issuetracker:issue:"
	recentIssuesKey = "issuetracker:issues:recent"

	// DefaultTTL matches the one-hour recency window of the dashboard.
	DefaultTTL = 3600 * time.Second
)

type IssueCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// New connects to Redis at redisURL. ttl <= 0 selects DefaultTTL.
func New(redisURL string, ttl time.Duration, log zerolog.Logger) (*IssueCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, ttl, log), nil
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(client *redis.Client, ttl time.Duration, log zerolog.Logger) *IssueCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &IssueCache{client: client, ttl: ttl, log: log}
}

// Available reports whether the backing Redis is reachable right now.
func (c *IssueCache) Available() bool {
	if c == nil || c.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err() == nil
}

// StoreIssue writes the full issue as a keyed JSON record with a fresh TTL and
// registers its id in the recency index. The index is scored by negative
// creation timestamp so an ascending range walk yields newest first, and its
// own TTL is refreshed on every insert so it cannot expire while still
// receiving writes.
func (c *IssueCache) StoreIssue(ctx context.Context, issue store.Issue) error {
	if !c.Available() {
		return fmt.Errorf("cache unavailable")
	}

	payload, err := json.Marshal(issue)
	if err != nil {
		return fmt.Errorf("marshal issue: %w", err)
	}

	created := issue.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	score := -float64(created.UnixNano()) / float64(time.Second)

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, issueKeyPrefix+issue.ID, payload, c.ttl)
	pipe.ZAdd(ctx, recentIssuesKey, redis.Z{Score: score, Member: issue.ID})
	pipe.Expire(ctx, recentIssuesKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn().Err(err).Str("issue", issue.ID).Msg("failed to store issue in cache")
		return fmt.Errorf("store issue: %w", err)
	}
	return nil
}

// UpdateIssue is a full overwrite with TTL refresh; the cache has no
// partial-field update.
func (c *IssueCache) UpdateIssue(ctx context.Context, issue store.Issue) error {
	return c.StoreIssue(ctx, issue)
}

// GetIssue returns (nil, nil) when the record is missing, including after TTL
// expiry.
func (c *IssueCache) GetIssue(ctx context.Context, id string) (*store.Issue, error) {
	if !c.Available() {
		return nil, fmt.Errorf("cache unavailable")
	}

	payload, err := c.client.Get(ctx, issueKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		c.log.Warn().Err(err).Str("issue", id).Msg("failed to get issue from cache")
		return nil, fmt.Errorf("get issue: %w", err)
	}

	var issue store.Issue
	if err := json.Unmarshal(payload, &issue); err != nil {
		c.log.Warn().Err(err).Str("issue", id).Msg("malformed cached issue")
		return nil, nil
	}
	return &issue, nil
}

// ListRecentIssues walks the recency index newest-first and resolves each id.
// Ids whose keyed record already expired are skipped, so the result may be
// shorter than limit. Unreachable Redis yields an empty list.
func (c *IssueCache) ListRecentIssues(ctx context.Context, limit int) []store.Issue {
	if !c.Available() {
		return []store.Issue{}
	}
	if limit <= 0 {
		limit = 100
	}

	ids, err := c.client.ZRange(ctx, recentIssuesKey, 0, int64(limit-1)).Result()
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to read recent issue index")
		return []store.Issue{}
	}

	issues := make([]store.Issue, 0, len(ids))
	for _, id := range ids {
		issue, err := c.GetIssue(ctx, id)
		if err != nil || issue == nil {
			continue
		}
		issues = append(issues, *issue)
	}
	return issues
}

// DeleteIssue removes the keyed record. The recency index entry stays behind:
// there is no zrem in the client contract, the next ListRecentIssues skips the
// missing record, and the index entry expires within the TTL window anyway.
func (c *IssueCache) DeleteIssue(ctx context.Context, id string) error {
	if !c.Available() {
		return fmt.Errorf("cache unavailable")
	}
	if err := c.client.Del(ctx, issueKeyPrefix+id).Err(); err != nil {
		c.log.Warn().Err(err).Str("issue", id).Msg("failed to delete issue from cache")
		return fmt.Errorf("delete issue: %w", err)
	}
	return nil
}

func (c *IssueCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
