package search

import (
	"context"

	"github.com/rs/zerolog"

	"issuetracker/api/internal/store"
)

// Service is the indexing facade used by the ingestion pipeline and the query
// surface. Every write is fire-and-forget: a down search engine never blocks
// or fails issue processing.
type Service struct {
	meili *Meili
	log   zerolog.Logger
}

// NewService creates a search service. meili may be nil when search is not
// configured; every method then degrades to a no-op or an empty response.
func NewService(meili *Meili, log zerolog.Logger) *Service {
	return &Service{meili: meili, log: log}
}

// Healthy reports whether the search engine is reachable.
func (s *Service) Healthy() bool {
	return s != nil && s.meili != nil && s.meili.Healthy()
}

// Search runs a full-text query, returning an empty response when the engine
// is down.
func (s *Service) Search(q Query) Response {
	if !s.Healthy() {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.meili.Search(q)
	if err != nil {
		s.log.Warn().Err(err).Msg("search query failed")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	if results == nil {
		results = []Result{}
	}
	return Response{Results: results, Total: total, Query: q.Text}
}

// IndexIssue indexes an issue (fire-and-forget).
func (s *Service) IndexIssue(issue store.Issue) {
	if !s.Healthy() {
		return
	}
	rec := RecordFromIssue(issue)
	go func() {
		if err := s.meili.IndexIssue(rec); err != nil {
			s.log.Warn().Err(err).Str("issue", rec.ID).Msg("failed to index issue")
		}
	}()
}

// DeleteIssue removes an issue from the index (fire-and-forget).
func (s *Service) DeleteIssue(id string) {
	if !s.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteIssue(id); err != nil {
			s.log.Warn().Err(err).Str("issue", id).Msg("failed to delete issue from index")
		}
	}()
}

// Reindex bulk-loads issues from the durable store into the index. Called at
// worker startup so the index catches up after downtime.
func (s *Service) Reindex(ctx context.Context, st *store.Store) {
	if !s.Healthy() || st == nil || !st.Available() {
		return
	}
	issues, err := st.AllIssues(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("reindex load failed")
		return
	}
	recs := make([]IssueRecord, 0, len(issues))
	for _, issue := range issues {
		recs = append(recs, RecordFromIssue(issue))
	}
	if err := s.meili.IndexIssues(recs); err != nil {
		s.log.Warn().Err(err).Msg("reindex failed")
		return
	}
	s.log.Info().Int("count", len(recs)).Msg("reindexed issues")
}

// Close stops the health monitor.
func (s *Service) Close() {
	if s != nil && s.meili != nil {
		s.meili.Close()
	}
}
