// Package store is the durable store adapter: CRUD for issues, backlog items,
// comments, users, and notifications over a document database, with
// server-assigned timestamps and automatic activity logging on issue writes.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"issuetracker/api/internal/docstore"
)

var (
	// ErrUnavailable means the backing document store could not serve the
	// call. The underlying transport error is logged, not returned.
	ErrUnavailable = errors.New("store: backend unavailable")
	// ErrNotFound means the addressed record does not exist.
	ErrNotFound = errors.New("store: record not found")
)

const (
	issuesCollection        = "issues"
	backlogCollection       = "backlog"
	usersCollection         = "users"
	notificationsCollection = "notifications"

	defaultListLimit = 100
)

type Store struct {
	client docstore.Client
	log    zerolog.Logger
}

// New creates a store adapter. client may be nil when the document store was
// unreachable at startup; every operation then reports ErrUnavailable, keeping
// the rest of the process alive in degraded mode.
func New(client docstore.Client, log zerolog.Logger) *Store {
	return &Store{client: client, log: log}
}

func (s *Store) Available() bool {
	return s.client != nil
}

// CreateIssue stamps creation timestamps, inserts the issue, and appends a
// "created" activity attributed to the reporter. The generated id is set on
// issue and returned.
func (s *Store) CreateIssue(ctx context.Context, issue *Issue) (string, error) {
	if !s.Available() {
		s.log.Warn().Msg("store unavailable, cannot create issue")
		return "", ErrUnavailable
	}

	now := time.Now()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	id, err := s.client.Add(ctx, issuesCollection, issueDoc(*issue))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create issue")
		return "", ErrUnavailable
	}
	issue.ID = id

	s.appendActivity(ctx, id, ActivityCreated, issue.ReporterID, nil)
	return id, nil
}

// GetIssue returns (nil, nil) when the issue does not exist.
func (s *Store) GetIssue(ctx context.Context, id string) (*Issue, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	data, err := s.client.Get(ctx, issuesCollection, id)
	if err != nil {
		s.log.Error().Err(err).Str("issue", id).Msg("failed to get issue")
		return nil, ErrUnavailable
	}
	if data == nil {
		return nil, nil
	}
	issue, err := issueFromDoc(id, data)
	if err != nil {
		s.log.Error().Err(err).Str("issue", id).Msg("malformed issue document")
		return nil, nil
	}
	return &issue, nil
}

// UpdateIssue applies changes (keyed by model field name, e.g. "status",
// "assignee_id") to the stored issue and appends one activity summarizing the
// diff. Fields whose new value equals the stored value are dropped; if nothing
// remains the call is a successful no-op with no write and no activity.
//
// The read-compare-write sequence is not serialized against concurrent
// updaters; two racing updates can interleave. The activity log is an additive
// audit trail, so the resulting duplicate or stale diff entries are tolerated.
func (s *Store) UpdateIssue(ctx context.Context, id string, changes map[string]any, userID string) error {
	if !s.Available() {
		s.log.Warn().Msg("store unavailable, cannot update issue")
		return ErrUnavailable
	}

	current, err := s.client.Get(ctx, issuesCollection, id)
	if err != nil {
		s.log.Error().Err(err).Str("issue", id).Msg("failed to load issue for update")
		return ErrUnavailable
	}
	if current == nil {
		return ErrNotFound
	}

	update := make(map[string]any)
	diff := make([]FieldChange, 0, len(changes))
	for field, rawValue := range changes {
		value, err := coerceIssueField(field, rawValue)
		if err != nil {
			return err
		}
		key := fieldKey(field)
		oldStr, oldSet := stringify(current[key])
		newStr, newSet := stringify(value)
		if oldSet == newSet && oldStr == newStr {
			continue
		}
		update[key] = value
		change := FieldChange{Field: field}
		if oldSet {
			change.OldValue = &oldStr
		}
		if newSet {
			change.NewValue = &newStr
		}
		diff = append(diff, change)
	}

	if len(update) == 0 {
		return nil
	}

	now := time.Now()
	update["updatedAt"] = now
	if status, changed := update["status"]; changed {
		if status == string(StatusResolved) {
			update["resolvedAt"] = now
		} else if current["status"] == string(StatusResolved) {
			update["resolvedAt"] = nil
		}
	}

	if err := s.client.Update(ctx, issuesCollection, id, update); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		s.log.Error().Err(err).Str("issue", id).Msg("failed to update issue")
		return ErrUnavailable
	}

	activityType := ActivityUpdated
	for _, change := range diff {
		if change.Field == "status" {
			activityType = ActivityStatusChanged
			break
		}
	}
	s.appendActivity(ctx, id, activityType, userID, diff)
	return nil
}

// ListIssues returns issues matching every set filter, newest first.
func (s *Store) ListIssues(ctx context.Context, filter IssueFilter, limit int) ([]Issue, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := docstore.Query{OrderBy: "createdAt", Descending: true, Limit: limit}
	if filter.Status != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "status", Value: string(filter.Status)})
	}
	if filter.Priority != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "priority", Value: string(filter.Priority)})
	}
	if filter.Type != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "type", Value: string(filter.Type)})
	}
	if filter.AssigneeID != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "assigneeId", Value: filter.AssigneeID})
	}
	if filter.ReporterID != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "reporterId", Value: filter.ReporterID})
	}

	return s.queryIssues(ctx, q)
}

// AllIssues returns every issue newest first, without the list cap. Bulk
// readers like search reindexing use it instead of ListIssues.
func (s *Store) AllIssues(ctx context.Context) ([]Issue, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	return s.queryIssues(ctx, docstore.Query{OrderBy: "createdAt", Descending: true})
}

func (s *Store) queryIssues(ctx context.Context, q docstore.Query) ([]Issue, error) {
	snapshots, err := s.client.Query(ctx, issuesCollection, q)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list issues")
		return nil, ErrUnavailable
	}

	issues := make([]Issue, 0, len(snapshots))
	for _, snap := range snapshots {
		issue, err := issueFromDoc(snap.ID, snap.Data)
		if err != nil {
			s.log.Error().Err(err).Str("issue", snap.ID).Msg("skipping malformed issue document")
			continue
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// DeleteIssue removes the issue together with its comments and activities.
// Children go first so the store never retains orphans.
func (s *Store) DeleteIssue(ctx context.Context, id string) error {
	if !s.Available() {
		s.log.Warn().Msg("store unavailable, cannot delete issue")
		return ErrUnavailable
	}

	for _, sub := range []string{"comments", "activities"} {
		path := issuesCollection + "/" + id + "/" + sub
		snapshots, err := s.client.Query(ctx, path, docstore.Query{})
		if err != nil {
			s.log.Error().Err(err).Str("issue", id).Msg("failed to list issue children for delete")
			return ErrUnavailable
		}
		for _, snap := range snapshots {
			if err := s.client.Delete(ctx, path, snap.ID); err != nil {
				s.log.Error().Err(err).Str("issue", id).Msg("failed to delete issue child")
				return ErrUnavailable
			}
		}
	}

	if err := s.client.Delete(ctx, issuesCollection, id); err != nil {
		s.log.Error().Err(err).Str("issue", id).Msg("failed to delete issue")
		return ErrUnavailable
	}
	return nil
}

// CreateComment inserts a comment as a child of the issue and appends a
// "commented" activity. The parent issue's updatedAt is left untouched.
func (s *Store) CreateComment(ctx context.Context, issueID string, comment *Comment) (string, error) {
	if !s.Available() {
		s.log.Warn().Msg("store unavailable, cannot create comment")
		return "", ErrUnavailable
	}

	now := time.Now()
	comment.IssueID = issueID
	comment.CreatedAt = now
	comment.UpdatedAt = now

	id, err := s.client.Add(ctx, issuesCollection+"/"+issueID+"/comments", commentDoc(*comment))
	if err != nil {
		s.log.Error().Err(err).Str("issue", issueID).Msg("failed to create comment")
		return "", ErrUnavailable
	}
	comment.ID = id

	s.appendActivity(ctx, issueID, ActivityCommented, comment.AuthorID, nil)
	return id, nil
}

// GetComments returns the issue's comments in conversation order, oldest
// first.
func (s *Store) GetComments(ctx context.Context, issueID string) ([]Comment, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	snapshots, err := s.client.Query(ctx, issuesCollection+"/"+issueID+"/comments", docstore.Query{OrderBy: "createdAt"})
	if err != nil {
		s.log.Error().Err(err).Str("issue", issueID).Msg("failed to get comments")
		return nil, ErrUnavailable
	}
	comments := make([]Comment, 0, len(snapshots))
	for _, snap := range snapshots {
		comments = append(comments, commentFromDoc(snap.ID, snap.Data))
	}
	return comments, nil
}

// GetActivities returns the issue's audit trail, newest first.
func (s *Store) GetActivities(ctx context.Context, issueID string) ([]Activity, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	snapshots, err := s.client.Query(ctx, issuesCollection+"/"+issueID+"/activities", docstore.Query{OrderBy: "createdAt", Descending: true})
	if err != nil {
		s.log.Error().Err(err).Str("issue", issueID).Msg("failed to get activities")
		return nil, ErrUnavailable
	}
	activities := make([]Activity, 0, len(snapshots))
	for _, snap := range snapshots {
		activities = append(activities, activityFromDoc(snap.ID, snap.Data))
	}
	return activities, nil
}

func (s *Store) appendActivity(ctx context.Context, issueID string, typ ActivityType, userID string, changes []FieldChange) {
	activity := Activity{
		Type:      typ,
		UserID:    userID,
		Changes:   changes,
		CreatedAt: time.Now(),
	}
	if activity.Changes == nil {
		activity.Changes = []FieldChange{}
	}
	if _, err := s.client.Add(ctx, issuesCollection+"/"+issueID+"/activities", activityDoc(activity)); err != nil {
		s.log.Error().Err(err).Str("issue", issueID).Msg("failed to append activity")
	}
}

// CreateBacklog stamps timestamps and inserts the backlog item. Unlike issue
// creation, no activity is logged.
func (s *Store) CreateBacklog(ctx context.Context, item *Backlog) (string, error) {
	if !s.Available() {
		s.log.Warn().Msg("store unavailable, cannot create backlog item")
		return "", ErrUnavailable
	}

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	id, err := s.client.Add(ctx, backlogCollection, backlogDoc(*item))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create backlog item")
		return "", ErrUnavailable
	}
	item.ID = id
	return id, nil
}

// GetBacklog returns (nil, nil) when the item does not exist.
func (s *Store) GetBacklog(ctx context.Context, id string) (*Backlog, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	data, err := s.client.Get(ctx, backlogCollection, id)
	if err != nil {
		s.log.Error().Err(err).Str("backlog", id).Msg("failed to get backlog item")
		return nil, ErrUnavailable
	}
	if data == nil {
		return nil, nil
	}
	item, err := backlogFromDoc(id, data)
	if err != nil {
		s.log.Error().Err(err).Str("backlog", id).Msg("malformed backlog document")
		return nil, nil
	}
	return &item, nil
}

// UpdateBacklog mirrors UpdateIssue's no-op filtering but logs no activity.
func (s *Store) UpdateBacklog(ctx context.Context, id string, changes map[string]any, userID string) error {
	if !s.Available() {
		s.log.Warn().Msg("store unavailable, cannot update backlog item")
		return ErrUnavailable
	}

	current, err := s.client.Get(ctx, backlogCollection, id)
	if err != nil {
		s.log.Error().Err(err).Str("backlog", id).Msg("failed to load backlog item for update")
		return ErrUnavailable
	}
	if current == nil {
		return ErrNotFound
	}

	update := make(map[string]any)
	for field, rawValue := range changes {
		value, err := coerceBacklogField(field, rawValue)
		if err != nil {
			return err
		}
		key := fieldKey(field)
		oldStr, oldSet := stringify(current[key])
		newStr, newSet := stringify(value)
		if oldSet == newSet && oldStr == newStr {
			continue
		}
		update[key] = value
	}

	if len(update) == 0 {
		return nil
	}
	update["updatedAt"] = time.Now()

	if err := s.client.Update(ctx, backlogCollection, id, update); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		s.log.Error().Err(err).Str("backlog", id).Msg("failed to update backlog item")
		return ErrUnavailable
	}
	return nil
}

// ListBacklog returns backlog items matching every set filter, newest first.
func (s *Store) ListBacklog(ctx context.Context, filter BacklogFilter, limit int) ([]Backlog, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := docstore.Query{OrderBy: "createdAt", Descending: true, Limit: limit}
	if filter.Category != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "category", Value: string(filter.Category)})
	}
	if filter.AssigneeID != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "assigneeId", Value: filter.AssigneeID})
	}
	if filter.ReporterID != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "reporterId", Value: filter.ReporterID})
	}

	snapshots, err := s.client.Query(ctx, backlogCollection, q)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list backlog items")
		return nil, ErrUnavailable
	}

	items := make([]Backlog, 0, len(snapshots))
	for _, snap := range snapshots {
		item, err := backlogFromDoc(snap.ID, snap.Data)
		if err != nil {
			s.log.Error().Err(err).Str("backlog", snap.ID).Msg("skipping malformed backlog document")
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Store) DeleteBacklog(ctx context.Context, id string) error {
	if !s.Available() {
		s.log.Warn().Msg("store unavailable, cannot delete backlog item")
		return ErrUnavailable
	}
	if err := s.client.Delete(ctx, backlogCollection, id); err != nil {
		s.log.Error().Err(err).Str("backlog", id).Msg("failed to delete backlog item")
		return ErrUnavailable
	}
	return nil
}

// CreateUser writes a user document keyed by uid.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if !s.Available() {
		s.log.Warn().Msg("store unavailable, cannot create user")
		return ErrUnavailable
	}
	if user.Role == "" {
		user.Role = RoleViewer
	}
	user.CreatedAt = time.Now()
	if err := s.client.Set(ctx, usersCollection, user.UID, userDoc(*user)); err != nil {
		s.log.Error().Err(err).Str("user", user.UID).Msg("failed to create user")
		return ErrUnavailable
	}
	return nil
}

// GetUser returns (nil, nil) when the user does not exist.
func (s *Store) GetUser(ctx context.Context, uid string) (*User, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	data, err := s.client.Get(ctx, usersCollection, uid)
	if err != nil {
		s.log.Error().Err(err).Str("user", uid).Msg("failed to get user")
		return nil, ErrUnavailable
	}
	if data == nil {
		return nil, nil
	}
	user, err := userFromDoc(uid, data)
	if err != nil {
		s.log.Error().Err(err).Str("user", uid).Msg("malformed user document")
		return nil, nil
	}
	return &user, nil
}

// UpdateUser patches the given user fields. StampLastLogin without an explicit
// LastLogin value means "set lastLogin to now".
func (s *Store) UpdateUser(ctx context.Context, uid string, update UserUpdate) error {
	if !s.Available() {
		s.log.Warn().Msg("store unavailable, cannot update user")
		return ErrUnavailable
	}

	fields := make(map[string]any)
	if update.DisplayName != nil {
		fields["displayName"] = *update.DisplayName
	}
	if update.PhotoURL != nil {
		fields["photoURL"] = *update.PhotoURL
	}
	if update.Role != nil {
		fields["role"] = string(*update.Role)
	}
	if update.LastLogin != nil {
		fields["lastLogin"] = *update.LastLogin
	} else if update.StampLastLogin {
		fields["lastLogin"] = time.Now()
	}
	if len(fields) == 0 {
		return nil
	}

	if err := s.client.Update(ctx, usersCollection, uid, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		s.log.Error().Err(err).Str("user", uid).Msg("failed to update user")
		return ErrUnavailable
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	snapshots, err := s.client.Query(ctx, usersCollection, docstore.Query{})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list users")
		return nil, ErrUnavailable
	}
	users := make([]User, 0, len(snapshots))
	for _, snap := range snapshots {
		user, err := userFromDoc(snap.ID, snap.Data)
		if err != nil {
			s.log.Error().Err(err).Str("user", snap.ID).Msg("skipping malformed user document")
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// EnsureUser returns the existing user or creates one with the given role.
// First reference by an unknown actor id auto-provisions the account; users
// are never auto-deleted.
func (s *Store) EnsureUser(ctx context.Context, uid, email string, role Role) (*User, error) {
	user, err := s.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	created := &User{UID: uid, Email: email, Role: role}
	if err := s.CreateUser(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// CreateNotification inserts a notification stamped with the current time.
func (s *Store) CreateNotification(ctx context.Context, n *Notification) (string, error) {
	if !s.Available() {
		s.log.Warn().Msg("store unavailable, cannot create notification")
		return "", ErrUnavailable
	}
	n.CreatedAt = time.Now()
	id, err := s.client.Add(ctx, notificationsCollection, notificationDoc(*n))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create notification")
		return "", ErrUnavailable
	}
	n.ID = id
	return id, nil
}

// GetNotifications returns a user's notifications, newest first.
func (s *Store) GetNotifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	q := docstore.Query{
		Filters:    []docstore.Filter{{Field: "userId", Value: userID}},
		OrderBy:    "createdAt",
		Descending: true,
	}
	if unreadOnly {
		q.Filters = append(q.Filters, docstore.Filter{Field: "read", Value: false})
	}
	snapshots, err := s.client.Query(ctx, notificationsCollection, q)
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to get notifications")
		return nil, ErrUnavailable
	}
	notifications := make([]Notification, 0, len(snapshots))
	for _, snap := range snapshots {
		notifications = append(notifications, notificationFromDoc(snap.ID, snap.Data))
	}
	return notifications, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	if !s.Available() {
		s.log.Warn().Msg("store unavailable, cannot mark notification read")
		return ErrUnavailable
	}
	if err := s.client.Update(ctx, notificationsCollection, id, map[string]any{"read": true}); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		s.log.Error().Err(err).Str("notification", id).Msg("failed to mark notification read")
		return ErrUnavailable
	}
	return nil
}

// coerceIssueField validates a change value and converts it to its storable
// form. Unknown enum values are a caller contract violation and propagate as
// errors instead of being written through.
func coerceIssueField(field string, value any) (any, error) {
	switch field {
	case "status":
		status, err := ParseStatus(enumString(value))
		if err != nil {
			return nil, err
		}
		return string(status), nil
	case "priority":
		priority, err := ParsePriority(enumString(value))
		if err != nil {
			return nil, err
		}
		return string(priority), nil
	case "type":
		typ, err := ParseIssueType(enumString(value))
		if err != nil {
			return nil, err
		}
		return string(typ), nil
	}
	return plainFieldValue(field, value)
}

func coerceBacklogField(field string, value any) (any, error) {
	if field == "category" {
		category, err := ParseBacklogCategory(enumString(value))
		if err != nil {
			return nil, err
		}
		return string(category), nil
	}
	if field == "completed_at" {
		switch t := value.(type) {
		case nil:
			return nil, nil
		case time.Time:
			return t, nil
		}
		return nil, fmt.Errorf("field completed_at requires a time value, got %T", value)
	}
	return plainFieldValue(field, value)
}

func plainFieldValue(field string, value any) (any, error) {
	switch field {
	case "title", "description", "assignee_id", "reporter_id":
		switch v := value.(type) {
		case nil:
			return nil, nil
		case string:
			return v, nil
		}
		return nil, fmt.Errorf("field %s requires a string value, got %T", field, value)
	case "tags":
		switch v := value.(type) {
		case nil:
			return []string{}, nil
		case []string:
			return v, nil
		}
		return nil, fmt.Errorf("field tags requires a string list, got %T", value)
	}
	return nil, fmt.Errorf("field %s is not updatable", field)
}

func enumString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case Status:
		return string(v)
	case Priority:
		return string(v)
	case IssueType:
		return string(v)
	case BacklogCategory:
		return string(v)
	}
	return fmt.Sprintf("%v", value)
}
