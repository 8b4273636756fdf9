package store

import (
	"fmt"
	"time"
)

// Document field names are camelCase, matching what the excluded web layer and
// the dashboard queries expect to find in the store.
func fieldKey(field string) string {
	switch field {
	case "reporter_id":
		return "reporterId"
	case "assignee_id":
		return "assigneeId"
	case "created_at":
		return "createdAt"
	case "updated_at":
		return "updatedAt"
	case "resolved_at":
		return "resolvedAt"
	case "completed_at":
		return "completedAt"
	case "author_id":
		return "authorId"
	case "user_id":
		return "userId"
	case "issue_id":
		return "issueId"
	case "display_name":
		return "displayName"
	case "photo_url":
		return "photoURL"
	case "last_login":
		return "lastLogin"
	}
	return field
}

func issueDoc(issue Issue) map[string]any {
	doc := map[string]any{
		"title":       issue.Title,
		"description": issue.Description,
		"status":      string(issue.Status),
		"priority":    string(issue.Priority),
		"type":        string(issue.Type),
		"reporterId":  issue.ReporterID,
		"tags":        issue.Tags,
		"attachments": attachmentDocs(issue.Attachments),
	}
	if issue.AssigneeID != "" {
		doc["assigneeId"] = issue.AssigneeID
	}
	if !issue.CreatedAt.IsZero() {
		doc["createdAt"] = issue.CreatedAt
	}
	if !issue.UpdatedAt.IsZero() {
		doc["updatedAt"] = issue.UpdatedAt
	}
	if issue.ResolvedAt != nil {
		doc["resolvedAt"] = *issue.ResolvedAt
	}
	return doc
}

func issueFromDoc(id string, data map[string]any) (Issue, error) {
	status, err := ParseStatus(docString(data, "status", string(StatusOpen)))
	if err != nil {
		return Issue{}, err
	}
	priority, err := ParsePriority(docString(data, "priority", string(PriorityMedium)))
	if err != nil {
		return Issue{}, err
	}
	typ, err := ParseIssueType(docString(data, "type", string(TypeTask)))
	if err != nil {
		return Issue{}, err
	}
	return Issue{
		ID:          id,
		Title:       docString(data, "title", ""),
		Description: docString(data, "description", ""),
		Status:      status,
		Priority:    priority,
		Type:        typ,
		ReporterID:  docString(data, "reporterId", ""),
		AssigneeID:  docString(data, "assigneeId", ""),
		Tags:        docStrings(data["tags"]),
		Attachments: attachmentsFromDoc(data["attachments"]),
		CreatedAt:   docTime(data["createdAt"]),
		UpdatedAt:   docTime(data["updatedAt"]),
		ResolvedAt:  docTimePtr(data["resolvedAt"]),
	}, nil
}

func backlogDoc(item Backlog) map[string]any {
	doc := map[string]any{
		"title":       item.Title,
		"description": item.Description,
		"category":    string(item.Category),
		"reporterId":  item.ReporterID,
		"tags":        item.Tags,
		"attachments": attachmentDocs(item.Attachments),
	}
	if item.AssigneeID != "" {
		doc["assigneeId"] = item.AssigneeID
	}
	if !item.CreatedAt.IsZero() {
		doc["createdAt"] = item.CreatedAt
	}
	if !item.UpdatedAt.IsZero() {
		doc["updatedAt"] = item.UpdatedAt
	}
	if item.CompletedAt != nil {
		doc["completedAt"] = *item.CompletedAt
	}
	return doc
}

func backlogFromDoc(id string, data map[string]any) (Backlog, error) {
	category, err := ParseBacklogCategory(docString(data, "category", string(CategoryFeatureRequest)))
	if err != nil {
		return Backlog{}, err
	}
	return Backlog{
		ID:          id,
		Title:       docString(data, "title", ""),
		Description: docString(data, "description", ""),
		Category:    category,
		ReporterID:  docString(data, "reporterId", ""),
		AssigneeID:  docString(data, "assigneeId", ""),
		Tags:        docStrings(data["tags"]),
		Attachments: attachmentsFromDoc(data["attachments"]),
		CreatedAt:   docTime(data["createdAt"]),
		UpdatedAt:   docTime(data["updatedAt"]),
		CompletedAt: docTimePtr(data["completedAt"]),
	}, nil
}

func commentDoc(comment Comment) map[string]any {
	doc := map[string]any{
		"issueId":  comment.IssueID,
		"authorId": comment.AuthorID,
		"content":  comment.Content,
	}
	if !comment.CreatedAt.IsZero() {
		doc["createdAt"] = comment.CreatedAt
	}
	if !comment.UpdatedAt.IsZero() {
		doc["updatedAt"] = comment.UpdatedAt
	}
	return doc
}

func commentFromDoc(id string, data map[string]any) Comment {
	return Comment{
		ID:        id,
		IssueID:   docString(data, "issueId", ""),
		AuthorID:  docString(data, "authorId", ""),
		Content:   docString(data, "content", ""),
		CreatedAt: docTime(data["createdAt"]),
		UpdatedAt: docTime(data["updatedAt"]),
	}
}

func activityDoc(activity Activity) map[string]any {
	changes := make([]map[string]any, 0, len(activity.Changes))
	for _, c := range activity.Changes {
		changes = append(changes, map[string]any{
			"field":    c.Field,
			"oldValue": stringValue(c.OldValue),
			"newValue": stringValue(c.NewValue),
		})
	}
	return map[string]any{
		"type":      string(activity.Type),
		"userId":    activity.UserID,
		"changes":   changes,
		"createdAt": activity.CreatedAt,
	}
}

func activityFromDoc(id string, data map[string]any) Activity {
	activity := Activity{
		ID:        id,
		Type:      ActivityType(docString(data, "type", string(ActivityUpdated))),
		UserID:    docString(data, "userId", ""),
		Changes:   []FieldChange{},
		CreatedAt: docTime(data["createdAt"]),
	}
	raw, ok := data["changes"].([]any)
	if !ok {
		if typed, typedOK := data["changes"].([]map[string]any); typedOK {
			for _, m := range typed {
				activity.Changes = append(activity.Changes, fieldChangeFromDoc(m))
			}
		}
		return activity
	}
	for _, entry := range raw {
		if m, mOK := entry.(map[string]any); mOK {
			activity.Changes = append(activity.Changes, fieldChangeFromDoc(m))
		}
	}
	return activity
}

func fieldChangeFromDoc(m map[string]any) FieldChange {
	change := FieldChange{Field: docString(m, "field", "")}
	if v, ok := m["oldValue"].(string); ok {
		change.OldValue = &v
	}
	if v, ok := m["newValue"].(string); ok {
		change.NewValue = &v
	}
	return change
}

func userDoc(user User) map[string]any {
	doc := map[string]any{
		"email": user.Email,
		"role":  string(user.Role),
	}
	if user.DisplayName != "" {
		doc["displayName"] = user.DisplayName
	}
	if user.PhotoURL != "" {
		doc["photoURL"] = user.PhotoURL
	}
	if !user.CreatedAt.IsZero() {
		doc["createdAt"] = user.CreatedAt
	}
	if user.LastLogin != nil {
		doc["lastLogin"] = *user.LastLogin
	}
	return doc
}

func userFromDoc(uid string, data map[string]any) (User, error) {
	role, err := ParseRole(docString(data, "role", string(RoleViewer)))
	if err != nil {
		return User{}, err
	}
	return User{
		UID:         uid,
		Email:       docString(data, "email", ""),
		DisplayName: docString(data, "displayName", ""),
		PhotoURL:    docString(data, "photoURL", ""),
		Role:        role,
		CreatedAt:   docTime(data["createdAt"]),
		LastLogin:   docTimePtr(data["lastLogin"]),
	}, nil
}

func notificationDoc(n Notification) map[string]any {
	doc := map[string]any{
		"userId":    n.UserID,
		"type":      string(n.Type),
		"message":   n.Message,
		"read":      n.Read,
		"createdAt": n.CreatedAt,
	}
	if n.IssueID != "" {
		doc["issueId"] = n.IssueID
	}
	return doc
}

func notificationFromDoc(id string, data map[string]any) Notification {
	read, _ := data["read"].(bool)
	return Notification{
		ID:        id,
		UserID:    docString(data, "userId", ""),
		Type:      NotificationType(docString(data, "type", string(NotificationCommented))),
		IssueID:   docString(data, "issueId", ""),
		Message:   docString(data, "message", ""),
		Read:      read,
		CreatedAt: docTime(data["createdAt"]),
	}
}

func attachmentDocs(attachments []Attachment) []map[string]any {
	docs := make([]map[string]any, 0, len(attachments))
	for _, a := range attachments {
		docs = append(docs, map[string]any{
			"url":        a.URL,
			"name":       a.Name,
			"size":       a.Size,
			"uploadedAt": a.UploadedAt,
		})
	}
	return docs
}

func attachmentsFromDoc(v any) []Attachment {
	attachments := []Attachment{}
	appendDoc := func(m map[string]any) {
		attachments = append(attachments, Attachment{
			URL:        docString(m, "url", ""),
			Name:       docString(m, "name", ""),
			Size:       docInt64(m["size"]),
			UploadedAt: docTime(m["uploadedAt"]),
		})
	}
	switch raw := v.(type) {
	case []map[string]any:
		for _, m := range raw {
			appendDoc(m)
		}
	case []any:
		for _, entry := range raw {
			if m, ok := entry.(map[string]any); ok {
				appendDoc(m)
			}
		}
	}
	return attachments
}

func docString(data map[string]any, key, fallback string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// docTime accepts the two shapes timestamps take in documents: native
// time.Time from the store client, or an ISO-8601 string from JSON payloads.
func docTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func docTimePtr(v any) *time.Time {
	if v == nil {
		return nil
	}
	t := docTime(v)
	if t.IsZero() {
		return nil
	}
	return &t
}

func docInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func docStrings(v any) []string {
	switch raw := v.(type) {
	case []string:
		return append([]string{}, raw...)
	case []any:
		out := make([]string, 0, len(raw))
		for _, entry := range raw {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func stringValue(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// stringify renders a document value for the activity diff. The second return
// is false when the value is absent, which the diff records as null.
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case Status:
		return string(t), true
	case Priority:
		return string(t), true
	case IssueType:
		return string(t), true
	case BacklogCategory:
		return string(t), true
	case time.Time:
		return t.Format(time.RFC3339Nano), true
	case []string:
		return fmt.Sprintf("%v", t), true
	case []any:
		return fmt.Sprintf("%v", docStrings(t)), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}
