package store

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown issue status %q", s)
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown issue priority %q", s)
}

type IssueType string

const (
	TypeBug         IssueType = "bug"
	TypeFeature     IssueType = "feature"
	TypeTask        IssueType = "task"
	TypeEnhancement IssueType = "enhancement"
)

func ParseIssueType(s string) (IssueType, error) {
	switch IssueType(s) {
	case TypeBug, TypeFeature, TypeTask, TypeEnhancement:
		return IssueType(s), nil
	}
	return "", fmt.Errorf("unknown issue type %q", s)
}

type BacklogCategory string

const (
	CategoryFeatureRequest BacklogCategory = "feature-request"
	CategorySuggestions    BacklogCategory = "suggestions"
	CategoryImprovement    BacklogCategory = "improvement"
	CategoryMustHave       BacklogCategory = "must-have"
	CategoryCritical       BacklogCategory = "critical"
)

func ParseBacklogCategory(s string) (BacklogCategory, error) {
	switch BacklogCategory(s) {
	case CategoryFeatureRequest, CategorySuggestions, CategoryImprovement, CategoryMustHave, CategoryCritical:
		return BacklogCategory(s), nil
	}
	return "", fmt.Errorf("unknown backlog category %q", s)
}

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleTester    Role = "tester"
	RoleViewer    Role = "viewer"
	RoleService   Role = "service"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleDeveloper, RoleTester, RoleViewer, RoleService:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown user role %q", s)
}

type ActivityType string

const (
	ActivityCreated       ActivityType = "created"
	ActivityUpdated       ActivityType = "updated"
	ActivityAssigned      ActivityType = "assigned"
	ActivityStatusChanged ActivityType = "status-changed"
	ActivityCommented     ActivityType = "commented"
)

type NotificationType string

const (
	NotificationAssigned      NotificationType = "assigned"
	NotificationMentioned     NotificationType = "mentioned"
	NotificationStatusChanged NotificationType = "status-changed"
	NotificationCommented     NotificationType = "commented"
)

type Attachment struct {
	URL        string    `json:"url"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type Issue struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      Status       `json:"status"`
	Priority    Priority     `json:"priority"`
	Type        IssueType    `json:"type"`
	ReporterID  string       `json:"reporterId"`
	AssigneeID  string       `json:"assigneeId,omitempty"`
	Tags        []string     `json:"tags"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	ResolvedAt  *time.Time   `json:"resolvedAt,omitempty"`
}

type Backlog struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    BacklogCategory `json:"category"`
	ReporterID  string          `json:"reporterId"`
	AssigneeID  string          `json:"assigneeId,omitempty"`
	Tags        []string        `json:"tags"`
	Attachments []Attachment    `json:"attachments"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issueId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FieldChange records one field diff inside an activity entry. Old and new
// values are stringified; nil marks a previously or newly unset field.
type FieldChange struct {
	Field    string  `json:"field"`
	OldValue *string `json:"oldValue"`
	NewValue *string `json:"newValue"`
}

// Activity is an immutable audit-log entry scoped to a single issue.
type Activity struct {
	ID        string        `json:"id"`
	Type      ActivityType  `json:"type"`
	UserID    string        `json:"userId"`
	Changes   []FieldChange `json:"changes"`
	CreatedAt time.Time     `json:"createdAt"`
}

type User struct {
	UID         string     `json:"uid"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName,omitempty"`
	PhotoURL    string     `json:"photoURL,omitempty"`
	Role        Role       `json:"role"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
}

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	IssueID   string           `json:"issueId,omitempty"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// IssueFilter narrows ListIssues; zero-valued fields are ignored. Filters
// combine as a conjunction.
type IssueFilter struct {
	Status     Status
	Priority   Priority
	Type       IssueType
	AssigneeID string
	ReporterID string
}

// BacklogFilter narrows ListBacklog; zero-valued fields are ignored.
type BacklogFilter struct {
	Category   BacklogCategory
	AssigneeID string
	ReporterID string
}

// UserUpdate carries the updatable user fields. StampLastLogin sets lastLogin
// to the current time; LastLogin overrides it with an explicit value.
type UserUpdate struct {
	DisplayName    *string
	PhotoURL       *string
	Role           *Role
	LastLogin      *time.Time
	StampLastLogin bool
}
