package models

import (
	"strings"
	"time"
)

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo          TaskStatus = "todo"
	StatusInProgress    TaskStatus = "in_progress"
	StatusNeedsFeedback TaskStatus = "needs_feedback"
	StatusBlocked       TaskStatus = "blocked"
	StatusDone          TaskStatus = "done"
	StatusArchived      TaskStatus = "archived"
)

// AllStatuses lists every valid TaskStatus in lifecycle order.
var AllStatuses = []TaskStatus{
	StatusTodo, StatusInProgress, StatusNeedsFeedback,
	StatusBlocked, StatusDone, StatusArchived,
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Priority represents the urgency level of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority normalizes user input into a Priority. Aliases such as
// "P0" or "critical" map to high and "P1" maps to medium.
func ParsePriority(raw string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "p0", "critical":
		return PriorityHigh, true
	case "medium", "p1":
		return PriorityMedium, true
	case "low", "p2", "p3":
		return PriorityLow, true
	}
	return "", false
}

// ActiveSession records the agent currently working a task.
type ActiveSession struct {
	ID        string `json:"id" yaml:"id"`
	Agent     string `json:"agent" yaml:"agent"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	Phase     string `json:"phase" yaml:"phase"`
	StartedAt string `json:"startedAt" yaml:"started_at"`
}

// ChecklistItem is a single acceptance step inside a task.
type ChecklistItem struct {
	Text string `json:"text" yaml:"text"`
	Done bool   `json:"done" yaml:"done"`
}

// Task represents a unit of work identified by a unique TASK-NNN ID. Optional
// fields are left empty on disk; use the OrDefault accessors to read them.
type Task struct {
	ID            string          `json:"id" yaml:"id"`
	ColumnID      string          `json:"columnId" yaml:"column_id"`
	Title         string          `json:"title" yaml:"title"`
	Summary       string          `json:"summary,omitempty" yaml:"summary,omitempty"`
	Priority      Priority        `json:"priority,omitempty" yaml:"priority,omitempty"`
	Status        TaskStatus      `json:"status,omitempty" yaml:"status,omitempty"`
	Owner         string          `json:"owner,omitempty" yaml:"owner,omitempty"`
	ActiveSession *ActiveSession  `json:"activeSession,omitempty" yaml:"active_session,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt     string          `json:"updatedAt,omitempty" yaml:"updated_at,omitempty"`
	Checklist     []ChecklistItem `json:"checklist" yaml:"checklist"`
	DependsOn     []string        `json:"dependsOn" yaml:"depends_on"`
	ParentID      string          `json:"parentId,omitempty" yaml:"parent_id,omitempty"`
	BlockedReason string          `json:"blockedReason,omitempty" yaml:"blocked_reason,omitempty"`
	Tags          []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// StatusOrDefault returns the task status, treating an unset status as todo.
func (t *Task) StatusOrDefault() TaskStatus {
	if t.Status == "" {
		return StatusTodo
	}
	return t.Status
}

// PriorityOrDefault returns the task priority, treating an unset priority as medium.
func (t *Task) PriorityOrDefault() Priority {
	if t.Priority == "" {
		return PriorityMedium
	}
	return t.Priority
}

// IsClaimed reports whether an agent session currently owns the task. A
// session record without an ID still counts.
func (t *Task) IsClaimed() bool {
	return t.ActiveSession != nil
}

// zonelessLayouts are ISO 8601 forms accepted besides RFC 3339. Date-only
// values are UTC midnight; date-times without an offset are local time.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimestamp parses a task timestamp such as updatedAt or startedAt.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, true
	}
	if ts, err := time.Parse(time.DateOnly, raw); err == nil {
		return ts, true
	}
	for _, layout := range zonelessLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Normalize replaces nil slices with empty ones so the JSON form always
// carries "checklist": [] and "dependsOn": [].
func (t *Task) Normalize() {
	if t.Checklist == nil {
		t.Checklist = []ChecklistItem{}
	}
	if t.DependsOn == nil {
		t.DependsOn = []string{}
	}
}
