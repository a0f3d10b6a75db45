package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionStaleSession = "stale_session"
	ConditionBlocked      = "task_blocked_too_long"
	ConditionWIPExceeded  = "wip_limit_exceeded"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id" yaml:"id"`
	Condition   string        `json:"condition" yaml:"condition"`
	Severity    AlertSeverity `json:"severity" yaml:"severity"`
	TaskID      string        `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	ColumnID    string        `json:"column_id,omitempty" yaml:"column_id,omitempty"`
	Message     string        `json:"message" yaml:"message"`
	TriggeredAt time.Time     `json:"triggered_at" yaml:"triggered_at"`
}

// AlertThresholds configures when alerts fire. Zero disables a check.
type AlertThresholds struct {
	StaleSessionHours int
	BlockedHours      int
}

// ThresholdsFromConfig converts the configured alert settings.
func ThresholdsFromConfig(cfg models.AlertConfig) AlertThresholds {
	return AlertThresholds{
		StaleSessionHours: cfg.StaleSessionHours,
		BlockedHours:      cfg.BlockedHours,
	}
}

// AlertEngine evaluates alert conditions against the live board. WIP limits
// are only reported here; nothing in the engine enforces them.
type AlertEngine interface {
	Evaluate(board *models.Board) ([]Alert, error)
}

type alertEngine struct {
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given thresholds.
func NewAlertEngine(thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate checks all conditions and returns the triggered alerts ordered by
// severity, then ID.
func (ae *alertEngine) Evaluate(board *models.Board) ([]Alert, error) {
	if board == nil {
		return nil, fmt.Errorf("evaluating alerts: board is nil")
	}
	now := ae.now()

	var alerts []Alert
	alerts = append(alerts, ae.checkStaleSessions(board, now)...)
	alerts = append(alerts, ae.checkBlockedTasks(board, now)...)
	alerts = append(alerts, ae.checkWIPLimits(board, now)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		if ri, rj := severityRank(alerts[i].Severity), severityRank(alerts[j].Severity); ri != rj {
			return ri < rj
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts, nil
}

// checkStaleSessions looks for sessions started longer ago than the threshold.
func (ae *alertEngine) checkStaleSessions(board *models.Board, now time.Time) []Alert {
	if ae.thresholds.StaleSessionHours <= 0 {
		return nil
	}
	threshold := time.Duration(ae.thresholds.StaleSessionHours) * time.Hour

	var alerts []Alert
	for _, task := range board.Items {
		if !task.IsClaimed() {
			continue
		}
		started, ok := parseTime(task.ActiveSession.StartedAt)
		if !ok || now.Sub(started) <= threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:        fmt.Sprintf("stale-%s", task.ID),
			Condition: ConditionStaleSession,
			Severity:  SeverityMedium,
			TaskID:    task.ID,
			Message: fmt.Sprintf("task %s has been held by %s (session %s) for more than %d hours",
				task.ID, task.ActiveSession.Agent, task.ActiveSession.ID, ae.thresholds.StaleSessionHours),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkBlockedTasks looks for tasks blocked and untouched longer than the threshold.
func (ae *alertEngine) checkBlockedTasks(board *models.Board, now time.Time) []Alert {
	if ae.thresholds.BlockedHours <= 0 {
		return nil
	}
	threshold := time.Duration(ae.thresholds.BlockedHours) * time.Hour

	var alerts []Alert
	for _, task := range board.Items {
		if task.StatusOrDefault() != models.StatusBlocked {
			continue
		}
		updated, ok := parseTime(task.UpdatedAt)
		if !ok || now.Sub(updated) <= threshold {
			continue
		}
		msg := fmt.Sprintf("task %s has been blocked for more than %d hours", task.ID, ae.thresholds.BlockedHours)
		if task.BlockedReason != "" {
			msg += ": " + task.BlockedReason
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("blocked-%s", task.ID),
			Condition:   ConditionBlocked,
			Severity:    SeverityHigh,
			TaskID:      task.ID,
			Message:     msg,
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkWIPLimits counts open tasks per column against the column's limit.
func (ae *alertEngine) checkWIPLimits(board *models.Board, now time.Time) []Alert {
	open := make(map[string]int)
	for _, task := range board.Items {
		switch task.StatusOrDefault() {
		case models.StatusDone, models.StatusArchived:
			continue
		}
		open[task.ColumnID]++
	}

	var alerts []Alert
	for _, col := range models.SortColumns(board.Columns) {
		if col.WIPLimit == nil || open[col.ID] <= *col.WIPLimit {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("wip-%s", col.ID),
			Condition:   ConditionWIPExceeded,
			Severity:    SeverityLow,
			ColumnID:    col.ID,
			Message:     fmt.Sprintf("column %s has %d open tasks, exceeding its WIP limit of %d", col.Name, open[col.ID], *col.WIPLimit),
			TriggeredAt: now,
		})
	}
	return alerts
}

func severityRank(s AlertSeverity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	}
	return 3
}

func parseTime(raw string) (time.Time, bool) {
	return models.ParseTimestamp(raw)
}
