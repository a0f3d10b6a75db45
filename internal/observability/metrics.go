package observability

import (
	"fmt"
	"time"
)

// Metrics holds board activity derived from the event log.
type Metrics struct {
	TasksCreated      int            `json:"tasks_created" yaml:"tasks_created"`
	TasksClaimed      int            `json:"tasks_claimed" yaml:"tasks_claimed"`
	TasksMoved        int            `json:"tasks_moved" yaml:"tasks_moved"`
	TasksReleased     int            `json:"tasks_released" yaml:"tasks_released"`
	TasksBlocked      int            `json:"tasks_blocked" yaml:"tasks_blocked"`
	TasksCompleted    int            `json:"tasks_completed" yaml:"tasks_completed"`
	TasksDecomposed   int            `json:"tasks_decomposed" yaml:"tasks_decomposed"`
	AutoPromotions    int            `json:"auto_promotions" yaml:"auto_promotions"`
	HydrationFailures int            `json:"hydration_failures" yaml:"hydration_failures"`
	RecordsSkipped    int            `json:"records_skipped" yaml:"records_skipped"`
	ClaimsByAgent     map[string]int `json:"claims_by_agent" yaml:"claims_by_agent"`
	MovesByColumn     map[string]int `json:"moves_by_column" yaml:"moves_by_column"`
	EventCount        int            `json:"event_count" yaml:"event_count"`
	OldestEvent       *time.Time     `json:"oldest_event,omitempty" yaml:"oldest_event,omitempty"`
	NewestEvent       *time.Time     `json:"newest_event,omitempty" yaml:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		ClaimsByAgent: make(map[string]int),
		MovesByColumn: make(map[string]int),
		EventCount:    len(events),
	}

	for _, event := range events {
		t := event.Time
		if m.OldestEvent == nil || t.Before(*m.OldestEvent) {
			m.OldestEvent = &t
		}
		if m.NewestEvent == nil || t.After(*m.NewestEvent) {
			m.NewestEvent = &t
		}

		switch event.Type {
		case "task.created":
			m.TasksCreated++
		case "task.claimed":
			m.TasksClaimed++
			agent, _ := event.Data["agent"].(string)
			if agent == "" {
				agent = "unknown"
			}
			m.ClaimsByAgent[agent]++
			if promoted, _ := event.Data["promoted"].(bool); promoted {
				m.AutoPromotions++
			}
		case "task.moved":
			m.TasksMoved++
			if to, ok := event.Data["to"].(string); ok && to != "" {
				m.MovesByColumn[to]++
			}
		case "task.released":
			m.TasksReleased++
		case "task.blocked":
			m.TasksBlocked++
		case "task.completed":
			m.TasksCompleted++
		case "task.decomposed":
			m.TasksDecomposed++
		case "hydration.failed":
			m.HydrationFailures++
		case "board.record_skipped":
			m.RecordsSkipped++
		}
	}

	return m, nil
}
