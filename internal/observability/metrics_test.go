package observability

import (
	"testing"
	"time"
)

func TestMetricsCalculator_Calculate(t *testing.T) {
	log, _ := openLog(t)

	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	writeAll(t, log,
		Event{Time: base, Type: "task.created", Data: map[string]any{"task_id": "TASK-001"}},
		Event{Time: base.Add(time.Hour), Type: "task.created", Data: map[string]any{"task_id": "TASK-002"}},
		Event{Time: base.Add(2 * time.Hour), Type: "task.claimed",
			Data: map[string]any{"task_id": "TASK-001", "agent": "claude", "promoted": true}},
		Event{Time: base.Add(3 * time.Hour), Type: "task.claimed",
			Data: map[string]any{"task_id": "TASK-002", "agent": "codex", "promoted": false}},
		Event{Time: base.Add(4 * time.Hour), Type: "task.moved",
			Data: map[string]any{"task_id": "TASK-001", "from": "col-understand", "to": "col-build"}},
		Event{Time: base.Add(5 * time.Hour), Level: LevelWarn, Type: "hydration.failed",
			Data: map[string]any{"task_id": "TASK-002"}},
		Event{Time: base.Add(6 * time.Hour), Type: "task.completed", Data: map[string]any{"task_id": "TASK-001"}},
		Event{Time: base.Add(7 * time.Hour), Level: LevelWarn, Type: "board.record_skipped",
			Data: map[string]any{"task_id": "TASK-009"}},
	)

	m, err := NewMetricsCalculator(log).Calculate(base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}

	if m.TasksCreated != 2 {
		t.Errorf("TasksCreated = %d, want 2", m.TasksCreated)
	}
	if m.TasksClaimed != 2 || m.AutoPromotions != 1 {
		t.Errorf("TasksClaimed = %d AutoPromotions = %d", m.TasksClaimed, m.AutoPromotions)
	}
	if m.ClaimsByAgent["claude"] != 1 || m.ClaimsByAgent["codex"] != 1 {
		t.Errorf("ClaimsByAgent = %v", m.ClaimsByAgent)
	}
	if m.TasksMoved != 1 || m.MovesByColumn["col-build"] != 1 {
		t.Errorf("TasksMoved = %d MovesByColumn = %v", m.TasksMoved, m.MovesByColumn)
	}
	if m.HydrationFailures != 1 || m.RecordsSkipped != 1 || m.TasksCompleted != 1 {
		t.Errorf("unexpected counters: %+v", m)
	}
	if m.EventCount != 8 {
		t.Errorf("EventCount = %d, want 8", m.EventCount)
	}
	if m.OldestEvent == nil || !m.OldestEvent.Equal(base) {
		t.Errorf("OldestEvent = %v, want %v", m.OldestEvent, base)
	}
	if m.NewestEvent == nil || !m.NewestEvent.Equal(base.Add(7*time.Hour)) {
		t.Errorf("NewestEvent = %v", m.NewestEvent)
	}
}

func TestMetricsCalculator_Since(t *testing.T) {
	log, _ := openLog(t)

	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	writeAll(t, log,
		Event{Time: base, Type: "task.created"},
		Event{Time: base.Add(48 * time.Hour), Type: "task.created"},
	)

	m, err := NewMetricsCalculator(log).Calculate(base.Add(24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if m.TasksCreated != 1 || m.EventCount != 1 {
		t.Errorf("expected only the recent event, got %+v", m)
	}
}

func TestMetricsCalculator_EmptyLog(t *testing.T) {
	log, _ := openLog(t)

	m, err := NewMetricsCalculator(log).Calculate(time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if m.EventCount != 0 || m.OldestEvent != nil || m.ClaimsByAgent == nil {
		t.Errorf("unexpected metrics for empty log: %+v", m)
	}
}

func TestMetricsCalculator_ClaimWithoutAgent(t *testing.T) {
	log, _ := openLog(t)
	writeAll(t, log, Event{Time: time.Now().UTC(), Type: "task.claimed", Data: map[string]any{"task_id": "TASK-001"}})

	m, err := NewMetricsCalculator(log).Calculate(time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if m.ClaimsByAgent["unknown"] != 1 {
		t.Errorf("ClaimsByAgent = %v", m.ClaimsByAgent)
	}
}
