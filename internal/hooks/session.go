package hooks

import (
	"errors"
	"fmt"
	"sort"

	"github.com/NunoMoura/dev-ops-sub000/internal/core"
	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
)

// SessionTasks is the subset of the task manager needed to reconcile claims
// when an agent session ends.
type SessionTasks interface {
	ListTasks() ([]models.Task, error)
	ReleaseTask(taskID string, opts core.ReleaseOptions) (*models.Task, error)
}

// HeldBy returns the IDs of tasks whose active session is sessionID, sorted.
func HeldBy(tasks []models.Task, sessionID string) []string {
	if sessionID == "" {
		return nil
	}
	var ids []string
	for _, t := range tasks {
		if t.ActiveSession != nil && t.ActiveSession.ID == sessionID {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// ReleaseSession releases every task still claimed by sessionID so that a
// finished agent does not keep work locked. It returns the released tasks.
// Tasks taken over by another session in the meantime are left alone.
// A failure on one task does not stop the others; the first error is
// returned after all tasks were attempted.
func ReleaseSession(tm SessionTasks, sessionID string) ([]*models.Task, error) {
	tasks, err := tm.ListTasks()
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	var released []*models.Task
	var firstErr error
	for _, id := range HeldBy(tasks, sessionID) {
		task, err := tm.ReleaseTask(id, core.ReleaseOptions{SessionID: sessionID})
		if errors.Is(err, models.ErrAlreadyClaimed) {
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("releasing %s: %w", id, err)
			}
			continue
		}
		released = append(released, task)
	}
	return released, firstErr
}
