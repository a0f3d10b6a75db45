package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/NunoMoura/dev-ops-sub000/internal/taskpath"
	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
)

// SkippedRecord describes a task file that could not be hydrated.
type SkippedRecord struct {
	TaskID string
	Err    error
}

// TaskRepository owns the per-task JSON files. Each task lives in its own
// directory so a failed write can only ever damage that one task.
type TaskRepository interface {
	SaveTask(task *models.Task) error
	LoadTask(taskID string) (*models.Task, error)
	ListTasks() ([]models.Task, []SkippedRecord, error)
	TaskExists(taskID string) bool
}

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

type fileTaskRepository struct {
	root string
	now  Clock
}

// TaskRepositoryOption configures a TaskRepository.
type TaskRepositoryOption func(*fileTaskRepository)

// WithClock overrides the clock used to stamp updatedAt.
func WithClock(now Clock) TaskRepositoryOption {
	return func(r *fileTaskRepository) {
		r.now = now
	}
}

// NewTaskRepository creates a TaskRepository rooted at the workspace root.
func NewTaskRepository(root string, opts ...TaskRepositoryOption) TaskRepository {
	r := &fileTaskRepository{
		root: root,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveTask stamps updatedAt and overwrites the task's file. Repeated saves
// are harmless.
func (r *fileTaskRepository) SaveTask(task *models.Task) error {
	if task == nil {
		return fmt.Errorf("saving task: task is nil")
	}
	id := taskpath.NormalizeTaskID(task.ID)
	if id == "" {
		return fmt.Errorf("saving task: ID must not be empty")
	}

	task.UpdatedAt = r.now().UTC().Format(time.RFC3339Nano)
	task.Normalize()

	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return fmt.Errorf("saving task %s: marshalling JSON: %w", id, err)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(taskpath.TaskFile(r.root, id), data); err != nil {
		return fmt.Errorf("saving task %s: %w", id, err)
	}
	return nil
}

func (r *fileTaskRepository) LoadTask(taskID string) (*models.Task, error) {
	id := taskpath.NormalizeTaskID(taskID)
	if id == "" {
		return nil, fmt.Errorf("loading task %q: %w", taskID, models.ErrNotFound)
	}
	task, err := readTaskFile(taskpath.TaskFile(r.root, id))
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}
	return task, nil
}

func (r *fileTaskRepository) TaskExists(taskID string) bool {
	id := taskpath.NormalizeTaskID(taskID)
	if id == "" {
		return false
	}
	_, err := os.Stat(taskpath.TaskFile(r.root, id))
	return err == nil
}

// ListTasks reads every task directory. Unreadable or unparsable records are
// reported as skipped rather than failing the whole scan.
func (r *fileTaskRepository) ListTasks() ([]models.Task, []SkippedRecord, error) {
	entries, err := os.ReadDir(taskpath.TasksDir(r.root))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Task{}, nil, nil
		}
		return nil, nil, fmt.Errorf("listing tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(entries))
	var skipped []SkippedRecord
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name == taskpath.ArchivedDir || strings.HasPrefix(name, ".") {
			continue
		}
		task, err := readTaskFile(taskpath.TaskFile(r.root, name))
		if err != nil {
			// A directory without task.json is a half-created task or a
			// leftover lock; neither is worth reporting.
			if !errors.Is(err, models.ErrNotFound) {
				skipped = append(skipped, SkippedRecord{TaskID: name, Err: err})
			}
			continue
		}
		if task.ID == "" {
			task.ID = name
		}
		tasks = append(tasks, *task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, skipped, nil
}

func readTaskFile(path string) (*models.Task, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path built from the managed tasks directory
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("%w: parsing task file: %v", models.ErrMalformedRecord, err)
	}
	task.Normalize()
	return &task, nil
}
