// Package taskpath provides the shared on-disk layout of a dev-ops workspace.
// It exists so storage and core agree on paths without importing each other.
package taskpath

import (
	"path/filepath"
	"strings"
)

// DataDir is the workspace-relative directory holding all board state.
const DataDir = ".dev_ops"

// ArchivedDir is the subdirectory under tasks/ where an external archive
// process relocates finished task folders. Board hydration ignores it.
const ArchivedDir = "_archived"

const (
	boardFile   = "board.json"
	taskFile    = "task.json"
	contextFile = "context.md"
	lockFile    = ".lock"
	configFile  = "config.yaml"
	eventsFile  = "events.jsonl"
)

// DataRoot returns the .dev_ops directory for a workspace root.
func DataRoot(root string) string {
	return filepath.Join(root, DataDir)
}

// BoardFile returns the path of the column/version file.
func BoardFile(root string) string {
	return filepath.Join(root, DataDir, boardFile)
}

// BoardLockFile returns the lock guarding task ID allocation.
func BoardLockFile(root string) string {
	return filepath.Join(root, DataDir, "."+strings.TrimSuffix(boardFile, ".json")+".lock")
}

// TasksDir returns the directory containing one folder per task.
func TasksDir(root string) string {
	return filepath.Join(root, DataDir, "tasks")
}

// TaskDir returns the folder owned by a single task.
func TaskDir(root, taskID string) string {
	return filepath.Join(TasksDir(root), NormalizeTaskID(taskID))
}

// TaskFile returns the JSON record of a task.
func TaskFile(root, taskID string) string {
	return filepath.Join(TaskDir(root, taskID), taskFile)
}

// ContextFile returns the task-scoped markdown context file.
func ContextFile(root, taskID string) string {
	return filepath.Join(TaskDir(root, taskID), contextFile)
}

// TaskLockFile returns the advisory lock file of a task.
func TaskLockFile(root, taskID string) string {
	return filepath.Join(TaskDir(root, taskID), lockFile)
}

// ConfigFile returns the project configuration file path.
func ConfigFile(root string) string {
	return filepath.Join(root, DataDir, configFile)
}

// EventsFile returns the JSONL event log path.
func EventsFile(root string) string {
	return filepath.Join(root, DataDir, eventsFile)
}

// NormalizeTaskID trims whitespace and path separators so an ID can never
// escape the tasks directory.
func NormalizeTaskID(taskID string) string {
	id := strings.TrimSpace(taskID)
	id = strings.ReplaceAll(id, "\\", "")
	id = strings.ReplaceAll(id, "/", "")
	if id == "." || id == ".." {
		return ""
	}
	return id
}
