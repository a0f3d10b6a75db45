package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/NunoMoura/dev-ops-sub000/internal/taskpath"
)

// ContextStore manages the per-task markdown context file agents read when
// they pick a task up.
type ContextStore interface {
	LoadContext(taskID string) (string, error)
	HasSection(taskID, heading string) (bool, error)
	AppendSection(taskID, section string) error
	ContextPath(taskID string) string
}

type fileContextStore struct {
	root string
}

// NewContextStore creates a ContextStore for the workspace at root.
func NewContextStore(root string) ContextStore {
	return &fileContextStore{root: root}
}

const contextHeader = "# Task Context: %s\n"

func (m *fileContextStore) ContextPath(taskID string) string {
	return taskpath.ContextFile(m.root, taskID)
}

// LoadContext returns the context file content, or "" when it does not exist yet.
func (m *fileContextStore) LoadContext(taskID string) (string, error) {
	data, err := os.ReadFile(m.ContextPath(taskID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("loading context for %s: %w", taskID, err)
	}
	return string(data), nil
}

// HasSection reports whether a line of the context file equals heading.
func (m *fileContextStore) HasSection(taskID, heading string) (bool, error) {
	content, err := m.LoadContext(taskID)
	if err != nil {
		return false, err
	}
	return containsHeading(content, heading), nil
}

// AppendSection appends section to the context file, creating it with a
// header when missing.
func (m *fileContextStore) AppendSection(taskID, section string) error {
	content, err := m.LoadContext(taskID)
	if err != nil {
		return err
	}
	if content == "" {
		content = fmt.Sprintf(contextHeader, taskID)
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += "\n" + strings.TrimRight(section, "\n") + "\n"

	if err := writeFileAtomic(m.ContextPath(taskID), []byte(content)); err != nil {
		return fmt.Errorf("appending context for %s: %w", taskID, err)
	}
	return nil
}

func containsHeading(content, heading string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == heading {
			return true
		}
	}
	return false
}
