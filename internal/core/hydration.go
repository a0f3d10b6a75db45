package core

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
)

// BaselineHeading marks a context file that has already been hydrated.
const BaselineHeading = "## Project Baseline"

// HydrationError is the best-effort failure of context hydration. Callers
// may log or drop it; it never invalidates a claim.
type HydrationError struct {
	TaskID string
	Err    error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("hydrating context for %s: %v", e.TaskID, e.Err)
}

func (e *HydrationError) Unwrap() error { return e.Err }

// ContextWriter is the subset of storage.ContextStore the hydrator needs.
type ContextWriter interface {
	HasSection(taskID, heading string) (bool, error)
	AppendSection(taskID, section string) error
	ContextPath(taskID string) string
}

// ContextHydrator seeds a task's context file with project documentation links.
type ContextHydrator interface {
	Hydrate(task *models.Task) *HydrationError
}

type contextHydrator struct {
	root     string
	auditor  ProjectAuditor
	contexts ContextWriter
}

// NewContextHydrator creates a ContextHydrator for the workspace at root.
func NewContextHydrator(root string, auditor ProjectAuditor, contexts ContextWriter) ContextHydrator {
	return &contextHydrator{root: root, auditor: auditor, contexts: contexts}
}

// Hydrate appends the Project Baseline section once per task. When the audit
// finds nothing the file is left untouched so a later claim can try again.
func (h *contextHydrator) Hydrate(task *models.Task) *HydrationError {
	if task == nil {
		return &HydrationError{Err: fmt.Errorf("task is nil")}
	}

	has, err := h.contexts.HasSection(task.ID, BaselineHeading)
	if err != nil {
		return &HydrationError{TaskID: task.ID, Err: err}
	}
	if has {
		return nil
	}

	audit, err := h.auditor.Audit()
	if err != nil {
		return &HydrationError{TaskID: task.ID, Err: err}
	}
	if audit.Empty() {
		return nil
	}

	section := renderBaseline(audit, h.linkBase(task.ID), h.root)
	if err := h.contexts.AppendSection(task.ID, section); err != nil {
		return &HydrationError{TaskID: task.ID, Err: err}
	}
	return nil
}

// linkBase is the directory links in the context file are relative to.
func (h *contextHydrator) linkBase(taskID string) string {
	return filepath.Dir(h.contexts.ContextPath(taskID))
}

func renderBaseline(audit *models.ProjectAudit, from, root string) string {
	var sb strings.Builder
	sb.WriteString(BaselineHeading)
	sb.WriteString("\n\n")

	entries := []struct{ label, path string }{
		{"README", audit.Docs.Readme},
		{"PRD", audit.Docs.PRD},
		{"Project standards", audit.Docs.ProjectStandards},
		{"Docs folder", audit.Docs.ExistingDocsFolder},
	}
	for _, e := range entries {
		if e.path == "" {
			continue
		}
		fmt.Fprintf(&sb, "- %s: [%s](%s)\n", e.label, e.path, relLink(from, root, e.path))
	}
	for _, spec := range audit.Specs {
		fmt.Fprintf(&sb, "- Spec: [%s](%s)\n", spec, relLink(from, root, spec))
	}
	return sb.String()
}

func relLink(from, root, rel string) string {
	target := filepath.Join(root, filepath.FromSlash(rel))
	link, err := filepath.Rel(from, target)
	if err != nil {
		return rel
	}
	return filepath.ToSlash(link)
}
