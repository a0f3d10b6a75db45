package core

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NunoMoura/dev-ops-sub000/internal/taskpath"
	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
)

// ProjectAuditor reports which documentation artifacts a workspace has.
type ProjectAuditor interface {
	Audit() (*models.ProjectAudit, error)
}

type fileProjectAuditor struct {
	root     string
	maxDepth int
}

// NewProjectAuditor creates a ProjectAuditor scanning the workspace at root.
func NewProjectAuditor(root string) ProjectAuditor {
	return &fileProjectAuditor{root: root, maxDepth: 4}
}

var (
	readmeCandidates = []string{"README.md", "README", "readme.md", "Readme.md"}
	prdCandidates    = []string{
		"PRD.md", "docs/PRD.md", "docs/prd.md",
		filepath.Join(taskpath.DataDir, "docs", "prd.md"),
	}
	standardsCandidates = []string{
		"docs/project_standards.md", "project_standards.md", "docs/STANDARDS.md",
		filepath.Join(taskpath.DataDir, "docs", "project_standards.md"),
	}
	docsFolderCandidates = []string{"docs", "documentation"}

	skipDirs = map[string]bool{
		".git": true, "node_modules": true, "vendor": true, "dist": true, "build": true,
	}
)

func (a *fileProjectAuditor) Audit() (*models.ProjectAudit, error) {
	audit := &models.ProjectAudit{
		Docs: models.ProjectDocs{
			Readme:             a.firstFile(readmeCandidates),
			PRD:                a.firstFile(prdCandidates),
			ProjectStandards:   a.firstFile(standardsCandidates),
			ExistingDocsFolder: a.firstDir(docsFolderCandidates),
		},
		Specs: []string{},
	}

	specs, err := a.findSpecs()
	if err != nil {
		return nil, fmt.Errorf("auditing project: %w", err)
	}
	audit.Specs = specs
	return audit, nil
}

func (a *fileProjectAuditor) firstFile(candidates []string) string {
	for _, rel := range candidates {
		info, err := os.Stat(filepath.Join(a.root, rel))
		if err == nil && info.Mode().IsRegular() {
			return filepath.ToSlash(rel)
		}
	}
	return ""
}

func (a *fileProjectAuditor) firstDir(candidates []string) string {
	for _, rel := range candidates {
		info, err := os.Stat(filepath.Join(a.root, rel))
		if err == nil && info.IsDir() {
			return filepath.ToSlash(rel)
		}
	}
	return ""
}

// findSpecs collects SPEC.md files and *.spec.md files, skipping vendored
// trees and the per-task folders.
func (a *fileProjectAuditor) findSpecs() ([]string, error) {
	tasksDir := taskpath.TasksDir(a.root)
	var specs []string

	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(a.root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if path == tasksDir || skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if rel != "." && strings.Count(filepath.ToSlash(rel), "/") >= a.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if isSpecFile(d.Name()) {
			specs = append(specs, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning for spec files: %w", err)
	}

	sort.Strings(specs)
	return specs, nil
}

func isSpecFile(name string) bool {
	lower := strings.ToLower(name)
	return lower == "spec.md" || strings.HasSuffix(lower, ".spec.md")
}
