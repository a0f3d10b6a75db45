package models

// ProjectDocs lists the well-known documentation artifacts found in a project.
// Paths are relative to the workspace root; empty means not found.
type ProjectDocs struct {
	Readme             string `json:"readme,omitempty"`
	PRD                string `json:"prd,omitempty"`
	ProjectStandards   string `json:"projectStandards,omitempty"`
	ExistingDocsFolder string `json:"existing_docs_folder,omitempty"`
}

// ProjectAudit is the result of scanning a workspace for documentation.
type ProjectAudit struct {
	Docs  ProjectDocs `json:"docs"`
	Specs []string    `json:"specs"`
}

// Empty reports whether the audit found nothing worth linking.
func (a *ProjectAudit) Empty() bool {
	return a.Docs == (ProjectDocs{}) && len(a.Specs) == 0
}
