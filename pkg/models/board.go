package models

import "sort"

// Well-known column IDs of the default workflow blueprint.
const (
	ColumnBacklog    = "col-backlog"
	ColumnUnderstand = "col-understand"
	ColumnPlan       = "col-plan"
	ColumnBuild      = "col-build"
	ColumnVerify     = "col-verify"
	ColumnDone       = "col-done"
)

// BoardVersion is the schema version written to new board files.
const BoardVersion = 1

// Column is one phase of the workflow. Lower positions are earlier phases.
type Column struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Position int    `json:"position" yaml:"position"`
	WIPLimit *int   `json:"wipLimit,omitempty" yaml:"wip_limit,omitempty"`
}

// Board aggregates the column layout and the tasks currently on it. Items is
// a view assembled from per-task files at read time and is never persisted.
type Board struct {
	Version int      `json:"version" yaml:"version"`
	Columns []Column `json:"columns" yaml:"columns"`
	Items   []Task   `json:"items" yaml:"items"`
}

// DefaultColumns returns the compiled-in workflow blueprint.
func DefaultColumns() []Column {
	return []Column{
		{ID: ColumnBacklog, Name: "Backlog", Position: 1},
		{ID: ColumnUnderstand, Name: "Understand", Position: 2},
		{ID: ColumnPlan, Name: "Plan", Position: 3},
		{ID: ColumnBuild, Name: "Build", Position: 4},
		{ID: ColumnVerify, Name: "Verify", Position: 5},
		{ID: ColumnDone, Name: "Done", Position: 6},
	}
}

// SortColumns orders columns by position, breaking ties by name.
func SortColumns(columns []Column) []Column {
	sorted := make([]Column, len(columns))
	copy(sorted, columns)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

// FindColumn returns the column with the given ID.
func (b *Board) FindColumn(id string) (Column, bool) {
	for _, c := range b.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// NextColumn returns the column immediately after id in position order.
func (b *Board) NextColumn(id string) (Column, bool) {
	sorted := SortColumns(b.Columns)
	for i, c := range sorted {
		if c.ID == id && i+1 < len(sorted) {
			return sorted[i+1], true
		}
	}
	return Column{}, false
}

// FindTask returns a pointer into Items for the task with the given ID.
func (b *Board) FindTask(id string) (*Task, bool) {
	for i := range b.Items {
		if b.Items[i].ID == id {
			return &b.Items[i], true
		}
	}
	return nil, false
}

// TasksInColumn returns the tasks currently placed in the given column.
func (b *Board) TasksInColumn(columnID string) []Task {
	var tasks []Task
	for _, t := range b.Items {
		if t.ColumnID == columnID {
			tasks = append(tasks, t)
		}
	}
	return tasks
}
