package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	statusInProgress    = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusDone          = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusBlocked       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusNeedsFeedback = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	statusTodo          = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusArchived      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
)

func statusStyle(s models.TaskStatus) lipgloss.Style {
	switch s {
	case models.StatusInProgress:
		return statusInProgress
	case models.StatusDone:
		return statusDone
	case models.StatusBlocked:
		return statusBlocked
	case models.StatusNeedsFeedback:
		return statusNeedsFeedback
	case models.StatusArchived:
		return statusArchived
	}
	return statusTodo
}

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("invalid --output %q: must be one of table, json, yaml", format)
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("formatting as JSON: %w", err)
		}
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("formatting as YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("formatting as YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported structured format %q", format)
	}
	return nil
}

// renderBoard lays the board out column by column in phase order. Tasks in
// each column keep the order they arrive in.
func renderBoard(board *models.Board) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Board (%d tasks)", len(board.Items))))
	b.WriteString("\n")

	for _, col := range models.SortColumns(board.Columns) {
		tasks := board.TasksInColumn(col.ID)
		heading := fmt.Sprintf("%s (%d", col.Name, len(tasks))
		if col.WIPLimit != nil {
			heading += fmt.Sprintf("/%d", *col.WIPLimit)
		}
		heading += ")"

		b.WriteString("\n")
		b.WriteString(columnStyle.Render(heading))
		b.WriteString("\n")
		if len(tasks) == 0 {
			b.WriteString(dimStyle.Render("  (empty)"))
			b.WriteString("\n")
			continue
		}
		for i := range tasks {
			b.WriteString("  ")
			b.WriteString(renderTaskLine(&tasks[i]))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderTaskLine(t *models.Task) string {
	status := t.StatusOrDefault()
	line := fmt.Sprintf("%-10s %-6s %s  %s",
		t.ID,
		t.PriorityOrDefault(),
		statusStyle(status).Render(fmt.Sprintf("%-14s", status)),
		t.Title,
	)
	if t.IsClaimed() {
		line += dimStyle.Render(fmt.Sprintf("  [%s/%s]", t.ActiveSession.Agent, t.Owner))
	}
	if status == models.StatusBlocked && t.BlockedReason != "" {
		line += dimStyle.Render("  blocked: " + t.BlockedReason)
	}
	return line
}

// renderTask prints every field of a single task.
func renderTask(t *models.Task) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(t.ID))
	b.WriteString(" " + t.Title + "\n\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "  %-16s %s\n", label+":", value)
	}
	row("Column", t.ColumnID)
	row("Status", statusStyle(t.StatusOrDefault()).Render(string(t.StatusOrDefault())))
	row("Priority", string(t.PriorityOrDefault()))
	row("Owner", t.Owner)
	if t.ActiveSession != nil {
		row("Session", t.ActiveSession.ID)
		row("Agent", t.ActiveSession.Agent)
		row("Model", t.ActiveSession.Model)
		row("Phase", t.ActiveSession.Phase)
		row("Started", t.ActiveSession.StartedAt)
	}
	row("Parent", t.ParentID)
	row("Depends on", strings.Join(t.DependsOn, ", "))
	row("Blocked", t.BlockedReason)
	row("Tags", strings.Join(t.Tags, ", "))
	row("Created", t.CreatedAt)
	row("Updated", t.UpdatedAt)
	if t.Summary != "" {
		b.WriteString("\n" + t.Summary + "\n")
	}
	return b.String()
}
