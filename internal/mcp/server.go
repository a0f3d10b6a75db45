// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the board engine as tools, so coding agents can pick, claim and advance
// tasks without shelling out to the CLI.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NunoMoura/dev-ops-sub000/internal/core"
	"github.com/NunoMoura/dev-ops-sub000/internal/observability"
	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the board services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	taskMgr     core.TaskManager
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
	driver      core.Driver
}

// NewServer creates a new MCP server. driver identifies this agent session
// and is used for claims that do not name their own. metricsCalc and
// alertEngine may be nil.
func NewServer(taskMgr core.TaskManager, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, driver core.Driver, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		taskMgr:     taskMgr,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
		driver:      driver,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "devops", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run serves over stdio, blocking until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type emptyInput struct{}

type taskIDInput struct {
	TaskID string `json:"task_id" jsonschema:"the task identifier, e.g. TASK-001"`
}

type sessionOutput struct {
	ID        string `json:"id"`
	Agent     string `json:"agent"`
	Model     string `json:"model,omitempty"`
	Phase     string `json:"phase"`
	StartedAt string `json:"started_at"`
}

type taskOutput struct {
	ID            string         `json:"id"`
	ColumnID      string         `json:"column_id"`
	Title         string         `json:"title"`
	Summary       string         `json:"summary,omitempty"`
	Priority      string         `json:"priority"`
	Status        string         `json:"status"`
	Owner         string         `json:"owner,omitempty"`
	ActiveSession *sessionOutput `json:"active_session,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	UpdatedAt     string         `json:"updated_at,omitempty"`
	DependsOn     []string       `json:"depends_on,omitempty"`
	ParentID      string         `json:"parent_id,omitempty"`
	BlockedReason string         `json:"blocked_reason,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
}

type columnOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	WIPLimit *int   `json:"wip_limit,omitempty"`
	Count    int    `json:"count"`
}

type boardOutput struct {
	Version int            `json:"version"`
	Columns []columnOutput `json:"columns"`
	Tasks   []taskOutput   `json:"tasks"`
	Count   int            `json:"count"`
}

type createTaskInput struct {
	Title    string   `json:"title" jsonschema:"short task title"`
	Summary  string   `json:"summary,omitempty" jsonschema:"longer description of the work"`
	Priority string   `json:"priority,omitempty" jsonschema:"high, medium or low (default medium)"`
	ColumnID string   `json:"column_id,omitempty" jsonschema:"column to create the task in (default: intake column)"`
	ParentID string   `json:"parent_id,omitempty" jsonschema:"parent task ID for subtasks"`
	Tags     []string `json:"tags,omitempty" jsonschema:"free-form labels"`
}

type pickOutput struct {
	TaskID    string `json:"task_id,omitempty"`
	Available bool   `json:"available"`
}

type claimTaskInput struct {
	TaskID    string `json:"task_id" jsonschema:"the task identifier, e.g. TASK-001"`
	Agent     string `json:"agent,omitempty" jsonschema:"agent name recorded on the session"`
	Model     string `json:"model,omitempty" jsonschema:"model name recorded on the session"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session to claim under (default: this server's session)"`
	Owner     string `json:"owner,omitempty" jsonschema:"human owner, overrides the configured developer name"`
	Force     bool   `json:"force,omitempty" jsonschema:"take over a task held by another session"`
}

type claimNextInput struct {
	Agent     string `json:"agent,omitempty" jsonschema:"agent name recorded on the session"`
	Model     string `json:"model,omitempty" jsonschema:"model name recorded on the session"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session to claim under (default: this server's session)"`
	Owner     string `json:"owner,omitempty" jsonschema:"human owner, overrides the configured developer name"`
}

type claimOutput struct {
	Task           taskOutput `json:"task"`
	Promoted       bool       `json:"promoted"`
	FromColumn     string     `json:"from_column,omitempty"`
	HydrationError string     `json:"hydration_error,omitempty"`
}

type moveTaskInput struct {
	TaskID   string `json:"task_id" jsonschema:"the task identifier, e.g. TASK-001"`
	ColumnID string `json:"column_id" jsonschema:"target column ID, e.g. col-build"`
}

type blockTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"the task identifier, e.g. TASK-001"`
	Reason string `json:"reason,omitempty" jsonschema:"why the task is blocked"`
}

type subtaskInput struct {
	Title    string `json:"title" jsonschema:"subtask title"`
	Summary  string `json:"summary,omitempty" jsonschema:"subtask description"`
	Priority string `json:"priority,omitempty" jsonschema:"high, medium or low"`
}

type decomposeTaskInput struct {
	TaskID   string         `json:"task_id" jsonschema:"the parent task identifier"`
	Subtasks []subtaskInput `json:"subtasks" jsonschema:"subtasks to create in the intake column"`
}

type decomposeOutput struct {
	ParentID string       `json:"parent_id"`
	Subtasks []taskOutput `json:"subtasks"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	TasksCreated      int            `json:"tasks_created"`
	TasksClaimed      int            `json:"tasks_claimed"`
	TasksMoved        int            `json:"tasks_moved"`
	TasksCompleted    int            `json:"tasks_completed"`
	AutoPromotions    int            `json:"auto_promotions"`
	HydrationFailures int            `json:"hydration_failures"`
	ClaimsByAgent     map[string]int `json:"claims_by_agent"`
	EventCount        int            `json:"event_count"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	TaskID      string `json:"task_id,omitempty"`
	ColumnID    string `json:"column_id,omitempty"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "read_board",
		Description: "Read the board: columns in phase order and every task in display order (most active column first).",
	}, s.handleReadBoard)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get a task by ID, including its status, owner and active session.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_task",
		Description: "Create a task in the intake column (or a given column). Returns the new task with its allocated ID.",
	}, s.handleCreateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "pick_next_task",
		Description: "Suggest the highest-priority unclaimed task in the intake column without claiming it.",
	}, s.handlePickNextTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "claim_task",
		Description: "Claim a task for this session: sets owner and active session, marks it in progress and promotes it out of intake.",
	}, s.handleClaimTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "claim_next",
		Description: "Pick and claim the best available intake task in one step. Tasks claimed concurrently by others are skipped.",
	}, s.handleClaimNext)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "move_task",
		Description: "Move a task to another column. WIP limits are not enforced.",
	}, s.handleMoveTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "release_task",
		Description: "End the active session on a task without completing it.",
	}, s.handleReleaseTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "block_task",
		Description: "Mark a task blocked with an optional reason.",
	}, s.handleBlockTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "unblock_task",
		Description: "Return a blocked task to in progress (if claimed) or todo.",
	}, s.handleUnblockTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "decompose_task",
		Description: "Split a task into subtasks. The parent is blocked until every subtask is completed.",
	}, s.handleDecomposeTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task done and move it to the done column, ending its session.",
	}, s.handleCompleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get board activity metrics from the event log: creations, claims per agent, moves, completions and hydration failures.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate board alerts: stale sessions, long-blocked tasks and columns over their WIP limit.",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleReadBoard(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, boardOutput, error) {
	board, err := s.taskMgr.ReadBoard()
	if err != nil {
		return errorResult(fmt.Sprintf("reading board: %s", err)), boardOutput{}, nil
	}
	core.SortTasks(board.Items)

	counts := make(map[string]int)
	for _, t := range board.Items {
		counts[t.ColumnID]++
	}

	out := boardOutput{
		Version: board.Version,
		Columns: []columnOutput{},
		Tasks:   make([]taskOutput, len(board.Items)),
		Count:   len(board.Items),
	}
	for _, c := range models.SortColumns(board.Columns) {
		out.Columns = append(out.Columns, columnOutput{
			ID: c.ID, Name: c.Name, Position: c.Position, WIPLimit: c.WIPLimit, Count: counts[c.ID],
		})
	}
	for i := range board.Items {
		out.Tasks[i] = taskToOutput(&board.Items[i])
	}
	return nil, out, nil
}

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	task, err := s.taskMgr.GetTask(input.TaskID)
	if err != nil {
		return errorResult(describe(err)), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleCreateTask(_ context.Context, _ *gomcp.CallToolRequest, input createTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.Title == "" {
		return errorResult("title is required"), taskOutput{}, nil
	}
	priority, err := parsePriority(input.Priority)
	if err != nil {
		return errorResult(err.Error()), taskOutput{}, nil
	}

	task, err := s.taskMgr.CreateTask(core.CreateTaskInput{
		ColumnID: input.ColumnID,
		Title:    input.Title,
		Summary:  input.Summary,
		Priority: priority,
		ParentID: input.ParentID,
		Tags:     input.Tags,
	})
	if err != nil {
		return errorResult(describe(err)), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handlePickNextTask(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, pickOutput, error) {
	id, ok, err := s.taskMgr.PickNextTask()
	if err != nil {
		return errorResult(describe(err)), pickOutput{}, nil
	}
	return nil, pickOutput{TaskID: id, Available: ok}, nil
}

func (s *Server) handleClaimTask(_ context.Context, _ *gomcp.CallToolRequest, input claimTaskInput) (*gomcp.CallToolResult, claimOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), claimOutput{}, nil
	}

	res, err := s.taskMgr.ClaimTask(input.TaskID,
		s.resolveDriver(input.Agent, input.Model, input.SessionID),
		core.ClaimOptions{Owner: input.Owner, Force: input.Force},
	)
	if err != nil {
		return errorResult(describe(err)), claimOutput{}, nil
	}
	return nil, claimToOutput(res), nil
}

func (s *Server) handleClaimNext(_ context.Context, _ *gomcp.CallToolRequest, input claimNextInput) (*gomcp.CallToolResult, claimOutput, error) {
	res, err := s.taskMgr.ClaimNext(
		s.resolveDriver(input.Agent, input.Model, input.SessionID),
		core.ClaimOptions{Owner: input.Owner},
	)
	if err != nil {
		return errorResult(describe(err)), claimOutput{}, nil
	}
	return nil, claimToOutput(res), nil
}

func (s *Server) handleMoveTask(_ context.Context, _ *gomcp.CallToolRequest, input moveTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" || input.ColumnID == "" {
		return errorResult("task_id and column_id are required"), taskOutput{}, nil
	}
	task, err := s.taskMgr.MoveTask(input.TaskID, input.ColumnID)
	if err != nil {
		return errorResult(describe(err)), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleReleaseTask(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	return s.mutateTask(input.TaskID, func(id string) (*models.Task, error) {
		return s.taskMgr.ReleaseTask(id, core.ReleaseOptions{})
	})
}

func (s *Server) handleBlockTask(_ context.Context, _ *gomcp.CallToolRequest, input blockTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	return s.mutateTask(input.TaskID, func(id string) (*models.Task, error) {
		return s.taskMgr.BlockTask(id, input.Reason)
	})
}

func (s *Server) handleUnblockTask(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	return s.mutateTask(input.TaskID, s.taskMgr.UnblockTask)
}

func (s *Server) handleCompleteTask(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	return s.mutateTask(input.TaskID, s.taskMgr.CompleteTask)
}

func (s *Server) handleDecomposeTask(_ context.Context, _ *gomcp.CallToolRequest, input decomposeTaskInput) (*gomcp.CallToolResult, decomposeOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), decomposeOutput{}, nil
	}
	if len(input.Subtasks) == 0 {
		return errorResult("at least one subtask is required"), decomposeOutput{}, nil
	}

	children := make([]core.CreateTaskInput, 0, len(input.Subtasks))
	for _, st := range input.Subtasks {
		priority, err := parsePriority(st.Priority)
		if err != nil {
			return errorResult(err.Error()), decomposeOutput{}, nil
		}
		children = append(children, core.CreateTaskInput{Title: st.Title, Summary: st.Summary, Priority: priority})
	}

	created, err := s.taskMgr.DecomposeTask(input.TaskID, children)
	if err != nil {
		return errorResult(describe(err)), decomposeOutput{}, nil
	}

	out := decomposeOutput{ParentID: input.TaskID, Subtasks: make([]taskOutput, len(created))}
	for i, t := range created {
		out.Subtasks[i] = taskToOutput(t)
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := observability.ParseSince(sinceStr, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		TasksCreated:      metrics.TasksCreated,
		TasksClaimed:      metrics.TasksClaimed,
		TasksMoved:        metrics.TasksMoved,
		TasksCompleted:    metrics.TasksCompleted,
		AutoPromotions:    metrics.AutoPromotions,
		HydrationFailures: metrics.HydrationFailures,
		ClaimsByAgent:     metrics.ClaimsByAgent,
		EventCount:        metrics.EventCount,
	}
	if out.ClaimsByAgent == nil {
		out.ClaimsByAgent = make(map[string]int)
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available"), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	board, err := s.taskMgr.ReadBoard()
	if err != nil {
		return errorResult(fmt.Sprintf("reading board: %s", err)), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}
	alerts, err := s.alertEngine.Evaluate(board)
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			TaskID:      a.TaskID,
			ColumnID:    a.ColumnID,
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func (s *Server) mutateTask(taskID string, op func(string) (*models.Task, error)) (*gomcp.CallToolResult, taskOutput, error) {
	if taskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}
	task, err := op(taskID)
	if err != nil {
		return errorResult(describe(err)), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

// resolveDriver fills unset fields from the server's own session.
func (s *Server) resolveDriver(agent, model, sessionID string) core.Driver {
	d := s.driver
	if agent != "" {
		d.Agent = agent
	}
	if model != "" {
		d.Model = model
	}
	if sessionID != "" {
		d.SessionID = sessionID
	}
	return d
}

func parsePriority(raw string) (models.Priority, error) {
	if raw == "" {
		return "", nil
	}
	p, ok := models.ParsePriority(raw)
	if !ok {
		return "", fmt.Errorf("invalid priority %q: must be one of high, medium, low", raw)
	}
	return p, nil
}

// describe renders engine errors with a hint agents can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, models.ErrAlreadyClaimed):
		return fmt.Sprintf("%s (pick another task, or pass force to take it over)", err)
	case errors.Is(err, models.ErrNoTaskAvailable):
		return fmt.Sprintf("%s (the intake column has no unclaimed todo tasks)", err)
	}
	return err.Error()
}

func taskToOutput(t *models.Task) taskOutput {
	out := taskOutput{
		ID:            t.ID,
		ColumnID:      t.ColumnID,
		Title:         t.Title,
		Summary:       t.Summary,
		Priority:      string(t.PriorityOrDefault()),
		Status:        string(t.StatusOrDefault()),
		Owner:         t.Owner,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		DependsOn:     t.DependsOn,
		ParentID:      t.ParentID,
		BlockedReason: t.BlockedReason,
		Tags:          t.Tags,
	}
	if t.ActiveSession != nil {
		out.ActiveSession = &sessionOutput{
			ID:        t.ActiveSession.ID,
			Agent:     t.ActiveSession.Agent,
			Model:     t.ActiveSession.Model,
			Phase:     t.ActiveSession.Phase,
			StartedAt: t.ActiveSession.StartedAt,
		}
	}
	return out
}

func claimToOutput(res *core.ClaimResult) claimOutput {
	out := claimOutput{
		Task:       taskToOutput(res.Task),
		Promoted:   res.Promoted,
		FromColumn: res.FromColumn,
	}
	if res.Hydration != nil {
		out.HydrationError = res.Hydration.Error()
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{ClaimsByAgent: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
