package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
	"github.com/google/uuid"
)

// UnassignedOwner is recorded when neither an override nor a configured
// developer name is available at claim time.
const UnassignedOwner = "Unassigned"

// Driver identifies the agent session performing a claim.
type Driver struct {
	Agent     string
	Model     string
	SessionID string
}

// ClaimOptions tunes a claim.
type ClaimOptions struct {
	// Owner overrides the configured developer name.
	Owner string
	// Force takes over a task already claimed by another session.
	Force bool
}

// ReleaseOptions restricts a release. When SessionID is set the task is only
// released while that session still holds it.
type ReleaseOptions struct {
	SessionID string
}

// ClaimResult is the outcome of a successful claim. Hydration holds the
// best-effort context hydration failure, if any; it may be ignored.
type ClaimResult struct {
	Task       *models.Task
	Promoted   bool
	FromColumn string
	Hydration  *HydrationError
}

// CreateTaskInput describes a new task.
type CreateTaskInput struct {
	ColumnID string
	Title    string
	Summary  string
	Priority models.Priority
	ParentID string
	Tags     []string
}

// TaskManager defines the board lifecycle operations.
type TaskManager interface {
	ReadBoard() (*models.Board, error)
	WriteBoard(board *models.Board) error
	GetTask(taskID string) (*models.Task, error)
	ListTasks() ([]models.Task, error)
	CreateTask(input CreateTaskInput) (*models.Task, error)
	PickNextTask() (string, bool, error)
	ClaimTask(taskID string, driver Driver, opts ClaimOptions) (*ClaimResult, error)
	ClaimNext(driver Driver, opts ClaimOptions) (*ClaimResult, error)
	MoveTask(taskID, columnID string) (*models.Task, error)
	ReleaseTask(taskID string, opts ReleaseOptions) (*models.Task, error)
	BlockTask(taskID, reason string) (*models.Task, error)
	UnblockTask(taskID string) (*models.Task, error)
	DecomposeTask(parentID string, children []CreateTaskInput) ([]*models.Task, error)
	CompleteTask(taskID string) (*models.Task, error)
}

// TaskManagerDeps bundles the collaborators of a TaskManager. Hydrator,
// Owners, Events and Locker may be nil.
type TaskManagerDeps struct {
	Boards   BoardStore
	Tasks    TaskStore
	Hydrator ContextHydrator
	Owners   DeveloperNameProvider
	Events   EventLogger
	Locker   Locker
	Config   *models.GlobalConfig
}

// TaskManagerOption configures a TaskManager.
type TaskManagerOption func(*taskManager)

// WithNow overrides the clock used for session start times.
func WithNow(now func() time.Time) TaskManagerOption {
	return func(tm *taskManager) { tm.now = now }
}

// WithSessionIDs overrides the generator of session IDs.
func WithSessionIDs(next func() string) TaskManagerOption {
	return func(tm *taskManager) { tm.newSessionID = next }
}

type taskManager struct {
	boards       BoardStore
	tasks        TaskStore
	hydrator     ContextHydrator
	owners       DeveloperNameProvider
	events       EventLogger
	locker       Locker
	ids          *TaskIDAllocator
	cfg          models.GlobalConfig
	now          func() time.Time
	newSessionID func() string
}

// NewTaskManager creates a TaskManager with all dependencies injected.
func NewTaskManager(deps TaskManagerDeps, opts ...TaskManagerOption) TaskManager {
	cfg := DefaultGlobalConfig()
	if deps.Config != nil {
		cfg = deps.Config
	}
	locker := deps.Locker
	if locker == nil {
		locker = nopLocker{}
	}
	tm := &taskManager{
		boards:       deps.Boards,
		tasks:        deps.Tasks,
		hydrator:     deps.Hydrator,
		owners:       deps.Owners,
		events:       deps.Events,
		locker:       locker,
		ids:          NewTaskIDAllocator(cfg.TaskIDPrefix, cfg.TaskIDPadWidth),
		cfg:          *cfg,
		now:          func() time.Time { return time.Now().UTC() },
		newSessionID: uuid.NewString,
	}
	if tm.cfg.Board.IntakeColumn == "" {
		tm.cfg.Board.IntakeColumn = models.ColumnBacklog
	}
	if tm.cfg.Board.DoneColumn == "" {
		tm.cfg.Board.DoneColumn = models.ColumnDone
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

func (tm *taskManager) ReadBoard() (*models.Board, error) {
	return tm.boards.ReadBoard()
}

func (tm *taskManager) WriteBoard(board *models.Board) error {
	return tm.boards.WriteBoard(board)
}

// GetTask returns a single task by ID.
func (tm *taskManager) GetTask(taskID string) (*models.Task, error) {
	task, err := tm.tasks.LoadTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", taskID, err)
	}
	return task, nil
}

// ListTasks returns every task on the board in display order.
func (tm *taskManager) ListTasks() ([]models.Task, error) {
	board, err := tm.boards.ReadBoard()
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	SortTasks(board.Items)
	return board.Items, nil
}

// CreateTask allocates an ID under the board lock, then persists the task
// file and the board.
func (tm *taskManager) CreateTask(input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("creating task: title must not be empty")
	}

	unlock, err := tm.locker.LockBoard()
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	defer func() { _ = unlock() }()

	board, err := tm.boards.ReadBoard()
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	columnID := input.ColumnID
	if columnID == "" {
		columnID = tm.cfg.Board.IntakeColumn
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	task := &models.Task{
		ID:        tm.ids.Allocate(board, tm.tasks.TaskExists),
		ColumnID:  columnID,
		Title:     title,
		Summary:   strings.TrimSpace(input.Summary),
		Priority:  priority,
		Status:    models.StatusTodo,
		CreatedAt: tm.timestamp(),
		ParentID:  input.ParentID,
		Tags:      input.Tags,
	}
	task.Normalize()

	if err := tm.tasks.SaveTask(task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	if err := tm.boards.WriteBoard(board); err != nil {
		return nil, fmt.Errorf("creating task %s: %w", task.ID, err)
	}

	tm.logEvent(EventTaskCreated, map[string]any{
		"task_id":  task.ID,
		"column":   task.ColumnID,
		"priority": string(task.Priority),
		"parent":   task.ParentID,
	})
	return task, nil
}

// PickNextTask selects the best unclaimed intake task without reserving it.
func (tm *taskManager) PickNextTask() (string, bool, error) {
	board, err := tm.boards.ReadBoard()
	if err != nil {
		return "", false, fmt.Errorf("picking next task: %w", err)
	}
	id, ok := PickNextTask(board.Items, tm.cfg.Board.IntakeColumn)
	return id, ok, nil
}

// ClaimTask assigns ownership and an active session to a task, promoting it
// out of the intake column. The task is re-read under its lock and the
// claim is refused when another session already holds it, unless forced.
func (tm *taskManager) ClaimTask(taskID string, driver Driver, opts ClaimOptions) (*ClaimResult, error) {
	result := &ClaimResult{}

	task, err := tm.mutate(taskID, "claiming", func(task *models.Task) error {
		if task.IsClaimed() && !opts.Force {
			if driver.SessionID == "" || task.ActiveSession.ID != driver.SessionID {
				return fmt.Errorf("%w by session %s (%s)", models.ErrAlreadyClaimed, task.ActiveSession.ID, task.ActiveSession.Agent)
			}
		}

		board, err := tm.boards.ReadBoard()
		if err != nil {
			return err
		}

		phase := task.ColumnID
		if col, ok := board.FindColumn(task.ColumnID); ok {
			phase = col.Name
		}

		task.Owner = tm.resolveOwner(opts.Owner)

		sessionID := driver.SessionID
		if sessionID == "" {
			sessionID = tm.newSessionID()
		}
		agent := driver.Agent
		if agent == "" {
			agent = "unknown"
		}
		task.ActiveSession = &models.ActiveSession{
			ID:        sessionID,
			Agent:     agent,
			Model:     driver.Model,
			Phase:     phase,
			StartedAt: tm.timestamp(),
		}

		if task.ColumnID == tm.cfg.Board.IntakeColumn {
			if target, ok := tm.workingColumn(board); ok {
				result.Promoted = true
				result.FromColumn = task.ColumnID
				task.ColumnID = target.ID
				task.ActiveSession.Phase = target.Name
			}
		}

		task.Status = models.StatusInProgress
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Task = task

	tm.logEvent(EventTaskClaimed, map[string]any{
		"task_id":    task.ID,
		"owner":      task.Owner,
		"agent":      task.ActiveSession.Agent,
		"model":      task.ActiveSession.Model,
		"session_id": task.ActiveSession.ID,
		"phase":      task.ActiveSession.Phase,
		"promoted":   result.Promoted,
	})

	if tm.cfg.HydrationEnabled && tm.hydrator != nil {
		if herr := tm.hydrator.Hydrate(task); herr != nil {
			result.Hydration = herr
			tm.logEvent(EventHydrationFailed, map[string]any{
				"task_id": task.ID,
				"error":   herr.Error(),
			})
		}
	}

	return result, nil
}

// ClaimNext claims the best available intake task, stepping over candidates
// another session claimed between selection and claim.
func (tm *taskManager) ClaimNext(driver Driver, opts ClaimOptions) (*ClaimResult, error) {
	board, err := tm.boards.ReadBoard()
	if err != nil {
		return nil, fmt.Errorf("claiming next task: %w", err)
	}

	opts.Force = false
	for _, candidate := range RankCandidates(board.Items, tm.cfg.Board.IntakeColumn) {
		res, err := tm.ClaimTask(candidate.ID, driver, opts)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, models.ErrAlreadyClaimed) || errors.Is(err, models.ErrNotFound) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("claiming next task: %w", models.ErrNoTaskAvailable)
}

// MoveTask reassigns the task's column. The target column is not validated
// and WIP limits are not enforced.
func (tm *taskManager) MoveTask(taskID, columnID string) (*models.Task, error) {
	var from string
	task, err := tm.mutate(taskID, "moving", func(task *models.Task) error {
		from = task.ColumnID
		task.ColumnID = columnID
		if task.ActiveSession != nil {
			task.ActiveSession.Phase = columnID
			if board, err := tm.boards.ReadBoard(); err == nil {
				if col, ok := board.FindColumn(columnID); ok {
					task.ActiveSession.Phase = col.Name
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tm.logEvent(EventTaskMoved, map[string]any{
		"task_id": task.ID,
		"from":    from,
		"to":      columnID,
	})
	return task, nil
}

// ReleaseTask ends the active session without finishing the task.
func (tm *taskManager) ReleaseTask(taskID string, opts ReleaseOptions) (*models.Task, error) {
	var sessionID string
	task, err := tm.mutate(taskID, "releasing", func(task *models.Task) error {
		if task.ActiveSession != nil {
			sessionID = task.ActiveSession.ID
		}
		if opts.SessionID != "" && sessionID != opts.SessionID {
			return models.ErrAlreadyClaimed
		}
		task.ActiveSession = nil
		if task.StatusOrDefault() == models.StatusInProgress {
			task.Status = models.StatusTodo
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tm.logEvent(EventTaskReleased, map[string]any{
		"task_id":    task.ID,
		"session_id": sessionID,
	})
	return task, nil
}

// BlockTask marks the task blocked with an optional reason.
func (tm *taskManager) BlockTask(taskID, reason string) (*models.Task, error) {
	task, err := tm.mutate(taskID, "blocking", func(task *models.Task) error {
		task.Status = models.StatusBlocked
		task.BlockedReason = strings.TrimSpace(reason)
		return nil
	})
	if err != nil {
		return nil, err
	}

	tm.logEvent(EventTaskBlocked, map[string]any{
		"task_id": task.ID,
		"reason":  task.BlockedReason,
	})
	return task, nil
}

// UnblockTask returns a blocked task to in_progress when a session holds it,
// otherwise to todo. Tasks that are not blocked are left unchanged.
func (tm *taskManager) UnblockTask(taskID string) (*models.Task, error) {
	changed := false
	task, err := tm.mutate(taskID, "unblocking", func(task *models.Task) error {
		if task.StatusOrDefault() != models.StatusBlocked {
			return nil
		}
		changed = true
		task.BlockedReason = ""
		if task.IsClaimed() {
			task.Status = models.StatusInProgress
		} else {
			task.Status = models.StatusTodo
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		tm.logEvent(EventTaskUnblocked, map[string]any{
			"task_id": task.ID,
			"status":  string(task.Status),
		})
	}
	return task, nil
}

// SubtasksBlockedReason prefixes the blocked reason DecomposeTask sets on a
// parent. Only parents still blocked for that reason are unblocked
// automatically when their subtasks finish.
const SubtasksBlockedReason = "waiting on subtasks"

// DecomposeTask creates child tasks in the intake column and blocks the
// parent until all of them are completed.
func (tm *taskManager) DecomposeTask(parentID string, children []CreateTaskInput) ([]*models.Task, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("decomposing task %s: no subtasks given", parentID)
	}
	if _, err := tm.tasks.LoadTask(parentID); err != nil {
		return nil, fmt.Errorf("decomposing task %s: %w", parentID, err)
	}

	created := make([]*models.Task, 0, len(children))
	for _, child := range children {
		child.ParentID = parentID
		child.ColumnID = ""
		task, err := tm.CreateTask(child)
		if err != nil {
			return created, fmt.Errorf("decomposing task %s: %w", parentID, err)
		}
		created = append(created, task)
	}

	_, err := tm.mutate(parentID, "decomposing", func(parent *models.Task) error {
		for _, child := range created {
			if !containsString(parent.DependsOn, child.ID) {
				parent.DependsOn = append(parent.DependsOn, child.ID)
			}
		}
		parent.Status = models.StatusBlocked
		parent.BlockedReason = SubtasksBlockedReason + ": " + strings.Join(parent.DependsOn, ", ")
		return nil
	})
	if err != nil {
		return created, err
	}

	ids := make([]string, len(created))
	for i, c := range created {
		ids[i] = c.ID
	}
	tm.logEvent(EventTaskDecomposed, map[string]any{
		"task_id":  parentID,
		"children": ids,
	})
	return created, nil
}

// CompleteTask marks the task done, moves it to the done column and ends its
// session. A blocked parent whose dependencies are now all done is unblocked.
func (tm *taskManager) CompleteTask(taskID string) (*models.Task, error) {
	task, err := tm.mutate(taskID, "completing", func(task *models.Task) error {
		task.Status = models.StatusDone
		task.ColumnID = tm.cfg.Board.DoneColumn
		task.ActiveSession = nil
		task.BlockedReason = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	tm.logEvent(EventTaskCompleted, map[string]any{
		"task_id": task.ID,
		"parent":  task.ParentID,
	})

	if task.ParentID != "" {
		if err := tm.unblockParentIfReady(task.ParentID); err != nil {
			return task, err
		}
	}
	return task, nil
}

func (tm *taskManager) unblockParentIfReady(parentID string) error {
	parent, err := tm.tasks.LoadTask(parentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("checking parent %s: %w", parentID, err)
	}
	if parent.StatusOrDefault() != models.StatusBlocked || !strings.HasPrefix(parent.BlockedReason, SubtasksBlockedReason) {
		return nil
	}
	for _, dep := range parent.DependsOn {
		t, err := tm.tasks.LoadTask(dep)
		if err != nil {
			// Archived dependencies no longer live on the board.
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return fmt.Errorf("checking parent %s: %w", parentID, err)
		}
		if s := t.StatusOrDefault(); s != models.StatusDone && s != models.StatusArchived {
			return nil
		}
	}
	_, err = tm.UnblockTask(parentID)
	return err
}

// mutate runs fn against a fresh copy of the task read under the task's
// lock, then persists it. The first load only establishes existence.
func (tm *taskManager) mutate(taskID, verb string, fn func(task *models.Task) error) (*models.Task, error) {
	if _, err := tm.tasks.LoadTask(taskID); err != nil {
		return nil, fmt.Errorf("%s task %s: %w", verb, taskID, err)
	}

	unlock, err := tm.locker.LockTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("%s task %s: %w", verb, taskID, err)
	}
	defer func() { _ = unlock() }()

	task, err := tm.tasks.LoadTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("%s task %s: %w", verb, taskID, err)
	}
	if err := fn(task); err != nil {
		return nil, fmt.Errorf("%s task %s: %w", verb, taskID, err)
	}
	if err := tm.tasks.SaveTask(task); err != nil {
		return nil, fmt.Errorf("%s task %s: %w", verb, taskID, err)
	}
	return task, nil
}

func (tm *taskManager) resolveOwner(override string) string {
	if o := strings.TrimSpace(override); o != "" {
		return o
	}
	if tm.owners != nil {
		if name := strings.TrimSpace(tm.owners.GetDeveloperName()); name != "" {
			return name
		}
	}
	return UnassignedOwner
}

// workingColumn is the auto-promotion target: the configured working column
// when present on the board, else the column right after intake.
func (tm *taskManager) workingColumn(board *models.Board) (models.Column, bool) {
	if id := tm.cfg.Board.WorkingColumn; id != "" {
		if col, ok := board.FindColumn(id); ok {
			return col, true
		}
	}
	return board.NextColumn(tm.cfg.Board.IntakeColumn)
}

func (tm *taskManager) timestamp() string {
	return tm.now().UTC().Format(time.RFC3339Nano)
}

func (tm *taskManager) logEvent(eventType string, data map[string]any) {
	if tm.events == nil {
		return
	}
	_ = tm.events.LogEvent(eventType, data)
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

type nopLocker struct{}

func (nopLocker) LockTask(string) (func() error, error) { return func() error { return nil }, nil }
func (nopLocker) LockBoard() (func() error, error)      { return func() error { return nil }, nil }
