package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NunoMoura/dev-ops-sub000/internal/storage"
	"github.com/NunoMoura/dev-ops-sub000/internal/taskpath"
	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
)

// recordingLogger implements EventLogger for testing.
type recordingLogger struct {
	mu     sync.Mutex
	events []string
	data   []map[string]any
}

func (l *recordingLogger) LogEvent(eventType string, data map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, eventType)
	l.data = append(l.data, data)
	return nil
}

func (l *recordingLogger) count(eventType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e == eventType {
			n++
		}
	}
	return n
}

func (l *recordingLogger) last(eventType string) map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i] == eventType {
			return l.data[i]
		}
	}
	return nil
}

type staticOwner string

func (o staticOwner) GetDeveloperName() string { return string(o) }

// failingHydrator always reports a hydration failure.
type failingHydrator struct{}

func (failingHydrator) Hydrate(task *models.Task) *HydrationError {
	return &HydrationError{TaskID: task.ID, Err: errors.New("disk full")}
}

type testEnv struct {
	root   string
	tm     TaskManager
	repo   storage.TaskRepository
	boards storage.BoardStore
	events *recordingLogger
}

func setupTaskManager(t *testing.T, mutate ...func(*TaskManagerDeps)) *testEnv {
	t.Helper()
	root := t.TempDir()
	repo := storage.NewTaskRepository(root)
	boards := storage.NewBoardStore(root, repo, nil)
	events := &recordingLogger{}

	deps := TaskManagerDeps{
		Boards:   boards,
		Tasks:    repo,
		Hydrator: NewContextHydrator(root, NewProjectAuditor(root), storage.NewContextStore(root)),
		Owners:   staticOwner("Alice"),
		Events:   events,
		Locker:   NewFileLocker(root),
		Config:   DefaultGlobalConfig(),
	}
	for _, m := range mutate {
		m(&deps)
	}

	var seq int
	var mu sync.Mutex
	tm := NewTaskManager(deps,
		WithNow(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
		WithSessionIDs(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("session-%d", seq)
		}),
	)
	return &testEnv{root: root, tm: tm, repo: repo, boards: boards, events: events}
}

func (e *testEnv) create(t *testing.T, title string, priority models.Priority) *models.Task {
	t.Helper()
	task, err := e.tm.CreateTask(CreateTaskInput{Title: title, Priority: priority})
	if err != nil {
		t.Fatalf("CreateTask(%q): %v", title, err)
	}
	return task
}

func TestCreateTask(t *testing.T) {
	env := setupTaskManager(t)

	task, err := env.tm.CreateTask(CreateTaskInput{
		Title:   "  Wire the board  ",
		Summary: "first task",
		Tags:    []string{"infra"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if task.ID != "TASK-001" {
		t.Errorf("ID = %q, want TASK-001", task.ID)
	}
	if task.Title != "Wire the board" {
		t.Errorf("Title = %q, want trimmed title", task.Title)
	}
	if task.ColumnID != models.ColumnBacklog {
		t.Errorf("ColumnID = %q, want intake column", task.ColumnID)
	}
	if task.Status != models.StatusTodo {
		t.Errorf("Status = %q, want todo", task.Status)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("Priority = %q, want medium", task.Priority)
	}
	if task.CreatedAt == "" || task.UpdatedAt == "" {
		t.Errorf("timestamps not set: created=%q updated=%q", task.CreatedAt, task.UpdatedAt)
	}

	if _, err := os.Stat(taskpath.TaskFile(env.root, "TASK-001")); err != nil {
		t.Errorf("task file not written: %v", err)
	}
	if _, err := os.Stat(taskpath.BoardFile(env.root)); err != nil {
		t.Errorf("board file not written: %v", err)
	}
	if env.events.count(EventTaskCreated) != 1 {
		t.Errorf("expected one %s event", EventTaskCreated)
	}
}

func TestCreateTask_EmptyTitle(t *testing.T) {
	env := setupTaskManager(t)
	if _, err := env.tm.CreateTask(CreateTaskInput{Title: "   "}); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestCreateTask_ExplicitColumn(t *testing.T) {
	env := setupTaskManager(t)
	task, err := env.tm.CreateTask(CreateTaskInput{Title: "x", ColumnID: models.ColumnPlan, Priority: models.PriorityHigh})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ColumnID != models.ColumnPlan || task.Priority != models.PriorityHigh {
		t.Errorf("got column %q priority %q", task.ColumnID, task.Priority)
	}
}

func TestCreateTask_ReusesFreedID(t *testing.T) {
	env := setupTaskManager(t)
	env.create(t, "one", "")
	env.create(t, "two", "")
	env.create(t, "three", "")

	if err := os.RemoveAll(taskpath.TaskDir(env.root, "TASK-002")); err != nil {
		t.Fatalf("removing task dir: %v", err)
	}

	if got := env.create(t, "four", ""); got.ID != "TASK-002" {
		t.Errorf("ID = %q, want TASK-002", got.ID)
	}
}

func TestCreateTask_StepsOverCorruptTaskFile(t *testing.T) {
	env := setupTaskManager(t)
	path := taskpath.TaskFile(env.root, "TASK-001")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := env.create(t, "fresh", ""); got.ID != "TASK-002" {
		t.Errorf("ID = %q, want TASK-002 (TASK-001 is occupied by a corrupt file)", got.ID)
	}
}

func TestCreateTask_ConcurrentCreatorsGetDistinctIDs(t *testing.T) {
	env := setupTaskManager(t)

	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := env.tm.CreateTask(CreateTaskInput{Title: fmt.Sprintf("task %d", i)})
			errs[i] = err
			if err == nil {
				ids[i] = task.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("creator %d: %v", i, errs[i])
		}
		if seen[ids[i]] {
			t.Fatalf("duplicate ID %s", ids[i])
		}
		seen[ids[i]] = true
	}
}

func TestClaimTask_PromotesOutOfIntake(t *testing.T) {
	env := setupTaskManager(t)
	created := env.create(t, "claim me", models.PriorityHigh)

	res, err := env.tm.ClaimTask(created.ID, Driver{Agent: "claude", Model: "opus"}, ClaimOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	task := res.Task
	if task.ColumnID != models.ColumnUnderstand {
		t.Errorf("ColumnID = %q, want %q", task.ColumnID, models.ColumnUnderstand)
	}
	if task.Status != models.StatusInProgress {
		t.Errorf("Status = %q, want in_progress", task.Status)
	}
	if task.Owner != "Alice" {
		t.Errorf("Owner = %q, want Alice", task.Owner)
	}
	if !res.Promoted || res.FromColumn != models.ColumnBacklog {
		t.Errorf("Promoted = %v from %q", res.Promoted, res.FromColumn)
	}

	s := task.ActiveSession
	if s == nil {
		t.Fatal("ActiveSession not set")
	}
	if s.ID != "session-1" || s.Agent != "claude" || s.Model != "opus" {
		t.Errorf("unexpected session: %+v", s)
	}
	if s.Phase != "Understand" {
		t.Errorf("Phase = %q, want Understand", s.Phase)
	}
	if s.StartedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("StartedAt = %q", s.StartedAt)
	}

	persisted, err := env.repo.LoadTask(created.ID)
	if err != nil {
		t.Fatalf("LoadTask: %v", err)
	}
	if !persisted.IsClaimed() || persisted.ColumnID != models.ColumnUnderstand {
		t.Errorf("claim not persisted: %+v", persisted)
	}
	if env.events.count(EventTaskClaimed) != 1 {
		t.Errorf("expected one %s event", EventTaskClaimed)
	}
}

func TestClaimTask_OutsideIntakeKeepsColumn(t *testing.T) {
	env := setupTaskManager(t)
	created, err := env.tm.CreateTask(CreateTaskInput{Title: "x", ColumnID: models.ColumnBuild})
	if err != nil {
		t.Fatal(err)
	}

	res, err := env.tm.ClaimTask(created.ID, Driver{}, ClaimOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Promoted || res.Task.ColumnID != models.ColumnBuild {
		t.Errorf("task should stay in build, got %q promoted=%v", res.Task.ColumnID, res.Promoted)
	}
	if res.Task.ActiveSession.Phase != "Build" {
		t.Errorf("Phase = %q, want Build", res.Task.ActiveSession.Phase)
	}
	if res.Task.ActiveSession.Agent != "unknown" {
		t.Errorf("Agent = %q, want unknown", res.Task.ActiveSession.Agent)
	}
}

func TestClaimTask_WorkingColumnMissingFallsBackToNext(t *testing.T) {
	env := setupTaskManager(t, func(d *TaskManagerDeps) {
		cfg := DefaultGlobalConfig()
		cfg.Board.WorkingColumn = "col-nowhere"
		d.Config = cfg
	})
	created := env.create(t, "x", "")

	res, err := env.tm.ClaimTask(created.ID, Driver{}, ClaimOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Task.ColumnID != models.ColumnUnderstand {
		t.Errorf("ColumnID = %q, want next column by position", res.Task.ColumnID)
	}
}

func TestClaimTask_NotFound(t *testing.T) {
	env := setupTaskManager(t)
	_, err := env.tm.ClaimTask("TASK-404", Driver{}, ClaimOptions{})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, statErr := os.Stat(taskpath.TaskDir(env.root, "TASK-404")); !os.IsNotExist(statErr) {
		t.Error("claiming a missing task must not create its directory")
	}
}

func TestClaimTask_AlreadyClaimed(t *testing.T) {
	env := setupTaskManager(t)
	created := env.create(t, "x", "")

	if _, err := env.tm.ClaimTask(created.ID, Driver{Agent: "a", SessionID: "s-a"}, ClaimOptions{}); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	_, err := env.tm.ClaimTask(created.ID, Driver{Agent: "b", SessionID: "s-b"}, ClaimOptions{})
	if !errors.Is(err, models.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}

	// Same session may re-claim.
	if _, err := env.tm.ClaimTask(created.ID, Driver{Agent: "a", SessionID: "s-a"}, ClaimOptions{}); err != nil {
		t.Errorf("re-claim by same session: %v", err)
	}

	res, err := env.tm.ClaimTask(created.ID, Driver{Agent: "b", SessionID: "s-b"}, ClaimOptions{Force: true})
	if err != nil {
		t.Fatalf("forced claim: %v", err)
	}
	if res.Task.ActiveSession.ID != "s-b" {
		t.Errorf("session = %q, want s-b", res.Task.ActiveSession.ID)
	}
}

func TestClaimTask_ConcurrentClaimsOneWinner(t *testing.T) {
	env := setupTaskManager(t)
	created := env.create(t, "contested", "")

	const n = 6
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.tm.ClaimTask(created.ID, Driver{Agent: "agent", SessionID: fmt.Sprintf("s-%d", i)}, ClaimOptions{})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, models.ErrAlreadyClaimed):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("%d claims succeeded, want exactly 1", wins)
	}
}

func TestClaimTask_OwnerResolution(t *testing.T) {
	t.Run("override", func(t *testing.T) {
		env := setupTaskManager(t)
		created := env.create(t, "x", "")
		res, err := env.tm.ClaimTask(created.ID, Driver{}, ClaimOptions{Owner: "Bob"})
		if err != nil {
			t.Fatal(err)
		}
		if res.Task.Owner != "Bob" {
			t.Errorf("Owner = %q, want Bob", res.Task.Owner)
		}
	})

	t.Run("unassigned", func(t *testing.T) {
		env := setupTaskManager(t, func(d *TaskManagerDeps) { d.Owners = staticOwner("") })
		created := env.create(t, "x", "")
		res, err := env.tm.ClaimTask(created.ID, Driver{}, ClaimOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if res.Task.Owner != UnassignedOwner {
			t.Errorf("Owner = %q, want %q", res.Task.Owner, UnassignedOwner)
		}
	})
}

func TestClaimTask_HydratesContext(t *testing.T) {
	env := setupTaskManager(t)
	if err := os.WriteFile(filepath.Join(env.root, "README.md"), []byte("# demo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	created := env.create(t, "x", "")

	res, err := env.tm.ClaimTask(created.ID, Driver{SessionID: "s1"}, ClaimOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Hydration != nil {
		t.Fatalf("unexpected hydration error: %v", res.Hydration)
	}
	if _, err := env.tm.ClaimTask(created.ID, Driver{SessionID: "s1"}, ClaimOptions{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(taskpath.ContextFile(env.root, created.ID))
	if err != nil {
		t.Fatalf("context file not written: %v", err)
	}
	content := string(data)
	if strings.Count(content, BaselineHeading) != 1 {
		t.Errorf("baseline heading should appear exactly once:\n%s", content)
	}
	if !strings.Contains(content, "README.md") {
		t.Errorf("context should link the README:\n%s", content)
	}
}

func TestClaimTask_HydrationFailureIsNotFatal(t *testing.T) {
	env := setupTaskManager(t, func(d *TaskManagerDeps) { d.Hydrator = failingHydrator{} })
	created := env.create(t, "x", "")

	res, err := env.tm.ClaimTask(created.ID, Driver{}, ClaimOptions{})
	if err != nil {
		t.Fatalf("claim should succeed despite hydration failure: %v", err)
	}
	if res.Hydration == nil || !strings.Contains(res.Hydration.Error(), "disk full") {
		t.Errorf("expected hydration error, got %v", res.Hydration)
	}
	if !res.Task.IsClaimed() {
		t.Error("task should be claimed")
	}
	if env.events.count(EventHydrationFailed) != 1 {
		t.Errorf("expected one %s event", EventHydrationFailed)
	}
}

func TestClaimTask_HydrationDisabled(t *testing.T) {
	env := setupTaskManager(t, func(d *TaskManagerDeps) {
		cfg := DefaultGlobalConfig()
		cfg.HydrationEnabled = false
		d.Config = cfg
		d.Hydrator = failingHydrator{}
	})
	created := env.create(t, "x", "")

	res, err := env.tm.ClaimTask(created.ID, Driver{}, ClaimOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Hydration != nil {
		t.Errorf("hydration should not run when disabled, got %v", res.Hydration)
	}
}

func TestPickNextTask(t *testing.T) {
	env := setupTaskManager(t)
	env.create(t, "low", models.PriorityLow)
	high := env.create(t, "high", models.PriorityHigh)

	id, ok, err := env.tm.PickNextTask()
	if err != nil {
		t.Fatal(err)
	}
	if !ok || id != high.ID {
		t.Errorf("PickNextTask() = %q, %v; want %s", id, ok, high.ID)
	}
}

func TestClaimNext(t *testing.T) {
	env := setupTaskManager(t)
	low := env.create(t, "low", models.PriorityLow)
	high := env.create(t, "high", models.PriorityHigh)

	first, err := env.tm.ClaimNext(Driver{Agent: "a"}, ClaimOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if first.Task.ID != high.ID {
		t.Errorf("first claim = %s, want %s", first.Task.ID, high.ID)
	}

	second, err := env.tm.ClaimNext(Driver{Agent: "b"}, ClaimOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Task.ID != low.ID {
		t.Errorf("second claim = %s, want %s", second.Task.ID, low.ID)
	}

	_, err = env.tm.ClaimNext(Driver{Agent: "c"}, ClaimOptions{})
	if !errors.Is(err, models.ErrNoTaskAvailable) {
		t.Errorf("expected ErrNoTaskAvailable, got %v", err)
	}
}

// snapshotBoards serves a board captured before other sessions claimed,
// as a reader racing a claimer would see it.
type snapshotBoards struct {
	BoardStore
	snapshot *models.Board
}

func (s *snapshotBoards) ReadBoard() (*models.Board, error) {
	b := *s.snapshot
	b.Items = append([]models.Task(nil), s.snapshot.Items...)
	return &b, nil
}

func TestClaimNext_SkipsTaskClaimedSinceRead(t *testing.T) {
	env := setupTaskManager(t)
	high := env.create(t, "high", models.PriorityHigh)
	medium := env.create(t, "medium", models.PriorityMedium)

	snapshot, err := env.boards.ReadBoard()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.tm.ClaimTask(high.ID, Driver{SessionID: "other"}, ClaimOptions{}); err != nil {
		t.Fatal(err)
	}

	stale := NewTaskManager(TaskManagerDeps{
		Boards: &snapshotBoards{BoardStore: env.boards, snapshot: snapshot},
		Tasks:  env.repo,
		Owners: staticOwner("Alice"),
		Locker: NewFileLocker(env.root),
	})
	res, err := stale.ClaimNext(Driver{SessionID: "mine"}, ClaimOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Task.ID != medium.ID {
		t.Errorf("claimed %s, want %s", res.Task.ID, medium.ID)
	}
}

func TestMoveTask(t *testing.T) {
	env := setupTaskManager(t)
	created := env.create(t, "x", "")
	if _, err := env.tm.ClaimTask(created.ID, Driver{}, ClaimOptions{}); err != nil {
		t.Fatal(err)
	}

	moved, err := env.tm.MoveTask(created.ID, models.ColumnVerify)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.ColumnID != models.ColumnVerify {
		t.Errorf("ColumnID = %q, want col-verify", moved.ColumnID)
	}
	if moved.ActiveSession.Phase != "Verify" {
		t.Errorf("Phase = %q, want Verify", moved.ActiveSession.Phase)
	}

	ev := env.events.last(EventTaskMoved)
	if ev == nil || ev["from"] != models.ColumnUnderstand || ev["to"] != models.ColumnVerify {
		t.Errorf("unexpected move event: %v", ev)
	}
}

func TestMoveTask_UnknownColumnAccepted(t *testing.T) {
	env := setupTaskManager(t)
	created := env.create(t, "x", "")
	moved, err := env.tm.MoveTask(created.ID, "col-anywhere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.ColumnID != "col-anywhere" {
		t.Errorf("ColumnID = %q", moved.ColumnID)
	}
}

func TestMoveTask_NotFound(t *testing.T) {
	env := setupTaskManager(t)
	if _, err := env.tm.MoveTask("TASK-999", models.ColumnPlan); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReleaseTask(t *testing.T) {
	env := setupTaskManager(t)
	created := env.create(t, "x", "")
	if _, err := env.tm.ClaimTask(created.ID, Driver{SessionID: "s1"}, ClaimOptions{}); err != nil {
		t.Fatal(err)
	}

	released, err := env.tm.ReleaseTask(created.ID, ReleaseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if released.IsClaimed() {
		t.Error("session should be cleared")
	}
	if released.Status != models.StatusTodo {
		t.Errorf("Status = %q, want todo", released.Status)
	}
	if env.events.last(EventTaskReleased)["session_id"] != "s1" {
		t.Error("release event should carry the ended session")
	}

	// A released task can be claimed by another session.
	if _, err := env.tm.ClaimTask(created.ID, Driver{SessionID: "s2"}, ClaimOptions{}); err != nil {
		t.Errorf("claim after release: %v", err)
	}
}

func TestReleaseTask_ExpectedSession(t *testing.T) {
	env := setupTaskManager(t)
	created := env.create(t, "contested", "")
	if _, err := env.tm.ClaimTask(created.ID, Driver{SessionID: "s1"}, ClaimOptions{}); err != nil {
		t.Fatal(err)
	}
	// s2 takes the task over before s1's release arrives.
	if _, err := env.tm.ClaimTask(created.ID, Driver{SessionID: "s2"}, ClaimOptions{Force: true}); err != nil {
		t.Fatal(err)
	}

	_, err := env.tm.ReleaseTask(created.ID, ReleaseOptions{SessionID: "s1"})
	if !errors.Is(err, models.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	got, err := env.tm.GetTask(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ActiveSession == nil || got.ActiveSession.ID != "s2" || got.Status != models.StatusInProgress {
		t.Errorf("s2's claim was disturbed: status=%q session=%+v", got.Status, got.ActiveSession)
	}

	released, err := env.tm.ReleaseTask(created.ID, ReleaseOptions{SessionID: "s2"})
	if err != nil {
		t.Fatalf("holder release: %v", err)
	}
	if released.ActiveSession != nil {
		t.Error("session should be cleared")
	}
}

func TestBlockUnblock(t *testing.T) {
	env := setupTaskManager(t)
	claimed := env.create(t, "claimed", "")
	idle := env.create(t, "idle", "")
	if _, err := env.tm.ClaimTask(claimed.ID, Driver{}, ClaimOptions{}); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{claimed.ID, idle.ID} {
		blocked, err := env.tm.BlockTask(id, " waiting on API keys ")
		if err != nil {
			t.Fatal(err)
		}
		if blocked.Status != models.StatusBlocked || blocked.BlockedReason != "waiting on API keys" {
			t.Errorf("%s: status %q reason %q", id, blocked.Status, blocked.BlockedReason)
		}
	}

	u1, err := env.tm.UnblockTask(claimed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if u1.Status != models.StatusInProgress || u1.BlockedReason != "" {
		t.Errorf("claimed task unblocked to %q (reason %q)", u1.Status, u1.BlockedReason)
	}

	u2, err := env.tm.UnblockTask(idle.ID)
	if err != nil {
		t.Fatal(err)
	}
	if u2.Status != models.StatusTodo {
		t.Errorf("idle task unblocked to %q, want todo", u2.Status)
	}

	if env.events.count(EventTaskBlocked) != 2 || env.events.count(EventTaskUnblocked) != 2 {
		t.Errorf("unexpected events: %v", env.events.events)
	}
}

func TestUnblockTask_NotBlockedIsNoop(t *testing.T) {
	env := setupTaskManager(t)
	created := env.create(t, "x", "")
	got, err := env.tm.UnblockTask(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusTodo {
		t.Errorf("Status = %q", got.Status)
	}
	if env.events.count(EventTaskUnblocked) != 0 {
		t.Error("no unblock event expected")
	}
}

func TestDecomposeAndComplete(t *testing.T) {
	env := setupTaskManager(t)
	parent := env.create(t, "epic", models.PriorityHigh)

	children, err := env.tm.DecomposeTask(parent.ID, []CreateTaskInput{
		{Title: "part one"},
		{Title: "part two", Priority: models.PriorityLow, ColumnID: models.ColumnBuild},
	})
	if err != nil {
		t.Fatalf("DecomposeTask: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("got %d children", len(children))
	}
	for _, c := range children {
		if c.ParentID != parent.ID || c.ColumnID != models.ColumnBacklog {
			t.Errorf("child %s: parent %q column %q", c.ID, c.ParentID, c.ColumnID)
		}
	}

	p, err := env.tm.GetTask(parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.StatusBlocked || len(p.DependsOn) != 2 {
		t.Fatalf("parent status %q dependsOn %v", p.Status, p.DependsOn)
	}
	if !strings.HasPrefix(p.BlockedReason, SubtasksBlockedReason) || !strings.Contains(p.BlockedReason, children[1].ID) {
		t.Errorf("BlockedReason = %q", p.BlockedReason)
	}

	done, err := env.tm.CompleteTask(children[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != models.StatusDone || done.ColumnID != models.ColumnDone || done.IsClaimed() {
		t.Errorf("completed child: %+v", done)
	}

	p, _ = env.tm.GetTask(parent.ID)
	if p.Status != models.StatusBlocked {
		t.Fatalf("parent should stay blocked while a child is open, got %q", p.Status)
	}

	if _, err := env.tm.CompleteTask(children[1].ID); err != nil {
		t.Fatal(err)
	}
	p, _ = env.tm.GetTask(parent.ID)
	if p.Status != models.StatusTodo || p.BlockedReason != "" {
		t.Errorf("parent should be unblocked, got %q (%q)", p.Status, p.BlockedReason)
	}
}

func TestCompleteTask_KeepsManualBlockOnParent(t *testing.T) {
	env := setupTaskManager(t)
	parent := env.create(t, "epic", "")
	children, err := env.tm.DecomposeTask(parent.ID, []CreateTaskInput{{Title: "only part"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.tm.BlockTask(parent.ID, "waiting on legal review"); err != nil {
		t.Fatal(err)
	}

	if _, err := env.tm.CompleteTask(children[0].ID); err != nil {
		t.Fatal(err)
	}
	p, err := env.tm.GetTask(parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.StatusBlocked || p.BlockedReason != "waiting on legal review" {
		t.Errorf("manual block was lifted: status %q reason %q", p.Status, p.BlockedReason)
	}
}

func TestDecomposeTask_Errors(t *testing.T) {
	env := setupTaskManager(t)
	if _, err := env.tm.DecomposeTask("TASK-999", []CreateTaskInput{{Title: "x"}}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	parent := env.create(t, "p", "")
	if _, err := env.tm.DecomposeTask(parent.ID, nil); err == nil {
		t.Error("expected error for empty subtask list")
	}
}

func TestListTasks_DisplayOrder(t *testing.T) {
	env := setupTaskManager(t)
	backlog := env.create(t, "backlog", models.PriorityHigh)
	build, err := env.tm.CreateTask(CreateTaskInput{Title: "build", ColumnID: models.ColumnBuild, Priority: models.PriorityLow})
	if err != nil {
		t.Fatal(err)
	}

	tasks, err := env.tm.ListTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || tasks[0].ID != build.ID || tasks[1].ID != backlog.ID {
		t.Errorf("unexpected order: %v", tasks)
	}
}

func TestNewTaskManager_NilCollaborators(t *testing.T) {
	root := t.TempDir()
	repo := storage.NewTaskRepository(root)
	tm := NewTaskManager(TaskManagerDeps{
		Boards: storage.NewBoardStore(root, repo, nil),
		Tasks:  repo,
	})

	task, err := tm.CreateTask(CreateTaskInput{Title: "bare"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := tm.ClaimTask(task.ID, Driver{}, ClaimOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Task.Owner != UnassignedOwner {
		t.Errorf("Owner = %q", res.Task.Owner)
	}
	if res.Task.ActiveSession.ID == "" {
		t.Error("a session id should be generated")
	}
}
