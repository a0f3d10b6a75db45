// Package internal provides the App struct that wires all components of
// dev-ops together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NunoMoura/dev-ops-sub000/internal/cli"
	"github.com/NunoMoura/dev-ops-sub000/internal/core"
	"github.com/NunoMoura/dev-ops-sub000/internal/observability"
	"github.com/NunoMoura/dev-ops-sub000/internal/storage"
	"github.com/NunoMoura/dev-ops-sub000/internal/taskpath"
	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
)

// App holds all service dependencies of dev-ops.
type App struct {
	BasePath string
	Env      core.Environment

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig
	Settings  *core.Settings

	// Storage layer
	TaskRepo storage.TaskRepository
	Boards   storage.BoardStore
	Contexts storage.ContextStore

	// Core services
	TaskMgr     core.TaskManager
	Hydrator    core.ContextHydrator
	Locker      core.Locker
	ProjectInit core.ProjectInitializer

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components. basePath is the workspace root,
// the directory containing .dev_ops.
func NewApp(basePath string, env core.Environment) (*App, error) {
	app := &App{BasePath: basePath, Env: env}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	globalCfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(globalCfg); err != nil {
		return nil, err
	}
	app.Config = globalCfg
	app.Settings = &core.Settings{Global: globalCfg, Env: env}

	// --- Observability ---
	// The log lives inside .dev_ops, so it is only opened once the
	// workspace exists; "board init" must not fail on a bare directory.
	if _, statErr := os.Stat(taskpath.DataRoot(basePath)); statErr == nil {
		app.EventLog, err = observability.NewJSONLEventLog(taskpath.EventsFile(basePath))
		if err != nil {
			// Non-fatal: disable observability if log can't be created.
			app.EventLog = nil
		}
	}
	app.AlertEngine = observability.NewAlertEngine(observability.ThresholdsFromConfig(globalCfg.Alerts))
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if globalCfg.Alerts.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(globalCfg.Alerts.WebhookURL)
	}

	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog, env: env}
	}

	// --- Storage layer ---
	app.TaskRepo = storage.NewTaskRepository(basePath)
	app.Boards = storage.NewBoardStore(basePath, app.TaskRepo, skipHandler(evtAdapter))
	app.Contexts = storage.NewContextStore(basePath)

	// --- Core services ---
	app.Locker = core.NewFileLocker(basePath)
	app.Hydrator = core.NewContextHydrator(basePath, core.NewProjectAuditor(basePath), app.Contexts)
	app.TaskMgr = core.NewTaskManager(core.TaskManagerDeps{
		Boards:   app.Boards,
		Tasks:    app.TaskRepo,
		Hydrator: app.Hydrator,
		Owners:   app.Settings,
		Events:   evtAdapter,
		Locker:   app.Locker,
		Config:   globalCfg,
	})
	app.ProjectInit = core.NewProjectInitializer(func(root string) core.BoardStore {
		return storage.NewBoardStore(root, storage.NewTaskRepository(root), nil)
	})

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.TaskMgr = app.TaskMgr
	cli.ProjectInit = app.ProjectInit
	cli.Driver = env.Driver()

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the workspace root. DEVOPS_ROOT wins; otherwise
// the current directory tree is walked upwards looking for .dev_ops, falling
// back to the current directory.
func ResolveBasePath(env core.Environment) string {
	if env.Root != "" {
		return env.Root
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := cwd; ; {
		if info, err := os.Stat(taskpath.DataRoot(dir)); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger. Events
// are stamped with DEVOPS_DEVELOPER when it is set.
type eventLogAdapter struct {
	log observability.EventLog
	env core.Environment
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	level := observability.LevelInfo
	switch eventType {
	case core.EventHydrationFailed, core.EventRecordSkipped:
		level = observability.LevelWarn
	}

	enriched := make(map[string]any, len(data)+1)
	for k, v := range data {
		enriched[k] = v
	}
	if a.env.Developer != "" {
		enriched["developer"] = a.env.Developer
	}

	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   level,
		Type:    eventType,
		Message: eventType,
		Data:    enriched,
	})
}

// skipHandler reports task records that board hydration had to skip.
func skipHandler(events core.EventLogger) storage.SkipHandler {
	return func(rec storage.SkippedRecord) {
		if events == nil {
			return
		}
		_ = events.LogEvent(core.EventRecordSkipped, map[string]any{
			"task_id": rec.TaskID,
			"error":   rec.Err.Error(),
		})
	}
}
