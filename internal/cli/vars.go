package cli

import (
	"github.com/NunoMoura/dev-ops-sub000/internal/core"
	"github.com/NunoMoura/dev-ops-sub000/internal/observability"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath    string
	TaskMgr     core.TaskManager
	ProjectInit core.ProjectInitializer

	// Driver identifies the agent session behind CLI claims.
	Driver core.Driver
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)
