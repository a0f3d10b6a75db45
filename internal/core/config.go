// Package core contains the board engine of dev-ops: task ID allocation,
// ranking and next-task selection, the claim/lifecycle engine, context
// hydration, and configuration.
package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/NunoMoura/dev-ops-sub000/internal/taskpath"
	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
	"github.com/spf13/viper"
)

// validPrefixPattern matches uppercase alphanumeric prefixes between 1 and 10 characters.
var validPrefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// ConfigurationManager loads and validates the project configuration.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// DeveloperNameProvider supplies the default human owner for claimed tasks.
type DeveloperNameProvider interface {
	GetDeveloperName() string
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading .dev_ops/config.yaml.
type viperConfigManager struct {
	root string
}

// NewConfigurationManager creates a ConfigurationManager for the workspace at root.
func NewConfigurationManager(root string) ConfigurationManager {
	return &viperConfigManager{root: root}
}

// DefaultGlobalConfig returns a GlobalConfig populated with the defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		TaskIDPrefix:     "TASK",
		TaskIDPadWidth:   3,
		HydrationEnabled: true,
		Board: models.BoardConfig{
			IntakeColumn:  models.ColumnBacklog,
			WorkingColumn: models.ColumnUnderstand,
			DoneColumn:    models.ColumnDone,
		},
		Alerts: models.AlertConfig{
			StaleSessionHours: 24,
			BlockedHours:      48,
		},
	}
}

// configFile mirrors the layout of config.yaml.
type configFile struct {
	Developer struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"developer"`
	TaskID struct {
		Prefix   string `mapstructure:"prefix"`
		PadWidth int    `mapstructure:"pad_width"`
	} `mapstructure:"task_id"`
	Hydration struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"hydration"`
	Board  models.BoardConfig `mapstructure:"board"`
	Alerts models.AlertConfig `mapstructure:"alerts"`
}

// LoadGlobalConfig reads config.yaml from the data directory. A missing
// file yields the defaults.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(taskpath.DataRoot(cm.root))

	v.SetDefault("developer.name", cfg.DeveloperName)
	v.SetDefault("task_id.prefix", cfg.TaskIDPrefix)
	v.SetDefault("task_id.pad_width", cfg.TaskIDPadWidth)
	v.SetDefault("hydration.enabled", cfg.HydrationEnabled)
	v.SetDefault("board.intake_column", cfg.Board.IntakeColumn)
	v.SetDefault("board.working_column", cfg.Board.WorkingColumn)
	v.SetDefault("board.done_column", cfg.Board.DoneColumn)
	v.SetDefault("alerts.stale_session_hours", cfg.Alerts.StaleSessionHours)
	v.SetDefault("alerts.blocked_hours", cfg.Alerts.BlockedHours)
	v.SetDefault("alerts.webhook_url", cfg.Alerts.WebhookURL)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config.yaml: %w", err)
	}

	var file configFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decoding config.yaml: %w", err)
	}
	cfg.DeveloperName = file.Developer.Name
	cfg.TaskIDPrefix = file.TaskID.Prefix
	cfg.TaskIDPadWidth = file.TaskID.PadWidth
	cfg.HydrationEnabled = file.Hydration.Enabled
	cfg.Board = file.Board
	cfg.Alerts = file.Alerts

	return cfg, nil
}

// ValidateConfig checks cfg for invalid values and reports all problems at once.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.TaskIDPrefix == "" {
		errs = append(errs, "task_id.prefix must not be empty")
	} else if !validPrefixPattern.MatchString(cfg.TaskIDPrefix) {
		errs = append(errs, fmt.Sprintf(
			"task_id.prefix %q is invalid, must match [A-Z0-9]{1,10}",
			cfg.TaskIDPrefix,
		))
	}

	if cfg.TaskIDPadWidth < 1 || cfg.TaskIDPadWidth > 10 {
		errs = append(errs, fmt.Sprintf(
			"task_id.pad_width %d is invalid, must be between 1 and 10",
			cfg.TaskIDPadWidth,
		))
	}

	if cfg.Board.IntakeColumn == "" {
		errs = append(errs, "board.intake_column must not be empty")
	}
	if cfg.Board.IntakeColumn != "" && cfg.Board.IntakeColumn == cfg.Board.WorkingColumn {
		errs = append(errs, "board.working_column must differ from board.intake_column")
	}

	if cfg.Alerts.StaleSessionHours < 0 {
		errs = append(errs, fmt.Sprintf("alerts.stale_session_hours must be non-negative, got %d", cfg.Alerts.StaleSessionHours))
	}
	if cfg.Alerts.BlockedHours < 0 {
		errs = append(errs, fmt.Sprintf("alerts.blocked_hours must be non-negative, got %d", cfg.Alerts.BlockedHours))
	}

	if u := cfg.Alerts.WebhookURL; u != "" && !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
		errs = append(errs, fmt.Sprintf("alerts.webhook_url %q must be an http(s) URL", u))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Settings is the effective configuration: the project file overlaid with
// the process environment.
type Settings struct {
	Global *models.GlobalConfig
	Env    Environment
}

// GetDeveloperName prefers DEVOPS_DEVELOPER over developer.name. It returns
// "" when neither is set.
func (s *Settings) GetDeveloperName() string {
	if name := strings.TrimSpace(s.Env.Developer); name != "" {
		return name
	}
	if s.Global != nil {
		return strings.TrimSpace(s.Global.DeveloperName)
	}
	return ""
}
