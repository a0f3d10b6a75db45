package models

// BoardConfig names the columns that drive intake, auto-promotion and completion.
type BoardConfig struct {
	IntakeColumn  string `yaml:"intake_column" mapstructure:"intake_column"`
	WorkingColumn string `yaml:"working_column" mapstructure:"working_column"`
	DoneColumn    string `yaml:"done_column" mapstructure:"done_column"`
}

// AlertConfig holds thresholds for board alerts.
type AlertConfig struct {
	StaleSessionHours int    `yaml:"stale_session_hours" mapstructure:"stale_session_hours"`
	BlockedHours      int    `yaml:"blocked_hours" mapstructure:"blocked_hours"`
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// GlobalConfig holds project-wide settings read from .dev_ops/config.yaml via
// Viper. The flat fields map to the nested keys developer.name,
// task_id.prefix, task_id.pad_width and hydration.enabled.
type GlobalConfig struct {
	DeveloperName    string
	TaskIDPrefix     string
	TaskIDPadWidth   int
	HydrationEnabled bool
	Board            BoardConfig
	Alerts           AlertConfig
}
