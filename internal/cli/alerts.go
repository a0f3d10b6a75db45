package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NunoMoura/dev-ops-sub000/internal/observability"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	alertsOutput string
	alertsNotify bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active board alerts",
	Long: `Evaluate alert conditions against the live board and display any triggered alerts.

Alerts check for sessions held too long, tasks blocked too long, and columns
holding more open tasks than their WIP limit. With --notify the alerts are
also posted to the webhook configured as alerts.webhook_url.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (observability may be disabled)")
		}
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		if err := validateOutput(alertsOutput); err != nil {
			return err
		}

		board, err := TaskMgr.ReadBoard()
		if err != nil {
			return fmt.Errorf("reading board: %w", err)
		}
		alerts, err := AlertEngine.Evaluate(board)
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		if alertsNotify {
			if Notifier == nil {
				return fmt.Errorf("notifier not configured (set alerts.webhook_url in .dev_ops/config.yaml)")
			}
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, cancel := context.WithTimeout(parent, 30*time.Second)
			defer cancel()
			if err := Notifier.Notify(ctx, alerts); err != nil {
				return fmt.Errorf("sending alerts: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		if alertsOutput != outputTable {
			if alerts == nil {
				alerts = []observability.Alert{}
			}
			return writeStructured(out, alertsOutput, alerts)
		}

		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}

		fmt.Fprintf(out, "%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			severity := severityStyle(alert.Severity).Render(strings.ToUpper(string(alert.Severity)))
			fmt.Fprintf(out, "  [%s] %s\n", severity, alert.Message)
			fmt.Fprintf(out, "         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}

		return nil
	},
}

func severityStyle(s observability.AlertSeverity) lipgloss.Style {
	switch s {
	case observability.SeverityHigh:
		return severityHigh
	case observability.SeverityMedium:
		return severityMedium
	}
	return severityLow
}

func init() {
	alertsCmd.Flags().StringVarP(&alertsOutput, "output", "o", outputTable, "Output format: table, json or yaml")
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Post the alerts to the configured webhook")
	rootCmd.AddCommand(alertsCmd)
}
