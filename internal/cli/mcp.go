package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	devopsmcp "github.com/NunoMoura/dev-ops-sub000/internal/mcp"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the devops MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the devops MCP server on stdio",
	Long: `Start the devops MCP server on stdio transport.

The server exposes the board as MCP tools that AI coding assistants can call:
read_board, get_task, create_task, pick_next_task, claim_task, claim_next,
move_task, release_task, block_task, unblock_task, decompose_task,
complete_task, get_metrics, get_alerts.

Claims made through the server share one session ID: $DEVOPS_SESSION_ID
when set, otherwise a fresh one per server process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		driver := Driver
		if driver.SessionID == "" {
			driver.SessionID = uuid.NewString()
		}
		if driver.Agent == "" || driver.Agent == "cli" {
			driver.Agent = "mcp"
		}

		srv := devopsmcp.NewServer(TaskMgr, MetricsCalc, AlertEngine, driver, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
