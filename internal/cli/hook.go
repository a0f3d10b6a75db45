package cli

import (
	"errors"
	"fmt"

	"github.com/NunoMoura/dev-ops-sub000/internal/hooks"
	"github.com/NunoMoura/dev-ops-sub000/pkg/models"

	"github.com/spf13/cobra"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle agent session hook events",
	Long: `Process agent lifecycle hook events. Each subcommand reads the hook's
JSON payload from stdin.

Hooks never fail the calling agent: problems are reported on stderr and the
command still exits successfully.`,
}

var hookSessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Print the next available task for a starting session",
	Long: `Print the task an agent should pick up next. Agents that inject hook
output into their context see the suggestion when a session starts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := hooks.ParseStdin[hooks.SessionStartInput](cmd.InOrStdin()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "devops hook: %v\n", err)
			return nil
		}
		if TaskMgr == nil {
			return nil
		}

		taskID, ok, err := TaskMgr.PickNextTask()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "devops hook: %v\n", err)
			return nil
		}
		if !ok {
			return nil
		}
		task, err := TaskMgr.GetTask(taskID)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "devops hook: %v\n", err)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Next task on the dev-ops board: %s %q (%s, %s).\n",
			task.ID, task.Title, task.PriorityOrDefault(), task.ColumnID)
		fmt.Fprintf(cmd.OutOrStdout(), "Claim it with: devops task claim %s\n", task.ID)
		return nil
	},
}

var hookSessionEndCmd = &cobra.Command{
	Use:   "session-end",
	Short: "Release tasks still claimed by an ending session",
	Long: `Release every task whose active session matches the ending session so
other agents can pick the work up. The session ID comes from the payload's
session_id, falling back to DEVOPS_SESSION_ID.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := hooks.ParseStdin[hooks.SessionEndInput](cmd.InOrStdin())
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "devops hook: %v\n", err)
			return nil
		}
		if TaskMgr == nil {
			return nil
		}

		sessionID := input.SessionID
		if sessionID == "" {
			sessionID = Driver.SessionID
		}
		if sessionID == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "devops hook: no session id in payload or environment")
			return nil
		}

		released, err := hooks.ReleaseSession(TaskMgr, sessionID)
		for _, task := range released {
			fmt.Fprintf(cmd.OutOrStdout(), "Released %s (%s)\n", task.ID, task.StatusOrDefault())
		}
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "devops hook: %v\n", err)
		}
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookSessionStartCmd)
	hookCmd.AddCommand(hookSessionEndCmd)
	rootCmd.AddCommand(hookCmd)
}
