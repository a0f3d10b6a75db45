package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NunoMoura/dev-ops-sub000/internal/core"
	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (create, pick, claim, move, block, split, done)",
	Long: `Task lifecycle commands.

Create tasks in the intake column, pick or claim the next one by priority,
move them through the workflow phases and complete them. Claims are
attributed to the session named by DEVOPS_SESSION_ID and DEVOPS_AGENT.`,
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new task",
	Long: `Create a task in the intake column (or --column). The next free ID is
allocated from the board.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		priorityFlag, _ := cmd.Flags().GetString("priority")
		summary, _ := cmd.Flags().GetString("summary")
		column, _ := cmd.Flags().GetString("column")
		parent, _ := cmd.Flags().GetString("parent")
		tags, _ := cmd.Flags().GetStringSlice("tags")

		priority, err := parsePriorityFlag(priorityFlag)
		if err != nil {
			return err
		}

		task, err := TaskMgr.CreateTask(core.CreateTaskInput{
			ColumnID: column,
			Title:    strings.Join(args, " "),
			Summary:  summary,
			Priority: priority,
			ParentID: parent,
			Tags:     tags,
		})
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s in %s: %s\n", task.ID, task.ColumnID, task.Title)
		return nil
	},
}

var taskShowOutput string

var taskShowCmd = &cobra.Command{
	Use:               "show <task-id>",
	Short:             "Show a task",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		if err := validateOutput(taskShowOutput); err != nil {
			return err
		}

		task, err := TaskMgr.GetTask(args[0])
		if err != nil {
			return err
		}
		if taskShowOutput != outputTable {
			return writeStructured(cmd.OutOrStdout(), taskShowOutput, task)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderTask(task))
		return nil
	},
}

var taskPickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Suggest the next task without claiming it",
	Long: `Print the ID of the highest-priority unclaimed todo task in the intake
column. Nothing is changed on disk.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		id, ok, err := TaskMgr.PickNextTask()
		if err != nil {
			return fmt.Errorf("picking next task: %w", err)
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "No task available.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var taskClaimCmd = &cobra.Command{
	Use:   "claim <task-id>",
	Short: "Claim a task for this session",
	Long: `Claim a task: set its owner and active session, mark it in progress and,
when it is still in the intake column, promote it to the working column.

A task held by another session is refused unless --force is given.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs(models.StatusDone, models.StatusArchived),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		owner, _ := cmd.Flags().GetString("owner")
		force, _ := cmd.Flags().GetBool("force")

		res, err := TaskMgr.ClaimTask(args[0], claimDriver(cmd), core.ClaimOptions{Owner: owner, Force: force})
		if err != nil {
			if errors.Is(err, models.ErrAlreadyClaimed) {
				return fmt.Errorf("%w (use --force to take it over)", err)
			}
			return err
		}
		printClaim(cmd, res)
		return nil
	},
}

var taskNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Pick and claim the next task",
	Long: `Claim the best available task in the intake column. Tasks claimed by
other sessions in the meantime are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		owner, _ := cmd.Flags().GetString("owner")

		res, err := TaskMgr.ClaimNext(claimDriver(cmd), core.ClaimOptions{Owner: owner})
		if err != nil {
			if errors.Is(err, models.ErrNoTaskAvailable) {
				fmt.Fprintln(cmd.OutOrStdout(), "No task available.")
				return nil
			}
			return err
		}
		printClaim(cmd, res)
		return nil
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <task-id> <column-id>",
	Short: "Move a task to another column",
	Long: `Move a task to another column. WIP limits are reported by 'devops alerts'
and are not enforced here.`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeTaskIDs(models.StatusArchived),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		task, err := TaskMgr.MoveTask(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", task.ID, task.ColumnID)
		return nil
	},
}

var taskReleaseCmd = &cobra.Command{
	Use:               "release <task-id>",
	Short:             "End the active session on a task",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs(models.StatusDone, models.StatusArchived),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		task, err := TaskMgr.ReleaseTask(args[0], core.ReleaseOptions{})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Released %s (%s)\n", task.ID, task.StatusOrDefault())
		return nil
	},
}

var taskBlockCmd = &cobra.Command{
	Use:               "block <task-id> [reason...]",
	Short:             "Mark a task blocked",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeTaskIDs(models.StatusDone, models.StatusArchived, models.StatusBlocked),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		task, err := TaskMgr.BlockTask(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Blocked %s\n", task.ID)
		return nil
	},
}

var taskUnblockCmd = &cobra.Command{
	Use:   "unblock <task-id>",
	Short: "Return a blocked task to work",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		task, err := TaskMgr.UnblockTask(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", task.ID, task.StatusOrDefault())
		return nil
	},
}

var taskSplitCmd = &cobra.Command{
	Use:   "split <task-id> <subtask-title>...",
	Short: "Split a task into subtasks",
	Long: `Create one subtask per title in the intake column. The parent is blocked
until every subtask is completed, then it returns to work automatically.`,
	Args:              cobra.MinimumNArgs(2),
	ValidArgsFunction: completeTaskIDs(models.StatusDone, models.StatusArchived),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		priorityFlag, _ := cmd.Flags().GetString("priority")
		priority, err := parsePriorityFlag(priorityFlag)
		if err != nil {
			return err
		}

		children := make([]core.CreateTaskInput, 0, len(args)-1)
		for _, title := range args[1:] {
			children = append(children, core.CreateTaskInput{Title: title, Priority: priority})
		}

		created, err := TaskMgr.DecomposeTask(args[0], children)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Split %s into %d subtask(s):\n", args[0], len(created))
		for _, t := range created {
			fmt.Fprintf(out, "  %s  %s\n", t.ID, t.Title)
		}
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:               "done <task-id>",
	Short:             "Complete a task",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs(models.StatusDone, models.StatusArchived),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		task, err := TaskMgr.CompleteTask(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", task.ID)
		return nil
	},
}

// claimDriver overlays --agent/--model/--session flags on the environment driver.
func claimDriver(cmd *cobra.Command) core.Driver {
	d := Driver
	if v, _ := cmd.Flags().GetString("agent"); v != "" {
		d.Agent = v
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		d.Model = v
	}
	if v, _ := cmd.Flags().GetString("session"); v != "" {
		d.SessionID = v
	}
	return d
}

func printClaim(cmd *cobra.Command, res *core.ClaimResult) {
	out := cmd.OutOrStdout()
	task := res.Task
	fmt.Fprintf(out, "Claimed %s: %s\n", task.ID, task.Title)
	if res.Promoted {
		fmt.Fprintf(out, "  promoted %s -> %s\n", res.FromColumn, task.ColumnID)
	}
	if task.ActiveSession != nil {
		fmt.Fprintf(out, "  session %s (%s)\n", task.ActiveSession.ID, task.ActiveSession.Agent)
	}
	if res.Hydration != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", res.Hydration)
	}
}

func parsePriorityFlag(raw string) (models.Priority, error) {
	if raw == "" {
		return "", nil
	}
	p, ok := models.ParsePriority(raw)
	if !ok {
		return "", fmt.Errorf("invalid priority %q: must be one of high, medium, low", raw)
	}
	return p, nil
}

func addClaimFlags(cmd *cobra.Command) {
	cmd.Flags().String("owner", "", "Owner to record (default: configured developer name)")
	cmd.Flags().String("agent", "", "Agent name (default: $DEVOPS_AGENT)")
	cmd.Flags().String("model", "", "Model name (default: $DEVOPS_MODEL)")
	cmd.Flags().String("session", "", "Session ID (default: $DEVOPS_SESSION_ID)")
}

func init() {
	taskCreateCmd.Flags().StringP("priority", "p", "", "Priority: high, medium or low (default: medium)")
	taskCreateCmd.Flags().StringP("summary", "s", "", "Longer description")
	taskCreateCmd.Flags().String("column", "", "Column to create the task in (default: intake column)")
	taskCreateCmd.Flags().String("parent", "", "Parent task ID")
	taskCreateCmd.Flags().StringSlice("tags", nil, "Comma-separated tags")

	taskShowCmd.Flags().StringVarP(&taskShowOutput, "output", "o", outputTable, "Output format: table, json or yaml")

	addClaimFlags(taskClaimCmd)
	taskClaimCmd.Flags().Bool("force", false, "Take over a task held by another session")
	addClaimFlags(taskNextCmd)

	taskSplitCmd.Flags().StringP("priority", "p", "", "Priority for every subtask")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskPickCmd)
	taskCmd.AddCommand(taskClaimCmd)
	taskCmd.AddCommand(taskNextCmd)
	taskCmd.AddCommand(taskMoveCmd)
	taskCmd.AddCommand(taskReleaseCmd)
	taskCmd.AddCommand(taskBlockCmd)
	taskCmd.AddCommand(taskUnblockCmd)
	taskCmd.AddCommand(taskSplitCmd)
	taskCmd.AddCommand(taskDoneCmd)
	rootCmd.AddCommand(taskCmd)
}
