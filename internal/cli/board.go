package cli

import (
	"fmt"
	"path/filepath"

	"github.com/NunoMoura/dev-ops-sub000/internal/core"
	"github.com/spf13/cobra"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Initialize and inspect the task board",
}

var boardInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create the .dev_ops workspace",
	Long: `Create the .dev_ops data directory with a config file and a board
laid out with the default workflow columns.

Safe to run on existing workspaces -- files and directories that already
exist are skipped and not overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ProjectInit == nil {
			return fmt.Errorf("project initializer not initialized")
		}

		basePath := BasePath
		if len(args) > 0 {
			basePath = args[0]
		}
		if basePath == "" {
			basePath = "."
		}
		absPath, err := filepath.Abs(basePath)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		developer, _ := cmd.Flags().GetString("developer")
		prefix, _ := cmd.Flags().GetString("prefix")

		result, err := ProjectInit.Init(core.InitConfig{
			BasePath:  absPath,
			Developer: developer,
			Prefix:    prefix,
		})
		if err != nil {
			return fmt.Errorf("initializing board: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(result.Created) > 0 {
			fmt.Fprintln(out, "Created:")
			for _, p := range result.Created {
				rel, _ := filepath.Rel(absPath, p)
				fmt.Fprintf(out, "  %s\n", rel)
			}
		}
		if len(result.Skipped) > 0 {
			fmt.Fprintln(out, "Skipped (already exists):")
			for _, p := range result.Skipped {
				rel, _ := filepath.Rel(absPath, p)
				fmt.Fprintf(out, "  %s\n", rel)
			}
		}
		return nil
	},
}

var boardShowOutput string

var boardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the board",
	Long: `Display every column and the tasks in it.

Tasks are listed most-active first: later phases before earlier ones, then
by priority and age.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		if err := validateOutput(boardShowOutput); err != nil {
			return err
		}

		board, err := TaskMgr.ReadBoard()
		if err != nil {
			return fmt.Errorf("reading board: %w", err)
		}
		core.SortTasks(board.Items)

		if boardShowOutput != outputTable {
			return writeStructured(cmd.OutOrStdout(), boardShowOutput, board)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderBoard(board))
		return nil
	},
}

func init() {
	boardInitCmd.Flags().String("developer", "", "Developer name recorded as the default task owner")
	boardInitCmd.Flags().String("prefix", "", "Task ID prefix (default: TASK)")
	boardShowCmd.Flags().StringVarP(&boardShowOutput, "output", "o", outputTable, "Output format: table, json or yaml")

	boardCmd.AddCommand(boardInitCmd)
	boardCmd.AddCommand(boardShowCmd)
	rootCmd.AddCommand(boardCmd)
}
