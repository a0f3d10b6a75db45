package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/NunoMoura/dev-ops-sub000/internal/observability"
	"github.com/spf13/cobra"
)

var (
	metricsOutput string
	metricsSince  string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display board activity metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include task creation, claim and completion counts, claims per agent,
auto-promotions out of intake, and context hydration failures.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}
		if err := validateOutput(metricsOutput); err != nil {
			return err
		}

		sinceTime, err := observability.ParseSince(metricsSince, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsOutput != outputTable {
			return writeStructured(out, metricsOutput, metrics)
		}

		fmt.Fprintf(out, "Metrics (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks created:", metrics.TasksCreated)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks claimed:", metrics.TasksClaimed)
		fmt.Fprintf(out, "  %-24s %d\n", "Auto-promotions:", metrics.AutoPromotions)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks moved:", metrics.TasksMoved)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks released:", metrics.TasksReleased)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks blocked:", metrics.TasksBlocked)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks decomposed:", metrics.TasksDecomposed)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks completed:", metrics.TasksCompleted)
		fmt.Fprintf(out, "  %-24s %d\n", "Hydration failures:", metrics.HydrationFailures)
		fmt.Fprintf(out, "  %-24s %d\n", "Records skipped:", metrics.RecordsSkipped)

		printCounts(cmd, "Claims by agent:", metrics.ClaimsByAgent)
		printCounts(cmd, "Moves by column:", metrics.MovesByColumn)

		if metrics.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

func printCounts(cmd *cobra.Command, heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n  %s\n", heading)
	for _, k := range keys {
		fmt.Fprintf(out, "    %-20s %d\n", k+":", counts[k])
	}
}

func init() {
	metricsCmd.Flags().StringVarP(&metricsOutput, "output", "o", outputTable, "Output format: table, json or yaml")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
