package cmd

import (
	"github.com/huangsam/querylens/core"
	"github.com/huangsam/querylens/internal/contract"
	"github.com/spf13/cobra"
)

// trendsCmd shows hourly activity and leaderboards of a batch.
var trendsCmd = &cobra.Command{
	Use:   "trends <queries-file>",
	Short: "Show hourly activity, slowest queries and top users of a batch.",
	Long: `Summarize a batch of query history over time.

Shows:
- Hourly query counts, mean execution time and credits
- The slowest queries
- Query type and user leaderboards
- Metered credits per warehouse (with --credits)

Examples:
  # Hourly view of the last day
  querylens trends queries.json --credits metering.csv

  # Top 5 of each leaderboard as JSON
  querylens trends queries.csv --top 5 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTrends(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot build trends", err)
		}
	},
}
