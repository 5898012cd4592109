package cmd

import (
	"github.com/huangsam/querylens/core"
	"github.com/huangsam/querylens/internal/contract"
	"github.com/spf13/cobra"
)

// analyzeCmd runs every detector over a batch of query history.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <queries-file>",
	Short: "Detect and classify problems in a batch of query history.",
	Long: `Run the detectors over a batch of warehouse query history and report findings.

Each finding has a category (sql-anti-pattern, performance, operational, anomaly),
a severity (CRITICAL, HIGH, MEDIUM, LOW) and a recommendation. Findings are
ordered from most to least severe and followed by a summary per severity,
category, issue and warehouse.

Accepted inputs are .json, .csv and .parquet exports of query history. A
metering export given with --credits adds per-warehouse credit totals.

Examples:
  # Analyze the last 24 hours of an export
  querylens analyze queries.json --credits metering.csv

  # Only show critical and high findings for one warehouse
  querylens analyze queries.csv --warehouse ETL_WH --min-severity high

  # Tune detectors and export findings for a dashboard
  querylens analyze queries.parquet --repeat-count 5 --output parquet --output-file findings.parquet

  # Write gauges for the node-exporter textfile collector
  querylens analyze queries.json --metrics-file /var/lib/node_exporter/querylens.prom`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAnalyze(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run analysis", err)
		}
	},
}
