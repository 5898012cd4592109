// Package cmd defines the command-line interface for querylens.
package cmd

import (
	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// thresholdDefault is one detector knob with its stock value.
type thresholdDefault struct {
	key   string
	value any
	usage string
}

// thresholdDefaults mirrors schema.DefaultThresholds in flag form.
var thresholdDefaults = []thresholdDefault{
	{"window-hours", 24, "Only analyze queries started within this many hours of the latest one (0 = all)"},
	{"cartesian-rows", int64(1_000_000), "Rows produced above which a join may be a row explosion"},
	{"cartesian-ratio", 10.0, "Rows produced per byte scanned that marks a row explosion"},
	{"spill-remote-bytes", "0", "Remote spill above this size is reported"},
	{"spill-local-bytes", "0", "Local spill above this size is reported"},
	{"pruning-partitions", int64(100), "Minimum partitions in a table before pruning is checked"},
	{"pruning-pct", 50.0, "Percent of partitions scanned that counts as poor pruning"},
	{"cache-pct", 20.0, "Cache hit percent below which a slow query is reported"},
	{"cache-elapsed", "10s", "Minimum elapsed time before cache usage is checked"},
	{"compile-time", "5s", "Compilation time above which a query is reported"},
	{"compile-ratio", 0.3, "Share of elapsed time spent compiling that is reported"},
	{"full-scan-bytes", "10GiB", "Bytes scanned above which an unfiltered query is a full scan"},
	{"cloud-services-ratio", 0.1, "Cloud services share of credits that is reported"},
	{"oversized-size", "Large", "Smallest warehouse size checked for oversizing"},
	{"oversized-exec", "5s", "Execution time under which a large warehouse is oversized"},
	{"queued-floor", "30s", "Queue time above which a warehouse is overloaded"},
	{"repeat-count", 3, "Executions of one fingerprint that count as repetition"},
	{"repeat-exec", "1s", "Mean execution time below which repetition is ignored"},
	{"repeat-cost", "5m", "Total execution time above which repetition escalates"},
	{"burst-window", "15m", "Sliding window for burst detection"},
	{"burst-count", 3, "Executions of one fingerprint within the burst window"},
	{"spike-multiplier", 3.0, "Multiple of the fingerprint mean that counts as a spike"},
	{"spike-samples", 5, "Minimum executions of a fingerprint before spikes are checked"},
	{"off-hours", "00:00-05:00", "Wall clock range treated as off-hours"},
	{"timezone", "Local", "IANA time zone for off-hours detection"},
}

// registerThresholdFlags adds one persistent flag per detector knob.
func registerThresholdFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	for _, d := range thresholdDefaults {
		switch v := d.value.(type) {
		case int:
			flags.Int(d.key, v, d.usage)
		case int64:
			flags.Int64(d.key, v, d.usage)
		case float64:
			flags.Float64(d.key, v, d.usage)
		case string:
			flags.String(d.key, v, d.usage)
		}
	}
}

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(trendsCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("credits", "", "Path to a warehouse metering file (.json, .csv or .parquet)")
	rootCmd.PersistentFlags().String("warehouse", "", "Comma-separated list of warehouses to keep")
	rootCmd.PersistentFlags().String("user", "", "Comma-separated list of users to keep")
	rootCmd.PersistentFlags().String("role", "", "Comma-separated list of roles to keep")
	rootCmd.PersistentFlags().String("database", "", "Comma-separated list of databases to keep")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of findings to display in text output (0 = all)")
	rootCmd.PersistentFlags().String("min-severity", "low", "Lowest severity to display: critical or high or medium or low")
	rootCmd.PersistentFlags().Int("top", contract.DefaultTopN, "Number of entries in each trends leaderboard")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("metrics-file", "", "Optional path to write a Prometheus textfile of the report")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent detector workers")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Report cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("cache-ttl", contract.DefaultCacheTTL.String(), "How long a cached report stays fresh")
	rootCmd.PersistentFlags().String("history-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for run history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("emoji", "no", "Enable emoji section headers (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	registerThresholdFlags(rootCmd)
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
