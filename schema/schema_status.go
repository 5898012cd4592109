package schema

import "time"

// CacheStatus represents the status of the report cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// HistoryStatus represents the status of the run history store.
type HistoryStatus struct {
	Backend              string           `json:"backend"`
	Connected            bool             `json:"connected"`
	TotalRuns            int              `json:"total_runs"`
	LastRunID            int64            `json:"last_run_id"`
	LastRunTime          time.Time        `json:"last_run_time"`
	OldestRunTime        time.Time        `json:"oldest_run_time"`
	TotalQueriesAnalyzed int              `json:"total_queries_analyzed"`
	TotalFindings        int              `json:"total_findings"`
	TableSizes           map[string]int64 `json:"table_sizes"`
}

// RunRecord represents a row from the querylens_runs table.
type RunRecord struct {
	RunID         int64
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	TotalQueries  int32
	TotalFindings int32
	ConfigParams  *string
}

// RunCountRecord represents a row from the querylens_run_counts table.
type RunCountRecord struct {
	RunID     int64
	Dimension string // severity, category or issue
	Key       string
	Count     int32
}

// Run count dimensions.
const (
	DimensionSeverity = "severity"
	DimensionCategory = "category"
	DimensionIssue    = "issue"
)
