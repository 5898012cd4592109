package schema

import "time"

// HourlyPoint is one hour of activity.
type HourlyPoint struct {
	Hour             time.Time `json:"hour"`
	Queries          int       `json:"queries"`
	MeanExecutionSec float64   `json:"mean_execution_sec"`
	Credits          float64   `json:"credits"`
}

// TopQuery is an expensive statement ranked by execution time.
type TopQuery struct {
	ID           string    `json:"id"`
	Fingerprint  string    `json:"fingerprint"`
	Text         string    `json:"text"`
	User         string    `json:"user"`
	Warehouse    string    `json:"warehouse"`
	StartTime    time.Time `json:"start_time"`
	ExecutionSec float64   `json:"execution_sec"`
	GBScanned    float64   `json:"gb_scanned"`
}

// ExecutionBucket counts executions with MinSec <= execution < MaxSec.
// A zero MaxSec leaves the bucket open-ended.
type ExecutionBucket struct {
	Label   string  `json:"label"`
	MinSec  float64 `json:"min_sec"`
	MaxSec  float64 `json:"max_sec,omitempty"`
	Queries int     `json:"queries"`
}

// NameCount is a named tally.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TrendsResult holds the time-series and leaderboard views of a batch.
type TrendsResult struct {
	Overview         Overview           `json:"overview"`
	Hourly           []HourlyPoint      `json:"hourly"`
	TopQueries       []TopQuery         `json:"top_queries"`
	ExecutionBuckets []ExecutionBucket  `json:"execution_buckets"`
	QueryTypes       []NameCount        `json:"query_types"`
	TopUsers         []NameCount        `json:"top_users"`
	WarehouseCredits []WarehouseCredits `json:"warehouse_credits"`
}
