// Package schema has the models, thresholds and constants shared by all parts of querylens.
package schema

import "time"

// QueryRecord is the telemetry of one executed statement.
// Missing numeric fields are zero; credit fields are nil when not attributed.
type QueryRecord struct {
	ID              string        `json:"id"`
	Text            string        `json:"text"`
	Fingerprint     string        `json:"fingerprint,omitempty"` // derived when empty
	QueryType       string        `json:"query_type,omitempty"`
	ExecutionStatus string        `json:"execution_status,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Elapsed         time.Duration `json:"elapsed"`
	Execution       time.Duration `json:"execution"`
	Compilation     time.Duration `json:"compilation"`
	Queued          time.Duration `json:"queued"`

	BytesScanned       int64   `json:"bytes_scanned"`
	BytesSpilledLocal  int64   `json:"bytes_spilled_local"`
	BytesSpilledRemote int64   `json:"bytes_spilled_remote"`
	PartitionsScanned  int64   `json:"partitions_scanned"`
	PartitionsTotal    int64   `json:"partitions_total"`
	CachePercent       float64 `json:"cache_percent"` // 0-100
	RowsProduced       int64   `json:"rows_produced"`

	Warehouse     string        `json:"warehouse"`
	WarehouseSize WarehouseSize `json:"warehouse_size"`
	User          string        `json:"user"`
	Role          string        `json:"role,omitempty"`
	Database      string        `json:"database,omitempty"`
	Schema        string        `json:"schema,omitempty"`
	RetryCount    int           `json:"retry_count"`

	Credits              *float64 `json:"credits,omitempty"`
	CloudServicesCredits *float64 `json:"cloud_services_credits,omitempty"`
}

// CreditUsageRecord is one metering bucket for a warehouse.
type CreditUsageRecord struct {
	Warehouse            string    `json:"warehouse"`
	BucketStart          time.Time `json:"bucket_start"`
	BucketEnd            time.Time `json:"bucket_end"`
	Credits              float64   `json:"credits"`
	ComputeCredits       float64   `json:"compute_credits"`
	CloudServicesCredits float64   `json:"cloud_services_credits"`
}

// Overlaps reports whether the bucket intersects [start, end].
func (c CreditUsageRecord) Overlaps(start, end time.Time) bool {
	bucketEnd := c.BucketEnd
	if bucketEnd.IsZero() {
		bucketEnd = c.BucketStart
	}
	return !bucketEnd.Before(start) && !c.BucketStart.After(end)
}
