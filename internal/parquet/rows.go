package parquet

import (
	"time"

	"github.com/huangsam/querylens/schema"
)

// QueryRow is the Parquet shape of one query-history row. Durations are
// milliseconds as in the warehouse views.
type QueryRow struct {
	QueryID              string    `parquet:"query_id,snappy"`
	QueryText            string    `parquet:"query_text,snappy"`
	Fingerprint          string    `parquet:"fingerprint,optional,snappy"`
	QueryType            string    `parquet:"query_type,optional,dict,snappy"`
	ExecutionStatus      string    `parquet:"execution_status,optional,dict,snappy"`
	UserName             string    `parquet:"user_name,optional,dict,snappy"`
	RoleName             string    `parquet:"role_name,optional,dict,snappy"`
	WarehouseName        string    `parquet:"warehouse_name,optional,dict,snappy"`
	WarehouseSize        string    `parquet:"warehouse_size,optional,dict,snappy"`
	DatabaseName         string    `parquet:"database_name,optional,dict,snappy"`
	SchemaName           string    `parquet:"schema_name,optional,dict,snappy"`
	StartTime            time.Time `parquet:"start_time,snappy"`
	EndTime              time.Time `parquet:"end_time,snappy"`
	TotalElapsedMs       float64   `parquet:"total_elapsed_time,snappy"`
	ExecutionMs          float64   `parquet:"execution_time,snappy"`
	CompilationMs        float64   `parquet:"compilation_time,snappy"`
	QueuedOverloadMs     float64   `parquet:"queued_overload_time,snappy"`
	BytesScanned         int64     `parquet:"bytes_scanned,snappy"`
	BytesSpilledLocal    int64     `parquet:"bytes_spilled_to_local_storage,snappy"`
	BytesSpilledRemote   int64     `parquet:"bytes_spilled_to_remote_storage,snappy"`
	PartitionsScanned    int64     `parquet:"partitions_scanned,snappy"`
	PartitionsTotal      int64     `parquet:"partitions_total,snappy"`
	PercentFromCache     float64   `parquet:"percentage_scanned_from_cache,snappy"`
	RowsProduced         int64     `parquet:"rows_produced,snappy"`
	RetryCount           int32     `parquet:"retry_count,snappy"`
	Credits              *float64  `parquet:"credits,optional,snappy"`
	CloudServicesCredits *float64  `parquet:"credits_used_cloud_services,optional,snappy"`
}

// CreditRow is the Parquet shape of one warehouse metering bucket.
type CreditRow struct {
	WarehouseName        string    `parquet:"warehouse_name,dict,snappy"`
	StartTime            time.Time `parquet:"start_time,snappy"`
	EndTime              time.Time `parquet:"end_time,snappy"`
	CreditsUsed          float64   `parquet:"credits_used,snappy"`
	CreditsCompute       float64   `parquet:"credits_used_compute,snappy"`
	CreditsCloudServices float64   `parquet:"credits_used_cloud_services,snappy"`
}

// FindingRow is the Parquet shape of one ranked finding.
type FindingRow struct {
	Rank           int32     `parquet:"rank,snappy"`
	Severity       string    `parquet:"severity,dict,snappy"`
	Category       string    `parquet:"category,dict,snappy"`
	Issue          string    `parquet:"issue,dict,snappy"`
	Subject        string    `parquet:"subject,snappy"`
	SubjectKind    string    `parquet:"subject_kind,dict,snappy"`
	Description    string    `parquet:"description,snappy"`
	Recommendation string    `parquet:"recommendation,snappy"`
	OccurredAt     time.Time `parquet:"occurred_at,snappy"`
	Warehouse      string    `parquet:"warehouse,optional,snappy"`
	User           string    `parquet:"user,optional,snappy"`
}

func millis(ms float64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ToRecord converts the row to a query record.
func (r QueryRow) ToRecord() schema.QueryRecord {
	return schema.QueryRecord{
		ID:                   r.QueryID,
		Text:                 r.QueryText,
		Fingerprint:          r.Fingerprint,
		QueryType:            r.QueryType,
		ExecutionStatus:      r.ExecutionStatus,
		StartTime:            r.StartTime,
		EndTime:              r.EndTime,
		Elapsed:              millis(r.TotalElapsedMs),
		Execution:            millis(r.ExecutionMs),
		Compilation:          millis(r.CompilationMs),
		Queued:               millis(r.QueuedOverloadMs),
		BytesScanned:         max(r.BytesScanned, 0),
		BytesSpilledLocal:    max(r.BytesSpilledLocal, 0),
		BytesSpilledRemote:   max(r.BytesSpilledRemote, 0),
		PartitionsScanned:    max(r.PartitionsScanned, 0),
		PartitionsTotal:      max(r.PartitionsTotal, 0),
		CachePercent:         r.PercentFromCache,
		RowsProduced:         max(r.RowsProduced, 0),
		Warehouse:            r.WarehouseName,
		WarehouseSize:        schema.ParseWarehouseSize(r.WarehouseSize),
		User:                 r.UserName,
		Role:                 r.RoleName,
		Database:             r.DatabaseName,
		Schema:               r.SchemaName,
		RetryCount:           int(max(r.RetryCount, 0)),
		Credits:              r.Credits,
		CloudServicesCredits: r.CloudServicesCredits,
	}
}

// QueryRowFromRecord converts a query record to its Parquet row.
func QueryRowFromRecord(rec schema.QueryRecord) QueryRow {
	return QueryRow{
		QueryID:              rec.ID,
		QueryText:            rec.Text,
		Fingerprint:          rec.Fingerprint,
		QueryType:            rec.QueryType,
		ExecutionStatus:      rec.ExecutionStatus,
		UserName:             rec.User,
		RoleName:             rec.Role,
		WarehouseName:        rec.Warehouse,
		WarehouseSize:        rec.WarehouseSize.String(),
		DatabaseName:         rec.Database,
		SchemaName:           rec.Schema,
		StartTime:            rec.StartTime,
		EndTime:              rec.EndTime,
		TotalElapsedMs:       toMillis(rec.Elapsed),
		ExecutionMs:          toMillis(rec.Execution),
		CompilationMs:        toMillis(rec.Compilation),
		QueuedOverloadMs:     toMillis(rec.Queued),
		BytesScanned:         rec.BytesScanned,
		BytesSpilledLocal:    rec.BytesSpilledLocal,
		BytesSpilledRemote:   rec.BytesSpilledRemote,
		PartitionsScanned:    rec.PartitionsScanned,
		PartitionsTotal:      rec.PartitionsTotal,
		PercentFromCache:     rec.CachePercent,
		RowsProduced:         rec.RowsProduced,
		RetryCount:           int32(rec.RetryCount),
		Credits:              rec.Credits,
		CloudServicesCredits: rec.CloudServicesCredits,
	}
}

// ToRecord converts the row to a credit usage record.
func (r CreditRow) ToRecord() schema.CreditUsageRecord {
	return schema.CreditUsageRecord{
		Warehouse:            r.WarehouseName,
		BucketStart:          r.StartTime,
		BucketEnd:            r.EndTime,
		Credits:              max(r.CreditsUsed, 0),
		ComputeCredits:       max(r.CreditsCompute, 0),
		CloudServicesCredits: max(r.CreditsCloudServices, 0),
	}
}

// CreditRowFromRecord converts a credit usage record to its Parquet row.
func CreditRowFromRecord(rec schema.CreditUsageRecord) CreditRow {
	return CreditRow{
		WarehouseName:        rec.Warehouse,
		StartTime:            rec.BucketStart,
		EndTime:              rec.BucketEnd,
		CreditsUsed:          rec.Credits,
		CreditsCompute:       rec.ComputeCredits,
		CreditsCloudServices: rec.CloudServicesCredits,
	}
}

// ConvertFindings converts ranked findings to Parquet rows.
func ConvertFindings(findings []schema.EnrichedFinding) []FindingRow {
	result := make([]FindingRow, len(findings))
	for i, f := range findings {
		result[i] = FindingRow{
			Rank:           int32(f.Rank),
			Severity:       string(f.Severity),
			Category:       string(f.Category),
			Issue:          string(f.Issue),
			Subject:        f.Subject,
			SubjectKind:    string(f.SubjectKind),
			Description:    f.Description,
			Recommendation: f.Recommendation,
			OccurredAt:     f.OccurredAt,
			Warehouse:      f.Warehouse,
			User:           f.User,
		}
	}
	return result
}
