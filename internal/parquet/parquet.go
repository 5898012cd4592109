// Package parquet provides row types and functions for reading query telemetry
// from, and exporting querylens results to, Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/querylens/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single querylens analysis run with metadata.
// This struct maps to the querylens_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalQueries is the number of queries analyzed in this run
	TotalQueries int32 `parquet:"total_queries,snappy"`

	// TotalFindings is the number of findings produced by this run
	TotalFindings int32 `parquet:"total_findings,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// RunCount is one summary count of a run.
// This struct maps to the querylens_run_counts database table.
type RunCount struct {
	RunID     int64  `parquet:"run_id,snappy"`
	Dimension string `parquet:"dimension,dict,snappy"`
	Key       string `parquet:"key,dict,snappy"`
	Count     int32  `parquet:"count,snappy"`
}

// WriteRows writes rows to a Parquet file whose schema is inferred from T.
func WriteRows[T any](data []T, outputPath string) error {
	// Create the output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ReadRows reads every row of a Parquet file into T. Columns missing from
// the file are left at their zero value.
func ReadRows[T any](inputPath string) ([]T, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return rows[:n], nil
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalQueries:  record.TotalQueries,
			TotalFindings: record.TotalFindings,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertRunCountRecords converts schema.RunCountRecord to RunCount for Parquet export.
func ConvertRunCountRecords(records []schema.RunCountRecord) []RunCount {
	result := make([]RunCount, len(records))
	for i, record := range records {
		result[i] = RunCount{
			RunID:     record.RunID,
			Dimension: record.Dimension,
			Key:       record.Key,
			Count:     record.Count,
		}
	}
	return result
}
