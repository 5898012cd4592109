package parquet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/querylens/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStructTags(t *testing.T) {
	// Verify struct tags are properly defined for parquet schema inference
	s := parquet.SchemaOf(new(Run))
	require.NotNil(t, s)

	for _, colName := range []string{"run_id", "start_time", "end_time", "run_duration_ms", "total_queries", "total_findings", "config_params"} {
		col, ok := s.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
		require.NotNil(t, col, "Column %s should not be nil", colName)
	}
}

func TestQueryRowStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(QueryRow))
	for _, colName := range []string{"query_id", "query_text", "warehouse_name", "warehouse_size", "total_elapsed_time", "bytes_spilled_to_remote_storage", "percentage_scanned_from_cache", "credits"} {
		_, ok := s.Lookup(colName)
		assert.True(t, ok, "Column %s should exist in schema", colName)
	}
}

func TestWriteReadRuns(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")

	end := time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC)
	duration := int32(300000)
	params := `{"workers":4}`
	data := ConvertRunRecords([]schema.RunRecord{
		{RunID: 1, StartTime: end.Add(-5 * time.Minute), EndTime: &end, RunDurationMs: &duration, TotalQueries: 120, TotalFindings: 7, ConfigParams: &params},
		{RunID: 2, StartTime: end, TotalQueries: 3},
	})

	require.NoError(t, WriteRows(data, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Positive(t, info.Size(), "Output file should not be empty")

	readData, err := ReadRows[Run](outputPath)
	require.NoError(t, err)
	require.Len(t, readData, 2)

	assert.Equal(t, int64(1), readData[0].RunID)
	assert.Equal(t, int32(7), readData[0].TotalFindings)
	require.NotNil(t, readData[0].EndTime)
	assert.WithinDuration(t, end, *readData[0].EndTime, time.Nanosecond)
	require.NotNil(t, readData[0].ConfigParams)
	assert.Equal(t, params, *readData[0].ConfigParams)

	// Check nullable fields
	assert.Nil(t, readData[1].EndTime)
	assert.Nil(t, readData[1].RunDurationMs)
	assert.Nil(t, readData[1].ConfigParams)
}

func TestWriteReadQueryRows(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "queries.parquet")
	credits := 0.25
	rec := schema.QueryRecord{
		ID:                 "q1",
		Text:               "SELECT * FROM orders",
		QueryType:          "SELECT",
		ExecutionStatus:    "SUCCESS",
		StartTime:          time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC),
		EndTime:            time.Date(2025, 3, 1, 2, 0, 12, 0, time.UTC),
		Elapsed:            12 * time.Second,
		Execution:          10 * time.Second,
		Compilation:        1500 * time.Millisecond,
		Queued:             500 * time.Millisecond,
		BytesScanned:       1 << 30,
		BytesSpilledRemote: 42,
		PartitionsScanned:  90,
		PartitionsTotal:    100,
		CachePercent:       12.5,
		Warehouse:          "ETL_WH",
		WarehouseSize:      schema.SizeLarge,
		User:               "alice",
		RetryCount:         1,
		Credits:            &credits,
	}

	require.NoError(t, WriteRows([]QueryRow{QueryRowFromRecord(rec)}, outputPath))
	rows, err := ReadRows[QueryRow](outputPath)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0].ToRecord()
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Text, got.Text)
	assert.Equal(t, rec.Execution, got.Execution)
	assert.Equal(t, rec.Compilation, got.Compilation)
	assert.Equal(t, rec.Queued, got.Queued)
	assert.Equal(t, rec.BytesSpilledRemote, got.BytesSpilledRemote)
	assert.Equal(t, schema.SizeLarge, got.WarehouseSize)
	assert.True(t, rec.StartTime.Equal(got.StartTime))
	require.NotNil(t, got.Credits)
	assert.InDelta(t, credits, *got.Credits, 1e-9)
	assert.Nil(t, got.CloudServicesCredits)
}

func TestCreditRowConversion(t *testing.T) {
	start := time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)
	rec := schema.CreditUsageRecord{Warehouse: "ETL_WH", BucketStart: start, BucketEnd: start.Add(time.Hour), Credits: 4, ComputeCredits: 3.5, CloudServicesCredits: 0.5}
	assert.Equal(t, rec, CreditRowFromRecord(rec).ToRecord())

	negative := CreditRow{WarehouseName: "X", CreditsUsed: -1}
	assert.Zero(t, negative.ToRecord().Credits)
}

func TestConvertFindings(t *testing.T) {
	findings := schema.EnrichFindings([]schema.Finding{
		{Subject: "q1", SubjectKind: schema.SubjectQuery, Category: schema.CategoryPerformance, Issue: schema.IssueRemoteSpill, Severity: schema.SeverityHigh, Warehouse: "ETL_WH"},
	})
	rows := ConvertFindings(findings)
	require.Len(t, rows, 1)
	assert.Equal(t, int32(1), rows[0].Rank)
	assert.Equal(t, "HIGH", rows[0].Severity)
	assert.Equal(t, "remote-spill", rows[0].Issue)
	assert.Equal(t, "ETL_WH", rows[0].Warehouse)
}

func TestWriteRowsEmpty(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteRows([]FindingRow{}, outputPath))

	rows, err := ReadRows[FindingRow](outputPath)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadRowsMissingFile(t *testing.T) {
	_, err := ReadRows[QueryRow](filepath.Join(t.TempDir(), "nope.parquet"))
	assert.Error(t, err)
}
