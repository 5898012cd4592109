package outwriter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrends() schema.TrendsResult {
	hour := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return schema.TrendsResult{
		Overview: schema.Overview{TotalQueries: 3, MeanExecutionSec: 2, TotalBytesScanned: 1 << 30, TotalCredits: 1.5, WindowStart: hour, WindowEnd: hour.Add(90 * time.Minute)},
		Hourly: []schema.HourlyPoint{
			{Hour: hour, Queries: 2, MeanExecutionSec: 1.5, Credits: 1},
			{Hour: hour.Add(time.Hour), Queries: 1, MeanExecutionSec: 3, Credits: 0.5},
		},
		TopQueries: []schema.TopQuery{
			{ID: "q3", Fingerprint: "abc", Text: "SELECT *\n  FROM big_table", User: "BOB", Warehouse: "ETL_WH", StartTime: hour.Add(time.Hour), ExecutionSec: 3, GBScanned: 0.75},
		},
		ExecutionBuckets: []schema.ExecutionBucket{
			{Label: "1s - 10s", MinSec: 1, MaxSec: 10, Queries: 3},
			{Label: ">= 1h", MinSec: 3600, Queries: 0},
		},
		QueryTypes:       []schema.NameCount{{Name: "SELECT", Count: 3}},
		TopUsers:         []schema.NameCount{{Name: "BOB", Count: 2}, {Name: "ALICE", Count: 1}},
		WarehouseCredits: []schema.WarehouseCredits{{Warehouse: "ETL_WH", Credits: 1.5, ComputeCredits: 1.4, CloudServicesCredits: 0.1, Buckets: 2}},
	}
}

func TestWriteTrendsTables(t *testing.T) {
	cfg := &contract.Config{Width: 160, Precision: 1, Workers: 2}
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	var buf bytes.Buffer
	require.NoError(t, writeTrendsTables(&buf, sampleTrends(), cfg, fmtFloat, intFmt, time.Second))
	out := buf.String()

	assert.Contains(t, out, "Queries: 3 | Mean execution: 2.0s | Scanned: 1.0 GiB | Credits: 1.5")
	assert.Contains(t, out, "Hourly activity")
	assert.Contains(t, out, "2025-03-01T11:00:00Z")
	assert.Contains(t, out, "Slowest queries")
	assert.Contains(t, out, "SELECT * FROM big_table", "whitespace in query text collapses")
	assert.Contains(t, out, "Execution time distribution")
	assert.Contains(t, out, "1s - 10s")
	assert.Contains(t, out, "Query types")
	assert.Contains(t, out, "Top users")
	assert.Contains(t, out, "Warehouse credits")
	assert.Contains(t, out, "Trends completed in 1s with 2 workers.")
}

func TestWriteTrendsTablesEmpty(t *testing.T) {
	cfg := &contract.Config{Width: 80, Precision: 1}
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	var buf bytes.Buffer
	require.NoError(t, writeTrendsTables(&buf, schema.TrendsResult{}, cfg, fmtFloat, intFmt, time.Second))
	out := buf.String()
	assert.Contains(t, out, "Window: n/a")
	assert.NotContains(t, out, "Hourly activity")
	assert.NotContains(t, out, "Slowest queries")
	assert.NotContains(t, out, "Execution time distribution")
}

func TestWriteCSVTrends(t *testing.T) {
	fmtFloat, intFmt := createFormatters(2)

	var buf bytes.Buffer
	require.NoError(t, writeCSVTrends(&buf, sampleTrends(), fmtFloat, intFmt))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Equal(t, "section,key,metric,value", lines[0])
	assert.Contains(t, lines, "overview,,total_queries,3")
	assert.Contains(t, lines, "hourly,2025-03-01T10:00:00Z,queries,2")
	assert.Contains(t, lines, "top_queries,q3,gb_scanned,0.75")
	assert.Contains(t, lines, "execution_buckets,1s - 10s,queries,3")
	assert.Contains(t, lines, "execution_buckets,>= 1h,queries,0")
	assert.Contains(t, lines, "query_types,SELECT,queries,3")
	assert.Contains(t, lines, "top_users,ALICE,queries,1")
	assert.Contains(t, lines, "warehouse_credits,ETL_WH,cloud_services_credits,0.10")
	// 1 header + 4 overview + 6 hourly + 2 top + 2 buckets + 1 type + 2 users + 3 credits
	assert.Len(t, lines, 21)
}

func TestPrintTrends(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "trends.json")
	require.NoError(t, PrintTrends(sampleTrends(), &contract.Config{Output: schema.JSONOut, OutputFile: path}, time.Second))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"top_queries"`)

	err = PrintTrends(sampleTrends(), &contract.Config{Output: schema.ParquetOut, OutputFile: filepath.Join(dir, "t.parquet")}, time.Second)
	assert.ErrorContains(t, err, "only available for analyze")
}
