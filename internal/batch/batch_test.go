package batch

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/querylens/internal/parquet"
	"github.com/huangsam/querylens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadQueriesJSONArray(t *testing.T) {
	path := writeFile(t, "queries.json", `[
		{"id": "q1", "text": "SELECT * FROM orders", "query_type": "SELECT", "execution_status": "SUCCESS",
		 "start_time": "2025-03-01T02:00:00Z", "end_time": "2025-03-01 02:00:12",
		 "elapsed_ms": 12000, "execution_ms": "10000", "compilation_ms": null, "queued_ms": -5,
		 "bytes_scanned": 1073741824, "partitions_scanned": 90, "partitions_total": 100,
		 "cache_percent": "12.5", "warehouse": "ETL_WH", "warehouse_size": "Large",
		 "user": "alice", "retry_count": 2, "credits": "0.25"}
	]`)

	in, err := LoadQueries(path)
	require.NoError(t, err)
	require.Len(t, in.Queries, 1)
	assert.Empty(t, in.Credits)

	q := in.Queries[0]
	assert.Equal(t, "q1", q.ID)
	assert.Equal(t, time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC), q.StartTime)
	assert.Equal(t, time.Date(2025, 3, 1, 2, 0, 12, 0, time.UTC), q.EndTime)
	assert.Equal(t, 12*time.Second, q.Elapsed)
	assert.Equal(t, 10*time.Second, q.Execution)
	assert.Zero(t, q.Compilation)
	assert.Zero(t, q.Queued, "negative values clamp to zero")
	assert.Equal(t, int64(1<<30), q.BytesScanned)
	assert.InDelta(t, 12.5, q.CachePercent, 1e-9)
	assert.Equal(t, schema.SizeLarge, q.WarehouseSize)
	assert.Equal(t, 2, q.RetryCount)
	require.NotNil(t, q.Credits)
	assert.InDelta(t, 0.25, *q.Credits, 1e-9)
	assert.Nil(t, q.CloudServicesCredits)
}

func TestLoadQueriesJSONObject(t *testing.T) {
	path := writeFile(t, "batch.json", `{
		"queries": [{"id": "q1", "text": "SELECT 1", "warehouse": "BI_WH", "elapsed_ms": "oops"}],
		"credits": [{"warehouse": "BI_WH", "bucket_start": "2025-03-01T02:00:00Z",
		             "bucket_end": "2025-03-01T03:00:00Z", "credits": 4, "compute_credits": "3.5",
		             "cloud_services_credits": 0.5}]
	}`)

	in, err := LoadQueries(path)
	require.NoError(t, err)
	require.Len(t, in.Queries, 1)
	assert.Zero(t, in.Queries[0].Elapsed, "invalid numbers become zero")
	require.Len(t, in.Credits, 1)
	assert.Equal(t, "BI_WH", in.Credits[0].Warehouse)
	assert.InDelta(t, 4.0, in.Credits[0].Credits, 1e-9)
	assert.InDelta(t, 3.5, in.Credits[0].ComputeCredits, 1e-9)
	assert.Equal(t, time.Hour, in.Credits[0].BucketEnd.Sub(in.Credits[0].BucketStart))
}

func TestLoadQueriesJSONNonFinite(t *testing.T) {
	path := writeFile(t, "queries.json", `[
		{"id": "q1", "text": "SELECT 1", "credits": "NaN", "cloud_services_credits": "Inf", "execution_ms": "NaN"},
		{"id": "q2", "text": "SELECT 2", "credits": "-Infinity", "cache_percent": "+Inf"}
	]`)

	in, err := LoadQueries(path)
	require.NoError(t, err)
	require.Len(t, in.Queries, 2)
	assert.Nil(t, in.Queries[0].Credits, "NaN credits are treated as missing")
	assert.Nil(t, in.Queries[0].CloudServicesCredits)
	assert.Zero(t, in.Queries[0].Execution)
	assert.Nil(t, in.Queries[1].Credits)
	assert.Zero(t, in.Queries[1].CachePercent)
}

func TestLoadQueriesJSONErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"empty file", "", false},
		{"scalar", `42`, true},
		{"broken array", `[{"id": "q1"`, true},
		{"wrong shape", `{"queries": 3}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadQueries(writeFile(t, "q.json", tt.content))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadQueriesCSV(t *testing.T) {
	path := writeFile(t, "queries.csv",
		"\ufeffquery_id,QUERY_TEXT,Query_Type,EXECUTION_STATUS,START_TIME,TOTAL_ELAPSED_TIME,EXECUTION_TIME,QUEUED_OVERLOAD_TIME,"+
			"BYTES_SPILLED_TO_REMOTE_STORAGE,PERCENTAGE_SCANNED_FROM_CACHE,WAREHOUSE_NAME,WAREHOUSE_SIZE,USER_NAME,CREDITS_ATTRIBUTED_COMPUTE\n"+
			"q1,\"SELECT a, b FROM t\",SELECT,SUCCESS,2025-03-01 02:00:00.123,1500,1200,30000,2048,45.5,ETL_WH,X-Large,bob,\n"+
			"q2,SELECT 2,SELECT,FAIL,bad-time,-1,x,0,0,0,ETL_WH,,bob,1.5\n")

	in, err := LoadQueries(path)
	require.NoError(t, err)
	require.Len(t, in.Queries, 2)

	q1 := in.Queries[0]
	assert.Equal(t, "q1", q1.ID)
	assert.Equal(t, "SELECT a, b FROM t", q1.Text)
	assert.Equal(t, "SELECT", q1.QueryType)
	assert.Equal(t, time.Date(2025, 3, 1, 2, 0, 0, 123_000_000, time.UTC), q1.StartTime)
	assert.Equal(t, 1500*time.Millisecond, q1.Elapsed)
	assert.Equal(t, 30*time.Second, q1.Queued)
	assert.Equal(t, int64(2048), q1.BytesSpilledRemote)
	assert.InDelta(t, 45.5, q1.CachePercent, 1e-9)
	assert.Equal(t, schema.SizeXLarge, q1.WarehouseSize)
	assert.Nil(t, q1.Credits, "empty credits stay unattributed")

	q2 := in.Queries[1]
	assert.True(t, q2.StartTime.IsZero())
	assert.Zero(t, q2.Elapsed)
	assert.Zero(t, q2.Execution)
	require.NotNil(t, q2.Credits)
	assert.InDelta(t, 1.5, *q2.Credits, 1e-9)
}

func TestLoadCreditsCSV(t *testing.T) {
	path := writeFile(t, "credits.csv",
		"WAREHOUSE_NAME,START_TIME,END_TIME,CREDITS_USED,CREDITS_USED_COMPUTE,CREDITS_USED_CLOUD_SERVICES\n"+
			"ETL_WH,2025-03-01T02:00:00Z,2025-03-01T03:00:00Z,4.2,4,0.2\n"+
			"BI_WH,2025-03-01T02:00:00Z,2025-03-01T03:00:00Z,-3,,\n")

	credits, err := LoadCredits(path)
	require.NoError(t, err)
	require.Len(t, credits, 2)
	assert.Equal(t, "ETL_WH", credits[0].Warehouse)
	assert.InDelta(t, 4.2, credits[0].Credits, 1e-9)
	assert.InDelta(t, 0.2, credits[0].CloudServicesCredits, 1e-9)
	assert.Zero(t, credits[1].Credits)
}

func TestLoadCreditsJSONArray(t *testing.T) {
	path := writeFile(t, "credits.json", `[{"warehouse": "ETL_WH", "bucket_start": "2025-03-01T02:00:00Z", "credits": 2}]`)

	credits, err := LoadCredits(path)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.InDelta(t, 2.0, credits[0].Credits, 1e-9)
	assert.True(t, credits[0].BucketEnd.IsZero())
}

func TestLoadParquet(t *testing.T) {
	dir := t.TempDir()
	queriesPath := filepath.Join(dir, "queries.parquet")
	creditsPath := filepath.Join(dir, "credits.parquet")
	start := time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)

	rec := schema.QueryRecord{
		ID: "q1", Text: "SELECT 1", ExecutionStatus: "SUCCESS", StartTime: start,
		Execution: 2 * time.Second, Warehouse: "ETL_WH", WarehouseSize: schema.SizeSmall, User: "alice",
	}
	require.NoError(t, parquet.WriteRows([]parquet.QueryRow{parquet.QueryRowFromRecord(rec)}, queriesPath))
	credit := schema.CreditUsageRecord{Warehouse: "ETL_WH", BucketStart: start, BucketEnd: start.Add(time.Hour), Credits: 1}
	require.NoError(t, parquet.WriteRows([]parquet.CreditRow{parquet.CreditRowFromRecord(credit)}, creditsPath))

	in, err := Load(context.Background(), queriesPath, creditsPath, schema.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, in.Queries, 1)
	assert.Equal(t, "q1", in.Queries[0].ID)
	assert.Equal(t, 2*time.Second, in.Queries[0].Execution)
	require.Len(t, in.Credits, 1)
	assert.InDelta(t, 1.0, in.Credits[0].Credits, 1e-9)
}

func TestLoadCreditsFileReplacesEmbedded(t *testing.T) {
	queries := writeFile(t, "batch.json", `{"queries": [{"id": "q1", "warehouse": "ETL_WH"}],
		"credits": [{"warehouse": "ETL_WH", "credits": 100}]}`)
	credits := writeFile(t, "credits.json", `[{"warehouse": "ETL_WH", "credits": 7}]`)

	in, err := Load(context.Background(), queries, credits, schema.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, in.Credits, 1)
	assert.InDelta(t, 7.0, in.Credits[0].Credits, 1e-9)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(context.Background(), "", "", schema.QueryFilter{})
	assert.ErrorContains(t, err, "queries file is required")

	_, err = LoadQueries(writeFile(t, "queries.txt", "nope"))
	assert.ErrorContains(t, err, "unsupported queries file extension")

	_, err = LoadCredits(writeFile(t, "credits.xml", "<x/>"))
	assert.ErrorContains(t, err, "unsupported credits file extension")

	_, err = LoadQueries(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "cannot load queries")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Load(ctx, writeFile(t, "q.json", "[]"), "", schema.QueryFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilter(t *testing.T) {
	in := Input{
		Queries: []schema.QueryRecord{
			{ID: "ok", ExecutionStatus: "SUCCESS", QueryType: "SELECT", Warehouse: "ETL_WH", User: "alice"},
			{ID: "no-status", QueryType: "INSERT", Warehouse: "etl_wh", User: "bob"},
			{ID: "failed", ExecutionStatus: "FAIL", Warehouse: "ETL_WH"},
			{ID: "show", ExecutionStatus: "SUCCESS", QueryType: "show", Warehouse: "ETL_WH"},
			{ID: "other-wh", ExecutionStatus: "success", Warehouse: "BI_WH", User: "alice"},
		},
		Credits: []schema.CreditUsageRecord{
			{Warehouse: "ETL_WH", Credits: 1},
			{Warehouse: "BI_WH", Credits: 2},
		},
	}

	tests := []struct {
		name        string
		filter      schema.QueryFilter
		wantIDs     []string
		wantCredits int
	}{
		{"no filter", schema.QueryFilter{}, []string{"ok", "no-status", "other-wh"}, 2},
		{"warehouse", schema.QueryFilter{Warehouses: []string{"etl_wh"}}, []string{"ok", "no-status"}, 1},
		{"user", schema.QueryFilter{Users: []string{"ALICE"}}, []string{"ok", "other-wh"}, 2},
		{"warehouse and user", schema.QueryFilter{Warehouses: []string{"BI_WH"}, Users: []string{"bob"}}, []string{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Filter(in, tt.filter)
			ids := make([]string, 0, len(out.Queries))
			for _, q := range out.Queries {
				ids = append(ids, q.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Len(t, out.Credits, tt.wantCredits)
		})
	}

	// The input is left untouched
	assert.Len(t, in.Queries, 5)
}

func TestDigest(t *testing.T) {
	a := writeFile(t, "a.json", `[{"id": "q1"}]`)
	b := writeFile(t, "b.json", `[{"id": "q2"}]`)

	d1, err := Digest(a, "")
	require.NoError(t, err)
	d2, err := Digest(a, "")
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)

	d3, err := Digest(b, "")
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)

	d4, err := Digest(a, b)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d4, "adding a credits file changes the digest")

	_, err = Digest(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-03-01T02:00:00Z", time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)},
		{"2025-03-01 02:00:00.5", time.Date(2025, 3, 1, 2, 0, 0, 500_000_000, time.UTC)},
		{"2025-03-01 02:00", time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)},
		{"  ", time.Time{}},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseTime(tt.input)), "got %v", parseTime(tt.input))
		})
	}

	withOffset := parseTime("2025-03-01 02:00:00 -0800")
	assert.True(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC).Equal(withOffset))
}

func FuzzDecodeJSON(f *testing.F) {
	f.Add([]byte(`[{"id": "q1", "elapsed_ms": "12", "start_time": "2025-03-01T02:00:00Z"}]`))
	f.Add([]byte(`{"queries": [], "credits": [{"credits": null}]}`))
	f.Add([]byte(`[{"execution_ms": -1e400, "bytes_scanned": 1e300}]`))
	f.Add([]byte(`[{"credits": "NaN", "cloud_services_credits": "Inf"}]`))
	f.Add([]byte(``))

	f.Fuzz(func(t *testing.T, data []byte) {
		in, err := decodeJSON(data)
		if err != nil {
			return
		}
		for _, q := range in.Queries {
			if q.Credits != nil && (math.IsNaN(*q.Credits) || math.IsInf(*q.Credits, 0)) {
				t.Errorf("non-finite credits in %+v", q)
			}
			if q.Execution < 0 || q.Elapsed < 0 || q.BytesScanned < 0 || q.CachePercent < 0 {
				t.Errorf("negative metric in %+v", q)
			}
		}
		for _, c := range in.Credits {
			if c.Credits < 0 {
				t.Errorf("negative credits in %+v", c)
			}
		}
	})
}
