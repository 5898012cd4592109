package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/querylens/schema"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// testThresholds pins the zone so that off-hours checks are stable.
func testThresholds() schema.Thresholds {
	th := schema.DefaultThresholds()
	th.TimeZone = "UTC"
	return th
}

func query(id, text string, offset time.Duration, exec time.Duration) schema.QueryRecord {
	start := baseTime.Add(offset)
	return schema.QueryRecord{
		ID:        id,
		Text:      text,
		QueryType: "SELECT",
		StartTime: start,
		EndTime:   start.Add(exec),
		Execution: exec,
		Warehouse: "ETL_WH",
		User:      "ALICE",
	}
}

const batchFixture = `[
	{"id": "q1", "text": "SELECT a.id FROM a CROSS JOIN b", "start_time": "2025-03-01T10:00:00Z",
	 "execution_ms": 2000, "warehouse": "ETL_WH", "user": "alice", "query_type": "SELECT"},
	{"id": "q2", "text": "SELECT * FROM orders WHERE id = 7", "start_time": "2025-03-01T10:05:00Z",
	 "execution_ms": 1000, "warehouse": "BI_WH", "user": "bob", "query_type": "SELECT"}
]`

func writeBatch(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.json")
	require.NoError(t, os.WriteFile(path, []byte(batchFixture), 0o644))
	return path
}
