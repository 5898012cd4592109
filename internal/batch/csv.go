package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/querylens/schema"
)

// timeLayouts are tried in order for CSV and JSON timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
}

// parseTime returns the zero time for empty or unrecognized values.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func count(v float64) int64 {
	v = nonNegative(v)
	if v > math.MaxInt64/2 {
		return math.MaxInt64 / 2
	}
	return int64(v)
}

func msDuration(ms float64) time.Duration {
	ms = nonNegative(ms)
	if ms > float64(math.MaxInt64/int64(time.Millisecond)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// row gives case-insensitive access to a CSV record by header name.
type row struct {
	index  map[string]int
	fields []string
}

func (r row) str(names ...string) string {
	for _, name := range names {
		if i, ok := r.index[name]; ok && i < len(r.fields) {
			return strings.TrimSpace(r.fields[i])
		}
	}
	return ""
}

func (r row) num(names ...string) float64 {
	v, _ := parseFloat(r.str(names...))
	return nonNegative(v)
}

func (r row) nullable(names ...string) *float64 {
	v, ok := parseFloat(r.str(names...))
	if !ok {
		return nil
	}
	return &v
}

// readCSV walks a CSV file with a header row, calling fn for each record.
func readCSV(path string, fn func(r row)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read CSV header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(row{index: index, fields: record})
	}
}

func readQueriesCSVFile(path string) ([]schema.QueryRecord, error) {
	var out []schema.QueryRecord
	err := readCSV(path, func(r row) {
		out = append(out, schema.QueryRecord{
			ID:                   r.str("QUERY_ID", "ID"),
			Text:                 r.str("QUERY_TEXT", "TEXT"),
			Fingerprint:          r.str("FINGERPRINT"),
			QueryType:            r.str("QUERY_TYPE"),
			ExecutionStatus:      r.str("EXECUTION_STATUS"),
			StartTime:            parseTime(r.str("START_TIME")),
			EndTime:              parseTime(r.str("END_TIME")),
			Elapsed:              msDuration(r.num("TOTAL_ELAPSED_TIME")),
			Execution:            msDuration(r.num("EXECUTION_TIME")),
			Compilation:          msDuration(r.num("COMPILATION_TIME")),
			Queued:               msDuration(r.num("QUEUED_OVERLOAD_TIME")),
			BytesScanned:         count(r.num("BYTES_SCANNED")),
			BytesSpilledLocal:    count(r.num("BYTES_SPILLED_TO_LOCAL_STORAGE")),
			BytesSpilledRemote:   count(r.num("BYTES_SPILLED_TO_REMOTE_STORAGE")),
			PartitionsScanned:    count(r.num("PARTITIONS_SCANNED")),
			PartitionsTotal:      count(r.num("PARTITIONS_TOTAL")),
			CachePercent:         r.num("PERCENTAGE_SCANNED_FROM_CACHE"),
			RowsProduced:         count(r.num("ROWS_PRODUCED")),
			Warehouse:            r.str("WAREHOUSE_NAME"),
			WarehouseSize:        schema.ParseWarehouseSize(r.str("WAREHOUSE_SIZE")),
			User:                 r.str("USER_NAME"),
			Role:                 r.str("ROLE_NAME"),
			Database:             r.str("DATABASE_NAME"),
			Schema:               r.str("SCHEMA_NAME"),
			RetryCount:           int(count(r.num("RETRY_COUNT"))),
			Credits:              r.nullable("CREDITS_ATTRIBUTED_COMPUTE", "CREDITS"),
			CloudServicesCredits: r.nullable("CREDITS_USED_CLOUD_SERVICES"),
		})
	})
	return out, err
}

func readCreditsCSVFile(path string) ([]schema.CreditUsageRecord, error) {
	var out []schema.CreditUsageRecord
	err := readCSV(path, func(r row) {
		out = append(out, schema.CreditUsageRecord{
			Warehouse:            r.str("WAREHOUSE_NAME"),
			BucketStart:          parseTime(r.str("START_TIME")),
			BucketEnd:            parseTime(r.str("END_TIME")),
			Credits:              r.num("CREDITS_USED"),
			ComputeCredits:       r.num("CREDITS_USED_COMPUTE"),
			CloudServicesCredits: r.num("CREDITS_USED_CLOUD_SERVICES"),
		})
	})
	return out, err
}
