package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/querylens/schema"
)

// flexNum accepts JSON numbers, numeric strings and null. Anything else,
// including NaN and infinities, is zero.
type flexNum float64

func (n *flexNum) UnmarshalJSON(data []byte) error {
	*n = 0
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if v, ok := parseFloat(s); ok {
		*n = flexNum(v)
	}
	return nil
}

// flexNullNum is flexNum that remembers whether a value was present.
type flexNullNum struct {
	v     float64
	valid bool
}

func (n *flexNullNum) UnmarshalJSON(data []byte) error {
	*n = flexNullNum{}
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if v, ok := parseFloat(s); ok {
		n.v, n.valid = v, true
	}
	return nil
}

func (n flexNullNum) ptr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.v
	return &v
}

// flexTime accepts any layout parseTime understands. Unparseable values are zero.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = flexTime{}
		return nil
	}
	*t = flexTime(parseTime(s))
	return nil
}

type jsonQuery struct {
	ID                   string      `json:"id"`
	Text                 string      `json:"text"`
	Fingerprint          string      `json:"fingerprint"`
	QueryType            string      `json:"query_type"`
	ExecutionStatus      string      `json:"execution_status"`
	StartTime            flexTime    `json:"start_time"`
	EndTime              flexTime    `json:"end_time"`
	ElapsedMs            flexNum     `json:"elapsed_ms"`
	ExecutionMs          flexNum     `json:"execution_ms"`
	CompilationMs        flexNum     `json:"compilation_ms"`
	QueuedMs             flexNum     `json:"queued_ms"`
	BytesScanned         flexNum     `json:"bytes_scanned"`
	BytesSpilledLocal    flexNum     `json:"bytes_spilled_local"`
	BytesSpilledRemote   flexNum     `json:"bytes_spilled_remote"`
	PartitionsScanned    flexNum     `json:"partitions_scanned"`
	PartitionsTotal      flexNum     `json:"partitions_total"`
	CachePercent         flexNum     `json:"cache_percent"`
	RowsProduced         flexNum     `json:"rows_produced"`
	Warehouse            string      `json:"warehouse"`
	WarehouseSize        string      `json:"warehouse_size"`
	User                 string      `json:"user"`
	Role                 string      `json:"role"`
	Database             string      `json:"database"`
	Schema               string      `json:"schema"`
	RetryCount           flexNum     `json:"retry_count"`
	Credits              flexNullNum `json:"credits"`
	CloudServicesCredits flexNullNum `json:"cloud_services_credits"`
}

type jsonCredit struct {
	Warehouse            string   `json:"warehouse"`
	BucketStart          flexTime `json:"bucket_start"`
	BucketEnd            flexTime `json:"bucket_end"`
	Credits              flexNum  `json:"credits"`
	ComputeCredits       flexNum  `json:"compute_credits"`
	CloudServicesCredits flexNum  `json:"cloud_services_credits"`
}

type jsonDocument struct {
	Queries []jsonQuery  `json:"queries"`
	Credits []jsonCredit `json:"credits"`
}

func readJSONFile(path string) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, err
	}
	return decodeJSON(data)
}

func readJSONCreditsFile(path string) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var credits []jsonCredit
		if err := json.Unmarshal(trimmed, &credits); err != nil {
			return Input{}, err
		}
		return Input{Credits: convertCredits(credits)}, nil
	}
	return decodeJSON(trimmed)
}

// decodeJSON accepts either an array of query rows or {"queries": [...], "credits": [...]}.
func decodeJSON(data []byte) (Input, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Input{}, nil
	}

	var doc jsonDocument
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &doc.Queries); err != nil {
			return Input{}, err
		}
	case '{':
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return Input{}, err
		}
	default:
		return Input{}, fmt.Errorf("expected a JSON array or object")
	}

	in := Input{
		Queries: make([]schema.QueryRecord, 0, len(doc.Queries)),
		Credits: convertCredits(doc.Credits),
	}
	for _, q := range doc.Queries {
		in.Queries = append(in.Queries, q.record())
	}
	return in, nil
}

func convertCredits(rows []jsonCredit) []schema.CreditUsageRecord {
	out := make([]schema.CreditUsageRecord, 0, len(rows))
	for _, c := range rows {
		out = append(out, schema.CreditUsageRecord{
			Warehouse:            c.Warehouse,
			BucketStart:          time.Time(c.BucketStart),
			BucketEnd:            time.Time(c.BucketEnd),
			Credits:              nonNegative(float64(c.Credits)),
			ComputeCredits:       nonNegative(float64(c.ComputeCredits)),
			CloudServicesCredits: nonNegative(float64(c.CloudServicesCredits)),
		})
	}
	return out
}

func (q jsonQuery) record() schema.QueryRecord {
	return schema.QueryRecord{
		ID:                   q.ID,
		Text:                 q.Text,
		Fingerprint:          q.Fingerprint,
		QueryType:            q.QueryType,
		ExecutionStatus:      q.ExecutionStatus,
		StartTime:            time.Time(q.StartTime),
		EndTime:              time.Time(q.EndTime),
		Elapsed:              msDuration(float64(q.ElapsedMs)),
		Execution:            msDuration(float64(q.ExecutionMs)),
		Compilation:          msDuration(float64(q.CompilationMs)),
		Queued:               msDuration(float64(q.QueuedMs)),
		BytesScanned:         count(float64(q.BytesScanned)),
		BytesSpilledLocal:    count(float64(q.BytesSpilledLocal)),
		BytesSpilledRemote:   count(float64(q.BytesSpilledRemote)),
		PartitionsScanned:    count(float64(q.PartitionsScanned)),
		PartitionsTotal:      count(float64(q.PartitionsTotal)),
		CachePercent:         nonNegative(float64(q.CachePercent)),
		RowsProduced:         count(float64(q.RowsProduced)),
		Warehouse:            q.Warehouse,
		WarehouseSize:        schema.ParseWarehouseSize(q.WarehouseSize),
		User:                 q.User,
		Role:                 q.Role,
		Database:             q.Database,
		Schema:               q.Schema,
		RetryCount:           int(count(float64(q.RetryCount))),
		Credits:              q.Credits.ptr(),
		CloudServicesCredits: q.CloudServicesCredits.ptr(),
	}
}
