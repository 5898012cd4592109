package detect

import (
	"testing"
	"time"

	"github.com/huangsam/querylens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)

// testThresholds pins the time zone so off-hours results do not depend on the host.
func testThresholds() schema.Thresholds {
	th := schema.DefaultThresholds()
	th.TimeZone = "UTC"
	return th
}

func rec(id, text string, at time.Time) schema.QueryRecord {
	return schema.QueryRecord{ID: id, Text: text, StartTime: at, EndTime: at.Add(time.Second), Warehouse: "WH", User: "alice"}
}

func issues(findings []schema.Finding) []schema.Issue {
	out := make([]schema.Issue, len(findings))
	for i, f := range findings {
		out[i] = f.Issue
	}
	return out
}

func runRecord(t *testing.T, check func(*Batch, int) []schema.Finding, r schema.QueryRecord) []schema.Finding {
	t.Helper()
	b := NewBatch([]schema.QueryRecord{r}, testThresholds())
	return check(b, 0)
}

func TestNewBatchGroupsByFingerprint(t *testing.T) {
	records := []schema.QueryRecord{
		rec("b", "select a from t where id = 2", base.Add(time.Minute)),
		rec("a", "SELECT a FROM t WHERE id = 1", base.Add(time.Minute)),
		rec("c", "select a from t where id = 3", base),
		rec("d", "select b from u", base),
	}
	b := NewBatch(records, testThresholds())

	require.Len(t, b.Keys, 2)
	fp := "select a from t where id = ?"
	assert.Equal(t, []int{2, 1, 0}, b.Groups[fp], "ordered by start time, ties by id")
	assert.Equal(t, fp, b.Records[0].Fingerprint)
	assert.Equal(t, "", records[0].Fingerprint, "input must not be mutated")
}

func TestNewBatchKeepsProvidedFingerprint(t *testing.T) {
	r := rec("a", "select 1", base)
	r.Fingerprint = "custom"
	b := NewBatch([]schema.QueryRecord{r}, testThresholds())
	assert.Equal(t, []string{"custom"}, b.Keys)
}

func TestRecordDetectorRecoversPerRecord(t *testing.T) {
	var warned []error
	b := NewBatch([]schema.QueryRecord{rec("ok1", "x", base), rec("boom", "y", base), rec("ok2", "z", base)}, testThresholds())
	b.Warn = func(_ string, err error) { warned = append(warned, err) }

	d := recordDetector{name: "flaky", check: func(b *Batch, i int) []schema.Finding {
		if b.Records[i].ID == "boom" {
			panic("bad record")
		}
		return one(queryHit(schema.IssueRetry, &b.Records[i], "1 time"))
	}}

	findings := d.Detect(b)
	require.Len(t, findings, 2)
	assert.Equal(t, "ok1", findings[0].Subject)
	assert.Equal(t, "ok2", findings[1].Subject)
	require.Len(t, warned, 1)
	assert.Contains(t, warned[0].Error(), "bad record")
}

func TestDefaultDetectorsHaveUniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range Default() {
		assert.False(t, seen[d.Name()], d.Name())
		seen[d.Name()] = true
	}
	assert.Len(t, seen, 16)
}

func TestFunc(t *testing.T) {
	d := Func("custom", func(*Batch) []schema.Finding { return []schema.Finding{{Subject: "x"}} })
	assert.Equal(t, "custom", d.Name())
	assert.Len(t, d.Detect(NewBatch(nil, testThresholds())), 1)
}

func TestEmptyBatch(t *testing.T) {
	b := NewBatch(nil, testThresholds())
	for _, d := range Default() {
		assert.Empty(t, d.Detect(b), d.Name())
	}
}
