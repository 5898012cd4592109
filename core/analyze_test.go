package core

import (
	"strconv"
	"testing"
	"time"

	"github.com/huangsam/querylens/core/detect"
	"github.com/huangsam/querylens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeBatchDetectsPatterns(t *testing.T) {
	queries := []schema.QueryRecord{
		query("q1", "SELECT a.id FROM a CROSS JOIN b", 0, 2*time.Second),
		query("q2", "SELECT * FROM orders WHERE id = 7", time.Minute, time.Second),
	}

	report := AnalyzeBatch(testThresholds(), 4, queries, nil)
	require.NotEmpty(t, report.Findings)

	first := report.Findings[0]
	assert.Equal(t, schema.IssueCartesianJoin, first.Issue)
	assert.Equal(t, schema.SeverityCritical, first.Severity)
	assert.Equal(t, "q1", first.Subject)

	var issues []schema.Issue
	for _, f := range report.Findings {
		issues = append(issues, f.Issue)
	}
	assert.Contains(t, issues, schema.IssueSelectStar)

	assert.Equal(t, len(report.Findings), report.Summary.TotalFindings)
	assert.Equal(t, 2, report.Overview.TotalQueries)
	assert.InDelta(t, 1.5, report.Overview.MeanExecutionSec, 1e-9)
}

func TestAnalyzeBatchEmpty(t *testing.T) {
	report := AnalyzeBatch(testThresholds(), 2, nil, nil)
	assert.Empty(t, report.Findings)
	assert.Equal(t, 0, report.Summary.TotalFindings)
	assert.Equal(t, 0, report.Overview.TotalQueries)
	assert.True(t, report.Overview.WindowStart.IsZero())
	for _, sev := range schema.AllSeverities {
		assert.Equal(t, 0, report.Summary.BySeverity[sev])
	}
}

func TestAnalyzeBatchDeterministic(t *testing.T) {
	queries := []schema.QueryRecord{
		query("q1", "SELECT * FROM t1", 0, 2*time.Second),
		query("q2", "SELECT * FROM t2 CROSS JOIN t3", time.Minute, 3*time.Second),
		query("q3", "SELECT a FROM t4 UNION SELECT a FROM t5", 2*time.Minute, time.Second),
	}

	first := AnalyzeBatch(testThresholds(), 1, queries, nil)
	for range 5 {
		again := AnalyzeBatch(testThresholds(), 8, queries, nil)
		assert.Equal(t, first.Findings, again.Findings)
		assert.Equal(t, first.Summary, again.Summary)
	}
}

func TestAnalyzeBatchDoesNotMutateInput(t *testing.T) {
	queries := []schema.QueryRecord{query("q1", "SELECT * FROM t", 0, time.Second)}
	before := queries[0]

	_ = AnalyzeBatch(testThresholds(), 2, queries, nil)
	assert.Equal(t, before, queries[0])
	assert.Empty(t, queries[0].Fingerprint)
}

func TestAnalyzeBatchWithRecoversPanics(t *testing.T) {
	boom := detect.Func("boom", func(*detect.Batch) []schema.Finding { panic("bad detector") })
	ok := detect.Func("ok", func(b *detect.Batch) []schema.Finding {
		return []schema.Finding{{
			Subject:     b.Records[0].ID,
			SubjectKind: schema.SubjectQuery,
			Category:    schema.CategoryOperational,
			Issue:       schema.IssueRetry,
			Severity:    schema.SeverityLow,
			OccurredAt:  b.Records[0].StartTime,
		}}
	})

	queries := []schema.QueryRecord{query("q1", "SELECT 1", 0, time.Second)}
	report := AnalyzeBatchWith(testThresholds(), 2, queries, nil, []detect.Detector{boom, ok})
	require.Len(t, report.Findings, 1)
	assert.Equal(t, schema.IssueRetry, report.Findings[0].Issue)
}

func TestSortFindings(t *testing.T) {
	findings := []schema.Finding{
		{Subject: "b", Severity: schema.SeverityLow, OccurredAt: baseTime, Category: schema.CategoryOperational, Issue: schema.IssueRetry},
		{Subject: "a", Severity: schema.SeverityCritical, OccurredAt: baseTime.Add(time.Hour), Category: schema.CategoryPerformance, Issue: schema.IssueRemoteSpill},
		{Subject: "c", Severity: schema.SeverityCritical, OccurredAt: baseTime, Category: schema.CategoryAntiPattern, Issue: schema.IssueCartesianJoin},
		{Subject: "d", Severity: schema.SeverityCritical, OccurredAt: baseTime, Category: schema.CategoryAntiPattern, Issue: schema.IssueCartesianJoin},
	}
	sortFindings(findings)

	var subjects []string
	for _, f := range findings {
		subjects = append(subjects, f.Subject)
	}
	assert.Equal(t, []string{"c", "d", "a", "b"}, subjects)
}

func TestApplyWindow(t *testing.T) {
	queries := []schema.QueryRecord{
		query("old", "SELECT 1", -30*time.Hour, time.Second),
		query("edge", "SELECT 1", -24*time.Hour, time.Second),
		query("new", "SELECT 1", 0, time.Second),
		{ID: "unplaced", Text: "SELECT 1"},
	}

	tests := []struct {
		name  string
		hours int
		want  []string
	}{
		{"disabled", 0, []string{"old", "edge", "new", "unplaced"}},
		{"last day", 24, []string{"edge", "new", "unplaced"}},
		{"last hour", 1, []string{"new", "unplaced"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, q := range applyWindow(queries, tt.hours) {
				got = append(got, q.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func BenchmarkAnalyzeBatch(b *testing.B) {
	texts := []string{
		"SELECT * FROM orders WHERE id = 7",
		"SELECT a.id FROM a CROSS JOIN b",
		"SELECT id FROM events WHERE UPPER(kind) = 'X'",
		"SELECT a FROM t1 UNION SELECT a FROM t2",
	}
	queries := make([]schema.QueryRecord, 0, 2000)
	for i := range 2000 {
		id := "q" + strconv.Itoa(i)
		queries = append(queries, query(id, texts[i%len(texts)], time.Duration(i)*time.Second, time.Duration(1+i%7)*time.Second))
	}
	th := testThresholds()

	b.ResetTimer()
	for b.Loop() {
		_ = AnalyzeBatch(th, 4, queries, nil)
	}
}
