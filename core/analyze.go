package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/huangsam/querylens/core/detect"
	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/schema"
	"golang.org/x/sync/errgroup"
)

// AnalyzeBatch runs every stock detector over queries and returns the ordered report.
// Inputs are never mutated. Identical input yields identical output.
func AnalyzeBatch(th schema.Thresholds, workers int, queries []schema.QueryRecord, credits []schema.CreditUsageRecord) schema.Report {
	return AnalyzeBatchWith(th, workers, queries, credits, detect.Default())
}

// AnalyzeBatchWith is AnalyzeBatch with an explicit detector set.
func AnalyzeBatchWith(th schema.Thresholds, workers int, queries []schema.QueryRecord, credits []schema.CreditUsageRecord, detectors []detect.Detector) schema.Report {
	windowed := applyWindow(queries, th.WindowHours)
	batch := detect.NewBatch(windowed, th)
	batch.Warn = contract.LogWarn

	findings := runDetectors(batch, detectors, workers)
	sortFindings(findings)

	overview := buildOverview(batch.Records)
	summary := buildSummary(findings, credits, overview.WindowStart, overview.WindowEnd)
	if len(summary.WarehouseCredits) > 0 {
		overview.TotalCredits = 0
		for _, wc := range summary.WarehouseCredits {
			overview.TotalCredits += wc.Credits
		}
	}

	return schema.Report{
		Findings: findings,
		Summary:  summary,
		Overview: overview,
	}
}

// runDetectors fans detectors out to at most workers goroutines. Each detector
// writes to its own slot so the merged order is the detector order.
func runDetectors(b *detect.Batch, detectors []detect.Detector, workers int) []schema.Finding {
	slots := make([][]schema.Finding, len(detectors))

	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i, d := range detectors {
		g.Go(func() error {
			slots[i] = safeDetect(b, d)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, s := range slots {
		total += len(s)
	}
	findings := make([]schema.Finding, 0, total)
	for _, s := range slots {
		findings = append(findings, s...)
	}
	return findings
}

func safeDetect(b *detect.Batch, d detect.Detector) (found []schema.Finding) {
	defer func() {
		if r := recover(); r != nil {
			found = nil
			contract.LogWarn(fmt.Sprintf("Detector %s failed", d.Name()), fmt.Errorf("panic: %v", r))
		}
	}()
	return d.Detect(b)
}

// sortFindings orders by severity desc, then time, category, issue and subject.
func sortFindings(findings []schema.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := &findings[i], &findings[j]
		if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
			return ra > rb
		}
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.Before(b.OccurredAt)
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Issue != b.Issue {
			return a.Issue < b.Issue
		}
		return a.Subject < b.Subject
	})
}

// applyWindow keeps records that started within hours of the latest start.
// Records without a start time are kept since they cannot be placed.
func applyWindow(queries []schema.QueryRecord, hours int) []schema.QueryRecord {
	if hours <= 0 {
		return queries
	}
	var latest time.Time
	for i := range queries {
		if queries[i].StartTime.After(latest) {
			latest = queries[i].StartTime
		}
	}
	if latest.IsZero() {
		return queries
	}
	cutoff := latest.Add(-time.Duration(hours) * time.Hour)

	out := make([]schema.QueryRecord, 0, len(queries))
	for i := range queries {
		start := queries[i].StartTime
		if start.IsZero() || !start.Before(cutoff) {
			out = append(out, queries[i])
		}
	}
	return out
}
