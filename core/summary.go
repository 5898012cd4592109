package core

import (
	"sort"
	"strings"
	"time"

	"github.com/huangsam/querylens/core/detect"
	"github.com/huangsam/querylens/schema"
)

// buildSummary counts findings per severity, category and issue, and joins
// the metered credits that overlap [start, end].
func buildSummary(findings []schema.Finding, credits []schema.CreditUsageRecord, start, end time.Time) schema.Summary {
	s := schema.NewSummary()
	s.TotalFindings = len(findings)

	byIssue := make(map[schema.Issue]*schema.IssueCount)
	for _, f := range findings {
		s.BySeverity[f.Severity]++
		s.ByCategory[f.Category]++

		ic, ok := byIssue[f.Issue]
		if !ok {
			ic = &schema.IssueCount{Issue: f.Issue, Category: f.Category, Severity: f.Severity}
			if rule, found := detect.Lookup(f.Issue); found {
				ic.Action = rule.Action
			}
			byIssue[f.Issue] = ic
		}
		// escalated findings lift the rolled-up severity
		if f.Severity.Rank() > ic.Severity.Rank() {
			ic.Severity = f.Severity
		}
		ic.Count++
	}

	for _, ic := range byIssue {
		s.ByIssue = append(s.ByIssue, *ic)
	}
	sort.Slice(s.ByIssue, func(i, j int) bool {
		a, b := s.ByIssue[i], s.ByIssue[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Severity != b.Severity {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		return a.Issue < b.Issue
	})

	if !start.IsZero() {
		s.WarehouseCredits = joinCredits(credits, start, end)
	}
	return s
}

// joinCredits sums buckets per warehouse that overlap the batch range.
// Warehouse names are matched case-insensitively and reported as first seen.
func joinCredits(credits []schema.CreditUsageRecord, start, end time.Time) []schema.WarehouseCredits {
	byName := make(map[string]*schema.WarehouseCredits)
	for _, c := range credits {
		if c.Warehouse == "" || !c.Overlaps(start, end) {
			continue
		}
		key := strings.ToUpper(c.Warehouse)
		wc, ok := byName[key]
		if !ok {
			wc = &schema.WarehouseCredits{Warehouse: c.Warehouse}
			byName[key] = wc
		}
		wc.Credits += c.Credits
		wc.ComputeCredits += c.ComputeCredits
		wc.CloudServicesCredits += c.CloudServicesCredits
		wc.Buckets++
	}

	out := make([]schema.WarehouseCredits, 0, len(byName))
	for _, wc := range byName {
		out = append(out, *wc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Credits != out[j].Credits {
			return out[i].Credits > out[j].Credits
		}
		return out[i].Warehouse < out[j].Warehouse
	})
	return out
}

// buildOverview computes headline numbers. The window spans the earliest
// known start to the latest known start or end.
func buildOverview(records []schema.QueryRecord) schema.Overview {
	o := schema.Overview{TotalQueries: len(records)}
	if len(records) == 0 {
		return o
	}

	var execTotal time.Duration
	for i := range records {
		rec := &records[i]
		execTotal += rec.Execution
		o.TotalBytesScanned += rec.BytesScanned
		if rec.Credits != nil {
			o.TotalCredits += *rec.Credits
		}
		if rec.StartTime.IsZero() {
			continue
		}
		if o.WindowStart.IsZero() || rec.StartTime.Before(o.WindowStart) {
			o.WindowStart = rec.StartTime
		}
		end := rec.StartTime
		if rec.EndTime.After(end) {
			end = rec.EndTime
		}
		if end.After(o.WindowEnd) {
			o.WindowEnd = end
		}
	}
	o.MeanExecutionSec = execTotal.Seconds() / float64(len(records))
	return o
}

// runCounts flattens a summary into history rows.
func runCounts(runID int64, s schema.Summary) []schema.RunCountRecord {
	var out []schema.RunCountRecord
	for _, sev := range schema.AllSeverities {
		if n := s.BySeverity[sev]; n > 0 {
			out = append(out, schema.RunCountRecord{RunID: runID, Dimension: schema.DimensionSeverity, Key: string(sev), Count: int32(n)})
		}
	}
	for _, c := range schema.AllCategories {
		if n := s.ByCategory[c]; n > 0 {
			out = append(out, schema.RunCountRecord{RunID: runID, Dimension: schema.DimensionCategory, Key: string(c), Count: int32(n)})
		}
	}
	for _, ic := range s.ByIssue {
		out = append(out, schema.RunCountRecord{RunID: runID, Dimension: schema.DimensionIssue, Key: string(ic.Issue), Count: int32(ic.Count)})
	}
	return out
}
