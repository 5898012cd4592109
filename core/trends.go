package core

import (
	"sort"
	"strings"
	"time"

	"github.com/huangsam/querylens/core/fingerprint"
	"github.com/huangsam/querylens/schema"
)

const bytesPerGB = 1 << 30

// BuildTrends summarizes a batch over time: hourly activity, the most
// expensive statements and their execution time distribution, query types,
// busiest users and metered credits.
func BuildTrends(th schema.Thresholds, topN int, queries []schema.QueryRecord, credits []schema.CreditUsageRecord) schema.TrendsResult {
	records := applyWindow(queries, th.WindowHours)
	overview := buildOverview(records)
	result := schema.TrendsResult{
		Overview:         overview,
		Hourly:           []schema.HourlyPoint{},
		TopQueries:       []schema.TopQuery{},
		ExecutionBuckets: []schema.ExecutionBucket{},
		QueryTypes:       []schema.NameCount{},
		TopUsers:         []schema.NameCount{},
		WarehouseCredits: []schema.WarehouseCredits{},
	}
	if len(records) == 0 {
		return result
	}
	if !overview.WindowStart.IsZero() {
		result.WarehouseCredits = joinCredits(credits, overview.WindowStart, overview.WindowEnd)
	}
	if len(result.WarehouseCredits) > 0 {
		result.Overview.TotalCredits = 0
		for _, wc := range result.WarehouseCredits {
			result.Overview.TotalCredits += wc.Credits
		}
	}

	loc := th.Location()
	result.Hourly = hourlyPoints(records, credits, overview, loc)
	result.TopQueries = topQueries(records, topN)
	result.ExecutionBuckets = executionBuckets(records)
	result.QueryTypes = tally(records, func(r *schema.QueryRecord) string {
		if r.QueryType == "" {
			return "UNKNOWN"
		}
		return strings.ToUpper(r.QueryType)
	}, 0)
	result.TopUsers = tally(records, func(r *schema.QueryRecord) string { return r.User }, topN)
	return result
}

type hourAcc struct {
	queries int
	exec    time.Duration
	credits float64
}

func hourlyPoints(records []schema.QueryRecord, credits []schema.CreditUsageRecord, o schema.Overview, loc *time.Location) []schema.HourlyPoint {
	hours := make(map[time.Time]*hourAcc)
	bucket := func(t time.Time) *hourAcc {
		lt := t.In(loc)
		h := time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), 0, 0, 0, loc)
		acc, ok := hours[h]
		if !ok {
			acc = &hourAcc{}
			hours[h] = acc
		}
		return acc
	}

	metered := false
	for _, c := range credits {
		if c.BucketStart.IsZero() || !c.Overlaps(o.WindowStart, o.WindowEnd) {
			continue
		}
		bucket(c.BucketStart).credits += c.Credits
		metered = true
	}

	for i := range records {
		rec := &records[i]
		if rec.StartTime.IsZero() {
			continue
		}
		acc := bucket(rec.StartTime)
		acc.queries++
		acc.exec += rec.Execution
		if !metered && rec.Credits != nil {
			acc.credits += *rec.Credits
		}
	}

	points := make([]schema.HourlyPoint, 0, len(hours))
	for h, acc := range hours {
		p := schema.HourlyPoint{Hour: h, Queries: acc.queries, Credits: acc.credits}
		if acc.queries > 0 {
			p.MeanExecutionSec = acc.exec.Seconds() / float64(acc.queries)
		}
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Hour.Before(points[j].Hour) })
	return points
}

func topQueries(records []schema.QueryRecord, topN int) []schema.TopQuery {
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := &records[idx[a]], &records[idx[b]]
		if ra.Execution != rb.Execution {
			return ra.Execution > rb.Execution
		}
		return ra.ID < rb.ID
	})
	if topN > 0 && len(idx) > topN {
		idx = idx[:topN]
	}

	out := make([]schema.TopQuery, 0, len(idx))
	for _, i := range idx {
		rec := &records[i]
		fp := rec.Fingerprint
		if fp == "" {
			fp = fingerprint.Fingerprint(rec.Text)
		}
		out = append(out, schema.TopQuery{
			ID:           rec.ID,
			Fingerprint:  fp,
			Text:         rec.Text,
			User:         rec.User,
			Warehouse:    rec.Warehouse,
			StartTime:    rec.StartTime,
			ExecutionSec: rec.Execution.Seconds(),
			GBScanned:    float64(rec.BytesScanned) / bytesPerGB,
		})
	}
	return out
}

// executionBounds are the upper bounds of the execution time buckets; the
// last bucket is open-ended.
var executionBounds = []struct {
	label string
	max   time.Duration
}{
	{"< 1s", time.Second},
	{"1s - 10s", 10 * time.Second},
	{"10s - 1m", time.Minute},
	{"1m - 5m", 5 * time.Minute},
	{"5m - 15m", 15 * time.Minute},
	{"15m - 1h", time.Hour},
	{">= 1h", 0},
}

// executionBuckets is the execution time histogram of the batch. Every
// bucket is present, empty ones included, so runs compare line for line.
func executionBuckets(records []schema.QueryRecord) []schema.ExecutionBucket {
	out := make([]schema.ExecutionBucket, len(executionBounds))
	var lower time.Duration
	for i, b := range executionBounds {
		out[i] = schema.ExecutionBucket{Label: b.label, MinSec: lower.Seconds(), MaxSec: b.max.Seconds()}
		lower = b.max
	}
	for i := range records {
		exec := records[i].Execution
		k := len(executionBounds) - 1
		for j, b := range executionBounds[:k] {
			if exec < b.max {
				k = j
				break
			}
		}
		out[k].Queries++
	}
	return out
}

// tally counts records by key, dropping empty keys. A limit of 0 keeps all.
func tally(records []schema.QueryRecord, key func(*schema.QueryRecord) string, limit int) []schema.NameCount {
	counts := make(map[string]int)
	for i := range records {
		if k := key(&records[i]); k != "" {
			counts[k]++
		}
	}
	out := make([]schema.NameCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, schema.NameCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
