package detect

import (
	"sort"
	"strconv"
	"time"

	"github.com/huangsam/querylens/schema"
)

// detectBursts reports, per fingerprint, every burst of at least BurstCount
// executions within BurstWindow. Overlapping windows collapse into the
// earliest; a later, disjoint cluster is reported on its own.
func detectBursts(b *Batch) []schema.Finding {
	th := b.Thresholds
	if th.BurstCount < 1 || th.BurstWindow <= 0 {
		return nil
	}

	var out []schema.Finding
	for _, fp := range b.Keys {
		idx := timed(b, b.Groups[fp])
		if len(idx) < th.BurstCount {
			continue
		}
		for _, span := range bursts(b, idx, th.BurstWindow, th.BurstCount) {
			first := &b.Records[idx[span[0]]]
			elapsed := b.Records[idx[span[1]]].StartTime.Sub(first.StartTime)
			members := idx[span[0] : span[1]+1]
			out = append(out, hit{
				issue:     schema.IssueRedundantBurst,
				subject:   fp,
				at:        first.StartTime,
				value:     strconv.Itoa(len(members)) + " times within " + fmtDuration(elapsed) + " (window " + fmtDuration(th.BurstWindow) + ")",
				warehouse: commonWarehouse(b, members),
				user:      commonUser(b, members),
			}.finding())
		}
	}
	return out
}

// timed drops records with no start time.
func timed(b *Batch, idx []int) []int {
	out := idx[:0:0]
	for _, i := range idx {
		if !b.Records[i].StartTime.IsZero() {
			out = append(out, i)
		}
	}
	return out
}

// bursts returns the [first, last] index range of each burst in start order.
// A burst opens at the first window with enough executions and extends to
// every execution still within the window of its first member; scanning
// resumes after its last member.
func bursts(b *Batch, idx []int, window time.Duration, count int) [][2]int {
	var out [][2]int
	left := 0
	for right := 0; right < len(idx); right++ {
		at := b.Records[idx[right]].StartTime
		for at.Sub(b.Records[idx[left]].StartTime) > window {
			left++
		}
		if right-left+1 < count {
			continue
		}
		end := right
		anchor := b.Records[idx[left]].StartTime
		for end+1 < len(idx) && b.Records[idx[end+1]].StartTime.Sub(anchor) <= window {
			end++
		}
		out = append(out, [2]int{left, end})
		left, right = end+1, end
	}
	return out
}

// detectSpikes reports every execution slower than SpikeMultiplier times
// its fingerprint's median, for groups with enough samples.
func detectSpikes(b *Batch) []schema.Finding {
	th := b.Thresholds
	minSamples := max(th.SpikeMinSamples, 1)

	var out []schema.Finding
	for _, fp := range b.Keys {
		idx := b.Groups[fp]
		if len(idx) < minSamples {
			continue
		}
		samples := make([]time.Duration, len(idx))
		for k, i := range idx {
			samples[k] = b.Records[i].Execution
		}
		med := median(samples)
		if med <= 0 {
			continue
		}
		limit := float64(med) * th.SpikeMultiplier
		for _, i := range idx {
			rec := &b.Records[i]
			if float64(rec.Execution) <= limit {
				continue
			}
			factor := float64(rec.Execution) / float64(med)
			value := fmtDuration(rec.Execution) + " vs " + fmtDuration(med) + " median (" + strconv.FormatFloat(factor, 'f', 1, 64) + "x)"
			out = append(out, queryHit(schema.IssueRuntimeSpike, rec, value).finding())
		}
	}
	return out
}

// median of a sample; the input is not modified.
func median(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// checkOffHours flags statements started inside the off-hours window in the
// configured time zone. A window ending before it starts wraps midnight.
func checkOffHours(b *Batch, i int) []schema.Finding {
	rec := &b.Records[i]
	if rec.StartTime.IsZero() {
		return nil
	}
	th := b.Thresholds
	if th.OffHoursStart == th.OffHoursEnd {
		return nil
	}
	loc := b.Location
	if loc == nil {
		loc = time.Local
	}
	local := rec.StartTime.In(loc)
	offset := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute + time.Duration(local.Second())*time.Second

	var inside bool
	if th.OffHoursStart < th.OffHoursEnd {
		inside = offset >= th.OffHoursStart && offset < th.OffHoursEnd
	} else {
		inside = offset >= th.OffHoursStart || offset < th.OffHoursEnd
	}
	if !inside {
		return nil
	}
	return one(queryHit(schema.IssueOffHours, rec, local.Format("15:04 MST")))
}
