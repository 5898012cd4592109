package detect

import (
	"strconv"
	"time"

	"github.com/huangsam/querylens/schema"
)

// detectRepetition reports fingerprints executed often enough, and expensive
// enough per run, to be worth caching or consolidating.
func detectRepetition(b *Batch) []schema.Finding {
	th := b.Thresholds
	floor := max(th.RepetitionCount, 2)

	var out []schema.Finding
	for _, fp := range b.Keys {
		idx := b.Groups[fp]
		if len(idx) < floor {
			continue
		}

		var total time.Duration
		var credits float64
		allCredited := true
		for _, i := range idx {
			rec := &b.Records[i]
			total += rec.Execution
			if rec.Credits == nil {
				allCredited = false
			} else {
				credits += *rec.Credits
			}
		}
		if total/time.Duration(len(idx)) < th.RepetitionExecFloor {
			continue
		}

		value := strconv.Itoa(len(idx)) + " times for " + fmtDuration(total) + " of execution"
		if allCredited {
			value += " and " + strconv.FormatFloat(credits, 'f', 3, 64) + " credits"
		}
		first := &b.Records[idx[0]]
		out = append(out, hit{
			issue:     schema.IssueRepeatedQuery,
			subject:   fp,
			at:        first.StartTime,
			value:     value,
			escalate:  total > th.RepetitionHighCost,
			warehouse: commonWarehouse(b, idx),
			user:      commonUser(b, idx),
		}.finding())
	}
	return out
}

// commonWarehouse returns the warehouse shared by every record, or "".
func commonWarehouse(b *Batch, idx []int) string {
	name := b.Records[idx[0]].Warehouse
	for _, i := range idx[1:] {
		if b.Records[i].Warehouse != name {
			return ""
		}
	}
	return name
}

// commonUser returns the user shared by every record, or "".
func commonUser(b *Batch, idx []int) string {
	name := b.Records[idx[0]].User
	for _, i := range idx[1:] {
		if b.Records[i].User != name {
			return ""
		}
	}
	return name
}
