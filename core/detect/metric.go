package detect

import (
	"github.com/huangsam/querylens/schema"
)

// checkSpill reports remote spilling, or local spilling when nothing went remote.
func checkSpill(b *Batch, i int) []schema.Finding {
	rec := &b.Records[i]
	th := b.Thresholds
	switch {
	case rec.BytesSpilledRemote > th.RemoteSpillFloor:
		return one(queryHit(schema.IssueRemoteSpill, rec, fmtBytes(rec.BytesSpilledRemote)))
	case rec.BytesSpilledRemote == 0 && rec.BytesSpilledLocal > th.LocalSpillFloor:
		return one(queryHit(schema.IssueLocalSpill, rec, fmtBytes(rec.BytesSpilledLocal)))
	}
	return nil
}

func checkPruning(b *Batch, i int) []schema.Finding {
	rec := &b.Records[i]
	th := b.Thresholds
	if rec.PartitionsTotal <= th.PruningMinPartitions {
		return nil
	}
	r, ok := ratio(float64(rec.PartitionsScanned), float64(rec.PartitionsTotal))
	if !ok || r*100 <= th.PruningScanPct {
		return nil
	}
	return one(queryHit(schema.IssuePoorPruning, rec, fmtPct(r*100)))
}

func checkCache(b *Batch, i int) []schema.Finding {
	rec := &b.Records[i]
	th := b.Thresholds
	if rec.Elapsed > th.CacheMinElapsed && rec.CachePercent < th.CachePctFloor {
		return one(queryHit(schema.IssueLowCache, rec, fmtPct(rec.CachePercent)))
	}
	return nil
}

func checkCompilation(b *Batch, i int) []schema.Finding {
	rec := &b.Records[i]
	th := b.Thresholds
	if rec.Compilation <= th.CompileFloor {
		return nil
	}
	r, ok := ratio(float64(rec.Compilation), float64(rec.Elapsed))
	if !ok || r <= th.CompileRatio {
		return nil
	}
	return one(queryHit(schema.IssueCompilation, rec, fmtDuration(rec.Compilation)+" ("+fmtPct(r*100)+" of elapsed)"))
}

// checkFullScan flags large scans that applied no partition filter: either
// the statement has no WHERE clause or it read every partition.
func checkFullScan(b *Batch, i int) []schema.Finding {
	rec := &b.Records[i]
	if rec.BytesScanned <= b.Thresholds.FullScanBytesFloor {
		return nil
	}
	unfiltered := rec.PartitionsTotal > 0 && rec.PartitionsScanned >= rec.PartitionsTotal
	if !unfiltered {
		unfiltered = !hasWhere(b, i)
	}
	if !unfiltered {
		return nil
	}
	return one(queryHit(schema.IssueFullScan, rec, fmtBytes(rec.BytesScanned)))
}

func hasWhere(b *Batch, i int) bool {
	for _, tok := range b.Tokens[i] {
		if tok.Is("where") {
			return true
		}
	}
	return false
}

func checkRetry(b *Batch, i int) []schema.Finding {
	rec := &b.Records[i]
	if rec.RetryCount <= 0 {
		return nil
	}
	return one(queryHit(schema.IssueRetry, rec, fmtCount(int64(rec.RetryCount), "time", "times")))
}

// checkCloudServices flags statements whose cloud-services share of credits is high.
func checkCloudServices(b *Batch, i int) []schema.Finding {
	rec := &b.Records[i]
	if rec.Credits == nil || rec.CloudServicesCredits == nil {
		return nil
	}
	r, ok := ratio(*rec.CloudServicesCredits, *rec.Credits)
	if !ok || r <= b.Thresholds.CloudServicesRatio {
		return nil
	}
	return one(queryHit(schema.IssueCloudServices, rec, fmtPct(r*100)))
}
