package detect

import (
	"sort"
	"time"

	"github.com/huangsam/querylens/schema"
)

type warehouseStats struct {
	name      string
	size      schema.WarehouseSize
	count     int
	execution time.Duration
	queued    time.Duration
	first     time.Time
}

// detectWarehouseSizing reports, once per warehouse, an oversized warehouse
// running only short queries and sustained queuing.
func detectWarehouseSizing(b *Batch) []schema.Finding {
	stats := make(map[string]*warehouseStats)
	for i := range b.Records {
		rec := &b.Records[i]
		if rec.Warehouse == "" {
			continue
		}
		ws, ok := stats[rec.Warehouse]
		if !ok {
			ws = &warehouseStats{name: rec.Warehouse, first: rec.StartTime}
			stats[rec.Warehouse] = ws
		}
		ws.count++
		ws.execution += rec.Execution
		ws.queued += rec.Queued
		ws.size = max(ws.size, rec.WarehouseSize)
		if rec.StartTime.Before(ws.first) {
			ws.first = rec.StartTime
		}
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	th := b.Thresholds
	var out []schema.Finding
	for _, name := range names {
		ws := stats[name]
		mean := ws.execution / time.Duration(ws.count)
		if ws.size >= th.OversizedMinSize && th.OversizedMinSize != schema.SizeUnknown && mean < th.OversizedExecCeiling {
			out = append(out, hit{
				issue:     schema.IssueOversizedWarehouse,
				subject:   name,
				at:        ws.first,
				value:     fmtDuration(mean) + " across " + fmtCount(int64(ws.count), "query", "queries") + " (" + ws.size.String() + ")",
				warehouse: name,
			}.finding())
		}
		if ws.queued > th.QueuedFloor {
			out = append(out, hit{
				issue:     schema.IssueWarehouseQueuing,
				subject:   name,
				at:        ws.first,
				value:     fmtDuration(ws.queued),
				warehouse: name,
			}.finding())
		}
	}
	return out
}
