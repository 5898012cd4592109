package core

import (
	"time"

	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/schema"
)

// runTracker records one history row per pass when a history store is configured.
// Tracking failures are logged and never fail the pass.
type runTracker struct {
	store contract.HistoryStore
	runID int64
}

func beginRun(cfg *contract.Config, mgr contract.CacheManager) *runTracker {
	t := &runTracker{}
	if mgr == nil {
		return t
	}
	t.store = mgr.GetHistoryStore()
	if t.store == nil {
		return t
	}
	runID, err := t.store.BeginRun(time.Now(), cfg.ConfigParams())
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return t
	}
	t.runID = runID
	return t
}

func (t *runTracker) end(report schema.Report) {
	if t.store == nil || t.runID <= 0 {
		return
	}
	if err := t.store.RecordCounts(t.runID, runCounts(t.runID, report.Summary)); err != nil {
		contract.LogWarn("Failed to record run counts", err)
	}
	if err := t.store.EndRun(t.runID, time.Now(), report.Overview.TotalQueries, report.Summary.TotalFindings); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}

// fail closes a run that produced no report so it does not stay open.
func (t *runTracker) fail() {
	if t.store == nil || t.runID <= 0 {
		return
	}
	if err := t.store.EndRun(t.runID, time.Now(), 0, 0); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}
