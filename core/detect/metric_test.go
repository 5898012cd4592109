package detect

import (
	"testing"
	"time"

	"github.com/huangsam/querylens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestCheckSpill(t *testing.T) {
	tests := []struct {
		name   string
		local  int64
		remote int64
		want   []schema.Issue
	}{
		{"no spill", 0, 0, nil},
		{"remote one byte", 0, 1, []schema.Issue{schema.IssueRemoteSpill}},
		{"local only", 1 << 20, 0, []schema.Issue{schema.IssueLocalSpill}},
		{"both reports remote", 1 << 20, 1 << 30, []schema.Issue{schema.IssueRemoteSpill}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rec("q", "select 1", base)
			r.BytesSpilledLocal = tt.local
			r.BytesSpilledRemote = tt.remote
			got := runRecord(t, checkSpill, r)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, issues(got))
		})
	}
}

func TestRemoteSpillSeverityAndValue(t *testing.T) {
	r := rec("q", "select 1", base)
	r.BytesSpilledRemote = 3 << 30
	got := runRecord(t, checkSpill, r)
	require.Len(t, got, 1)
	assert.Equal(t, schema.SeverityCritical, got[0].Severity)
	assert.Equal(t, "Spilled 3.0 GiB to remote storage", got[0].Description)
	assert.Equal(t, "q", got[0].Subject)
	assert.Equal(t, "WH", got[0].Warehouse)
}

func TestCheckPruning(t *testing.T) {
	tests := []struct {
		name         string
		scanned, tot int64
		fires        bool
	}{
		{"small table", 100, 100, false},
		{"well pruned", 10, 1000, false},
		{"exactly half", 500, 1000, false},
		{"poorly pruned", 900, 1000, true},
		{"zero total", 5, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rec("q", "select 1", base)
			r.PartitionsScanned, r.PartitionsTotal = tt.scanned, tt.tot
			got := runRecord(t, checkPruning, r)
			if !tt.fires {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Contains(t, got[0].Description, "90.0%")
		})
	}
}

func TestCheckCache(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		pct     float64
		fires   bool
	}{
		{"fast query", 2 * time.Second, 0, false},
		{"slow cold", 30 * time.Second, 5, true},
		{"slow warm", 30 * time.Second, 80, false},
		{"boundary elapsed", 10 * time.Second, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rec("q", "select 1", base)
			r.Elapsed, r.CachePercent = tt.elapsed, tt.pct
			assert.Equal(t, tt.fires, len(runRecord(t, checkCache, r)) == 1)
		})
	}
}

func TestCheckCompilation(t *testing.T) {
	tests := []struct {
		name             string
		compile, elapsed time.Duration
		fires            bool
	}{
		{"short compile", 2 * time.Second, 3 * time.Second, false},
		{"long compile small share", 6 * time.Second, 60 * time.Second, false},
		{"long compile large share", 6 * time.Second, 10 * time.Second, true},
		{"zero elapsed", 6 * time.Second, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rec("q", "select 1", base)
			r.Compilation, r.Elapsed = tt.compile, tt.elapsed
			assert.Equal(t, tt.fires, len(runRecord(t, checkCompilation, r)) == 1)
		})
	}
}

func TestCheckFullScan(t *testing.T) {
	big := int64(20 << 30)
	tests := []struct {
		name         string
		sql          string
		bytes        int64
		scanned, tot int64
		fires        bool
	}{
		{"no where large", "select a from big", big, 0, 0, true},
		{"filtered large", "select a from big where d = 1", big, 10, 1000, false},
		{"all partitions read", "select a from big where upper(x) = 'y'", big, 1000, 1000, true},
		{"small table", "select a from small", 1 << 20, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rec("q", tt.sql, base)
			r.BytesScanned, r.PartitionsScanned, r.PartitionsTotal = tt.bytes, tt.scanned, tt.tot
			got := runRecord(t, checkFullScan, r)
			assert.Equal(t, tt.fires, len(got) == 1)
		})
	}
}

func TestCheckRetry(t *testing.T) {
	r := rec("q", "select 1", base)
	assert.Empty(t, runRecord(t, checkRetry, r))

	r.RetryCount = 2
	got := runRecord(t, checkRetry, r)
	require.Len(t, got, 1)
	assert.Equal(t, schema.SeverityHigh, got[0].Severity)
	assert.Equal(t, schema.CategoryOperational, got[0].Category)
	assert.Equal(t, "Statement was retried 2 times", got[0].Description)
}

func TestCheckCloudServices(t *testing.T) {
	r := rec("q", "select 1", base)
	assert.Empty(t, runRecord(t, checkCloudServices, r), "absent credits never trigger")

	r.Credits, r.CloudServicesCredits = ptr(0), ptr(1)
	assert.Empty(t, runRecord(t, checkCloudServices, r), "zero denominator")

	r.Credits, r.CloudServicesCredits = ptr(1), ptr(0.05)
	assert.Empty(t, runRecord(t, checkCloudServices, r))

	r.Credits, r.CloudServicesCredits = ptr(1), ptr(0.4)
	got := runRecord(t, checkCloudServices, r)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Description, "40.0%")
}

func TestMetricDetectorsTolerateZeroRecord(t *testing.T) {
	checks := []func(*Batch, int) []schema.Finding{
		checkSpill, checkPruning, checkCache, checkCompilation, checkFullScan, checkRetry, checkCloudServices,
	}
	for _, check := range checks {
		assert.Empty(t, runRecord(t, check, schema.QueryRecord{}))
	}
}
