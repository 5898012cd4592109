package core

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/internal/iocache"
	"github.com/huangsam/querylens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func cachingConfig(t *testing.T) *contract.Config {
	return &contract.Config{
		QueriesFile: writeBatch(t),
		Thresholds:  testThresholds(),
		Workers:     2,
		CacheTTL:    5 * time.Minute,
	}
}

func cachedMarker() []byte {
	data, _ := json.Marshal(schema.Report{Overview: schema.Overview{TotalQueries: 99}})
	return data
}

func TestCachedReportNoStore(t *testing.T) {
	cfg := cachingConfig(t)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetReportStore").Return(nil)

	report, err := cachedReport(context.Background(), cfg, mgr)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Overview.TotalQueries)
	mgr.AssertExpectations(t)
}

func TestCachedReportNilManager(t *testing.T) {
	report, err := cachedReport(context.Background(), cachingConfig(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Overview.TotalQueries)
}

func TestCachedReportHit(t *testing.T) {
	cfg := cachingConfig(t)
	key, err := generateCacheKey(cfg)
	require.NoError(t, err)

	store := &iocache.MockCacheStore{}
	store.On("Get", key).Return(cachedMarker(), currentCacheVersion, time.Now().Unix(), nil)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetReportStore").Return(store)

	report, err := cachedReport(context.Background(), cfg, mgr)
	require.NoError(t, err)
	assert.Equal(t, 99, report.Overview.TotalQueries, "fresh entries are served from the cache")
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedReportMisses(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		version int
		age     time.Duration
		getErr  error
	}{
		{"not found", nil, 0, 0, assert.AnError},
		{"stale", cachedMarker(), currentCacheVersion, time.Hour, nil},
		{"old version", cachedMarker(), currentCacheVersion + 1, 0, nil},
		{"corrupt", []byte("{not json"), currentCacheVersion, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cachingConfig(t)
			key, err := generateCacheKey(cfg)
			require.NoError(t, err)

			store := &iocache.MockCacheStore{}
			store.On("Get", key).Return(tt.data, tt.version, time.Now().Add(-tt.age).Unix(), tt.getErr)
			store.On("Set", key, mock.Anything, currentCacheVersion, mock.Anything).Return(nil)
			mgr := &iocache.MockCacheManager{}
			mgr.On("GetReportStore").Return(store)

			report, err := cachedReport(context.Background(), cfg, mgr)
			require.NoError(t, err)
			assert.Equal(t, 2, report.Overview.TotalQueries)
			store.AssertExpectations(t)
		})
	}
}

func TestCachedReportSetFailureIsNotFatal(t *testing.T) {
	cfg := cachingConfig(t)
	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(nil, 0, int64(0), assert.AnError)
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetReportStore").Return(store)

	report, err := cachedReport(context.Background(), cfg, mgr)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Findings)
}

func TestGenerateCacheKey(t *testing.T) {
	cfg := cachingConfig(t)
	base, err := generateCacheKey(cfg)
	require.NoError(t, err)
	assert.Len(t, base, 64)

	same, err := generateCacheKey(cfg)
	require.NoError(t, err)
	assert.Equal(t, base, same)

	withFilter := *cfg
	withFilter.Filter = schema.QueryFilter{Warehouses: []string{"ETL_WH"}}
	filtered, err := generateCacheKey(&withFilter)
	require.NoError(t, err)
	assert.NotEqual(t, base, filtered)

	withThresholds := *cfg
	withThresholds.Thresholds.RepetitionCount = 10
	tuned, err := generateCacheKey(&withThresholds)
	require.NoError(t, err)
	assert.NotEqual(t, base, tuned)

	// Display settings do not change the report
	display := *cfg
	display.ResultLimit = 1
	display.Output = schema.JSONOut
	shown, err := generateCacheKey(&display)
	require.NoError(t, err)
	assert.Equal(t, base, shown)

	missing := *cfg
	missing.QueriesFile = cfg.QueriesFile + ".missing"
	_, err = generateCacheKey(&missing)
	assert.Error(t, err)
}
