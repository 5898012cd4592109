package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/querylens/internal/batch"
	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cachedReport returns a stored report for the same inputs and settings when
// one is younger than the TTL, otherwise it computes and stores a new one.
func cachedReport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.Report, error) {
	var store contract.CacheStore
	if mgr != nil {
		store = mgr.GetReportStore()
	}
	if store == nil {
		// Fallback to direct computation
		return computeReport(ctx, cfg)
	}

	key, err := generateCacheKey(cfg)
	if err != nil {
		// Unreadable inputs surface through the loader below
		return computeReport(ctx, cfg)
	}

	// Check for cache hit
	if result := checkCacheHit(store, key, cfg.CacheTTL); result != nil {
		return *result, nil
	}

	// Cache miss: compute and store
	return computeAndStore(ctx, cfg, store, key)
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit(store contract.CacheStore, key string, ttl time.Duration) *schema.Report {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if version == currentCacheVersion {
		entryTimestamp := time.Unix(ts, 0)
		if time.Since(entryTimestamp) <= ttl {
			var result schema.Report
			if err := json.Unmarshal(data, &result); err == nil {
				return &result // Cache hit
			}
		}
	}

	return nil // Cache miss (stale or version mismatch)
}

// computeAndStore computes the result and stores it in cache
func computeAndStore(ctx context.Context, cfg *contract.Config, store contract.CacheStore, key string) (schema.Report, error) {
	result, err := computeReport(ctx, cfg)
	if err != nil {
		return result, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
			contract.LogWarn("Cannot store report in cache", err)
		}
	}

	return result, nil
}

// computeReport loads the inputs and runs the detectors.
func computeReport(ctx context.Context, cfg *contract.Config) (schema.Report, error) {
	in, err := batch.Load(ctx, cfg.QueriesFile, cfg.CreditsFile, cfg.Filter)
	if err != nil {
		return schema.Report{}, err
	}
	return AnalyzeBatch(cfg.Thresholds, cfg.Workers, in.Queries, in.Credits), nil
}

// generateCacheKey hashes the input file contents together with every
// setting that changes the report.
func generateCacheKey(cfg *contract.Config) (string, error) {
	digest, err := batch.Digest(cfg.QueriesFile, cfg.CreditsFile)
	if err != nil {
		return "", err
	}
	settings, err := json.Marshal(struct {
		Filter     schema.QueryFilter `json:"filter"`
		Thresholds schema.Thresholds  `json:"thresholds"`
	}{cfg.Filter, cfg.Thresholds})
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("report:%d:%s:%s", currentCacheVersion, digest, settings)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key))), nil
}
