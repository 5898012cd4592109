// Package core has core logic for detection, classification and trend analysis.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/querylens/core/detect"
	"github.com/huangsam/querylens/internal/batch"
	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/internal/metrics"
	"github.com/huangsam/querylens/internal/outwriter"
	"github.com/huangsam/querylens/schema"
)

// ExecutorFunc defines the function signature for executing different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteAnalyze runs the detectors over the configured batch and prints the report.
// It serves as the main entry point for the 'analyze' command.
func ExecuteAnalyze(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	report, err := RunAnalysis(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	if cfg.MetricsFile != "" {
		if err := metrics.WriteReport(cfg.MetricsFile, report); err != nil {
			return fmt.Errorf("cannot write metrics: %w", err)
		}
	}
	report.Findings = schema.FilterFindings(report.Findings, cfg.MinSeverity, "", 0)
	duration := time.Since(start)
	return outwriter.PrintReport(report, cfg, duration)
}

// ExecuteTrends builds hourly and leaderboard views of the batch and prints them.
func ExecuteTrends(ctx context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	start := time.Now()
	result, err := RunTrends(ctx, cfg)
	if err != nil {
		return err
	}
	duration := time.Since(start)
	return outwriter.PrintTrends(result, cfg, duration)
}

// ExecuteRules prints the detection policy table.
func ExecuteRules(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	return outwriter.PrintRules(detect.Rules(), cfg)
}

// RunAnalysis produces the full report for cfg, using the report cache and
// recording run history when those stores are configured.
func RunAnalysis(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.Report, error) {
	logAnalysisHeader(ctx, cfg, "Analyzing")

	tracker := beginRun(cfg, mgr)
	report, err := cachedReport(ctx, cfg, mgr)
	if err != nil {
		tracker.fail()
		return report, err
	}
	tracker.end(report)
	return report, nil
}

// RunTrends loads the batch and builds its trends.
func RunTrends(ctx context.Context, cfg *contract.Config) (schema.TrendsResult, error) {
	logAnalysisHeader(ctx, cfg, "Trending")

	in, err := batch.Load(ctx, cfg.QueriesFile, cfg.CreditsFile, cfg.Filter)
	if err != nil {
		return schema.TrendsResult{}, err
	}
	return BuildTrends(cfg.Thresholds, cfg.TopN, in.Queries, in.Credits), nil
}
