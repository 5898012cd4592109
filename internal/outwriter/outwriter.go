// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/querylens/core/detect"
	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/internal/parquet"
	"github.com/huangsam/querylens/schema"
)

// PrintReport outputs an analysis report, dispatching based on the output format configured.
func PrintReport(report schema.Report, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONReport(w, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVFindings(w, report.Findings)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeParquetFindings(report.Findings, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportTable(w, report, cfg, fmtFloat, intFmt, duration)
		}, "Wrote table")
	}
	return nil
}

// PrintTrends outputs hourly and leaderboard views, dispatching based on the output format configured.
func PrintTrends(result schema.TrendsResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON trends"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVTrends(w, result, fmtFloat, intFmt)
		}, "Wrote CSV trends"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only available for analyze")
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTrendsTables(w, result, cfg, fmtFloat, intFmt, duration)
		}, "Wrote trends"); err != nil {
			return fmt.Errorf("error writing trends table output: %w", err)
		}
	}
	return nil
}

// PrintRules displays the detection policy.
// This is a static display that does not require a batch.
func PrintRules(rules []detect.Rule, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, rules)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRules(w, rules)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only available for analyze")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRulesText(w, rules, cfg)
		}, "Wrote text")
	}
}

// writeParquetFindings writes one row per ranked finding.
func writeParquetFindings(findings []schema.Finding, outputFile string) error {
	if outputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}
	rows := parquet.ConvertFindings(schema.EnrichFindings(findings))
	if err := parquet.WriteRows(rows, outputFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", outputFile)
	return nil
}
