package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/schema"
)

// jsonReport is the JSON shape of a report, with rank and label per finding.
type jsonReport struct {
	Findings []schema.EnrichedFinding `json:"findings"`
	Summary  schema.Summary           `json:"summary"`
	Overview schema.Overview          `json:"overview"`
}

// writeJSONReport writes the full report in JSON format.
func writeJSONReport(w io.Writer, report schema.Report) error {
	return writeJSON(w, jsonReport{
		Findings: schema.EnrichFindings(report.Findings),
		Summary:  report.Summary,
		Overview: report.Overview,
	})
}

// writeCSVFindings writes one CSV record per finding.
func writeCSVFindings(w io.Writer, findings []schema.Finding) error {
	header := []string{
		"rank",
		"severity",
		"label",
		"category",
		"issue",
		"subject_kind",
		"subject",
		"warehouse",
		"user",
		"occurred_at",
		"description",
		"recommendation",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, f := range schema.EnrichFindings(findings) {
			occurred := ""
			if !f.OccurredAt.IsZero() {
				occurred = f.OccurredAt.Format(contract.DateTimeFormat)
			}
			rec := []string{
				strconv.Itoa(f.Rank),
				string(f.Severity),
				f.Label,
				string(f.Category),
				string(f.Issue),
				string(f.SubjectKind),
				f.Subject,
				f.Warehouse,
				f.User,
				occurred,
				f.Description,
				f.Recommendation,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeReportTable writes the findings table followed by the summary block.
func writeReportTable(w io.Writer, report schema.Report, cfg *contract.Config, fmtFloat func(float64) string, intFmt string, duration time.Duration) error {
	shown := report.Findings
	if cfg.ResultLimit > 0 && len(shown) > cfg.ResultLimit {
		shown = shown[:cfg.ResultLimit]
	}

	if len(shown) == 0 {
		if _, err := fmt.Fprintln(w, "No findings."); err != nil {
			return err
		}
	} else {
		width := GetMaxTextWidth(cfg)
		var data [][]string
		for i, f := range shown {
			label := schema.GetPlainLabel(f.Severity)
			if cfg.UseColors {
				label = contract.GetColorLabel(f.Severity)
			}
			data = append(data, []string{
				strconv.Itoa(i + 1),
				label,
				string(f.Issue),
				string(f.Category),
				contract.TruncateText(f.Subject, width),
				contract.TruncateText(f.Description, width),
				contract.TruncateText(f.Recommendation, width),
			})
		}
		headers := []string{"Rank", "Severity", "Issue", "Category", "Subject", "Description", "Recommendation"}
		if err := renderTable(w, headers, data); err != nil {
			return err
		}
	}

	sev := report.Summary.BySeverity
	if _, err := fmt.Fprintf(w, "Showing %d of %d findings (critical: %d, high: %d, medium: %d, low: %d)\n",
		len(shown), len(report.Findings),
		sev[schema.SeverityCritical], sev[schema.SeverityHigh], sev[schema.SeverityMedium], sev[schema.SeverityLow]); err != nil {
		return err
	}

	if err := writeSummaryBlock(w, report, cfg, fmtFloat, intFmt); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Analysis completed in %v with %d workers. Cache backend: %s\n", duration, cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// writeSummaryBlock prints the overview headline and the per-issue and
// per-warehouse rollups.
func writeSummaryBlock(w io.Writer, report schema.Report, cfg *contract.Config, fmtFloat func(float64) string, intFmt string) error {
	ov := report.Overview
	if _, err := fmt.Fprintf(w, "\n%s\n", sectionTitle(cfg.UseEmojis, "📊", "Overview")); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Queries: "+intFmt+" | Mean execution: %ss | Scanned: %s | Credits: %s\n",
		ov.TotalQueries, fmtFloat(ov.MeanExecutionSec), formatBytes(ov.TotalBytesScanned), fmtFloat(ov.TotalCredits)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Window: %s\n", formatWindow(ov.WindowStart, ov.WindowEnd)); err != nil {
		return err
	}

	byCat := report.Summary.ByCategory
	if _, err := fmt.Fprintf(w, "Categories: %s %d | %s %d | %s %d | %s %d\n",
		schema.CategoryAntiPattern, byCat[schema.CategoryAntiPattern],
		schema.CategoryPerformance, byCat[schema.CategoryPerformance],
		schema.CategoryOperational, byCat[schema.CategoryOperational],
		schema.CategoryAnomaly, byCat[schema.CategoryAnomaly]); err != nil {
		return err
	}

	if len(report.Summary.ByIssue) > 0 {
		if _, err := fmt.Fprintf(w, "\n%s\n", sectionTitle(cfg.UseEmojis, "🧭", "Issues")); err != nil {
			return err
		}
		var data [][]string
		for _, ic := range report.Summary.ByIssue {
			data = append(data, []string{
				string(ic.Issue),
				string(ic.Category),
				schema.GetPlainLabel(ic.Severity),
				fmt.Sprintf(intFmt, ic.Count),
				ic.Action,
			})
		}
		if err := renderTable(w, []string{"Issue", "Category", "Severity", "Count", "Action"}, data); err != nil {
			return err
		}
	}

	if len(report.Summary.WarehouseCredits) > 0 {
		if _, err := fmt.Fprintf(w, "\n%s\n", sectionTitle(cfg.UseEmojis, "💳", "Warehouse credits")); err != nil {
			return err
		}
		if err := renderTable(w, warehouseCreditHeaders, warehouseCreditRows(report.Summary.WarehouseCredits, fmtFloat, intFmt)); err != nil {
			return err
		}
	}
	return nil
}

var warehouseCreditHeaders = []string{"Warehouse", "Credits", "Compute", "Cloud Services", "Buckets"}

func warehouseCreditRows(credits []schema.WarehouseCredits, fmtFloat func(float64) string, intFmt string) [][]string {
	data := make([][]string, 0, len(credits))
	for _, wc := range credits {
		data = append(data, []string{
			wc.Warehouse,
			fmtFloat(wc.Credits),
			fmtFloat(wc.ComputeCredits),
			fmtFloat(wc.CloudServicesCredits),
			fmt.Sprintf(intFmt, wc.Buckets),
		})
	}
	return data
}
