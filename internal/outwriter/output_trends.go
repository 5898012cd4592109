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

// writeTrendsTables prints the overview followed by one table per view.
// Empty views are skipped.
func writeTrendsTables(w io.Writer, result schema.TrendsResult, cfg *contract.Config, fmtFloat func(float64) string, intFmt string, duration time.Duration) error {
	ov := result.Overview
	if _, err := fmt.Fprintf(w, "%s\n", sectionTitle(cfg.UseEmojis, "📊", "Overview")); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Queries: "+intFmt+" | Mean execution: %ss | Scanned: %s | Credits: %s\n",
		ov.TotalQueries, fmtFloat(ov.MeanExecutionSec), formatBytes(ov.TotalBytesScanned), fmtFloat(ov.TotalCredits)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Window: %s\n", formatWindow(ov.WindowStart, ov.WindowEnd)); err != nil {
		return err
	}

	if len(result.Hourly) > 0 {
		var data [][]string
		for _, p := range result.Hourly {
			data = append(data, []string{
				p.Hour.Format(contract.DateTimeFormat),
				fmt.Sprintf(intFmt, p.Queries),
				fmtFloat(p.MeanExecutionSec),
				fmtFloat(p.Credits),
			})
		}
		if err := writeSection(w, sectionTitle(cfg.UseEmojis, "🕒", "Hourly activity"),
			[]string{"Hour", "Queries", "Mean Exec (s)", "Credits"}, data); err != nil {
			return err
		}
	}

	if len(result.TopQueries) > 0 {
		width := GetMaxTextWidth(cfg)
		var data [][]string
		for i, q := range result.TopQueries {
			data = append(data, []string{
				strconv.Itoa(i + 1),
				q.ID,
				q.User,
				q.Warehouse,
				fmtFloat(q.ExecutionSec),
				fmtFloat(q.GBScanned),
				contract.TruncateText(q.Text, width),
			})
		}
		if err := writeSection(w, sectionTitle(cfg.UseEmojis, "🐢", "Slowest queries"),
			[]string{"Rank", "Query ID", "User", "Warehouse", "Exec (s)", "GB Scanned", "Text"}, data); err != nil {
			return err
		}
	}

	if len(result.ExecutionBuckets) > 0 {
		var data [][]string
		for _, b := range result.ExecutionBuckets {
			data = append(data, []string{b.Label, fmt.Sprintf(intFmt, b.Queries)})
		}
		if err := writeSection(w, sectionTitle(cfg.UseEmojis, "⏱️", "Execution time distribution"),
			[]string{"Execution Time", "Queries"}, data); err != nil {
			return err
		}
	}

	if len(result.QueryTypes) > 0 {
		if err := writeSection(w, sectionTitle(cfg.UseEmojis, "🧮", "Query types"),
			[]string{"Type", "Queries"}, nameCountRows(result.QueryTypes, intFmt)); err != nil {
			return err
		}
	}

	if len(result.TopUsers) > 0 {
		if err := writeSection(w, sectionTitle(cfg.UseEmojis, "👤", "Top users"),
			[]string{"User", "Queries"}, nameCountRows(result.TopUsers, intFmt)); err != nil {
			return err
		}
	}

	if len(result.WarehouseCredits) > 0 {
		if err := writeSection(w, sectionTitle(cfg.UseEmojis, "💳", "Warehouse credits"),
			warehouseCreditHeaders, warehouseCreditRows(result.WarehouseCredits, fmtFloat, intFmt)); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "Trends completed in %v with %d workers.\n", duration, cfg.Workers); err != nil {
		return err
	}
	return nil
}

func writeSection(w io.Writer, title string, headers []string, data [][]string) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
		return err
	}
	return renderTable(w, headers, data)
}

func nameCountRows(counts []schema.NameCount, intFmt string) [][]string {
	data := make([][]string, 0, len(counts))
	for _, nc := range counts {
		data = append(data, []string{nc.Name, fmt.Sprintf(intFmt, nc.Count)})
	}
	return data
}

// writeCSVTrends flattens every view into long-format records of
// section, key, metric and value.
func writeCSVTrends(w io.Writer, result schema.TrendsResult, fmtFloat func(float64) string, intFmt string) error {
	header := []string{"section", "key", "metric", "value"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		var records [][]string
		add := func(section, key, metric, value string) {
			records = append(records, []string{section, key, metric, value})
		}

		ov := result.Overview
		add("overview", "", "total_queries", fmt.Sprintf(intFmt, ov.TotalQueries))
		add("overview", "", "mean_execution_sec", fmtFloat(ov.MeanExecutionSec))
		add("overview", "", "total_bytes_scanned", strconv.FormatInt(ov.TotalBytesScanned, 10))
		add("overview", "", "total_credits", fmtFloat(ov.TotalCredits))

		for _, p := range result.Hourly {
			hour := p.Hour.Format(contract.DateTimeFormat)
			add("hourly", hour, "queries", fmt.Sprintf(intFmt, p.Queries))
			add("hourly", hour, "mean_execution_sec", fmtFloat(p.MeanExecutionSec))
			add("hourly", hour, "credits", fmtFloat(p.Credits))
		}
		for _, q := range result.TopQueries {
			add("top_queries", q.ID, "execution_sec", fmtFloat(q.ExecutionSec))
			add("top_queries", q.ID, "gb_scanned", fmtFloat(q.GBScanned))
		}
		for _, b := range result.ExecutionBuckets {
			add("execution_buckets", b.Label, "queries", fmt.Sprintf(intFmt, b.Queries))
		}
		for _, nc := range result.QueryTypes {
			add("query_types", nc.Name, "queries", fmt.Sprintf(intFmt, nc.Count))
		}
		for _, nc := range result.TopUsers {
			add("top_users", nc.Name, "queries", fmt.Sprintf(intFmt, nc.Count))
		}
		for _, wc := range result.WarehouseCredits {
			add("warehouse_credits", wc.Warehouse, "credits", fmtFloat(wc.Credits))
			add("warehouse_credits", wc.Warehouse, "compute_credits", fmtFloat(wc.ComputeCredits))
			add("warehouse_credits", wc.Warehouse, "cloud_services_credits", fmtFloat(wc.CloudServicesCredits))
		}
		return cw.WriteAll(records)
	})
}
