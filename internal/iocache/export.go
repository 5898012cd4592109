package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/internal/parquet"
)

// ExportHistory writes the run history to <outputFile>.runs.parquet and
// <outputFile>.run_counts.parquet.
func ExportHistory(store contract.HistoryStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run history is not enabled. Set --history-backend first")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	counts, err := store.GetAllRunCounts()
	if err != nil {
		return fmt.Errorf("failed to retrieve run counts: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRows(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	countsFile := outputFile + ".run_counts.parquet"
	if err := parquet.WriteRows(parquet.ConvertRunCountRecords(counts), countsFile); err != nil {
		return fmt.Errorf("failed to write run counts: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d run counts to: %s\n", len(counts), countsFile)

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be read with DuckDB, Pandas (via pyarrow), Spark or any other Parquet-compatible tool.")
	return nil
}
