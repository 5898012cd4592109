package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/schema"
)

// Table names for run history.
const (
	runsTable      = "querylens_runs"
	runCountsTable = "querylens_run_counts"
)

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("cannot initialize run history: %w", err)
	}
	if err := ensureHistorySchema(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

func (hs *HistoryStoreImpl) table(name string) string {
	return quoteTableName(name, hs.backend)
}

// BeginRun creates a new run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, hs.table(runsTable))
		err = hs.db.QueryRow(query, formatTime(startTime, hs.backend), string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, hs.table(runsTable))
		var result sql.Result
		result, err = hs.db.Exec(query, formatTime(startTime, hs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, totalQueries, totalFindings int) error {
	if hs.db == nil {
		return nil
	}

	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, hs.table(runsTable), placeholder(hs.backend, 1))
	var rawStart any
	if err := hs.db.QueryRow(query, runID).Scan(&rawStart); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	startTime, err := parseDBTime(rawStart)
	if err != nil {
		return fmt.Errorf("failed to parse start_time: %w", err)
	}

	durationMs := max(endTime.Sub(startTime).Milliseconds(), 0)
	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_queries = %s, total_findings = %s WHERE run_id = %s`,
		hs.table(runsTable),
		placeholder(hs.backend, 1), placeholder(hs.backend, 2), placeholder(hs.backend, 3),
		placeholder(hs.backend, 4), placeholder(hs.backend, 5))
	if _, err := hs.db.Exec(update, formatTime(endTime, hs.backend), durationMs, totalQueries, totalFindings, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordCounts stores the per-dimension finding counts of a run in one transaction.
func (hs *HistoryStoreImpl) RecordCounts(runID int64, counts []schema.RunCountRecord) error {
	if hs.db == nil || len(counts) == 0 {
		return nil
	}

	tx, err := hs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`INSERT INTO %s (run_id, dimension, count_key, finding_count) VALUES (%s, %s, %s, %s)`,
		hs.table(runCountsTable),
		placeholder(hs.backend, 1), placeholder(hs.backend, 2), placeholder(hs.backend, 3), placeholder(hs.backend, 4))
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare run counts insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range counts {
		if _, err := stmt.Exec(runID, c.Dimension, c.Key, c.Count); err != nil {
			return fmt.Errorf("failed to insert %s count %q: %w", c.Dimension, c.Key, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.db == nil {
		return status, nil
	}

	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", hs.table(runsTable))).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var rawLast, rawOldest any
		lastQuery := fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", hs.table(runsTable))
		if err := hs.db.QueryRow(lastQuery).Scan(&status.LastRunID, &rawLast); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		oldestQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", hs.table(runsTable))
		if err := hs.db.QueryRow(oldestQuery).Scan(&rawOldest); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		var err error
		if status.LastRunTime, err = parseDBTime(rawLast); err != nil {
			return status, fmt.Errorf("failed to parse last run time: %w", err)
		}
		if status.OldestRunTime, err = parseDBTime(rawOldest); err != nil {
			return status, fmt.Errorf("failed to parse oldest run time: %w", err)
		}

		totalsQuery := fmt.Sprintf("SELECT COALESCE(SUM(total_queries), 0), COALESCE(SUM(total_findings), 0) FROM %s", hs.table(runsTable))
		if err := hs.db.QueryRow(totalsQuery).Scan(&status.TotalQueriesAnalyzed, &status.TotalFindings); err != nil {
			return status, fmt.Errorf("failed to get run totals: %w", err)
		}
	}

	for _, table := range []string{runsTable, runCountsTable} {
		var count int64
		if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", hs.table(table))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves every run, oldest first.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT run_id, start_time, end_time, run_duration_ms, total_queries, total_findings, config_params FROM %s ORDER BY run_id", hs.table(runsTable))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var (
			record            schema.RunRecord
			rawStart, rawEnd  any
			duration          sql.NullInt32
			queries, findings sql.NullInt32
			configParams      sql.NullString
		)
		if err := rows.Scan(&record.RunID, &rawStart, &rawEnd, &duration, &queries, &findings, &configParams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if record.StartTime, err = parseDBTime(rawStart); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if rawEnd != nil {
			end, err := parseDBTime(rawEnd)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_time: %w", err)
			}
			record.EndTime = &end
		}
		if duration.Valid {
			record.RunDurationMs = &duration.Int32
		}
		record.TotalQueries = queries.Int32
		record.TotalFindings = findings.Int32
		if configParams.Valid {
			record.ConfigParams = &configParams.String
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllRunCounts retrieves every recorded count, ordered by run.
func (hs *HistoryStoreImpl) GetAllRunCounts() ([]schema.RunCountRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT run_id, dimension, count_key, finding_count FROM %s ORDER BY run_id, dimension, count_key", hs.table(runCountsTable))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query run counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunCountRecord
	for rows.Next() {
		var record schema.RunCountRecord
		if err := rows.Scan(&record.RunID, &record.Dimension, &record.Key, &record.Count); err != nil {
			return nil, fmt.Errorf("failed to scan run count: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run counts: %w", err)
	}
	return results, nil
}

var dbTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
}

// parseDBTime normalizes a scanned timestamp. Native drivers return
// time.Time; SQLite and MySQL without parseTime return text.
func parseDBTime(v any) (time.Time, error) {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}, fmt.Errorf("unexpected time value %T", v)
	}
	for _, layout := range dbTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}
