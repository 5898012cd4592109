// Package batch loads query telemetry and credit usage from JSON, CSV and
// Parquet exports of the warehouse account-usage views.
package batch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/querylens/internal/parquet"
	"github.com/huangsam/querylens/schema"
)

// Input is one loaded batch.
type Input struct {
	Queries []schema.QueryRecord
	Credits []schema.CreditUsageRecord
}

// Statement types that never carry a workload.
var skippedQueryTypes = map[string]struct{}{
	"SHOW":     {},
	"DESCRIBE": {},
	"USE":      {},
}

// Load reads queries and, when creditsPath is set, credit buckets, then keeps
// successful workload statements that pass the filter. A JSON queries file may
// embed its own credits; a separate credits file replaces them.
func Load(ctx context.Context, queriesPath, creditsPath string, filter schema.QueryFilter) (Input, error) {
	if queriesPath == "" {
		return Input{}, fmt.Errorf("queries file is required")
	}
	in, err := LoadQueries(queriesPath)
	if err != nil {
		return Input{}, err
	}
	if err := ctx.Err(); err != nil {
		return Input{}, err
	}
	if creditsPath != "" {
		credits, err := LoadCredits(creditsPath)
		if err != nil {
			return Input{}, err
		}
		in.Credits = credits
	}
	return Filter(in, filter), nil
}

// LoadQueries reads a queries file by extension. JSON files may also carry credits.
func LoadQueries(path string) (Input, error) {
	var (
		in  Input
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		in, err = readJSONFile(path)
	case ".csv":
		in.Queries, err = readQueriesCSVFile(path)
	case ".parquet":
		var rows []parquet.QueryRow
		rows, err = parquet.ReadRows[parquet.QueryRow](path)
		for _, r := range rows {
			in.Queries = append(in.Queries, r.ToRecord())
		}
	default:
		return Input{}, fmt.Errorf("unsupported queries file extension %q (expected .json, .csv or .parquet)", ext)
	}
	if err != nil {
		return Input{}, fmt.Errorf("cannot load queries from %s: %w", path, err)
	}
	return in, nil
}

// LoadCredits reads a credits file by extension.
func LoadCredits(path string) ([]schema.CreditUsageRecord, error) {
	var (
		credits []schema.CreditUsageRecord
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		var in Input
		in, err = readJSONCreditsFile(path)
		credits = in.Credits
	case ".csv":
		credits, err = readCreditsCSVFile(path)
	case ".parquet":
		var rows []parquet.CreditRow
		rows, err = parquet.ReadRows[parquet.CreditRow](path)
		for _, r := range rows {
			credits = append(credits, r.ToRecord())
		}
	default:
		return nil, fmt.Errorf("unsupported credits file extension %q (expected .json, .csv or .parquet)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load credits from %s: %w", path, err)
	}
	return credits, nil
}

// Filter drops failed statements and metadata commands, then applies the
// dimension filter. Credits are narrowed by warehouse only.
func Filter(in Input, filter schema.QueryFilter) Input {
	out := Input{
		Queries: make([]schema.QueryRecord, 0, len(in.Queries)),
		Credits: make([]schema.CreditUsageRecord, 0, len(in.Credits)),
	}
	for _, q := range in.Queries {
		if q.ExecutionStatus != "" && !strings.EqualFold(q.ExecutionStatus, "SUCCESS") {
			continue
		}
		if _, skip := skippedQueryTypes[strings.ToUpper(q.QueryType)]; skip {
			continue
		}
		if !filter.Match(q) {
			continue
		}
		out.Queries = append(out.Queries, q)
	}
	for _, c := range in.Credits {
		if filter.MatchWarehouse(c.Warehouse) {
			out.Credits = append(out.Credits, c)
		}
	}
	return out
}

// Digest hashes the contents of the given files. Empty paths are skipped
// but still change the digest so that "no credits" differs from "credits".
func Digest(paths ...string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		_, _ = fmt.Fprintf(h, "%s\x00", filepath.Ext(p))
		if p == "" {
			continue
		}
		if err := hashFile(h, p); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = io.Copy(w, f)
	return err
}
