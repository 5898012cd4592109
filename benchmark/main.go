// Package main provides a performance benchmarking tool for the querylens CLI.
// It generates synthetic query batches of increasing size, runs each command
// multiple times, treats the first successful cached run as cold and averages
// the rest as warm, and writes a CSV summary for documentation.
//
// Prerequisites:
// - querylens binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where the generated batches are written
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/querylens/internal/parquet"
	"github.com/huangsam/querylens/schema"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Batch       string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	BatchSizes  []int
}

var statements = []string{
	"SELECT * FROM orders WHERE order_id = %d",
	"SELECT o.id, c.name FROM orders o CROSS JOIN customers c WHERE o.id = %d",
	"SELECT id FROM events WHERE UPPER(kind) = 'CLICK' AND id > %d",
	"SELECT a FROM t1 UNION SELECT a FROM t2 WHERE a = %d",
	"SELECT region, SUM(amount) FROM sales WHERE day = %d GROUP BY region",
	"INSERT INTO audit SELECT * FROM staging WHERE batch_id = %d",
}

var warehouses = []struct {
	name string
	size schema.WarehouseSize
}{
	{"ETL_WH", schema.SizeLarge},
	{"BI_WH", schema.SizeSmall},
	{"ADHOC_WH", schema.SizeXLarge},
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		Workers:     14,
		NoCacheRuns: 3,
		CacheRuns:   4,
		BatchSizes:  []int{1_000, 10_000, 100_000},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("querylens", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results, err := runBenchmarks(config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the querylens binary and the work directory exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("querylens"); err != nil {
		return errors.New("querylens binary not found in PATH")
	}
	info, err := os.Stat(config.WorkDir)
	if err != nil {
		return fmt.Errorf("work dir %s: %w", config.WorkDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("work dir %s is not a directory", config.WorkDir)
	}
	return nil
}

// generateBatch writes n synthetic queries to a Parquet file and returns its path.
// The generator is seeded by n so repeated runs see the same batch.
func generateBatch(dir string, n int) (string, error) {
	rng := rand.New(rand.NewPCG(uint64(n), 42))
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := make([]parquet.QueryRow, 0, n)
	for i := range n {
		wh := warehouses[rng.IntN(len(warehouses))]
		dur := time.Duration(rng.IntN(120_000)) * time.Millisecond
		begin := start.Add(time.Duration(i) * 24 * time.Hour / time.Duration(n))
		rec := schema.QueryRecord{
			ID:                fmt.Sprintf("q%07d", i),
			Text:              fmt.Sprintf(statements[rng.IntN(len(statements))], rng.IntN(100)),
			QueryType:         "SELECT",
			ExecutionStatus:   "SUCCESS",
			StartTime:         begin,
			EndTime:           begin.Add(dur),
			Elapsed:           dur,
			Execution:         dur,
			Compilation:       time.Duration(rng.IntN(3_000)) * time.Millisecond,
			BytesScanned:      rng.Int64N(50 << 30),
			BytesSpilledLocal: rng.Int64N(2 << 30),
			PartitionsScanned: rng.Int64N(1_000),
			PartitionsTotal:   1_000,
			CachePercent:      rng.Float64() * 100,
			RowsProduced:      rng.Int64N(5_000_000),
			Warehouse:         wh.name,
			WarehouseSize:     wh.size,
			User:              fmt.Sprintf("USER_%02d", rng.IntN(25)),
			RetryCount:        rng.IntN(2),
		}
		rows = append(rows, parquet.QueryRowFromRecord(rec))
	}

	path := filepath.Join(dir, fmt.Sprintf("querylens_bench_%d.parquet", n))
	if err := parquet.WriteRows(rows, path); err != nil {
		return "", err
	}
	return path, nil
}

// runBenchmarks executes all benchmark tests across configured batch sizes
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d batches, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.BatchSizes), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, size := range config.BatchSizes {
		path, err := generateBatch(config.WorkDir, size)
		if err != nil {
			return nil, fmt.Errorf("failed to generate batch of %d: %w", size, err)
		}
		name := fmt.Sprintf("%d queries", size)
		fmt.Printf("Benchmarking %s\n", name)

		results = append(results, runBenchmarkSuite(config, name, path, "analyze"))
		results = append(results, runBenchmarkSuite(config, name, path, "trends"))
	}

	return results, nil
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, name, path, command string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, name)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, path, command, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Batch:       name,
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a querylens command multiple times with the given cache backend
// and returns the cold time and warm times
func runBenchmark(config BenchmarkConfig, path, command, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{command, path, "--cache-backend", cacheBackend, "--workers", fmt.Sprint(config.Workers)}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "querylens", args...).CombinedOutput()
		elapsed := time.Since(start)
		cancel()

		if err == nil && isSuccess(output, command) {
			times = append(times, elapsed.Seconds())
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte, command string) bool {
	outputStr := string(output)

	completionPhrase := "Analysis completed in"
	if command == "trends" {
		completionPhrase = "Trends completed in"
	}

	return strings.Contains(outputStr, completionPhrase) && strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("querylens_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"batch", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Batch, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "analyze", "Analyze:")
	printCommandSummary(results, "trends", "Trends:")

	fmt.Printf("Benchmark script completed successfully\n")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-16s: No-cache: %s, Cold: %s, Warm: %s\n", result.Batch, result.NoCacheTime, result.ColdTime, result.WarmTime)
		}
	}
}
