package contract

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/querylens/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit = 25
	MaxResultLimit     = 1000
	DefaultPrecision   = 1
	DefaultTopN        = 20
	MaxTopN            = 100
	DefaultCacheTTL    = 5 * time.Minute
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for the analysis.
// This struct remains the "final, validated" config.
type Config struct {
	QueriesFile string
	CreditsFile string
	Filter      schema.QueryFilter
	Thresholds  schema.Thresholds

	ResultLimit int // 0 = all
	MinSeverity schema.Severity
	TopN        int
	Workers     int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	MetricsFile string
	Width       int // Terminal width override (0 = auto-detect)

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
	CacheTTL       time.Duration

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// ThresholdsRawInput holds the detector knobs as they arrive from flags, env or YAML.
// Durations and byte sizes stay strings so that "90s" and "10GiB" are accepted.
type ThresholdsRawInput struct {
	WindowHours        int     `mapstructure:"window-hours"`
	CartesianRows      int64   `mapstructure:"cartesian-rows"`
	CartesianRatio     float64 `mapstructure:"cartesian-ratio"`
	SpillRemoteBytes   string  `mapstructure:"spill-remote-bytes"`
	SpillLocalBytes    string  `mapstructure:"spill-local-bytes"`
	PruningPartitions  int64   `mapstructure:"pruning-partitions"`
	PruningPct         float64 `mapstructure:"pruning-pct"`
	CachePct           float64 `mapstructure:"cache-pct"`
	CacheElapsed       string  `mapstructure:"cache-elapsed"`
	CompileTime        string  `mapstructure:"compile-time"`
	CompileRatio       float64 `mapstructure:"compile-ratio"`
	FullScanBytes      string  `mapstructure:"full-scan-bytes"`
	CloudServicesRatio float64 `mapstructure:"cloud-services-ratio"`
	OversizedSize      string  `mapstructure:"oversized-size"`
	OversizedExec      string  `mapstructure:"oversized-exec"`
	QueuedFloor        string  `mapstructure:"queued-floor"`
	RepeatCount        int     `mapstructure:"repeat-count"`
	RepeatExec         string  `mapstructure:"repeat-exec"`
	RepeatCost         string  `mapstructure:"repeat-cost"`
	BurstWindow        string  `mapstructure:"burst-window"`
	BurstCount         int     `mapstructure:"burst-count"`
	SpikeMultiplier    float64 `mapstructure:"spike-multiplier"`
	SpikeSamples       int     `mapstructure:"spike-samples"`
	OffHours           string  `mapstructure:"off-hours"`
	Timezone           string  `mapstructure:"timezone"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	QueriesPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Credits          string `mapstructure:"credits"`
	Warehouse        string `mapstructure:"warehouse"`
	User             string `mapstructure:"user"`
	Role             string `mapstructure:"role"`
	Database         string `mapstructure:"database"`
	OutputFile       string `mapstructure:"output-file"`
	MetricsFile      string `mapstructure:"metrics-file"`
	Limit            int    `mapstructure:"limit"`
	MinSeverity      string `mapstructure:"min-severity"`
	Top              int    `mapstructure:"top"`
	Workers          int    `mapstructure:"workers"`
	Precision        int    `mapstructure:"precision"`
	Output           string `mapstructure:"output"`
	Width            int    `mapstructure:"width"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	CacheTTL         string `mapstructure:"cache-ttl"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	Emoji            string `mapstructure:"emoji"`
	Color            string `mapstructure:"color"`

	// --- Detector thresholds ---
	Thresholds ThresholdsRawInput `mapstructure:",squash"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Filter = schema.QueryFilter{
		Warehouses: slices.Clone(c.Filter.Warehouses),
		Users:      slices.Clone(c.Filter.Users),
		Roles:      slices.Clone(c.Filter.Roles),
		Databases:  slices.Clone(c.Filter.Databases),
	}
	return &clone
}

// ConfigParams returns the settings recorded with each history run.
func (c *Config) ConfigParams() map[string]any {
	return map[string]any{
		"queries_file": c.QueriesFile,
		"credits_file": c.CreditsFile,
		"filter":       c.Filter,
		"thresholds":   c.Thresholds,
		"min_severity": c.MinSeverity,
		"workers":      c.Workers,
	}
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	th, err := ProcessThresholds(input.Thresholds)
	if err != nil {
		return err
	}
	cfg.Thresholds = th
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache-db-connect: %w", err)
	}

	cfg.CacheTTL = DefaultCacheTTL
	if input.CacheTTL != "" {
		ttl, err := ParseLookbackDuration(input.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache-ttl: %w", err)
		}
		cfg.CacheTTL = ttl
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("history-db-connect: %w", err)
	}

	// Validate that cache and history use different databases
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		historyDBPath := cfg.HistoryDBConnect
		if historyDBPath == "" {
			historyDBPath = GetHistoryDBFilePath()
		}
		if cacheDBPath == historyDBPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all non-threshold fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.QueriesFile = strings.TrimSpace(input.QueriesPathStr)
	cfg.CreditsFile = strings.TrimSpace(input.Credits)
	cfg.OutputFile = input.OutputFile
	cfg.MetricsFile = input.MetricsFile
	cfg.Width = input.Width
	cfg.Filter = schema.QueryFilter{
		Warehouses: schema.SplitList(input.Warehouse),
		Users:      schema.SplitList(input.User),
		Roles:      schema.SplitList(input.Role),
		Databases:  schema.SplitList(input.Database),
	}

	// Parse emoji flag
	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. ResultLimit Validation ---
	if input.Limit < 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be between 0 and %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Top <= 0 || input.Top > MaxTopN {
		return fmt.Errorf("top must be greater than 0 and cannot exceed %d (received %d)", MaxTopN, input.Top)
	}
	cfg.TopN = input.Top

	sev, err := ParseSeverity(input.MinSeverity)
	if err != nil {
		return err
	}
	cfg.MinSeverity = sev

	// --- 2. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 3. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	return nil
}

// ParseSeverity parses a case-insensitive severity name. Empty means LOW.
func ParseSeverity(s string) (schema.Severity, error) {
	if s == "" {
		return schema.SeverityLow, nil
	}
	sev := schema.Severity(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := schema.ValidSeverities[sev]; !ok {
		return "", fmt.Errorf("invalid min-severity '%s'. must be critical, high, medium, low", s)
	}
	return sev, nil
}

// ProcessThresholds converts raw detector settings into validated thresholds.
// Zero or empty raw values keep the stock default.
func ProcessThresholds(raw ThresholdsRawInput) (schema.Thresholds, error) {
	th := schema.DefaultThresholds()

	if raw.WindowHours < 0 {
		return th, fmt.Errorf("window-hours cannot be negative (received %d)", raw.WindowHours)
	}
	th.WindowHours = raw.WindowHours

	if raw.CartesianRows < 0 {
		return th, fmt.Errorf("cartesian-rows cannot be negative (received %d)", raw.CartesianRows)
	}
	if raw.CartesianRows > 0 {
		th.CartesianRowFloor = raw.CartesianRows
	}
	if raw.CartesianRatio < 0 {
		return th, fmt.Errorf("cartesian-ratio cannot be negative (received %g)", raw.CartesianRatio)
	}
	if raw.CartesianRatio > 0 {
		th.CartesianRowsPerByte = raw.CartesianRatio
	}

	var err error
	if th.RemoteSpillFloor, err = parseBytesKey("spill-remote-bytes", raw.SpillRemoteBytes, th.RemoteSpillFloor); err != nil {
		return th, err
	}
	if th.LocalSpillFloor, err = parseBytesKey("spill-local-bytes", raw.SpillLocalBytes, th.LocalSpillFloor); err != nil {
		return th, err
	}
	if th.FullScanBytesFloor, err = parseBytesKey("full-scan-bytes", raw.FullScanBytes, th.FullScanBytesFloor); err != nil {
		return th, err
	}

	if raw.PruningPartitions < 0 {
		return th, fmt.Errorf("pruning-partitions cannot be negative (received %d)", raw.PruningPartitions)
	}
	if raw.PruningPartitions > 0 {
		th.PruningMinPartitions = raw.PruningPartitions
	}
	if err := pctKey("pruning-pct", raw.PruningPct, &th.PruningScanPct); err != nil {
		return th, err
	}
	if err := pctKey("cache-pct", raw.CachePct, &th.CachePctFloor); err != nil {
		return th, err
	}
	if err := ratioKey("compile-ratio", raw.CompileRatio, &th.CompileRatio); err != nil {
		return th, err
	}
	if err := ratioKey("cloud-services-ratio", raw.CloudServicesRatio, &th.CloudServicesRatio); err != nil {
		return th, err
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"cache-elapsed", raw.CacheElapsed, &th.CacheMinElapsed},
		{"compile-time", raw.CompileTime, &th.CompileFloor},
		{"oversized-exec", raw.OversizedExec, &th.OversizedExecCeiling},
		{"queued-floor", raw.QueuedFloor, &th.QueuedFloor},
		{"repeat-exec", raw.RepeatExec, &th.RepetitionExecFloor},
		{"repeat-cost", raw.RepeatCost, &th.RepetitionHighCost},
		{"burst-window", raw.BurstWindow, &th.BurstWindow},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := ParseLookbackDuration(d.raw)
		if err != nil {
			return th, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if raw.OversizedSize != "" {
		size := schema.ParseWarehouseSize(raw.OversizedSize)
		if size == schema.SizeUnknown {
			return th, fmt.Errorf("invalid oversized-size '%s'", raw.OversizedSize)
		}
		th.OversizedMinSize = size
	}

	if raw.RepeatCount != 0 {
		if raw.RepeatCount <= 1 {
			return th, fmt.Errorf("repeat-count must be greater than 1 (received %d)", raw.RepeatCount)
		}
		th.RepetitionCount = raw.RepeatCount
	}
	if raw.BurstCount != 0 {
		if raw.BurstCount <= 1 {
			return th, fmt.Errorf("burst-count must be greater than 1 (received %d)", raw.BurstCount)
		}
		th.BurstCount = raw.BurstCount
	}
	if raw.SpikeMultiplier != 0 {
		if raw.SpikeMultiplier <= 1 {
			return th, fmt.Errorf("spike-multiplier must be greater than 1 (received %g)", raw.SpikeMultiplier)
		}
		th.SpikeMultiplier = raw.SpikeMultiplier
	}
	if raw.SpikeSamples != 0 {
		if raw.SpikeSamples < 2 {
			return th, fmt.Errorf("spike-samples must be at least 2 (received %d)", raw.SpikeSamples)
		}
		th.SpikeMinSamples = raw.SpikeSamples
	}

	if raw.OffHours != "" {
		start, end, err := ParseOffHours(raw.OffHours)
		if err != nil {
			return th, err
		}
		th.OffHoursStart, th.OffHoursEnd = start, end
	}

	if raw.Timezone != "" {
		if raw.Timezone != "Local" {
			if _, err := time.LoadLocation(raw.Timezone); err != nil {
				return th, fmt.Errorf("invalid timezone '%s': %w", raw.Timezone, err)
			}
		}
		th.TimeZone = raw.Timezone
	}

	return th, nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

func parseBytesKey(key, raw string, fallback int64) (int64, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := ParseByteSize(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func pctKey(key string, v float64, dst *float64) error {
	if v == 0 {
		return nil
	}
	if v < 0 || v > 100 {
		return fmt.Errorf("%s must be between 0 and 100 (received %g)", key, v)
	}
	*dst = v
	return nil
}

func ratioKey(key string, v float64, dst *float64) error {
	if v == 0 {
		return nil
	}
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be between 0 and 1 (received %g)", key, v)
	}
	*dst = v
	return nil
}
