package contract

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/querylens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		QueriesPathStr: "queries.json",
		Limit:          10,
		Top:            5,
		Workers:        4,
		Precision:      1,
		Output:         "text",
		Emoji:          "no",
		Color:          "yes",
		CacheBackend:   "sqlite",
		Thresholds:     ThresholdsRawInput{WindowHours: 24},
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError string
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "limit zero means all", mutate: func(in *ConfigRawInput) { in.Limit = 0 }},
		{name: "limit too large", mutate: func(in *ConfigRawInput) { in.Limit = MaxResultLimit + 1 }, expectError: "limit must be between"},
		{name: "negative workers", mutate: func(in *ConfigRawInput) { in.Workers = -1 }, expectError: "workers must be greater than 0"},
		{name: "bad precision", mutate: func(in *ConfigRawInput) { in.Precision = 3 }, expectError: "precision must be 1 or 2"},
		{name: "bad output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: "invalid output format"},
		{name: "parquet without file", mutate: func(in *ConfigRawInput) { in.Output = "parquet" }, expectError: "requires --output-file"},
		{name: "bad top", mutate: func(in *ConfigRawInput) { in.Top = 0 }, expectError: "top must be greater than 0"},
		{name: "bad severity", mutate: func(in *ConfigRawInput) { in.MinSeverity = "urgent" }, expectError: "invalid min-severity"},
		{name: "bad emoji", mutate: func(in *ConfigRawInput) { in.Emoji = "maybe" }, expectError: "invalid --emoji value"},
		{name: "bad cache backend", mutate: func(in *ConfigRawInput) { in.CacheBackend = "redis" }, expectError: "invalid cache backend"},
		{name: "mysql without dsn", mutate: func(in *ConfigRawInput) { in.CacheBackend = "mysql" }, expectError: "cache-db-connect: a connection string is required"},
		{name: "bad cache ttl", mutate: func(in *ConfigRawInput) { in.CacheTTL = "soon" }, expectError: "invalid cache-ttl"},
		{name: "repeat count of one", mutate: func(in *ConfigRawInput) { in.Thresholds.RepeatCount = 1 }, expectError: "repeat-count must be greater than 1 (received 1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidateFields(t *testing.T) {
	input := validInput()
	input.Warehouse = "ETL_WH, bi_wh"
	input.User = "alice"
	input.MinSeverity = "high"
	input.CacheTTL = "10 minutes"
	input.Credits = " credits.csv "

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, "queries.json", cfg.QueriesFile)
	assert.Equal(t, "credits.csv", cfg.CreditsFile)
	assert.Equal(t, []string{"ETL_WH", "bi_wh"}, cfg.Filter.Warehouses)
	assert.Equal(t, []string{"alice"}, cfg.Filter.Users)
	assert.Equal(t, schema.SeverityHigh, cfg.MinSeverity)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, schema.SQLiteBackend, cfg.CacheBackend)
	assert.False(t, cfg.UseEmojis)
	assert.True(t, cfg.UseColors)
	assert.Equal(t, 24, cfg.Thresholds.WindowHours)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{"sqlite ignores connection", schema.SQLiteBackend, "", false},
		{"none ignores connection", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/querylens", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/querylens", true},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost port=5432 dbname=querylens", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
		{"postgres empty", schema.PostgreSQLBackend, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBackendConfigsSamePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	input := validInput()
	input.CacheDBConnect = path
	input.HistoryBackend = "sqlite"
	input.HistoryDBConnect = path

	err := ProcessAndValidate(&Config{}, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must use different SQLite database files")

	input.HistoryDBConnect = filepath.Join(t.TempDir(), "history.db")
	require.NoError(t, ProcessAndValidate(&Config{}, input))
}

func TestValidateBackendConfigsDefaultPaths(t *testing.T) {
	input := validInput()
	input.HistoryBackend = "SQLite"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, schema.SQLiteBackend, cfg.HistoryBackend)
	assert.NotEqual(t, GetCacheDBFilePath(), GetHistoryDBFilePath())
}

func TestProcessThresholds(t *testing.T) {
	t.Run("zero input keeps defaults", func(t *testing.T) {
		th, err := ProcessThresholds(ThresholdsRawInput{WindowHours: 24})
		require.NoError(t, err)
		assert.Equal(t, schema.DefaultThresholds(), th)
	})

	t.Run("overrides", func(t *testing.T) {
		th, err := ProcessThresholds(ThresholdsRawInput{
			WindowHours:        0,
			CartesianRows:      500,
			SpillRemoteBytes:   "1 MiB",
			FullScanBytes:      "20GiB",
			PruningPct:         75,
			CacheElapsed:       "30s",
			CompileRatio:       0.5,
			OversizedSize:      "x-large",
			RepeatCount:        5,
			BurstWindow:        "1 hour",
			SpikeMultiplier:    2.5,
			OffHours:           "22:00-06:00",
			Timezone:           "UTC",
			CloudServicesRatio: 0.2,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, th.WindowHours)
		assert.Equal(t, int64(500), th.CartesianRowFloor)
		assert.Equal(t, int64(1<<20), th.RemoteSpillFloor)
		assert.Equal(t, int64(20<<30), th.FullScanBytesFloor)
		assert.InDelta(t, 75.0, th.PruningScanPct, 1e-9)
		assert.Equal(t, 30*time.Second, th.CacheMinElapsed)
		assert.InDelta(t, 0.5, th.CompileRatio, 1e-9)
		assert.Equal(t, schema.SizeXLarge, th.OversizedMinSize)
		assert.Equal(t, 5, th.RepetitionCount)
		assert.Equal(t, time.Hour, th.BurstWindow)
		assert.InDelta(t, 2.5, th.SpikeMultiplier, 1e-9)
		assert.Equal(t, 22*time.Hour, th.OffHoursStart)
		assert.Equal(t, 6*time.Hour, th.OffHoursEnd)
		assert.Equal(t, "UTC", th.TimeZone)
		assert.InDelta(t, 0.2, th.CloudServicesRatio, 1e-9)
	})

	errCases := []struct {
		name string
		raw  ThresholdsRawInput
		want string
	}{
		{"negative window", ThresholdsRawInput{WindowHours: -1}, "window-hours cannot be negative"},
		{"bad bytes", ThresholdsRawInput{FullScanBytes: "lots"}, "invalid full-scan-bytes"},
		{"pct above 100", ThresholdsRawInput{CachePct: 150}, "cache-pct must be between 0 and 100"},
		{"ratio above 1", ThresholdsRawInput{CompileRatio: 1.5}, "compile-ratio must be between 0 and 1"},
		{"bad duration", ThresholdsRawInput{QueuedFloor: "forever"}, "invalid queued-floor"},
		{"bad size", ThresholdsRawInput{OversizedSize: "huge"}, "invalid oversized-size"},
		{"burst count of one", ThresholdsRawInput{BurstCount: 1}, "burst-count must be greater than 1"},
		{"spike multiplier of one", ThresholdsRawInput{SpikeMultiplier: 1}, "spike-multiplier must be greater than 1"},
		{"spike samples of one", ThresholdsRawInput{SpikeSamples: 1}, "spike-samples must be at least 2"},
		{"empty off hours", ThresholdsRawInput{OffHours: "05:00-05:00"}, "is empty"},
		{"bad timezone", ThresholdsRawInput{Timezone: "Mars/Olympus"}, "invalid timezone"},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProcessThresholds(tt.raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{
		QueriesFile: "q.json",
		Filter:      schema.QueryFilter{Warehouses: []string{"ETL_WH"}},
		Thresholds:  schema.DefaultThresholds(),
	}
	clone := cfg.Clone()
	clone.Filter.Warehouses[0] = "BI_WH"
	clone.Thresholds.BurstCount = 10

	assert.Equal(t, "ETL_WH", cfg.Filter.Warehouses[0])
	assert.Equal(t, 3, cfg.Thresholds.BurstCount)
	assert.Equal(t, "q.json", clone.QueriesFile)
}

func TestConfigParams(t *testing.T) {
	cfg := &Config{QueriesFile: "q.json", Workers: 2, MinSeverity: schema.SeverityHigh}
	params := cfg.ConfigParams()
	assert.Equal(t, "q.json", params["queries_file"])
	assert.Equal(t, 2, params["workers"])
	assert.Equal(t, schema.SeverityHigh, params["min_severity"])
}

func TestProcessProfilingConfig(t *testing.T) {
	var profile ProfileConfig
	require.NoError(t, ProcessProfilingConfig(&profile, ""))
	assert.False(t, profile.Enabled)

	require.NoError(t, ProcessProfilingConfig(&profile, "run"))
	assert.True(t, profile.Enabled)
	assert.Equal(t, "run", profile.Prefix)
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    schema.Severity
		wantErr bool
	}{
		{"", schema.SeverityLow, false},
		{"high", schema.SeverityHigh, false},
		{" Critical ", schema.SeverityCritical, false},
		{"MEDIUM", schema.SeverityMedium, false},
		{"urgent", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeverity(tt.input)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid min-severity")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
