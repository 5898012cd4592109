package schema

import "time"

// Thresholds holds every tunable floor used by the detectors.
// All values are static for the lifetime of a pass.
type Thresholds struct {
	WindowHours int `json:"window_hours"` // 0 disables windowing

	CartesianRowFloor    int64   `json:"cartesian_row_floor"`
	CartesianRowsPerByte float64 `json:"cartesian_rows_per_byte"`

	RemoteSpillFloor int64 `json:"remote_spill_floor"`
	LocalSpillFloor  int64 `json:"local_spill_floor"`

	PruningMinPartitions int64   `json:"pruning_min_partitions"`
	PruningScanPct       float64 `json:"pruning_scan_pct"`

	CachePctFloor   float64       `json:"cache_pct_floor"`
	CacheMinElapsed time.Duration `json:"cache_min_elapsed"`

	CompileFloor time.Duration `json:"compile_floor"`
	CompileRatio float64       `json:"compile_ratio"`

	FullScanBytesFloor int64   `json:"full_scan_bytes_floor"`
	CloudServicesRatio float64 `json:"cloud_services_ratio"`

	OversizedMinSize     WarehouseSize `json:"oversized_min_size"`
	OversizedExecCeiling time.Duration `json:"oversized_exec_ceiling"`
	QueuedFloor          time.Duration `json:"queued_floor"`
	RepetitionCount      int           `json:"repetition_count"`
	RepetitionExecFloor  time.Duration `json:"repetition_exec_floor"`
	RepetitionHighCost   time.Duration `json:"repetition_high_cost"`
	BurstWindow          time.Duration `json:"burst_window"`
	BurstCount           int           `json:"burst_count"`
	SpikeMultiplier      float64       `json:"spike_multiplier"`
	SpikeMinSamples      int           `json:"spike_min_samples"`
	OffHoursStart        time.Duration `json:"off_hours_start"` // offset from local midnight
	OffHoursEnd          time.Duration `json:"off_hours_end"`
	TimeZone             string        `json:"time_zone"`
}

// DefaultThresholds returns the stock detector configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WindowHours:          24,
		CartesianRowFloor:    1_000_000,
		CartesianRowsPerByte: 10,
		PruningMinPartitions: 100,
		PruningScanPct:       50,
		CachePctFloor:        20,
		CacheMinElapsed:      10 * time.Second,
		CompileFloor:         5 * time.Second,
		CompileRatio:         0.3,
		FullScanBytesFloor:   10 << 30,
		CloudServicesRatio:   0.1,
		OversizedMinSize:     SizeLarge,
		OversizedExecCeiling: 5 * time.Second,
		QueuedFloor:          30 * time.Second,
		RepetitionCount:      3,
		RepetitionExecFloor:  time.Second,
		RepetitionHighCost:   5 * time.Minute,
		BurstWindow:          15 * time.Minute,
		BurstCount:           3,
		SpikeMultiplier:      3,
		SpikeMinSamples:      5,
		OffHoursStart:        0,
		OffHoursEnd:          5 * time.Hour,
		TimeZone:             "Local",
	}
}

// Location resolves TimeZone, falling back to the local zone.
func (t Thresholds) Location() *time.Location {
	if t.TimeZone == "" || t.TimeZone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(t.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}
