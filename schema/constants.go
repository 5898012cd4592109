package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and run history.
	DatabaseBackend string

	// Severity is the urgency of a finding.
	Severity string

	// Category groups findings by the kind of problem they describe.
	Category string

	// Issue names the rule that produced a finding.
	Issue string

	// SubjectKind says what a finding's subject refers to.
	SubjectKind string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Severities, from most to least urgent.
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Finding categories.
const (
	CategoryAntiPattern Category = "sql-anti-pattern"
	CategoryPerformance Category = "performance"
	CategoryOperational Category = "operational"
	CategoryAnomaly     Category = "anomaly"
)

// Subject kinds.
const (
	SubjectQuery       SubjectKind = "query"
	SubjectWarehouse   SubjectKind = "warehouse"
	SubjectFingerprint SubjectKind = "fingerprint"
)

// Issues raised by the detectors.
const (
	IssueSelectStar         Issue = "select-star"
	IssueCartesianJoin      Issue = "cartesian-join"
	IssueUnionDedup         Issue = "union-dedup"
	IssueFilterFunction     Issue = "filter-function"
	IssueRemoteSpill        Issue = "remote-spill"
	IssueLocalSpill         Issue = "local-spill"
	IssuePoorPruning        Issue = "poor-pruning"
	IssueLowCache           Issue = "low-cache"
	IssueCompilation        Issue = "compilation-overhead"
	IssueFullScan           Issue = "full-scan"
	IssueRetry              Issue = "retry"
	IssueCloudServices      Issue = "cloud-services"
	IssueOversizedWarehouse Issue = "oversized-warehouse"
	IssueWarehouseQueuing   Issue = "warehouse-queuing"
	IssueRepeatedQuery      Issue = "repeated-query"
	IssueRedundantBurst     Issue = "redundant-burst"
	IssueRuntimeSpike       Issue = "runtime-spike"
	IssueOffHours           Issue = "off-hours"
)

// AllSeverities lists severities from most to least urgent.
var AllSeverities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// AllCategories lists every finding category in display order.
var AllCategories = []Category{CategoryAntiPattern, CategoryPerformance, CategoryOperational, CategoryAnomaly}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidSeverities lists all valid severities.
var ValidSeverities = map[Severity]struct{}{
	SeverityCritical: {},
	SeverityHigh:     {},
	SeverityMedium:   {},
	SeverityLow:      {},
}

// Rank orders severities so that CRITICAL > HIGH > MEDIUM > LOW.
// Unknown severities rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as urgent as min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}
