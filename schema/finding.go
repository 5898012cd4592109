package schema

import "time"

// Finding is one classified problem attached to a query, warehouse or fingerprint.
type Finding struct {
	Subject        string      `json:"subject"`
	SubjectKind    SubjectKind `json:"subject_kind"`
	Category       Category    `json:"category"`
	Issue          Issue       `json:"issue"`
	Severity       Severity    `json:"severity"`
	Description    string      `json:"description"`
	Recommendation string      `json:"recommendation"`
	OccurredAt     time.Time   `json:"occurred_at"`
	Warehouse      string      `json:"warehouse,omitempty"`
	User           string      `json:"user,omitempty"`
}

// IssueCount rolls up findings of a single issue.
type IssueCount struct {
	Issue    Issue    `json:"issue"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Count    int      `json:"count"`
	Action   string   `json:"action"` // one-line remediation for the whole issue
}

// WarehouseCredits is the metered spend of a warehouse over the batch range.
type WarehouseCredits struct {
	Warehouse            string  `json:"warehouse"`
	Credits              float64 `json:"credits"`
	ComputeCredits       float64 `json:"compute_credits"`
	CloudServicesCredits float64 `json:"cloud_services_credits"`
	Buckets              int     `json:"buckets"`
}

// Summary holds aggregate counts of a report.
type Summary struct {
	TotalFindings    int                `json:"total_findings"`
	BySeverity       map[Severity]int   `json:"by_severity"`
	ByCategory       map[Category]int   `json:"by_category"`
	ByIssue          []IssueCount       `json:"by_issue"`
	WarehouseCredits []WarehouseCredits `json:"warehouse_credits"`
}

// Overview holds headline numbers for the analyzed batch.
type Overview struct {
	TotalQueries      int       `json:"total_queries"`
	MeanExecutionSec  float64   `json:"mean_execution_sec"`
	TotalBytesScanned int64     `json:"total_bytes_scanned"`
	TotalCredits      float64   `json:"total_credits"`
	WindowStart       time.Time `json:"window_start"`
	WindowEnd         time.Time `json:"window_end"`
}

// Report is the result of one analysis pass.
type Report struct {
	Findings []Finding `json:"findings"`
	Summary  Summary   `json:"summary"`
	Overview Overview  `json:"overview"`
}

// NewSummary returns a summary with every severity and category present at zero.
func NewSummary() Summary {
	s := Summary{
		BySeverity:       make(map[Severity]int, len(AllSeverities)),
		ByCategory:       make(map[Category]int, len(AllCategories)),
		ByIssue:          []IssueCount{},
		WarehouseCredits: []WarehouseCredits{},
	}
	for _, sev := range AllSeverities {
		s.BySeverity[sev] = 0
	}
	for _, c := range AllCategories {
		s.ByCategory[c] = 0
	}
	return s
}
