package detect

import (
	"sort"
	"strings"
	"time"

	"github.com/huangsam/querylens/schema"
)

// Rule is one row of the severity and recommendation policy.
// Description and Recommendation are templates where {value} is replaced by
// the triggering metric and {subject} by the finding subject.
type Rule struct {
	Issue          schema.Issue       `json:"issue"`
	Category       schema.Category    `json:"category"`
	Severity       schema.Severity    `json:"severity"`
	Escalated      schema.Severity    `json:"escalated,omitempty"` // severity when a detector reports high cost
	Subject        schema.SubjectKind `json:"subject"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Recommendation string             `json:"recommendation"`
	Action         string             `json:"action"`
}

var policy = map[schema.Issue]Rule{
	schema.IssueSelectStar: {
		Category:       schema.CategoryAntiPattern,
		Severity:       schema.SeverityMedium,
		Subject:        schema.SubjectQuery,
		Title:          "Unbounded projection",
		Description:    "Query projects every column ({value})",
		Recommendation: "List only the columns you need instead of {value} so column pruning can apply.",
		Action:         "Avoid SELECT * in production queries",
	},
	schema.IssueCartesianJoin: {
		Category:       schema.CategoryAntiPattern,
		Severity:       schema.SeverityCritical,
		Subject:        schema.SubjectQuery,
		Title:          "Cartesian join",
		Description:    "Potential cartesian product: {value}",
		Recommendation: "Add explicit JOIN conditions with ON or USING clause. Avoid CROSS JOINs unless necessary. Consider using range join optimization or ASOF joins for time-series data.",
		Action:         "Review JOIN conditions and add explicit ON clauses",
	},
	schema.IssueUnionDedup: {
		Category:       schema.CategoryAntiPattern,
		Severity:       schema.SeverityLow,
		Subject:        schema.SubjectQuery,
		Title:          "Duplicate-eliminating UNION",
		Description:    "UNION without ALL forces a deduplicating sort ({value})",
		Recommendation: "Use UNION ALL when the inputs cannot overlap or duplicates are acceptable.",
		Action:         "Prefer UNION ALL over UNION",
	},
	schema.IssueFilterFunction: {
		Category:       schema.CategoryAntiPattern,
		Severity:       schema.SeverityMedium,
		Subject:        schema.SubjectQuery,
		Title:          "Function on filter column",
		Description:    "WHERE clause wraps a column in a function: {value}",
		Recommendation: "Rewrite {value} as a comparison on the bare column, e.g. a range predicate, so partitions can be pruned.",
		Action:         "Keep filter columns unwrapped",
	},
	schema.IssueRemoteSpill: {
		Category:       schema.CategoryPerformance,
		Severity:       schema.SeverityCritical,
		Subject:        schema.SubjectQuery,
		Title:          "Remote spilling",
		Description:    "Spilled {value} to remote storage",
		Recommendation: "Run on a larger warehouse or reduce the data processed per step; spilling {value} remotely is the slowest execution path.",
		Action:         "Increase warehouse sizes or optimize queries",
	},
	schema.IssueLocalSpill: {
		Category:       schema.CategoryPerformance,
		Severity:       schema.SeverityHigh,
		Subject:        schema.SubjectQuery,
		Title:          "Local spilling",
		Description:    "Spilled {value} to local storage",
		Recommendation: "Consider a larger warehouse or split the query into smaller steps.",
		Action:         "Increase warehouse sizes or optimize queries",
	},
	schema.IssuePoorPruning: {
		Category:       schema.CategoryPerformance,
		Severity:       schema.SeverityMedium,
		Subject:        schema.SubjectQuery,
		Title:          "Poor partition pruning",
		Description:    "Scanned {value} of partitions",
		Recommendation: "Add WHERE clause filters on clustered columns, or define clustering keys.",
		Action:         "Add clustering keys or improve WHERE clause filters",
	},
	schema.IssueLowCache: {
		Category:       schema.CategoryPerformance,
		Severity:       schema.SeverityLow,
		Subject:        schema.SubjectQuery,
		Title:          "Low cache utilization",
		Description:    "Only {value} of scanned bytes came from cache",
		Recommendation: "Adjust auto-suspend settings or consolidate similar queries on one warehouse to keep its cache warm.",
		Action:         "Adjust auto-suspend settings or consolidate queries",
	},
	schema.IssueCompilation: {
		Category:       schema.CategoryPerformance,
		Severity:       schema.SeverityMedium,
		Subject:        schema.SubjectQuery,
		Title:          "Compilation overhead",
		Description:    "Compilation took {value}",
		Recommendation: "Simplify complex queries or break them down; deeply nested views and large IN lists inflate compile time.",
		Action:         "Simplify complex queries or break them down",
	},
	schema.IssueFullScan: {
		Category:       schema.CategoryPerformance,
		Severity:       schema.SeverityMedium,
		Subject:        schema.SubjectQuery,
		Title:          "Full table scan",
		Description:    "Unfiltered scan of {value}",
		Recommendation: "Filter on partition or clustering columns so the scan can be pruned.",
		Action:         "Add selective filters to large scans",
	},
	schema.IssueRetry: {
		Category:       schema.CategoryOperational,
		Severity:       schema.SeverityHigh,
		Subject:        schema.SubjectQuery,
		Title:          "Retried statement",
		Description:    "Statement was retried {value}",
		Recommendation: "Investigate the underlying error and set a statement timeout so runaway retries fail fast.",
		Action:         "Investigate failing and retried statements",
	},
	schema.IssueCloudServices: {
		Category:       schema.CategoryOperational,
		Severity:       schema.SeverityLow,
		Subject:        schema.SubjectQuery,
		Title:          "Cloud-services heavy",
		Description:    "Cloud services used {value} of the statement's credits",
		Recommendation: "Reduce metadata-heavy work such as frequent SHOW commands, tiny DML batches or very complex compilation.",
		Action:         "Reduce cloud-services heavy operations",
	},
	schema.IssueOversizedWarehouse: {
		Category:       schema.CategoryOperational,
		Severity:       schema.SeverityMedium,
		Subject:        schema.SubjectWarehouse,
		Title:          "Oversized warehouse",
		Description:    "Mean execution time is {value} on a large warehouse",
		Recommendation: "Consider downsizing {subject} to SMALL or MEDIUM.",
		Action:         "Adjust warehouse sizes based on workload patterns",
	},
	schema.IssueWarehouseQueuing: {
		Category:       schema.CategoryOperational,
		Severity:       schema.SeverityHigh,
		Subject:        schema.SubjectWarehouse,
		Title:          "Warehouse queuing",
		Description:    "Queries waited {value} in queue",
		Recommendation: "Consider scaling up {subject} or enabling multi-cluster mode.",
		Action:         "Adjust warehouse sizes based on workload patterns",
	},
	schema.IssueRepeatedQuery: {
		Category:       schema.CategoryPerformance,
		Severity:       schema.SeverityMedium,
		Escalated:      schema.SeverityHigh,
		Subject:        schema.SubjectFingerprint,
		Title:          "Repeated query",
		Description:    "Same statement ran {value}",
		Recommendation: "Cache or materialize the result, or consolidate the callers of this statement.",
		Action:         "Cache or consolidate repeated queries",
	},
	schema.IssueRedundantBurst: {
		Category:       schema.CategoryAnomaly,
		Severity:       schema.SeverityMedium,
		Subject:        schema.SubjectFingerprint,
		Title:          "Redundant burst",
		Description:    "Same statement ran {value}",
		Recommendation: "Deduplicate the callers or rely on result caching instead of re-running the statement.",
		Action:         "Deduplicate bursts of identical queries",
	},
	schema.IssueRuntimeSpike: {
		Category:       schema.CategoryAnomaly,
		Severity:       schema.SeverityHigh,
		Subject:        schema.SubjectQuery,
		Title:          "Runtime spike",
		Description:    "Execution took {value}",
		Recommendation: "Compare this run's profile with typical runs; check input volume, concurrent load and spilling.",
		Action:         "Investigate runtime spikes",
	},
	schema.IssueOffHours: {
		Category:       schema.CategoryAnomaly,
		Severity:       schema.SeverityLow,
		Subject:        schema.SubjectQuery,
		Title:          "Off-hours execution",
		Description:    "Started at {value}",
		Recommendation: "Verify the statement is intentionally scheduled for off-hours.",
		Action:         "Verify off-hours workloads are intentional",
	},
}

// Lookup returns the policy row for an issue.
func Lookup(issue schema.Issue) (Rule, bool) {
	r, ok := policy[issue]
	if ok {
		r.Issue = issue
	}
	return r, ok
}

// Rules returns the whole policy table ordered by severity, then issue.
func Rules() []Rule {
	rules := make([]Rule, 0, len(policy))
	for issue := range policy {
		r, _ := Lookup(issue)
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Severity != rules[j].Severity {
			return rules[i].Severity.Rank() > rules[j].Severity.Rank()
		}
		return rules[i].Issue < rules[j].Issue
	})
	return rules
}

// hit is what a detector reports before policy is applied.
type hit struct {
	issue     schema.Issue
	subject   string
	at        time.Time
	value     string
	escalate  bool
	warehouse string
	user      string
}

func (h hit) finding() schema.Finding {
	rule, ok := Lookup(h.issue)
	if !ok {
		rule = Rule{Issue: h.issue, Category: schema.CategoryOperational, Severity: schema.SeverityLow, Subject: schema.SubjectQuery, Description: "{value}"}
	}
	sev := rule.Severity
	if h.escalate && rule.Escalated != "" {
		sev = rule.Escalated
	}
	r := strings.NewReplacer("{value}", h.value, "{subject}", h.subject)
	return schema.Finding{
		Subject:        h.subject,
		SubjectKind:    rule.Subject,
		Category:       rule.Category,
		Issue:          h.issue,
		Severity:       sev,
		Description:    r.Replace(rule.Description),
		Recommendation: r.Replace(rule.Recommendation),
		OccurredAt:     h.at,
		Warehouse:      h.warehouse,
		User:           h.user,
	}
}

// queryHit builds a hit attached to one record.
func queryHit(issue schema.Issue, rec *schema.QueryRecord, value string) hit {
	return hit{
		issue:     issue,
		subject:   rec.ID,
		at:        rec.StartTime,
		value:     value,
		warehouse: rec.Warehouse,
		user:      rec.User,
	}
}

func one(h hit) []schema.Finding {
	return []schema.Finding{h.finding()}
}
