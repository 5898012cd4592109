package schema

import "strings"

// EnrichedFinding adds presentation data to a Finding.
type EnrichedFinding struct {
	Rank  int    `json:"rank"`
	Label string `json:"label"`
	Finding
}

// GetPlainLabel returns the title-cased label for a severity.
func GetPlainLabel(sev Severity) string {
	s := strings.ToLower(string(sev))
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// EnrichFindings adds rank and label to an ordered list of findings.
func EnrichFindings(findings []Finding) []EnrichedFinding {
	output := make([]EnrichedFinding, len(findings))
	for i, f := range findings {
		output[i] = EnrichedFinding{
			Rank:    i + 1,
			Label:   GetPlainLabel(f.Severity),
			Finding: f,
		}
	}
	return output
}

// FilterFindings keeps findings at or above minSeverity and, when warehouse
// is non-empty, those attached to that warehouse. A limit of 0 keeps all.
func FilterFindings(findings []Finding, minSeverity Severity, warehouse string, limit int) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if minSeverity != "" && !f.Severity.AtLeast(minSeverity) {
			continue
		}
		if warehouse != "" && !strings.EqualFold(f.Warehouse, warehouse) {
			continue
		}
		out = append(out, f)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
