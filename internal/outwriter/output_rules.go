package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/huangsam/querylens/core/detect"
	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/schema"
)

// writeRulesText prints the policy table in severity order,
// followed by each rule's action and recommendation.
func writeRulesText(w io.Writer, rules []detect.Rule, cfg *contract.Config) error {
	if _, err := fmt.Fprintf(w, "%s\n\n", sectionTitle(cfg.UseEmojis, "📜", "Detection rules")); err != nil {
		return err
	}

	var data [][]string
	for _, r := range rules {
		label := schema.GetPlainLabel(r.Severity)
		if cfg.UseColors {
			label = contract.GetColorLabel(r.Severity)
		}
		escalated := "-"
		if r.Escalated != "" {
			escalated = schema.GetPlainLabel(r.Escalated)
		}
		data = append(data, []string{
			string(r.Issue),
			string(r.Category),
			label,
			escalated,
			string(r.Subject),
			r.Title,
		})
	}
	if err := renderTable(w, []string{"Issue", "Category", "Severity", "Escalated", "Subject", "Title"}, data); err != nil {
		return err
	}

	for _, r := range rules {
		if _, err := fmt.Fprintf(w, "\n%s: %s\n   Action: %s\n   Recommendation: %s\n", r.Issue, r.Title, r.Action, r.Recommendation); err != nil {
			return err
		}
	}
	return nil
}

// writeCSVRules writes one record per rule.
func writeCSVRules(w io.Writer, rules []detect.Rule) error {
	header := []string{"issue", "category", "severity", "escalated", "subject", "title", "description", "recommendation", "action"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range rules {
			rec := []string{
				string(r.Issue),
				string(r.Category),
				string(r.Severity),
				string(r.Escalated),
				string(r.Subject),
				r.Title,
				r.Description,
				r.Recommendation,
				r.Action,
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}
