// Package metrics exports report totals as a Prometheus textfile for the
// node-exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/huangsam/querylens/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// reportGauges holds the gauges describing one report.
type reportGauges struct {
	findings         *prometheus.GaugeVec
	findingsByIssue  *prometheus.GaugeVec
	queriesTotal     prometheus.Gauge
	creditsTotal     prometheus.Gauge
	warehouseCredits *prometheus.GaugeVec
}

func newReportGauges(reg prometheus.Registerer) *reportGauges {
	factory := promauto.With(reg)
	return &reportGauges{
		findings: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "querylens_findings",
				Help: "Findings in the last analyzed batch",
			},
			[]string{"severity", "category"},
		),
		findingsByIssue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "querylens_findings_by_issue",
				Help: "Findings in the last analyzed batch per issue",
			},
			[]string{"issue"},
		),
		queriesTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "querylens_queries_total",
			Help: "Queries in the last analyzed batch",
		}),
		creditsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "querylens_credits_total",
			Help: "Credits consumed over the last analyzed batch",
		}),
		warehouseCredits: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "querylens_warehouse_credits",
				Help: "Metered credits per warehouse over the last analyzed batch",
			},
			[]string{"warehouse"},
		),
	}
}

// observe sets every gauge from report. All severity and category pairs are
// emitted, zero included, so that alerts see a stable series set.
func (g *reportGauges) observe(report schema.Report) {
	for _, sev := range schema.AllSeverities {
		for _, cat := range schema.AllCategories {
			g.findings.WithLabelValues(string(sev), string(cat)).Set(0)
		}
	}
	for _, f := range report.Findings {
		g.findings.WithLabelValues(string(f.Severity), string(f.Category)).Inc()
	}
	for _, ic := range report.Summary.ByIssue {
		g.findingsByIssue.WithLabelValues(string(ic.Issue)).Set(float64(ic.Count))
	}
	g.queriesTotal.Set(float64(report.Overview.TotalQueries))
	g.creditsTotal.Set(report.Overview.TotalCredits)
	for _, wc := range report.Summary.WarehouseCredits {
		g.warehouseCredits.WithLabelValues(wc.Warehouse).Set(wc.Credits)
	}
}

// Gather registers the report gauges on a fresh registry and returns it.
func Gather(report schema.Report) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	newReportGauges(reg).observe(report)
	return reg
}

// WriteReport writes the report gauges to path in the Prometheus text format.
// The file is replaced atomically.
func WriteReport(path string, report schema.Report) error {
	if err := prometheus.WriteToTextfile(path, Gather(report)); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
