// Package detect holds the rule-based detectors that turn query telemetry
// into findings. Detectors only decide whether a rule fires and with which
// value; severity, category and wording come from the policy table.
package detect

import (
	"fmt"
	"sort"
	"time"

	"github.com/huangsam/querylens/core/fingerprint"
	"github.com/huangsam/querylens/schema"
)

// Detector inspects a batch and reports findings. Implementations must not
// mutate the batch.
type Detector interface {
	Name() string
	Detect(b *Batch) []schema.Finding
}

// Batch is the immutable view of one detection pass. Tokens, fingerprints
// and fingerprint groups are computed once and shared by every detector.
type Batch struct {
	Records      []schema.QueryRecord
	Tokens       [][]fingerprint.Token
	Fingerprints []string
	Groups       map[string][]int // fingerprint -> record indexes ordered by start time
	Keys         []string         // sorted group keys
	Thresholds   schema.Thresholds
	Location     *time.Location

	// Warn receives recovered detector failures. Nil discards them.
	Warn func(msg string, err error)
}

// NewBatch copies records and derives the shared per-pass state.
func NewBatch(records []schema.QueryRecord, th schema.Thresholds) *Batch {
	b := &Batch{
		Records:      make([]schema.QueryRecord, len(records)),
		Tokens:       make([][]fingerprint.Token, len(records)),
		Fingerprints: make([]string, len(records)),
		Groups:       make(map[string][]int),
		Thresholds:   th,
		Location:     th.Location(),
	}
	copy(b.Records, records)

	for i := range b.Records {
		rec := &b.Records[i]
		b.Tokens[i] = fingerprint.Tokenize(rec.Text)
		if rec.Fingerprint == "" {
			rec.Fingerprint = fingerprint.FromTokens(b.Tokens[i], rec.Text)
		}
		b.Fingerprints[i] = rec.Fingerprint
		b.Groups[rec.Fingerprint] = append(b.Groups[rec.Fingerprint], i)
	}

	b.Keys = make([]string, 0, len(b.Groups))
	for fp, idx := range b.Groups {
		sort.SliceStable(idx, func(x, y int) bool {
			rx, ry := &b.Records[idx[x]], &b.Records[idx[y]]
			if !rx.StartTime.Equal(ry.StartTime) {
				return rx.StartTime.Before(ry.StartTime)
			}
			return rx.ID < ry.ID
		})
		b.Keys = append(b.Keys, fp)
	}
	sort.Strings(b.Keys)
	return b
}

func (b *Batch) warn(msg string, err error) {
	if b.Warn != nil {
		b.Warn(msg, err)
	}
}

// recordDetector applies a check to every record, isolating each record so
// a failure on one does not drop findings for the others.
type recordDetector struct {
	name  string
	check func(b *Batch, i int) []schema.Finding
}

func (d recordDetector) Name() string { return d.name }

func (d recordDetector) Detect(b *Batch) []schema.Finding {
	var out []schema.Finding
	for i := range b.Records {
		out = append(out, d.safeCheck(b, i)...)
	}
	return out
}

func (d recordDetector) safeCheck(b *Batch, i int) (found []schema.Finding) {
	defer func() {
		if r := recover(); r != nil {
			found = nil
			b.warn(fmt.Sprintf("detector %s skipped record %s", d.name, b.Records[i].ID), fmt.Errorf("panic: %v", r))
		}
	}()
	return d.check(b, i)
}

// batchDetector runs once over the whole batch.
type batchDetector struct {
	name string
	run  func(b *Batch) []schema.Finding
}

func (d batchDetector) Name() string { return d.name }

func (d batchDetector) Detect(b *Batch) []schema.Finding { return d.run(b) }

// Default returns every detector in reporting order.
func Default() []Detector {
	return []Detector{
		recordDetector{"select-star", checkSelectStar},
		recordDetector{"cartesian-join", checkCartesianJoin},
		recordDetector{"union-dedup", checkUnionDedup},
		recordDetector{"filter-function", checkFilterFunction},
		recordDetector{"spill", checkSpill},
		recordDetector{"pruning", checkPruning},
		recordDetector{"cache", checkCache},
		recordDetector{"compilation", checkCompilation},
		recordDetector{"full-scan", checkFullScan},
		recordDetector{"retry", checkRetry},
		recordDetector{"cloud-services", checkCloudServices},
		batchDetector{"warehouse-sizing", detectWarehouseSizing},
		batchDetector{"repetition", detectRepetition},
		batchDetector{"redundant-burst", detectBursts},
		batchDetector{"runtime-spike", detectSpikes},
		recordDetector{"off-hours", checkOffHours},
	}
}

// Func adapts a plain function to a Detector.
func Func(name string, fn func(b *Batch) []schema.Finding) Detector {
	return batchDetector{name: name, run: fn}
}
