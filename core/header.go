package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/huangsam/querylens/internal/contract"
	"github.com/huangsam/querylens/schema"
)

// logAnalysisHeader prints a concise, 2-line header before a pass.
func logAnalysisHeader(ctx context.Context, cfg *contract.Config, verb string) {
	if shouldSuppressHeader(ctx) {
		return
	}
	credits := "none"
	if cfg.CreditsFile != "" {
		credits = filepath.Base(cfg.CreditsFile)
	}

	// Line 1: what is being analyzed
	line1 := fmt.Sprintf("%s: %s (Credits: %s)", verb, filepath.Base(cfg.QueriesFile), credits)

	// Line 2: the scope of the pass
	window := "all"
	if cfg.Thresholds.WindowHours > 0 {
		window = fmt.Sprintf("last %dh", cfg.Thresholds.WindowHours)
	}
	line2 := fmt.Sprintf("Window: %s | Filter: %s | Workers: %d", window, describeFilter(cfg.Filter), cfg.Workers)

	if cfg.UseEmojis {
		fmt.Printf("🔎 %s\n📅 %s\n", line1, line2)
	} else {
		fmt.Printf("%s\n%s\n", line1, line2)
	}
}

func describeFilter(f schema.QueryFilter) string {
	if f.IsEmpty() {
		return "none"
	}
	var parts []string
	add := func(name string, values []string) {
		if len(values) > 0 {
			parts = append(parts, name+"="+strings.Join(values, ","))
		}
	}
	add("warehouse", f.Warehouses)
	add("user", f.Users)
	add("role", f.Roles)
	add("database", f.Databases)
	return strings.Join(parts, " ")
}
