package outwriter

import (
	"os"

	"github.com/huangsam/querylens/internal/contract"
	"golang.org/x/term"
)

// GetMaxTextWidth calculates how wide each free-text column of the findings
// table may be, based on terminal width and the fixed columns around them.
func GetMaxTextWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Rank + Severity + Issue + Category with borders/padding
	baseWidth := 60

	// Table borders, separators and padding
	baseWidth += 20

	// Subject, Description and Recommendation share what remains
	available := (termWidth - baseWidth) / 3
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
