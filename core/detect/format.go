package detect

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

func fmtBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func fmtPct(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

// fmtDuration rounds to a readable precision for descriptions.
func fmtDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second).String()
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}

func fmtCount(n int64, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return fmt.Sprintf("%s %s", humanize.Comma(n), plural)
}

func ratio(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return num / den, true
}
