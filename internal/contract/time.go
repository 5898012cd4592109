package contract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Define the regular expression to capture "N [units]".
var lookbackDurationRe = regexp.MustCompile(`^(\d+)\s+(week|day|hour|minute|second)s?$`)

// clockRe matches a 24h wall clock like "5:00" or "23:30".
var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseLookbackDuration converts strings like "90s", "15m" or "2 hours" into a time.Duration.
// It first tries Go's built-in time.ParseDuration for standard formats, then falls back
// to custom parsing for human-readable formats.
func ParseLookbackDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if duration, err := time.ParseDuration(s); err == nil {
		if duration <= 0 {
			return 0, errors.New("duration must be positive")
		}
		return duration, nil
	}

	s = strings.ToLower(s)
	matches := lookbackDurationRe.FindStringSubmatch(s)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}

	// 1: Value (e.g., "2")
	// 2: Unit (e.g., "hour" or "minute")
	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", matches[1])
	}

	var unit time.Duration
	switch matches[2] {
	case "week":
		unit = 7 * 24 * time.Hour
	case "day":
		unit = 24 * time.Hour
	case "hour":
		unit = time.Hour
	case "minute":
		unit = time.Minute
	case "second":
		unit = time.Second
	}

	total := time.Duration(value) * unit
	if total <= 0 {
		return 0, errors.New("duration must be positive")
	}
	return total, nil
}

// ParseClock converts "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	matches := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid clock time '%s', expected HH:MM", s)
	}
	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	if hours > 24 || minutes > 59 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("clock time out of range: %s", s)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}

// ParseOffHours parses a window like "00:00-05:00". The window may wrap midnight
// ("22:00-06:00") but must not be empty.
func ParseOffHours(s string) (time.Duration, time.Duration, error) {
	startStr, endStr, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid off-hours '%s', expected HH:MM-HH:MM", s)
	}
	start, err := ParseClock(startStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid off-hours start: %w", err)
	}
	end, err := ParseClock(endStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid off-hours end: %w", err)
	}
	if start == end {
		return 0, 0, fmt.Errorf("off-hours window '%s' is empty", s)
	}
	return start, end, nil
}

// FormatClock renders an offset from midnight as "HH:MM".
func FormatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
