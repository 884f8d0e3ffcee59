package engine

import (
	"fmt"
	"strings"
	"time"
)

// FormatAge renders the time elapsed between start and now as "1y 2m 3d",
// omitting zero components. A start on or after now renders as "0d".
func FormatAge(start, now time.Time) string {
	start, now = Day(start), Day(now)
	if !now.After(start) {
		return "0d"
	}

	years := now.Year() - start.Year()
	months := int(now.Month()) - int(start.Month())
	days := now.Day() - start.Day()
	if days < 0 {
		months--
		// day 0 of the current month is the last day of the previous one
		days += time.Date(now.Year(), now.Month(), 0, 0, 0, 0, 0, time.UTC).Day()
		if days < 0 {
			days = 0
		}
	}
	if months < 0 {
		years--
		months += 12
	}

	var parts []string
	if years > 0 {
		parts = append(parts, fmt.Sprintf("%dy", years))
	}
	if months > 0 {
		parts = append(parts, fmt.Sprintf("%dm", months))
	}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if len(parts) == 0 {
		return "0d"
	}
	return strings.Join(parts, " ")
}
