package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Duration is either a decimal hour count or a start/end clock range.
type Duration struct {
	Hours float64
	Start string
	End   string
}

// String renders "09:00 – 17:30 (8h 30m)" for ranges and "{hours}h" otherwise.
// Hours are not validated; a NaN value renders as "NaNh".
func (d Duration) String() string {
	if r := FormatTimeRange(d.Start, d.End); r != "" {
		return fmt.Sprintf("%s (%s)", r, FormatDuration(ComputeHours(d.Start, d.End)))
	}
	return strconv.FormatFloat(d.Hours, 'f', -1, 64) + "h"
}

// ComputeHours returns the decimal hours between two "HH:MM" clock times.
// An end at or before the start wraps past midnight.
func ComputeHours(start, end string) float64 {
	if start == "" || end == "" {
		return 0
	}
	startMins := clockMinutes(start)
	endMins := clockMinutes(end)
	mins := endMins - startMins
	if mins <= 0 {
		mins += 24 * 60
	}
	return math.Round(mins) / 60
}

func clockMinutes(value string) float64 {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return math.NaN()
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return math.NaN()
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return math.NaN()
	}
	return float64(h*60 + m)
}

// FormatDuration formats decimal hours as "8h" or "8h 30m".
func FormatDuration(hours float64) string {
	if math.IsNaN(hours) || hours <= 0 {
		return "—"
	}
	total := int(math.Round(hours * 60))
	h := total / 60
	m := total % 60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatTimeRange returns "09:00 – 17:30", or "" when either side is missing.
func FormatTimeRange(start, end string) string {
	if start == "" || end == "" {
		return ""
	}
	return start + " – " + end
}
