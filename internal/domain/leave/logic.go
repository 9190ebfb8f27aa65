package leave

import "time"

const dayLayout = "2006-01-02"

// ParseDay accepts RFC3339 or YYYY-MM-DD.
func ParseDay(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		// Keep the calendar day as written; truncating in absolute time
		// would shift days for non-UTC offsets.
		year, month, day := parsed.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
	}
	parsed, err := time.Parse(dayLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// CalculateDuration returns the inclusive day count between start and end.
// It is zero when either date is missing or unparsable, or when end
// precedes start.
func CalculateDuration(start, end string) int {
	from, ok := ParseDay(start)
	if !ok {
		return 0
	}
	to, ok := ParseDay(end)
	if !ok {
		return 0
	}
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}
