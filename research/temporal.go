package research

import (
	"fmt"
	"time"
)

// TemporalContext turns an ISO date string into a relative-time phrase for
// the given reference time, e.g. "Last year (2025)". Malformed or missing
// dates yield "" so the caller can drop the temporal clause.
func TemporalContext(dateStr string, now time.Time) string {
	if dateStr == "" {
		return ""
	}
	if len(dateStr) > 10 {
		dateStr = dateStr[:10]
	}

	eventDate, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return ""
	}

	eventYear := eventDate.Year()
	yearsAgo := now.Year() - eventYear

	switch {
	case yearsAgo <= 0:
		return fmt.Sprintf("This year (%d)", eventYear)
	case yearsAgo == 1:
		return fmt.Sprintf("Last year (%d)", eventYear)
	case yearsAgo < 3:
		return fmt.Sprintf("Recently (%d)", eventYear)
	case yearsAgo < 5:
		return fmt.Sprintf("%d years ago (%d)", yearsAgo, eventYear)
	default:
		return fmt.Sprintf("In %d", eventYear)
	}
}
