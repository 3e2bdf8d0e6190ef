package analysis

import (
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate parses a thread date header. Values that are not calendar dates
// (the exporter writes "unknown" for empty threads) return false.
func ParseDate(s string) (time.Time, bool) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// WeekStart returns the Monday that begins the ISO week containing d.
func WeekStart(d time.Time) time.Time {
	offset := int(d.Weekday()) - int(time.Monday)
	if d.Weekday() == time.Sunday {
		offset = 6
	}
	y, m, day := d.Date()
	return time.Date(y, m, day-offset, 0, 0, 0, 0, time.UTC)
}

// BarLength scales count against max into width cells, rounding half away from zero.
func BarLength(count, max, width int) int {
	if max <= 0 || count <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(max) * float64(width)))
}
