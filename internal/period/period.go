package period

import (
	"fmt"
	"time"
)

// Layout of a canonical period key, e.g. "2025-03".
const Layout = "2006-01"

// Load resolves an IANA timezone name, falling back to UTC when the zone
// database does not know it.
func Load(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Current returns the canonical period key for the wall-clock month of now in
// the given zone. The key is stable within one local calendar month and
// changes exactly at the local month boundary.
func Current(loc *time.Location, now time.Time) string {
	return now.In(loc).Format(Layout)
}

// ComputeDueAt returns the absolute instant of local (dueDay, dueHour:00:00)
// within the month named by the period key, resolved in loc. A due day beyond
// the length of the target month is clamped to its last day, so "day 31" in a
// 30-day month falls due on the 30th rather than rolling into the next month.
func ComputeDueAt(loc *time.Location, dueDay, dueHour int, period string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, period, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("period: invalid key %q: %w", period, err)
	}
	if dueDay < 1 || dueDay > 31 {
		return time.Time{}, fmt.Errorf("period: due day %d out of range", dueDay)
	}
	if dueHour < 0 || dueHour > 23 {
		return time.Time{}, fmt.Errorf("period: due hour %d out of range", dueHour)
	}
	year, month := t.Year(), t.Month()
	if last := daysIn(year, month); dueDay > last {
		dueDay = last
	}
	return time.Date(year, month, dueDay, dueHour, 0, 0, 0, loc), nil
}

func daysIn(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
