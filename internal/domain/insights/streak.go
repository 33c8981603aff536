// Package insights aggregates saved reflections into dashboard figures.
package insights

import (
	"slices"
	"time"
)

const dayLayout = "2006-01-02"

// Streak counts consecutive local calendar days with activity, walking back
// from the most recent one. A streak is current only if its most recent day
// is today or yesterday in loc. Days after today are ignored.
func Streak(times []time.Time, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	today := localDay(now, loc)
	days := distinctDays(times, today, loc)
	if len(days) == 0 {
		return 0
	}

	if gap := dayGap(today, days[0]); gap < 0 || gap > 1 {
		return 0
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		if dayGap(days[i-1], days[i]) != 1 {
			break
		}
		streak++
	}
	return streak
}

// distinctDays returns local midnights up to and including today, newest first.
func distinctDays(times []time.Time, today time.Time, loc *time.Location) []time.Time {
	seen := make(map[string]struct{}, len(times))
	days := make([]time.Time, 0, len(times))
	for _, t := range times {
		if t.IsZero() {
			continue
		}
		d := localDay(t, loc)
		if dayGap(today, d) < 0 {
			continue
		}
		k := d.Format(dayLayout)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		days = append(days, d)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return b.Compare(a) })
	return days
}

func localDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// dayGap returns the number of calendar days from b to a. Calendar
// arithmetic keeps DST days from counting as gaps.
func dayGap(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ua.Sub(ub).Hours() / 24)
}
