package pipeline

import "time"

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// AddBusinessDays moves t forward by n weekdays, keeping the time of day.
// From a weekend the first step lands on Monday.
func AddBusinessDays(t time.Time, n int) time.Time {
	for i := 0; i < n; i++ {
		t = t.AddDate(0, 0, 1)
		for IsWeekend(t) {
			t = t.AddDate(0, 0, 1)
		}
	}
	return t
}

// BusinessDaysBetween counts the weekday steps from start (rolled forward
// to Monday when it falls on a weekend) up to and including end.
func BusinessDaysBetween(start, end time.Time) int {
	for IsWeekend(start) {
		start = start.AddDate(0, 0, 1)
	}
	n := 0
	for d := start; !d.After(end); d = AddBusinessDays(d, 1) {
		n++
	}
	return n
}
