package utils

import "time"

// All revenue windows are computed in UTC regardless of the host's zone.

// Use explicit "seconds" variant for DB storage, millis for key expiries.
func NowUnixSeconds() int64 { return time.Now().Unix() }
func NowUnixMillis() int64  { return time.Now().UnixMilli() }

// MonthBoundsUTC returns the half-open [start, end) window of the calendar
// month containing now: the first instant of that month and the first
// instant of the next one, both UTC. AddDate handles the December to
// January rollover.
func MonthBoundsUTC(now time.Time) (time.Time, time.Time) {
	nowUTC := now.UTC()
	start := time.Date(nowUTC.Year(), nowUTC.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start, end
}

// MonthsBackUTC returns the [start, end) window of the full month n months
// before the month containing now (n=1 is the previous month).
func MonthsBackUTC(now time.Time, n int) (time.Time, time.Time) {
	start, _ := MonthBoundsUTC(now)
	return start.AddDate(0, -n, 0), start.AddDate(0, -(n - 1), 0)
}

func ToUnixMillis(t time.Time) int64 { return t.UnixMilli() }

// FromUnixMillisUTC converts an epoch value in milliseconds to UTC time.
// Returns zero time if t<=0 to let callers decide how to render.
func FromUnixMillisUTC(t int64) time.Time {
	if t <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(t).UTC()
}
