package application

import "time"

// WeekRange returns the ISO week containing ref in loc: Monday 00:00:00
// through Sunday 23:59:59.
func WeekRange(ref time.Time, loc *time.Location) TimeRange {
	if loc == nil {
		loc = time.Local
	}
	local := ref.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	start := time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 7).Add(-time.Second)
	return TimeRange{Start: start, End: end}
}

// DayRange returns [midnight, next midnight) around ref in loc.
func DayRange(ref time.Time, loc *time.Location) TimeRange {
	if loc == nil {
		loc = time.Local
	}
	local := ref.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// validateInterval rejects intervals whose end does not come after the start.
// Times are compared at second resolution, as they are stored.
func validateInterval(start time.Time, end *time.Time) *ValidationError {
	vErr := &ValidationError{}
	if start.IsZero() {
		vErr.add("startTime", "start time is required")
		return vErr
	}
	if end != nil && end.Unix() <= start.Unix() {
		vErr.add("endTime", "The end time must be greater than the start time")
	}
	return vErr
}

func truncateSecond(t time.Time) time.Time {
	return time.Unix(t.Unix(), 0)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
