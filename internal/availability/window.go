package availability

import "time"

// DateFormat is the calendar-date form used on the wire and in cache keys.
const DateFormat = "2006-01-02"

// DateWindow is a contiguous, inclusive span of calendar dates.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// NewDateWindow builds a window from two instants, truncated to their
// calendar dates in UTC.
func NewDateWindow(start, end time.Time) DateWindow {
	return DateWindow{Start: Day(start), End: Day(end)}
}

// Day truncates an instant to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Empty reports whether the window spans no dates.
func (w DateWindow) Empty() bool {
	return w.Start.After(w.End)
}

// Clip bounds the window to [min, max]. The result may be empty.
func (w DateWindow) Clip(min, max time.Time) DateWindow {
	out := w
	if out.Start.Before(min) {
		out.Start = min
	}
	if out.End.After(max) {
		out.End = max
	}
	return out
}

// Batches partitions the window into fixed-width spans of days starting
// at the window start. The final batch keeps its full width even when it
// extends past the window end, so overlapping queries whose starts land a
// whole number of batches apart derive identical batch keys and reuse
// each other's cached data.
func (w DateWindow) Batches(days int) []DateWindow {
	if days <= 0 {
		days = 7
	}
	var batches []DateWindow
	for s := w.Start; !s.After(w.End); s = s.AddDate(0, 0, days) {
		batches = append(batches, DateWindow{Start: s, End: s.AddDate(0, 0, days-1)})
	}
	return batches
}

// Dates lists every date in the window in wire form.
func (w DateWindow) Dates() []string {
	var dates []string
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateFormat))
	}
	return dates
}
