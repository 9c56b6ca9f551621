// Package calendar provides date-window resolution and ISO-8601 calendar
// derivations used to partition warehouse records.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates (warehouse `date` column
// and the explicit start/end parameters of a sync request).
const DateLayout = "2006-01-02"

var (
	// ErrInvalidDate indicates a start/end parameter that is not YYYY-MM-DD
	ErrInvalidDate = errors.New("calendar: invalid date, expected YYYY-MM-DD")
	// ErrInvertedWindow indicates a window whose start is after its end
	ErrInvertedWindow = errors.New("calendar: window start is after end")
)

// Window is a half-open-free time range with explicit time-of-day bounds:
// Start is always at 00:00:00.000 and End at 23:59:59.999 of their days.
type Window struct {
	Start time.Time
	End   time.Time
}

// StartISO returns the window start as an ISO-8601 instant
func (w Window) StartISO() string {
	return w.Start.Format(time.RFC3339)
}

// EndISO returns the window end as an ISO-8601 instant
func (w Window) EndISO() string {
	return w.End.Format(time.RFC3339)
}

// StartOfDay returns t truncated to 00:00:00.000 in UTC
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns t at 23:59:59.999 in UTC
func EndOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999000000, time.UTC)
}

// WindowDaysBack returns [startOfDay(now - days), endOfDay(now)]
func WindowDaysBack(now time.Time, days int) Window {
	return Window{
		Start: StartOfDay(now.AddDate(0, 0, -days)),
		End:   EndOfDay(now),
	}
}

// ResolveWindow resolves the effective sync window. Precedence: an explicit
// start/end pair wins over a day count, which wins over defaultDays.
func ResolveWindow(now time.Time, start, end string, days, defaultDays int) (Window, error) {
	if start != "" || end != "" {
		s, err := time.ParseInLocation(DateLayout, start, time.UTC)
		if err != nil {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidDate, start)
		}
		e, err := time.ParseInLocation(DateLayout, end, time.UTC)
		if err != nil {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidDate, end)
		}
		w := Window{Start: StartOfDay(s), End: EndOfDay(e)}
		if w.Start.After(w.End) {
			return Window{}, ErrInvertedWindow
		}
		return w, nil
	}
	if days > 0 {
		return WindowDaysBack(now, days), nil
	}
	return WindowDaysBack(now, defaultDays), nil
}

// ISOWeek returns the ISO-8601 week-numbering year and week for t.
// Weeks start on Monday; week 1 is the week containing the year's first
// Thursday (equivalently, the week containing Jan 4).
func ISOWeek(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// YearWeek formats the ISO year/week pair as "YYYY-Www"
func YearWeek(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// Quarter returns the calendar quarter (1-4) of t's month
func Quarter(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// orderDateLayouts are the timestamp formats the source APIs are known to
// emit for order creation times.
var orderDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseOrderDate parses an order-creation timestamp in any supported format.
// The second return value reports whether parsing succeeded; on failure the
// caller falls back to "today" and logs a warning.
func ParseOrderDate(s string) (time.Time, bool) {
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
