package tools

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	dateLayout,
}

// parseDate reads a calendar date in loc and returns its midnight.
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, failf("Invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// parseDateTime accepts RFC 3339 or a local wall-clock time in loc.
func parseDateTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, failf("Invalid date/time %q, expected ISO 8601", raw)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the Monday midnight of t's week.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// dateRange is a half-open interval [From, To).
type dateRange struct {
	From time.Time
	To   time.Time
}

func (r dateRange) contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// namedPeriod resolves today, this_week and friends relative to now.
func namedPeriod(name string, now time.Time) (dateRange, bool) {
	key := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(name)))
	today := startOfDay(now)
	week := startOfWeek(now)
	switch key {
	case "today":
		return dateRange{today, today.AddDate(0, 0, 1)}, true
	case "tomorrow":
		return dateRange{today.AddDate(0, 0, 1), today.AddDate(0, 0, 2)}, true
	case "yesterday":
		return dateRange{today.AddDate(0, 0, -1), today}, true
	case "this_week", "week":
		return dateRange{week, week.AddDate(0, 0, 7)}, true
	case "next_week":
		return dateRange{week.AddDate(0, 0, 7), week.AddDate(0, 0, 14)}, true
	case "last_week":
		return dateRange{week.AddDate(0, 0, -7), week}, true
	case "this_month", "month":
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return dateRange{first, first.AddDate(0, 1, 0)}, true
	}
	return dateRange{}, false
}

// inclusiveRange builds a range from optional inclusive calendar dates. A
// missing bound is left open.
func inclusiveRange(from, to string, loc *time.Location) (dateRange, bool, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return dateRange{}, false, nil
	}
	r := dateRange{
		From: time.Date(1, 1, 1, 0, 0, 0, 0, loc),
		To:   time.Date(9999, 1, 1, 0, 0, 0, 0, loc),
	}
	if from != "" {
		t, err := parseDate(from, loc)
		if err != nil {
			return dateRange{}, false, err
		}
		r.From = t
	}
	if to != "" {
		t, err := parseDate(to, loc)
		if err != nil {
			return dateRange{}, false, err
		}
		r.To = t.AddDate(0, 0, 1)
	}
	if !r.From.Before(r.To) {
		return dateRange{}, false, failf("date range ends before it starts")
	}
	return r, true, nil
}
