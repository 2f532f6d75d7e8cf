package tools

import (
	"context"
	"sort"
	"strings"

	"clamp-agent/internal/domain"
)

type getScheduleInput struct {
	Date       string `json:"date"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	AssigneeID string `json:"assignee_id"`
}

func (d *Dispatcher) getSchedule(ctx context.Context, tenantID string, in getScheduleInput) ([]domain.Job, error) {
	window, err := d.scheduleWindow(in)
	if err != nil {
		return nil, err
	}
	all, err := d.store.ListJobs(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Job, 0, scheduleLimit)
	for _, j := range all {
		if j.Start == nil || !window.contains(*j.Start) {
			continue
		}
		if j.Status == domain.JobCancelled {
			continue
		}
		if in.AssigneeID != "" && !hasAssignee(j, in.AssigneeID) {
			continue
		}
		out = append(out, j)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Start.Before(*out[b].Start) })
	return limit(out, scheduleLimit), nil
}

// scheduleWindow prefers an explicit range, then a named period or single
// date, and defaults to today.
func (d *Dispatcher) scheduleWindow(in getScheduleInput) (dateRange, error) {
	if strings.TrimSpace(in.StartDate) != "" || strings.TrimSpace(in.EndDate) != "" {
		from, to := in.StartDate, in.EndDate
		if strings.TrimSpace(from) == "" {
			from = to
		}
		if strings.TrimSpace(to) == "" {
			to = from
		}
		r, _, err := inclusiveRange(from, to, d.loc)
		return r, err
	}

	now := d.now().In(d.loc)
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = "today"
	}
	if r, ok := namedPeriod(date, now); ok {
		return r, nil
	}
	day, err := parseDate(date, d.loc)
	if err != nil {
		return dateRange{}, failf("Unknown period %q; use today, tomorrow, this_week, next_week, a date YYYY-MM-DD or start_date/end_date", date)
	}
	return dateRange{day, day.AddDate(0, 0, 1)}, nil
}

func hasAssignee(j domain.Job, id string) bool {
	for _, a := range j.Assignees {
		if a == id {
			return true
		}
	}
	return false
}
