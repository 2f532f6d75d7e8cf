package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clamp-agent/internal/domain"
)

func scheduleIDs(t *testing.T, res domain.ToolResult) []string {
	t.Helper()
	require.False(t, res.IsError, "%#v", res.Result)
	var ids []string
	for _, j := range res.Result.([]domain.Job) {
		ids = append(ids, j.ID)
	}
	return ids
}

func TestGetSchedule_Periods(t *testing.T) {
	d := newTestDispatcher(t, seededStore(), &fakeNumbers{})

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"default is today", `{}`, []string{"j6", "j1"}},
		{"today", `{"date":"today"}`, []string{"j6", "j1"}},
		{"tomorrow", `{"date":"Tomorrow"}`, []string{"j2"}},
		{"this week", `{"date":"this week"}`, []string{"j6", "j1", "j2"}},
		{"next week", `{"date":"next_week"}`, []string{"j3"}},
		{"single date", `{"date":"2026-03-09"}`, []string{"j3"}},
		{"explicit range", `{"start_date":"2026-03-05","end_date":"2026-03-09"}`, []string{"j2", "j3"}},
		{"open-ended range", `{"start_date":"2026-03-09"}`, []string{"j3"}},
		{"by assignee", `{"date":"this_week","assignee_id":"m2"}`, []string{"j2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, scheduleIDs(t, invoke(t, d, tenantA, domain.ToolGetSchedule, tc.input)))
		})
	}
}

func TestGetSchedule_UnknownPeriod(t *testing.T) {
	d := newTestDispatcher(t, seededStore(), &fakeNumbers{})
	requireToolError(t, invoke(t, d, tenantA, domain.ToolGetSchedule, `{"date":"someday"}`), "Unknown period")
}

func TestGetSchedule_Cap(t *testing.T) {
	store := newMemStore()
	for i := 30; i > 0; i-- {
		start := time.Date(2026, 3, 4, 0, i, 0, 0, time.UTC)
		store.jobs[tenantA] = append(store.jobs[tenantA], domain.Job{ID: start.Format("15:04"), Status: domain.JobScheduled, Start: &start})
	}
	d := newTestDispatcher(t, store, &fakeNumbers{})

	ids := scheduleIDs(t, invoke(t, d, tenantA, domain.ToolGetSchedule, `{"date":"today"}`))
	require.Len(t, ids, scheduleLimit)
	require.Equal(t, "00:01", ids[0])
}

func TestGetSchedule_UsesTenantZone(t *testing.T) {
	loc := time.FixedZone("UTC+13", 13*3600)
	store := seededStore()
	d := newTestDispatcher(t, store, &fakeNumbers{})
	WithLocation(loc)(d)

	// 10:00 UTC Wednesday is 23:00 local; j2 at 08:00 UTC Thursday is 21:00 local Thursday.
	require.Equal(t, []string{"j2"}, scheduleIDs(t, invoke(t, d, tenantA, domain.ToolGetSchedule, `{"date":"tomorrow"}`)))
}

func TestNamedPeriod(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 15, 0, 0, 0, time.UTC)
	r, ok := namedPeriod("this_week", sunday)
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), r.From)
	require.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), r.To)

	r, ok = namedPeriod("this-month", sunday)
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), r.To)

	_, ok = namedPeriod("fortnight", sunday)
	require.False(t, ok)
}
