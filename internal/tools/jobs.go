package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"clamp-agent/internal/domain"
	"clamp-agent/internal/sequence"
)

const jobPrefix = "JOB"

var jobStatuses = []string{
	domain.JobUnscheduled,
	domain.JobScheduled,
	domain.JobInProgress,
	domain.JobCompleted,
	domain.JobCancelled,
}

// updatableJobFields is the whole write surface of update_job.
var updatableJobFields = []string{"status", "title", "notes", "start", "end", "assignees"}

type searchJobsInput struct {
	Query    string `json:"query"`
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

type getJobInput struct {
	JobID string `json:"job_id"`
}

type createJobInput struct {
	Title     string   `json:"title"`
	ClientID  string   `json:"client_id"`
	Notes     string   `json:"notes"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Assignees []string `json:"assignees"`
}

type updateJobInput struct {
	JobID   string                     `json:"job_id"`
	Updates map[string]json.RawMessage `json:"updates"`
}

func (d *Dispatcher) searchJobs(ctx context.Context, tenantID string, in searchJobsInput) ([]domain.Job, error) {
	window, bounded, err := inclusiveRange(in.DateFrom, in.DateTo, d.loc)
	if err != nil {
		return nil, err
	}
	all, err := d.store.ListJobs(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Job, 0, documentSearchLimit)
	for _, j := range all {
		if in.Status != "" && !strings.EqualFold(j.Status, strings.TrimSpace(in.Status)) {
			continue
		}
		if in.ClientID != "" && j.ClientID != in.ClientID {
			continue
		}
		if bounded && (j.Start == nil || !window.contains(*j.Start)) {
			continue
		}
		if !containsFold(in.Query, j.Title, j.Number, j.ClientName, j.Notes) {
			continue
		}
		out = append(out, j)
		if len(out) == documentSearchLimit {
			break
		}
	}
	return out, nil
}

func (d *Dispatcher) getJob(ctx context.Context, tenantID string, in getJobInput) (domain.Job, error) {
	j, err := d.store.GetJob(ctx, tenantID, in.JobID)
	if err != nil {
		return domain.Job{}, notFound("Job", err)
	}
	return j, nil
}

func (d *Dispatcher) createJob(ctx context.Context, tenantID string, in createJobInput) (domain.Job, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Job{}, failf("title is required")
	}
	clientID := strings.TrimSpace(in.ClientID)
	clientName, err := d.resolveClient(ctx, tenantID, clientID)
	if err != nil {
		return domain.Job{}, err
	}

	var start, end *time.Time
	if strings.TrimSpace(in.Start) != "" {
		t, err := parseDateTime(in.Start, d.loc)
		if err != nil {
			return domain.Job{}, err
		}
		start = &t
	}
	if strings.TrimSpace(in.End) != "" {
		if start == nil {
			return domain.Job{}, failf("end requires start")
		}
		t, err := parseDateTime(in.End, d.loc)
		if err != nil {
			return domain.Job{}, err
		}
		if t.Before(*start) {
			return domain.Job{}, failf("end is before start")
		}
		end = &t
	}

	status := domain.JobUnscheduled
	if start != nil {
		status = domain.JobScheduled
	}
	assignees := in.Assignees
	if assignees == nil {
		assignees = []string{}
	}

	number, err := d.numbers.Next(ctx, tenantID, sequence.JobNumber, jobPrefix)
	if err != nil {
		return domain.Job{}, err
	}
	now := d.now().UTC()
	job := domain.Job{
		ID:         d.newID(),
		Number:     number,
		Title:      title,
		ClientID:   clientID,
		ClientName: clientName,
		Status:     status,
		Notes:      strings.TrimSpace(in.Notes),
		Start:      start,
		End:        end,
		Assignees:  assignees,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := d.store.PutJob(ctx, tenantID, job); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

func (d *Dispatcher) updateJob(ctx context.Context, tenantID string, in updateJobInput) (domain.Job, error) {
	patch, dropped, err := buildJobPatch(in.Updates, d.loc)
	if err != nil {
		return domain.Job{}, err
	}
	if len(dropped) > 0 {
		d.logger.Debug("update_job dropped fields", "tenant", tenantID, "job", in.JobID, "fields", dropped)
	}
	if patch.Empty() {
		return domain.Job{}, failf("No updatable fields given; allowed: %s", strings.Join(updatableJobFields, ", "))
	}
	patch.UpdatedAt = d.now().UTC()

	job, err := d.store.UpdateJob(ctx, tenantID, in.JobID, patch)
	if err != nil {
		return domain.Job{}, notFound("Job", err)
	}
	return job, nil
}

// buildJobPatch keeps only allow-listed keys. Anything else is returned in
// dropped and never written.
func buildJobPatch(updates map[string]json.RawMessage, loc *time.Location) (domain.JobPatch, []string, error) {
	var patch domain.JobPatch
	var dropped []string

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := updates[key]
		switch key {
		case "status":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return patch, nil, failf("status must be a string")
			}
			status, ok := canonicalJobStatus(v)
			if !ok {
				return patch, nil, failf("Invalid status %q; use one of %s", v, strings.Join(jobStatuses, ", "))
			}
			patch.Status = &status
		case "title":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil || strings.TrimSpace(v) == "" {
				return patch, nil, failf("title must be a non-empty string")
			}
			v = strings.TrimSpace(v)
			patch.Title = &v
		case "notes":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return patch, nil, failf("notes must be a string")
			}
			patch.Notes = &v
		case "start", "end":
			t, clear, err := decodeOptionalTime(raw, loc)
			if err != nil {
				return patch, nil, err
			}
			if key == "start" {
				patch.Start, patch.ClearStart = t, clear
			} else {
				patch.End, patch.ClearEnd = t, clear
			}
		case "assignees":
			var v []string
			if err := json.Unmarshal(raw, &v); err != nil {
				return patch, nil, failf("assignees must be a list of team member ids")
			}
			if v == nil {
				v = []string{}
			}
			patch.Assignees = &v
		default:
			dropped = append(dropped, key)
		}
	}
	return patch, dropped, nil
}

func decodeOptionalTime(raw json.RawMessage, loc *time.Location) (*time.Time, bool, error) {
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, failf("start and end must be ISO 8601 strings or null")
	}
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, true, nil
	}
	t, err := parseDateTime(*v, loc)
	if err != nil {
		return nil, false, err
	}
	return &t, false, nil
}

func canonicalJobStatus(v string) (string, bool) {
	v = strings.ReplaceAll(strings.TrimSpace(v), "_", " ")
	for _, s := range jobStatuses {
		if strings.EqualFold(s, v) {
			return s, true
		}
	}
	return "", false
}
