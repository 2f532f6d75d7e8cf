package domain

import "time"

// Job statuses.
const (
	JobUnscheduled = "Unscheduled"
	JobScheduled   = "Scheduled"
	JobInProgress  = "In Progress"
	JobCompleted   = "Completed"
	JobCancelled   = "Cancelled"
)

// Quote and invoice statuses.
const (
	StatusDraft    = "Draft"
	StatusSent     = "Sent"
	StatusAccepted = "Accepted"
	StatusDeclined = "Declined"
	StatusPaid     = "Paid"
	StatusOverdue  = "Overdue"
	StatusVoid     = "Void"
)

// Client is a customer of the tenant business.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Job is a unit of scheduled field work. Start and End are nil while the job
// is unscheduled.
type Job struct {
	ID         string     `json:"id"`
	Number     string     `json:"jobNumber"`
	Title      string     `json:"title"`
	ClientID   string     `json:"clientId"`
	ClientName string     `json:"clientName,omitempty"`
	Status     string     `json:"status"`
	Notes      string     `json:"notes,omitempty"`
	Start      *time.Time `json:"start"`
	End        *time.Time `json:"end"`
	Assignees  []string   `json:"assignees"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// JobPatch carries the mutable subset of a Job. Nil fields are left alone;
// ClearStart/ClearEnd unschedule.
type JobPatch struct {
	Status     *string
	Title      *string
	Notes      *string
	Start      *time.Time
	End        *time.Time
	ClearStart bool
	ClearEnd   bool
	Assignees  *[]string
	UpdatedAt  time.Time
}

// Empty reports whether the patch changes nothing besides the timestamp.
func (p JobPatch) Empty() bool {
	return p.Status == nil && p.Title == nil && p.Notes == nil &&
		p.Start == nil && p.End == nil && !p.ClearStart && !p.ClearEnd &&
		p.Assignees == nil
}

// LineItem is one priced row on a quote or invoice.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// Quote is a priced proposal sent to a client.
type Quote struct {
	ID         string     `json:"id"`
	Number     string     `json:"quoteNumber"`
	Title      string     `json:"title,omitempty"`
	ClientID   string     `json:"clientId"`
	ClientName string     `json:"clientName,omitempty"`
	JobID      string     `json:"jobId,omitempty"`
	Status     string     `json:"status"`
	LineItems  []LineItem `json:"lineItems"`
	Total      float64    `json:"total"`
	Notes      string     `json:"notes,omitempty"`
	ValidUntil string     `json:"validUntil,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Invoice is a bill issued to a client.
type Invoice struct {
	ID         string     `json:"id"`
	Number     string     `json:"invoiceNumber"`
	ClientID   string     `json:"clientId"`
	ClientName string     `json:"clientName,omitempty"`
	JobID      string     `json:"jobId,omitempty"`
	QuoteID    string     `json:"quoteId,omitempty"`
	Status     string     `json:"status"`
	LineItems  []LineItem `json:"lineItems"`
	Total      float64    `json:"total"`
	DueDate    string     `json:"dueDate,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// TeamMember is a staff account that can be assigned to jobs.
type TeamMember struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}
