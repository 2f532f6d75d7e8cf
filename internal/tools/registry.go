package tools

import "clamp-agent/internal/domain"

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var lineItemsSchema = map[string]any{
	"type":        "array",
	"description": "Priced rows. Totals are computed from these.",
	"items": object(map[string]any{
		"description": str("What is being charged for"),
		"quantity":    map[string]any{"type": "number", "minimum": 0},
		"unit_price":  map[string]any{"type": "number", "minimum": 0},
	}, "description", "quantity", "unit_price"),
}

// definitions is the static catalogue, in the order it is offered to the
// model.
var definitions = []domain.ToolDefinition{
	{
		Name:        domain.ToolSearchClients,
		Description: "Search clients by name, email, phone or address. Returns up to 10 matches.",
		InputSchema: object(map[string]any{
			"query": str("Free text to match, case-insensitive"),
		}),
		Capability: domain.CapabilitySearch,
	},
	{
		Name:        domain.ToolGetClient,
		Description: "Get one client by id.",
		InputSchema: object(map[string]any{"client_id": str("Client id")}, "client_id"),
		Capability:  domain.CapabilitySearch,
	},
	{
		Name:        domain.ToolSearchJobs,
		Description: "Search jobs by text, status, client or scheduled date range. Returns up to 15 matches.",
		InputSchema: object(map[string]any{
			"query":     str("Free text matched against title, job number, client name and notes"),
			"status":    str("Unscheduled, Scheduled, In Progress, Completed or Cancelled"),
			"client_id": str("Only jobs for this client"),
			"date_from": str("Earliest scheduled date, YYYY-MM-DD"),
			"date_to":   str("Latest scheduled date, YYYY-MM-DD, inclusive"),
		}),
		Capability: domain.CapabilitySearch,
	},
	{
		Name:        domain.ToolGetJob,
		Description: "Get one job by id.",
		InputSchema: object(map[string]any{"job_id": str("Job id")}, "job_id"),
		Capability:  domain.CapabilitySearch,
	},
	{
		Name:        domain.ToolCreateJob,
		Description: "Create a job. Without a start it is Unscheduled, with one it is Scheduled. A job number is assigned automatically.",
		InputSchema: object(map[string]any{
			"title":     str("Short job title"),
			"client_id": str("Client the job is for"),
			"notes":     str("Internal notes"),
			"start":     str("Start time, ISO 8601 (e.g. 2026-03-02T09:00)"),
			"end":       str("End time, ISO 8601"),
			"assignees": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Team member ids"},
		}, "title"),
		Capability: domain.CapabilityMutate,
	},
	{
		Name:        domain.ToolUpdateJob,
		Description: "Update a job. Only status, title, notes, start, end and assignees can change.",
		InputSchema: object(map[string]any{
			"job_id": str("Job id"),
			"updates": map[string]any{
				"type":        "object",
				"description": "Fields to change: status, title, notes, start, end (null to unschedule), assignees",
			},
		}, "job_id", "updates"),
		Capability: domain.CapabilityMutate,
	},
	{
		Name:        domain.ToolSearchQuotes,
		Description: "Search quotes by text, status or client. Returns up to 15 matches.",
		InputSchema: object(map[string]any{
			"query":     str("Free text matched against quote number, title and client name"),
			"status":    str("Draft, Sent, Accepted or Declined"),
			"client_id": str("Only quotes for this client"),
		}),
		Capability: domain.CapabilitySearch,
	},
	{
		Name:        domain.ToolGetQuote,
		Description: "Get one quote by id.",
		InputSchema: object(map[string]any{"quote_id": str("Quote id")}, "quote_id"),
		Capability:  domain.CapabilitySearch,
	},
	{
		Name:        domain.ToolCreateQuote,
		Description: "Create a draft quote for a client. A quote number is assigned automatically.",
		InputSchema: object(map[string]any{
			"client_id":   str("Client the quote is for"),
			"job_id":      str("Related job, if any"),
			"title":       str("Short description of the work"),
			"line_items":  lineItemsSchema,
			"notes":       str("Notes shown on the quote"),
			"valid_until": str("Expiry date, YYYY-MM-DD"),
		}, "client_id", "line_items"),
		Capability: domain.CapabilityMutate,
	},
	{
		Name:        domain.ToolSearchInvoices,
		Description: "Search invoices by text, status or client. Status \"unpaid\" matches anything not Paid or Void. Returns up to 15 matches.",
		InputSchema: object(map[string]any{
			"query":     str("Free text matched against invoice number and client name"),
			"status":    str("Draft, Sent, Paid, Overdue, Void or unpaid"),
			"client_id": str("Only invoices for this client"),
		}),
		Capability: domain.CapabilitySearch,
	},
	{
		Name:        domain.ToolGetInvoice,
		Description: "Get one invoice by id.",
		InputSchema: object(map[string]any{"invoice_id": str("Invoice id")}, "invoice_id"),
		Capability:  domain.CapabilitySearch,
	},
	{
		Name:        domain.ToolCreateInvoice,
		Description: "Create a draft invoice. Give a quote_id to bill an existing quote. An invoice number is assigned automatically.",
		InputSchema: object(map[string]any{
			"client_id":  str("Client to bill"),
			"job_id":     str("Related job, if any"),
			"quote_id":   str("Quote to bill; its line items are used when none are given"),
			"line_items": lineItemsSchema,
			"due_date":   str("Due date, YYYY-MM-DD"),
			"notes":      str("Notes shown on the invoice"),
		}),
		Capability: domain.CapabilityMutate,
	},
	{
		Name:        domain.ToolListTeamMembers,
		Description: "List the team members that can be assigned to jobs.",
		InputSchema: object(map[string]any{}),
		Capability:  domain.CapabilitySearch,
	},
	{
		Name:        domain.ToolGetSchedule,
		Description: "List scheduled jobs for a named period (today, tomorrow, yesterday, this_week, next_week, last_week, this_month), a single date, or an explicit range. Returns up to 20 jobs ordered by start.",
		InputSchema: object(map[string]any{
			"date":        str("Named period or a date YYYY-MM-DD"),
			"start_date":  str("Range start, YYYY-MM-DD"),
			"end_date":    str("Range end, YYYY-MM-DD, inclusive"),
			"assignee_id": str("Only jobs assigned to this team member"),
		}),
		Capability: domain.CapabilitySearch,
	},
	{
		Name:        domain.ToolNavigate,
		Description: "Ask the app to open a view, optionally focused on one record.",
		InputSchema: object(map[string]any{
			"view":        str("One of dashboard, clients, jobs, schedule, quotes, invoices, team, settings"),
			"entity_id":   str("Record to open"),
			"entity_type": str("client, job, quote or invoice"),
		}, "view"),
		Capability: domain.CapabilityNavigate,
	},
}

var byName = func() map[domain.ToolName]domain.ToolDefinition {
	m := make(map[domain.ToolName]domain.ToolDefinition, len(definitions))
	for _, d := range definitions {
		m[d.Name] = d
	}
	return m
}()

// Definitions returns the full catalogue.
func Definitions() []domain.ToolDefinition {
	out := make([]domain.ToolDefinition, len(definitions))
	copy(out, definitions)
	return out
}

// WithCapability returns the tools carrying any of caps, in catalogue order.
func WithCapability(caps ...domain.Capability) []domain.ToolDefinition {
	var out []domain.ToolDefinition
	for _, d := range definitions {
		for _, c := range caps {
			if d.Capability == c {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Lookup resolves a model-supplied name against the catalogue.
func Lookup(name string) (domain.ToolDefinition, bool) {
	d, ok := byName[domain.ToolName(name)]
	return d, ok
}
