package tools

import (
	"context"
	"strings"

	"clamp-agent/internal/domain"
	"clamp-agent/internal/sequence"
)

const (
	invoicePrefix = "INV"
	statusUnpaid  = "unpaid"
)

type searchInvoicesInput struct {
	Query    string `json:"query"`
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}

type getInvoiceInput struct {
	InvoiceID string `json:"invoice_id"`
}

type createInvoiceInput struct {
	ClientID  string          `json:"client_id"`
	JobID     string          `json:"job_id"`
	QuoteID   string          `json:"quote_id"`
	LineItems []lineItemInput `json:"line_items"`
	DueDate   string          `json:"due_date"`
	Notes     string          `json:"notes"`
}

func (d *Dispatcher) searchInvoices(ctx context.Context, tenantID string, in searchInvoicesInput) ([]domain.Invoice, error) {
	all, err := d.store.ListInvoices(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	status := strings.TrimSpace(in.Status)
	out := make([]domain.Invoice, 0, documentSearchLimit)
	for _, inv := range all {
		if !invoiceStatusMatches(inv.Status, status) {
			continue
		}
		if in.ClientID != "" && inv.ClientID != in.ClientID {
			continue
		}
		if !containsFold(in.Query, inv.Number, inv.ClientName, inv.Notes) {
			continue
		}
		out = append(out, inv)
		if len(out) == documentSearchLimit {
			break
		}
	}
	return out, nil
}

func invoiceStatusMatches(have, want string) bool {
	switch {
	case want == "":
		return true
	case strings.EqualFold(want, statusUnpaid):
		return have != domain.StatusPaid && have != domain.StatusVoid
	default:
		return strings.EqualFold(have, want)
	}
}

func (d *Dispatcher) getInvoice(ctx context.Context, tenantID string, in getInvoiceInput) (domain.Invoice, error) {
	inv, err := d.store.GetInvoice(ctx, tenantID, in.InvoiceID)
	if err != nil {
		return domain.Invoice{}, notFound("Invoice", err)
	}
	return inv, nil
}

// createInvoice bills either explicit line items or an existing quote. With
// a quote, its client, job and line items fill whatever the input leaves out.
func (d *Dispatcher) createInvoice(ctx context.Context, tenantID string, in createInvoiceInput) (domain.Invoice, error) {
	clientID := strings.TrimSpace(in.ClientID)
	jobID := strings.TrimSpace(in.JobID)
	quoteID := strings.TrimSpace(in.QuoteID)
	if clientID == "" && quoteID == "" {
		return domain.Invoice{}, failf("client_id or quote_id is required")
	}

	var items []domain.LineItem
	if quoteID != "" {
		q, err := d.store.GetQuote(ctx, tenantID, quoteID)
		if err != nil {
			return domain.Invoice{}, notFound("Quote", err)
		}
		if clientID == "" {
			clientID = q.ClientID
		} else if clientID != q.ClientID {
			return domain.Invoice{}, failf("Quote %s belongs to a different client", q.Number)
		}
		if jobID == "" {
			jobID = q.JobID
		}
		items = append(items, q.LineItems...)
	}
	if len(in.LineItems) > 0 {
		var err error
		if items, err = toLineItems(in.LineItems); err != nil {
			return domain.Invoice{}, err
		}
	}
	if len(items) == 0 {
		return domain.Invoice{}, failf("At least one line item is required")
	}

	clientName, err := d.resolveClient(ctx, tenantID, clientID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if jobID, err = d.resolveJob(ctx, tenantID, jobID); err != nil {
		return domain.Invoice{}, err
	}
	if strings.TrimSpace(in.DueDate) != "" {
		if _, err := parseDate(in.DueDate, d.loc); err != nil {
			return domain.Invoice{}, err
		}
	}

	number, err := d.numbers.Next(ctx, tenantID, sequence.InvoiceNumber, invoicePrefix)
	if err != nil {
		return domain.Invoice{}, err
	}
	now := d.now().UTC()
	inv := domain.Invoice{
		ID:         d.newID(),
		Number:     number,
		ClientID:   clientID,
		ClientName: clientName,
		JobID:      jobID,
		QuoteID:    quoteID,
		Status:     domain.StatusDraft,
		LineItems:  items,
		Total:      total(items),
		DueDate:    strings.TrimSpace(in.DueDate),
		Notes:      strings.TrimSpace(in.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := d.store.PutInvoice(ctx, tenantID, inv); err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}
