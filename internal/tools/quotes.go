package tools

import (
	"context"
	"math"
	"strings"

	"clamp-agent/internal/domain"
	"clamp-agent/internal/sequence"
)

const quotePrefix = "QUO"

type lineItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type searchQuotesInput struct {
	Query    string `json:"query"`
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}

type getQuoteInput struct {
	QuoteID string `json:"quote_id"`
}

type createQuoteInput struct {
	ClientID   string          `json:"client_id"`
	JobID      string          `json:"job_id"`
	Title      string          `json:"title"`
	LineItems  []lineItemInput `json:"line_items"`
	Notes      string          `json:"notes"`
	ValidUntil string          `json:"valid_until"`
}

func (d *Dispatcher) searchQuotes(ctx context.Context, tenantID string, in searchQuotesInput) ([]domain.Quote, error) {
	all, err := d.store.ListQuotes(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Quote, 0, documentSearchLimit)
	for _, q := range all {
		if in.Status != "" && !strings.EqualFold(q.Status, strings.TrimSpace(in.Status)) {
			continue
		}
		if in.ClientID != "" && q.ClientID != in.ClientID {
			continue
		}
		if !containsFold(in.Query, q.Number, q.Title, q.ClientName) {
			continue
		}
		out = append(out, q)
		if len(out) == documentSearchLimit {
			break
		}
	}
	return out, nil
}

func (d *Dispatcher) getQuote(ctx context.Context, tenantID string, in getQuoteInput) (domain.Quote, error) {
	q, err := d.store.GetQuote(ctx, tenantID, in.QuoteID)
	if err != nil {
		return domain.Quote{}, notFound("Quote", err)
	}
	return q, nil
}

func (d *Dispatcher) createQuote(ctx context.Context, tenantID string, in createQuoteInput) (domain.Quote, error) {
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		return domain.Quote{}, failf("client_id is required")
	}
	items, err := toLineItems(in.LineItems)
	if err != nil {
		return domain.Quote{}, err
	}
	clientName, err := d.resolveClient(ctx, tenantID, clientID)
	if err != nil {
		return domain.Quote{}, err
	}
	jobID, err := d.resolveJob(ctx, tenantID, in.JobID)
	if err != nil {
		return domain.Quote{}, err
	}
	if strings.TrimSpace(in.ValidUntil) != "" {
		if _, err := parseDate(in.ValidUntil, d.loc); err != nil {
			return domain.Quote{}, err
		}
	}

	number, err := d.numbers.Next(ctx, tenantID, sequence.QuoteNumber, quotePrefix)
	if err != nil {
		return domain.Quote{}, err
	}
	now := d.now().UTC()
	q := domain.Quote{
		ID:         d.newID(),
		Number:     number,
		Title:      strings.TrimSpace(in.Title),
		ClientID:   clientID,
		ClientName: clientName,
		JobID:      jobID,
		Status:     domain.StatusDraft,
		LineItems:  items,
		Total:      total(items),
		Notes:      strings.TrimSpace(in.Notes),
		ValidUntil: strings.TrimSpace(in.ValidUntil),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := d.store.PutQuote(ctx, tenantID, q); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

// resolveJob checks an optional job reference belongs to the tenant.
func (d *Dispatcher) resolveJob(ctx context.Context, tenantID, jobID string) (string, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return "", nil
	}
	if _, err := d.store.GetJob(ctx, tenantID, jobID); err != nil {
		return "", notFound("Job", err)
	}
	return jobID, nil
}

func toLineItems(in []lineItemInput) ([]domain.LineItem, error) {
	if len(in) == 0 {
		return nil, failf("At least one line item is required")
	}
	out := make([]domain.LineItem, 0, len(in))
	for i, li := range in {
		desc := strings.TrimSpace(li.Description)
		if desc == "" {
			return nil, failf("Line item %d needs a description", i+1)
		}
		if li.Quantity <= 0 {
			return nil, failf("Line item %d needs a positive quantity", i+1)
		}
		if li.UnitPrice < 0 {
			return nil, failf("Line item %d has a negative unit price", i+1)
		}
		out = append(out, domain.LineItem{Description: desc, Quantity: li.Quantity, UnitPrice: li.UnitPrice})
	}
	return out, nil
}

// total sums line items rounded to cents. Model-supplied totals are never
// trusted.
func total(items []domain.LineItem) float64 {
	var sum float64
	for _, li := range items {
		sum += li.Quantity * li.UnitPrice
	}
	return math.Round(sum*100) / 100
}
