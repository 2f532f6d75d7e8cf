package repository

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"clamp-agent/internal/domain"
)

func itemToClient(item map[string]types.AttributeValue) (domain.Client, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.Client{}, err
	}
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.Client{}, err
	}
	return domain.Client{
		ID:        id,
		Name:      name,
		Email:     optStr(item, "email"),
		Phone:     optStr(item, "phone"),
		Address:   optStr(item, "address"),
		CreatedAt: optTime(item, "createdAt"),
	}, nil
}

func jobItem(tenantID string, j domain.Job) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":         s(tenantPK(tenantID)),
		"SK":         s(skJob + j.ID),
		"id":         s(j.ID),
		"jobNumber":  s(j.Number),
		"title":      s(j.Title),
		"clientId":   s(j.ClientID),
		"clientName": s(j.ClientName),
		"status":     s(j.Status),
		"notes":      s(j.Notes),
		"assignees":  strList(j.Assignees),
		"createdAt":  s(formatTime(j.CreatedAt)),
		"updatedAt":  s(formatTime(j.UpdatedAt)),
	}
	if j.Start != nil {
		item["start"] = s(formatTime(*j.Start))
	}
	if j.End != nil {
		item["end"] = s(formatTime(*j.End))
	}
	return item
}

func itemToJob(item map[string]types.AttributeValue) (domain.Job, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.Job{}, err
	}
	title, err := strAttr(item, "title")
	if err != nil {
		return domain.Job{}, err
	}
	return domain.Job{
		ID:         id,
		Number:     optStr(item, "jobNumber"),
		Title:      title,
		ClientID:   optStr(item, "clientId"),
		ClientName: optStr(item, "clientName"),
		Status:     optStr(item, "status"),
		Notes:      optStr(item, "notes"),
		Start:      optTimePtr(item, "start"),
		End:        optTimePtr(item, "end"),
		Assignees:  optStrList(item, "assignees"),
		CreatedAt:  optTime(item, "createdAt"),
		UpdatedAt:  optTime(item, "updatedAt"),
	}, nil
}

func quoteItem(tenantID string, q domain.Quote) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":          s(tenantPK(tenantID)),
		"SK":          s(skQuote + q.ID),
		"id":          s(q.ID),
		"quoteNumber": s(q.Number),
		"title":       s(q.Title),
		"clientId":    s(q.ClientID),
		"clientName":  s(q.ClientName),
		"jobId":       s(q.JobID),
		"status":      s(q.Status),
		"lineItems":   lineItemsAttr(q.LineItems),
		"total":       n(q.Total),
		"notes":       s(q.Notes),
		"validUntil":  s(q.ValidUntil),
		"createdAt":   s(formatTime(q.CreatedAt)),
		"updatedAt":   s(formatTime(q.UpdatedAt)),
	}
}

func itemToQuote(item map[string]types.AttributeValue) (domain.Quote, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.Quote{}, err
	}
	total, err := floatAttr(item, "total")
	if err != nil {
		return domain.Quote{}, err
	}
	lines, err := itemLineItems(item, "lineItems")
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		ID:         id,
		Number:     optStr(item, "quoteNumber"),
		Title:      optStr(item, "title"),
		ClientID:   optStr(item, "clientId"),
		ClientName: optStr(item, "clientName"),
		JobID:      optStr(item, "jobId"),
		Status:     optStr(item, "status"),
		LineItems:  lines,
		Total:      total,
		Notes:      optStr(item, "notes"),
		ValidUntil: optStr(item, "validUntil"),
		CreatedAt:  optTime(item, "createdAt"),
		UpdatedAt:  optTime(item, "updatedAt"),
	}, nil
}

func invoiceItem(tenantID string, inv domain.Invoice) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":            s(tenantPK(tenantID)),
		"SK":            s(skInvoice + inv.ID),
		"id":            s(inv.ID),
		"invoiceNumber": s(inv.Number),
		"clientId":      s(inv.ClientID),
		"clientName":    s(inv.ClientName),
		"jobId":         s(inv.JobID),
		"quoteId":       s(inv.QuoteID),
		"status":        s(inv.Status),
		"lineItems":     lineItemsAttr(inv.LineItems),
		"total":         n(inv.Total),
		"dueDate":       s(inv.DueDate),
		"notes":         s(inv.Notes),
		"createdAt":     s(formatTime(inv.CreatedAt)),
		"updatedAt":     s(formatTime(inv.UpdatedAt)),
	}
}

func itemToInvoice(item map[string]types.AttributeValue) (domain.Invoice, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.Invoice{}, err
	}
	total, err := floatAttr(item, "total")
	if err != nil {
		return domain.Invoice{}, err
	}
	lines, err := itemLineItems(item, "lineItems")
	if err != nil {
		return domain.Invoice{}, err
	}
	return domain.Invoice{
		ID:         id,
		Number:     optStr(item, "invoiceNumber"),
		ClientID:   optStr(item, "clientId"),
		ClientName: optStr(item, "clientName"),
		JobID:      optStr(item, "jobId"),
		QuoteID:    optStr(item, "quoteId"),
		Status:     optStr(item, "status"),
		LineItems:  lines,
		Total:      total,
		DueDate:    optStr(item, "dueDate"),
		Notes:      optStr(item, "notes"),
		CreatedAt:  optTime(item, "createdAt"),
		UpdatedAt:  optTime(item, "updatedAt"),
	}, nil
}

func itemToMember(item map[string]types.AttributeValue) (domain.TeamMember, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.TeamMember{}, err
	}
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.TeamMember{}, err
	}
	return domain.TeamMember{
		ID:    id,
		Name:  name,
		Email: optStr(item, "email"),
		Role:  optStr(item, "role"),
	}, nil
}

func lineItemsAttr(lines []domain.LineItem) *types.AttributeValueMemberL {
	out := make([]types.AttributeValue, 0, len(lines))
	for _, l := range lines {
		out = append(out, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"description": s(l.Description),
			"quantity":    n(l.Quantity),
			"unitPrice":   n(l.UnitPrice),
		}})
	}
	return &types.AttributeValueMemberL{Value: out}
}

func itemLineItems(item map[string]types.AttributeValue, key string) ([]domain.LineItem, error) {
	v, ok := item[key]
	if !ok {
		return []domain.LineItem{}, nil
	}
	list, ok := v.(*types.AttributeValueMemberL)
	if !ok {
		return nil, fmt.Errorf("repository: attribute %q is not a list", key)
	}
	out := make([]domain.LineItem, 0, len(list.Value))
	for i, raw := range list.Value {
		m, ok := raw.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("repository: %s[%d] is not a map", key, i)
		}
		qty, err := floatAttr(m.Value, "quantity")
		if err != nil {
			return nil, err
		}
		price, err := floatAttr(m.Value, "unitPrice")
		if err != nil {
			return nil, err
		}
		out = append(out, domain.LineItem{
			Description: optStr(m.Value, "description"),
			Quantity:    qty,
			UnitPrice:   price,
		})
	}
	return out, nil
}

func s(v string) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: v}
}

func n(v float64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(v, 'f', -1, 64)}
}

func strList(vals []string) *types.AttributeValueMemberL {
	out := make([]types.AttributeValue, 0, len(vals))
	for _, v := range vals {
		out = append(out, s(v))
	}
	return &types.AttributeValueMemberL{Value: out}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	sv, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return sv.Value, nil
}

func optStr(item map[string]types.AttributeValue, key string) string {
	v, _ := strAttr(item, key)
	return v
}

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, nil
	}
	nv, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(nv.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func optTime(item map[string]types.AttributeValue, key string) time.Time {
	raw := optStr(item, key)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func optTimePtr(item map[string]types.AttributeValue, key string) *time.Time {
	t := optTime(item, key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func optStrList(item map[string]types.AttributeValue, key string) []string {
	out := []string{}
	list, ok := item[key].(*types.AttributeValueMemberL)
	if !ok {
		return out
	}
	for _, v := range list.Value {
		if sv, ok := v.(*types.AttributeValueMemberS); ok {
			out = append(out, sv.Value)
		}
	}
	return out
}
