package tools

import (
	"context"
	"strings"

	"clamp-agent/internal/domain"
)

var (
	views       = []string{"dashboard", "clients", "jobs", "schedule", "quotes", "invoices", "team", "settings"}
	entityTypes = []string{"client", "job", "quote", "invoice"}
)

type navigateInput struct {
	View       string `json:"view"`
	EntityID   string `json:"entity_id"`
	EntityType string `json:"entity_type"`
}

// navigate performs no data access. It echoes a normalized target the client
// app turns into a navigation card.
func (d *Dispatcher) navigate(_ context.Context, _ string, in navigateInput) (domain.Navigation, error) {
	view := strings.ToLower(strings.TrimSpace(in.View))
	if !oneOf(view, views) {
		return domain.Navigation{}, failf("Unknown view %q; use one of %s", in.View, strings.Join(views, ", "))
	}
	nav := domain.Navigation{View: view, EntityID: strings.TrimSpace(in.EntityID)}
	if t := strings.ToLower(strings.TrimSpace(in.EntityType)); t != "" {
		if !oneOf(t, entityTypes) {
			return domain.Navigation{}, failf("Unknown entity_type %q; use one of %s", in.EntityType, strings.Join(entityTypes, ", "))
		}
		nav.EntityType = t
	}
	if nav.EntityType != "" && nav.EntityID == "" {
		return domain.Navigation{}, failf("entity_id is required with entity_type")
	}
	return nav, nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
