package tools

import (
	"context"

	"clamp-agent/internal/domain"
)

type searchClientsInput struct {
	Query string `json:"query"`
}

type getClientInput struct {
	ClientID string `json:"client_id"`
}

func (d *Dispatcher) searchClients(ctx context.Context, tenantID string, in searchClientsInput) ([]domain.Client, error) {
	all, err := d.store.ListClients(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Client, 0, clientSearchLimit)
	for _, c := range all {
		if !containsFold(in.Query, c.Name, c.Email, c.Phone, c.Address) {
			continue
		}
		out = append(out, c)
		if len(out) == clientSearchLimit {
			break
		}
	}
	return out, nil
}

func (d *Dispatcher) getClient(ctx context.Context, tenantID string, in getClientInput) (domain.Client, error) {
	c, err := d.store.GetClient(ctx, tenantID, in.ClientID)
	if err != nil {
		return domain.Client{}, notFound("Client", err)
	}
	return c, nil
}

// resolveClient returns the display name for an optional client reference.
func (d *Dispatcher) resolveClient(ctx context.Context, tenantID, clientID string) (string, error) {
	if clientID == "" {
		return "", nil
	}
	c, err := d.store.GetClient(ctx, tenantID, clientID)
	if err != nil {
		return "", notFound("Client", err)
	}
	return c.Name, nil
}

type listTeamMembersInput struct{}

func (d *Dispatcher) listTeamMembers(ctx context.Context, tenantID string, _ listTeamMembersInput) ([]domain.TeamMember, error) {
	members, err := d.store.ListTeamMembers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []domain.TeamMember{}
	}
	return members, nil
}
