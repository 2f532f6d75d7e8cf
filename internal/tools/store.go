package tools

import (
	"context"

	"clamp-agent/internal/domain"
	"clamp-agent/internal/sequence"
)

// Store is the tenant data surface executors may touch. Every method takes
// the tenant id; implementations must scope all reads and writes by it.
type Store interface {
	ListClients(ctx context.Context, tenantID string) ([]domain.Client, error)
	GetClient(ctx context.Context, tenantID, id string) (domain.Client, error)

	ListJobs(ctx context.Context, tenantID string) ([]domain.Job, error)
	GetJob(ctx context.Context, tenantID, id string) (domain.Job, error)
	PutJob(ctx context.Context, tenantID string, job domain.Job) error
	UpdateJob(ctx context.Context, tenantID, id string, patch domain.JobPatch) (domain.Job, error)

	ListQuotes(ctx context.Context, tenantID string) ([]domain.Quote, error)
	GetQuote(ctx context.Context, tenantID, id string) (domain.Quote, error)
	PutQuote(ctx context.Context, tenantID string, q domain.Quote) error

	ListInvoices(ctx context.Context, tenantID string) ([]domain.Invoice, error)
	GetInvoice(ctx context.Context, tenantID, id string) (domain.Invoice, error)
	PutInvoice(ctx context.Context, tenantID string, inv domain.Invoice) error

	ListTeamMembers(ctx context.Context, tenantID string) ([]domain.TeamMember, error)
}

// NumberIssuer mints document numbers. *sequence.Generator satisfies it.
type NumberIssuer interface {
	Next(ctx context.Context, tenantID string, counter sequence.Counter, prefix string) (string, error)
}
