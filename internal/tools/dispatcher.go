package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"clamp-agent/internal/domain"
)

const (
	clientSearchLimit   = 10
	documentSearchLimit = 15
	scheduleLimit       = 20
)

// toolError is an executor failure whose message is safe to show the model.
type toolError struct {
	msg string
}

func (e *toolError) Error() string { return e.msg }

func failf(format string, args ...any) error {
	return &toolError{msg: fmt.Sprintf(format, args...)}
}

// notFound maps a store miss onto "<Entity> not found".
func notFound(entity string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return failf("%s not found", entity)
	}
	return err
}

// Dispatcher resolves tool invocations to executors and normalizes their
// outcome. It never returns an error: failures become error results.
type Dispatcher struct {
	store   Store
	numbers NumberIssuer
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
	newID   func() string
}

type Option func(*Dispatcher)

// WithLocation sets the zone calendar dates are resolved in.
func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) {
		if loc != nil {
			d.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(d *Dispatcher) {
		if newID != nil {
			d.newID = newID
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher wires executors to their data store and number issuer.
func NewDispatcher(store Store, numbers NumberIssuer, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("tools: store must not be nil")
	}
	if numbers == nil {
		return nil, errors.New("tools: number issuer must not be nil")
	}
	d := &Dispatcher{
		store:   store,
		numbers: numbers,
		logger:  slog.Default(),
		loc:     time.UTC,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Execute runs one invocation for tenantID.
func (d *Dispatcher) Execute(ctx context.Context, tenantID string, inv domain.ToolInvocation) domain.ToolResult {
	started := time.Now()
	result, err := d.execute(ctx, tenantID, inv)
	elapsed := time.Since(started)

	if err != nil {
		var te *toolError
		msg := err.Error()
		if !errors.As(err, &te) {
			msg = fmt.Sprintf("%s failed: %v", inv.Name, err)
		}
		d.logger.Warn("tool execution failed",
			"tool", inv.Name, "tenant", tenantID, "duration_ms", elapsed.Milliseconds(), "err", err)
		return domain.NewErrorResult(inv.ID, inv.Name, msg)
	}
	d.logger.Info("tool executed", "tool", inv.Name, "tenant", tenantID, "duration_ms", elapsed.Milliseconds())
	return domain.ToolResult{InvocationID: inv.ID, ToolName: inv.Name, Result: result}
}

func (d *Dispatcher) execute(ctx context.Context, tenantID string, inv domain.ToolInvocation) (any, error) {
	def, ok := Lookup(inv.Name)
	if !ok {
		return nil, failf("Unknown tool: %s", inv.Name)
	}
	if strings.TrimSpace(tenantID) == "" {
		return nil, failf("No tenant for %s", inv.Name)
	}
	raw, err := validateInput(def, inv.Input)
	if err != nil {
		return nil, err
	}

	switch def.Name {
	case domain.ToolSearchClients:
		return run(ctx, tenantID, raw, d.searchClients)
	case domain.ToolGetClient:
		return run(ctx, tenantID, raw, d.getClient)
	case domain.ToolSearchJobs:
		return run(ctx, tenantID, raw, d.searchJobs)
	case domain.ToolGetJob:
		return run(ctx, tenantID, raw, d.getJob)
	case domain.ToolCreateJob:
		return run(ctx, tenantID, raw, d.createJob)
	case domain.ToolUpdateJob:
		return run(ctx, tenantID, raw, d.updateJob)
	case domain.ToolSearchQuotes:
		return run(ctx, tenantID, raw, d.searchQuotes)
	case domain.ToolGetQuote:
		return run(ctx, tenantID, raw, d.getQuote)
	case domain.ToolCreateQuote:
		return run(ctx, tenantID, raw, d.createQuote)
	case domain.ToolSearchInvoices:
		return run(ctx, tenantID, raw, d.searchInvoices)
	case domain.ToolGetInvoice:
		return run(ctx, tenantID, raw, d.getInvoice)
	case domain.ToolCreateInvoice:
		return run(ctx, tenantID, raw, d.createInvoice)
	case domain.ToolListTeamMembers:
		return run(ctx, tenantID, raw, d.listTeamMembers)
	case domain.ToolGetSchedule:
		return run(ctx, tenantID, raw, d.getSchedule)
	case domain.ToolNavigate:
		return run(ctx, tenantID, raw, d.navigate)
	default:
		return nil, failf("Unknown tool: %s", inv.Name)
	}
}

// run decodes raw into the executor's input type and calls it.
func run[T, R any](ctx context.Context, tenantID string, raw []byte, fn func(context.Context, string, T) (R, error)) (any, error) {
	var in T
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, failf("Invalid input: %v", err)
	}
	return fn(ctx, tenantID, in)
}

// validateInput checks the model-supplied input against the tool schema and
// returns the bytes to decode. Missing input is treated as {}.
func validateInput(def domain.ToolDefinition, input json.RawMessage) ([]byte, error) {
	raw := bytes.TrimSpace(input)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(def.InputSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, failf("Invalid input for %s: %v", def.Name, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, failf("Invalid input for %s: %s", def.Name, strings.Join(msgs, "; "))
	}
	return raw, nil
}

func containsFold(needle string, haystacks ...string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func limit[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
