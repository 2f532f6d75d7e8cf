package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"clamp-agent/internal/domain"
	"clamp-agent/internal/tools"
)

const (
	DefaultIterationCap = 8
	defaultParallelism  = 4

	// Placeholder is the reply used when the model produced no text.
	Placeholder = "Done."
)

var ErrEmptyHistory = errors.New("agent: history must not be empty")

// Completer is the completion API as the loop sees it.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error)
}

// ToolExecutor runs one tool invocation. It reports failures in the result,
// never as an error.
type ToolExecutor interface {
	Execute(ctx context.Context, tenantID string, inv domain.ToolInvocation) domain.ToolResult
}

// Orchestrator drives the tool-use loop. It keeps no state between runs and
// is safe for concurrent use.
type Orchestrator struct {
	completer    Completer
	executor     ToolExecutor
	logger       *slog.Logger
	iterationCap int
	parallelism  int
	loc          *time.Location
	now          func() time.Time
}

type Option func(*Orchestrator)

// WithIterationCap bounds the number of tool rounds. Values below 1 keep the
// default.
func WithIterationCap(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.iterationCap = n
		}
	}
}

// WithParallelism bounds concurrent tool executions within one round.
func WithParallelism(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(o *Orchestrator) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(c Completer, e ToolExecutor, opts ...Option) (*Orchestrator, error) {
	if c == nil {
		return nil, errors.New("agent: completer must not be nil")
	}
	if e == nil {
		return nil, errors.New("agent: tool executor must not be nil")
	}
	o := &Orchestrator{
		completer:    c,
		executor:     e,
		logger:       slog.Default(),
		iterationCap: DefaultIterationCap,
		parallelism:  defaultParallelism,
		loc:          time.UTC,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Result is the outcome of one run. ToolResults spans every round, in round
// order then invocation order.
type Result struct {
	Reply       string
	FinalBlocks []domain.ContentBlock
	ToolResults []domain.ToolResult
	Iterations  int
	CapReached  bool
}

// Run loops until the model stops asking for tools or the iteration cap is
// reached. Only completion failures are returned as errors.
func (o *Orchestrator) Run(ctx context.Context, history []domain.Turn, mode Mode, tenantID string) (Result, error) {
	if len(history) == 0 {
		return Result{}, ErrEmptyHistory
	}
	req := domain.CompletionRequest{
		System:   SystemPrompt(mode, o.now(), o.loc),
		Tools:    ActiveTools(mode),
		Messages: append(make([]domain.Turn, 0, len(history)+2*o.iterationCap), history...),
	}

	var out Result
	resp, err := o.complete(ctx, req, 0)
	if err != nil {
		return Result{}, err
	}
	for resp.StopReason == domain.StopToolUse && out.Iterations < o.iterationCap {
		invocations := toolInvocations(resp.Blocks)
		if len(invocations) == 0 {
			break
		}
		results := o.executeAll(ctx, tenantID, mode, invocations)
		out.ToolResults = append(out.ToolResults, results...)
		req.Messages = append(req.Messages,
			domain.Turn{Role: domain.RoleAssistant, Blocks: resp.Blocks},
			toolResultTurn(results),
		)
		out.Iterations++

		if resp, err = o.complete(ctx, req, out.Iterations); err != nil {
			return Result{}, err
		}
	}

	if resp.StopReason == domain.StopToolUse && out.Iterations >= o.iterationCap {
		out.CapReached = true
		o.logger.Warn("tool iteration cap reached", "tenant", tenantID, "cap", o.iterationCap)
	}
	out.FinalBlocks = resp.Blocks
	out.Reply = ReplyText(resp.Blocks)
	return out, nil
}

func (o *Orchestrator) complete(ctx context.Context, req domain.CompletionRequest, iteration int) (domain.CompletionResponse, error) {
	resp, err := o.completer.Complete(ctx, req)
	if err != nil {
		o.logger.Error("completion failed", "iteration", iteration, "err", err)
		return domain.CompletionResponse{}, fmt.Errorf("agent: complete: %w", err)
	}
	o.logger.Info("completion received",
		"iteration", iteration, "stop_reason", resp.StopReason, "blocks", len(resp.Blocks))
	return resp, nil
}

// executeAll runs one round of invocations concurrently and returns results
// in invocation order.
func (o *Orchestrator) executeAll(ctx context.Context, tenantID string, mode Mode, invocations []domain.ToolInvocation) []domain.ToolResult {
	results := make([]domain.ToolResult, len(invocations))
	var g errgroup.Group
	g.SetLimit(o.parallelism)
	for i, inv := range invocations {
		g.Go(func() error {
			results[i] = o.executeOne(ctx, tenantID, mode, inv)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) executeOne(ctx context.Context, tenantID string, mode Mode, inv domain.ToolInvocation) (res domain.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("tool panicked", "tool", inv.Name, "invocation_id", inv.ID, "panic", r)
			res = domain.NewErrorResult(inv.ID, inv.Name, fmt.Sprintf("%s failed unexpectedly", inv.Name))
		}
	}()
	if _, known := tools.Lookup(inv.Name); known && !toolAllowed(mode, inv.Name) {
		return domain.NewErrorResult(inv.ID, inv.Name, fmt.Sprintf("Tool %s is not available in %s mode", inv.Name, mode))
	}
	res = o.executor.Execute(ctx, tenantID, inv)
	res.InvocationID = inv.ID
	res.ToolName = inv.Name
	return res
}

func toolInvocations(blocks []domain.ContentBlock) []domain.ToolInvocation {
	var out []domain.ToolInvocation
	for _, b := range blocks {
		if b.Type == domain.BlockToolUse {
			out = append(out, domain.ToolInvocation{ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}
	return out
}

// toolResultTurn is the synthetic user turn answering every invocation of a
// round.
func toolResultTurn(results []domain.ToolResult) domain.Turn {
	blocks := make([]domain.ContentBlock, 0, len(results))
	for _, r := range results {
		content, isError := encodeResult(r)
		blocks = append(blocks, domain.ContentBlock{
			Type:      domain.BlockToolResult,
			ToolUseID: r.InvocationID,
			Content:   content,
			IsError:   isError,
		})
	}
	return domain.Turn{Role: domain.RoleUser, Blocks: blocks}
}

func encodeResult(r domain.ToolResult) (string, bool) {
	raw, err := json.Marshal(r.Result)
	if err != nil {
		raw, _ = json.Marshal(domain.ErrorResult{Error: "Result could not be encoded"})
		return string(raw), true
	}
	return string(raw), r.IsError
}

// ReplyText joins the text blocks of a response. It never returns an empty
// string.
func ReplyText(blocks []domain.ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type != domain.BlockText {
			continue
		}
		if t := strings.TrimSpace(b.Text); t != "" {
			parts = append(parts, t)
		}
	}
	reply := strings.TrimSpace(strings.Join(parts, "\n"))
	if reply == "" {
		return Placeholder
	}
	return reply
}
