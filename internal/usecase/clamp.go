package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"clamp-agent/internal/agent"
	"clamp-agent/internal/domain"
)

const (
	DefaultMaxMessages      = 50
	DefaultMaxMessageLength = 4000
)

// Runner is the agent loop. *agent.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, history []domain.Turn, mode agent.Mode, tenantID string) (agent.Result, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ClampService validates a conversation request, runs the agent loop and
// shapes its outcome for the caller.
type ClampService struct {
	runner        Runner
	logger        *slog.Logger
	maxMessages   int
	maxMessageLen int
}

type ClampInput struct {
	TenantID      string
	Mode          string
	Messages      []domain.ChatMessage
	CorrelationID string
}

// ClampOutput is the response body. SearchResults is nil in chat mode.
type ClampOutput struct {
	Mode          agent.Mode
	Reply         string
	ActionCards   []agent.ActionCard
	QuickReplies  []string
	SearchResults []agent.SearchHit
}

func NewClampService(r Runner, logger *slog.Logger, maxMessages, maxMessageLen int) (*ClampService, error) {
	if r == nil {
		return nil, errors.New("usecase: runner must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if maxMessageLen <= 0 {
		maxMessageLen = DefaultMaxMessageLength
	}
	return &ClampService{
		runner:        r,
		logger:        logger,
		maxMessages:   maxMessages,
		maxMessageLen: maxMessageLen,
	}, nil
}

func (s *ClampService) Chat(ctx context.Context, in ClampInput) (ClampOutput, error) {
	log := s.logger.With("correlation_id", in.CorrelationID, "tenant", in.TenantID)

	tenantID := strings.TrimSpace(in.TenantID)
	if tenantID == "" {
		return ClampOutput{}, newError(ErrorUnauthenticated, "missing_tenant", nil)
	}
	mode, err := agent.ParseMode(in.Mode)
	if err != nil {
		return ClampOutput{}, newError(ErrorInvalidInput, "invalid_mode", err)
	}
	history, err := s.validate(in.Messages)
	if err != nil {
		log.Info("request rejected", "mode", mode, "messages", len(in.Messages), "err", err)
		return ClampOutput{}, err
	}
	log.Info("request accepted", "mode", mode, "messages", len(history))

	result, err := s.runner.Run(ctx, history, mode, tenantID)
	if err != nil {
		mapped := runError(err)
		log.Error("agent run failed", "code", mapped.Code, "reason", mapped.Reason, "err", err)
		return ClampOutput{}, mapped
	}

	assembled := agent.Assemble(result.FinalBlocks, result.ToolResults, mode)
	log.Info("request completed",
		"mode", mode, "iterations", result.Iterations, "tool_calls", len(result.ToolResults),
		"cap_reached", result.CapReached)

	return ClampOutput{
		Mode:          mode,
		Reply:         assembled.Reply,
		ActionCards:   assembled.ActionCards,
		QuickReplies:  []string{},
		SearchResults: assembled.SearchResults,
	}, nil
}

// validate checks the wire messages and converts them to turns. Role
// alternation is left to the completion API.
func (s *ClampService) validate(messages []domain.ChatMessage) ([]domain.Turn, error) {
	if len(messages) == 0 {
		return nil, newError(ErrorInvalidInput, "empty_messages", nil)
	}
	if len(messages) > s.maxMessages {
		return nil, newError(ErrorLimitReached, "message_limit", nil)
	}
	history := make([]domain.Turn, 0, len(messages))
	for _, m := range messages {
		role := domain.Role(strings.ToLower(strings.TrimSpace(m.Role)))
		if role != domain.RoleUser && role != domain.RoleAssistant {
			return nil, newError(ErrorInvalidInput, "invalid_role", nil)
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			return nil, newError(ErrorInvalidInput, "empty_content", nil)
		}
		if utf8.RuneCountInString(content) > s.maxMessageLen {
			return nil, newError(ErrorInvalidInput, "message_too_long", nil)
		}
		history = append(history, domain.TextTurn(role, content))
	}
	return history, nil
}

func runError(err error) *Error {
	switch {
	case errors.Is(err, domain.ErrProviderNotConfigured):
		return newError(ErrorUnavailable, "provider_not_configured", err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(ErrorUpstream, "provider_timeout", err)
	}
	if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
		return newError(ErrorRateLimited, "provider_rate_limited", err)
	}
	return newError(ErrorUpstream, "provider_error", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
