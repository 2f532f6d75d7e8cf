package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"clamp-agent/internal/agent"
	"clamp-agent/internal/domain"
	"clamp-agent/internal/usecase"
)

const (
	correlationHeader     = "X-Correlation-Id"
	defaultRequestTimeout = 25 * time.Second
)

type UseCase interface {
	Chat(ctx context.Context, in usecase.ClampInput) (usecase.ClampOutput, error)
}

type clampRequest struct {
	Mode     string               `json:"mode"`
	Messages []domain.ChatMessage `json:"messages"`
}

// clampResponse omits searchResults entirely in chat mode; in search mode it
// is always present, even when empty.
type clampResponse struct {
	Reply         string             `json:"reply"`
	ActionCards   []agent.ActionCard `json:"actionCards"`
	QuickReplies  []string           `json:"quickReplies"`
	SearchResults *[]agent.SearchHit `json:"searchResults,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler adapts API Gateway proxy events to the Clamp use case.
type Handler struct {
	uc      UseCase
	logger  *slog.Logger
	timeout time.Duration
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithTimeout bounds the whole request. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func NewHandler(uc UseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	h := &Handler{uc: uc, logger: slog.Default(), timeout: defaultRequestTimeout}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	tenantID := tenantFromAuthorizer(req.RequestContext.Authorizer)
	if tenantID == "" {
		h.logger.Warn("request without tenant", "correlation_id", correlationID)
		return h.errorResponse(correlationID, usecase.ErrorUnauthenticated), nil
	}

	body, err := requestBody(req)
	if err != nil {
		return h.errorResponse(correlationID, usecase.ErrorInvalidInput), nil
	}
	var in clampRequest
	if err := json.Unmarshal(body, &in); err != nil {
		h.logger.Info("invalid request body", "correlation_id", correlationID, "err", err)
		return h.errorResponse(correlationID, usecase.ErrorInvalidInput), nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	out, err := h.uc.Chat(ctx, usecase.ClampInput{
		TenantID:      tenantID,
		Mode:          in.Mode,
		Messages:      in.Messages,
		CorrelationID: correlationID,
	})
	if err != nil {
		var ucErr *usecase.Error
		if !errors.As(err, &ucErr) {
			h.logger.Error("unexpected use case error", "correlation_id", correlationID, "err", err)
			return h.errorResponse(correlationID, usecase.ErrorInternal), nil
		}
		return h.errorResponse(correlationID, ucErr.Code), nil
	}

	resp := clampResponse{
		Reply:        out.Reply,
		ActionCards:  out.ActionCards,
		QuickReplies: out.QuickReplies,
	}
	if resp.ActionCards == nil {
		resp.ActionCards = []agent.ActionCard{}
	}
	if resp.QuickReplies == nil {
		resp.QuickReplies = []string{}
	}
	if out.Mode == agent.ModeSearch {
		hits := out.SearchResults
		if hits == nil {
			hits = []agent.SearchHit{}
		}
		resp.SearchResults = &hits
	}
	return jsonResponse(http.StatusOK, correlationID, resp), nil
}

func (h *Handler) errorResponse(correlationID string, code usecase.ErrorCode) events.APIGatewayProxyResponse {
	return jsonResponse(statusFor(code), correlationID, errorResponse{Error: string(code), Message: code.Message()})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorUnauthenticated:
		return http.StatusUnauthorized
	case usecase.ErrorLimitReached, usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUnavailable:
		return http.StatusServiceUnavailable
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func jsonResponse(status int, correlationID string, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR","message":"Something went wrong. Please try again."}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

// tenantFromAuthorizer reads a Lambda authorizer's tenantId, falling back to
// the Cognito custom claim.
func tenantFromAuthorizer(authorizer map[string]interface{}) string {
	if v, ok := authorizer["tenantId"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	claims, ok := authorizer["claims"].(map[string]interface{})
	if !ok {
		return ""
	}
	v, _ := claims["custom:tenantId"].(string)
	return strings.TrimSpace(v)
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
