package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"clamp-agent/internal/domain"
	"clamp-agent/internal/integrations/paramstore"
)

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 1024
	defaultTimeout   = 20 * time.Second
)

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("anthropic: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client completes tool-use conversations against the Messages API.
type Client struct {
	getter      Getter
	paramPrefix string
	model       string
	maxTokens   int64
	baseURL     string
	httpClient  *http.Client

	mu  sync.Mutex
	api *sdk.Client
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = int64(n)
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client whose API token is read from
// <paramPrefix>/anthropic-token on first use.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("anthropic: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("anthropic: parameter prefix must not be empty")
	}
	c := &Client{
		getter:      ps,
		paramPrefix: paramPrefix,
		model:       defaultModel,
		maxTokens:   defaultMaxTokens,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) tokenParameterName() string {
	return c.paramPrefix + "/anthropic-token"
}

// resolveAPI builds the SDK client on the first successful token fetch and
// reuses it afterwards. Failures are not cached, so a token added later is
// picked up without a restart.
func (c *Client) resolveAPI(ctx context.Context) (*sdk.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}

	token, err := fetchAPIKeyFromParamStore(ctx, c.getter, c.tokenParameterName())
	if err != nil {
		return nil, err
	}
	opts := []option.RequestOption{
		option.WithAPIKey(token),
		// Retries belong to the caller; a failed completion fails the turn.
		option.WithMaxRetries(0),
	}
	if c.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(c.httpClient))
	}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	api := sdk.NewClient(opts...)
	c.api = &api
	return c.api, nil
}

// Complete sends one request and maps the reply back to domain blocks.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return domain.CompletionResponse{}, errors.New("anthropic: no messages to send")
	}
	api, err := c.resolveAPI(ctx)
	if err != nil {
		return domain.CompletionResponse{}, err
	}

	messages, err := toMessageParams(req.Messages)
	if err != nil {
		return domain.CompletionResponse{}, err
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  messages,
		Tools:     toToolParams(req.Tools),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := api.Messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return domain.CompletionResponse{}, statusError(apiErr)
		}
		return domain.CompletionResponse{}, fmt.Errorf("anthropic: request failed: %w", err)
	}
	return fromMessage(msg), nil
}

func statusError(apiErr *sdk.Error) *HTTPStatusError {
	out := &HTTPStatusError{StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
	if apiErr.Request != nil && apiErr.Request.URL != nil {
		out.URL = apiErr.Request.URL.String()
	}
	return out
}

func toMessageParams(turns []domain.Turn) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(turns))
	for i, turn := range turns {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(turn.Blocks))
		for _, b := range turn.Blocks {
			switch b.Type {
			case domain.BlockText:
				if b.Text != "" {
					blocks = append(blocks, sdk.NewTextBlock(b.Text))
				}
			case domain.BlockToolUse:
				blocks = append(blocks, sdk.NewToolUseBlock(b.ID, toolInput(b.Input), b.Name))
			case domain.BlockToolResult:
				blocks = append(blocks, sdk.NewToolResultBlock(b.ToolUseID, b.Content, b.IsError))
			default:
				return nil, fmt.Errorf("anthropic: turn %d: unsupported block type %q", i, b.Type)
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch turn.Role {
		case domain.RoleUser:
			out = append(out, sdk.NewUserMessage(blocks...))
		case domain.RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, fmt.Errorf("anthropic: turn %d: unsupported role %q", i, turn.Role)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("anthropic: no messages to send")
	}
	return out, nil
}

// toolInput keeps the model's raw input; the API rejects a null input.
func toolInput(raw json.RawMessage) any {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return map[string]any{}
	}
	return raw
}

func toToolParams(defs []domain.ToolDefinition) []sdk.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		tool := sdk.ToolParam{
			Name:        string(d.Name),
			Description: sdk.String(d.Description),
			InputSchema: sdk.ToolInputSchemaParam{
				Properties: d.Properties(),
				Required:   d.Required(),
			},
		}
		out = append(out, sdk.ToolUnionParam{OfTool: &tool})
	}
	return out
}

func fromMessage(msg *sdk.Message) domain.CompletionResponse {
	resp := domain.CompletionResponse{StopReason: domain.StopReason(msg.StopReason)}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Blocks = append(resp.Blocks, domain.ContentBlock{Type: domain.BlockText, Text: block.Text})
		case "tool_use":
			input := block.Input
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			resp.Blocks = append(resp.Blocks, domain.ContentBlock{
				Type:  domain.BlockToolUse,
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}
	return resp
}

// fetchAPIKeyFromParamStore reads the JSON token payload. A missing parameter
// or an empty token means the provider is not configured.
func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("anthropic: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("anthropic: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		if errors.Is(err, paramstore.ErrParameterNotFound) {
			return "", fmt.Errorf("anthropic: %w: %v", domain.ErrProviderNotConfigured, err)
		}
		return "", fmt.Errorf("anthropic: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("anthropic: unmarshal paramstore token value as JSON: %w", err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", fmt.Errorf("anthropic: API token is empty: %w", domain.ErrProviderNotConfigured)
	}
	return strings.TrimSpace(tp.Token), nil
}
