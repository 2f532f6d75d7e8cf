package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clamp-agent/internal/domain"
	"clamp-agent/internal/integrations/paramstore"
)

// fakeGetter is a minimal paramstore.Getter stub for use within this package.
type fakeGetter struct {
	val   string
	err   error
	calls int
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.val, f.err
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, "/clamp")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")

	_, err = NewClient(&fakeGetter{}, " / ")
	require.Error(t, err)

	c, err := NewClient(&fakeGetter{}, "/clamp/", WithModel(" "), WithMaxTokens(-1))
	require.NoError(t, err)
	require.Equal(t, "/clamp/anthropic-token", c.tokenParameterName())
	require.Equal(t, defaultModel, c.model)
	require.EqualValues(t, defaultMaxTokens, c.maxTokens)
}

func TestFetchAPIKey(t *testing.T) {
	key, err := fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{val: `{"token":" sk-ant "}`}, "/clamp/anthropic-token")
	require.NoError(t, err)
	require.Equal(t, "sk-ant", key)

	_, err = fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{val: `{"other":"value"}`}, "/clamp/anthropic-token")
	require.ErrorIs(t, err, domain.ErrProviderNotConfigured)

	_, err = fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{val: `{"broken`}, "/clamp/anthropic-token")
	require.ErrorContains(t, err, "unmarshal")

	notFound := fmt.Errorf("%w: %q", paramstore.ErrParameterNotFound, "/clamp/anthropic-token")
	_, err = fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{err: notFound}, "/clamp/anthropic-token")
	require.ErrorIs(t, err, domain.ErrProviderNotConfigured)

	_, err = fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{err: errors.New("ssm unavailable")}, "/clamp/anthropic-token")
	require.ErrorContains(t, err, "ssm unavailable")
	require.NotErrorIs(t, err, domain.ErrProviderNotConfigured)

	_, err = fetchAPIKeyFromParamStore(context.Background(), nil, "/clamp/anthropic-token")
	require.ErrorContains(t, err, "nil")

	_, err = fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{}, " ")
	require.ErrorContains(t, err, "empty")
}

func TestResolveAPI_CachesOnlySuccess(t *testing.T) {
	g := &fakeGetter{val: `{}`}
	c, err := NewClient(g, "/clamp")
	require.NoError(t, err)

	_, err = c.resolveAPI(context.Background())
	require.ErrorIs(t, err, domain.ErrProviderNotConfigured)

	g.val = `{"token":"sk-ant"}`
	first, err := c.resolveAPI(context.Background())
	require.NoError(t, err)
	second, err := c.resolveAPI(context.Background())
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 2, g.calls)
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		&fakeGetter{val: `{"token":"sk-test"}`},
		"/clamp",
		WithBaseURL(srv.URL),
		WithModel("claude-test"),
		WithMaxTokens(256),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func sampleRequest() domain.CompletionRequest {
	return domain.CompletionRequest{
		System: "You are Clamp.",
		Tools: []domain.ToolDefinition{{
			Name:        domain.ToolGetJob,
			Description: "Get one job by id.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"job_id": map[string]any{"type": "string"}},
				"required":   []string{"job_id"},
			},
		}},
		Messages: []domain.Turn{
			domain.TextTurn(domain.RoleUser, "Show me job 7"),
			{Role: domain.RoleAssistant, Blocks: []domain.ContentBlock{
				{Type: domain.BlockText, Text: "Looking."},
				{Type: domain.BlockToolUse, ID: "toolu_1", Name: "get_job", Input: json.RawMessage(`{"job_id":"j7"}`)},
			}},
			{Role: domain.RoleUser, Blocks: []domain.ContentBlock{
				{Type: domain.BlockToolResult, ToolUseID: "toolu_1", Content: `{"error":"Job not found"}`, IsError: true},
			}},
		},
	}
}

func TestClient_Complete_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "sk-test", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "claude-test", body["model"])
		require.EqualValues(t, 256, body["max_tokens"])
		require.Len(t, body["messages"], 3)
		require.Len(t, body["tools"], 1)

		raw, err := json.Marshal(body)
		require.NoError(t, err)
		require.Contains(t, string(raw), `"tool_use_id":"toolu_1"`)
		require.Contains(t, string(raw), `"is_error":true`)
		require.Contains(t, string(raw), `"required":["job_id"]`)
		require.Contains(t, string(raw), `You are Clamp.`)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Let me search instead."},
				{"type": "tool_use", "id": "toolu_2", "name": "search_jobs", "input": {"query": "7"}}
			],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv).Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, domain.StopToolUse, resp.StopReason)
	require.Len(t, resp.Blocks, 2)
	require.Equal(t, "Let me search instead.", resp.Blocks[0].Text)
	require.Equal(t, domain.BlockToolUse, resp.Blocks[1].Type)
	require.Equal(t, "toolu_2", resp.Blocks[1].ID)
	require.Equal(t, "search_jobs", resp.Blocks[1].Name)
	require.JSONEq(t, `{"query":"7"}`, string(resp.Blocks[1].Input))
}

func TestClient_Complete_RateLimited(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Complete(context.Background(), sampleRequest())
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
	require.Equal(t, 1, calls, "no automatic retries")
}

func TestClient_Complete_ProviderNotConfigured(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: `{"token":""}`}, "/clamp")
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), sampleRequest())
	require.ErrorIs(t, err, domain.ErrProviderNotConfigured)
}

func TestClient_Complete_NoMessages(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: `{"token":"sk"}`}, "/clamp")
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), domain.CompletionRequest{})
	require.Error(t, err)
}

func TestToMessageParams_Rejects(t *testing.T) {
	_, err := toMessageParams([]domain.Turn{{Role: "system", Blocks: []domain.ContentBlock{{Type: domain.BlockText, Text: "x"}}}})
	require.ErrorContains(t, err, "unsupported role")

	_, err = toMessageParams([]domain.Turn{{Role: domain.RoleUser, Blocks: []domain.ContentBlock{{Type: "image"}}}})
	require.ErrorContains(t, err, "unsupported block type")

	_, err = toMessageParams([]domain.Turn{domain.TextTurn(domain.RoleUser, "")})
	require.ErrorContains(t, err, "no messages")
}

func TestToolInput(t *testing.T) {
	require.Equal(t, map[string]any{}, toolInput(nil))
	require.Equal(t, map[string]any{}, toolInput(json.RawMessage(`null`)))
	require.Equal(t, json.RawMessage(`{"a":1}`), toolInput(json.RawMessage(`{"a":1}`)))
}
