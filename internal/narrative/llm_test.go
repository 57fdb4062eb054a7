package narrative

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	in := "Here you go:\n```json\n{\"a\":1}\n```\nthanks"
	assert.Equal(t, `{"a":1}`, stripCodeFences(in))
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(1))
	assert.Equal(t, 2*time.Second, backoffDelay(2))
}

func TestClassifyTransportError(t *testing.T) {
	assert.Equal(t, failureRateLimit, classifyTransportError(assertErr("status code: 429 too many requests")))
	assert.Equal(t, failureServer, classifyTransportError(assertErr("chat completions request failed: status code: 503")))
	assert.Equal(t, failureClient, classifyTransportError(assertErr("status code: 400 bad request")))
	assert.Equal(t, failureTimeout, classifyTransportError(context.DeadlineExceeded))
}

type fakeMessager struct {
	params anthropic.MessageNewParams
	text   string
}

func (f *fakeMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = params
	return &anthropic.Message{Content: []anthropic.ContentBlockUnion{{Type: "text", Text: f.text}}}, nil
}

func TestAnthropicCallerSendsContextBlocks(t *testing.T) {
	fake := &fakeMessager{text: `{"title":"T"}`}
	orig := newAnthropicClient
	newAnthropicClient = func(string) AnthropicMessager { return fake }
	defer func() { newAnthropicClient = orig }()

	c, err := NewAnthropicCaller("key", "")
	require.NoError(t, err)
	got, err := c.GenerateJSON(context.Background(), "prompt", []string{"Project Name: X", "  "})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"T"}`, got)
	require.Len(t, fake.params.System, 1)
	assert.Equal(t, systemPrompt, fake.params.System[0].Text)
	require.Len(t, fake.params.Messages, 1)
	assert.Len(t, fake.params.Messages[0].Content, 2, "prompt plus one non-blank context line")
}

func TestNewAnthropicCallerRequiresKey(t *testing.T) {
	_, err := NewAnthropicCaller("  ", "")
	assert.Error(t, err)
}

func TestChatCompletionsCaller(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  {\"title\":\"X\"}  "}}]}`))
	}))
	defer srv.Close()

	c := NewChatCompletionsCaller(srv.URL, "sk-test", "")
	out, err := c.GenerateJSON(context.Background(), "the prompt", []string{"line one", ""})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"X"}`, out)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 0.2, got.Temperature)
	roles := []string{}
	for _, m := range got.Messages {
		roles = append(roles, m.Role+":"+m.Content)
	}
	assert.Equal(t, []string{"system:" + systemPrompt, "user:the prompt", "user:line one"}, roles)
}

func TestChatCompletionsCallerErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "server", status: 502, body: `{"error":"bad gateway"}`, want: "status code: 502"},
		{name: "non-json", status: 200, body: `<html>oops</html>`, want: "non-JSON"},
		{name: "empty", status: 200, body: `{"choices":[]}`, want: "no message content"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			_, err := NewChatCompletionsCaller(srv.URL, "", "m").GenerateJSON(context.Background(), "p", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestAPLClientUnwrapsReport(t *testing.T) {
	body := `{"report":{"title":"Wrapped"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req aplRequest
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &req)
		if req.Prompt != "p" || req.Language != "fr" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad request"}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewAPLClient(srv.URL, "fr")
	out, err := c.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Wrapped"}`, out)

	body = `{"title":"Bare"}`
	out, err = c.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, body, out)

	_, err = c.GenerateJSON(context.Background(), "other", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code: 400")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
