package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwise/planwise/internal/apperrors"
)

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[{"id":"llama-3.1-70b"},{"id":"whisper-large-v3"},{"id":""}]}`))
	}))
	defer srv.Close()

	c := NewGroqClient("gsk_test", WithBaseURL(srv.URL))

	ids, err := c.ListModels(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"llama-3.1-70b", "whisper-large-v3"}, ids, "blank ids are dropped, nothing else is filtered here")
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{
			"choices":[{"message":{"role":"assistant","content":"[\"As a user, I want to log in, so that I can access my data.\"]"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":120,"completion_tokens":42}
		}`))
	}))
	defer srv.Close()

	c := NewGroqClient("gsk_test", WithBaseURL(srv.URL))

	resp, err := c.Complete(context.Background(), CompletionRequest{
		Model:       "llama-3.1-70b",
		Messages:    []Message{{Role: RoleUser, Content: "generate stories"}},
		Temperature: 0.7,
		MaxTokens:   2000,
	})

	require.NoError(t, err)
	assert.Contains(t, resp.Text, "As a user")
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 42, resp.OutputTokens)
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewGroqClient("gsk_test", WithBaseURL(srv.URL))

	_, err := c.Complete(context.Background(), CompletionRequest{Model: "llama-3.1-70b"})

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "completion contained no choices", apiErr.Message)
}

func TestDo_ErrorBodyParsing(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
	}{
		{
			name:    "structured groq error",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`,
			wantMsg: "Invalid API Key",
		},
		{
			name:    "unstructured body kept raw",
			status:  http.StatusBadGateway,
			body:    `upstream exploded`,
			wantMsg: "upstream exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewGroqClient("gsk_test", WithBaseURL(srv.URL))

			_, err := c.ListModels(context.Background())

			var apiErr *apperrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"401", apperrors.NewAPIError("groq", 401, "unauthorized"), true},
		{"invalid api key message", apperrors.NewAPIError("groq", 403, "Invalid API Key supplied"), true},
		{"404", apperrors.NewAPIError("groq", 404, "not found"), false},
		{"plain error", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthError(tt.err))
		})
	}
}

func TestIsModelUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"404", apperrors.NewAPIError("groq", 404, "unknown model"), true},
		{"400 decommissioned", apperrors.NewAPIError("groq", 400, "llama-x has been decommissioned"), true},
		{"400 no longer supported", apperrors.NewAPIError("groq", 400, "this model is no longer supported"), true},
		{"400 unrelated", apperrors.NewAPIError("groq", 400, "bad request payload"), false},
		{"401", apperrors.NewAPIError("groq", 401, "unauthorized"), false},
		{"plain error", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsModelUnavailable(tt.err))
		})
	}
}
