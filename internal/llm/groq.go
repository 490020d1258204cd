package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/planwise/planwise/internal/apperrors"
)

const (
	groqAPIBase    = "https://api.groq.com/openai/v1"
	serviceName    = "groq"
	requestTimeout = 60 * time.Second
)

// GroqClient implements Client against the Groq OpenAI-compatible API.
type GroqClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// GroqOption configures the client.
type GroqOption func(*GroqClient)

func WithBaseURL(url string) GroqOption {
	return func(c *GroqClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

func WithHTTPClient(hc *http.Client) GroqOption {
	return func(c *GroqClient) { c.client = hc }
}

func WithLogger(l zerolog.Logger) GroqOption {
	return func(c *GroqClient) { c.logger = l }
}

// NewGroqClient constructs a Groq API client.
func NewGroqClient(apiKey string, opts ...GroqOption) *GroqClient {
	c := &GroqClient{
		apiKey:  apiKey,
		baseURL: groqAPIBase,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ---- Groq wire types ----

type groqModel struct {
	ID string `json:"id"`
}

type groqModelList struct {
	Data []groqModel `json:"data"`
}

type groqChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type groqChatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type groqErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *GroqClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb groqErrorBody
		msg := string(raw)
		if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
			msg = eb.Error.Message
		}
		return nil, apperrors.NewAPIError(serviceName, resp.StatusCode, msg)
	}
	return raw, nil
}

// ListModels returns the identifiers of all models the account can reach.
func (c *GroqClient) ListModels(ctx context.Context) ([]string, error) {
	raw, err := c.do(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}

	var list groqModelList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("unmarshal model list: %w", err)
	}

	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	c.logger.Debug().Int("models", len(ids)).Msg("groq model list fetched")
	return ids, nil
}

// Complete sends a blocking chat-completion request.
func (c *GroqClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	raw, err := c.do(ctx, http.MethodPost, "/chat/completions", groqChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var cr groqChatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("unmarshal completion: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, apperrors.NewAPIError(serviceName, 200, "completion contained no choices")
	}

	out := &CompletionResponse{
		Text:         cr.Choices[0].Message.Content,
		FinishReason: cr.Choices[0].FinishReason,
		InputTokens:  cr.Usage.PromptTokens,
		OutputTokens: cr.Usage.CompletionTokens,
	}

	c.logger.Debug().
		Str("model", req.Model).
		Str("finish_reason", out.FinishReason).
		Int("in_tokens", out.InputTokens).
		Int("out_tokens", out.OutputTokens).
		Msg("groq completion")
	return out, nil
}
