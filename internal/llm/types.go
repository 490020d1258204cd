// Package llm talks to the Groq chat-completion service.
// The Client interface keeps the transport swappable behind typed requests,
// so catalog and generator code can be tested against stubs.
package llm

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/planwise/planwise/internal/apperrors"
)

// Role constants for Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a Complete() call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// CompletionResponse is returned by Complete().
type CompletionResponse struct {
	Text         string
	FinishReason string
	InputTokens  int
	OutputTokens int
}

// Client is the abstraction for the model service consumed by the catalog
// and the story generator.
type Client interface {
	// ListModels returns the identifiers of all currently served models.
	ListModels(ctx context.Context) ([]string, error)

	// Complete sends a blocking chat-completion request.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

var decommissionedPattern = regexp.MustCompile(`decommissioned|no longer supported|model`)

// IsAuthError reports whether err is an upstream credential rejection.
func IsAuthError(err error) bool {
	var apiErr *apperrors.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == 401 {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "invalid api key")
}

// IsModelUnavailable reports whether err means the requested model is gone
// (decommissioned, renamed, or never existed) and another candidate is worth
// trying.
func IsModelUnavailable(err error) bool {
	var apiErr *apperrors.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == 404 {
		return true
	}
	return apiErr.StatusCode == 400 && decommissionedPattern.MatchString(strings.ToLower(apiErr.Message))
}
