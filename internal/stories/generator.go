package stories

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/planwise/planwise/internal/apperrors"
	"github.com/planwise/planwise/internal/llm"
	"github.com/planwise/planwise/internal/metrics"
)

// Generation parameters are fixed: moderate randomness, bounded output.
const (
	genTemperature = 0.7
	genMaxTokens   = 2000
)

const promptTemplate = `You are a product manager expert. Generate detailed user stories from the following project description.

Project Description:
%s

Generate user stories in the following format:
As a [role], I want to [action], so that [benefit].

Generate 5-10 comprehensive user stories that cover all aspects of the project. Return ONLY the user stories as a JSON array of strings, nothing else.

Example format:
["As a customer, I want to browse products, so that I can choose what to buy.", "As an admin, I want to manage products, so that the catalog is up to date."]`

// Candidater supplies ranked model candidates to try, most preferred first.
type Candidater interface {
	Candidates(ctx context.Context) []string
}

// attemptOutcome is the fallback decision after one failed candidate call.
type attemptOutcome int

const (
	// attemptNextCandidate: the model is gone, the next one may work.
	attemptNextCandidate attemptOutcome = iota
	// attemptStopAuth: our credentials were rejected, no candidate will work.
	attemptStopAuth
	// attemptStopOther: an unclassified failure; assuming other candidates
	// would fare differently is wishful thinking.
	attemptStopOther
)

// classifyAttempt maps an upstream error to a fallback decision.
// Kept pure so the stop/continue policy is testable without a transport.
func classifyAttempt(err error) attemptOutcome {
	switch {
	case llm.IsAuthError(err):
		return attemptStopAuth
	case llm.IsModelUnavailable(err):
		return attemptNextCandidate
	default:
		return attemptStopOther
	}
}

// Generator produces raw story text for a project description, hiding model
// deprecation and availability churn behind the catalog's candidate list.
type Generator struct {
	client  llm.Client
	catalog Candidater
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewGenerator constructs a story generator. metrics may be nil.
func NewGenerator(client llm.Client, catalog Candidater, m *metrics.Metrics, logger zerolog.Logger) *Generator {
	return &Generator{
		client:  client,
		catalog: catalog,
		metrics: m,
		logger:  logger.With().Str("component", "story_generator").Logger(),
	}
}

func buildPrompt(description string) string {
	return fmt.Sprintf(promptTemplate, description)
}

// Generate returns the raw completion text for the description. The text may
// still carry markdown fences around the JSON array; stripping those is the
// parser's job.
func (g *Generator) Generate(ctx context.Context, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("%w: project description is required", apperrors.ErrInvalidInput)
	}

	prompt := buildPrompt(description)
	candidates := g.catalog.Candidates(ctx)

	var lastErr error
	for _, model := range candidates {
		resp, err := g.client.Complete(ctx, llm.CompletionRequest{
			Model:       model,
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
			Temperature: genTemperature,
			MaxTokens:   genMaxTokens,
		})
		if err == nil {
			g.record(model, "success")
			g.logger.Info().Str("model", model).Msg("story generation succeeded")
			return resp.Text, nil
		}

		lastErr = err
		switch classifyAttempt(err) {
		case attemptNextCandidate:
			g.record(model, "model_unavailable")
			g.logger.Warn().Err(err).Str("model", model).Msg("model unavailable, trying next candidate")
			continue
		case attemptStopAuth:
			g.record(model, "auth_failed")
			return "", fmt.Errorf("%w: %v", apperrors.ErrUpstreamAuth, err)
		default:
			g.record(model, "error")
			return "", fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: all candidate models failed: %v", apperrors.ErrUpstream, lastErr)
	}
	return "", fmt.Errorf("%w: no candidate models available", apperrors.ErrUpstream)
}

func (g *Generator) record(model, outcome string) {
	if g.metrics != nil {
		g.metrics.RecordGenerationAttempt(model, outcome)
	}
}
