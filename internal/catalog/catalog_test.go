package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwise/planwise/internal/llm"
)

type stubLister struct {
	models    []string
	err       error
	listCalls int
}

func (s *stubLister) ListModels(ctx context.Context) ([]string, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.models, nil
}

func (s *stubLister) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, errors.New("not implemented")
}

func TestCandidates_NeverEmpty(t *testing.T) {
	tests := []struct {
		name   string
		models []string
		err    error
	}{
		{"fresh list", []string{"llama-3.1-70b"}, nil},
		{"listing fails", nil, errors.New("boom")},
		{"empty list", []string{}, nil},
		{"all filtered out", []string{"clip-vision", "whisper-1"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&stubLister{models: tt.models, err: tt.err}, NewCache())
			got := c.Candidates(context.Background())
			assert.NotEmpty(t, got)
		})
	}
}

func TestCandidates_OverrideBypassesDiscovery(t *testing.T) {
	lister := &stubLister{models: []string{"llama-3.1-70b", "gemma-9b"}}
	c := New(lister, NewCache(), WithOverride("mixtral-8x7b"))

	got := c.Candidates(context.Background())

	assert.Equal(t, []string{"mixtral-8x7b"}, got)
	assert.Zero(t, lister.listCalls, "override must not trigger discovery")
}

func TestCandidates_FilterAndRank(t *testing.T) {
	lister := &stubLister{models: []string{"llama-70b", "clip-vision", "whisper-1", "embed-small", "gemma-9b"}}
	c := New(lister, NewCache())

	got := c.Candidates(context.Background())

	assert.Equal(t, []string{"llama-70b", "gemma-9b"}, got)
	assert.NotContains(t, got, "clip-vision")
	assert.NotContains(t, got, "whisper-1")
	assert.NotContains(t, got, "embed-small")
}

func TestCandidates_RefreshFailureCachesFallback(t *testing.T) {
	lister := &stubLister{err: errors.New("upstream down")}
	c := New(lister, NewCache())

	first := c.Candidates(context.Background())
	second := c.Candidates(context.Background())

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	// The fallback list is cached with a fresh timestamp, so repeated
	// failures must not hammer the listing endpoint within one TTL window.
	assert.Equal(t, 1, lister.listCalls)
}

func TestCandidates_StaleCacheRefreshes(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	lister := &stubLister{models: []string{"llama-3.1-8b"}}
	c := New(lister, NewCache(), WithTTL(15*time.Minute), WithClock(clock))

	c.Candidates(context.Background())
	assert.Equal(t, 1, lister.listCalls)

	// Fresh: no refresh.
	now = now.Add(5 * time.Minute)
	c.Candidates(context.Background())
	assert.Equal(t, 1, lister.listCalls)

	// Past the TTL: refresh.
	now = now.Add(11 * time.Minute)
	c.Candidates(context.Background())
	assert.Equal(t, 2, lister.listCalls)
}

func TestCandidates_SafeDefaultWhenAllFiltered(t *testing.T) {
	lister := &stubLister{models: []string{"llama-guard-3", "whisper-large-v3"}}
	c := New(lister, NewCache())

	got := c.Candidates(context.Background())

	assert.Equal(t, []string{"llama-3.1-8b"}, got)
}

func TestWeight(t *testing.T) {
	tests := []struct {
		id     string
		weight int
	}{
		{"llama-3.1-70b", 303},
		{"llama-3.1-8b", 301},
		{"gemma-9b", 201},
		{"gemma-nano", 200},
		{"mixtral-8x7b", 101},
		{"mystery-model", 100},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.weight, weight(tt.id))
		})
	}
}

func TestRank_StableOnTies(t *testing.T) {
	c := New(&stubLister{}, NewCache())

	// Same weight: source order must survive.
	got := c.rank([]string{"llama-a-70b", "llama-b-70b", "llama-c-70b"})
	assert.Equal(t, []string{"llama-a-70b", "llama-b-70b", "llama-c-70b"}, got)
}

func TestStale(t *testing.T) {
	now := time.Now()
	ttl := 15 * time.Minute

	assert.True(t, stale(time.Time{}, now, ttl), "zero time is always stale")
	assert.False(t, stale(now.Add(-time.Minute), now, ttl))
	assert.True(t, stale(now.Add(-16*time.Minute), now, ttl))
}

func TestLoadPolicy_MissingFileKeepsDefaults(t *testing.T) {
	p, err := LoadPolicy("/nonexistent/policy.yaml")
	require.Error(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}
