// Package catalog produces ranked candidate model identifiers for the story
// generator, hiding model churn on the provider side. It never fails: any
// discovery problem degrades to a static fallback list.
package catalog

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/planwise/planwise/internal/llm"
)

// DefaultTTL is how long a fetched model list stays fresh.
const DefaultTTL = 15 * time.Minute

var (
	familyLlama = regexp.MustCompile(`(?i)llama`)
	familyGemma = regexp.MustCompile(`(?i)gemma`)
	sizeLarge   = regexp.MustCompile(`(?i)70b|405b`)
	sizeMid     = regexp.MustCompile(`(?i)34b|32b`)
	sizeSmall   = regexp.MustCompile(`(?i)8b|7b|9b`)
)

// Cache holds the last successfully fetched model list. It is shared
// process-wide and guarded by a mutex; concurrent refreshes may still race
// past each other, which is fine: the refresh is idempotent and the last
// writer wins.
type Cache struct {
	mu        sync.Mutex
	ids       []string
	fetchedAt time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{} }

func (c *Cache) snapshot() ([]string, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ids, c.fetchedAt
}

func (c *Cache) put(ids []string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = ids
	c.fetchedAt = now
}

// stale reports whether a list fetched at fetchedAt has outlived ttl.
// A zero fetchedAt (never fetched) is always stale.
func stale(fetchedAt, now time.Time, ttl time.Duration) bool {
	if fetchedAt.IsZero() {
		return true
	}
	return now.Sub(fetchedAt) > ttl
}

// Catalog ranks candidate models for text generation.
type Catalog struct {
	client   llm.Client
	cache    *Cache
	ttl      time.Duration
	override string
	policy   Policy
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures the catalog.
type Option func(*Catalog)

// WithOverride pins the catalog to a single operator-chosen model.
func WithOverride(model string) Option {
	return func(c *Catalog) { c.override = strings.TrimSpace(model) }
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Catalog) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(c *Catalog) { c.policy = p }
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// New constructs a catalog over the given model service client and cache.
func New(client llm.Client, cache *Cache, opts ...Option) *Catalog {
	c := &Catalog{
		client: client,
		cache:  cache,
		ttl:    DefaultTTL,
		policy: DefaultPolicy(),
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Candidates returns candidate model identifiers, most preferred first.
// The returned list is never empty.
func (c *Catalog) Candidates(ctx context.Context) []string {
	if c.override != "" {
		return []string{c.override}
	}

	ids, fetchedAt := c.cache.snapshot()
	now := c.now()
	if stale(fetchedAt, now, c.ttl) {
		fetched, err := c.client.ListModels(ctx)
		if err != nil {
			// Cache the fallback too, so a broken listing endpoint is not
			// re-queried on every request within the TTL window.
			c.logger.Warn().Err(err).Msg("model listing failed, using fallback list")
			fetched = c.policy.FallbackModels
		}
		c.cache.put(fetched, now)
		ids = fetched
	}

	candidates := c.rank(c.filter(ids))
	if len(candidates) == 0 {
		return []string{c.policy.SafeDefault}
	}
	return candidates
}

// filter drops models that cannot serve a text-chat request.
func (c *Catalog) filter(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || c.disallowed(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (c *Catalog) disallowed(id string) bool {
	lower := strings.ToLower(id)
	for _, term := range c.policy.DisallowedTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// rank orders ids by descending preference weight. The sort is stable, so
// ties keep the order the provider listed them in.
func (c *Catalog) rank(ids []string) []string {
	ranked := make([]string, len(ids))
	copy(ranked, ids)
	sort.SliceStable(ranked, func(i, j int) bool {
		return weight(ranked[i]) > weight(ranked[j])
	})
	return ranked
}

// weight scores a model id: preferred family dominates, parameter tier
// breaks ties within a family.
func weight(id string) int {
	family := 1
	switch {
	case familyLlama.MatchString(id):
		family = 3
	case familyGemma.MatchString(id):
		family = 2
	}

	size := 0
	switch {
	case sizeLarge.MatchString(id):
		size = 3
	case sizeMid.MatchString(id):
		size = 2
	case sizeSmall.MatchString(id):
		size = 1
	}

	return family*100 + size
}
