package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy controls which models the catalog may hand out and what it falls
// back to when discovery fails. Operators can override the defaults with a
// YAML file; any field left empty keeps its default.
type Policy struct {
	// FallbackModels is stored in the cache when the listing call fails, so
	// repeated failures do not hammer the endpoint within one TTL window.
	FallbackModels []string `yaml:"fallback_models"`

	// DisallowedTerms excludes models that cannot serve a text-chat request
	// (vision, moderation, speech-to-text, embedding-only).
	DisallowedTerms []string `yaml:"disallowed_terms"`

	// SafeDefault is returned alone if filtering removes every candidate.
	SafeDefault string `yaml:"safe_default"`
}

// DefaultPolicy returns the built-in model policy.
func DefaultPolicy() Policy {
	return Policy{
		FallbackModels: []string{
			"llama-3.1-70b",
			"llama-3.1-8b",
			"llama3-8b-8192",
		},
		DisallowedTerms: []string{"vision", "guard", "whisper", "embed"},
		SafeDefault:     "llama-3.1-8b",
	}
}

// LoadPolicy reads a YAML policy file and overlays it on the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()

	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read model policy: %w", err)
	}

	var file Policy
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return p, fmt.Errorf("parse model policy: %w", err)
	}

	if len(file.FallbackModels) > 0 {
		p.FallbackModels = file.FallbackModels
	}
	if len(file.DisallowedTerms) > 0 {
		p.DisallowedTerms = file.DisallowedTerms
	}
	if file.SafeDefault != "" {
		p.SafeDefault = file.SafeDefault
	}
	return p, nil
}
