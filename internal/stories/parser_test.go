package stories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_JSONArray(t *testing.T) {
	raw := `["As a user, I want to log in, so that I can access my data."]`

	got := Parse(raw)

	require.Len(t, got, 1)
	assert.Equal(t, "As a user, I want to log in, so that I can access my data.", got[0])
}

func TestParse_StripsMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n[\"As a user, I want to log in, so that I can access my data.\"]\n```"},
		{"bare fence", "```\n[\"As a user, I want to log in, so that I can access my data.\"]\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			require.Len(t, got, 1)
			assert.Equal(t, "As a user, I want to log in, so that I can access my data.", got[0])
		})
	}
}

func TestParse_ScanFallbackOnInvalidJSON(t *testing.T) {
	raw := `Some preamble. As a admin, I want to delete users, so that the system stays clean. Trailing text.`

	got := Parse(raw)

	require.Len(t, got, 1)
	assert.Equal(t, "As a admin, I want to delete users, so that the system stays clean.", got[0])
}

func TestParse_UnusableInputIsEmptyNotError(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no template match", "not a story at all"},
		{"empty input", ""},
		{"whitespace only", "  \n\t "},
		{"empty array", "[]"},
		{"array of blanks", `["", "   "]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Parse(tt.raw))
		})
	}
}

func TestParse_TrimsAndDropsBlankElements(t *testing.T) {
	raw := `["  As a user, I want to log in, so that I can access my data.  ", ""]`

	got := Parse(raw)

	require.Len(t, got, 1)
	assert.Equal(t, "As a user, I want to log in, so that I can access my data.", got[0])
}

func TestExtractFields(t *testing.T) {
	tests := []struct {
		name  string
		story string
		want  Fields
		ok    bool
	}{
		{
			name:  "full template",
			story: "As a user, I want to log in, so that I can access my data.",
			want:  Fields{Role: "user", Action: "log in", Benefit: "I can access my data"},
			ok:    true,
		},
		{
			name:  "missing trailing period",
			story: "As a manager, I want to assign tasks, so that work is distributed",
			want:  Fields{Role: "manager", Action: "assign tasks", Benefit: "work is distributed"},
			ok:    true,
		},
		{
			name:  "not a story",
			story: "implement the login page",
			ok:    false,
		},
		{
			name:  "partial template",
			story: "As a user, I want to log in.",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFields(tt.story)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
