package stories

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Model output is requested as a JSON array of sentences shaped like
// "As a ROLE, I want to ACTION, so that BENEFIT." Models drift, so parsing
// degrades from strict JSON to scanning for the literal template.
var (
	fencePattern = regexp.MustCompile("```(?:json)?\n?")
	storyScan    = regexp.MustCompile(`As a .+?, I want to .+?, so that .+?\.`)
	storyFields  = regexp.MustCompile(`As a (.+?), I want to (.+?), so that (.+?)\.?$`)
)

// Fields holds the three parts extracted from one story sentence.
// They are only ever populated together.
type Fields struct {
	Role    string
	Action  string
	Benefit string
}

// Parse converts raw completion text into story sentences. It never fails:
// unusable input yields an empty slice, which the caller reports as a
// generation failure rather than a parser fault.
func Parse(raw string) []string {
	text := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
	if text == "" {
		return nil
	}

	var parsed []string
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		stories := make([]string, 0, len(parsed))
		for _, s := range parsed {
			if s = strings.TrimSpace(s); s != "" {
				stories = append(stories, s)
			}
		}
		return stories
	}

	// Malformed JSON: fall back to scanning for template matches.
	return storyScan.FindAllString(text, -1)
}

// ExtractFields applies the story template to a single sentence and returns
// the captured role, action and benefit. The extraction is atomic: either
// all three capture, or ok is false and nothing is returned.
func ExtractFields(story string) (Fields, bool) {
	m := storyFields.FindStringSubmatch(story)
	if m == nil {
		return Fields{}, false
	}
	return Fields{Role: m[1], Action: m[2], Benefit: m[3]}, true
}
