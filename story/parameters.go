package story

import (
	"fmt"
	"sort"
	"strings"
)

// Parameters shape a whole story. Every field is optional; the empty value
// leaves the choice to the writers.
type Parameters struct {
	Length          string `json:"length,omitempty"`
	Fiction         string `json:"fiction,omitempty"`
	Reality         string `json:"reality,omitempty"`
	Informativeness string `json:"informativeness,omitempty"`
	Originality     string `json:"originality,omitempty"`
	Theme           string `json:"theme,omitempty"`
	Characters      int    `json:"characters,omitempty"`
}

var (
	lengthChoices = map[string]string{
		"short":  "Keep each chapter short, up to 500 words.",
		"medium": "Each chapter should be 500 to 2000 words long.",
		"long":   "Each chapter should be more than 2000 words long.",
	}
	fictionChoices = map[string]string{
		"fiction":     "This is a completely fictional story.",
		"true-story":  "This story is based on a true story.",
		"non-fiction": "This is a non-fiction story.",
	}
	realityChoices = map[string]string{
		"fantastical":    "The story is completely fantastical.",
		"semi-realistic": "The story is semi-realistic.",
		"realistic":      "The story is realistic.",
	}
	informativenessChoices = map[string]string{
		"information":    "The story provides accurate information.",
		"misinformation": "The story provides misinformation.",
	}
	originalityChoices = map[string]string{
		"original":   "The story must be completely original.",
		"genre":      "The story is inspired by a specific genre.",
		"author":     "The story is inspired by a specific author.",
		"work":       "The story is inspired by a particular work.",
		"derivative": "The story is a fan fiction.",
	}
)

type parameterChoice struct {
	name    string
	value   string
	choices map[string]string
}

func (p Parameters) choices() []parameterChoice {
	return []parameterChoice{
		{"length", p.Length, lengthChoices},
		{"fiction", p.Fiction, fictionChoices},
		{"reality", p.Reality, realityChoices},
		{"informativeness", p.Informativeness, informativenessChoices},
		{"originality", p.Originality, originalityChoices},
	}
}

// IsZero reports whether no parameter is set.
func (p Parameters) IsZero() bool {
	return p == Parameters{}
}

// Validate rejects unknown choices and a negative character count.
func (p Parameters) Validate() error {
	for _, c := range p.choices() {
		if c.value == "" {
			continue
		}
		if _, ok := c.choices[c.value]; !ok {
			return fmt.Errorf("%w: unknown %s %q (one of %s)", ErrInvalidRequest, c.name, c.value, strings.Join(ParameterChoices(c.name), ", "))
		}
	}
	if p.Characters < 0 {
		return fmt.Errorf("%w: character count %d is negative", ErrInvalidRequest, p.Characters)
	}
	return nil
}

// Prompt renders the set parameters as sentences, one per line.
func (p Parameters) Prompt() string {
	var lines []string
	for _, c := range p.choices() {
		if sentence, ok := c.choices[c.value]; ok {
			lines = append(lines, sentence)
		}
	}
	if theme := strings.TrimSpace(p.Theme); theme != "" {
		lines = append(lines, fmt.Sprintf("The story should convey the theme of %s.", theme))
	}
	if p.Characters > 0 {
		lines = append(lines, fmt.Sprintf("The story features %d main characters.", p.Characters))
	}
	return strings.Join(lines, "\n")
}

// ParameterChoices lists the accepted values of a parameter, sorted.
func ParameterChoices(name string) []string {
	for _, c := range (Parameters{}).choices() {
		if c.name != name {
			continue
		}
		out := make([]string, 0, len(c.choices))
		for k := range c.choices {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	}
	return nil
}
