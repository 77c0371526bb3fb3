// Package agent runs the role agents that write a story: each role pairs a
// system prompt with a model of some provider and, optionally, an author
// persona whose voice the model should take on.
package agent

import (
	"context"
	"slices"

	"story-creation-assistant/client"
)

// Role names one agent of the writing team.
type Role string

const (
	Brainstormer         Role = "brainstormer"
	ChapterOutliner      Role = "chapter_outliner"
	ChapterWriter        Role = "chapter_writer"
	ChapterTitler        Role = "chapter_titler"
	StoryTitler          Role = "story_titler"
	Summarizer           Role = "summarizer"
	CharacterDescriber   Role = "character_describer"
	EnvironmentDescriber Role = "environment_describer"
	PacingAnalyzer       Role = "pacing_analyzer"
)

// Roles returns every role in pipeline order, followed by the roles hosts
// call on demand.
func Roles() []Role {
	return []Role{
		CharacterDescriber,
		EnvironmentDescriber,
		Summarizer,
		Brainstormer,
		ChapterOutliner,
		ChapterWriter,
		ChapterTitler,
		StoryTitler,
		PacingAnalyzer,
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(Roles(), r)
}

// Config holds the configuration parameters for an agent.
type Config struct {
	Name        Role
	Provider    string
	Model       string
	Prompt      string
	Persona     string
	MaxTokens   int
	Temperature *float64
	Schema      *client.Schema
}

// Input is one call of an agent: the human turns in order, and a persona
// overriding the agent's configured one.
type Input struct {
	Persona  string
	Messages []string
}

// Runner is the text generation capability the story engine drives.
type Runner interface {
	Run(ctx context.Context, role Role, in Input) (string, error)
}

// Personas maps a role to the author it writes as.
type Personas map[Role]string

// DefaultPersonas returns the built-in persona set.
func DefaultPersonas() Personas {
	return Personas{
		Brainstormer:         "Lev Tolstoy",
		ChapterOutliner:      "Cristopher Nolan",
		ChapterWriter:        "Fyodor Dostoevsky",
		CharacterDescriber:   "J. K. Rowling",
		EnvironmentDescriber: "H. P. Lovecraft",
	}
}

// Merge returns p overlaid with the non-empty entries of over.
func (p Personas) Merge(over Personas) Personas {
	out := make(Personas, len(p)+len(over))
	for r, name := range p {
		out[r] = name
	}
	for r, name := range over {
		if name != "" {
			out[r] = name
		}
	}
	return out
}

// For returns the persona of role, or "" when none is set.
func (p Personas) For(role Role) string {
	if p == nil {
		return ""
	}
	return p[role]
}
