// Package pipeline turns a writing request into a finished chapter by
// running the brainstorm, outline, draft and title agents in turn.
package pipeline

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"story-creation-assistant/agent"
)

const (
	summaryMessage    = "This is the summary of the story up to this point: %s"
	brainstormMessage = "I would like to %s. Can you please help me brainstorm ideas for that?"
	ideasMessage      = "Here are a list of ideas for the chapter I would like you to outline: %s"
	outlineMessage    = "I would like to %s. Can you please make a clear outline for that chapter?"
	followMessage     = "Here is the outline I would like you to follow when writing the chapter: %s"
	draftMessage      = "I would like to %s. Can you please write the chapter for me, remembering to follow the outline I just provided? Please remember to return the chapter text only, not any commentary to the user or additional text."
	titleMessage      = "Please come up with a title for the following chapter: %s. The title should be 6 words or less."
)

// Request is one chapter to synthesize.
type Request struct {
	// UserMessage describes what the chapter should do.
	UserMessage string
	// Summary condenses the story so far.
	Summary string
	// ContextRequest carries the story's standing details.
	ContextRequest string
	// Personas overrides the agents' configured personas.
	Personas agent.Personas
}

// Draft is a synthesized chapter.
type Draft struct {
	Content string
	Title   string
}

// Synthesizer runs the chapter stages.
type Synthesizer struct {
	runner agent.Runner
	logger *log.Logger
}

func NewSynthesizer(runner agent.Runner, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Synthesizer{runner: runner, logger: logger}
}

// Synthesize runs brainstorm, outline, draft and title. Any failing stage
// aborts the run and no partial draft is returned.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Draft, error) {
	shared := []string{req.ContextRequest, fmt.Sprintf(summaryMessage, req.Summary)}

	ideas, err := s.stage(ctx, agent.Brainstormer, req.Personas, shared,
		fmt.Sprintf(brainstormMessage, req.UserMessage))
	if err != nil {
		return Draft{}, err
	}

	outline, err := s.stage(ctx, agent.ChapterOutliner, req.Personas, shared,
		fmt.Sprintf(ideasMessage, ideas),
		fmt.Sprintf(outlineMessage, req.UserMessage))
	if err != nil {
		return Draft{}, err
	}

	content, err := s.stage(ctx, agent.ChapterWriter, req.Personas, shared,
		fmt.Sprintf(followMessage, outline),
		fmt.Sprintf(draftMessage, req.UserMessage))
	if err != nil {
		return Draft{}, err
	}

	title, err := s.runner.Run(ctx, agent.ChapterTitler, agent.Input{
		Persona:  req.Personas.For(agent.ChapterTitler),
		Messages: []string{fmt.Sprintf(titleMessage, content)},
	})
	if err != nil {
		return Draft{}, err
	}
	title = agent.NormalizeTitle(title)
	if title == "" {
		return Draft{}, &agent.GenerationError{Role: agent.ChapterTitler, Err: agent.ErrEmptyOutput}
	}

	s.logger.Debug("Chapter synthesized", "title", title, "length", len(content))
	return Draft{Content: content, Title: title}, nil
}

func (s *Synthesizer) stage(ctx context.Context, role agent.Role, personas agent.Personas, shared []string, messages ...string) (string, error) {
	all := make([]string, 0, len(shared)+len(messages))
	all = append(all, shared...)
	all = append(all, messages...)

	out, err := s.runner.Run(ctx, role, agent.Input{
		Persona:  personas.For(role),
		Messages: all,
	})
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", &agent.GenerationError{Role: role, Err: agent.ErrEmptyOutput}
	}
	return out, nil
}
