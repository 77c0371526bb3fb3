package story

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
)

// firstChapter is the id of the chapter every story starts with.
const firstChapter chapter.ID = 1

const (
	contextTemplate  = "I would like you to keep the following details in mind when writing %s"
	expandedTemplate = "%s.\n\nCharacter Description: %s\n\nEnvironment Description: %s"
	firstSummary     = "no story up to this point, this is the first chapter!"
	firstMessage     = "Please write the first chapter of this story."
	storyTitleAsk    = "Please come up with a short title, less than 6 words, for a story. The story has the following overall plot %s, and here is the first chapter %s"

	continueTemplate = `Here is what I want in the next chapter:

<Instructions>
%s
</Instructions>`

	editTemplate = `Here is the current state of the new chapter:

<Draft>
%s
</Draft>

Here are some edits I want to make to that chapter:

<EditInstructions>
%s
</EditInstructions>`
)

// writeFirstChapter sets the scene, writes chapter 1 and titles the story.
func (e *Engine) writeFirstChapter(ctx context.Context, s *State, req FirstChapterRequest) (*State, error) {
	if !s.Empty() {
		return nil, fmt.Errorf("%w: the story already has %d chapters", ErrInvalidRequest, s.Graph.Len())
	}
	instruction := strings.TrimSpace(req.Instruction)
	details := strings.TrimSpace(req.Details)
	if instruction == "" || details == "" {
		return nil, fmt.Errorf("%w: a first chapter needs an instruction and details", ErrInvalidRequest)
	}
	if err := req.Parameters.Validate(); err != nil {
		return nil, err
	}

	keep := details
	if params := req.Parameters.Prompt(); params != "" {
		keep = details + "\n" + params
	}
	contextRequest := fmt.Sprintf(contextTemplate, keep)
	characters, environment, err := e.describeScene(ctx, contextRequest, req.Personas)
	if err != nil {
		return nil, err
	}

	next := s.Clone()
	next.Instruction = instruction
	next.Details = details
	next.Parameters = req.Parameters
	next.Personas = req.Personas
	next.ContextRequest = fmt.Sprintf(expandedTemplate, contextRequest, characters, environment)

	draft, err := e.synthesize(ctx, next, next.Personas, firstMessage, firstSummary)
	if err != nil {
		return nil, err
	}

	storyTitle, err := e.runner.Run(ctx, agent.StoryTitler, agent.Input{
		Messages: []string{fmt.Sprintf(storyTitleAsk, instruction, draft.Content)},
	})
	if err != nil {
		return nil, asGeneration(agent.StoryTitler, err)
	}
	storyTitle = agent.NormalizeTitle(storyTitle)
	if storyTitle == "" {
		return nil, &agent.GenerationError{Role: agent.StoryTitler, Err: agent.ErrEmptyOutput}
	}

	id := firstChapter
	if err := next.Graph.Insert(chapter.Chapter{
		ID:      id,
		Content: draft.Content,
		Title:   draft.Title,
		Parent:  chapter.None,
	}); err != nil {
		return nil, graphError(err)
	}
	next.StoryTitle = storyTitle
	next.Current = id
	next.Viewing = id
	return next, nil
}

// describeScene writes the character and environment descriptions
// concurrently; both only depend on the context request.
func (e *Engine) describeScene(ctx context.Context, contextRequest string, personas agent.Personas) (string, string, error) {
	var characters, environment string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := e.runner.Run(gctx, agent.CharacterDescriber, agent.Input{
			Persona:  personas.For(agent.CharacterDescriber),
			Messages: []string{contextRequest},
		})
		if err != nil {
			return asGeneration(agent.CharacterDescriber, err)
		}
		characters = out
		return nil
	})
	g.Go(func() error {
		out, err := e.runner.Run(gctx, agent.EnvironmentDescriber, agent.Input{
			Persona:  personas.For(agent.EnvironmentDescriber),
			Messages: []string{contextRequest},
		})
		if err != nil {
			return asGeneration(agent.EnvironmentDescriber, err)
		}
		environment = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return characters, environment, nil
}

// continueChapter writes a new child of the viewed chapter. The viewed
// chapter's existing children become the new chapter's cousins.
func (e *Engine) continueChapter(ctx context.Context, s *State, req ContinueRequest) (*State, error) {
	instructions := strings.TrimSpace(req.Instructions)
	if instructions == "" {
		return nil, fmt.Errorf("%w: continue instructions are empty", ErrInvalidRequest)
	}
	viewed, err := s.ViewedChapter()
	if err != nil {
		return nil, err
	}

	summary, err := e.summarize(ctx, s, viewed.ID)
	if err != nil {
		return nil, err
	}
	draft, err := e.synthesize(ctx, s, s.Personas, fmt.Sprintf(continueTemplate, instructions), summary)
	if err != nil {
		return nil, err
	}

	next := s.Clone()
	id := next.Current + 1
	if err := next.Graph.Insert(chapter.Chapter{
		ID:      id,
		Content: draft.Content,
		Title:   draft.Title,
		Parent:  viewed.ID,
		Cousins: viewed.Children,
	}); err != nil {
		return nil, graphError(err)
	}
	for _, cousin := range viewed.Children {
		if err := next.Graph.AppendRelation(cousin, chapter.Cousins, id); err != nil {
			return nil, graphError(err)
		}
	}
	if err := next.Graph.AppendRelation(viewed.ID, chapter.Children, id); err != nil {
		return nil, graphError(err)
	}

	next.Current = id
	next.Viewing = id
	return next, nil
}

// rewriteChapter writes an alternate version of the viewed chapter under the
// same parent and joins it to the viewed chapter's sibling group.
func (e *Engine) rewriteChapter(ctx context.Context, s *State, req RewriteRequest) (*State, error) {
	instructions := strings.TrimSpace(req.Instructions)
	if instructions == "" {
		return nil, fmt.Errorf("%w: rewrite instructions are empty", ErrInvalidRequest)
	}
	viewed, err := s.ViewedChapter()
	if err != nil {
		return nil, err
	}
	if viewed.IsRoot() {
		return nil, fmt.Errorf("%w: chapter %s starts the story and cannot be rewritten", ErrInvalidRequest, viewed.ID)
	}

	summary, err := e.summarize(ctx, s, viewed.Parent)
	if err != nil {
		return nil, err
	}
	draft, err := e.synthesize(ctx, s, s.Personas, fmt.Sprintf(editTemplate, viewed.Content, instructions), summary)
	if err != nil {
		return nil, err
	}

	group := append(slices.Clone(viewed.Siblings), viewed.ID)

	next := s.Clone()
	id := next.Current + 1
	if err := next.Graph.Insert(chapter.Chapter{
		ID:       id,
		Content:  draft.Content,
		Title:    draft.Title,
		Parent:   viewed.Parent,
		Siblings: group,
		Cousins:  viewed.Cousins,
	}); err != nil {
		return nil, graphError(err)
	}
	for _, sibling := range group {
		if err := next.Graph.AppendRelation(sibling, chapter.Siblings, id); err != nil {
			return nil, graphError(err)
		}
	}

	next.Current = id
	next.Viewing = id
	return next, nil
}
