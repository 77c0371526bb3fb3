// Package story drives a branching story: it routes each writer request to
// the first-chapter, continue or rewrite transition and applies it to an
// immutable snapshot of the story, returning the next snapshot.
package story

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
	"story-creation-assistant/pipeline"
	"story-creation-assistant/summarizer"
)

// Engine applies requests to story states.
type Engine struct {
	runner      agent.Runner
	synthesizer *pipeline.Synthesizer
	summarizer  *summarizer.Summarizer
	logger      *log.Logger
}

type Options struct {
	// SummaryCacheSize bounds the ancestry summary cache; 0 disables it.
	SummaryCacheSize int
	Logger           *log.Logger
}

func NewEngine(runner agent.Runner, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	summ, err := summarizer.NewSummarizer(runner, opts.SummaryCacheSize, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Engine{
		runner:      runner,
		synthesizer: pipeline.NewSynthesizer(runner, opts.Logger),
		summarizer:  summ,
		logger:      opts.Logger,
	}, nil
}

// Invoke routes in and applies the resulting request.
func (e *Engine) Invoke(ctx context.Context, s *State, in Input) (*State, error) {
	return e.Apply(ctx, s, Route(s, in))
}

// Apply runs one transition. s is left untouched; on success the returned
// state holds the new chapter with both pointers moved to it.
func (e *Engine) Apply(ctx context.Context, s *State, req Request) (*State, error) {
	if s == nil {
		s = NewState()
	}

	var (
		next *State
		err  error
	)
	switch r := req.(type) {
	case FirstChapterRequest:
		next, err = e.writeFirstChapter(ctx, s, r)
	case ContinueRequest:
		next, err = e.continueChapter(ctx, s, r)
	case RewriteRequest:
		next, err = e.rewriteChapter(ctx, s, r)
	case nil:
		return nil, fmt.Errorf("%w: no request", ErrInvalidRequest)
	default:
		return nil, fmt.Errorf("%w: unsupported request %T", ErrInvalidRequest, req)
	}
	if err != nil {
		e.logger.Error("Story transition failed", "kind", req.Kind(), "viewing", s.Viewing, "error", err)
		return nil, err
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}
	e.logger.Info("Chapter created", "kind", req.Kind(), "chapter", next.Current, "title", e.title(next))
	return next, nil
}

// View moves the viewing pointer to id.
func (e *Engine) View(s *State, id chapter.ID) (*State, error) {
	if s == nil || !s.Graph.Has(id) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChapter, id)
	}
	next := s.Clone()
	next.Viewing = id
	return next, nil
}

// SummarizeChapter caches a summary of chapter id in the returned state.
func (e *Engine) SummarizeChapter(ctx context.Context, s *State, id chapter.ID) (*State, error) {
	if s == nil || s.Graph == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChapter, id)
	}
	c, err := s.Graph.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownChapter, err)
	}
	summary, err := e.summarizer.SummarizeChapter(ctx, c)
	if err != nil {
		return nil, asGeneration(agent.Summarizer, err)
	}
	next := s.Clone()
	if err := next.Graph.SetSummary(id, summary); err != nil {
		return nil, err
	}
	return next, nil
}

// summarize condenses the branch ending at id.
func (e *Engine) summarize(ctx context.Context, s *State, id chapter.ID) (string, error) {
	summary, err := e.summarizer.Summarize(ctx, s.Graph, id)
	switch {
	case err == nil:
		return summary, nil
	case errors.Is(err, chapter.ErrNotFound):
		return "", fmt.Errorf("%w: %w", ErrUnknownChapter, err)
	case errors.Is(err, chapter.ErrInvariantViolation):
		return "", err
	}
	return "", asGeneration(agent.Summarizer, err)
}

func (e *Engine) synthesize(ctx context.Context, s *State, personas agent.Personas, userMessage, summary string) (pipeline.Draft, error) {
	draft, err := e.synthesizer.Synthesize(ctx, pipeline.Request{
		UserMessage:    userMessage,
		Summary:        summary,
		ContextRequest: s.ContextRequest,
		Personas:       personas,
	})
	if err != nil {
		return pipeline.Draft{}, asGeneration(agent.ChapterWriter, err)
	}
	return draft, nil
}

func (e *Engine) title(s *State) string {
	c, err := s.Graph.Get(s.Current)
	if err != nil {
		return ""
	}
	return c.Title
}

// asGeneration makes sure err matches ErrGeneration.
func asGeneration(role agent.Role, err error) error {
	if errors.Is(err, ErrGeneration) {
		return err
	}
	return &agent.GenerationError{Role: role, Err: err}
}

// graphError reports a failed graph update as an invariant violation.
func graphError(err error) error {
	if errors.Is(err, ErrInvariantViolation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvariantViolation, err)
}
