package story

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
)

var errNoPacingScores = errors.New("no pacing scores in the analysis")

// Pacing is the per-paragraph pacing of one chapter.
type Pacing struct {
	Chapter chapter.ID
	Scores  []float64
}

// Mean returns the average score, or 0 without scores.
func (p Pacing) Mean() float64 {
	if len(p.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range p.Scores {
		sum += s
	}
	return sum / float64(len(p.Scores))
}

// AnalyzePacing scores every paragraph of chapter id, or of the viewed
// chapter when id is None. The state is not changed.
func (e *Engine) AnalyzePacing(ctx context.Context, s *State, id chapter.ID) (Pacing, error) {
	if s == nil || s.Empty() {
		return Pacing{}, fmt.Errorf("%w: the story has no chapters yet", ErrUnknownChapter)
	}
	if id == chapter.None {
		id = s.Viewing
	}
	c, err := s.Graph.Get(id)
	if err != nil {
		return Pacing{}, fmt.Errorf("%w: %w", ErrUnknownChapter, err)
	}

	out, err := e.runner.Run(ctx, agent.PacingAnalyzer, agent.Input{Messages: []string{c.Content}})
	if err != nil {
		return Pacing{}, asGeneration(agent.PacingAnalyzer, err)
	}
	scores := ParsePacingScores(out)
	if len(scores) == 0 {
		return Pacing{}, &agent.GenerationError{Role: agent.PacingAnalyzer, Err: errNoPacingScores}
	}
	e.logger.Debug("Pacing analyzed", "chapter", c.ID, "paragraphs", len(scores))
	return Pacing{Chapter: c.ID, Scores: scores}, nil
}

// ParsePacingScores reads "label: score" lines. Lines without a colon or a
// number after the last colon are skipped.
func ParsePacingScores(text string) []float64 {
	var scores []float64
	for _, line := range strings.Split(text, "\n") {
		i := strings.LastIndex(line, ":")
		if i < 0 {
			continue
		}
		field := strings.Trim(line[i+1:], "* \t\r.")
		field = strings.TrimSuffix(field, "/10")
		score, err := strconv.ParseFloat(field, 64)
		if err != nil {
			continue
		}
		scores = append(scores, score)
	}
	return scores
}
