// Package summarizer condenses the branch of a story leading to a chapter
// into the context handed to the writing agents.
package summarizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
)

const summaryRequest = "Please help me summarize the following book: %s"

// Summarizer summarizes the ancestry of a chapter with the summarizer
// agent. Summaries are cached by the exact text they condense.
type Summarizer struct {
	runner agent.Runner
	cache  *lru.Cache[string, string]
	logger *log.Logger
}

// NewSummarizer creates a summarizer. cacheSize 0 disables the cache.
func NewSummarizer(runner agent.Runner, cacheSize int, logger *log.Logger) (*Summarizer, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := &Summarizer{runner: runner, logger: logger}
	if cacheSize > 0 {
		cache, err := lru.New[string, string](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create summary cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Summarize returns a summary of every chapter from the root of start's
// tree down to start. It returns "" for chapter.None.
func (s *Summarizer) Summarize(ctx context.Context, g *chapter.Graph, start chapter.ID) (string, error) {
	if start == chapter.None {
		return "", nil
	}

	path, err := g.Path(start)
	if err != nil {
		return "", err
	}
	book := Render(path)

	key := cacheKey(book)
	if s.cache != nil {
		if summary, ok := s.cache.Get(key); ok {
			s.logger.Debug("Summary cache hit", "chapter", start, "chapters", len(path))
			return summary, nil
		}
	}

	summary, err := s.runner.Run(ctx, agent.Summarizer, agent.Input{
		Messages: []string{fmt.Sprintf(summaryRequest, book)},
	})
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		s.cache.Add(key, summary)
	}
	return summary, nil
}

// SummarizeChapter returns a summary of a single chapter.
func (s *Summarizer) SummarizeChapter(ctx context.Context, c chapter.Chapter) (string, error) {
	return s.runner.Run(ctx, agent.Summarizer, agent.Input{
		Messages: []string{fmt.Sprintf(summaryRequest, Render([]chapter.Chapter{c}))},
	})
}

// Render lays chapters out root first, each under a "Chapter N" label.
func Render(path []chapter.Chapter) string {
	blocks := make([]string, 0, len(path))
	for i, c := range path {
		label := fmt.Sprintf("Chapter %d", i+1)
		if c.Title != "" {
			label += ": " + c.Title
		}
		blocks = append(blocks, label+"\n\n"+c.Content)
	}
	return strings.TrimSpace(strings.Join(blocks, "\n\n"))
}

func cacheKey(book string) string {
	sum := sha256.Sum256([]byte(book))
	return hex.EncodeToString(sum[:])
}
