package repl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
	"story-creation-assistant/story"
)

type echoRunner struct {
	mu sync.Mutex
	n  int
}

func (r *echoRunner) Run(ctx context.Context, role agent.Role, in agent.Input) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	switch role {
	case agent.ChapterWriter:
		return fmt.Sprintf("Prose number %d.", r.n), nil
	case agent.PacingAnalyzer:
		return "Paragraph 1: 4\nParagraph 2: 8", nil
	}
	return fmt.Sprintf("%s %d", role, r.n), nil
}

// memSession keeps one thread in memory.
type memSession struct {
	engine *story.Engine
	state  *story.State
}

func (m *memSession) State(ctx context.Context, thread string) (*story.State, error) {
	return m.state, nil
}

func (m *memSession) Invoke(ctx context.Context, thread string, in story.Input) (*story.State, error) {
	return m.set(m.engine.Invoke(ctx, m.state, in))
}

func (m *memSession) View(ctx context.Context, thread string, id chapter.ID) (*story.State, error) {
	return m.set(m.engine.View(m.state, id))
}

func (m *memSession) Summarize(ctx context.Context, thread string, id chapter.ID) (*story.State, error) {
	return m.set(m.engine.SummarizeChapter(ctx, m.state, id))
}

func (m *memSession) Pacing(ctx context.Context, thread string, id chapter.ID) (story.Pacing, error) {
	return m.engine.AnalyzePacing(ctx, m.state, id)
}

func (m *memSession) set(s *story.State, err error) (*story.State, error) {
	if err != nil {
		return nil, err
	}
	m.state = s
	return s, nil
}

type recordingExporter struct {
	exported chapter.ID
}

func (e *recordingExporter) ExportStory(s *story.State, id chapter.ID) (string, error) {
	e.exported = id
	return "workspace/story.md", nil
}

func run(t *testing.T, input string) (string, *memSession, *recordingExporter) {
	t.Helper()
	engine, err := story.NewEngine(&echoRunner{}, story.Options{Logger: log.New(io.Discard)})
	require.NoError(t, err)
	sess := &memSession{engine: engine, state: story.NewState()}
	exp := &recordingExporter{}

	var out bytes.Buffer
	NewREPL(sess, exp, "t1", strings.NewReader(input), &out).Start(context.Background())
	return out.String(), sess, exp
}

func TestSession(t *testing.T) {
	input := strings.Join([]string{
		"A ghost story",
		"An old ferry",
		"continue the ferry sinks",
		"view 1",
		"continue the ferry is saved",
		"rewrite make it sadder",
		"tree",
		"versions",
		"export",
		"quit",
	}, "\n")

	out, sess, exp := run(t, input)

	s := sess.state
	assert.Equal(t, 4, s.Graph.Len())
	assert.Equal(t, chapter.ID(4), s.Viewing)
	c, err := s.Graph.Get(4)
	require.NoError(t, err)
	assert.Equal(t, []chapter.ID{3}, c.Siblings)
	assert.Equal(t, chapter.ID(4), exp.exported)

	assert.Contains(t, out, "This thread has no story yet.")
	assert.Contains(t, out, "[1] ")
	assert.Contains(t, out, "* [4]")
	assert.Contains(t, out, "Saved to workspace/story.md")
	assert.Contains(t, out, "Goodbye!")
}

func TestErrorsAreReported(t *testing.T) {
	out, sess, _ := run(t, "plot\ndetails\nrewrite again\nview x\nview 9\ndance\n")

	assert.Equal(t, 1, sess.state.Graph.Len())
	assert.Contains(t, out, "invalid request")
	assert.Contains(t, out, "Usage: view <chapter id>")
	assert.Contains(t, out, "unknown chapter")
	assert.Contains(t, out, `Unknown command "dance"`)
}

func TestSummarizeCommand(t *testing.T) {
	out, sess, _ := run(t, "plot\ndetails\nsummarize\n")

	c, err := sess.state.Graph.Get(1)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Summary)
	assert.Contains(t, out, c.Summary)
}

func TestEndOfInputBeforeStart(t *testing.T) {
	out, sess, _ := run(t, "only a plot")
	assert.True(t, sess.state.Empty())
	assert.Contains(t, out, "Any details")
}

func TestPacingCommand(t *testing.T) {
	out, _, _ := run(t, "plot\ndetails\npacing\npacing 4\npacing x\n")

	assert.Contains(t, out, "Pacing of chapter 1 (mean 6.0)")
	assert.Contains(t, out, "████████")
	assert.Contains(t, out, "unknown chapter")
	assert.Contains(t, out, "Usage: pacing [chapter id]")
}
