package tui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
	"story-creation-assistant/story"
)

type countingRunner struct {
	mu sync.Mutex
	n  int
}

func (r *countingRunner) Run(ctx context.Context, role agent.Role, in agent.Input) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	if role == agent.StoryTitler {
		return "Harbor Lights", nil
	}
	return fmt.Sprintf("%s text %d", role, r.n), nil
}

type memSession struct {
	mu     sync.Mutex
	engine *story.Engine
	state  *story.State
}

func (m *memSession) State(ctx context.Context, thread string) (*story.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memSession) Invoke(ctx context.Context, thread string, in story.Input) (*story.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.engine.Invoke(ctx, m.state, in)
	if err != nil {
		return nil, err
	}
	m.state = s
	return s, nil
}

func (m *memSession) View(ctx context.Context, thread string, id chapter.ID) (*story.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.engine.View(m.state, id)
	if err != nil {
		return nil, err
	}
	m.state = s
	return s, nil
}

func newModel(t *testing.T) (Model, *memSession) {
	t.Helper()
	engine, err := story.NewEngine(&countingRunner{}, story.Options{Logger: log.New(io.Discard)})
	require.NoError(t, err)
	sess := &memSession{engine: engine, state: story.NewState()}
	m := New(context.Background(), Options{Session: sess, Thread: "t1", Style: "notty"})
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m = update(t, m, m.load()())
	return m, sess
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

// collect runs cmd and every command it batches, returning their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// submit types text, presses enter and feeds the resulting state back.
func submit(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	for _, msg := range collect(cmd) {
		if sm, ok := msg.(stateMsg); ok {
			m = update(t, m, sm)
		}
	}
	return m
}

func TestStartStory(t *testing.T) {
	m, sess := newModel(t)
	assert.Equal(t, modePlot, m.mode)

	m = submit(t, m, "A harbor mystery")
	assert.Equal(t, modeDetails, m.mode)
	assert.True(t, sess.state.Empty())

	m = submit(t, m, "A lighthouse keeper")
	require.NoError(t, m.err)
	assert.Equal(t, modeContinue, m.mode)
	assert.Equal(t, 1, m.state.Graph.Len())
	assert.False(t, m.busy)

	view := m.View()
	assert.Contains(t, view, "Harbor Lights")
	assert.Contains(t, view, "chapter 1")
}

func TestContinueRewriteAndNavigate(t *testing.T) {
	m, sess := newModel(t)
	m = submit(t, m, "plot")
	m = submit(t, m, "details")
	m = submit(t, m, "go on")
	assert.Equal(t, chapter.ID(2), m.state.Viewing)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, modeRewrite, m.mode)
	m = submit(t, m, "shorter")
	assert.Equal(t, chapter.ID(3), sess.state.Current)
	assert.Equal(t, modeRewrite, m.mode)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	m = next.(Model)
	assert.True(t, m.busy)
	for _, msg := range collect(cmd) {
		if sm, ok := msg.(stateMsg); ok {
			m = update(t, m, sm)
		}
	}
	assert.Equal(t, chapter.ID(2), m.state.Viewing)

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	m = next.(Model)
	for _, msg := range collect(cmd) {
		if sm, ok := msg.(stateMsg); ok {
			m = update(t, m, sm)
		}
	}
	assert.Equal(t, chapter.ID(1), m.state.Viewing)
	assert.Contains(t, m.View(), "1 continuations")
}

func TestErrorIsShown(t *testing.T) {
	m, _ := newModel(t)
	m = submit(t, m, "plot")
	m = submit(t, m, "details")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = submit(t, m, "rewrite the opening")
	require.Error(t, m.err)
	assert.ErrorIs(t, m.err, story.ErrInvalidRequest)
	assert.Contains(t, m.View(), "Error:")
}

func TestProgressUpdates(t *testing.T) {
	ch := make(chan agent.ProgressUpdate, 1)
	m, _ := newModel(t)
	m = submit(t, m, "plot")
	m = submit(t, m, "details")
	m.opts.Progress = ch
	m.busy = true

	ch <- agent.ProgressUpdate{AgentName: "chapter_writer", Status: agent.StatusStarted, TotalCost: 0.25, TotalTokens: 12345}
	m = update(t, m, m.listenForProgress()())

	assert.InDelta(t, 0.25, m.totalCost, 1e-9)
	assert.Contains(t, m.progressLine(), "chapter_writer")
	assert.Contains(t, m.View(), "12,345 tokens")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}
