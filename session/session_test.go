package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-creation-assistant/agent"
	"story-creation-assistant/chapter"
	"story-creation-assistant/checkpoint"
	"story-creation-assistant/story"
)

type scriptedRunner struct {
	calls atomic.Int64
	fail  atomic.Bool
}

func (r *scriptedRunner) Run(ctx context.Context, role agent.Role, in agent.Input) (string, error) {
	n := r.calls.Add(1)
	if r.fail.Load() {
		return "", errors.New("provider unavailable")
	}
	if role == agent.PacingAnalyzer {
		return fmt.Sprintf("Paragraph 1: %d", n%10), nil
	}
	return fmt.Sprintf("%s output %d", role, n), nil
}

func newManager(t *testing.T) (*Manager, *scriptedRunner, checkpoint.Store) {
	t.Helper()
	runner := &scriptedRunner{}
	logger := log.New(io.Discard)
	engine, err := story.NewEngine(runner, story.Options{SummaryCacheSize: 8, Logger: logger})
	require.NoError(t, err)
	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewManager(engine, store, logger), runner, store
}

func begin(t *testing.T, m *Manager, thread string) *story.State {
	t.Helper()
	s, err := m.Invoke(context.Background(), thread, story.Input{Instruction: "A heist", Details: "Set in Lisbon"})
	require.NoError(t, err)
	return s
}

func TestInvokeSavesState(t *testing.T) {
	m, _, store := newManager(t)
	ctx := context.Background()

	begin(t, m, "t1")
	s, err := m.Invoke(ctx, "t1", story.Input{ContinueInstructions: "the vault"})
	require.NoError(t, err)
	assert.Equal(t, chapter.ID(2), s.Current)

	saved, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Graph.Len())
	assert.Equal(t, chapter.ID(2), saved.Viewing)

	threads, err := m.Threads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, threads)
}

func TestStateOfNewThread(t *testing.T) {
	m, _, _ := newManager(t)
	s, err := m.State(context.Background(), "fresh")
	require.NoError(t, err)
	assert.True(t, s.Empty())
}

func TestFailedInvokeSavesNothing(t *testing.T) {
	m, runner, store := newManager(t)
	ctx := context.Background()
	begin(t, m, "t1")

	runner.fail.Store(true)
	_, err := m.Invoke(ctx, "t1", story.Input{RewriteInstructions: "faster"})
	require.Error(t, err)

	saved, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Graph.Len())
}

func TestViewAndSummarize(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	begin(t, m, "t1")
	_, err := m.Invoke(ctx, "t1", story.Input{ContinueInstructions: "next"})
	require.NoError(t, err)

	s, err := m.View(ctx, "t1", 1)
	require.NoError(t, err)
	assert.Equal(t, chapter.ID(1), s.Viewing)

	_, err = m.View(ctx, "t1", 7)
	assert.ErrorIs(t, err, story.ErrUnknownChapter)

	s, err = m.Summarize(ctx, "t1", 2)
	require.NoError(t, err)
	c, err := s.Graph.Get(2)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Summary)

	loaded, err := m.State(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, chapter.ID(1), loaded.Viewing)
}

func TestPacingDoesNotSave(t *testing.T) {
	m, _, store := newManager(t)
	ctx := context.Background()
	begin(t, m, "t1")
	before, err := store.Load(ctx, "t1")
	require.NoError(t, err)

	p, err := m.Pacing(ctx, "t1", chapter.None)
	require.NoError(t, err)
	assert.Equal(t, chapter.ID(1), p.Chapter)
	assert.Len(t, p.Scores, 1)

	after, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = m.Pacing(ctx, "fresh", chapter.None)
	assert.ErrorIs(t, err, story.ErrUnknownChapter)
	_, err = m.Pacing(ctx, "../etc", chapter.None)
	assert.ErrorIs(t, err, checkpoint.ErrInvalidThread)
}

func TestInvalidThread(t *testing.T) {
	m, _, _ := newManager(t)
	_, err := m.Invoke(context.Background(), "../etc", story.Input{})
	assert.ErrorIs(t, err, checkpoint.ErrInvalidThread)
}

func TestSameThreadIsSerialized(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	begin(t, m, "t1")

	const writers = 6
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Invoke(ctx, "t1", story.Input{ContinueInstructions: "more"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	s, err := m.State(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, writers+1, s.Graph.Len())
	assert.Equal(t, chapter.ID(writers+1), s.Current)
	require.NoError(t, s.Validate())
}

func TestThreadsAreIndependent(t *testing.T) {
	m, _, _ := newManager(t)
	begin(t, m, "a")
	begin(t, m, "b")

	a, err := m.State(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Graph.Len())
}

func TestNewThreadID(t *testing.T) {
	id := NewThreadID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NoError(t, checkpoint.ValidateThread(id))
	assert.NotEqual(t, id, NewThreadID())
}
