// Package session runs story requests against checkpointed threads. Each
// thread has a single writer: calls on the same thread are serialized while
// different threads proceed independently.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"story-creation-assistant/chapter"
	"story-creation-assistant/checkpoint"
	"story-creation-assistant/story"
)

// Manager loads a thread's state, applies one engine operation and saves
// the result. A failed operation saves nothing.
type Manager struct {
	engine *story.Engine
	store  checkpoint.Store
	logger *log.Logger

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

func NewManager(engine *story.Engine, store checkpoint.Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		engine:  engine,
		store:   store,
		logger:  logger,
		threads: make(map[string]*sync.Mutex),
	}
}

// NewThreadID returns a fresh thread id.
func NewThreadID() string {
	return uuid.NewString()
}

func (m *Manager) lock(thread string) func() {
	m.mu.Lock()
	l, ok := m.threads[thread]
	if !ok {
		l = &sync.Mutex{}
		m.threads[thread] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// State returns the saved state of thread, or an empty state for a thread
// that has never been saved.
func (m *Manager) State(ctx context.Context, thread string) (*story.State, error) {
	s, err := m.store.Load(ctx, thread)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return story.NewState(), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// update runs fn on the current state of thread and saves what it returns.
func (m *Manager) update(ctx context.Context, thread string, fn func(*story.State) (*story.State, error)) (*story.State, error) {
	if err := checkpoint.ValidateThread(thread); err != nil {
		return nil, err
	}
	unlock := m.lock(thread)
	defer unlock()

	s, err := m.State(ctx, thread)
	if err != nil {
		return nil, fmt.Errorf("loading thread %s: %w", thread, err)
	}
	next, err := fn(s)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, thread, next); err != nil {
		return nil, fmt.Errorf("saving thread %s: %w", thread, err)
	}
	return next, nil
}

// Invoke routes in against the thread's state and applies it.
func (m *Manager) Invoke(ctx context.Context, thread string, in story.Input) (*story.State, error) {
	start := time.Now()
	var kind story.Kind
	next, err := m.update(ctx, thread, func(s *story.State) (*story.State, error) {
		kind = story.Classify(s, in)
		return m.engine.Invoke(ctx, s, in)
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("Thread updated", "thread", thread, "kind", kind, "chapter", next.Current, "duration", time.Since(start).Round(time.Millisecond))
	return next, nil
}

// View moves the thread's viewing pointer.
func (m *Manager) View(ctx context.Context, thread string, id chapter.ID) (*story.State, error) {
	return m.update(ctx, thread, func(s *story.State) (*story.State, error) {
		return m.engine.View(s, id)
	})
}

// Summarize stores a summary of one chapter of the thread.
func (m *Manager) Summarize(ctx context.Context, thread string, id chapter.ID) (*story.State, error) {
	return m.update(ctx, thread, func(s *story.State) (*story.State, error) {
		return m.engine.SummarizeChapter(ctx, s, id)
	})
}

// Pacing analyzes one chapter of the thread without saving anything.
func (m *Manager) Pacing(ctx context.Context, thread string, id chapter.ID) (story.Pacing, error) {
	if err := checkpoint.ValidateThread(thread); err != nil {
		return story.Pacing{}, err
	}
	s, err := m.State(ctx, thread)
	if err != nil {
		return story.Pacing{}, fmt.Errorf("loading thread %s: %w", thread, err)
	}
	return m.engine.AnalyzePacing(ctx, s, id)
}

// Threads lists the saved threads.
func (m *Manager) Threads(ctx context.Context) ([]string, error) {
	return m.store.Threads(ctx)
}
