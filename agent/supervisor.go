package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"story-creation-assistant/client"
)

// Team holds one agent per role and runs them on behalf of the story
// engine, tracking token usage and publishing progress.
type Team struct {
	agents       map[Role]*BaseAgent
	tracker      *SystemTokenTracker
	progressChan chan ProgressUpdate
	logger       *log.Logger
	mu           sync.RWMutex
}

type TeamConfig struct {
	// Agents configures the roles; roles left out fall back to
	// DefaultConfig.
	Agents []Config
	// Clients maps a provider name to its client.
	Clients map[string]client.Client
	Timeout time.Duration
	Tracker *SystemTokenTracker
	Logger  *log.Logger
}

// NewTeam builds an agent for every role. It fails when a role's provider
// has no client.
func NewTeam(config TeamConfig) (*Team, error) {
	if config.Tracker == nil {
		config.Tracker = NewSystemTokenTracker()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	configured := make(map[Role]Config, len(config.Agents))
	for _, c := range config.Agents {
		if !c.Name.Valid() {
			return nil, fmt.Errorf("unknown agent role %q", c.Name)
		}
		configured[c.Name] = c
	}

	t := &Team{
		agents:       make(map[Role]*BaseAgent),
		tracker:      config.Tracker,
		progressChan: make(chan ProgressUpdate, progressBuffer),
		logger:       config.Logger,
	}
	for _, role := range Roles() {
		c, ok := configured[role]
		if !ok {
			c = DefaultConfig(role)
		}
		c = complete(c)
		cl, ok := config.Clients[c.Provider]
		if !ok {
			return nil, fmt.Errorf("agent %s: no client for provider %q", role, c.Provider)
		}
		t.agents[role] = NewBaseAgent(c, cl, config.Timeout)
	}
	return t, nil
}

// complete fills the built-in prompt of a role and, for titlers on a model
// that honours it, the response schema. Other titlers answer in plain text,
// which ParseTitle accepts.
func complete(c Config) Config {
	if c.Prompt == "" {
		c.Prompt = Prompt(c.Name)
	}
	if c.Schema == nil && isTitler(c.Name) && client.SupportsStructuredOutput(c.Provider, c.Model) {
		c.Schema = TitleSchema()
	}
	return c
}

// DefaultConfig returns the provider, model and persona a role uses when
// nothing is configured.
func DefaultConfig(role Role) Config {
	c := Config{Name: role, Provider: client.ProviderOpenAI, Model: "gpt-4"}
	switch role {
	case ChapterOutliner:
		c.Provider, c.Model = client.ProviderAnthropic, "claude-3-haiku-20240307"
	case ChapterWriter:
		c.Provider, c.Model = client.ProviderAnthropic, "claude-3-5-sonnet-20240620"
	case Summarizer, ChapterTitler, StoryTitler:
		c.Model = "gpt-4o"
	case PacingAnalyzer:
		c.Model, c.MaxTokens = "gpt-4o-mini", 500
	}
	c.Persona = DefaultPersonas().For(role)
	return c
}

// GetAgent returns the agent of a role.
func (t *Team) GetAgent(role Role) (*BaseAgent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.agents[role]
	return a, ok
}

// Progress returns the channel progress updates are published on.
func (t *Team) Progress() <-chan ProgressUpdate {
	return t.progressChan
}

// Tracker returns the token tracker.
func (t *Team) Tracker() *SystemTokenTracker {
	return t.tracker
}

// Run calls the agent of role. Every failure is returned as a
// *GenerationError.
func (t *Team) Run(ctx context.Context, role Role, in Input) (string, error) {
	a, ok := t.GetAgent(role)
	if !ok {
		return "", &GenerationError{Role: role, Err: errors.New("no agent for role")}
	}

	t.sendProgress(role, StatusStarted, fmt.Sprintf("%s started", role), nil)
	start := time.Now()

	resp, err := a.call(ctx, in)
	if err != nil {
		t.logger.Error("Agent call failed", "role", role, "model", a.Config.Model, "error", err)
		t.sendProgress(role, StatusError, fmt.Sprintf("%s failed", role), err)
		return "", &GenerationError{Role: role, Err: err}
	}
	t.tracker.RecordUsage(string(role), a.Config.Model, resp.InputTokens, resp.OutputTokens)

	text := strings.TrimSpace(resp.Text)
	if isTitler(role) {
		text = ParseTitle(text)
	}
	if text == "" {
		t.sendProgress(role, StatusError, fmt.Sprintf("%s returned nothing", role), ErrEmptyOutput)
		return "", &GenerationError{Role: role, Err: ErrEmptyOutput}
	}

	t.logger.Debug("Agent call completed", "role", role, "model", a.Config.Model, "duration", time.Since(start))
	t.sendProgress(role, StatusCompleted, fmt.Sprintf("%s completed", role), nil)
	return text, nil
}
