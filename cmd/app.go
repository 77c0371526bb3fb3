package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"story-creation-assistant/agent"
	"story-creation-assistant/checkpoint"
	"story-creation-assistant/client"
	"story-creation-assistant/config"
	"story-creation-assistant/router"
	"story-creation-assistant/session"
	"story-creation-assistant/story"
	"story-creation-assistant/workspace"
)

// errNoModels is returned by model calls of commands that only read stories.
var errNoModels = errors.New("this command does not call models")

type offlineRunner struct{}

func (offlineRunner) Run(ctx context.Context, role agent.Role, in agent.Input) (string, error) {
	return "", &agent.GenerationError{Role: role, Err: errNoModels}
}

// app wires configuration into the story engine and its hosts.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	team      *agent.Team
	limited   []*client.Limited
	store     checkpoint.Store
	session   *session.Manager
	workspace *workspace.Manager
}

// newApp opens the checkpoint store and workspace. With models set it also
// builds a client per API key and the agent team on top of them.
func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger, models bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	ws, err := workspace.NewManager(cfg.WorkspacePath())
	if err != nil {
		return nil, err
	}
	a.workspace = ws

	var runner agent.Runner = offlineRunner{}
	if models {
		team, err := a.buildTeam(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.team = team
		runner = team
	}

	engine, err := story.NewEngine(runner, story.Options{
		SummaryCacheSize: cfg.SummaryCacheSize,
		Logger:           logger.WithPrefix("engine"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := checkpoint.Open(cfg.Checkpoint.Driver, cfg.CheckpointPath())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.session = session.NewManager(engine, store, logger.WithPrefix("session"))
	return a, nil
}

func (a *app) buildTeam(ctx context.Context) (*agent.Team, error) {
	if err := a.cfg.CheckKeys(); err != nil {
		return nil, err
	}

	clients := make(map[string]client.Client)
	for _, provider := range a.cfg.UsedProviders() {
		pc := a.cfg.Providers[provider]
		var keyed []client.Client
		for _, key := range pc.APIKeys {
			c, err := client.NewProvider(ctx, provider, key, pc.BaseURL)
			if err != nil {
				return nil, fmt.Errorf("creating %s client: %w", provider, err)
			}
			l := client.NewLimited(c, client.LimitedConfig{
				Provider:          provider,
				RequestsPerMinute: pc.RequestsPerMinute,
				TokensPerMinute:   pc.TokensPerMinute,
				Logger:            a.logger.WithPrefix(provider),
			})
			a.limited = append(a.limited, l)
			keyed = append(keyed, l)
		}
		if len(keyed) == 1 {
			clients[provider] = keyed[0]
		} else {
			clients[provider] = router.NewRouter(provider, keyed, a.logger.WithPrefix("router"))
		}
	}

	tracker := agent.NewSystemTokenTracker()
	if err := tracker.LoadFromFile(a.workspace); err != nil {
		a.logger.Warn("Ignoring token usage file", "error", err)
	}

	return agent.NewTeam(agent.TeamConfig{
		Agents:  a.cfg.AgentConfigs(),
		Clients: clients,
		Timeout: a.cfg.Timeout,
		Tracker: tracker,
		Logger:  a.logger.WithPrefix("agent"),
	})
}

// logProgress writes agent progress to the debug log until ctx is done.
func (a *app) logProgress(ctx context.Context) {
	if a.team == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-a.team.Progress():
				a.logger.Debug("Agent progress", "agent", u.AgentName, "status", u.Status, "tokens", u.TotalTokens, "cost", fmt.Sprintf("$%.4f", u.TotalCost))
			}
		}
	}()
}

// Close saves token usage and releases clients and the store.
func (a *app) Close() {
	if a.team != nil {
		if err := a.team.Tracker().SaveToFile(a.workspace); err != nil {
			a.logger.Warn("Saving token usage failed", "error", err)
		}
	}
	for _, l := range a.limited {
		l.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Closing checkpoint store failed", "error", err)
		}
	}
}
