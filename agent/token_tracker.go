package agent

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"story-creation-assistant/client"
)

// UsageFile is the workspace file the tracker persists to.
const UsageFile = "token_usage.json"

// TokenUsage represents token consumption and cost for a single operation
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Cost         float64 `json:"cost_usd"`
}

func (t *TokenUsage) add(model string, inputTokens, outputTokens int) {
	t.InputTokens += inputTokens
	t.OutputTokens += outputTokens
	t.TotalTokens += inputTokens + outputTokens
	t.Cost += client.Cost(model, inputTokens, outputTokens)
}

// AgentTokenTracker tracks token usage for a specific agent
type AgentTokenTracker struct {
	AgentName   string     `json:"agent_name"`
	Model       string     `json:"model"`
	Usage       TokenUsage `json:"usage"`
	CallCount   int        `json:"call_count"`
	LastUpdated time.Time  `json:"last_updated"`
}

// SystemTokenTracker tracks token usage across all agents in the system
type SystemTokenTracker struct {
	TotalUsage   TokenUsage                    `json:"total_usage"`
	AgentUsage   map[string]*AgentTokenTracker `json:"agent_usage"`
	SessionStart time.Time                     `json:"session_start"`
	mu           sync.RWMutex
}

// FileStore is where the tracker saves and loads its usage file.
type FileStore interface {
	WriteFile(filename, content string) error
	ReadFile(filename string) (string, error)
}

// NewSystemTokenTracker creates a new system-wide token tracker
func NewSystemTokenTracker() *SystemTokenTracker {
	return &SystemTokenTracker{
		AgentUsage:   make(map[string]*AgentTokenTracker),
		SessionStart: time.Now(),
	}
}

// RecordUsage records token usage for a specific agent in a thread-safe manner
func (st *SystemTokenTracker) RecordUsage(agentName, model string, inputTokens, outputTokens int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	agent := st.AgentUsage[agentName]
	if agent == nil {
		agent = &AgentTokenTracker{AgentName: agentName}
		st.AgentUsage[agentName] = agent
	}
	agent.Model = model
	agent.Usage.add(model, inputTokens, outputTokens)
	agent.CallCount++
	agent.LastUpdated = time.Now()

	st.TotalUsage.add(model, inputTokens, outputTokens)
}

// GetTotalCost returns the total cost across all agents
func (st *SystemTokenTracker) GetTotalCost() float64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.TotalUsage.Cost
}

// GetTotalTokens returns the total token count across all agents
func (st *SystemTokenTracker) GetTotalTokens() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.TotalUsage.TotalTokens
}

// GetAgentUsage returns a copy of the token usage of one agent.
func (st *SystemTokenTracker) GetAgentUsage(agentName string) *TokenUsage {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if agent, exists := st.AgentUsage[agentName]; exists {
		usage := agent.Usage
		return &usage
	}
	return &TokenUsage{}
}

// SaveToFile writes the tracker as JSON to the usage file.
func (st *SystemTokenTracker) SaveToFile(store FileStore) error {
	st.mu.RLock()
	defer st.mu.RUnlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token data: %w", err)
	}

	return store.WriteFile(UsageFile, string(data))
}

// LoadFromFile restores a tracker saved by SaveToFile. A missing file leaves
// the tracker empty.
func (st *SystemTokenTracker) LoadFromFile(store FileStore) error {
	content, err := store.ReadFile(UsageFile)
	if err != nil {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if err := json.Unmarshal([]byte(content), st); err != nil {
		return fmt.Errorf("failed to parse %s: %w", UsageFile, err)
	}
	if st.AgentUsage == nil {
		st.AgentUsage = make(map[string]*AgentTokenTracker)
	}
	return nil
}

// GetSessionDuration returns how long the current session has been running
func (st *SystemTokenTracker) GetSessionDuration() time.Duration {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return time.Since(st.SessionStart)
}

// GetAgentStats returns a copy of the per-agent statistics.
func (st *SystemTokenTracker) GetAgentStats() map[string]AgentTokenTracker {
	st.mu.RLock()
	defer st.mu.RUnlock()

	stats := make(map[string]AgentTokenTracker, len(st.AgentUsage))
	for name, agent := range st.AgentUsage {
		stats[name] = *agent
	}
	return stats
}
