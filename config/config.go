// Package config loads the assistant's settings: built-in defaults, then an
// optional YAML file, then a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"story-creation-assistant/agent"
	"story-creation-assistant/client"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = "story.yaml"

// Config is the complete assistant configuration.
type Config struct {
	Providers        map[string]ProviderConfig  `yaml:"providers"`
	Agents           map[agent.Role]AgentConfig `yaml:"agents,omitempty"`
	Timeout          time.Duration              `yaml:"timeout"`
	SummaryCacheSize int                        `yaml:"summary_cache_size"`
	DataDir          string                     `yaml:"data_dir"`
	Checkpoint       CheckpointConfig           `yaml:"checkpoint"`
	WorkspaceDir     string                     `yaml:"workspace_dir,omitempty"`
	LogLevel         string                     `yaml:"log_level"`
}

// ProviderConfig holds the credentials and limits of one model provider.
// Several keys are served round robin.
type ProviderConfig struct {
	APIKeys           []string `yaml:"api_keys,omitempty"`
	BaseURL           string   `yaml:"base_url,omitempty"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
	TokensPerMinute   int      `yaml:"tokens_per_minute"`
}

// AgentConfig overrides the defaults of one role.
type AgentConfig struct {
	Provider    string   `yaml:"provider,omitempty"`
	Model       string   `yaml:"model,omitempty"`
	Persona     string   `yaml:"persona,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

type CheckpointConfig struct {
	Driver string `yaml:"driver"`
	// Path is a directory for the file driver and a database file for
	// sqlite. Empty means a location under DataDir.
	Path string `yaml:"path,omitempty"`
}

var providerEnv = map[string]string{
	client.ProviderOpenAI:    "OPENAI_API_KEY",
	client.ProviderAnthropic: "ANTHROPIC_API_KEY",
	client.ProviderGemini:    "GEMINI_API_KEY",
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			client.ProviderOpenAI:    {RequestsPerMinute: 500, TokensPerMinute: 30000},
			client.ProviderAnthropic: {RequestsPerMinute: 50, TokensPerMinute: 40000},
			client.ProviderGemini:    {RequestsPerMinute: 60, TokensPerMinute: 32000},
		},
		Agents:           map[agent.Role]AgentConfig{},
		Timeout:          agent.DefaultTimeout,
		SummaryCacheSize: 128,
		DataDir:          ".story",
		Checkpoint:       CheckpointConfig{Driver: DriverFile},
		LogLevel:         "info",
	}
}

// Load reads path (skipped when empty) and the .env file of the working
// directory.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, ".env")
}

// LoadWithEnv is Load with an explicit .env file. A missing .env file is
// not an error; a missing config file is.
func LoadWithEnv(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	for provider, key := range providerEnv {
		keys := splitKeys(os.Getenv(key))
		if len(keys) == 0 {
			continue
		}
		p := c.Providers[provider]
		p.APIKeys = keys
		c.Providers[provider] = p
	}
	if dir := os.Getenv("STORY_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if level := os.Getenv("STORY_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if driver := os.Getenv("STORY_CHECKPOINT_DRIVER"); driver != "" {
		c.Checkpoint.Driver = driver
	}
	if size := os.Getenv("STORY_SUMMARY_CACHE_SIZE"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("STORY_SUMMARY_CACHE_SIZE: %w", err)
		}
		c.SummaryCacheSize = n
	}
	return nil
}

// splitKeys parses a comma separated key list.
func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Validate rejects unknown names and out of range values. Missing API keys
// are reported separately by CheckKeys.
func (c *Config) Validate() error {
	for name, p := range c.Providers {
		if _, ok := providerEnv[name]; !ok {
			return fmt.Errorf("unknown provider %q", name)
		}
		if p.RequestsPerMinute < 0 || p.TokensPerMinute < 0 {
			return fmt.Errorf("provider %s: limits must be non-negative", name)
		}
	}
	for role := range c.Agents {
		if !role.Valid() {
			return fmt.Errorf("unknown agent role %q", role)
		}
	}
	for _, a := range c.AgentConfigs() {
		if _, ok := providerEnv[a.Provider]; !ok {
			return fmt.Errorf("agent %s: unknown provider %q", a.Name, a.Provider)
		}
		if a.Temperature != nil && (*a.Temperature < 0 || *a.Temperature > 2) {
			return fmt.Errorf("agent %s: temperature must be between 0 and 2", a.Name)
		}
	}
	switch c.Checkpoint.Driver {
	case DriverFile, DriverSQLite:
	default:
		return fmt.Errorf("unknown checkpoint driver %q", c.Checkpoint.Driver)
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be non-negative")
	}
	if c.SummaryCacheSize < 0 {
		return errors.New("summary_cache_size must be non-negative")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// CheckKeys reports providers that agents use but that have no API key.
func (c *Config) CheckKeys() error {
	var missing []string
	for _, provider := range c.UsedProviders() {
		if len(c.Providers[provider].APIKeys) == 0 {
			missing = append(missing, fmt.Sprintf("%s (set %s)", provider, providerEnv[provider]))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing API keys for %s", strings.Join(missing, ", "))
	}
	return nil
}

// AgentConfigs returns the configuration of every role, defaults merged
// with overrides.
func (c *Config) AgentConfigs() []agent.Config {
	out := make([]agent.Config, 0, len(agent.Roles()))
	for _, role := range agent.Roles() {
		ac := agent.DefaultConfig(role)
		if o, ok := c.Agents[role]; ok {
			if o.Provider != "" {
				ac.Provider = o.Provider
			}
			if o.Model != "" {
				ac.Model = o.Model
			}
			if o.Persona != "" {
				ac.Persona = o.Persona
			}
			if o.MaxTokens > 0 {
				ac.MaxTokens = o.MaxTokens
			}
			if o.Temperature != nil {
				ac.Temperature = o.Temperature
			}
		}
		out = append(out, ac)
	}
	return out
}

// UsedProviders returns the providers agents are configured with, in
// role order.
func (c *Config) UsedProviders() []string {
	var out []string
	seen := map[string]bool{}
	for _, a := range c.AgentConfigs() {
		if !seen[a.Provider] {
			seen[a.Provider] = true
			out = append(out, a.Provider)
		}
	}
	return out
}

// Level returns the configured log level.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// CheckpointPath resolves the checkpoint location for the driver.
func (c *Config) CheckpointPath() string {
	if c.Checkpoint.Path != "" {
		return c.Checkpoint.Path
	}
	if c.Checkpoint.Driver == DriverSQLite {
		return filepath.Join(c.DataDir, "story.db")
	}
	return filepath.Join(c.DataDir, "threads")
}

// WorkspacePath resolves the export directory.
func (c *Config) WorkspacePath() string {
	if c.WorkspaceDir != "" {
		return c.WorkspaceDir
	}
	return filepath.Join(c.DataDir, "workspace")
}

// Write stores c as YAML. API keys are written too; keep the file private.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
