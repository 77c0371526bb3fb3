package agent

import (
	"context"
	"time"

	"story-creation-assistant/client"
)

// DefaultTimeout bounds a single agent call.
const DefaultTimeout = 180 * time.Second

// BaseAgent sends one role's prompts to its provider client.
type BaseAgent struct {
	Config  Config
	client  client.Client
	timeout time.Duration
}

// NewBaseAgent creates a new BaseAgent. A zero timeout means DefaultTimeout.
func NewBaseAgent(config Config, c client.Client, timeout time.Duration) *BaseAgent {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &BaseAgent{
		Config:  config,
		client:  c,
		timeout: timeout,
	}
}

// request lays out the persona, the role prompt, then the human turns.
func (a *BaseAgent) request(in Input) client.Request {
	persona := in.Persona
	if persona == "" {
		persona = a.Config.Persona
	}

	messages := make([]client.Message, 0, len(in.Messages)+2)
	if persona != "" {
		messages = append(messages, client.Message{Role: client.RoleSystem, Content: personaMessage(persona)})
	}
	if a.Config.Prompt != "" {
		messages = append(messages, client.Message{Role: client.RoleSystem, Content: a.Config.Prompt})
	}
	for _, m := range in.Messages {
		if m == "" {
			continue
		}
		messages = append(messages, client.Message{Role: client.RoleUser, Content: m})
	}

	return client.Request{
		Model:       a.Config.Model,
		Messages:    messages,
		MaxTokens:   a.Config.MaxTokens,
		Temperature: a.Config.Temperature,
		Schema:      a.Config.Schema,
	}
}

func (a *BaseAgent) call(ctx context.Context, in Input) (*client.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	return a.client.Complete(callCtx, a.request(in))
}
