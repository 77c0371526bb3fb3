// Package client talks to the language model providers. Every provider is
// exposed through the same Client interface so agents can be pointed at any
// of them from configuration.
package client

import (
	"context"
	"errors"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty response from provider")

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Message struct {
	Role    Role
	Content string
}

// Schema asks the provider for a JSON object matching Definition. Providers
// without native support receive the schema as an extra instruction.
type Schema struct {
	Name        string
	Description string
	Definition  any
}

type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
	Schema      *Schema
}

// System returns the system messages in order.
func (r Request) System() []string {
	var out []string
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			out = append(out, m.Content)
		}
	}
	return out
}

// Turns returns the non-system messages in order.
func (r Request) Turns() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

type Response struct {
	ID           string
	Model        string
	Text         string
	InputTokens  int
	OutputTokens int
}

// Client sends one completion request to a provider.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// EstimateTokens counts the input tokens of req with the tiktoken encoding of
// its model, falling back to cl100k_base for models tiktoken does not know.
// Every message adds 4 tokens of framing and the reply priming adds 2.
func EstimateTokens(req Request) int {
	enc := encodingFor(req.Model)
	tokens := 2
	for _, m := range req.Messages {
		if enc != nil {
			tokens += len(enc.Encode(m.Content, nil, nil))
		} else {
			tokens += approximateTokens(m.Content)
		}
		tokens += 4
	}
	return tokens
}

var encodings sync.Map

// encodingFor returns nil when no encoding can be loaded, for example when
// the BPE ranks cannot be downloaded. The result is remembered per model.
func encodingFor(model string) *tiktoken.Tiktoken {
	if enc, ok := encodings.Load(model); ok {
		return enc.(*tiktoken.Tiktoken)
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	encodings.Store(model, enc)
	return enc
}

// approximateTokens assumes four characters per token.
func approximateTokens(s string) int {
	return len(s) / 4
}
