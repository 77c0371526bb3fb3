package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicClient sends message requests to Anthropic.
type AnthropicClient struct {
	client anthropic.Client
}

func NewAnthropicClient(apiKey, baseURL string) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...)}
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	params, err := anthropicParams(req)
	if err != nil {
		return nil, err
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("Anthropic: %w", ErrEmptyResponse)
	}

	return &Response{
		ID:           msg.ID,
		Model:        string(msg.Model),
		Text:         text.String(),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

// anthropicParams merges consecutive user turns into one message with one
// text block per turn.
func anthropicParams(req Request) (anthropic.MessageNewParams, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	system := req.System()
	if req.Schema != nil {
		instruction, err := schemaInstruction(req.Schema)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		system = append(system, instruction)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
	}
	for _, s := range system {
		params.System = append(params.System, anthropic.TextBlockParam{Text: s})
	}

	var blocks []anthropic.ContentBlockParamUnion
	for _, turn := range req.Turns() {
		blocks = append(blocks, anthropic.NewTextBlock(turn.Content))
	}
	if len(blocks) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("Anthropic: request has no user turns")
	}
	params.Messages = []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)}

	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	return params, nil
}

// schemaInstruction turns a response schema into a system instruction for
// providers that cannot enforce one.
func schemaInstruction(s *Schema) (string, error) {
	definition, err := json.Marshal(s.Definition)
	if err != nil {
		return "", fmt.Errorf("failed to marshal response schema %s: %w", s.Name, err)
	}
	return fmt.Sprintf("Respond only with a JSON object (%s) matching this JSON schema:\n%s", s.Description, definition), nil
}
