package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient sends chat completion requests to OpenAI.
type OpenAIClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...)}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openAIParams(req))
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("OpenAI: %w", ErrEmptyResponse)
	}

	return &Response{
		ID:           resp.ID,
		Model:        resp.Model,
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func openAIParams(req Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			messages = append(messages, openai.SystemMessage(m.Content))
			continue
		}
		messages = append(messages, openai.UserMessage(m.Content))
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(req.Model),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.Schema != nil && !SupportsStructuredOutput(ProviderOpenAI, req.Model) {
		if instruction, err := schemaInstruction(req.Schema); err == nil {
			params.Messages = append(params.Messages, openai.SystemMessage(instruction))
		}
	} else if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.Schema.Name,
					Description: openai.String(req.Schema.Description),
					Schema:      req.Schema.Definition,
					Strict:      openai.Bool(true),
				},
			},
		}
	}
	return params
}

// structuredOutputModels are the OpenAI model families that accept a
// json_schema response format.
var structuredOutputModels = []string{"gpt-4o", "gpt-4.1", "gpt-5", "o1", "o3", "o4"}

// SupportsStructuredOutput reports whether a schema attached to a request for
// model is honoured. Anthropic and Gemini receive it as an instruction, so
// only OpenAI models are restricted.
func SupportsStructuredOutput(provider, model string) bool {
	if provider != ProviderOpenAI {
		return true
	}
	if model == "gpt-4o-2024-05-13" || model == "o1-mini" || model == "o1-preview" {
		return false
	}
	for _, prefix := range structuredOutputModels {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
