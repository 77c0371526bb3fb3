package client

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient sends generate-content requests to the Gemini API.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	config := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	contents, config, err := geminiParams(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("Gemini: %w", ErrEmptyResponse)
	}

	out := &Response{
		ID:    resp.ResponseID,
		Model: resp.ModelVersion,
		Text:  text,
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func geminiParams(req Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{}

	system := req.System()
	if req.Schema != nil {
		instruction, err := schemaInstruction(req.Schema)
		if err != nil {
			return nil, nil, err
		}
		system = append(system, instruction)
		config.ResponseMIMEType = "application/json"
	}
	if len(system) > 0 {
		parts := make([]*genai.Part, 0, len(system))
		for _, s := range system {
			parts = append(parts, genai.NewPartFromText(s))
		}
		config.SystemInstruction = &genai.Content{Parts: parts}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}

	turns := req.Turns()
	if len(turns) == 0 {
		return nil, nil, fmt.Errorf("Gemini: request has no user turns")
	}
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleUser))
	}
	return contents, config, nil
}
