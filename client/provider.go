package client

import (
	"context"
	"fmt"
)

// NewProvider builds the client for one provider API key.
func NewProvider(ctx context.Context, provider, apiKey, baseURL string) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, baseURL), nil
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey, baseURL), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey, baseURL)
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}
