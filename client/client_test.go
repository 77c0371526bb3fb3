package client

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	resp  *Response
	err   error
	calls int
	last  Request
}

func (f *fakeClient) Complete(ctx context.Context, req Request) (*Response, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	r := *f.resp
	return &r, nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func sampleRequest() Request {
	return Request{
		Model: "gpt-4o",
		Messages: []Message{
			{Role: RoleSystem, Content: "Imagine you are Lev Tolstoy."},
			{Role: RoleSystem, Content: "You brainstorm chapters."},
			{Role: RoleUser, Content: "Summary so far."},
			{Role: RoleUser, Content: "Write the next chapter."},
		},
	}
}

func TestRequestSplitsSystemAndTurns(t *testing.T) {
	req := sampleRequest()
	assert.Equal(t, []string{"Imagine you are Lev Tolstoy.", "You brainstorm chapters."}, req.System())
	turns := req.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "Write the next chapter.", turns[1].Content)
}

func TestEstimateTokens(t *testing.T) {
	empty := Request{Model: "gpt-4o", Messages: []Message{{Role: RoleUser}}}
	assert.Equal(t, 2+4, EstimateTokens(empty))

	short := Request{Model: "gpt-4o", Messages: []Message{{Role: RoleUser, Content: "The lighthouse keeper"}}}
	long := Request{Model: "gpt-4o", Messages: []Message{{Role: RoleUser, Content: strings.Repeat("The lighthouse keeper ", 50)}}}
	assert.Greater(t, EstimateTokens(short), 2+4)
	assert.Greater(t, EstimateTokens(long), EstimateTokens(short))
}

func TestEstimateTokensUnknownModel(t *testing.T) {
	// claude models have no tiktoken encoding of their own
	req := Request{Model: "claude-3-5-sonnet-20240620", Messages: []Message{{Role: RoleUser, Content: "Salt and iron"}}}
	assert.Greater(t, EstimateTokens(req), 2+4)
	assert.Equal(t, EstimateTokens(req), EstimateTokens(req))
}

func TestApproximateTokens(t *testing.T) {
	assert.Equal(t, 2, approximateTokens("abcdefgh"))
	assert.Equal(t, 0, approximateTokens(""))
}

func TestLimitedPassesThrough(t *testing.T) {
	fake := &fakeClient{resp: &Response{ID: "r1", Text: "ideas", OutputTokens: 12}}
	c := NewLimited(fake, LimitedConfig{Provider: ProviderOpenAI, Logger: quietLogger()})
	defer c.Close()

	resp, err := c.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "ideas", resp.Text)
	assert.Equal(t, EstimateTokens(sampleRequest()), resp.InputTokens)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, DefaultRequestsPerMinute-1, c.AvailableRequests())
}

func TestLimitedKeepsReportedUsage(t *testing.T) {
	fake := &fakeClient{resp: &Response{Text: "ok", InputTokens: 300, OutputTokens: 5}}
	c := NewLimited(fake, LimitedConfig{Logger: quietLogger()})
	defer c.Close()

	resp, err := c.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 300, resp.InputTokens)
}

func TestLimitedPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	c := NewLimited(&fakeClient{err: boom}, LimitedConfig{Logger: quietLogger()})
	defer c.Close()

	_, err := c.Complete(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, boom)
}

func TestLimitedRespectsCancellation(t *testing.T) {
	fake := &fakeClient{resp: &Response{Text: "ok"}}
	c := NewLimited(fake, LimitedConfig{RequestsPerMinute: 1, Logger: quietLogger()})
	defer c.Close()

	_, err := c.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Complete(ctx, sampleRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.calls)
}

func TestPricingFor(t *testing.T) {
	assert.Equal(t, modelPricing["gpt-4o"], PricingFor("gpt-4o"))
	assert.Equal(t, modelPricing["gpt-4o-mini"], PricingFor("gpt-4o-mini-2024-07-18"))
	assert.Equal(t, modelPricing["gemini-2.5-flash"], PricingFor("gemini-2.5-flash-lite"))
	assert.Equal(t, modelPricing[fallbackModel], PricingFor("mystery"))
	assert.InDelta(t, 0.03+0.06, Cost("gpt-4", 1000, 1000), 1e-9)
}

func TestOpenAIParams(t *testing.T) {
	temp := 0.7
	req := sampleRequest()
	req.MaxTokens = 200
	req.Temperature = &temp
	req.Schema = &Schema{Name: "chapter_title", Description: "A title", Definition: map[string]any{"type": "object"}}

	params := openAIParams(req)
	assert.Len(t, params.Messages, 4)
	assert.Equal(t, "gpt-4o", string(params.Model))
	assert.Equal(t, int64(200), params.MaxCompletionTokens.Value)
	assert.Equal(t, 0.7, params.Temperature.Value)
	require.NotNil(t, params.ResponseFormat.OfJSONSchema)
	assert.Equal(t, "chapter_title", params.ResponseFormat.OfJSONSchema.JSONSchema.Name)
}

func TestOpenAIParamsSchemaFallback(t *testing.T) {
	req := sampleRequest()
	req.Model = "gpt-4"
	req.Schema = &Schema{Name: "chapter_title", Description: "A title", Definition: map[string]any{"type": "object"}}

	params := openAIParams(req)
	assert.Nil(t, params.ResponseFormat.OfJSONSchema)
	require.Len(t, params.Messages, 5)
	require.NotNil(t, params.Messages[4].OfSystem)
	assert.Contains(t, params.Messages[4].OfSystem.Content.OfString.Value, "JSON schema")
}

func TestSupportsStructuredOutput(t *testing.T) {
	tests := []struct {
		provider, model string
		want            bool
	}{
		{ProviderOpenAI, "gpt-4o", true},
		{ProviderOpenAI, "gpt-4o-mini-2024-07-18", true},
		{ProviderOpenAI, "gpt-4o-2024-05-13", false},
		{ProviderOpenAI, "gpt-4.1", true},
		{ProviderOpenAI, "gpt-4", false},
		{ProviderOpenAI, "gpt-3.5-turbo", false},
		{ProviderAnthropic, "claude-3-haiku-20240307", true},
		{ProviderGemini, "gemini-2.5-flash", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, SupportsStructuredOutput(tt.provider, tt.model))
		})
	}
}

func TestAnthropicParamsMergesTurns(t *testing.T) {
	req := sampleRequest()
	req.Model = "claude-3-haiku-20240307"

	params, err := anthropicParams(req)
	require.NoError(t, err)
	assert.Len(t, params.System, 2)
	require.Len(t, params.Messages, 1)
	assert.Len(t, params.Messages[0].Content, 2)
	assert.Equal(t, int64(defaultAnthropicMaxTokens), params.MaxTokens)
}

func TestAnthropicParamsSchemaInstruction(t *testing.T) {
	req := sampleRequest()
	req.Schema = &Schema{Name: "t", Description: "a title", Definition: map[string]any{"type": "object"}}

	params, err := anthropicParams(req)
	require.NoError(t, err)
	require.Len(t, params.System, 3)
	assert.Contains(t, params.System[2].Text, `"type":"object"`)
}

func TestAnthropicParamsRequiresTurns(t *testing.T) {
	_, err := anthropicParams(Request{Messages: []Message{{Role: RoleSystem, Content: "x"}}})
	assert.Error(t, err)
}

func TestGeminiParams(t *testing.T) {
	temp := 0.5
	req := sampleRequest()
	req.Temperature = &temp
	req.MaxTokens = 100
	req.Schema = &Schema{Name: "t", Definition: map[string]any{"type": "object"}}

	contents, config, err := geminiParams(req)
	require.NoError(t, err)
	assert.Len(t, contents, 2)
	require.NotNil(t, config.SystemInstruction)
	assert.Len(t, config.SystemInstruction.Parts, 3)
	assert.Equal(t, "application/json", config.ResponseMIMEType)
	assert.Equal(t, int32(100), config.MaxOutputTokens)
	require.NotNil(t, config.Temperature)
	assert.Equal(t, float32(0.5), *config.Temperature)
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), "mistral", "key", "")
	assert.Error(t, err)
}
