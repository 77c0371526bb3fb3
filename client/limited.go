package client

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"story-creation-assistant/ratelimiter"
)

const (
	DefaultRequestsPerMinute = 60
	DefaultTokensPerMinute   = 90000
)

// Limited wraps a provider client with request and token rate limits and
// logs every call with its usage and expected cost.
type Limited struct {
	client         Client
	provider       string
	logger         *log.Logger
	requestLimiter *ratelimiter.TokenBucket
	tokenLimiter   *ratelimiter.TokenBucket
}

type LimitedConfig struct {
	Provider          string
	RequestsPerMinute int
	TokensPerMinute   int
	Logger            *log.Logger
}

func NewLimited(c Client, config LimitedConfig) *Limited {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if config.TokensPerMinute <= 0 {
		config.TokensPerMinute = DefaultTokensPerMinute
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &Limited{
		client:         c,
		provider:       config.Provider,
		logger:         config.Logger,
		requestLimiter: ratelimiter.NewPerMinute(config.RequestsPerMinute),
		tokenLimiter:   ratelimiter.NewPerMinute(config.TokensPerMinute),
	}
}

func (c *Limited) Complete(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()
	inputTokens := EstimateTokens(req)

	if err := c.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("request rate limit exceeded: %w", err)
	}
	if err := c.tokenLimiter.WaitN(ctx, inputTokens); err != nil {
		return nil, fmt.Errorf("token rate limit exceeded: %w", err)
	}

	resp, err := c.client.Complete(ctx, req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Provider request failed",
			"provider", c.provider,
			"error", err,
			"model", req.Model,
			"input_tokens", inputTokens,
			"duration", duration,
		)
		return nil, err
	}

	if resp.InputTokens == 0 {
		resp.InputTokens = inputTokens
	}

	c.logger.Info("Provider request completed",
		"provider", c.provider,
		"model", req.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"expected_cost_usd", Cost(req.Model, resp.InputTokens, resp.OutputTokens),
		"duration", duration,
		"request_id", resp.ID,
	)

	return resp, nil
}

func (c *Limited) Close() {
	c.requestLimiter.Stop()
	c.tokenLimiter.Stop()
}

func (c *Limited) AvailableRequests() int {
	return c.requestLimiter.AvailableTokens()
}

func (c *Limited) AvailableTokens() int {
	return c.tokenLimiter.AvailableTokens()
}
