// Package llm implements the LM Client (spec §4.5, C4): the sole
// component that ever calls out to a language model. Every call first
// consults the Cache Layer; a miss then passes through a rate limiter, a
// circuit breaker, and a bounded retry loop, in that order, before
// reaching the wire.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/tarsy-labs/sqlagent-core/pkg/cache"
	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// Config controls the resilience envelope around every call. NewClient
// uses every field as given; zero values are not replaced by Defaults().
type Config struct {
	Model              string
	APIKey             string
	BaseURL            string // non-empty routes through a LiteLLM-compatible gateway
	RequestsPerMinute  float64
	CallTimeout        time.Duration
	CacheTTL           time.Duration
	MaxRetries         int
	BaseBackoff        time.Duration
	MaxBackoff         time.Duration
	BreakerMaxFailures uint32
	BreakerCooldown    time.Duration
}

// Defaults mirrors spec §6's configuration table for the LM Client.
func Defaults() Config {
	return Config{
		Model:              "claude-haiku-4-5",
		RequestsPerMinute:  60,
		CallTimeout:        15 * time.Second,
		CacheTTL:           5 * time.Minute,
		MaxRetries:         3,
		BaseBackoff:        500 * time.Millisecond,
		MaxBackoff:         8 * time.Second,
		BreakerMaxFailures: 5,
		BreakerCooldown:    30 * time.Second,
	}
}

// Client is the production LM Client backed by the Anthropic API (or
// any LiteLLM-compatible gateway reachable at Config.BaseURL).
type Client struct {
	anthropic anthropic.Client
	model     anthropic.Model
	cfg       Config
	cache     cache.Cache
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
}

// NewClient builds a Client. c is the Cache Layer used for the
// lm_response namespace.
func NewClient(cfg Config, c cache.Cache) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "lm-client",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("lm client circuit breaker state change", "breaker", name, "from", from, "to", to)
		},
	})

	return &Client{
		anthropic: anthropic.NewClient(opts...),
		model:     anthropic.Model(cfg.Model),
		cfg:       cfg,
		cache:     c,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), int(cfg.RequestsPerMinute)),
		breaker:   breaker,
	}
}

// Complete issues a single-turn completion, consulting and populating
// the lm_response cache entry for (systemPrompt, userPrompt, temperature,
// model). A cache hit bypasses the rate limiter, breaker, and retry
// loop entirely.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	key := cache.LMResponseKey(systemPrompt, userPrompt, temperature, c.cfg.Model)
	if raw, ok, err := c.cache.Get(ctx, cache.NamespaceLMResponse, key); err == nil && ok {
		return string(raw), nil
	}

	text, err := c.callWithResilience(ctx, systemPrompt, userPrompt, temperature)
	if err != nil {
		return "", err
	}

	if putErr := c.cache.Put(ctx, cache.NamespaceLMResponse, key, []byte(text), c.cfg.CacheTTL); putErr != nil {
		slog.Warn("llm: cache response failed", "error", putErr)
	}
	return text, nil
}

// CompleteJSON is Complete plus strict decoding of the response into
// target. A parse failure is never retried — the Agent's calling stage
// decides whether to fall back or fail the Job.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, temperature float64, target any) error {
	text, err := c.Complete(ctx, systemPrompt, userPrompt, temperature)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), target); err != nil {
		return models.NewKindError(models.ErrorKindSQLSynthesisFailed, "", fmt.Errorf("llm: decode json response: %w", err))
	}
	return nil
}

func (c *Client) callWithResilience(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", models.NewKindError(models.ErrorKindTimeout, "", err)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.retryingCall(ctx, systemPrompt, userPrompt, temperature)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", models.NewKindError(models.ErrorKindLMUnavailable, "", err)
		}
		return "", err
	}
	return result.(string), nil
}

func (c *Client) retryingCall(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BaseBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.MaxElapsedTime = 0 // bounded by MaxRetries below, not by elapsed wall time
	bounded := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)

	var text string
	op := func() error {
		out, callErr := c.singleCall(ctx, systemPrompt, userPrompt, temperature)
		if callErr != nil {
			if !isRetryable(callErr) {
				return backoff.Permanent(callErr)
			}
			return callErr
		}
		text = out
		return nil
	}

	if err := backoff.Retry(op, bounded); err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return "", classifyCallError(permanent.Err)
		}
		return "", classifyCallError(err)
	}
	return text, nil
}

func (c *Client) singleCall(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.anthropic.Messages.New(callCtx, params)
	if err != nil {
		return "", err
	}
	if len(message.Content) == 0 {
		return "", errors.New("llm: empty response content")
	}
	block := message.Content[0]
	if block.Type != "text" {
		return "", fmt.Errorf("llm: unexpected response block type %q", block.Type)
	}
	return block.Text, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

func classifyCallError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewKindError(models.ErrorKindTimeout, "", err)
	}
	return models.NewKindError(models.ErrorKindLMUnavailable, "", err)
}
