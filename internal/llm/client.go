// Package llm talks to an OpenAI-compatible chat completion API.
//
// Groq serves the OpenAI wire format under its own base URL, so the stock
// go-openai client is used with BaseURL swapped. Outbound requests go through
// an otelhttp transport, which records a client span and injects the trace
// context of the request that triggered the call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrMissingAPIKey is returned without contacting the upstream when the
// client was built with an empty key.
var ErrMissingAPIKey = errors.New("llm: api key not configured")

// ErrEmptyResponse means the upstream answered 200 with no choices.
var ErrEmptyResponse = errors.New("llm: response contained no choices")

// ChatRequest is a single system+user exchange.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Client wraps go-openai's client.
type Client struct {
	api    *openai.Client
	hasKey bool
}

// NewClient builds a client for baseURL (e.g. https://api.groq.com/openai/v1).
// An empty baseURL keeps go-openai's default. opts configure the tracing
// transport; without them the global tracer provider and propagator are used.
func NewClient(apiKey, baseURL string, opts ...otelhttp.Option) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport, opts...),
	}

	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		hasKey: apiKey != "",
	}
}

// Complete sends the exchange and returns the first choice's content as-is.
// No retries: a failure is reported to the caller immediately.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if !c.hasKey {
		return "", ErrMissingAPIKey
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: wireTemperature(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

// wireTemperature works around the omitempty tag on the request's
// temperature: a literal 0 would be dropped and the upstream default used.
func wireTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// StatusCode extracts the upstream HTTP status from an error returned by
// Complete, or 0 when the failure never got an HTTP response.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
