// Package llmclient talks to an OpenAI-compatible chat completions endpoint
// and turns the model's answer into analysis issues.
//
// Example usage:
//
//	client, err := llmclient.New("https://api.deepseek.com", llmclient.WithToken(key))
//	issues, err := client.Analyze(ctx, analysis.File{Path: "test_x.py", Content: src})
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nomis52/agentpipe/analysis"
	"github.com/nomis52/agentpipe/logging"
)

const (
	chatPath       = "/v1/chat/completions"
	defaultModel   = "deepseek-chat"
	defaultTimeout = 60 * time.Second
)

// Client is a chat completions client.
// Use New() to create a client for a given endpoint.
type Client struct {
	baseURL     *url.URL
	token       string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithModel sets the model name sent with every request.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

// New creates a Client for host, which should include the scheme
// (e.g. "https://api.deepseek.com").
func New(host string, opts ...Option) (*Client, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host URL: %w", err)
	}
	c := &Client{
		baseURL:    u,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "llmclient")
	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Analyze asks the model to review the test functions in f.
func (c *Client) Analyze(ctx context.Context, f analysis.File) ([]analysis.Issue, error) {
	content, err := c.Complete(ctx, []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: userPrompt(f)},
	})
	if err != nil {
		return nil, err
	}

	var review reviewResponse
	if err := ParseJSON(content, &review); err != nil {
		return nil, fmt.Errorf("failed to parse review of %s: %w", f.Path, err)
	}
	c.logger.DebugContext(ctx, "review parsed", "path", f.Path, "issues", len(review.Issues), "quality", review.OverallQuality)
	return review.toIssues(f.Path), nil
}

// Complete sends messages and returns the content of the first choice.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, http.MethodPost, chatPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", ErrNoChoices
	}
	c.logger.DebugContext(ctx, "completion received",
		"model", chat.Model,
		"duration", time.Since(start),
		"total_tokens", chat.Usage.TotalTokens)
	return chat.Choices[0].Message.Content, nil
}

func (c *Client) buildURL(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	u, err := c.buildURL(path)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.DebugContext(ctx, "sending request", "method", method, "url", u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
