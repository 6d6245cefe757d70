// Package ai implements the OpenAI-compatible chat-completions collaborator.
// The client sends the assembled message list, parses the structured
// game-master reply, and absorbs transient failures: empty completions and
// rate-limit signatures are retried with linear backoff, and an exhausted
// retry budget surfaces as a nil response rather than an error so the caller
// owns the user-visible messaging.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client calls an OpenAI-compatible chat completions endpoint. Safe for
// concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
	timeout     time.Duration
	httpClient  *http.Client
}

// NewClient builds a client from configuration. Unset fields fall back to
// the standard defaults: api.openai.com, gpt-4o-mini, 60s timeout, 5s base
// retry delay.
func NewClient(cfg config.AIConfig) *Client {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 60 * time.Second
	}
	delay, err := time.ParseDuration(cfg.RetryDelay)
	if err != nil || delay <= 0 {
		delay = 5 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		maxRetries:  retries,
		retryDelay:  delay,
		timeout:     timeout,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Complete sends the message list and returns the parsed structured response.
// Empty completions, rate-limit signatures (zero completion tokens against
// non-zero prompt tokens), and transient transport failures are retried up to
// the configured ceiling with a linear backoff (base delay times the attempt
// number). After exhaustion Complete returns (nil, nil): the null response is
// the failure signal and the caller decides the user-visible messaging. A
// parent context deadline is the exception and surfaces immediately as
// *domain.TimeoutError.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage) (*domain.AIResponse, error) {
	timer := logging.StartTimer(logging.CategoryAI, "Client.Complete")
	defer timer.Stop()

	attempts := c.maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.complete(ctx, messages, attempt)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		var rateErr *domain.RateLimitError
		if errors.As(err, &rateErr) {
			logging.Get(logging.CategoryAI).Warn("Provider rate limited attempt %d/%d: %v",
				attempt, attempts, err)
		} else {
			logging.Get(logging.CategoryAI).Warn("AI attempt %d/%d failed: %v",
				attempt, attempts, err)
		}

		if attempt == attempts {
			break
		}
		delay := c.retryDelay * time.Duration(attempt)
		logging.AIDebug("Backing off %s before attempt %d", delay, attempt+1)
		select {
		case <-ctx.Done():
			return nil, ctxError(ctx, "ai completion backoff", delay)
		case <-time.After(delay):
		}
	}

	logging.Get(logging.CategoryAI).Error(
		"AI completion failed after %d attempts, returning null response", attempts)
	return nil, nil
}

// complete runs a single round-trip.
func (c *Client) complete(ctx context.Context, messages []domain.ChatMessage, attempt int) (*domain.AIResponse, error) {
	payload := chatRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: c.temperature,
	}
	for _, m := range messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	logging.AIDebug("Chat completion attempt %d: %d messages to %s (model %s)",
		attempt, len(payload.Messages), c.baseURL, c.model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctxError(ctx, "ai completion", c.timeout)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, &domain.TimeoutError{Op: "ai completion", After: c.timeout, Err: err}
		}
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading chat response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &domain.RateLimitError{Attempt: attempt}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat endpoint returned status %d: %s",
			resp.StatusCode, truncateForLog(string(data)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing chat response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("chat API error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}

	content := ""
	finishReason := ""
	if len(parsed.Choices) > 0 {
		content = strings.TrimSpace(parsed.Choices[0].Message.Content)
		finishReason = parsed.Choices[0].FinishReason
	}
	if content == "" {
		if parsed.Usage.PromptTokens > 0 && parsed.Usage.CompletionTokens == 0 {
			return nil, &domain.RateLimitError{
				Attempt:      attempt,
				PromptTokens: parsed.Usage.PromptTokens,
			}
		}
		return nil, fmt.Errorf("empty completion (finish reason %q)", finishReason)
	}

	response, err := parseAIResponse(content)
	if err != nil {
		return nil, fmt.Errorf("structured response parse failed: %w", err)
	}

	logging.AIDebug("Completion ok: %d prompt tokens, %d completion tokens, finish %q",
		parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, finishReason)
	return response, nil
}

// parseAIResponse decodes the model's JSON reply, tolerating markdown code
// fences around the object. A reply that decodes but carries neither
// narrative, dice requests, nor state updates counts as a parse failure.
func parseAIResponse(content string) (*domain.AIResponse, error) {
	var resp domain.AIResponse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &resp); err != nil {
		return nil, err
	}
	if resp.Narrative == "" && len(resp.DiceRequests) == 0 && len(resp.GameStateUpdates) == 0 {
		return nil, fmt.Errorf("response carries no narrative, dice requests, or state updates")
	}
	return &resp, nil
}

func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if i := strings.LastIndex(trimmed, "```"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.TrimSpace(trimmed)
}

func ctxError(ctx context.Context, op string, after time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.TimeoutError{Op: op, After: after, Err: ctx.Err()}
	}
	return ctx.Err()
}

func truncateForLog(s string) string {
	const max = 200
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
