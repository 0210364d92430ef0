// Package ai calls OpenAI-compatible chat-completion endpoints.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
)

// ErrNoProvider is returned when no provider in the chain has an API key.
var ErrNoProvider = errors.New("no AI provider available")

// Provider is one chat-completion endpoint.
type Provider struct {
	Name   string
	URL    string
	APIKey string
	Model  string
}

// Request is a single-turn completion. ImageBase64, when set, is sent as a
// JPEG data URL next to the prompt.
type Request struct {
	System      string
	Prompt      string
	ImageBase64 string
	Temperature float64
	MaxTokens   int
}

// Client tries providers in order and returns the first successful reply.
type Client struct {
	text    []Provider
	vision  []Provider
	http    *http.Client
	timeout time.Duration
}

// NewClient builds the provider chains from cfg: OpenAI then DeepSeek for
// text, OpenAI then GLM for vision. Providers without a key are skipped.
func NewClient(cfg *config.Config) *Client {
	var text, vision []Provider
	if cfg.OpenAIAPIKey != "" {
		text = append(text, Provider{Name: "openai", URL: cfg.OpenAIAPIURL, APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
		vision = append(vision, Provider{Name: "openai", URL: cfg.OpenAIAPIURL, APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIVisionModel})
	}
	if cfg.DeepSeekAPIKey != "" {
		text = append(text, Provider{Name: "deepseek", URL: cfg.DeepSeekAPIURL, APIKey: cfg.DeepSeekAPIKey, Model: cfg.DeepSeekModel})
	}
	if cfg.GLMAPIKey != "" {
		vision = append(vision, Provider{Name: "glm", URL: cfg.GLMAPIURL, APIKey: cfg.GLMAPIKey, Model: cfg.GLMVisionModel})
	}
	return NewClientWithProviders(text, vision, cfg.AITimeout)
}

func NewClientWithProviders(text, vision []Provider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		text:    text,
		vision:  vision,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Configured reports whether a provider exists for text or vision requests.
func (c *Client) Configured(vision bool) bool {
	if c == nil {
		return false
	}
	if vision {
		return len(c.vision) > 0
	}
	return len(c.text) > 0
}

// Complete sends req down the matching provider chain.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	chain := c.text
	if req.ImageBase64 != "" {
		chain = c.vision
	}
	if len(chain) == 0 {
		return "", ErrNoProvider
	}

	var lastErr error
	for _, p := range chain {
		content, err := c.complete(ctx, p, req)
		if err == nil {
			return content, nil
		}
		slog.Warn("AI provider failed", "provider", p.Name, "model", p.Model, "error", err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("all AI providers failed: %w", lastErr)
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content interface{} `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, p Provider, req Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	if req.ImageBase64 != "" {
		messages = append(messages, chatMessage{Role: "user", Content: []chatContentPart{
			{Type: "text", Text: req.Prompt},
			{Type: "image_url", ImageURL: &chatImageURL{URL: "data:image/jpeg;base64," + req.ImageBase64, Detail: "auto"}},
		}})
	} else {
		messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	}

	payload, err := json.Marshal(chatRequest{
		Model:       p.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("AI API error: status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no response from AI")
	}

	switch v := completion.Choices[0].Message.Content.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case nil:
		return "", errors.New("empty response from AI")
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to extract content from AI response")
		}
		return string(b), nil
	}
}
