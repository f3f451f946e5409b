package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Completer produces a JSON-object completion for a system/user prompt
// pair. Implemented by ChatClient; tests inject their own.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Provider is an OpenAI-compatible chat-completions endpoint.
type Provider struct {
	Name     string
	Endpoint string
	Model    string
	APIKey   string
}

// ResolveProvider picks the enrichment provider by which credential is
// present: Moonshot (Kimi) wins over OpenAI. Returns nil when neither
// key is configured, in which case enrichment degrades to pass-through.
func ResolveProvider(kimiKey, openAIKey string) *Provider {
	if kimiKey != "" {
		return &Provider{
			Name:     "kimi",
			Endpoint: "https://api.moonshot.cn/v1/chat/completions",
			Model:    "moonshot-v1-8k",
			APIKey:   kimiKey,
		}
	}
	if openAIKey != "" {
		return &Provider{
			Name:     "openai",
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o",
			APIKey:   openAIKey,
		}
	}
	return nil
}

// ChatClient talks to an OpenAI-compatible chat-completions API.
type ChatClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ Completer = (*ChatClient)(nil)

func NewChatClient(provider Provider) *ChatClient {
	return &ChatClient{
		endpoint: provider.Endpoint,
		model:    provider.Model,
		apiKey:   provider.APIKey,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat completion request in JSON-object mode and
// returns the raw completion content.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
	}
	payload.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat completion error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}

	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty completion")
	}

	return parsed.Choices[0].Message.Content, nil
}
