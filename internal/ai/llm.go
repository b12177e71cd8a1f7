package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aktagon/llmkit/anthropic"
	anthropictypes "github.com/aktagon/llmkit/anthropic/types"

	"github.com/IshaanNene/NewsHarvest/internal/config"
)

// LLMProvider specifies which LLM backend to use.
type LLMProvider string

const (
	ProviderOllama    LLMProvider = "ollama"
	ProviderOpenAI    LLMProvider = "openai"
	ProviderAnthropic LLMProvider = "anthropic"
)

// Generator produces a completion for a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// anthropicPrompt matches anthropic.PromptWithSettings.
type anthropicPrompt func(system, user, schema, apiKey string, settings anthropictypes.RequestSettings) (string, error)

// LLMClient communicates with an LLM for AI-assisted processing.
type LLMClient struct {
	cfg       config.LLMConfig
	client    *http.Client
	anthropic anthropicPrompt
	logger    *slog.Logger
}

// NewLLMClient creates a new LLM client.
func NewLLMClient(cfg config.LLMConfig, logger *slog.Logger) *LLMClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &LLMClient{
		cfg:       cfg,
		client:    &http.Client{Timeout: timeout},
		anthropic: promptAnthropic,
		logger:    logger.With("component", "llm_client", "provider", cfg.Provider),
	}
}

// Generate sends a prompt to the LLM and returns the response text.
func (c *LLMClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	var (
		out string
		err error
	)
	switch LLMProvider(c.cfg.Provider) {
	case ProviderOllama:
		out, err = c.generateOllama(ctx, system, prompt)
	case ProviderOpenAI:
		out, err = c.generateOpenAI(ctx, system, prompt)
	case ProviderAnthropic:
		out, err = c.generateAnthropic(ctx, system, prompt)
	default:
		return "", fmt.Errorf("unsupported LLM provider: %s", c.cfg.Provider)
	}
	if err != nil {
		return "", err
	}
	c.logger.Debug("completion received", "model", c.cfg.Model, "chars", len(out), "duration", time.Since(start))
	return out, nil
}

func (c *LLMClient) generateOllama(ctx context.Context, system, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.cfg.Model,
		"system": system,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": c.cfg.MaxTokens,
		},
	}
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, endpoint+"/api/generate", payload, &result); err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	return result.Response, nil
}

func (c *LLMClient) generateOpenAI(ctx context.Context, system, prompt string) (string, error) {
	messages := []map[string]string{}
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	payload := map[string]any{
		"model":       c.cfg.Model,
		"messages":    messages,
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
	}
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.postJSON(ctx, strings.TrimRight(endpoint, "/")+"/chat/completions", payload, &result); err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return result.Choices[0].Message.Content, nil
}

// generateAnthropic goes through llmkit, which has no context support;
// cancellation is honored by abandoning the call.
func (c *LLMClient) generateAnthropic(ctx context.Context, system, prompt string) (string, error) {
	settings := anthropictypes.RequestSettings{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := c.anthropic(system, prompt, "", c.cfg.APIKey, settings)
		done <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("anthropic request: %w", r.err)
		}
		return r.text, nil
	}
}

func promptAnthropic(system, user, schema, apiKey string, settings anthropictypes.RequestSettings) (string, error) {
	resp, err := anthropic.PromptWithSettings(system, user, schema, apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("no content in anthropic response")
	}
	return resp.Content[0].Text, nil
}

func (c *LLMClient) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StripCodeFences removes a surrounding ```json ... ``` block, if any.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
