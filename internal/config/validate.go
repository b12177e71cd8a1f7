package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	switch cfg.Fetch.Mode {
	case "auto", "browser", "http":
	default:
		return fmt.Errorf("fetch.mode must be auto, browser or http, got %q", cfg.Fetch.Mode)
	}
	if cfg.Fetch.MaxRetries < 1 {
		return fmt.Errorf("fetch.max_retries must be >= 1, got %d", cfg.Fetch.MaxRetries)
	}
	if cfg.Fetch.PollInterval <= 0 {
		return fmt.Errorf("fetch.poll_interval must be > 0")
	}
	if cfg.Fetch.ReadyTimeout <= 0 {
		return fmt.Errorf("fetch.ready_timeout must be > 0")
	}
	if cfg.Fetch.SettleDelay < 0 || cfg.Fetch.BackoffBase < 0 {
		return fmt.Errorf("fetch.settle_delay and fetch.backoff_base must be >= 0")
	}

	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if cfg.HTTP.MaxBodySize <= 0 {
		return fmt.Errorf("http.max_body_size must be > 0")
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
			return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	if cfg.Output.DataDir == "" {
		return fmt.Errorf("output.data_dir must not be empty")
	}
	if cfg.Output.MaxPages < 1 {
		return fmt.Errorf("output.max_pages must be >= 1, got %d", cfg.Output.MaxPages)
	}

	switch cfg.LLM.Provider {
	case "openai", "ollama", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be openai, ollama or anthropic, got %q", cfg.LLM.Provider)
	}
	if cfg.Enrich.Delay < 0 {
		return fmt.Errorf("enrich.delay must be >= 0")
	}
	if cfg.Enrich.MaxTextChars < 0 {
		return fmt.Errorf("enrich.max_text_chars must be >= 0, got %d", cfg.Enrich.MaxTextChars)
	}
	if cfg.Validator.BatchSize < 1 {
		return fmt.Errorf("validator.batch_size must be >= 1, got %d", cfg.Validator.BatchSize)
	}
	if cfg.Validator.Delay < 0 {
		return fmt.Errorf("validator.delay must be >= 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is valid for scraping.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
