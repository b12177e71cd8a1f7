package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from .env, file, environment, and defaults.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("NEWSHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("newsharvest")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newsharvest"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}

	return cfg, nil
}

// providerKey falls back to the vendor's conventional env variable.
func providerKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("fetch.mode", cfg.Fetch.Mode)
	v.SetDefault("fetch.max_retries", cfg.Fetch.MaxRetries)
	v.SetDefault("fetch.initial_headless", cfg.Fetch.InitialHeadless)
	v.SetDefault("fetch.ready_timeout", cfg.Fetch.ReadyTimeout)
	v.SetDefault("fetch.poll_interval", cfg.Fetch.PollInterval)
	v.SetDefault("fetch.settle_delay", cfg.Fetch.SettleDelay)
	v.SetDefault("fetch.backoff_base", cfg.Fetch.BackoffBase)
	v.SetDefault("fetch.ready_threshold", cfg.Fetch.ReadyThreshold)
	v.SetDefault("fetch.nav_timeout", cfg.Fetch.NavTimeout)
	v.SetDefault("fetch.chrome_path", cfg.Fetch.ChromePath)
	v.SetDefault("fetch.user_agent", cfg.Fetch.UserAgent)
	v.SetDefault("fetch.window_size", cfg.Fetch.WindowSize)
	v.SetDefault("fetch.stealth", cfg.Fetch.Stealth)

	v.SetDefault("http.timeout", cfg.HTTP.Timeout)
	v.SetDefault("http.max_body_size", cfg.HTTP.MaxBodySize)
	v.SetDefault("http.tls_insecure", cfg.HTTP.TLSInsecure)
	v.SetDefault("http.idle_conn_timeout", cfg.HTTP.IdleConnTimeout)
	v.SetDefault("http.max_idle_conns", cfg.HTTP.MaxIdleConns)

	v.SetDefault("proxy.enabled", cfg.Proxy.Enabled)
	v.SetDefault("proxy.rotation", cfg.Proxy.Rotation)

	v.SetDefault("output.data_dir", cfg.Output.DataDir)
	v.SetDefault("output.debug_dir", cfg.Output.DebugDir)
	v.SetDefault("output.debug", cfg.Output.Debug)
	v.SetDefault("output.max_pages", cfg.Output.MaxPages)
	v.SetDefault("output.page_delay", cfg.Output.PageDelay)

	v.SetDefault("storage.db_path", cfg.Storage.DBPath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.endpoint", cfg.LLM.Endpoint)
	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)

	v.SetDefault("enrich.delay", cfg.Enrich.Delay)
	v.SetDefault("enrich.insights", cfg.Enrich.Insights)
	v.SetDefault("enrich.browser_domains", cfg.Enrich.BrowserDomains)
	v.SetDefault("enrich.max_text_chars", cfg.Enrich.MaxTextChars)

	v.SetDefault("validator.batch_size", cfg.Validator.BatchSize)
	v.SetDefault("validator.delay", cfg.Validator.Delay)
	v.SetDefault("validator.only_unvalidated", cfg.Validator.OnlyUnvalidated)
	v.SetDefault("validator.preview_chars", cfg.Validator.PreviewChars)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
