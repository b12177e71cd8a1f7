package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 20000, cfg.Fetch.ReadyThreshold)
	assert.Equal(t, 2*time.Second, cfg.Fetch.PollInterval)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, []string{"hpe.com", "servicenow.com"}, cfg.Enrich.BrowserDomains)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"mode":       func(c *Config) { c.Fetch.Mode = "ftp" },
		"retries":    func(c *Config) { c.Fetch.MaxRetries = 0 },
		"poll":       func(c *Config) { c.Fetch.PollInterval = 0 },
		"provider":   func(c *Config) { c.LLM.Provider = "nope" },
		"batch":      func(c *Config) { c.Validator.BatchSize = 0 },
		"enrich":     func(c *Config) { c.Enrich.Delay = -time.Second },
		"log level":  func(c *Config) { c.Logging.Level = "loud" },
		"log format": func(c *Config) { c.Logging.Format = "xml" },
		"rotation": func(c *Config) {
			c.Proxy.Enabled = true
			c.Proxy.Rotation = "sticky"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newsharvest.yaml")
	body := "fetch:\n  max_retries: 5\n  poll_interval: 500ms\noutput:\n  data_dir: out\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("NEWSHARVEST_VALIDATOR_BATCH_SIZE", "7")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Fetch.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.PollInterval)
	assert.Equal(t, "out", cfg.Output.DataDir)
	assert.Equal(t, 7, cfg.Validator.BatchSize)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.True(t, cfg.Fetch.InitialHeadless)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://blogs.oracle.com/"))
	assert.Error(t, ValidateURL("ftp://example.com"))
	assert.Error(t, ValidateURL("https://"))
}
