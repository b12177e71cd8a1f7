package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultUserAgent is sent by both the browser and the HTTP fetcher.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config is the root configuration for NewsHarvest.
type Config struct {
	Fetch     FetchConfig     `mapstructure:"fetch"     yaml:"fetch"`
	HTTP      HTTPConfig      `mapstructure:"http"      yaml:"http"`
	Proxy     ProxyConfig     `mapstructure:"proxy"     yaml:"proxy"`
	Output    OutputConfig    `mapstructure:"output"    yaml:"output"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	LLM       LLMConfig       `mapstructure:"llm"       yaml:"llm"`
	Enrich    EnrichConfig    `mapstructure:"enrich"    yaml:"enrich"`
	Validator ValidatorConfig `mapstructure:"validator" yaml:"validator"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// FetchConfig controls the browser retry loop.
type FetchConfig struct {
	Mode            string        `mapstructure:"mode"             yaml:"mode"` // auto, browser, http
	MaxRetries      int           `mapstructure:"max_retries"      yaml:"max_retries"`
	InitialHeadless bool          `mapstructure:"initial_headless" yaml:"initial_headless"`
	ReadyTimeout    time.Duration `mapstructure:"ready_timeout"    yaml:"ready_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"    yaml:"poll_interval"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"     yaml:"settle_delay"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"     yaml:"backoff_base"`
	ReadyThreshold  int           `mapstructure:"ready_threshold"  yaml:"ready_threshold"`
	NavTimeout      time.Duration `mapstructure:"nav_timeout"      yaml:"nav_timeout"`
	ChromePath      string        `mapstructure:"chrome_path"      yaml:"chrome_path"`
	UserAgent       string        `mapstructure:"user_agent"       yaml:"user_agent"`
	WindowSize      string        `mapstructure:"window_size"      yaml:"window_size"`
	Stealth         bool          `mapstructure:"stealth"          yaml:"stealth"`
}

// HTTPConfig controls the plain HTTP fetcher.
type HTTPConfig struct {
	Timeout         time.Duration     `mapstructure:"timeout"           yaml:"timeout"`
	MaxBodySize     int64             `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool              `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration     `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	Headers         map[string]string `mapstructure:"headers"           yaml:"headers"`
}

// ProxyConfig controls proxy rotation.
type ProxyConfig struct {
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
}

// OutputConfig controls where scrape results and debug snapshots go.
type OutputConfig struct {
	DataDir   string        `mapstructure:"data_dir"   yaml:"data_dir"`
	DebugDir  string        `mapstructure:"debug_dir"  yaml:"debug_dir"`
	Debug     bool          `mapstructure:"debug"      yaml:"debug"`
	MaxPages  int           `mapstructure:"max_pages"  yaml:"max_pages"`
	PageDelay time.Duration `mapstructure:"page_delay" yaml:"page_delay"`
}

// StorageConfig controls the SQLite store and the optional Mongo mirror.
type StorageConfig struct {
	DBPath          string `mapstructure:"db_path"          yaml:"db_path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LLMConfig controls the validation model.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"    yaml:"provider"` // openai, ollama, anthropic
	Model       string        `mapstructure:"model"       yaml:"model"`
	Endpoint    string        `mapstructure:"endpoint"    yaml:"endpoint"`
	APIKey      string        `mapstructure:"api_key"     yaml:"api_key"`
	MaxTokens   int           `mapstructure:"max_tokens"  yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"     yaml:"timeout"`
}

// EnrichConfig controls body text and main-ideas enrichment.
type EnrichConfig struct {
	Delay          time.Duration `mapstructure:"delay"           yaml:"delay"`
	Insights       bool          `mapstructure:"insights"        yaml:"insights"`
	BrowserDomains []string      `mapstructure:"browser_domains" yaml:"browser_domains"`
	MaxTextChars   int           `mapstructure:"max_text_chars"  yaml:"max_text_chars"`
}

// ValidatorConfig controls the validation pass.
type ValidatorConfig struct {
	BatchSize       int           `mapstructure:"batch_size"       yaml:"batch_size"`
	Delay           time.Duration `mapstructure:"delay"            yaml:"delay"`
	OnlyUnvalidated bool          `mapstructure:"only_unvalidated" yaml:"only_unvalidated"`
	PreviewChars    int           `mapstructure:"preview_chars"    yaml:"preview_chars"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr"    yaml:"addr"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			Mode:            "auto",
			MaxRetries:      3,
			InitialHeadless: true,
			ReadyTimeout:    30 * time.Second,
			PollInterval:    2 * time.Second,
			SettleDelay:     3 * time.Second,
			BackoffBase:     1 * time.Second,
			ReadyThreshold:  20000,
			NavTimeout:      60 * time.Second,
			UserAgent:       DefaultUserAgent,
			WindowSize:      "1920,1080",
			Stealth:         true,
		},
		HTTP: HTTPConfig{
			Timeout:         30 * time.Second,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
		},
		Proxy: ProxyConfig{
			Rotation: "round_robin",
		},
		Output: OutputConfig{
			DataDir:   "data",
			DebugDir:  "debug",
			MaxPages:  8,
			PageDelay: 2 * time.Second,
		},
		Storage: StorageConfig{
			DBPath:          "articles_enhanced.db",
			MongoDatabase:   "newsharvest",
			MongoCollection: "articles",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Endpoint:    "https://api.openai.com/v1",
			MaxTokens:   500,
			Temperature: 0.3,
			Timeout:     60 * time.Second,
		},
		Enrich: EnrichConfig{
			Delay:          1 * time.Second,
			Insights:       true,
			BrowserDomains: []string{"hpe.com", "servicenow.com"},
			MaxTextChars:   50000,
		},
		Validator: ValidatorConfig{
			BatchSize:    1,
			Delay:        1 * time.Second,
			PreviewChars: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
			Path: "/metrics",
		},
	}
}
