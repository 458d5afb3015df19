package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the top-level dupewatch configuration. Everything the daemon
// needs is constructed from this once at startup; no component reads
// ambient globals.
type Config struct {
	Slack     SlackConfig               `json:"slack"`
	Providers map[string]ProviderConfig `json:"providers"`
	Search    SearchConfig              `json:"search"`
	Jira      JiraConfig                `json:"jira"`
	Store     StoreConfig               `json:"store"`
	API       APIConfig                 `json:"api"`
}

// SlackConfig holds Slack credentials and event-endpoint settings.
type SlackConfig struct {
	BotToken      string `json:"bot_token"`      // xoxb-...
	SigningSecret string `json:"signing_secret"` // request signature verification
	BotUserID     string `json:"bot_user_id"`    // stripped from mention text
}

// ProviderConfig holds LLM provider settings.
type ProviderConfig struct {
	Type    string `json:"type,omitempty"` // "anthropic" (default) or "openai"
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model"`
}

// SearchConfig holds vector index and query-embedding settings.
type SearchConfig struct {
	IndexURL       string  `json:"index_url"` // Pinecone index endpoint
	APIKey         string  `json:"api_key"`
	Namespace      string  `json:"namespace"`
	TopK           int     `json:"top_k,omitempty"`           // default 5
	ScoreThreshold float64 `json:"score_threshold,omitempty"` // default 0.50
	EmbedModel     string  `json:"embed_model,omitempty"`
}

// JiraConfig holds issue tracker settings.
type JiraConfig struct {
	BaseURL    string `json:"base_url"` // https://<site>.atlassian.net
	Email      string `json:"email"`
	APIToken   string `json:"api_token"`
	ProjectKey string `json:"project_key"`
	// Custom field IDs vary per Jira site; these default to the fields
	// the CJ project uses for brand and environment.
	BrandField       string `json:"brand_field,omitempty"`
	EnvironmentField string `json:"environment_field,omitempty"`
}

// StoreConfig holds idempotency store settings.
type StoreConfig struct {
	Path string `json:"path"` // SQLite database file
	// RetentionDays bounds how long processed markers are kept.
	// 0 keeps them forever.
	RetentionDays int `json:"retention_days,omitempty"`
}

// APIConfig holds HTTP server settings (Slack endpoints + admin API).
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key"` // Bearer auth for admin routes
}

const (
	DefaultTopK           = 5
	DefaultScoreThreshold = 0.50
	DefaultBrandField     = "customfield_11997"
	DefaultEnvField       = "customfield_11800"
)

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from environment variables with DUPEWATCH_ prefix.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Slack: SlackConfig{
			BotToken:      os.Getenv("DUPEWATCH_SLACK_BOT_TOKEN"),
			SigningSecret: os.Getenv("DUPEWATCH_SLACK_SIGNING_SECRET"),
			BotUserID:     os.Getenv("DUPEWATCH_SLACK_BOT_USER_ID"),
		},
		Providers: make(map[string]ProviderConfig),
		Search: SearchConfig{
			IndexURL:  os.Getenv("DUPEWATCH_PINECONE_URL"),
			APIKey:    os.Getenv("DUPEWATCH_PINECONE_API_KEY"),
			Namespace: getenv("DUPEWATCH_PINECONE_NAMESPACE", "ns1"),
		},
		Jira: JiraConfig{
			BaseURL:    os.Getenv("DUPEWATCH_JIRA_URL"),
			Email:      os.Getenv("DUPEWATCH_JIRA_EMAIL"),
			APIToken:   os.Getenv("DUPEWATCH_JIRA_API_TOKEN"),
			ProjectKey: getenv("DUPEWATCH_JIRA_PROJECT", "CJ"),
		},
		Store: StoreConfig{
			Path:          getenv("DUPEWATCH_DB_PATH", "/data/dupewatch.db"),
			RetentionDays: getenvInt("DUPEWATCH_RETENTION_DAYS", 0),
		},
		API: APIConfig{
			Host: getenv("DUPEWATCH_API_HOST", "0.0.0.0"),
			Port: getenvInt("DUPEWATCH_API_PORT", 8080),
			Key:  os.Getenv("DUPEWATCH_API_KEY"),
		},
	}

	if apiKey := os.Getenv("DUPEWATCH_ANTHROPIC_API_KEY"); apiKey != "" {
		cfg.Providers["default"] = ProviderConfig{
			Type:   "anthropic",
			APIKey: apiKey,
			Model:  getenv("DUPEWATCH_MODEL", "claude-sonnet-4-20250514"),
		}
	} else if apiKey := os.Getenv("DUPEWATCH_OPENAI_API_KEY"); apiKey != "" {
		cfg.Providers["default"] = ProviderConfig{
			Type:    "openai",
			APIKey:  apiKey,
			BaseURL: os.Getenv("DUPEWATCH_OPENAI_BASE_URL"),
			Model:   getenv("DUPEWATCH_MODEL", "gpt-4o"),
		}
	}
	if apiKey := os.Getenv("DUPEWATCH_OPENAI_API_KEY"); apiKey != "" {
		if _, ok := cfg.Providers["embeddings"]; !ok {
			cfg.Providers["embeddings"] = ProviderConfig{
				Type:   "openai",
				APIKey: apiKey,
				Model:  getenv("DUPEWATCH_EMBED_MODEL", "text-embedding-3-small"),
			}
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Search.TopK == 0 {
		c.Search.TopK = DefaultTopK
	}
	if c.Search.ScoreThreshold == 0 {
		c.Search.ScoreThreshold = DefaultScoreThreshold
	}
	if c.Jira.BrandField == "" {
		c.Jira.BrandField = DefaultBrandField
	}
	if c.Jira.EnvironmentField == "" {
		c.Jira.EnvironmentField = DefaultEnvField
	}
}

// Validate checks for required fields.
func (c *Config) Validate() error {
	var errs []string

	if c.Slack.BotToken == "" {
		errs = append(errs, "slack.bot_token is required")
	}
	if c.Slack.SigningSecret == "" {
		errs = append(errs, "slack.signing_secret is required")
	}
	if len(c.Providers) == 0 {
		errs = append(errs, "at least one provider is required")
	}
	for name, p := range c.Providers {
		if p.APIKey == "" {
			errs = append(errs, fmt.Sprintf("providers.%s.api_key is required", name))
		}
		if p.Model == "" {
			errs = append(errs, fmt.Sprintf("providers.%s.model is required", name))
		}
	}
	if c.Search.IndexURL == "" {
		errs = append(errs, "search.index_url is required")
	}
	if c.Search.APIKey == "" {
		errs = append(errs, "search.api_key is required")
	}
	if c.Search.ScoreThreshold < 0 || c.Search.ScoreThreshold > 1 {
		errs = append(errs, "search.score_threshold must be in [0,1]")
	}
	if c.Jira.BaseURL == "" {
		errs = append(errs, "jira.base_url is required")
	}
	if c.Jira.APIToken == "" {
		errs = append(errs, "jira.api_token is required")
	}
	if c.Jira.ProjectKey == "" {
		errs = append(errs, "jira.project_key is required")
	}
	if c.Store.Path == "" {
		errs = append(errs, "store.path is required")
	}
	if c.Store.RetentionDays < 0 {
		errs = append(errs, "store.retention_days must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
