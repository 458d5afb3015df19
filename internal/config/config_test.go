package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfigJSON() string {
	return `{
		"slack": {"bot_token": "xoxb-test", "signing_secret": "shhh", "bot_user_id": "U0BOT"},
		"providers": {"default": {"type": "anthropic", "api_key": "sk-ant", "model": "claude-sonnet-4-20250514"}},
		"search": {"index_url": "https://idx.pinecone.io", "api_key": "pc-key", "namespace": "ns1"},
		"jira": {"base_url": "https://example.atlassian.net", "email": "bot@example.com", "api_token": "jt", "project_key": "CJ"},
		"store": {"path": "/tmp/dupewatch.db"},
		"api": {"host": "127.0.0.1", "port": 8080}
	}`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigJSON()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Slack.BotToken != "xoxb-test" {
		t.Errorf("bot token = %q", cfg.Slack.BotToken)
	}
	if cfg.Jira.ProjectKey != "CJ" {
		t.Errorf("project key = %q", cfg.Jira.ProjectKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigJSON()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Search.TopK != 5 {
		t.Errorf("top_k default = %d, want 5", cfg.Search.TopK)
	}
	if cfg.Search.ScoreThreshold != 0.50 {
		t.Errorf("score_threshold default = %v, want 0.50", cfg.Search.ScoreThreshold)
	}
	if cfg.Jira.BrandField != "customfield_11997" {
		t.Errorf("brand field default = %q", cfg.Jira.BrandField)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_BadJSON(t *testing.T) {
	if _, err := Load(writeConfig(t, "{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"slack.bot_token is required",
		"slack.signing_secret is required",
		"search.index_url is required",
		"jira.base_url is required",
		"store.path is required",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestValidate_ProviderFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigJSON()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Providers["default"] = ProviderConfig{Type: "anthropic"}
	verr := cfg.Validate()
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(verr.Error(), "providers.default.api_key is required") {
		t.Errorf("unexpected error: %v", verr)
	}
}

func TestValidate_ThresholdRange(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigJSON()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Search.ScoreThreshold = 1.5
	if cfg.Validate() == nil {
		t.Error("expected error for threshold > 1")
	}
}
