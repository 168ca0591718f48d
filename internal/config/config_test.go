package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	clearLLMEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: "9000"
  basePath: /api/trivia
redis:
  addr: localhost:6379
  ttl: 15m
llm:
  provider: anthropic
  model: claude-haiku
  personalizedFeedback: false
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Fatalf("expected env port override, got %q", cfg.Server.Port)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("expected provider key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.FeedbackEnabled() {
		t.Fatalf("expected personalized feedback disabled")
	}
	if got := TTLDuration(cfg.Redis.TTL, time.Minute); got != 15*time.Minute {
		t.Fatalf("expected 15m ttl, got %s", got)
	}
}

func TestLoadMissingFileUsesDiscovery(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected missing file to be tolerated, got %v", err)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.APIKey != "g-key" {
		t.Fatalf("expected gemini discovery, got %q/%q", cfg.LLM.Provider, cfg.LLM.APIKey)
	}
	if !cfg.FeedbackEnabled() {
		t.Fatalf("expected personalized feedback on by default")
	}
}

func TestExampleConfigDiscoversProvider(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "a-key")

	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("load example config: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.LLM.APIKey != "a-key" {
		t.Fatalf("expected anthropic discovery, got %q/%q", cfg.LLM.Provider, cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "" {
		t.Fatalf("expected provider default model, got %q", cfg.LLM.Model)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback for empty, got %s", got)
	}
	if got := TTLDuration("soon", time.Second); got != time.Second {
		t.Fatalf("expected fallback for garbage, got %s", got)
	}
}

func TestParseOrigins(t *testing.T) {
	got := parseOrigins(" http://a.test, ,http://b.test ")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", got)
	}
}

func clearLLMEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LLM_PROVIDER", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY", "PORT"} {
		t.Setenv(k, "")
	}
}
