package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "test-gemini")
	t.Setenv("TAVILY_API_KEY", "test-tavily")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Addr != ":3001" {
		t.Fatalf("http addr mismatch: got=%q want=%q", cfg.HTTP.Addr, ":3001")
	}
	if cfg.HTTP.ShutdownTimeout != 10*time.Second {
		t.Fatalf("shutdown timeout mismatch: got=%v", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.Agent.ToolMaxResults != 10 || cfg.Agent.RecursionLimit != 25 {
		t.Fatalf("agent limits mismatch: got=%d/%d want=10/25", cfg.Agent.ToolMaxResults, cfg.Agent.RecursionLimit)
	}
	if cfg.Agent.DefaultConversation != "default" {
		t.Fatalf("default conversation mismatch: got=%q", cfg.Agent.DefaultConversation)
	}
	if cfg.StoreBackend() != StoreMemory {
		t.Fatalf("store backend mismatch: got=%q want=%q", cfg.StoreBackend(), StoreMemory)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("redis url mismatch: got=%q", cfg.Redis.URL)
	}
	if cfg.Qdrant.Port != 6334 {
		t.Fatalf("qdrant port mismatch: got=%d", cfg.Qdrant.Port)
	}
	if cfg.Summary.CompressMaxTokens <= cfg.Summary.MaxTokens {
		t.Fatalf("compress allowance must exceed the summary allowance: got=%d<=%d", cfg.Summary.CompressMaxTokens, cfg.Summary.MaxTokens)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("CONVERSATION_TTL", "24h")
	t.Setenv("AGENT_VARIANT", "simple")
	t.Setenv("QDRANT_HOST", "qdrant")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend() != StoreRedis {
		t.Fatalf("store backend mismatch: got=%q want=%q", cfg.StoreBackend(), StoreRedis)
	}
	if cfg.Redis.URL != "redis://cache:6379/2" {
		t.Fatalf("redis url mismatch: got=%q", cfg.Redis.URL)
	}
	if ttl, _ := cfg.ConversationTTL(); ttl != 24*time.Hour {
		t.Fatalf("ttl mismatch: got=%v want=24h", ttl)
	}
	if cfg.Agent.Variant != "simple" {
		t.Fatalf("variant mismatch: got=%q", cfg.Agent.Variant)
	}
	if cfg.Qdrant.Host != "qdrant" {
		t.Fatalf("qdrant host mismatch: got=%q", cfg.Qdrant.Host)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TAVILY_API_KEY", "")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("CONVERSATION_TTL", "forever")

	_, err := Load("")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"OPENAI_API_KEY", "TAVILY_API_KEY", "STORE_BACKEND", "CONVERSATION_TTL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err.Error(), want)
		}
	}
}
