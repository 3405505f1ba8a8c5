package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv("COMMCOACH_CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Conversations.Pool != DefaultPool || cfg.Conversations.Cap != DefaultCap {
		t.Fatalf("pool/cap = %d/%d", cfg.Conversations.Pool, cfg.Conversations.Cap)
	}
	if cfg.Ollama.Endpoint != DefaultEndpoint || cfg.Ollama.Model != DefaultModel {
		t.Fatalf("ollama = %+v", cfg.Ollama)
	}
	if cfg.Ollama.Timeout() != DefaultTimeout {
		t.Fatalf("timeout = %v", cfg.Ollama.Timeout())
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("COMMCOACH_CONFIG_DIR", dir)

	in := &Config{
		ChatDBPath: "/tmp/chat.db",
		Language:   "spanish",
		Ollama:     OllamaConfig{Model: "llama3.2:3b", TimeoutSeconds: 30},
	}
	if err := in.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	out, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.ChatDB() != "/tmp/chat.db" {
		t.Fatalf("ChatDB = %q", out.ChatDB())
	}
	if out.Language != "spanish" || out.Ollama.Model != "llama3.2:3b" {
		t.Fatalf("round trip lost fields: %+v", out)
	}
	if out.Ollama.Timeout() != 30*time.Second {
		t.Fatalf("timeout = %v", out.Ollama.Timeout())
	}
	// Unset fields still fall back to defaults.
	if out.Conversations.Pool != DefaultPool {
		t.Fatalf("pool = %d", out.Conversations.Pool)
	}
}

func TestChatDBEnvOverride(t *testing.T) {
	t.Setenv("COMMCOACH_CHAT_DB", "/elsewhere/chat.db")
	cfg := &Config{ChatDBPath: "/configured/chat.db"}
	if got := cfg.ChatDB(); got != "/elsewhere/chat.db" {
		t.Fatalf("ChatDB = %q", got)
	}
}
