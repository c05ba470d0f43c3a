package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUpdateRuntimePersistsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("PORT=9090\nOPENAI_API_KEY=old\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{PollIntervalSec: 10, EnvFilePath: envPath}
	if err := cfg.UpdateRuntime(30, "sk-new"); err != nil {
		t.Fatalf("UpdateRuntime: %v", err)
	}

	if cfg.PollIntervalSec != 30 {
		t.Errorf("PollIntervalSec = %d, want 30", cfg.PollIntervalSec)
	}
	if cfg.OpenAIAPIKey != "sk-new" {
		t.Errorf("OpenAIAPIKey = %q, want sk-new", cfg.OpenAIAPIKey)
	}

	data, err := os.ReadFile(envPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	for _, want := range []string{"PORT=9090", "OPENAI_API_KEY=sk-new", "POLL_INTERVAL_SEC=30"} {
		if !strings.Contains(content, want) {
			t.Errorf("env file missing %q:\n%s", want, content)
		}
	}
}

func TestUpdateRuntimeZeroValuesKeepCurrent(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		PollIntervalSec: 15,
		OpenAIAPIKey:    "sk-current",
		EnvFilePath:     filepath.Join(dir, ".env"),
	}

	if err := cfg.UpdateRuntime(0, ""); err != nil {
		t.Fatalf("UpdateRuntime: %v", err)
	}

	if cfg.PollIntervalSec != 15 {
		t.Errorf("PollIntervalSec = %d, want 15", cfg.PollIntervalSec)
	}
	if cfg.OpenAIAPIKey != "sk-current" {
		t.Errorf("OpenAIAPIKey = %q, want sk-current", cfg.OpenAIAPIKey)
	}
}
