package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".bntran.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, _, err := Load(New(), writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Services) != 2 || cfg.Services[0] != "googleweb" || cfg.Services[1] != "mymemory" {
		t.Errorf("unexpected services: %v", cfg.Services)
	}
	if cfg.Engine.Timeout != 20*time.Second || cfg.Engine.RateLimitDelay != 500*time.Millisecond {
		t.Errorf("unexpected engine timings: %+v", cfg.Engine)
	}
	if cfg.Engine.ProgressInterval != 200*time.Millisecond {
		t.Errorf("unexpected progress interval: %v", cfg.Engine.ProgressInterval)
	}
	if cfg.Dictionary.Backend != BackendJSON || cfg.Dictionary.Path != DefaultDictionaryPath || !cfg.Dictionary.AutoSave {
		t.Errorf("unexpected dictionary config: %+v", cfg.Dictionary)
	}
	if !cfg.Output.BOM {
		t.Error("expected BOM on by default")
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("unexpected ollama url: %q", cfg.Ollama.BaseURL)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
services: [openai, googleweb]
log:
  level: debug
engine:
  concurrency: 4
  timeout: 5s
dictionary:
  backend: sqlite
  db_path: /tmp/bn.db
openai:
  api_key: sk-test
  model: gpt-4o
`)

	cfg, used, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if used != path {
		t.Errorf("expected config file %s, got %s", path, used)
	}
	if len(cfg.Services) != 2 || cfg.Services[0] != "openai" {
		t.Errorf("unexpected services: %v", cfg.Services)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Engine.Concurrency != 4 || cfg.Engine.Timeout != 5*time.Second {
		t.Errorf("unexpected engine config: %+v", cfg.Engine)
	}
	if cfg.Dictionary.Backend != BackendSQLite || cfg.Dictionary.DBPath != "/tmp/bn.db" {
		t.Errorf("unexpected dictionary config: %+v", cfg.Dictionary)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("unexpected openai config: %+v", cfg.OpenAI)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("BNTRAN_ENGINE_TIMEOUT", "3s")
	t.Setenv("BNTRAN_SYSTRAN_API_KEY", "key-123")
	t.Setenv("BNTRAN_OUTPUT_BOM", "false")

	cfg, _, err := Load(New(), writeConfig(t, "engine:\n  timeout: 9s\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.Timeout != 3*time.Second {
		t.Errorf("expected env to override file, got %v", cfg.Engine.Timeout)
	}
	if cfg.Systran.APIKey != "key-123" {
		t.Errorf("unexpected systran key: %q", cfg.Systran.APIKey)
	}
	if cfg.Output.BOM {
		t.Error("expected BOM disabled from env")
	}
}

func TestBindFlags(t *testing.T) {
	v := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("concurrency", 0, "")
	fs.String("dict", "", "")

	err := BindFlags(v, fs, map[string]string{
		"engine.concurrency": "concurrency",
		"dictionary.path":    "dict",
	})
	if err != nil {
		t.Fatalf("BindFlags failed: %v", err)
	}
	if err := fs.Parse([]string{"--concurrency", "7"}); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(v, writeConfig(t, "engine:\n  concurrency: 2\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.Concurrency != 7 {
		t.Errorf("expected flag to win, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Dictionary.Path != DefaultDictionaryPath {
		t.Errorf("expected unset flag to keep default, got %q", cfg.Dictionary.Path)
	}

	if err := BindFlags(v, fs, map[string]string{"x": "missing"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, _, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
	if _, _, err := Load(New(), writeConfig(t, "dictionary:\n  backend: redis\n")); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, _, err := Load(New(), writeConfig(t, "engine:\n  concurrency: -1\n")); err == nil {
		t.Error("expected error for negative concurrency")
	}
}
