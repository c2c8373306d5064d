package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults: %+v", cfg.Log)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http addr default: %q", cfg.HTTP.Addr)
	}
	if cfg.LLM.Provider != "azure" || cfg.LLM.APIVersion == "" {
		t.Errorf("llm defaults: %+v", cfg.LLM)
	}
	if cfg.Session.Driver != "sqlite" {
		t.Errorf("session driver default: %q", cfg.Session.Driver)
	}
	if cfg.Workflow.MaxToolRounds != 5 {
		t.Errorf("max tool rounds default: %d", cfg.Workflow.MaxToolRounds)
	}
	if len(cfg.MCP.Services) != 4 {
		t.Errorf("expected 4 default services, got %v", cfg.MCP.Services)
	}
	if cfg.MCP.Services["postgres"] == "" || cfg.MCP.Services["rag"] == "" {
		t.Errorf("missing default service URLs: %v", cfg.MCP.Services)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `log:
  level: debug
http:
  addr: ":9090"
llm:
  provider: mock
mcp:
  services:
    postgres: http://db.internal:8001/mcp
session:
  driver: memory
workflow:
  max_graph_steps: 9
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("http addr = %q", cfg.HTTP.Addr)
	}
	if cfg.LLM.Provider != "mock" {
		t.Errorf("llm provider = %q", cfg.LLM.Provider)
	}
	if cfg.MCP.Services["postgres"] != "http://db.internal:8001/mcp" {
		t.Errorf("service override lost: %v", cfg.MCP.Services)
	}
	if cfg.Session.Driver != "memory" {
		t.Errorf("session driver = %q", cfg.Session.Driver)
	}
	if cfg.Workflow.MaxGraphSteps != 9 {
		t.Errorf("max graph steps = %d", cfg.Workflow.MaxGraphSteps)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ONBOARD_LOG_LEVEL", "warn")
	t.Setenv("ONBOARD_SESSION_DRIVER", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("env override lost: log level = %q", cfg.Log.Level)
	}
	if cfg.Session.Driver != "memory" {
		t.Errorf("env override lost: session driver = %q", cfg.Session.Driver)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
