// SPDX-License-Identifier: Apache-2.0

// Package config loads the service configuration from defaults, an optional
// YAML file, and ONBOARD_-prefixed environment variables, in that order.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	HTTP      HTTPConfig      `koanf:"http"`
	LLM       LLMConfig       `koanf:"llm"`
	MCP       MCPConfig       `koanf:"mcp"`
	Session   SessionConfig   `koanf:"session"`
	Workflow  WorkflowConfig  `koanf:"workflow"`
	Policy    PolicyConfig    `koanf:"policy"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type LLMConfig struct {
	Provider   string `koanf:"provider"` // azure, mock
	Endpoint   string `koanf:"endpoint"`
	Deployment string `koanf:"deployment"`
	APIKey     string `koanf:"api_key"`
	APIVersion string `koanf:"api_version"`
}

type MCPConfig struct {
	// Services maps backing-service names to streamable HTTP MCP URLs.
	Services       map[string]string `koanf:"services"`
	TimeoutSeconds int               `koanf:"timeout_seconds"`
	Retries        int               `koanf:"retries"`
	CacheSeconds   int               `koanf:"cache_seconds"`
}

type SessionConfig struct {
	Driver string `koanf:"driver"` // sqlite, memory
	Path   string `koanf:"path"`
}

type WorkflowConfig struct {
	// StagesFile optionally replaces the built-in stage roster.
	StagesFile    string `koanf:"stages_file"`
	MaxToolRounds int    `koanf:"max_tool_rounds"`
	MaxGraphSteps int    `koanf:"max_graph_steps"` // 0 means stages+2
	HistoryWindow int    `koanf:"history_window"`
}

// PolicyConfig configures the policy-search backing service (policyd).
type PolicyConfig struct {
	Addr                string `koanf:"addr"`
	QdrantAddr          string `koanf:"qdrant_addr"`
	Collection          string `koanf:"collection"`
	EmbeddingDeployment string `koanf:"embedding_deployment"`
	DocumentsFile       string `koanf:"documents_file"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// Load reads configuration. The path may be empty to use defaults and
// environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "json")
	k.Set("http.addr", ":8080")

	k.Set("llm.provider", "azure")
	k.Set("llm.api_version", "2024-06-01")

	k.Set("mcp.services", map[string]string{
		"postgres": "http://127.0.0.1:8001/mcp",
		"blob":     "http://127.0.0.1:8002/mcp",
		"email":    "http://127.0.0.1:8003/mcp",
		"rag":      "http://127.0.0.1:8004/mcp",
	})
	k.Set("mcp.timeout_seconds", 10)
	k.Set("mcp.retries", 2)
	k.Set("mcp.cache_seconds", 30)

	k.Set("session.driver", "sqlite")
	k.Set("session.path", "onboard.db")

	k.Set("workflow.max_tool_rounds", 5)
	k.Set("workflow.max_graph_steps", 0)
	k.Set("workflow.history_window", 10)

	k.Set("policy.addr", ":8004")
	k.Set("policy.qdrant_addr", "127.0.0.1:6334")
	k.Set("policy.collection", "policy_documents")
	k.Set("policy.embedding_deployment", "text-embedding-3-small")

	k.Set("telemetry.exporter", "none")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (ONBOARD_LLM_ENDPOINT -> llm.endpoint)
	if err := k.Load(env.Provider("ONBOARD_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "ONBOARD_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
