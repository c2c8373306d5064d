// SPDX-License-Identifier: Apache-2.0

// Command policyd runs the policy-search backing service: an MCP server
// over a Qdrant-backed vector index of policy documents, registered with
// the gateway as the "rag" service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/config"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/services/policy"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "policyd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.ConfigureSlog(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	store, err := policy.NewQdrantStore(cfg.Policy.QdrantAddr)
	if err != nil {
		return err
	}
	embedder := policy.NewAzureEmbedder(cfg.LLM.Endpoint, cfg.Policy.EmbeddingDeployment,
		cfg.LLM.APIKey, cfg.LLM.APIVersion)

	svc, err := policy.NewService(store, embedder,
		policy.WithCollection(cfg.Policy.Collection),
		policy.WithServiceLogger(logger),
	)
	if err != nil {
		return err
	}

	docs, err := loadDocuments(cfg.Policy.DocumentsFile)
	if err != nil {
		return err
	}
	seedCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := svc.Seed(seedCtx, docs); err != nil {
		return fmt.Errorf("seed policy index: %w", err)
	}

	logger.Info("policyd.listen",
		slog.String("addr", cfg.Policy.Addr),
		slog.String("qdrant", cfg.Policy.QdrantAddr),
		slog.Int("documents", len(docs)),
	)
	return svc.ServeStreamableHTTP(cfg.Policy.Addr)
}

func loadDocuments(path string) ([]policy.Document, error) {
	if path == "" {
		return policy.DefaultDocuments(), nil
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read documents file: %w", err)
	}
	var file struct {
		Documents []policy.Document `yaml:"documents"`
	}
	if err := yaml.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("parse documents file: %w", err)
	}
	if len(file.Documents) == 0 {
		return nil, fmt.Errorf("documents file %s contains no documents", path)
	}
	return file.Documents, nil
}
