// SPDX-License-Identifier: Apache-2.0

// Command onboardd runs the customer onboarding workflow service: the HTTP
// session API, the workflow graph runner, the stage agents, and the tool
// gateway over the configured MCP backing services.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/agent"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/config"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/guardrails"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/httpapi"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/llm"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/mcp"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/session"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/telemetry"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/workflow"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "onboardd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, cfg, err := config.WatchConfig(ctx, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.ConfigureSlog(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	// The log level follows config file edits; everything else needs a restart.
	watcher.OnChange(func(next *config.Config) {
		telemetry.SetLogLevel(next.Log.Level)
	})

	shutdownTelemetry, err := telemetry.Init("onboardd", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Error("telemetry.shutdown", slog.String("error", err.Error()))
		}
	}()

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	gateway, closeGateway := buildGateway(ctx, cfg, logger)
	defer closeGateway()

	stages, err := buildStages(cfg)
	if err != nil {
		return err
	}

	agents := make([]workflow.StageAgent, 0, len(stages))
	for _, def := range stages {
		agents = append(agents, agent.New(def, provider, gateway,
			agent.WithModel(cfg.LLM.Deployment),
			agent.WithMaxRounds(cfg.Workflow.MaxToolRounds),
			agent.WithHistoryWindow(cfg.Workflow.HistoryWindow),
			agent.WithLogger(logger),
		))
	}

	store, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	runnerOpts := []workflow.RunnerOption{
		workflow.WithRunnerLogger(logger),
		workflow.WithTurnHook(captureTurnFields),
	}
	if cfg.Workflow.MaxGraphSteps > 0 {
		runnerOpts = append(runnerOpts, workflow.WithMaxSteps(cfg.Workflow.MaxGraphSteps))
	}
	runner, err := workflow.NewRunner(workflow.NewRouter(agent.StageNames(stages)), agents, store, runnerOpts...)
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	guard := guardrails.New(guardrails.WithGuardLogger(logger))
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(runner, logger, httpapi.WithGuard(guard)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "onboardd.listen",
			slog.String("addr", cfg.HTTP.Addr),
			slog.String("llm_provider", cfg.LLM.Provider),
			slog.String("session_driver", cfg.Session.Driver),
			slog.Int("stages", len(stages)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("onboardd.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "azure":
		azure, err := llm.NewAzureProvider(cfg.LLM.Endpoint, cfg.LLM.Deployment, cfg.LLM.APIKey,
			llm.WithAPIVersion(cfg.LLM.APIVersion))
		if err != nil {
			return nil, err
		}
		return llm.NewResilientProvider(azure, llm.BreakerConfig{}), nil
	case "mock":
		return &llm.MockProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// buildGateway connects to every configured backing service. Services that
// are down at startup are skipped with a warning; the gateway tolerates a
// partial catalog.
func buildGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mcp.Gateway, func()) {
	gateway := mcp.NewGateway(
		mcp.WithGatewayLogger(logger),
		mcp.WithGatewayCacheTTL(time.Duration(cfg.MCP.CacheSeconds)*time.Second),
	)

	names := make([]string, 0, len(cfg.MCP.Services))
	for name := range cfg.MCP.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	clients := make([]*mcp.Client, 0, len(names))
	for _, name := range names {
		url := cfg.MCP.Services[name]
		client, err := mcp.NewClientWithStreamableHTTP(url,
			mcp.WithTimeout(time.Duration(cfg.MCP.TimeoutSeconds)*time.Second),
			mcp.WithRetry(cfg.MCP.Retries, 0),
			mcp.WithToolCacheTTL(time.Duration(cfg.MCP.CacheSeconds)*time.Second),
		)
		if err != nil {
			logger.WarnContext(ctx, "gateway.service.unreachable",
				slog.String("service", name),
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := gateway.Register(name, client); err != nil {
			client.Close()
			logger.WarnContext(ctx, "gateway.service.rejected",
				slog.String("service", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		clients = append(clients, client)
	}

	return gateway, func() {
		for _, c := range clients {
			c.Close()
		}
	}
}

func buildStages(cfg *config.Config) ([]agent.StageDefinition, error) {
	if cfg.Workflow.StagesFile == "" {
		return agent.DefaultStages(), nil
	}
	stages, err := agent.LoadStages(cfg.Workflow.StagesFile)
	if err != nil {
		return nil, fmt.Errorf("load stages: %w", err)
	}
	if err := agent.ValidateStages(stages); err != nil {
		return nil, fmt.Errorf("validate stages: %w", err)
	}
	return stages, nil
}

func buildStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Driver {
	case "memory":
		return session.NewMemoryStore(), nil
	case "sqlite", "":
		return session.NewSQLiteStore(cfg.Session.Path)
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
	}
}

// captureTurnFields lifts structured fields out of free-form customer
// messages into the case data, never overwriting values already captured.
func captureTurnFields(c *workflow.Case, message string) {
	for key, value := range httpapi.CaptureFields(message) {
		if _, exists := c.Data[key]; !exists {
			c.SetField(key, value)
		}
	}
}
