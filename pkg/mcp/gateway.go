// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"

	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/llm"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/telemetry"
)

// fallbackCapabilityCount bounds the capability set handed to an agent when
// none of its required capabilities are discoverable.
const fallbackCapabilityCount = 3

// Capability is a single tool exposed by a backing service, addressed by its
// qualified name "<service>.<tool>".
type Capability struct {
	Name        string   `json:"name"`    // qualified: "postgres.get_customer_by_email"
	Service     string   `json:"service"` // backing service name
	Description string   `json:"description,omitempty"`
	Tool        mcp.Tool `json:"-"`
}

// Definition returns the capability as an LLM function tool definition under
// its qualified name.
func (c Capability) Definition() llm.Tool {
	return ToolDefinition(c.Name, c.Tool)
}

// Invocation records one tool call routed through the gateway. Error is the
// transport or routing failure, if any; tool-level errors surface in Result.
type Invocation struct {
	ID         string                 `json:"id"`
	Tool       string                 `json:"tool_name"`
	Service    string                 `json:"service"`
	Arguments  map[string]interface{} `json:"arguments,omitempty"`
	Result     string                 `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
	Timestamp  time.Time              `json:"timestamp"`
}

// OK reports whether the invocation completed without a routing or transport
// failure.
func (inv Invocation) OK() bool {
	return inv.Error == ""
}

// Gateway multiplexes tool discovery and invocation across named backing
// services. Agents address tools only through qualified names; the gateway
// owns the mapping back to a service connection.
type Gateway struct {
	logger   *slog.Logger
	cacheTTL time.Duration

	mu          sync.RWMutex
	services    map[string]*Client
	order       []string // registration order, for deterministic listings
	capCache    []Capability
	cacheExpiry time.Time
}

// GatewayOption customizes gateway behavior.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the logger used for discovery and invocation events.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGatewayCacheTTL sets the aggregate capability cache TTL. Use 0 to
// disable caching.
func WithGatewayCacheTTL(ttl time.Duration) GatewayOption {
	return func(g *Gateway) {
		if ttl >= 0 {
			g.cacheTTL = ttl
		}
	}
}

// NewGateway creates an empty gateway.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		logger:   slog.Default(),
		cacheTTL: defaultCacheTTL,
		services: make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register adds a named backing service. Registering an existing name
// replaces the previous client.
func (g *Gateway) Register(name string, client *Client) error {
	if name == "" {
		return fmt.Errorf("gateway: service name is required")
	}
	if strings.Contains(name, ".") {
		return fmt.Errorf("gateway: service name %q must not contain '.'", name)
	}
	if client == nil {
		return fmt.Errorf("gateway: client is required for service %q", name)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.services[name]; !exists {
		g.order = append(g.order, name)
	}
	g.services[name] = client
	g.capCache = nil
	return nil
}

// Services returns the registered service names in registration order.
func (g *Gateway) Services() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// ListCapabilities aggregates tool discovery across every registered service.
// A service that fails discovery is skipped and logged; the remaining
// services still contribute, so a single unreachable backend never blanks the
// whole catalog. The aggregate is cached for the configured TTL.
func (g *Gateway) ListCapabilities(ctx context.Context) ([]Capability, error) {
	if cached := g.cachedCapabilities(); cached != nil {
		return cached, nil
	}

	g.mu.RLock()
	names := make([]string, len(g.order))
	copy(names, g.order)
	clients := make(map[string]*Client, len(g.services))
	for name, c := range g.services {
		clients[name] = c
	}
	g.mu.RUnlock()

	var caps []Capability
	var failed []string
	for _, name := range names {
		tools, err := clients[name].ListTools(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed = append(failed, name)
			g.logger.WarnContext(ctx, "gateway.discovery.failed",
				slog.String("service", name),
				slog.String("error", err.Error()))
			continue
		}
		for _, tool := range tools {
			caps = append(caps, Capability{
				Name:        name + "." + tool.Name,
				Service:     name,
				Description: tool.Description,
				Tool:        tool,
			})
		}
	}

	if len(failed) == len(names) && len(names) > 0 {
		return nil, fmt.Errorf("gateway: discovery failed for all %d services", len(names))
	}

	g.storeCapabilities(caps)
	return caps, nil
}

// CapabilitiesFor resolves the required qualified names against the current
// catalog. Unknown names are dropped. An empty requirement list means the
// stage is deliberately toolless and resolves to no capabilities. When
// requirements exist but none resolve, the first few catalog entries are
// returned instead so the agent still has a bounded, non-empty tool set to
// work with.
func (g *Gateway) CapabilitiesFor(ctx context.Context, required []string) ([]Capability, error) {
	if len(required) == 0 {
		return nil, nil
	}

	all, err := g.ListCapabilities(ctx)
	if err != nil {
		return nil, err
	}

	// Requirements may use qualified names or bare tool names.
	byQualified := make(map[string]Capability, len(all))
	byBare := make(map[string][]Capability)
	for _, c := range all {
		byQualified[c.Name] = c
		byBare[c.Tool.Name] = append(byBare[c.Tool.Name], c)
	}

	var matched []Capability
	seen := make(map[string]bool)
	add := func(c Capability) {
		if !seen[c.Name] {
			seen[c.Name] = true
			matched = append(matched, c)
		}
	}
	for _, name := range required {
		if c, ok := byQualified[name]; ok {
			add(c)
			continue
		}
		if bare, ok := byBare[name]; ok {
			for _, c := range bare {
				add(c)
			}
			continue
		}
		g.logger.DebugContext(ctx, "gateway.capability.unknown", slog.String("name", name))
	}
	if len(matched) > 0 {
		return matched, nil
	}

	n := fallbackCapabilityCount
	if n > len(all) {
		n = len(all)
	}
	fallback := make([]Capability, n)
	copy(fallback, all[:n])
	g.logger.WarnContext(ctx, "gateway.capability.fallback",
		slog.Int("required", len(required)),
		slog.Int("returned", len(fallback)))
	return fallback, nil
}

// Invoke routes one tool call to its backing service and returns the outcome
// as an Invocation record. Routing and transport failures land in the
// record's Error field rather than an error return, so a flaky backend maps
// to a tool observation the agent can reason about instead of aborting the
// stage.
func (g *Gateway) Invoke(ctx context.Context, qualifiedName string, args map[string]interface{}) Invocation {
	ctx, span := otel.Tracer("onboard/gateway").Start(ctx, "gateway.invoke")
	defer span.End()

	inv := Invocation{
		ID:        uuid.NewString(),
		Tool:      qualifiedName,
		Arguments: args,
		Timestamp: time.Now().UTC(),
	}

	service, tool, ok := splitQualifiedName(qualifiedName)
	start := time.Now()
	if !ok {
		inv.Error = fmt.Sprintf("malformed tool name %q: want <service>.<tool>", qualifiedName)
	} else {
		inv.Service = service
		g.mu.RLock()
		client := g.services[service]
		g.mu.RUnlock()
		if client == nil {
			inv.Error = fmt.Sprintf("unknown service %q", service)
		} else {
			result, err := client.CallTool(ctx, tool, args)
			if err != nil {
				inv.Error = err.Error()
			} else {
				inv.Result = ResultText(result)
			}
		}
	}
	inv.DurationMs = time.Since(start).Milliseconds()

	span.SetAttributes(telemetry.ToolCallAttributes(inv.Tool, inv.Service, inv.ID, float64(inv.DurationMs), inv.OK())...)
	if m, err := telemetry.GetMetrics(); err == nil {
		m.RecordToolCall(ctx, inv.Tool, inv.Service, inv.DurationMs, inv.OK())
	}

	if inv.OK() {
		g.logger.DebugContext(ctx, "gateway.invoke.done",
			slog.String("tool", inv.Tool),
			slog.Int64("duration_ms", inv.DurationMs))
	} else {
		g.logger.WarnContext(ctx, "gateway.invoke.failed",
			slog.String("tool", inv.Tool),
			slog.String("error", inv.Error),
			slog.Int64("duration_ms", inv.DurationMs))
	}
	return inv
}

func (g *Gateway) cachedCapabilities() []Capability {
	if g.cacheTTL == 0 {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.capCache) == 0 || time.Now().After(g.cacheExpiry) {
		return nil
	}
	out := make([]Capability, len(g.capCache))
	copy(out, g.capCache)
	return out
}

func (g *Gateway) storeCapabilities(caps []Capability) {
	if g.cacheTTL == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.capCache = make([]Capability, len(caps))
	copy(g.capCache, caps)
	g.cacheExpiry = time.Now().Add(g.cacheTTL)
}

// splitQualifiedName splits "<service>.<tool>" on the first dot. Tool names
// may themselves contain dots.
func splitQualifiedName(name string) (service, tool string, ok bool) {
	idx := strings.Index(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

// SortCapabilities orders capabilities by qualified name, for stable prompts
// and listings.
func SortCapabilities(caps []Capability) {
	sort.Slice(caps, func(i, j int) bool { return caps[i].Name < caps[j].Name })
}
