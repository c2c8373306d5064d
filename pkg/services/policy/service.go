// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/mcp"
)

const (
	defaultCollection  = "policy_documents"
	defaultSearchLimit = 5
	scoreThreshold     = 0.0
)

// Service is the policy-search backing service. It owns the vector index
// and exposes the compliance tool set over MCP.
type Service struct {
	store      VectorStore
	embedder   Embedder
	collection string
	server     *mcp.Server
	logger     *slog.Logger

	mu         sync.RWMutex
	categories map[string]int
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithCollection overrides the index collection name.
func WithCollection(name string) ServiceOption {
	return func(s *Service) {
		if name != "" {
			s.collection = name
		}
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates the policy service and registers its tools.
func NewService(store VectorStore, embedder Embedder, opts ...ServiceOption) (*Service, error) {
	if store == nil || embedder == nil {
		return nil, fmt.Errorf("policy: store and embedder are required")
	}
	s := &Service{
		store:      store,
		embedder:   embedder,
		collection: defaultCollection,
		server:     mcp.NewServer("policy-service", "0.1.0"),
		logger:     slog.Default(),
		categories: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s, nil
}

// Server returns the underlying MCP server, for transports and tests.
func (s *Service) Server() *mcp.Server {
	return s.server
}

// ServeStreamableHTTP serves the tool set on addr. It blocks.
func (s *Service) ServeStreamableHTTP(addr string) error {
	return s.server.ServeStreamableHTTP(addr)
}

// Seed embeds and indexes the given documents, creating the collection
// sized to the embedder's output on first use.
func (s *Service) Seed(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]Point, 0, len(docs))
	for _, doc := range docs {
		vector, err := s.embedder.Embed(ctx, doc.Title+"\n"+doc.Content)
		if err != nil {
			return fmt.Errorf("policy: embed document %q: %w", doc.Title, err)
		}
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		points = append(points, Point{
			ID:     id,
			Vector: vector,
			Payload: map[string]interface{}{
				"title":    doc.Title,
				"category": doc.Category,
				"content":  doc.Content,
			},
		})
	}

	// Collection creation is idempotent on most backends; an already-exists
	// error is fine.
	if err := s.store.CreateCollection(ctx, s.collection, uint64(len(points[0].Vector))); err != nil {
		s.logger.DebugContext(ctx, "policy.collection.create", slog.String("error", err.Error()))
	}
	if err := s.store.Upsert(ctx, s.collection, points); err != nil {
		return err
	}

	s.mu.Lock()
	for _, doc := range docs {
		s.categories[doc.Category]++
	}
	s.mu.Unlock()
	return nil
}

func (s *Service) registerTools() {
	s.server.RegisterTool(
		mcpgo.NewTool("search_policies",
			mcpgo.WithDescription("Semantic search over company policy documents to find relevant policies."),
			mcpgo.WithString("query", mcpgo.Required(), mcpgo.Description("Search query text")),
			mcpgo.WithString("category", mcpgo.Description("Optional category filter")),
			mcpgo.WithNumber("limit", mcpgo.Description("Maximum number of results")),
		),
		s.handleSearchPolicies,
	)

	s.server.RegisterTool(
		mcpgo.NewTool("get_policy_requirements",
			mcpgo.WithDescription("Get specific policy requirements for a product type."),
			mcpgo.WithString("product_type", mcpgo.Required(), mcpgo.Description("Insurance product type")),
			mcpgo.WithString("requirement_type", mcpgo.Description("Optional requirement category")),
		),
		s.handleGetPolicyRequirements,
	)

	s.server.RegisterTool(
		mcpgo.NewTool("check_compliance",
			mcpgo.WithDescription("Check whether customer data meets policy compliance requirements."),
			mcpgo.WithObject("customer_data", mcpgo.Required(), mcpgo.Description("Collected customer fields")),
			mcpgo.WithString("product_type", mcpgo.Required(), mcpgo.Description("Insurance product type")),
			mcpgo.WithArray("check_types", mcpgo.Description("Compliance checks to run, defaults to aml, kyc, eligibility")),
		),
		s.handleCheckCompliance,
	)

	s.server.RegisterTool(
		mcpgo.NewTool("list_policy_categories",
			mcpgo.WithDescription("List available policy document categories."),
		),
		s.handleListCategories,
	)
}

func (s *Service) handleSearchPolicies(ctx context.Context, args map[string]interface{}) (*mcpgo.CallToolResult, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return toolError("query is required"), nil
	}
	category, _ := args["category"].(string)
	limit := intArg(args, "limit", defaultSearchLimit)

	hits, err := s.search(ctx, query, limit)
	if err != nil {
		return toolError(err.Error()), nil
	}
	if category != "" {
		filtered := hits[:0]
		for _, hit := range hits {
			if c, _ := hit.Payload["category"].(string); c == category {
				filtered = append(filtered, hit)
			}
		}
		hits = filtered
	}
	return toolJSON(map[string]interface{}{
		"query":   query,
		"results": hitsPayload(hits),
	})
}

func (s *Service) handleGetPolicyRequirements(ctx context.Context, args map[string]interface{}) (*mcpgo.CallToolResult, error) {
	productType, _ := args["product_type"].(string)
	if productType == "" {
		return toolError("product_type is required"), nil
	}
	query := productType + " policy requirements"
	if requirementType, _ := args["requirement_type"].(string); requirementType != "" {
		query += " " + requirementType
	}

	hits, err := s.search(ctx, query, defaultSearchLimit)
	if err != nil {
		return toolError(err.Error()), nil
	}
	return toolJSON(map[string]interface{}{
		"product_type": productType,
		"requirements": hitsPayload(hits),
	})
}

func (s *Service) handleCheckCompliance(ctx context.Context, args map[string]interface{}) (*mcpgo.CallToolResult, error) {
	productType, _ := args["product_type"].(string)
	if productType == "" {
		return toolError("product_type is required"), nil
	}
	customerData, _ := args["customer_data"].(map[string]interface{})
	checkTypes := stringsArg(args, "check_types", []string{"aml", "kyc", "eligibility"})

	var summary strings.Builder
	summary.WriteString("Customer applying for " + productType + ": ")
	for _, key := range sortedKeys(customerData) {
		fmt.Fprintf(&summary, "%s %v, ", key, customerData[key])
	}
	summary.WriteString("checks needed: " + strings.Join(checkTypes, ", "))

	hits, err := s.search(ctx, summary.String(), defaultSearchLimit)
	if err != nil {
		return toolError(err.Error()), nil
	}
	return toolJSON(map[string]interface{}{
		"product_type":      productType,
		"checks_requested":  checkTypes,
		"relevant_policies": hitsPayload(hits),
	})
}

func (s *Service) handleListCategories(_ context.Context, _ map[string]interface{}) (*mcpgo.CallToolResult, error) {
	s.mu.RLock()
	out := make([]map[string]interface{}, 0, len(s.categories))
	for _, category := range sortedKeys(toAnyMap(s.categories)) {
		out = append(out, map[string]interface{}{
			"category":       category,
			"document_count": s.categories[category],
		})
	}
	s.mu.RUnlock()
	return toolJSON(map[string]interface{}{"categories": out})
}

func (s *Service) search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	return s.store.Search(ctx, s.collection, vector, limit, scoreThreshold)
}

func hitsPayload(hits []SearchResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(hits))
	for _, hit := range hits {
		entry := map[string]interface{}{"score": hit.Score}
		for k, v := range hit.Payload {
			entry[k] = v
		}
		out = append(out, entry)
	}
	return out
}

func toolJSON(v interface{}) (*mcpgo.CallToolResult, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return toolError(err.Error()), nil
	}
	return &mcpgo.CallToolResult{
		Content: []mcpgo.Content{mcpgo.TextContent{Type: "text", Text: string(encoded)}},
	}, nil
}

func toolError(msg string) *mcpgo.CallToolResult {
	return &mcpgo.CallToolResult{
		IsError: true,
		Content: []mcpgo.Content{mcpgo.TextContent{Type: "text", Text: msg}},
	}
}

func intArg(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}

func stringsArg(args map[string]interface{}, key string, def []string) []string {
	raw, ok := args[key].([]interface{})
	if !ok || len(raw) == 0 {
		return def
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toAnyMap(m map[string]int) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
