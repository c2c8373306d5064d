package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// AzureEmbedder implements Embedder against the Azure OpenAI embeddings API.
type AzureEmbedder struct {
	endpoint   string
	deployment string
	apiKey     string
	apiVersion string
	client     *http.Client
}

// NewAzureEmbedder creates an embedder for the given Azure OpenAI resource
// endpoint and embeddings deployment.
func NewAzureEmbedder(endpoint, deployment, apiKey, apiVersion string) *AzureEmbedder {
	if apiVersion == "" {
		apiVersion = "2024-06-01"
	}
	return &AzureEmbedder{
		endpoint:   endpoint,
		deployment: deployment,
		apiKey:     apiKey,
		apiVersion: apiVersion,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

type embeddingRequest struct {
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed converts a text string into a vector.
func (e *AzureEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("policy: marshal embedding request: %w", err)
	}

	u := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		e.endpoint, url.PathEscape(e.deployment), url.QueryEscape(e.apiVersion))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("policy: build embedding request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("policy: embedding call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("policy: embedding api returned status %d", resp.StatusCode)
	}

	var decoded embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("policy: decode embedding response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("policy: embedding response contained no vectors")
	}
	return decoded.Data[0].Embedding, nil
}

var _ Embedder = (*AzureEmbedder)(nil)
