// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	werrors "github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/errors"
)

const defaultAPIVersion = "2024-06-01"

// AzureProvider implements Provider against the Azure OpenAI chat-completions
// REST API. Requests target a deployment, not a model name; the deployment is
// fixed at construction and ChatRequest.Model is ignored.
type AzureProvider struct {
	endpoint   string // e.g. https://myresource.openai.azure.com
	deployment string
	apiKey     string
	apiVersion string
	httpClient *http.Client
}

// AzureOption configures an AzureProvider.
type AzureOption func(*AzureProvider)

// WithAPIVersion overrides the default api-version query parameter.
func WithAPIVersion(version string) AzureOption {
	return func(p *AzureProvider) {
		p.apiVersion = version
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) AzureOption {
	return func(p *AzureProvider) {
		p.httpClient = c
	}
}

// NewAzureProvider creates a provider for the given Azure OpenAI resource
// endpoint, deployment name, and API key.
func NewAzureProvider(endpoint, deployment, apiKey string, opts ...AzureOption) (*AzureProvider, error) {
	if endpoint == "" {
		return nil, werrors.New(werrors.CodeInvalidInput, "azure endpoint is required", nil)
	}
	if deployment == "" {
		return nil, werrors.New(werrors.CodeInvalidInput, "azure deployment is required", nil)
	}
	if apiKey == "" {
		return nil, werrors.New(werrors.CodeInvalidInput, "azure api key is required", nil)
	}
	p := &AzureProvider{
		endpoint:   endpoint,
		deployment: deployment,
		apiKey:     apiKey,
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// azureRequest is the wire format of the chat-completions request body.
type azureRequest struct {
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// azureResponse is the wire format of the chat-completions response body.
type azureResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Chat implements Provider.
func (p *AzureProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(azureRequest{
		Messages:    req.Messages,
		Tools:       req.Tools,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, werrors.New(werrors.CodeLLMError, "failed to encode chat request", err)
	}

	u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, url.PathEscape(p.deployment), url.QueryEscape(p.apiVersion))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, werrors.New(werrors.CodeLLMError, "failed to build chat request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, werrors.New(werrors.CodeLLMError, "chat request failed", err).
			WithContext("deployment", p.deployment).
			WithRecoverable(true)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, werrors.New(werrors.CodeLLMError, "failed to read chat response", err)
	}

	var parsed azureResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, werrors.New(werrors.CodeLLMError, "failed to decode chat response", err).
			WithContext("status", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("azure openai returned status %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = fmt.Sprintf("%s: %s", msg, parsed.Error.Message)
		}
		// 429 and 5xx are retryable by the caller.
		recoverable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, werrors.New(werrors.CodeLLMError, msg, nil).
			WithContext("deployment", p.deployment).
			WithRecoverable(recoverable)
	}

	if len(parsed.Choices) == 0 {
		return nil, werrors.New(werrors.CodeLLMError, "azure openai returned no choices", nil)
	}

	choice := parsed.Choices[0]
	return &ChatResponse{
		Content:   choice.Message.Content,
		ToolCalls: choice.Message.ToolCalls,
		Usage:     parsed.Usage,
	}, nil
}
