package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

// Invoker performs the HTTP side of the tool protocol against external
// providers: tool discovery and tool execution.
type Invoker struct {
	httpClient       *http.Client
	discoveryTimeout time.Duration
}

// NewInvoker creates an invoker. execTimeout bounds tool execution,
// discoveryTimeout bounds the tools listing call.
func NewInvoker(execTimeout, discoveryTimeout time.Duration) *Invoker {
	return &Invoker{
		httpClient:       &http.Client{Timeout: execTimeout},
		discoveryTimeout: discoveryTimeout,
	}
}

type discoveryResponse struct {
	Tools []domain.ToolSchema `json:"tools"`
}

// DiscoverTools fetches the provider's tool list from {url}/tools. The
// endpoint may return either a bare schema array or an object with a
// "tools" field.
func (inv *Invoker) DiscoverTools(ctx context.Context, cfg domain.ProviderConfig) ([]domain.ToolSchema, error) {
	ctx, cancel := context.WithTimeout(ctx, inv.discoveryTimeout)
	defer cancel()

	url := strings.TrimSuffix(cfg.URL, "/") + "/tools"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := inv.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery request failed: %w: %w", domain.ErrCollaborator, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery returned status %d: %w", resp.StatusCode, domain.ErrCollaborator)
	}

	var wrapped discoveryResponse
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Tools != nil {
		return wrapped.Tools, nil
	}
	var bare []domain.ToolSchema
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool list: %w", err)
	}
	return bare, nil
}

type invokeRequest struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

type invokeResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// Invoke executes one tool call against an external provider with the
// fixed {tool, arguments} envelope.
func (inv *Invoker) Invoke(ctx context.Context, cfg domain.ProviderConfig, tool string, args json.RawMessage) (string, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	payload, err := json.Marshal(invokeRequest{Tool: tool, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := inv.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tool call failed: %w: %w", domain.ErrCollaborator, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("tool %s returned status %d: %w", tool, resp.StatusCode, domain.ErrCollaborator)
	}

	var parsed invokeResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		// Providers are allowed to answer with plain text.
		return string(data), nil
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("tool %s failed: %s: %w", tool, parsed.Error, domain.ErrCollaborator)
	}
	return rawToText(parsed.Result), nil
}

// rawToText renders a result value as the text fed back to the model.
// String results drop their quotes; everything else stays JSON.
func rawToText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
