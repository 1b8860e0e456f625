package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

const defaultVoice = "aura-asteria-en"

// HTTPClient talks to a Deepgram-compatible speech synthesis endpoint.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a new TTS HTTP client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize posts the text and returns the raw audio payload.
func (c *HTTPClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("tts api key not set: %w", domain.ErrConfigMissing)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if voice == "" {
		voice = defaultVoice
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/v1/speak?model=" + url.QueryEscape(voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w: %w", domain.ErrCollaborator, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts returned status %d: %w", resp.StatusCode, domain.ErrCollaborator)
	}
	return data, nil
}
