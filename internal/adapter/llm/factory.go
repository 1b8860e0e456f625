package llm

import (
	"log/slog"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/config"
)

// NewClient creates an LLM client from configuration. Mock mode returns
// a MockClient so the server can run without credentials.
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	if cfg.MockMode {
		logger.Warn("mock mode enabled, using mock LLM client")
		return NewMockClient()
	}
	return NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, "gemini-2.0-flash", cfg.LLMTimeout)
}
