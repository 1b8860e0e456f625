package stt

import (
	"log/slog"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/config"
)

// NewClient creates an STT client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	if cfg.MockMode {
		logger.Warn("mock mode enabled, using mock STT client")
		return NewMockClient()
	}
	return NewHTTPClient(cfg.STTBaseURL, cfg.STTAPIKey, cfg.STTTimeout)
}
