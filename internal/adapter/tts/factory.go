package tts

import (
	"log/slog"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/config"
)

// NewClient creates a TTS client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	if cfg.MockMode {
		logger.Warn("mock mode enabled, using mock TTS client")
		return NewMockClient()
	}
	return NewHTTPClient(cfg.TTSBaseURL, cfg.TTSAPIKey, cfg.TTSTimeout)
}
