// Package config provides configuration for the voice assistant backend.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the backend configuration. It is loaded once at startup
// and passed by constructor injection; business logic never reads the
// environment directly.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Collaborator credentials
	LLMBaseURL     string
	LLMAPIKey      string
	STTBaseURL     string
	STTAPIKey      string
	TTSBaseURL     string
	TTSAPIKey      string
	SearchAPIKey   string
	WeatherAPIKey  string
	TokenSecret    string

	// Timeouts
	LLMTimeout      time.Duration
	STTTimeout      time.Duration
	TTSTimeout      time.Duration
	ToolTimeout     time.Duration
	DiscoveryTimeout time.Duration

	// Approval sweep
	ApprovalTTL   time.Duration
	SweepInterval time.Duration

	// Conversation context window for model calls
	ContextWindow int

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Logging
	LogLevel string

	// MockMode swaps all collaborator adapters for mocks. Used for
	// local development without credentials.
	MockMode bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:    getEnvInt("HTTP_PORT", 8000),
		DatabaseURL: getEnv("DATABASE_URL", "file:voicesoul.db?cache=shared&mode=rwc"),

		LLMBaseURL:    getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com"),
		LLMAPIKey:     getEnv("GEMINI_API_KEY", ""),
		STTBaseURL:    getEnv("STT_BASE_URL", "https://api.deepgram.com"),
		STTAPIKey:     getEnv("DEEPGRAM_API_KEY", ""),
		TTSBaseURL:    getEnv("TTS_BASE_URL", "https://api.deepgram.com"),
		TTSAPIKey:     getEnv("DEEPGRAM_API_KEY", ""),
		SearchAPIKey:  getEnv("PERPLEXITY_API_KEY", ""),
		WeatherAPIKey: getEnv("OPENWEATHER_API_KEY", ""),
		TokenSecret:   getEnv("TOKEN_SECRET", ""),

		LLMTimeout:       time.Duration(getEnvInt("LLM_TIMEOUT_MS", 60000)) * time.Millisecond,
		STTTimeout:       time.Duration(getEnvInt("STT_TIMEOUT_MS", 15000)) * time.Millisecond,
		TTSTimeout:       time.Duration(getEnvInt("TTS_TIMEOUT_MS", 15000)) * time.Millisecond,
		ToolTimeout:      time.Duration(getEnvInt("TOOL_TIMEOUT_MS", 30000)) * time.Millisecond,
		DiscoveryTimeout: time.Duration(getEnvInt("DISCOVERY_TIMEOUT_MS", 10000)) * time.Millisecond,

		ApprovalTTL:   time.Duration(getEnvInt("APPROVAL_TTL_MS", 600000)) * time.Millisecond,
		SweepInterval: time.Duration(getEnvInt("APPROVAL_SWEEP_INTERVAL_MS", 60000)) * time.Millisecond,

		ContextWindow: getEnvInt("CONTEXT_WINDOW", 10),

		PingInterval:   time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:   time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:    time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 1<<20)),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		MockMode: getEnvBool("MOCK_MODE", false),
	}
}

// MissingRequired returns the names of required credentials that are not
// set. The server still starts without them; the affected collaborator
// calls degrade at call time instead.
func (c *Config) MissingRequired() []string {
	var missing []string
	if c.LLMAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.STTAPIKey == "" {
		missing = append(missing, "DEEPGRAM_API_KEY")
	}
	if c.TokenSecret == "" {
		missing = append(missing, "TOKEN_SECRET")
	}
	return missing
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
