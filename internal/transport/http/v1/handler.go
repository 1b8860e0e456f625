// Package v1 provides the REST API for session lifecycle, tool
// approvals and configuration.
package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/auth"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/config"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/mcp"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/repository"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/session"
)

// Handler handles HTTP requests.
type Handler struct {
	sessions  *session.Registry
	tools     *mcp.Handler
	providers *mcp.Registry
	store     repository.Store
	tokens    *auth.TokenService
	cfg       *config.Config
	logger    *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(sessions *session.Registry, tools *mcp.Handler, providers *mcp.Registry, store repository.Store, tokens *auth.TokenService, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		sessions:  sessions,
		tools:     tools,
		providers: providers,
		store:     store,
		tokens:    tokens,
		cfg:       cfg,
		logger:    logger,
	}
}

// RegisterRoutes registers the REST routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/voice-session/start", h.StartSession)
	e.DELETE("/api/voice-session/:session_id", h.EndSession)

	e.POST("/api/tool-approvals/:call_id/approve", h.ApproveToolCall)
	e.POST("/api/tool-approvals/:call_id/deny", h.DenyToolCall)
	e.GET("/api/tools", h.ListTools)

	e.GET("/api/bots/:bot_id", h.GetBot)
	e.POST("/api/bots", h.CreateBot)

	e.GET("/api/providers", h.ListProviders)
	e.POST("/api/providers", h.RegisterProvider)

	e.GET("/health", h.Health)
}

// Health returns health status along with any missing configuration keys.
func (h *Handler) Health(c echo.Context) error {
	missing := h.cfg.MissingRequired()
	status := "healthy"
	if len(missing) > 0 {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":          status,
		"active_sessions": h.sessions.Len(),
		"missing_config":  missing,
	})
}

// errorJSON maps a domain error onto an HTTP status with a JSON body.
func errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrConfigMissing):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrCollaborator):
		status = http.StatusBadGateway
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

// callerID reads the authenticated user from the X-User-ID header.
func callerID(c echo.Context) string {
	return c.Request().Header.Get("X-User-ID")
}
