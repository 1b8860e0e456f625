package v1

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

// GetBot returns one bot configuration.
// GET /api/bots/:bot_id
func (h *Handler) GetBot(c echo.Context) error {
	bot, err := h.store.GetBot(c.Request().Context(), c.Param("bot_id"))
	if err != nil {
		return errorJSON(c, err)
	}
	if owner := callerID(c); bot.UserID != "" && bot.UserID != owner {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "bot is not owned by caller"})
	}
	return c.JSON(http.StatusOK, bot)
}

// CreateBotRequest is the request to create a bot.
type CreateBotRequest struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Personality string `json:"personality"`
	Model       string `json:"model"`
	Voice       string `json:"voice"`
	AutoSpeak   bool   `json:"auto_speak"`
}

// CreateBot stores a new bot configuration.
// POST /api/bots
func (h *Handler) CreateBot(c echo.Context) error {
	var req CreateBotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	bot := &domain.BotConfig{
		ID:          "bot_" + uuid.New().String(),
		UserID:      req.UserID,
		Name:        req.Name,
		Personality: req.Personality,
		Model:       req.Model,
		Voice:       req.Voice,
		AutoSpeak:   req.AutoSpeak,
		CreatedAt:   time.Now(),
	}
	if err := h.store.CreateBot(c.Request().Context(), bot); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, bot)
}
