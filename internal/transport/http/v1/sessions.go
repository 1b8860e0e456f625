package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StartSessionRequest is the request to start a voice session.
type StartSessionRequest struct {
	UserID   string `json:"user_id"`
	BotID    string `json:"bot_id"`
	RoomHint string `json:"room_hint,omitempty"`
}

// StartSessionResponse carries the session handle and the token the
// client presents when opening the WebSocket.
type StartSessionResponse struct {
	SessionID   string `json:"session_id"`
	RoomName    string `json:"room_name"`
	AccessToken string `json:"access_token"`
	BotName     string `json:"bot_name"`
}

// StartSession creates a session for a user and bot.
// POST /api/voice-session/start
func (h *Handler) StartSession(c echo.Context) error {
	var req StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}
	if req.BotID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bot_id is required"})
	}

	sess, err := h.sessions.Create(c.Request().Context(), req.UserID, req.BotID, req.RoomHint)
	if err != nil {
		return errorJSON(c, err)
	}

	token, err := h.tokens.Issue(sess.ID, req.UserID)
	if err != nil {
		// Roll the session back so a token failure does not leak it.
		h.sessions.End(c.Request().Context(), sess.ID, req.UserID)
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, StartSessionResponse{
		SessionID:   sess.ID,
		RoomName:    sess.RoomName,
		AccessToken: token,
		BotName:     sess.Bot.Name,
	})
}

// EndSession ends a session owned by the caller.
// DELETE /api/voice-session/:session_id
func (h *Handler) EndSession(c echo.Context) error {
	userID := callerID(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
	}

	if err := h.sessions.End(c.Request().Context(), c.Param("session_id"), userID); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ended": true})
}
