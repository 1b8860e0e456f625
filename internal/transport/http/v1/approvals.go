package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ApproveToolCall consumes a pending call and executes it.
// POST /api/tool-approvals/:call_id/approve
func (h *Handler) ApproveToolCall(c echo.Context) error {
	result, err := h.tools.Approve(c.Request().Context(), c.Param("call_id"))
	if err != nil {
		return errorJSON(c, err)
	}
	if result.Failed() {
		return c.JSON(http.StatusOK, map[string]string{"error": result.Err})
	}
	return c.JSON(http.StatusOK, map[string]string{"result": result.Text})
}

// DenyToolCall consumes a pending call without executing it.
// POST /api/tool-approvals/:call_id/deny
func (h *Handler) DenyToolCall(c echo.Context) error {
	denied := h.tools.Deny(c.Param("call_id"))
	if !denied {
		return c.JSON(http.StatusNotFound, map[string]any{
			"denied": false,
			"error":  "pending call not found",
		})
	}
	return c.JSON(http.StatusOK, map[string]bool{"denied": true})
}

// ListTools returns the tool schemas currently advertised to the model.
// GET /api/tools
func (h *Handler) ListTools(c echo.Context) error {
	tools := h.tools.AvailableTools()
	return c.JSON(http.StatusOK, map[string]any{"tools": tools})
}
