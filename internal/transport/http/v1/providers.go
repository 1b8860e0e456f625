package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

// providerView is a provider config without its credential.
type providerView struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Enabled      bool   `json:"enabled"`
	ApprovalMode string `json:"approval_mode"`
	Description  string `json:"description,omitempty"`
	ToolCount    int    `json:"tool_count"`
}

// ListProviders returns every registered provider with its tool count.
// GET /api/providers
func (h *Handler) ListProviders(c echo.Context) error {
	enabled := make(map[string]int)
	for _, tool := range h.tools.AvailableTools() {
		if p, err := h.providers.Resolve(tool.Name); err == nil {
			enabled[p.Config.Name]++
		}
	}

	out := []providerView{}
	for _, cfg := range h.providers.Providers() {
		out = append(out, providerView{
			Name:         cfg.Name,
			URL:          cfg.URL,
			Enabled:      cfg.Enabled,
			ApprovalMode: string(cfg.ApprovalMode),
			Description:  cfg.Description,
			ToolCount:    enabled[cfg.Name],
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"providers": out})
}

// RegisterProviderRequest is the request to register an external tool
// provider.
type RegisterProviderRequest struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	APIKey       string `json:"api_key,omitempty"`
	ApprovalMode string `json:"approval_mode"`
	Description  string `json:"description,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

// RegisterProvider persists and registers an external provider. Its
// tools are discovered immediately; discovery failure still registers
// the provider, which then contributes zero tools.
// POST /api/providers
func (h *Handler) RegisterProvider(c echo.Context) error {
	var req RegisterProviderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	mode := domain.ApprovalMode(req.ApprovalMode)
	if req.ApprovalMode == "" {
		mode = domain.ApprovalAlwaysAsk
	}
	cfg := domain.ProviderConfig{
		Name:         req.Name,
		URL:          req.URL,
		APIKey:       req.APIKey,
		Enabled:      true,
		ApprovalMode: mode,
		Description:  req.Description,
		UserID:       req.UserID,
	}
	if cfg.Builtin() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "builtin providers cannot be registered over the API"})
	}

	if err := h.store.SaveProvider(c.Request().Context(), &cfg); err != nil {
		return errorJSON(c, err)
	}
	if err := h.providers.RegisterExternal(c.Request().Context(), cfg); err != nil {
		return errorJSON(c, err)
	}

	tools := 0
	for _, tool := range h.tools.AvailableTools() {
		if p, err := h.providers.Resolve(tool.Name); err == nil && p.Config.Name == cfg.Name {
			tools++
		}
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"registered": true,
		"name":       cfg.Name,
		"tool_count": tools,
	})
}
