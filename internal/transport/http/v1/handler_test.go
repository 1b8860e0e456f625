package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/adapter/llm"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/adapter/stt"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/adapter/tts"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/auth"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/config"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/mcp"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/policy"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/repository"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/session"
	"github.com/siddhartharyaai/voice-soul-agent-isha/tests/helpers"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T) (*Handler, repository.Store, *mcp.Registry) {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	require.NoError(t, store.CreateBot(context.Background(), &domain.BotConfig{
		ID: "bot-1", UserID: "u1", Name: "Isha", Model: "test-model",
	}))

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	providers := mcp.NewRegistry(mcp.NewInvoker(time.Second, time.Second), testLogger())
	tools := mcp.NewHandler(providers, mcp.NewApprovalStore(time.Minute), engine, nil, testLogger())

	sessions := session.NewRegistry(session.Deps{
		Store:  store,
		STT:    stt.NewMockClient(),
		LLM:    llm.NewMockClient(),
		TTS:    tts.NewMockClient(),
		Tools:  tools,
		Logger: testLogger(),
		Cfg: &config.Config{
			LLMTimeout: time.Second, STTTimeout: time.Second,
			TTSTimeout: time.Second, ToolTimeout: time.Second,
			ContextWindow: 10,
		},
	})
	tokens := auth.NewTokenService("test-secret", time.Hour)
	cfg := &config.Config{
		TokenSecret: "test-secret", LLMAPIKey: "k", STTAPIKey: "k",
	}
	return NewHandler(sessions, tools, providers, store, tokens, cfg, testLogger()), store, providers
}

func doJSON(t *testing.T, h func(echo.Context) error, method, path, body, userID string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	require.NoError(t, h(c))
	return rec
}

func startSession(t *testing.T, h *Handler) StartSessionResponse {
	t.Helper()
	rec := doJSON(t, h.StartSession, http.MethodPost, "/api/voice-session/start",
		`{"user_id":"u1","bot_id":"bot-1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StartSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestStartSession(t *testing.T) {
	h, _, _ := newTestHandler(t)
	resp := startSession(t, h)

	assert.Contains(t, resp.SessionID, "u1-bot-1-")
	assert.NotEmpty(t, resp.RoomName)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Isha", resp.BotName)
}

func TestStartSessionValidation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := doJSON(t, h.StartSession, http.MethodPost, "/api/voice-session/start", `{"bot_id":"bot-1"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h.StartSession, http.MethodPost, "/api/voice-session/start",
		`{"user_id":"u1","bot_id":"ghost"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEndSessionOwnership(t *testing.T) {
	h, _, _ := newTestHandler(t)
	resp := startSession(t, h)

	// A non-owner cannot end the session.
	rec := doJSON(t, h.EndSession, http.MethodDelete, "/", "", "intruder", "session_id", resp.SessionID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The session is still active.
	rec = doJSON(t, h.Health, http.MethodGet, "/health", "", "")
	assert.Contains(t, rec.Body.String(), `"active_sessions":1`)

	rec = doJSON(t, h.EndSession, http.MethodDelete, "/", "", "u1", "session_id", resp.SessionID)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h.EndSession, http.MethodDelete, "/", "", "u1", "session_id", resp.SessionID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func registerGatedTool(t *testing.T, providers *mcp.Registry, executed *bool) {
	t.Helper()
	require.NoError(t, providers.RegisterBuiltin(
		domain.ProviderConfig{Name: "gmail", URL: "builtin://gmail", Enabled: true, ApprovalMode: domain.ApprovalAlwaysAsk},
		[]domain.ToolSchema{{Name: "send_email"}},
		map[string]mcp.ExecutorFunc{
			"send_email": func(ctx context.Context, args json.RawMessage) (string, error) {
				*executed = true
				return "Email sent.", nil
			},
		},
	))
}

func TestApproveToolCall(t *testing.T) {
	h, _, providers := newTestHandler(t)
	executed := false
	registerGatedTool(t, providers, &executed)

	pending := h.tools.Execute(context.Background(), "send_email", json.RawMessage(`{"to":"a@b.c"}`), "u1")
	require.True(t, pending.RequiresApproval)

	rec := doJSON(t, h.ApproveToolCall, http.MethodPost, "/", "", "u1", "call_id", pending.CallID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email sent.")
	assert.True(t, executed)

	// Second approval of the same call id is a distinct not-found.
	rec = doJSON(t, h.ApproveToolCall, http.MethodPost, "/", "", "u1", "call_id", pending.CallID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDenyToolCall(t *testing.T) {
	h, _, providers := newTestHandler(t)
	executed := false
	registerGatedTool(t, providers, &executed)

	pending := h.tools.Execute(context.Background(), "send_email", json.RawMessage(`{}`), "u1")
	require.True(t, pending.RequiresApproval)

	rec := doJSON(t, h.DenyToolCall, http.MethodPost, "/", "", "u1", "call_id", pending.CallID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"denied":true`)
	assert.False(t, executed)

	rec = doJSON(t, h.DenyToolCall, http.MethodPost, "/", "", "u1", "call_id", pending.CallID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"denied":false`)
}

func TestGetBot(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := doJSON(t, h.GetBot, http.MethodGet, "/", "", "u1", "bot_id", "bot-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Isha")

	rec = doJSON(t, h.GetBot, http.MethodGet, "/", "", "intruder", "bot_id", "bot-1")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h.GetBot, http.MethodGet, "/", "", "u1", "bot_id", "ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBot(t *testing.T) {
	h, store, _ := newTestHandler(t)

	rec := doJSON(t, h.CreateBot, http.MethodPost, "/api/bots",
		`{"user_id":"u2","name":"Sage","personality":"Calm.","model":"m","auto_speak":true}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var bot domain.BotConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bot))
	assert.NotEmpty(t, bot.ID)

	saved, err := store.GetBot(context.Background(), bot.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sage", saved.Name)

	rec = doJSON(t, h.CreateBot, http.MethodPost, "/api/bots", `{"name":"NoUser"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterProvider(t *testing.T) {
	h, _, providers := newTestHandler(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tools" {
			w.Write([]byte(`{"tools":[{"name":"lookup"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	body, err := json.Marshal(RegisterProviderRequest{
		Name: "remote", URL: srv.URL, ApprovalMode: "auto_approve", UserID: "u1",
	})
	require.NoError(t, err)

	rec := doJSON(t, h.RegisterProvider, http.MethodPost, "/api/providers", string(body), "u1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tool_count":1`)

	_, err = providers.Resolve("lookup")
	assert.NoError(t, err)

	// Builtin scheme is rejected over the API.
	rec = doJSON(t, h.RegisterProvider, http.MethodPost, "/api/providers",
		`{"name":"x","url":"builtin://x","approval_mode":"never","user_id":"u1"}`, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProviders(t *testing.T) {
	h, _, providers := newTestHandler(t)
	executed := false
	registerGatedTool(t, providers, &executed)

	rec := doJSON(t, h.ListProviders, http.MethodGet, "/api/providers", "", "u1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"gmail"`)
	assert.Contains(t, rec.Body.String(), `"tool_count":1`)
	assert.NotContains(t, rec.Body.String(), "api_key")
}

func TestListTools(t *testing.T) {
	h, _, providers := newTestHandler(t)
	executed := false
	registerGatedTool(t, providers, &executed)

	rec := doJSON(t, h.ListTools, http.MethodGet, "/api/tools", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "send_email")
}

func TestHealthReportsMissingConfig(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := doJSON(t, h.Health, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	h.cfg = &config.Config{}
	rec = doJSON(t, h.Health, http.MethodGet, "/health", "", "")
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "TOKEN_SECRET")
}
