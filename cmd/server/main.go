package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/adapter/llm"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/adapter/stt"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/adapter/tts"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/auth"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/config"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/mcp"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/obs"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/policy"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/repository"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/session"
	v1 "github.com/siddhartharyaai/voice-soul-agent-isha/internal/transport/http/v1"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/ws"
)

const tokenTTL = 24 * time.Hour

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	logger.Info("starting voice assistant backend",
		"http_port", cfg.HTTPPort, "database", cfg.DatabaseURL, "mock_mode", cfg.MockMode)
	if missing := cfg.MissingRequired(); len(missing) > 0 {
		logger.Warn("missing credentials, affected collaborators will degrade per call",
			"keys", strings.Join(missing, ", "))
	}

	store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}

	metrics := obs.NewMetrics(prometheus.DefaultRegisterer)

	// Tool protocol layer: builtin providers plus any persisted
	// external ones.
	invoker := mcp.NewInvoker(cfg.ToolTimeout, cfg.DiscoveryTimeout)
	providers := mcp.NewRegistry(invoker, logger)
	if err := mcp.RegisterBuiltins(providers, cfg); err != nil {
		logger.Error("failed to register builtin providers", "error", err)
		os.Exit(1)
	}
	if saved, err := store.ListProviders(ctx, ""); err != nil {
		logger.Warn("failed to load saved providers", "error", err)
	} else {
		for _, p := range saved {
			if p.Builtin() {
				continue
			}
			if err := providers.RegisterExternal(ctx, p); err != nil {
				logger.Warn("failed to register saved provider", "provider", p.Name, "error", err)
			}
		}
	}

	go refreshProviders(ctx, providers)

	approvals := mcp.NewApprovalStore(cfg.ApprovalTTL)
	go approvals.RunSweeper(ctx, cfg.SweepInterval, logger)

	tools := mcp.NewHandler(providers, approvals, policyEngine, metrics, logger)

	sessions := session.NewRegistry(session.Deps{
		Store:   store,
		STT:     stt.NewClient(cfg, logger),
		LLM:     llm.NewClient(cfg, logger),
		TTS:     tts.NewClient(cfg, logger),
		Tools:   tools,
		Metrics: metrics,
		Logger:  logger,
		Cfg:     cfg,
	})

	tokens := auth.NewTokenService(cfg.TokenSecret, tokenTTL)
	wsServer := ws.NewServer(cfg, sessions, tokens, metrics, logger)
	handler := v1.NewHandler(sessions, tools, providers, store, tokens, cfg, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler.RegisterRoutes(e)
	e.GET("/ws/:session_id", wsServer.HandleWebSocket)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()
	logger.Info("listening", "port", cfg.HTTPPort)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down gracefully", "error", err)
	}
}

// refreshProviders retries tool discovery for external providers that
// registered with zero tools.
func refreshProviders(ctx context.Context, providers *mcp.Registry) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			providers.Refresh(ctx)
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
