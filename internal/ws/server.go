package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/auth"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/config"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/obs"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/protocol"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/session"
)

// Server upgrades voice clients to WebSocket and bridges frames to the
// session loop.
type Server struct {
	cfg      *config.Config
	sessions *session.Registry
	tokens   *auth.TokenService
	metrics  *obs.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, sessions *session.Registry, tokens *auth.TokenService, metrics *obs.Metrics, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket authenticates the access token, upgrades the
// connection and binds it to the session.
func (s *Server) HandleWebSocket(c echo.Context) error {
	sessionID := c.Param("session_id")
	claims, err := s.tokens.Validate(c.QueryParam("token"))
	if err != nil || claims.SessionID != sessionID {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
	}

	wsConn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return err
	}

	conn := newConnection(wsConn, s.cfg, s.logger)
	sess, err := s.sessions.Bind(sessionID, claims.UserID, conn)
	if err != nil {
		// The write pump only runs for bound connections, so the
		// error frame has to go out synchronously.
		frame, _ := json.Marshal(protocol.NewError("session not available"))
		wsConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		wsConn.WriteMessage(websocket.TextMessage, frame)
		wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session not available"))
		conn.Close()
		return nil
	}

	wsConn.SetReadLimit(s.cfg.MaxMessageSize)
	go conn.writePump()
	go s.readPump(conn, sess)
	return nil
}

// readPump reads frames until the connection drops. If the binding was
// not replaced by a reconnect, the session ends and its history is
// persisted.
func (s *Server) readPump(conn *Connection, sess *session.Session) {
	defer func() {
		conn.Close()
		if sess.DetachTransport(conn) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.sessions.End(ctx, sess.ID, sess.UserID); err != nil {
				s.logger.Warn("failed to end session on disconnect", "session_id", sess.ID, "error", err)
			}
		}
	}()

	conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read failed", "conn_id", conn.ID, "error", err)
			}
			return
		}
		conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		if !s.handleFrame(conn, sess, data) {
			return
		}
	}
}

// handleFrame dispatches one inbound frame. It returns false only on a
// transport fault; business failures answer with an error frame and
// keep the connection open.
func (s *Server) handleFrame(conn *Connection, sess *session.Session, data []byte) bool {
	inbound, err := protocol.Decode(data)
	if err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			s.logger.Warn("malformed frame, closing connection", "conn_id", conn.ID)
			return false
		}
		conn.Send(protocol.NewError(err.Error()))
		return true
	}

	s.metrics.WSMessage(inbound.Type)
	switch inbound.Type {
	case protocol.TypeInterrupt:
		sess.Interrupt()
	case protocol.TypeToggleMute:
		sess.ToggleMute()
	default:
		if err := sess.Enqueue(inbound); err != nil {
			conn.Send(protocol.NewError("session is busy, message dropped"))
		}
	}
	return true
}
