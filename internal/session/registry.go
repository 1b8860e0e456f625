package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

const createRetries = 3

// Registry is the process-wide directory of active sessions. Create,
// Bind and End are safe to call concurrently.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Deps
}

// NewRegistry creates an empty session registry.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		deps:     deps,
	}
}

// Create looks up the bot, allocates a session id and starts the
// session loop. The transport binding arrives later via Bind.
func (r *Registry) Create(ctx context.Context, userID, botID, roomHint string) (*Session, error) {
	if userID == "" || botID == "" {
		return nil, fmt.Errorf("user_id and bot_id are required: %w", domain.ErrValidation)
	}

	bot, err := r.deps.Store.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	if bot.UserID != "" && bot.UserID != userID {
		return nil, fmt.Errorf("bot %s is not owned by caller: %w", botID, domain.ErrUnauthorized)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for attempt := 0; ; attempt++ {
		id = fmt.Sprintf("%s-%s-%d", userID, botID, time.Now().UnixNano())
		if _, exists := r.sessions[id]; !exists {
			break
		}
		if attempt == createRetries {
			return nil, fmt.Errorf("failed to allocate session id after %d attempts", createRetries)
		}
	}

	roomName := roomHint
	if roomName == "" {
		roomName = "room_" + uuid.New().String()
	}

	s := newSession(id, roomName, bot, userID, r.deps)
	r.sessions[id] = s
	s.start()
	r.deps.Metrics.SessionStarted()
	r.deps.Logger.Info("session created", "session_id", id, "user_id", userID, "bot_id", botID)
	return s, nil
}

// Get returns an active session by id.
func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return s, nil
}

// Bind attaches a transport to an existing session after checking
// ownership.
func (r *Registry) Bind(sessionID, userID string, tr Transport) (*Session, error) {
	s, err := r.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, fmt.Errorf("session %s is not owned by caller: %w", sessionID, domain.ErrUnauthorized)
	}
	s.Bind(tr)
	return s, nil
}

// End verifies ownership, stops the loop, persists a non-empty history
// and removes the session. An in-flight turn completes or times out
// before resources are released.
func (r *Registry) End(ctx context.Context, sessionID, userID string) error {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	if s.UserID != userID {
		r.mu.Unlock()
		return fmt.Errorf("session %s is not owned by caller: %w", sessionID, domain.ErrUnauthorized)
	}
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	s.stop()

	if messages := s.Context.All(); len(messages) > 0 {
		if err := r.deps.Store.SaveConversation(ctx, s.UserID, s.BotID, messages); err != nil {
			r.deps.Logger.Error("failed to persist conversation", "session_id", sessionID, "error", err)
		}
	}

	s.closeTransport()
	r.deps.Metrics.SessionEnded()
	r.deps.Logger.Info("session ended", "session_id", sessionID, "messages", s.Context.Len())
	return nil
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
