// Package repository provides persistent storage for bots, providers and
// conversation history.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

// Store is the persistence interface consumed by the rest of the backend.
type Store interface {
	GetBot(ctx context.Context, botID string) (*domain.BotConfig, error)
	CreateBot(ctx context.Context, bot *domain.BotConfig) error

	SaveConversation(ctx context.Context, userID, botID string, messages []domain.Message) error
	ListConversations(ctx context.Context, userID, botID string, limit int) ([]domain.Conversation, error)

	ListProviders(ctx context.Context, userID string) ([]domain.ProviderConfig, error)
	SaveProvider(ctx context.Context, p *domain.ProviderConfig) error

	Close() error
}

const botCacheSize = 256

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	botCache *lru.Cache[string, *domain.BotConfig]
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	cache, err := lru.New[string, *domain.BotConfig](botCacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bot cache: %w", err)
	}

	store := &SQLiteStore{db: db, botCache: cache}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS bots (
			bot_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			personality TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			voice TEXT NOT NULL DEFAULT '',
			auto_speak INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bots_user ON bots(user_id)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			bot_id TEXT NOT NULL,
			messages TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_bot ON conversations(user_id, bot_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS providers (
			name TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			api_key TEXT,
			enabled INTEGER NOT NULL DEFAULT 1,
			approval_mode TEXT NOT NULL DEFAULT 'always_ask',
			description TEXT,
			user_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_providers_user ON providers(user_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// GetBot returns the bot configuration, or domain.ErrNotFound.
func (s *SQLiteStore) GetBot(ctx context.Context, botID string) (*domain.BotConfig, error) {
	if bot, ok := s.botCache.Get(botID); ok {
		return bot, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT bot_id, user_id, name, personality, model, voice, auto_speak, created_at
		 FROM bots WHERE bot_id = ?`, botID)

	var bot domain.BotConfig
	var autoSpeak int
	err := row.Scan(&bot.ID, &bot.UserID, &bot.Name, &bot.Personality, &bot.Model, &bot.Voice, &autoSpeak, &bot.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bot %s: %w", botID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	bot.AutoSpeak = autoSpeak != 0

	s.botCache.Add(botID, &bot)
	return &bot, nil
}

// CreateBot inserts or replaces a bot configuration.
func (s *SQLiteStore) CreateBot(ctx context.Context, bot *domain.BotConfig) error {
	if bot.ID == "" || bot.UserID == "" || bot.Name == "" {
		return fmt.Errorf("bot id, user id and name are required: %w", domain.ErrValidation)
	}
	if bot.CreatedAt.IsZero() {
		bot.CreatedAt = time.Now()
	}

	autoSpeak := 0
	if bot.AutoSpeak {
		autoSpeak = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO bots (bot_id, user_id, name, personality, model, voice, auto_speak, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bot.ID, bot.UserID, bot.Name, bot.Personality, bot.Model, bot.Voice, autoSpeak, bot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	s.botCache.Remove(bot.ID)
	return nil
}

// SaveConversation persists a finished session's full message history.
func (s *SQLiteStore) SaveConversation(ctx context.Context, userID, botID string, messages []domain.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	id := fmt.Sprintf("conv_%s_%d", userID, time.Now().UnixNano())
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, user_id, bot_id, messages, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, userID, botID, string(data), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// ListConversations returns the most recent conversations for a user/bot pair.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID, botID string, limit int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, user_id, bot_id, messages, created_at
		 FROM conversations WHERE user_id = ? AND bot_id = ?
		 ORDER BY created_at DESC LIMIT ?`, userID, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var raw string
		if err := rows.Scan(&c.ID, &c.UserID, &c.BotID, &raw, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &c.Messages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListProviders returns the enabled and disabled provider configurations
// registered by a user. Global providers (empty user_id) are included.
func (s *SQLiteStore) ListProviders(ctx context.Context, userID string) ([]domain.ProviderConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, url, COALESCE(api_key, ''), enabled, approval_mode, COALESCE(description, ''), COALESCE(user_id, '')
		 FROM providers WHERE user_id = ? OR user_id = '' OR user_id IS NULL
		 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var out []domain.ProviderConfig
	for rows.Next() {
		var p domain.ProviderConfig
		var enabled int
		if err := rows.Scan(&p.Name, &p.URL, &p.APIKey, &enabled, &p.ApprovalMode, &p.Description, &p.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		p.Enabled = enabled != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveProvider inserts or replaces a provider configuration.
func (s *SQLiteStore) SaveProvider(ctx context.Context, p *domain.ProviderConfig) error {
	if p.Name == "" {
		return fmt.Errorf("provider name is required: %w", domain.ErrValidation)
	}
	if p.URL == "" {
		return fmt.Errorf("provider url is required: %w", domain.ErrValidation)
	}
	if !p.ApprovalMode.Valid() {
		return fmt.Errorf("invalid approval mode %q: %w", p.ApprovalMode, domain.ErrValidation)
	}

	enabled := 0
	if p.Enabled {
		enabled = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO providers (name, url, api_key, enabled, approval_mode, description, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.URL, p.APIKey, enabled, string(p.ApprovalMode), p.Description, p.UserID)
	if err != nil {
		return fmt.Errorf("failed to save provider: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
