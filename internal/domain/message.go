package domain

import "time"

// Message is one entry in a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// BotConfig is the persisted persona configuration for a bot.
type BotConfig struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Personality string    `json:"personality"`
	Model       string    `json:"model"`
	Voice       string    `json:"voice"`
	AutoSpeak   bool      `json:"auto_speak"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversation is a persisted copy of one session's message history.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BotID     string    `json:"bot_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}
