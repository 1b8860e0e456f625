package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	bot := &domain.BotConfig{
		ID:          "bot1",
		UserID:      "u1",
		Name:        "Isha",
		Personality: "warm and concise",
		Model:       "gemini-1.5-flash",
		Voice:       "aura-2-thalia-en",
		AutoSpeak:   true,
	}
	require.NoError(t, s.CreateBot(ctx, bot))

	got, err := s.GetBot(ctx, "bot1")
	require.NoError(t, err)
	assert.Equal(t, "Isha", got.Name)
	assert.True(t, got.AutoSpeak)

	// Second read is served from the cache and stays equal.
	again, err := s.GetBot(ctx, "bot1")
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestGetBotNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetBot(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateBotInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateBot(ctx, &domain.BotConfig{ID: "bot1", UserID: "u1", Name: "Isha"}))
	_, err := s.GetBot(ctx, "bot1")
	require.NoError(t, err)

	require.NoError(t, s.CreateBot(ctx, &domain.BotConfig{ID: "bot1", UserID: "u1", Name: "Renamed"}))
	got, err := s.GetBot(ctx, "bot1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestConversationRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	messages := []domain.Message{
		{Role: domain.RoleUser, Content: "hello", Timestamp: time.Now().UTC()},
		{Role: domain.RoleAssistant, Content: "hi there", Timestamp: time.Now().UTC()},
	}
	require.NoError(t, s.SaveConversation(ctx, "u1", "bot1", messages))

	convs, err := s.ListConversations(ctx, "u1", "bot1", 10)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Len(t, convs[0].Messages, 2)
	assert.Equal(t, domain.RoleUser, convs[0].Messages[0].Role)
	assert.Equal(t, "hi there", convs[0].Messages[1].Content)
}

func TestSaveProviderValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.SaveProvider(ctx, &domain.ProviderConfig{Name: "", URL: "http://x"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = s.SaveProvider(ctx, &domain.ProviderConfig{Name: "x", URL: ""})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = s.SaveProvider(ctx, &domain.ProviderConfig{Name: "x", URL: "http://x", ApprovalMode: "sometimes"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListProvidersIncludesGlobal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveProvider(ctx, &domain.ProviderConfig{
		Name: "gmail", URL: "builtin://gmail", Enabled: true, ApprovalMode: domain.ApprovalAlwaysAsk,
	}))
	require.NoError(t, s.SaveProvider(ctx, &domain.ProviderConfig{
		Name: "custom", URL: "https://tools.example.com", Enabled: true,
		ApprovalMode: domain.ApprovalAutoApprove, UserID: "u1",
	}))
	require.NoError(t, s.SaveProvider(ctx, &domain.ProviderConfig{
		Name: "other-user", URL: "https://tools.example.org", Enabled: true,
		ApprovalMode: domain.ApprovalAutoApprove, UserID: "u2",
	}))

	got, err := s.ListProviders(ctx, "u1")
	require.NoError(t, err)
	names := make([]string, 0, len(got))
	for _, p := range got {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"gmail", "custom"}, names)
}
