package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/adapter/llm"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/protocol"
)

func TestCreateUnknownBot(t *testing.T) {
	registry := NewRegistry(newTestDeps(t, llm.NewMockClient()))

	_, err := registry.Create(context.Background(), "u1", "ghost-bot", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateRequiresUserAndBot(t *testing.T) {
	registry := NewRegistry(newTestDeps(t, llm.NewMockClient()))

	_, err := registry.Create(context.Background(), "", "bot-1", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = registry.Create(context.Background(), "u1", "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSessionIDDerivedFromUserBotTime(t *testing.T) {
	registry := NewRegistry(newTestDeps(t, llm.NewMockClient()))

	s, err := registry.Create(context.Background(), "u1", "bot-1", "")
	require.NoError(t, err)
	defer registry.End(context.Background(), s.ID, "u1")

	assert.Contains(t, s.ID, "u1-bot-1-")
	assert.NotEmpty(t, s.RoomName)
}

func TestBindRejectsNonOwner(t *testing.T) {
	registry := NewRegistry(newTestDeps(t, llm.NewMockClient()))

	s, err := registry.Create(context.Background(), "u1", "bot-1", "")
	require.NoError(t, err)
	defer registry.End(context.Background(), s.ID, "u1")

	_, err = registry.Bind(s.ID, "intruder", newFakeTransport())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = registry.Bind("missing", "u1", newFakeTransport())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEndByNonOwnerKeepsSessionActive(t *testing.T) {
	registry := NewRegistry(newTestDeps(t, llm.NewMockClient()))

	s, err := registry.Create(context.Background(), "u1", "bot-1", "")
	require.NoError(t, err)

	err = registry.End(context.Background(), s.ID, "intruder")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Still active and queryable.
	got, err := registry.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	require.NoError(t, registry.End(context.Background(), s.ID, "u1"))
	_, err = registry.Get(s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEndUnknownSession(t *testing.T) {
	registry := NewRegistry(newTestDeps(t, llm.NewMockClient()))
	err := registry.End(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEndPersistsConversation(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Enqueue(&llm.Completion{Text: "hello back"})
	deps := newTestDeps(t, mock)
	registry := NewRegistry(deps)

	s, err := registry.Create(context.Background(), "u1", "bot-1", "")
	require.NoError(t, err)
	tr := newFakeTransport()
	_, err = registry.Bind(s.ID, "u1", tr)
	require.NoError(t, err)

	require.NoError(t, s.Enqueue(protocol.Inbound{Type: protocol.TypeTextInput, Text: "hello"}))
	_, ok := tr.waitFor(t, protocol.TypeResponse, 2*time.Second)
	require.True(t, ok)

	require.NoError(t, registry.End(context.Background(), s.ID, "u1"))

	conversations, err := deps.Store.ListConversations(context.Background(), "u1", "bot-1", 10)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	require.Len(t, conversations[0].Messages, 2)
	assert.Equal(t, "hello", conversations[0].Messages[0].Content)
	assert.Equal(t, "hello back", conversations[0].Messages[1].Content)
	assert.True(t, tr.closed)
}

func TestEmptySessionNotPersisted(t *testing.T) {
	deps := newTestDeps(t, llm.NewMockClient())
	registry := NewRegistry(deps)

	s, err := registry.Create(context.Background(), "u1", "bot-1", "")
	require.NoError(t, err)
	require.NoError(t, registry.End(context.Background(), s.ID, "u1"))

	conversations, err := deps.Store.ListConversations(context.Background(), "u1", "bot-1", 10)
	require.NoError(t, err)
	assert.Empty(t, conversations)
}

func TestReconnectReplacesTransport(t *testing.T) {
	registry := NewRegistry(newTestDeps(t, llm.NewMockClient()))

	s, err := registry.Create(context.Background(), "u1", "bot-1", "")
	require.NoError(t, err)
	defer registry.End(context.Background(), s.ID, "u1")

	first := newFakeTransport()
	_, err = registry.Bind(s.ID, "u1", first)
	require.NoError(t, err)
	_, ok := first.waitFor(t, protocol.TypeConnected, time.Second)
	require.True(t, ok)

	second := newFakeTransport()
	_, err = registry.Bind(s.ID, "u1", second)
	require.NoError(t, err)
	_, ok = second.waitFor(t, protocol.TypeConnected, time.Second)
	require.True(t, ok)
	assert.True(t, first.closed, "replaced transport should be closed")
}
