package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/adapter/llm"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/adapter/stt"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/adapter/tts"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/config"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/mcp"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/obs"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/protocol"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/repository"
)

const inboxSize = 32

// Transport is the duplex connection bound to a session. Send marshals
// the message as one JSON frame.
type Transport interface {
	Send(v any) error
	Close() error
}

// Deps bundles the collaborators every session shares.
type Deps struct {
	Store   repository.Store
	STT     stt.Client
	LLM     llm.Client
	TTS     tts.Client
	Tools   *mcp.Handler
	Metrics *obs.Metrics
	Logger  *slog.Logger
	Cfg     *config.Config
}

// Session drives one conversation. Audio and text messages are
// processed one at a time in arrival order by a dedicated goroutine;
// interrupt and mute act out of band so they take effect while a turn
// is in flight.
type Session struct {
	ID       string
	UserID   string
	BotID    string
	RoomName string
	Bot      *domain.BotConfig
	Context  *ConversationContext

	deps  Deps
	inbox chan protocol.Inbound

	cancel context.CancelFunc
	done   chan struct{}

	// interruptGen is bumped on every interrupt. A turn captures the
	// generation at its start and suppresses emission on mismatch.
	interruptGen atomic.Int64
	muted        atomic.Bool

	transportMu sync.Mutex
	transport   Transport

	createdAt time.Time
}

func newSession(id, roomName string, bot *domain.BotConfig, userID string, deps Deps) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		BotID:     bot.ID,
		RoomName:  roomName,
		Bot:       bot,
		Context:   NewConversationContext(),
		deps:      deps,
		inbox:     make(chan protocol.Inbound, inboxSize),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
}

func (s *Session) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
}

// stop shuts the loop down and waits for an in-flight turn to complete
// or hit its collaborator timeouts.
func (s *Session) stop() {
	s.cancel()
	<-s.done
}

// Enqueue hands an inbound message to the session loop without
// blocking the transport reader.
func (s *Session) Enqueue(msg protocol.Inbound) error {
	select {
	case s.inbox <- msg:
		return nil
	default:
		return fmt.Errorf("session %s inbox full: %w", s.ID, domain.ErrValidation)
	}
}

// Interrupt suppresses the emission of any in-flight turn and
// acknowledges over the transport. The underlying collaborator call
// runs to completion or its own timeout.
func (s *Session) Interrupt() {
	s.interruptGen.Add(1)
	s.send(protocol.NewInterrupted())
}

// ToggleMute flips speech synthesis and returns the new state. Text
// responses are unaffected.
func (s *Session) ToggleMute() bool {
	for {
		old := s.muted.Load()
		if s.muted.CompareAndSwap(old, !old) {
			muted := !old
			s.send(protocol.NewMuteStatus(muted))
			return muted
		}
	}
}

// Bind attaches (or replaces) the transport and greets the client.
func (s *Session) Bind(tr Transport) {
	s.transportMu.Lock()
	old := s.transport
	s.transport = tr
	s.transportMu.Unlock()
	if old != nil {
		old.Close()
	}
	s.send(protocol.NewConnected(s.ID, s.Bot.Name))
}

// DetachTransport drops the binding when the connection closes. It
// reports whether tr was still the current binding; false means a
// reconnect already replaced it.
func (s *Session) DetachTransport(tr Transport) bool {
	s.transportMu.Lock()
	defer s.transportMu.Unlock()
	if s.transport == tr {
		s.transport = nil
		return true
	}
	return false
}

func (s *Session) closeTransport() {
	s.transportMu.Lock()
	tr := s.transport
	s.transport = nil
	s.transportMu.Unlock()
	if tr != nil {
		tr.Close()
	}
}

func (s *Session) send(v any) {
	s.transportMu.Lock()
	tr := s.transport
	s.transportMu.Unlock()
	if tr == nil {
		return
	}
	if err := tr.Send(v); err != nil {
		s.deps.Logger.Warn("transport send failed", "session_id", s.ID, "error", err)
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.inbox:
			switch msg.Type {
			case protocol.TypeAudio:
				s.handleAudio(msg.Data)
			case protocol.TypeTextInput:
				s.handleText(msg.Text)
			default:
				s.send(protocol.NewError(fmt.Sprintf("unsupported message type %q", msg.Type)))
			}
		}
	}
}

func (s *Session) handleAudio(data string) {
	audio, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		s.send(protocol.NewError("invalid audio payload"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.deps.Cfg.STTTimeout)
	transcript, err := s.deps.STT.Transcribe(ctx, audio)
	cancel()
	if err != nil {
		s.deps.Logger.Warn("transcription failed", "session_id", s.ID, "error", err)
		s.send(protocol.NewResponse("Sorry, I couldn't make out what you said. Could you try again?", "", time.Now()))
		return
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		// Silence never pollutes history nor triggers a turn.
		return
	}

	s.Context.Append(domain.RoleUser, transcript)
	s.send(protocol.NewTranscription(transcript, true))
	s.modelTurn()
}

func (s *Session) handleText(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.Context.Append(domain.RoleUser, text)
	s.modelTurn()
}

// modelTurn runs one model invocation, at most one tool call and one
// continuation round, then emits the assistant message.
func (s *Session) modelTurn() {
	gen := s.interruptGen.Load()

	completion, err := s.complete(&llm.Request{
		Model:   s.Bot.Model,
		System:  s.systemPreamble(),
		History: s.Context.Window(s.deps.Cfg.ContextWindow),
		Tools:   s.deps.Tools.AvailableTools(),
	})
	if err != nil {
		s.finishTurn(gen, s.failureText(err))
		return
	}

	if completion.ToolCall == nil {
		text := completion.Text
		if strings.TrimSpace(text) == "" {
			text = "I don't have a response for that."
		}
		s.finishTurn(gen, text)
		return
	}

	call := completion.ToolCall
	toolCtx, cancel := context.WithTimeout(context.Background(), s.deps.Cfg.ToolTimeout)
	result := s.deps.Tools.Execute(toolCtx, call.Name, call.Arguments, s.UserID)
	cancel()

	if result.Pending() {
		// The confirmation prompt is the whole assistant turn; the
		// call resolves later through the approval endpoint.
		s.finishTurn(gen, result.Text)
		return
	}

	toolText := result.Text
	if result.Failed() {
		toolText = "Error: " + result.Err
	}
	s.Context.Append(domain.RoleTool, toolText)

	// Single continuation round. No tool schemas are advertised here,
	// so the model cannot chain a second call.
	continuation, err := s.complete(&llm.Request{
		Model:   s.Bot.Model,
		System:  s.systemPreamble(),
		History: s.Context.Window(s.deps.Cfg.ContextWindow),
	})
	if err != nil {
		s.finishTurn(gen, s.failureText(err))
		return
	}
	text := continuation.Text
	if strings.TrimSpace(text) == "" {
		text = toolText
	}
	s.finishTurn(gen, text)
}

func (s *Session) complete(req *llm.Request) (*llm.Completion, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.deps.Cfg.LLMTimeout)
	defer cancel()
	return s.deps.LLM.Complete(ctx, req)
}

// finishTurn appends the assistant message and emits it unless the turn
// was interrupted. The append happens either way so user and assistant
// turns keep alternating in history.
func (s *Session) finishTurn(gen int64, text string) {
	s.Context.Append(domain.RoleAssistant, text)
	s.deps.Metrics.TurnCompleted()

	if s.interruptGen.Load() != gen {
		s.deps.Logger.Debug("suppressing interrupted turn", "session_id", s.ID)
		return
	}

	var audio string
	if !s.muted.Load() && s.Bot.AutoSpeak {
		ctx, cancel := context.WithTimeout(context.Background(), s.deps.Cfg.TTSTimeout)
		data, err := s.deps.TTS.Synthesize(ctx, text, s.Bot.Voice)
		cancel()
		if err != nil {
			s.deps.Logger.Warn("speech synthesis failed", "session_id", s.ID, "error", err)
		} else if len(data) > 0 {
			audio = base64.StdEncoding.EncodeToString(data)
		}
	}

	if s.interruptGen.Load() != gen {
		s.deps.Logger.Debug("suppressing interrupted turn", "session_id", s.ID)
		return
	}
	s.send(protocol.NewResponse(text, audio, time.Now()))
}

func (s *Session) failureText(err error) string {
	switch {
	case errors.Is(err, domain.ErrConfigMissing):
		return "I'm not fully set up yet. A required credential is missing, so I can't answer right now."
	default:
		return "I'm having trouble thinking right now. Please try again in a moment."
	}
}

func (s *Session) systemPreamble() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a helpful voice assistant.", s.Bot.Name)
	if p := strings.TrimSpace(s.Bot.Personality); p != "" {
		sb.WriteString(" ")
		sb.WriteString(p)
	}
	sb.WriteString(" Your replies are spoken aloud, so keep them short and conversational.")
	return sb.String()
}
