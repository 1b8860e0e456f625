// Package protocol defines the WebSocket message protocol between
// voice clients and the backend.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

// Message types from client to backend
const (
	TypeAudio      = "audio"
	TypeTextInput  = "text_input"
	TypeInterrupt  = "interrupt"
	TypeToggleMute = "toggle_mute"
)

// Message types from backend to client
const (
	TypeConnected     = "connected"
	TypeTranscription = "transcription"
	TypeResponse      = "response"
	TypeMuteStatus    = "mute_status"
	TypeInterrupted   = "interrupted"
	TypeError         = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type string `json:"type"`
	Ts   int64  `json:"ts,omitempty"`
}

// AudioMessage carries one chunk of base64-encoded audio for
// transcription.
type AudioMessage struct {
	BaseMessage
	Data string `json:"data"`
}

// TextInputMessage carries a typed user utterance.
type TextInputMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ConnectedMessage confirms the transport is bound to a session.
type ConnectedMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	BotName   string `json:"bot_name"`
}

// TranscriptionMessage echoes a recognized user utterance.
type TranscriptionMessage struct {
	BaseMessage
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// ResponseMessage carries one assistant turn. Audio is base64-encoded
// and present only when speech synthesis ran.
type ResponseMessage struct {
	BaseMessage
	Text      string `json:"text"`
	Audio     string `json:"audio,omitempty"`
	Timestamp string `json:"timestamp"`
}

// MuteStatusMessage reports the session's mute flag after a toggle.
type MuteStatusMessage struct {
	BaseMessage
	Muted bool `json:"muted"`
}

// InterruptedMessage acknowledges an interrupt request.
type InterruptedMessage struct {
	BaseMessage
}

// ErrorMessage is sent when an inbound message cannot be served. The
// connection stays open; only transport faults close it.
type ErrorMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// RawMessage is used for parsing incoming messages before type
// dispatch.
type RawMessage struct {
	Type string `json:"type"`
}

// Inbound is a decoded client message. Exactly one payload field is
// set, matching Type.
type Inbound struct {
	Type string
	Data string // audio payload, base64
	Text string // text_input payload
}

// Decode parses one client frame. Unknown types and malformed payloads
// return ErrValidation; the caller decides whether that closes the
// connection.
func Decode(frame []byte) (Inbound, error) {
	var raw RawMessage
	if err := json.Unmarshal(frame, &raw); err != nil {
		return Inbound{}, fmt.Errorf("malformed message: %w: %w", domain.ErrValidation, err)
	}

	switch raw.Type {
	case TypeAudio:
		var msg AudioMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			return Inbound{}, fmt.Errorf("malformed audio message: %w: %w", domain.ErrValidation, err)
		}
		return Inbound{Type: TypeAudio, Data: msg.Data}, nil
	case TypeTextInput:
		var msg TextInputMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			return Inbound{}, fmt.Errorf("malformed text message: %w: %w", domain.ErrValidation, err)
		}
		return Inbound{Type: TypeTextInput, Text: msg.Text}, nil
	case TypeInterrupt:
		return Inbound{Type: TypeInterrupt}, nil
	case TypeToggleMute:
		return Inbound{Type: TypeToggleMute}, nil
	default:
		return Inbound{}, fmt.Errorf("unknown message type %q: %w", raw.Type, domain.ErrValidation)
	}
}

func base(msgType string) BaseMessage {
	return BaseMessage{Type: msgType, Ts: time.Now().UnixMilli()}
}

// NewConnected builds the session-bound greeting.
func NewConnected(sessionID, botName string) ConnectedMessage {
	return ConnectedMessage{BaseMessage: base(TypeConnected), SessionID: sessionID, BotName: botName}
}

// NewTranscription builds a transcription echo.
func NewTranscription(text string, isFinal bool) TranscriptionMessage {
	return TranscriptionMessage{BaseMessage: base(TypeTranscription), Text: text, IsFinal: isFinal}
}

// NewResponse builds an assistant turn message.
func NewResponse(text, audio string, at time.Time) ResponseMessage {
	return ResponseMessage{
		BaseMessage: base(TypeResponse),
		Text:        text,
		Audio:       audio,
		Timestamp:   at.UTC().Format(time.RFC3339),
	}
}

// NewMuteStatus builds a mute acknowledgement.
func NewMuteStatus(muted bool) MuteStatusMessage {
	return MuteStatusMessage{BaseMessage: base(TypeMuteStatus), Muted: muted}
}

// NewInterrupted builds an interrupt acknowledgement.
func NewInterrupted() InterruptedMessage {
	return InterruptedMessage{BaseMessage: base(TypeInterrupted)}
}

// NewError builds a business-failure frame.
func NewError(message string) ErrorMessage {
	return ErrorMessage{BaseMessage: base(TypeError), Message: message}
}
