package domain

import "errors"

// Sentinel errors for the failure categories surfaced across component
// boundaries. Transport layers map these onto HTTP statuses and WebSocket
// error frames with errors.Is.
var (
	// ErrNotFound covers unknown sessions, tools and pending approvals.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the caller does not own the
	// session it is operating on.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrCollaborator marks a failed or timed-out call to an external
	// collaborator (STT, LLM, TTS, external tool provider). It is always
	// recovered inside a turn and never terminates a session.
	ErrCollaborator = errors.New("collaborator failure")

	// ErrValidation marks a malformed inbound message or provider config.
	ErrValidation = errors.New("validation failure")

	// ErrConfigMissing marks an absent collaborator credential. Checked
	// lazily per call so a session degrades instead of crashing.
	ErrConfigMissing = errors.New("configuration missing")
)
