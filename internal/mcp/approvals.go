package mcp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

// ApprovalStore holds tool calls gated on user confirmation. Put and
// Take are safe to call concurrently with any session's turn loop.
type ApprovalStore struct {
	mu    sync.Mutex
	calls map[string]domain.PendingToolCall
	ttl   time.Duration
}

// NewApprovalStore creates an approval store. Calls older than ttl are
// dropped by SweepExpired; a zero ttl disables expiry.
func NewApprovalStore(ttl time.Duration) *ApprovalStore {
	return &ApprovalStore{
		calls: make(map[string]domain.PendingToolCall),
		ttl:   ttl,
	}
}

// Put stores a pending call and returns its generated call id.
func (s *ApprovalStore) Put(call domain.PendingToolCall) string {
	call.CallID = "call_" + uuid.New().String()
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[call.CallID] = call
	return call.CallID
}

// Take atomically removes and returns the call. Both approve and deny
// go through Take so a call id resolves at most once.
func (s *ApprovalStore) Take(callID string) (domain.PendingToolCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[callID]
	if ok {
		delete(s.calls, callID)
	}
	return call, ok
}

// Len returns the number of calls currently pending.
func (s *ApprovalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// SweepExpired drops calls older than the store's ttl and returns how
// many were removed.
func (s *ApprovalStore) SweepExpired(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, call := range s.calls {
		if now.Sub(call.CreatedAt) > s.ttl {
			delete(s.calls, id)
			removed++
		}
	}
	return removed
}

// RunSweeper periodically expires stale pending calls until ctx is
// cancelled.
func (s *ApprovalStore) RunSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepExpired(time.Now()); n > 0 {
				logger.Info("expired pending tool calls", "count", n)
			}
		}
	}
}
