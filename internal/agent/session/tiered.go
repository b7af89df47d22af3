package session

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"

	logx "github.com/voxcrm/server/pkg/logger"
)

// TieredStore fronts a durable primary with a local fallback. When the
// primary errors the call is retried against the fallback so the agent keeps
// answering in degraded mode. Consistency caveat, accepted and not hidden:
// turns written to the fallback are invisible to other processes and are
// lost on restart; once the primary recovers, history resumes from the
// durable copy.
//
// ErrNotOwner is an authorization verdict, not an infrastructure failure,
// and is never retried against the other tier.
type TieredStore struct {
	primary  Store
	fallback Store
}

// NewTieredStore combines a durable store with a local fallback.
func NewTieredStore(primary, fallback Store) *TieredStore {
	return &TieredStore{primary: primary, fallback: fallback}
}

func degraded(op string, err error) {
	logx.Warn().Err(err).Str("op", op).Msg("session primary unavailable, using fallback")
}

func (s *TieredStore) Load(ctx context.Context, sessionID, userID string) (*History, error) {
	h, err := s.primary.Load(ctx, sessionID, userID)
	if err == nil || errors.Is(err, ErrNotOwner) {
		return h, err
	}
	degraded("load", err)
	return s.fallback.Load(ctx, sessionID, userID)
}

func (s *TieredStore) Append(ctx context.Context, sessionID, userID string, msgs ...*schema.Message) error {
	err := s.primary.Append(ctx, sessionID, userID, msgs...)
	if err == nil || errors.Is(err, ErrNotOwner) {
		return err
	}
	degraded("append", err)
	return s.fallback.Append(ctx, sessionID, userID, msgs...)
}

func (s *TieredStore) Clear(ctx context.Context, sessionID, userID string) error {
	err := s.primary.Clear(ctx, sessionID, userID)
	if err == nil || errors.Is(err, ErrNotOwner) {
		return err
	}
	degraded("clear", err)
	return s.fallback.Clear(ctx, sessionID, userID)
}

func (s *TieredStore) Count(ctx context.Context, sessionID string) (int, error) {
	n, err := s.primary.Count(ctx, sessionID)
	if err == nil {
		return n, nil
	}
	degraded("count", err)
	return s.fallback.Count(ctx, sessionID)
}

var _ Store = (*TieredStore)(nil)
