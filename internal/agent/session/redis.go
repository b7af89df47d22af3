package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	errx "github.com/voxcrm/server/internal/core/error"
	logx "github.com/voxcrm/server/pkg/logger"
)

// RedisStore is the durable session tier. Messages live in a Redis list; a
// companion owner key, claimed with SETNX on first append, enforces the
// per-user ownership boundary.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisStore creates a Redis-backed session store with the given TTL.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func messagesKey(sessionID string) string {
	return fmt.Sprintf("session:%s:messages", sessionID)
}

func ownerKey(sessionID string) string {
	return fmt.Sprintf("session:%s:owner", sessionID)
}

// checkOwner verifies userID owns the session, claiming it when claim is set
// and the session has no owner yet.
func (s *RedisStore) checkOwner(ctx context.Context, sessionID, userID string, claim bool) error {
	if claim {
		ok, err := s.rdb.SetNX(ctx, ownerKey(sessionID), userID, s.ttl).Result()
		if err != nil {
			return errx.WrapRedis(err)
		}
		if ok {
			return nil
		}
	}

	owner, err := s.rdb.Get(ctx, ownerKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// No owner and no claim requested: an empty, unclaimed session.
			return nil
		}
		return errx.WrapRedis(err)
	}
	if owner != userID {
		logx.Warn().
			Str("session_id", sessionID).
			Str("user_id", userID).
			Msg("session ownership mismatch")
		return ErrNotOwner
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID, userID string) (*History, error) {
	if err := s.checkOwner(ctx, sessionID, userID, false); err != nil {
		return nil, err
	}

	rows, err := s.rdb.LRange(ctx, messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &History{SessionID: sessionID, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to load session history")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, row := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(row), &m); err != nil {
			return nil, fmt.Errorf("unmarshal session message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &History{SessionID: sessionID, Messages: msgs}, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID, userID string, msgs ...*schema.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := s.checkOwner(ctx, sessionID, userID, true); err != nil {
		return err
	}

	key := messagesKey(sessionID)
	vals := make([]any, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal session message: %w", err)
		}
		vals = append(vals, b)
	}
	if err := s.rdb.RPush(ctx, key, vals...).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push session messages")
		return errx.WrapRedis(err)
	}

	// extend TTL on touch
	if s.ttl > 0 {
		if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
			return errx.WrapRedis(err)
		}
		if err := s.rdb.Expire(ctx, ownerKey(sessionID), s.ttl).Err(); err != nil {
			return errx.WrapRedis(err)
		}
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID, userID string) error {
	if err := s.checkOwner(ctx, sessionID, userID, false); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, messagesKey(sessionID), ownerKey(sessionID)).Err(); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to clear session")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) Count(ctx context.Context, sessionID string) (int, error) {
	n, err := s.rdb.LLen(ctx, messagesKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

var _ Store = (*RedisStore)(nil)
