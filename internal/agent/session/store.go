// Package session persists per-conversation transcripts. The durable tier is
// Redis; a process-local fallback keeps the agent answering when Redis is
// down, at the cost of history not surviving a restart.
package session

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"
)

// ErrNotOwner is returned when a session id is loaded by a user that does
// not own it. The store is keyed by session id alone, so this check is the
// authorization boundary between users' histories.
var ErrNotOwner = errors.New("session: not owned by caller")

// History is a loaded conversation: role-tagged messages in exact append
// order.
type History struct {
	SessionID string
	Messages  []*schema.Message
}

// Store is the conversation history contract. Sessions are created lazily on
// first append and expire via the backing store's TTL; there is no explicit
// delete in the chat path.
type Store interface {
	// Load returns the history for sessionID, failing with ErrNotOwner when
	// userID did not create the session.
	Load(ctx context.Context, sessionID, userID string) (*History, error)

	// Append adds messages in order, claiming ownership for userID on the
	// first write.
	Append(ctx context.Context, sessionID, userID string, msgs ...*schema.Message) error

	// Clear removes the history and ownership record for a session.
	Clear(ctx context.Context, sessionID, userID string) error

	// Count returns the number of stored messages.
	Count(ctx context.Context, sessionID string) (int, error)
}
