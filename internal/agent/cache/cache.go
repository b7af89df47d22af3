// Package cache memoizes tool-free assistant answers. Turns that executed
// tools are never cached: replaying their text later would silently skip the
// side effects a repeat of the question is expected to perform.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// CachedResponse is a memoized final answer for one (user, question, page)
// triple. Created once, read many, left to expire.
type CachedResponse struct {
	Response  string    `json:"response"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// ResponseCache is the lookup consulted before invoking the model.
type ResponseCache interface {
	Get(ctx context.Context, userID, question, pagePath string) (*CachedResponse, error)
	Put(ctx context.Context, userID, question, pagePath string, resp CachedResponse) error
}

// Key builds the composite cache key. The question is normalized so trivially
// different phrasings of the same question about the same page still hit.
func Key(userID, question, pagePath string) string {
	norm := NormalizeQuestion(question)
	sum := sha256.Sum256([]byte(norm + "\x00" + pagePath))
	return "agent:cache:" + userID + ":" + hex.EncodeToString(sum[:])
}

// NormalizeQuestion trims, lowercases, and collapses inner whitespace.
func NormalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
