// Package services holds the persistence gateway between the game core
// and the key-value store. Its contract is the narrow read-modify-write
// window the arbiter depends on: callers load a fresh copy immediately
// before deciding and save immediately after, so the gateway never
// caches state.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golan-guy/hangman/match"
	"github.com/golan-guy/hangman/store"
)

// KeyPrefix namespaces every match key so the sweep can enumerate
// exactly the live sessions and nothing else.
const KeyPrefix = "hangman:match:"

// SessionKey derives the store key for a conversation.
func SessionKey(sessionID string) string {
	return KeyPrefix + sessionID
}

// MatchService loads and saves one match per session key. Every save
// refreshes the fixed TTL.
type MatchService struct {
	kv  store.KV
	ttl time.Duration
}

func NewMatchService(kv store.KV, ttl time.Duration) *MatchService {
	return &MatchService{kv: kv, ttl: ttl}
}

// Load reads and decodes the match for a session. A missing key comes
// back as store.ErrKeyNotFound for the caller to translate.
func (s *MatchService) Load(ctx context.Context, sessionID string) (match.Match, error) {
	data, err := s.kv.Get(ctx, SessionKey(sessionID))
	if err != nil {
		return match.Match{}, err
	}
	var m match.Match
	if err := json.Unmarshal(data, &m); err != nil {
		return match.Match{}, fmt.Errorf("decode match for session %s: %w", sessionID, err)
	}
	return m, nil
}

// Save encodes and writes the match, resetting its TTL.
func (s *MatchService) Save(ctx context.Context, sessionID string, m match.Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode match for session %s: %w", sessionID, err)
	}
	return s.kv.Set(ctx, SessionKey(sessionID), data, s.ttl)
}

// Delete removes the match; this is how every terminal outcome is
// modeled.
func (s *MatchService) Delete(ctx context.Context, sessionID string) error {
	return s.kv.Delete(ctx, SessionKey(sessionID))
}

// ActiveSessions enumerates every conversation with a live match.
func (s *MatchService) ActiveSessions(ctx context.Context) ([]string, error) {
	keys, err := s.kv.ListKeys(ctx, KeyPrefix)
	if err != nil {
		return nil, err
	}
	sessions := make([]string, 0, len(keys))
	for _, key := range keys {
		sessions = append(sessions, strings.TrimPrefix(key, KeyPrefix))
	}
	return sessions, nil
}
