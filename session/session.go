// Package session tracks connected chat clients. One Session is one
// websocket client attached to one conversation; a conversation hosts at
// most one match but any number of connected clients.
package session

import (
	"sync"
	"time"

	"github.com/golan-guy/hangman/network"
)

type Session struct {
	ID             string
	Conn           network.Connection
	ConversationID string
	PlayerID       string
	DisplayName    string
	CreatedAt      time.Time
	LastActive     time.Time
}

func NewSession(id string, conn network.Connection, conversationID, playerID, displayName string) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		Conn:           conn,
		ConversationID: conversationID,
		PlayerID:       playerID,
		DisplayName:    displayName,
		CreatedAt:      now,
		LastActive:     now,
	}
}

func (s *Session) Send(msgType string, data interface{}) error {
	s.LastActive = time.Now()
	return s.Conn.Send(msgType, data)
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager indexes live sessions by id and by conversation.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// ByConversation returns every client attached to a conversation.
func (m *Manager) ByConversation(conversationID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.ConversationID == conversationID {
			result = append(result, session)
		}
	}
	return result
}

// ByPlayer returns every connection a player holds in a conversation.
func (m *Manager) ByPlayer(conversationID, playerID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.ConversationID == conversationID && session.PlayerID == playerID {
			result = append(result, session)
		}
	}
	return result
}
