package broadcast

import (
	"github.com/golan-guy/hangman/session"
)

// Broadcaster fans one message out to chat clients.
type Broadcaster interface {
	BroadcastToConversation(conversationID, msgType string, data interface{}) error
	SendToPlayer(conversationID, playerID, msgType string, data interface{}) error
}

// ConversationBroadcaster delivers over the live session manager.
type ConversationBroadcaster struct {
	sessionManager *session.Manager
}

func NewConversationBroadcaster(sessionManager *session.Manager) *ConversationBroadcaster {
	return &ConversationBroadcaster{sessionManager: sessionManager}
}

func (b *ConversationBroadcaster) BroadcastToConversation(conversationID, msgType string, data interface{}) error {
	for _, s := range b.sessionManager.ByConversation(conversationID) {
		if err := s.Send(msgType, data); err != nil {
			// A dead client is cleaned up by its read loop; keep going.
			continue
		}
	}
	return nil
}

func (b *ConversationBroadcaster) SendToPlayer(conversationID, playerID, msgType string, data interface{}) error {
	for _, s := range b.sessionManager.ByPlayer(conversationID, playerID) {
		if err := s.Send(msgType, data); err != nil {
			continue
		}
	}
	return nil
}
