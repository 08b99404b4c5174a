// Package transport is the boundary to the chat side. The core never
// speaks a chat protocol; it hands the transport everything needed to
// render a board or a status line and lets it decide how to deliver.
package transport

import "context"

// Button is one cell of an inline keyboard.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// RenderRequest carries one board update. TurnChanged distinguishes
// "turn owner changed" (send a fresh, attention-grabbing message) from
// "same player continues" (the transport may edit in place using
// PrevMessageRef). That distinction is decided by the orchestrator, not
// here.
type RenderRequest struct {
	SessionID      string     `json:"sessionId"`
	BoardText      string     `json:"boardText"`
	Keyboard       [][]Button `json:"keyboard,omitempty"`
	TurnChanged    bool       `json:"turnChanged"`
	PrevMessageRef string     `json:"-"`
}

// Transport is implemented by the chat bridge.
type Transport interface {
	// Render delivers a board update and returns an opaque handle to
	// the resulting message for later edit or delete.
	Render(ctx context.Context, req RenderRequest) (messageRef string, err error)
	// SendPrompt posts a free-text prompt (the solve window) and
	// returns its message handle.
	SendPrompt(ctx context.Context, sessionID, text string) (messageRef string, err error)
	// SendStatus posts a terse status line with no board attached.
	SendStatus(ctx context.Context, sessionID, text string) error
	// IsAdmin answers whether the player moderates the conversation.
	IsAdmin(ctx context.Context, sessionID, playerID string) (bool, error)
}
