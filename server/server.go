// Package server is the websocket chat bridge: it turns client
// envelopes into orchestrator intents and implements the transport
// contract the orchestrator renders through.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/golan-guy/hangman/broadcast"
	"github.com/golan-guy/hangman/logger"
	"github.com/golan-guy/hangman/network"
	"github.com/golan-guy/hangman/orchestrator"
	"github.com/golan-guy/hangman/session"
	"github.com/golan-guy/hangman/transport"
)

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	orch           *orchestrator.Orchestrator
	admins         map[string]bool
	shutdownChan   chan struct{}
}

func NewGameServer(addr string, admins []string) *GameServer {
	s := &GameServer{
		addr:           addr,
		sessionManager: session.NewManager(),
		admins:         make(map[string]bool, len(admins)),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, id := range admins {
		s.admins[id] = true
	}
	s.broadcaster = broadcast.NewConversationBroadcaster(s.sessionManager)
	return s
}

// AttachOrchestrator wires the game core. The server is constructed
// first because the orchestrator needs it as its transport.
func (s *GameServer) AttachOrchestrator(o *orchestrator.Orchestrator) {
	s.orch = o
}

func (s *GameServer) Start() error {
	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
}

// --- transport.Transport ---

type boardPayload struct {
	BoardText   string               `json:"boardText"`
	Keyboard    [][]transport.Button `json:"keyboard,omitempty"`
	TurnChanged bool                 `json:"turnChanged"`
	MessageRef  string               `json:"messageRef"`
	EditOf      string               `json:"editOf,omitempty"`
}

func (s *GameServer) Render(ctx context.Context, req transport.RenderRequest) (string, error) {
	ref := uuid.New().String()
	payload := boardPayload{
		BoardText:   req.BoardText,
		Keyboard:    req.Keyboard,
		TurnChanged: req.TurnChanged,
		MessageRef:  ref,
	}
	if !req.TurnChanged {
		// Same player continues; clients may edit the previous board
		// message in place instead of posting a fresh one.
		payload.EditOf = req.PrevMessageRef
	}
	if err := s.broadcaster.BroadcastToConversation(req.SessionID, "board", payload); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *GameServer) SendPrompt(ctx context.Context, sessionID, text string) (string, error) {
	ref := uuid.New().String()
	err := s.broadcaster.BroadcastToConversation(sessionID, "prompt", map[string]string{
		"text":       text,
		"messageRef": ref,
	})
	return ref, err
}

func (s *GameServer) SendStatus(ctx context.Context, sessionID, text string) error {
	return s.broadcaster.BroadcastToConversation(sessionID, "status", map[string]string{
		"text": text,
	})
}

func (s *GameServer) IsAdmin(ctx context.Context, sessionID, playerID string) (bool, error) {
	return s.admins[playerID], nil
}

// --- inbound ---

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("chat")
	playerID := r.URL.Query().Get("player")
	displayName := r.URL.Query().Get("name")
	if conversationID == "" || playerID == "" {
		http.Error(w, "chat and player are required", http.StatusBadRequest)
		return
	}
	if displayName == "" {
		displayName = playerID
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn), conversationID, playerID, displayName)
}

func (s *GameServer) handleConnection(conn network.Connection, conversationID, playerID, displayName string) {
	sess := session.NewSession(uuid.New().String(), conn, conversationID, playerID, displayName)
	s.sessionManager.Add(sess)

	logger.Log.Infof("New connection from %s, player %s in conversation %s",
		conn.RemoteAddr(), playerID, conversationID)

	defer func() {
		logger.Log.Infof("Connection closed from %s, player %s", conn.RemoteAddr(), playerID)
		s.sessionManager.Remove(sess.ID)
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			envelope, err := conn.ReadEnvelope()
			if err != nil {
				return
			}
			s.handleEnvelope(sess, envelope)
		}
	}
}

type intentData struct {
	Letter   string `json:"letter,omitempty"`
	Text     string `json:"text,omitempty"`
	Target   string `json:"target,omitempty"`
	WinLimit int    `json:"winLimit,omitempty"`
}

func (s *GameServer) handleEnvelope(sess *session.Session, envelope *network.Envelope) {
	var data intentData
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			s.reportError(sess, "bad intent payload")
			return
		}
	}

	ctx := context.Background()
	var err error
	switch envelope.Type {
	case "new":
		err = s.orch.NewMatch(ctx, sess.ConversationID, sess.PlayerID, sess.DisplayName, data.WinLimit)
	case "join":
		err = s.orch.Join(ctx, sess.ConversationID, sess.PlayerID, sess.DisplayName)
	case "leave":
		err = s.orch.Leave(ctx, sess.ConversationID, sess.PlayerID)
	case "start":
		err = s.orch.Start(ctx, sess.ConversationID, sess.PlayerID)
	case "guess":
		letters := []rune(data.Letter)
		if len(letters) != 1 {
			s.reportError(sess, "a guess is a single letter")
			return
		}
		err = s.orch.GuessLetter(ctx, sess.ConversationID, sess.PlayerID, letters[0])
	case "solve_request":
		err = s.orch.RequestSolve(ctx, sess.ConversationID, sess.PlayerID)
	case "solve":
		err = s.orch.SubmitSolve(ctx, sess.ConversationID, sess.PlayerID, data.Text)
	case "kick":
		err = s.orch.Kick(ctx, sess.ConversationID, sess.PlayerID, data.Target)
	case "end":
		err = s.orch.EndMatch(ctx, sess.ConversationID, sess.PlayerID)
	default:
		logger.Log.Infof("Unknown envelope type: %s", envelope.Type)
		return
	}

	switch {
	case err == nil:
	case orchestrator.IsValidation(err), errors.Is(err, orchestrator.ErrNoActiveMatch):
		// Rejections go to the actor only, never to the conversation.
		s.reportError(sess, err.Error())
	default:
		logger.Log.Errorw("intent failed",
			"conversation", sess.ConversationID, "intent", envelope.Type, "error", err)
		s.reportError(sess, "something went wrong, try again")
	}
}

func (s *GameServer) reportError(sess *session.Session, message string) {
	if err := sess.Send("error", map[string]string{"text": message}); err != nil {
		logger.Log.Warnf("Failed to report error to session %s: %v", sess.ID, err)
	}
}
