package rpc

import (
	"context"
	"net"
	"net/rpc"

	"github.com/golan-guy/hangman/logger"
	"github.com/golan-guy/hangman/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operational queries over net/rpc: exported
// methods, exported argument structs, pointer reply, error return.
type AdminService struct {
	matches *services.MatchService
}

func NewAdminService(matches *services.MatchService) *AdminService {
	return &AdminService{matches: matches}
}

type StatsArgs struct{}

type StatsReply struct {
	ActiveMatches int
	Sessions      []string
}

// Stats reports the live sessions currently in the store.
func (a *AdminService) Stats(args *StatsArgs, reply *StatsReply) error {
	sessions, err := a.matches.ActiveSessions(context.Background())
	if err != nil {
		return err
	}
	reply.ActiveMatches = len(sessions)
	reply.Sessions = sessions
	return nil
}

type EndMatchArgs struct {
	SessionID string
}

type EndMatchReply struct {
	Ended bool
}

// EndMatch force-deletes a match, bypassing in-game privileges. For
// operators only; players go through the chat intent.
func (a *AdminService) EndMatch(args *EndMatchArgs, reply *EndMatchReply) error {
	if err := a.matches.Delete(context.Background(), args.SessionID); err != nil {
		return err
	}
	reply.Ended = true
	return nil
}
