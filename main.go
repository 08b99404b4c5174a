package main

import (
	"net/rpc"
	"time"

	"github.com/golan-guy/hangman/arbiter"
	"github.com/golan-guy/hangman/config"
	"github.com/golan-guy/hangman/logger"
	"github.com/golan-guy/hangman/monitor"
	"github.com/golan-guy/hangman/orchestrator"
	gamerpc "github.com/golan-guy/hangman/rpc"
	"github.com/golan-guy/hangman/server"
	"github.com/golan-guy/hangman/services"
	"github.com/golan-guy/hangman/store"
	"github.com/golan-guy/hangman/sweeper"
	"github.com/golan-guy/hangman/wordbank"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the key-value store backend
	kv, err := newStore(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to store: %v", err)
	}
	defer kv.Close()
	logger.Log.Infof("Store connection successful (%s).", cfg.Store.Backend)

	matches := services.NewMatchService(kv, cfg.Game.MatchTTL())
	words := wordbank.NewStatic(wordbank.DefaultWords, time.Now().UnixNano())
	mon := monitor.NewMonitor("hangman")

	// The server doubles as the transport the orchestrator renders
	// through, so it is built first and the core attached after.
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, cfg.Admins)
	orch := orchestrator.New(matches, words, gameServer, orchestrator.Options{
		Budgets: arbiter.Budgets{
			TurnBudget:        cfg.Game.TurnTimeout(),
			SolveBudget:       cfg.Game.SolveTimeout(),
			EjectionThreshold: cfg.Game.MaxTimeouts,
		},
		LetterReward:    cfg.Game.LetterReward,
		SolveReward:     cfg.Game.SolveReward,
		DefaultWinLimit: cfg.Game.DefaultWinLimit,
	}, mon)
	gameServer.AttachOrchestrator(orch)

	// Periodic timeout sweep
	sweep := sweeper.New(matches, orch, cfg.Game.SweepInterval(), mon)
	sweep.Start()
	defer sweep.Stop()

	// Admin RPC surface
	rpcServer, err := gamerpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	rpc.Register(gamerpc.NewAdminService(matches))
	go rpcServer.Start()
	defer rpcServer.Stop()

	// Metrics endpoint
	mon.StartServer(cfg.Server.MonitorAddress)

	// Start serving the chat bridge
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

func newStore(cfg *config.Config) (store.KV, error) {
	switch cfg.Store.Backend {
	case "postgres":
		pg := cfg.Store.Postgres
		return store.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "gorm":
		pg := cfg.Store.Postgres
		return store.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "memory":
		return store.NewMemory(), nil
	default:
		r := cfg.Store.Redis
		return store.NewRedis(r.Addr, r.Password, r.DB)
	}
}
