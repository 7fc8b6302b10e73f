package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perch-finance/perch/internal/agent"
	"github.com/perch-finance/perch/internal/config"
	"github.com/perch-finance/perch/internal/deploy"
	"github.com/perch-finance/perch/internal/logger"
	"github.com/perch-finance/perch/internal/orchestrator"
	"github.com/perch-finance/perch/internal/storage"
	"github.com/perch-finance/perch/internal/telegram"
	"github.com/perch-finance/perch/internal/trade"
	"github.com/perch-finance/perch/internal/venue"
	"github.com/perch-finance/perch/internal/wallet"
	"github.com/perch-finance/perch/internal/web"
)

// Buying power reported by the mock executor when no venue is wired.
const mockBalance = 10000

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "data/perch.db", "path to SQLite database")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Init logger
	log := logger.New(cfg.Logging.Level)

	mode := "LIVE"
	if cfg.IsMock() {
		mode = "MOCK"
	}
	log.Info("starting perchd", "mode", mode)

	// Init database
	db, err := storage.NewDatabase(*dbPath)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)

	// Context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := telegram.NewNotifier(cfg, log)

	// Execution strategy is picked once, here. The pipeline never
	// branches on mock mode itself.
	var (
		exec     trade.Executor
		accounts trade.AccountReader
	)
	if cfg.IsMock() {
		mock := trade.NewMockExecutor(mockBalance, log)
		exec = mock
		accounts = mock
	} else {
		venueClient := venue.NewClient(cfg, log)
		signer, err := wallet.NewLocalSigner(cfg.Wallet.PrivateKey)
		if err != nil {
			log.Error("wallet init failed", "error", err)
			os.Exit(1)
		}
		log.Info("wallet ready", "address", signer.Address())
		exec = trade.NewLiveExecutor(venueClient, signer, log)
		accounts = venueClient
	}

	pipeline := trade.NewPipeline(exec, accounts, repo, cfg, log)
	runner := agent.NewRunner(agent.NewChatClient(cfg), pipeline, cfg, log)
	orch := orchestrator.New(runner, accounts, repo, notifier, cfg, log)

	engine := deploy.NewEngine(deploy.NewMemoryStore(), cfg, notifier, log)
	webServer := web.NewServer(orch, engine, repo, cfg, log)

	// Start deployment engine in goroutine
	go engine.Run(ctx)

	// Start web server in goroutine
	go func() {
		if err := webServer.Start(); err != nil {
			log.Error("web server error", "error", err)
		}
	}()

	notifier.NotifyStatus(fmt.Sprintf("🤖 perchd started (%s)", mode))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", "signal", sig.String())

	// Graceful shutdown
	cancel() // stop deployment engine

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error("web server shutdown error", "error", err)
	}

	notifier.NotifyStatus("🛑 perchd stopped")
	log.Info("perchd stopped")
}
