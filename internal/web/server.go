package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/perch-finance/perch/internal/config"
	"github.com/perch-finance/perch/internal/deploy"
	"github.com/perch-finance/perch/internal/logger"
	"github.com/perch-finance/perch/internal/orchestrator"
	"github.com/perch-finance/perch/internal/storage"
)

type Server struct {
	httpServer *http.Server
	orch       *orchestrator.Orchestrator
	engine     *deploy.Engine
	repo       *storage.Repository
	config     *config.Config
	logger     *logger.Logger
}

func NewServer(orch *orchestrator.Orchestrator, engine *deploy.Engine, repo *storage.Repository, cfg *config.Config, log *logger.Logger) *Server {
	s := &Server{
		orch:   orch,
		engine: engine,
		repo:   repo,
		config: cfg,
		logger: log,
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet)
	api.HandleFunc("/deployments", s.handleCreateDeployment).Methods(http.MethodPost)
	api.HandleFunc("/deployments", s.handleListDeployments).Methods(http.MethodGet)
	api.HandleFunc("/deployments/{id}", s.handleGetDeployment).Methods(http.MethodGet)
	api.HandleFunc("/deployments/{id}/bridge-confirmed", s.handleConfirmBridge).Methods(http.MethodPost)

	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-User-ID"},
	}).Handler(r)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 180 * time.Second, // agent runs can be slow
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("web server starting", "port", s.config.Web.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
