package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/perch-finance/perch/internal/deploy"
	"github.com/perch-finance/perch/internal/orchestrator"
	"github.com/perch-finance/perch/internal/trade"
)

// The identity service terminates sessions upstream and forwards the
// authenticated user id in this header.
const userHeader = "X-User-ID"

type chatRequest struct {
	Message string `json:"message"`
}

type deploymentRequest struct {
	SafePct   float64 `json:"safe_pct"`
	GrowthPct float64 `json:"growth_pct"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.orch.HandleMessage(r.Context(), userID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "message must not be empty")
		case errors.Is(err, trade.ErrNoUser):
			writeError(w, http.StatusUnauthorized, "missing user identity")
		default:
			s.logger.Error("handle chat", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	txs, err := s.repo.GetTransactionsByUser(userID, 50)
	if err != nil {
		s.logger.Error("list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req deploymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	job, err := s.engine.CreateJob(userID, req.SafePct, req.GrowthPct)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.JobsForUser(userID))
}

func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	job, ok := s.userJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleConfirmBridge(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.userJob(w, r); !ok {
		return
	}

	job, err := s.engine.ConfirmBridge(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, deploy.ErrBridgeNotPending) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("confirm bridge", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// userJob loads the path job and enforces ownership. Jobs of other
// users are reported as not found, not forbidden.
func (s *Server) userJob(w http.ResponseWriter, r *http.Request) (*deploy.Job, bool) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return nil, false
	}

	id := strings.TrimSpace(mux.Vars(r)["id"])
	job, err := s.engine.GetJob(id)
	if err != nil || job.UserID != userID {
		writeError(w, http.StatusNotFound, "deployment not found")
		return nil, false
	}
	return job, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
