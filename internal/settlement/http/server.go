package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/settlement/engine"
)

// Settler é o que a API administrativa precisa do serviço de liquidação
type Settler interface {
	Status() engine.Status
	ForceSettle(ctx context.Context, sport, matchID string) (engine.Report, error)
}

type ForceRequest struct {
	Sport   string `json:"sport"`
	MatchID string `json:"matchId"`
}

type ForceResponse struct {
	Report engine.Report `json:"report"`
	Error  string        `json:"error,omitempty"`
}

// Server expõe status e liquidação forçada por partida
type Server struct {
	log     *zap.Logger
	settler Settler
}

func NewServer(log *zap.Logger, s Settler) *Server { return &Server{log: log, settler: s} }

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/settlement/status", s.status) // GET
	mux.HandleFunc("/settlement/force", s.force)   // POST
	return mux
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.settler.Status())
}

func (s *Server) force(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req ForceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Sport == "" || req.MatchID == "" {
		http.Error(w, "sport and matchId required", http.StatusBadRequest)
		return
	}

	rep, err := s.settler.ForceSettle(r.Context(), req.Sport, req.MatchID)
	if errors.Is(err, engine.ErrPassInProgress) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	resp := ForceResponse{Report: rep}
	if err != nil {
		// erros por aposta não invalidam o que já foi liquidado
		s.log.Warn("force settle finished with errors",
			zap.String("sport", req.Sport), zap.String("match_id", req.MatchID), zap.Error(err))
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
