package feedsim

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Server expõe o feed por esporte (/{sport}/home, /{sport}/d-{n}) e o push em /ws
type Server struct {
	log     *zap.Logger
	catalog *Catalog
	hub     *Hub
}

func NewServer(log *zap.Logger, c *Catalog, h *Hub) *Server {
	return &Server{log: log, catalog: c, hub: h}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.ServeWS)
	mux.HandleFunc("/", s.feed)
	return mux
}

func (s *Server) feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	sport, page := parts[0], parts[1]

	switch {
	case page == "home":
		resp, ok := s.catalog.Current(sport)
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, resp)
	case strings.HasPrefix(page, "d-"):
		n, err := strconv.Atoi(strings.TrimPrefix(page, "d-"))
		if err != nil || n < 1 {
			http.Error(w, "invalid day", http.StatusBadRequest)
			return
		}
		resp, ok := s.catalog.History(sport, n)
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, resp)
	default:
		http.NotFound(w, r)
	}
}

// Run avança o catálogo a cada intervalo e publica as mudanças no WS
func (s *Server) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, up := range s.catalog.Tick(now) {
				s.hub.Broadcast(up)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
