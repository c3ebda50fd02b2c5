package feedsim

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	// Métricas Prometheus de conexões e mensagens do WS
	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feed_ws_connections",
		Help: "Clientes WebSocket conectados",
	})
	WSMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_ws_messages_sent_total",
		Help: "Total de mensagens WS enviadas",
	})
)

type clientConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // um escritor por vez
}

// Hub gerencia os clientes conectados ao /ws e faz broadcast das atualizações
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*clientConn), log: log}
}

func (h *Hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	WSConnections.Inc()
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		WSConnections.Dec()
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// Clients devolve quantos clientes estão conectados
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast envia a mensagem para todos os clientes; cliente com erro de escrita é desconectado
func (h *Hub) Broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("ws marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		err := c.conn.WriteMessage(websocket.TextMessage, msg)
		c.mu.Unlock()
		if err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
			continue
		}
		WSMessagesSent.Inc()
	}
}

// ServeWS faz o upgrade e mantém a conexão até o cliente sair
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	id := uuid.NewString()
	h.add(&clientConn{id: id, conn: conn})

	go func() {
		defer func() {
			h.remove(id)
			_ = conn.Close()
		}()
		for {
			// Lê e descarta mensagens do cliente para detectar desconexão
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
