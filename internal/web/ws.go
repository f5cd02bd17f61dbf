package web

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vitos/funding_radar/internal/domain"
	"github.com/vitos/funding_radar/internal/usecase"
	"go.uber.org/zap"
)

// wsFrame is one push message to a connected browser. Exactly one of the
// payload fields is set, selected by Type.
type wsFrame struct {
	Type      string                 `json:"type"` // "snapshot" or "countdown"
	Markets   *marketsResponse       `json:"markets,omitempty"`
	Status    *statusResponse        `json:"status,omitempty"`
	Countdown *domain.CountdownState `json:"countdown,omitempty"`
}

// Hub tracks connected dashboard browsers and fans frames out to them.
// Clients that fail a write are dropped; the page reconnects on its own.
type Hub struct {
	logger  *zap.Logger
	mu      sync.Mutex
	clients map[string]*wsClient
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard page and this endpoint share an origin; remote API
	// access goes through the JSON endpoints instead.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]*wsClient),
	}
}

func (h *Hub) Broadcast(frame wsFrame) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	targets := make(map[string]*wsClient, len(h.clients))
	for id, c := range h.clients {
		targets[id] = c
	}
	h.mu.Unlock()

	for id, c := range targets {
		c.mu.Lock()
		err := c.conn.WriteJSON(frame)
		c.mu.Unlock()

		if err != nil {
			h.logger.Debug("Dropping websocket client", zap.String("client_id", id), zap.Error(err))
			h.remove(id)
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if ok {
		c.conn.Close()
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]*wsClient)
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}

	id := uuid.NewString()
	client := &wsClient{conn: conn}

	s.hub.mu.Lock()
	if s.hub.closed {
		s.hub.mu.Unlock()
		conn.Close()
		return
	}
	s.hub.clients[id] = client
	s.hub.mu.Unlock()

	s.logger.Debug("Websocket client connected", zap.String("client_id", id))

	// Seed the new client with current state so it does not wait a full
	// poll interval for its first table.
	client.mu.Lock()
	_ = conn.WriteJSON(s.snapshotFrame(s.poller.State()))
	cd := s.countdown.State()
	_ = conn.WriteJSON(wsFrame{Type: "countdown", Countdown: &cd})
	client.mu.Unlock()

	// Read loop exists only to detect disconnects; the dashboard never
	// sends application messages.
	go func() {
		defer s.hub.remove(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) snapshotFrame(state usecase.PollState) wsFrame {
	markets := s.marketsResponse(state)
	status := statusFromState(state)
	return wsFrame{
		Type:    "snapshot",
		Markets: &markets,
		Status:  &status,
	}
}
