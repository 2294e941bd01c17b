package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"studentrisk/risk"
)

const (
	recentAssessments = 64
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = 45 * time.Second
)

// feedMessage is the envelope pushed to websocket subscribers.
type feedMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      risk.Record `json:"data"`
}

// Hub broadcasts persisted assessments to websocket subscribers and replays
// the most recent ones to each new connection. It implements risk.Publisher.
type Hub struct {
	clients    map[*feedClient]bool
	register   chan *feedClient
	unregister chan *feedClient
	broadcast  chan []byte
	done       chan struct{}
	recent     *lru.Cache[int64, risk.Record]
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	recent, _ := lru.New[int64, risk.Record](recentAssessments)
	return &Hub{
		clients:    make(map[*feedClient]bool),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		recent:     recent,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Run owns the client set; it exits when ctx is cancelled. The done channel
// releases any connection goroutine still trying to hand itself over.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
			}
		case payload := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
			}
			return
		}
	}
}

// PublishAssessment queues one record for broadcast and keeps it in the
// replay buffer. Never blocks the caller.
func (h *Hub) PublishAssessment(rec risk.Record) {
	h.recent.Add(rec.ID, rec)
	payload, err := json.Marshal(feedMessage{
		Type:      "assessment",
		Timestamp: time.Now().UTC(),
		Data:      rec,
	})
	if err != nil {
		h.logger.Warn("encode feed message", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("feed broadcast buffer full, dropping message")
	}
}

// RegisterAssessmentFeed exposes the hub at GET /ws/assessments.
func RegisterAssessmentFeed(mux *http.ServeMux, hub *Hub) {
	mux.HandleFunc("GET /ws/assessments", hub.handleFeed)
}

func (h *Hub) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// The buffer has room for a full replay plus some live traffic, so the
	// replay loop below cannot block before the write pump starts.
	client := &feedClient{conn: conn, send: make(chan []byte, recentAssessments+16)}

	// Replay the recent records oldest-first before live traffic starts.
	for _, id := range h.recent.Keys() {
		if rec, ok := h.recent.Get(id); ok {
			payload, err := json.Marshal(feedMessage{Type: "assessment", Timestamp: rec.CreatedAt, Data: rec})
			if err == nil {
				client.send <- payload
			}
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump(h)
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *feedClient) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
