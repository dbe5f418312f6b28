package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// MessageType tags a Message envelope.
type MessageType string

const (
	BatchStatistics MessageType = "batch_statistics"
	ModelReloaded   MessageType = "model_reloaded"
)

// Message is the envelope pushed to every subscriber.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	ID        string          `json:"id"`
}

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	clientID string
}

// StatisticsHub fans batch statistics out to WebSocket subscribers. Slow clients are
// dropped rather than blocking publishers.
type StatisticsHub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	seq        atomic.Uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewStatisticsHub returns a hub; call Run in its own goroutine.
func NewStatisticsHub(logger *zap.Logger) *StatisticsHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &StatisticsHub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			// Any origin may subscribe.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run dispatches registrations and broadcasts until Stop is called.
func (h *StatisticsHub) Run() {
	defer h.logger.Info("statistics hub stopped")
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			StatisticsSubscribers.Set(float64(n))
			h.logger.Debug("statistics client connected", zap.String("client", c.clientID), zap.Int("total", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			StatisticsSubscribers.Set(float64(n))
			h.logger.Debug("statistics client disconnected", zap.String("client", c.clientID), zap.Int("total", n))

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			StatisticsSubscribers.Set(0)
			return
		}
	}
}

// Stop disconnects every subscriber and makes Run return.
func (h *StatisticsHub) Stop() {
	h.cancel()
}

// ClientCount reports the connected subscribers.
func (h *StatisticsHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and subscribes the connection.
func (h *StatisticsHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		conn:     conn,
		send:     make(chan []byte, 64),
		clientID: fmt.Sprintf("client_%d", h.seq.Add(1)),
	}
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close()
		return
	}
	go c.writePump(h.logger)
	go c.readPump(h)
}

// Publish wraps data in a Message and queues it for every subscriber. A full queue
// drops the message.
func (h *StatisticsHub) Publish(msgType MessageType, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}
	message, err := json.Marshal(Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Data:      payload,
		ID:        fmt.Sprintf("msg_%d", h.seq.Add(1)),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("statistics broadcast queue full, dropping message")
	}
	return nil
}

func (c *client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("websocket write failed", zap.String("client", c.clientID), zap.Error(err))
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

// readPump only watches for the peer going away; subscribers send nothing.
func (c *client) readPump(h *StatisticsHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed", zap.String("client", c.clientID), zap.Error(err))
			}
			return
		}
	}
}
