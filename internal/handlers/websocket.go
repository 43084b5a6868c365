package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mossy-p/live-signaling/internal/logger"
	"github.com/mossy-p/live-signaling/internal/models"
	"github.com/mossy-p/live-signaling/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Client represents a WebSocket client connection
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu     sync.Mutex
	closed bool
}

// Deliver queues data for the write pump without blocking. It reports
// false when the buffer is full or the client is gone.
func (c *Client) Deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// HandleSignaling upgrades the request and serves the realtime session
// until the socket closes or ctx is cancelled.
func HandleSignaling(hub *session.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			l := logger.Ctx(c.Request.Context())
			l.Warn().Err(err).Msg("failed to upgrade connection")
			return
		}

		client := &Client{
			ID:   uuid.New().String(),
			Conn: conn,
			Send: make(chan []byte, sendBuffer),
		}

		l := logger.Ctx(c.Request.Context()).With().Str(logger.FieldConnectionID, client.ID).Logger()
		ctx := logger.WithLogger(c.Request.Context(), l)

		// Server shutdown does not reach hijacked connections.
		stop := context.AfterFunc(ctx, func() { conn.Close() })
		defer stop()

		hub.Connect(client.ID, client)
		l.Info().Msg("peer connected")

		go client.writePump(l)
		client.readPump(ctx, hub, l)
	}
}

func (c *Client) readPump(ctx context.Context, hub *session.Hub, l zerolog.Logger) {
	defer func() {
		hub.Disconnect(c.ID)
		c.close()
		c.Conn.Close()
		l.Info().Msg("peer disconnected")
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l.Warn().Err(err).Msg("websocket error")
			}
			return
		}

		var msg models.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			l.Debug().Err(err).Msg("failed to parse message")
			c.sendMessage(l, models.Message{Type: models.EventError, Error: "malformed message"})
			continue
		}

		if err := hub.Handle(ctx, c.ID, msg); err != nil {
			l.Debug().Err(err).Str("type", string(msg.Type)).Msg("event rejected")
		}
	}
}

func (c *Client) writePump(l zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				l.Debug().Err(err).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendMessage(l zerolog.Logger, msg models.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		l.Error().Err(err).Msg("failed to marshal message")
		return
	}
	if !c.Deliver(data) {
		l.Warn().Msg("failed to send message to peer, buffer full")
	}
}
