package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Chab-algo/praxia/internal/engine/event"
	"github.com/Chab-algo/praxia/pkg/api"
	"github.com/Chab-algo/praxia/pkg/log"
)

// Client represents a WebSocket client receiving budget alerts
type Client struct {
	conn      *websocket.Conn
	sub       *event.Subscription[api.BudgetAlert]
	closeOnce sync.Once
}

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 512
	wsBufferSize       = 1024
	incomingBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades an HTTP connection to WebSocket and streams
// every alert published to hub until either side goes away
func HandleWebSocket(
	hub *event.Hub[api.BudgetAlert], w http.ResponseWriter, r *http.Request,
) *Client {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return nil
	}

	return &Client{
		conn: conn,
		sub:  hub.Subscribe(),
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	client := HandleWebSocket(s.alerts, c.Writer, c.Request)
	if client == nil {
		return
	}

	s.registerWebSocket(client)
	go func() {
		defer s.unregisterWebSocket(client)
		client.run()
	}()
}

// Close terminates the connection and its alert subscription
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.sub.Close()
		_ = c.conn.Close()
	})
}

func (c *Client) run() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, incomingBufferSize)
	go c.readMessages(incoming)

	for {
		select {
		case _, ok := <-incoming:
			// inbound messages carry nothing; only disconnects matter
			if !ok {
				return
			}

		case alert, ok := <-c.sub.Receive():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.sendAlert(alert) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			close(incoming)
			return
		}
		select {
		case incoming <- message:
		default:
		}
	}
}

func (c *Client) sendAlert(alert api.BudgetAlert) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(alert); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}
