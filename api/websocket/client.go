package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/pkg/config"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 512
	defaultClientBuffer   = 256
)

// Settings resolves per-connection timeouts from configuration.
type Settings struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	ClientBuffer   int
}

func NewSettings(cfg *config.WebSocketConfig) *Settings {
	s := &Settings{
		WriteWait:      defaultWriteWait,
		PongWait:       defaultPongWait,
		MaxMessageSize: defaultMaxMessageSize,
		ClientBuffer:   defaultClientBuffer,
	}

	if cfg != nil {
		if cfg.WriteTimeout > 0 {
			s.WriteWait = cfg.WriteTimeout
		}
		if cfg.PongTimeout > 0 {
			s.PongWait = cfg.PongTimeout
		}
		if cfg.MaxMessageSize > 0 {
			s.MaxMessageSize = cfg.MaxMessageSize
		}
		if cfg.ClientBuffer > 0 {
			s.ClientBuffer = cfg.ClientBuffer
		}
	}

	s.PingPeriod = (s.PongWait * 9) / 10
	if cfg != nil && cfg.PingInterval > 0 {
		s.PingPeriod = cfg.PingInterval
	}

	return s
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	service string
}

type IncomingMessage struct {
	Type    string `json:"type"`
	Service string `json:"service,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, service string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.settings.ClientBuffer),
		service: service,
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	settings := c.hub.settings
	c.conn.SetReadLimit(settings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	settings := c.hub.settings
	ticker := time.NewTicker(settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to current websocket frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		if msg.Service != "" {
			c.service = msg.Service
			logger.Infof("Client subscribed to service: %s", msg.Service)
			c.sendConfirmation("subscribed", msg.Service)
		}
	case "unsubscribe":
		oldService := c.service
		c.service = ""
		logger.Info("Client unsubscribed from service")
		c.sendConfirmation("unsubscribed", oldService)
	}
}

func (c *Client) sendConfirmation(action, service string) {
	confirmation := map[string]interface{}{
		"type":      "subscription_update",
		"action":    action,
		"service":   service,
		"timestamp": time.Now(),
	}
	data, err := json.Marshal(confirmation)
	if err != nil {
		logger.Errorf("Failed to marshal confirmation: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Warn("Client send channel full, dropping confirmation")
	}
}

func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		service := c.Query("service")
		client := NewClient(hub, conn, service)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
