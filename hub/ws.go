package hub

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

// AllowOrigins sets the browser origins allowed to open a socket, with the
// same forms as the CORS configuration: "*", an exact origin, or one "*"
// wildcard such as "https://*.example.com". Without a list only same-origin
// requests are accepted. Call before serving.
func (h *Hub) AllowOrigins(origins ...string) {
	h.origins = origins
}

func (h *Hub) upgrader() *websocket.Upgrader {
	u := &websocket.Upgrader{}
	if len(h.origins) > 0 {
		u.CheckOrigin = h.checkOrigin
	}
	return u
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if originMatches(allowed, origin) {
			return true
		}
	}
	h.log.Debug("websocket origin rejected", zap.String("origin", origin))
	return false
}

func originMatches(allowed, origin string) bool {
	allowed, origin = strings.ToLower(allowed), strings.ToLower(origin)
	if allowed == "*" || allowed == origin {
		return true
	}
	prefix, suffix, ok := strings.Cut(allowed, "*")
	return ok && len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix)
}

// Serve upgrades the request and streams room's frames to it. hello frames
// are queued before any broadcast. Clients only listen; anything they send
// is discarded.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, room string, hello ...[]byte) error {
	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
		Room: room,
	}
	for _, msg := range hello {
		client.Send <- msg
	}

	if !h.Register(client) {
		conn.Close()
		return nil
	}
	h.log.Debug("websocket client joined", zap.String("room", room))
	go writePump(client)
	go readPump(client, h)
	return nil
}

func writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func readPump(c *Client, h *Hub) {
	defer func() {
		h.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
