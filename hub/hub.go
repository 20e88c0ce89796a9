// Package hub fans cart snapshots and notices out to the websocket clients
// watching a session.
package hub

import (
	"encoding/json"
	"sync"

	"storefront/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Frame types.
const (
	FrameCart  = "cart"
	FrameToast = "toast"
)

// Frame is one message pushed to a client.
type Frame struct {
	Type   string               `json:"type"`
	Cart   *models.CartSnapshot `json:"cart,omitempty"`
	Notice *models.Notice       `json:"notice,omitempty"`
}

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
	Room string
}

type broadcastMsg struct {
	Room string
	Data []byte
}

type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	quit       chan struct{}
	stopOnce   sync.Once
	log        *zap.Logger
	origins    []string
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		quit:       make(chan struct{}),
		log:        logger,
	}
}

// Run serves registrations and broadcasts until Stop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			h.rooms[c.Room][c] = true

		case c := <-h.unregister:
			h.drop(c)

		case m := <-h.broadcast:
			for c := range h.rooms[m.Room] {
				select {
				case c.Send <- m.Data:
				default:
					// slow consumer
					h.log.Debug("dropping slow websocket client", zap.String("room", c.Room))
					h.drop(c)
				}
			}

		case <-h.quit:
			for _, conns := range h.rooms {
				for c := range conns {
					h.drop(c)
				}
			}
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	conns := h.rooms[c.Room]
	if !conns[c] {
		return
	}
	delete(conns, c)
	close(c.Send)
	if len(conns) == 0 {
		delete(h.rooms, c.Room)
	}
}

// Stop ends Run and closes every client. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

func (h *Hub) stopped() bool {
	select {
	case <-h.quit:
		return true
	default:
		return false
	}
}

// Register adds c to its room. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	if h.stopped() {
		return false
	}
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Publish sends data to every client in room.
func (h *Hub) Publish(room string, data []byte) bool {
	if h.stopped() {
		return false
	}
	select {
	case h.broadcast <- broadcastMsg{Room: room, Data: data}:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) publishFrame(room string, f Frame) bool {
	data, err := json.Marshal(f)
	if err != nil {
		h.log.Error("encode frame", zap.String("type", f.Type), zap.Error(err))
		return false
	}
	return h.Publish(room, data)
}

// PublishCart pushes a cart snapshot to room.
func (h *Hub) PublishCart(room string, snap models.CartSnapshot) bool {
	return h.publishFrame(room, Frame{Type: FrameCart, Cart: &snap})
}

// PublishNotice pushes a toast to room.
func (h *Hub) PublishNotice(room string, n models.Notice) bool {
	return h.publishFrame(room, Frame{Type: FrameToast, Notice: &n})
}

// CartFrame encodes snap for a client's first message.
func CartFrame(snap models.CartSnapshot) []byte {
	data, _ := json.Marshal(Frame{Type: FrameCart, Cart: &snap})
	return data
}
