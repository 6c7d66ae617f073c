package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simonjohansson/taskboard/internal/model"
)

type wsClient struct {
	conn *websocket.Conn
	// card limits delivery to one card's events; zero receives everything.
	card int64
	mu   sync.Mutex
}

func (c *wsClient) wants(event model.Event) bool {
	return c.card == 0 || c.card == event.CardID
}

type hub struct {
	upgrader   websocket.Upgrader
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan model.Event
	done       chan struct{}
	closeOnce  sync.Once
	clients    map[*wsClient]struct{}
}

func newHub() *hub {
	h := &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan model.Event, 128),
		done:       make(chan struct{}),
		clients:    make(map[*wsClient]struct{}),
	}
	go h.run()
	return h
}

func (h *hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	var card int64
	if raw := r.URL.Query().Get("card"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "card must be a positive integer")
			return
		}
		card = parsed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn, card: card}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- client:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := client.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish never blocks the request path; events are dropped when the
// broadcast buffer is full.
func (h *hub) Publish(event model.Event) {
	select {
	case h.broadcast <- event:
	default:
	}
}

func (h *hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				_ = client.conn.Close()
			}
		case event := <-h.broadcast:
			for client := range h.clients {
				if !client.wants(event) {
					continue
				}
				client.mu.Lock()
				_ = client.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
				err := client.conn.WriteJSON(event)
				client.mu.Unlock()
				if err != nil {
					delete(h.clients, client)
					_ = client.conn.Close()
				}
			}
		case <-h.done:
			for client := range h.clients {
				_ = client.conn.Close()
			}
			return
		}
	}
}
