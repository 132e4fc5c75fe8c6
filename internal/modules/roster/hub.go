package roster

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type changeEvent struct {
	Type string `json:"type"`
	UID  string `json:"uid,omitempty"`
}

// watcher is one open watch connection. Every write to the socket goes
// through send and the write pump; gorilla/websocket supports at most one
// concurrent writer per connection.
type watcher struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans change events out to every open watch connection, so a ban
// applied in one admin's panel shows up in the others without a reload.
type Hub struct {
	mu       sync.RWMutex
	watchers map[*watcher]struct{}
}

func NewHub() *Hub {
	return &Hub{
		watchers: make(map[*watcher]struct{}),
	}
}

func (h *Hub) register(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watchers[w] = struct{}{}
}

func (h *Hub) unregister(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.watchers[w]; ok {
		delete(h.watchers, w)
		close(w.send)
	}
}

// RosterChanged notifies all watchers that the profile for uid changed.
// Safe to call from any goroutine.
func (h *Hub) RosterChanged(uid string) {
	h.broadcast(changeEvent{Type: "roster_changed", UID: uid})
}

// AccessCodeChanged notifies all watchers that the registration code was
// rotated, so an open panel stops displaying the retired code.
func (h *Hub) AccessCodeChanged() {
	h.broadcast(changeEvent{Type: "access_code_changed"})
}

func (h *Hub) broadcast(ev changeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for w := range h.watchers {
		select {
		case w.send <- data:
		default:
			// Client too slow, skip
		}
	}
}

// Serve registers the connection, starts its write pump and blocks
// reading until the client goes away.
func (h *Hub) Serve(conn *websocket.Conn) {
	w := &watcher{
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.register(w)

	go h.writePump(w)
	h.readPump(w)
}

func (h *Hub) readPump(w *watcher) {
	defer func() {
		h.unregister(w)
		w.conn.Close()
	}()

	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(w *watcher) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
