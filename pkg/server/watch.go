package server

import (
	"sync"

	"github.com/gorilla/websocket"

	"tidestore/pkg/document"
)

// watchHub fans write notifications out to every connected /_ws/watch
// client, in the spirit of a change-stream companion to the engine's
// key-value API. It keeps no history: a client only sees events that occur
// while it is connected.
type watchHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWatchHub() *watchHub {
	return &watchHub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *watchHub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer h.unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *watchHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

type watchEvent struct {
	Collection string `json:"collection"`
	Op         string `json:"op"`
	ID         string `json:"_id"`
}

func (h *watchHub) publish(collection, op string, id document.ObjectID) {
	event := watchEvent{Collection: collection, Op: op, ID: id.Hex()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(event); err != nil {
			go h.unregister(conn)
		}
	}
}

func (h *watchHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
	}
	h.conns = make(map[*websocket.Conn]struct{})
}
