package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LandmarksHandler broadcasts real-time hand landmarks via WebSocket.
type LandmarksHandler struct {
	snapshots *Snapshots
	clients   map[*websocket.Conn]bool
	mu        sync.RWMutex
}

// NewLandmarksHandler creates a new LandmarksHandler.
func NewLandmarksHandler(snapshots *Snapshots) *LandmarksHandler {
	h := &LandmarksHandler{
		snapshots: snapshots,
		clients:   make(map[*websocket.Conn]bool),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends landmark data to all connected clients.
func (h *LandmarksHandler) broadcast() {
	ticker := time.NewTicker(66 * time.Millisecond) // ~15 FPS
	defer ticker.Stop()

	var lastAt time.Time
	for range ticker.C {
		h.mu.RLock()
		idle := len(h.clients) == 0
		h.mu.RUnlock()
		if idle {
			continue
		}

		obs, at := h.snapshots.Observation()
		if at.IsZero() || at.Equal(lastAt) {
			continue
		}
		lastAt = at

		msg, _ := json.Marshal(map[string]any{
			"hands":     obs.Hands,
			"timestamp": at.UnixMilli(),
		})

		h.mu.RLock()
		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
