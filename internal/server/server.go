// Package server provides the local HTTP server for the Mudra gesture
// control system: health, camera preview, landmark streaming, and history.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Store     *store.Store
	Snapshots *Snapshots
	StaticDir string
}

// Server represents the HTTP server for the Mudra application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		s.mux.HandleFunc("/api/commands", s.handleCommands)
		s.mux.HandleFunc("/api/calibration", s.handleCalibration)
	}

	if s.config.Snapshots != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Snapshots))
		s.mux.Handle("/api/landmarks", NewLandmarksHandler(s.config.Snapshots))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	if s.config.Snapshots != nil {
		fps, mode, lastCommand, lastAt, calibrated := s.config.Snapshots.Status()
		response["fps"] = fps
		response["keyboard_mode"] = mode
		response["calibrated"] = calibrated
		if lastCommand != "" {
			response["last_command"] = lastCommand
			response["last_command_at"] = lastAt.UnixMilli()
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// handleCommands handles GET requests to /api/commands.
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := s.config.Store.Commands().Recent(limit)
	if err != nil {
		http.Error(w, "Failed to query commands", http.StatusInternalServerError)
		return
	}

	type commandJSON struct {
		ID         string    `json:"id"`
		Type       string    `json:"type"`
		Detail     string    `json:"detail,omitempty"`
		Confidence float64   `json:"confidence"`
		CreatedAt  time.Time `json:"created_at"`
	}
	out := make([]commandJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, commandJSON{
			ID:         e.ID,
			Type:       e.Type,
			Detail:     e.Detail,
			Confidence: e.Confidence,
			CreatedAt:  e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"commands": out})
}

// handleCalibration handles GET requests to /api/calibration, returning the
// most recent calibration record.
func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entry, err := s.config.Store.Calibrations().Latest()
	if err == store.ErrNotFound {
		writeJSON(w, http.StatusOK, map[string]interface{}{"calibrated": false})
		return
	}
	if err != nil {
		http.Error(w, "Failed to query calibration", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"calibrated":    true,
		"id":            entry.ID,
		"screen_width":  entry.ScreenWidth,
		"screen_height": entry.ScreenHeight,
		"hand_size":     entry.HandSize,
		"created_at":    entry.CreatedAt,
		"record":        json.RawMessage(entry.Data),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
