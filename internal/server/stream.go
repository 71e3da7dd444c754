package server

import (
	"fmt"
	"net/http"
	"time"
)

// StreamHandler serves the camera preview as MJPEG from the published
// snapshot, so it never competes with the pipeline for the camera.
type StreamHandler struct {
	snapshots *Snapshots
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(snapshots *Snapshots) *StreamHandler {
	return &StreamHandler{snapshots: snapshots}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(66 * time.Millisecond) // ~15 FPS
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		jpeg, seq := h.snapshots.Frame()
		if len(jpeg) == 0 || seq == lastSeq {
			continue
		}
		lastSeq = seq

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
