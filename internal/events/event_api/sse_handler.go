package event_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"event-in/internal/logger"
	"event-in/internal/sse"
)

// StreamHandler streams event changes as server-sent events.
type StreamHandler struct {
	Logger      *logger.Logger
	Broadcaster *sse.Broadcaster
	// KeepAlive is the interval between comment pings; zero disables them.
	KeepAlive time.Duration
}

func NewStreamHandler(log *logger.Logger, b *sse.Broadcaster) *StreamHandler {
	return &StreamHandler{
		Logger:      log,
		Broadcaster: b,
		KeepAlive:   30 * time.Second,
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	changes := h.Broadcaster.Subscribe(ctx)

	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	if err := rc.Flush(); err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Streaming unsupported: %v", err))
		return
	}
	h.Logger.Info("SSE", fmt.Sprintf("Client connected, %d listening", h.Broadcaster.ClientCount()))

	var ping <-chan time.Time
	if h.KeepAlive > 0 {
		ticker := time.NewTicker(h.KeepAlive)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return
			}

			jsonData, err := json.Marshal(change)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize change: %v", err))
				continue
			}

			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", change.ID, change.Type, jsonData)
			if err := rc.Flush(); err != nil {
				return
			}

		case <-ping:
			fmt.Fprint(w, ": ping\n\n")
			if err := rc.Flush(); err != nil {
				return
			}

		case <-ctx.Done():
			h.Logger.Debug("SSE", "Client disconnected")
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
