package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// LiveHub accepts upgraded websocket connections
type LiveHub interface {
	Attach(conn *websocket.Conn)
}

// LiveHandler streams job results to operators over a websocket
type LiveHandler struct {
	hub      LiveHub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewLiveHandler creates a live feed handler. An empty allowedOrigins list
// only accepts same-origin (or non-browser) clients.
func NewLiveHandler(hub LiveHub, allowedOrigins []string, logger *slog.Logger) *LiveHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &LiveHandler{hub: hub, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		}
	}
	return h
}

// RegisterRoutes registers the live feed route behind auth
func (h *LiveHandler) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /v1/admin/jobs/live", auth(http.HandlerFunc(h.Live)))
}

// Live upgrades the connection and hands it to the hub
func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response
		h.logger.Warn("live upgrade failed", slog.String("error", err.Error()))
		return
	}
	h.hub.Attach(conn)
}
