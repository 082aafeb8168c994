package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/contractsonly/api/internal/model"
)

// Unsubscriber disables the weekly digest for the holder of a token
type Unsubscriber interface {
	Unsubscribe(ctx context.Context, token string) error
}

// DigestHandlerConfig holds the dependencies for DigestHandler
type DigestHandlerConfig struct {
	Unsubscriber Unsubscriber
	// RedirectURL, when set, receives browsers after a successful unsubscribe
	RedirectURL string
	Logger      *slog.Logger
}

// DigestHandler serves the links embedded in digest emails
type DigestHandler struct {
	unsubscriber Unsubscriber
	redirectURL  string
	logger       *slog.Logger
}

// NewDigestHandler creates a new digest handler
func NewDigestHandler(cfg DigestHandlerConfig) *DigestHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DigestHandler{
		unsubscriber: cfg.Unsubscriber,
		redirectURL:  cfg.RedirectURL,
		logger:       logger,
	}
}

// RegisterRoutes registers digest routes
func (h *DigestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/digest/unsubscribe", h.Unsubscribe)
	// RFC 8058 one-click unsubscribe from mail clients
	mux.HandleFunc("POST /v1/digest/unsubscribe", h.Unsubscribe)
}

// Unsubscribe disables the digest for the subscriber named in the token
func (h *DigestHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		WriteError(w, model.NewBadRequestError("token is required"))
		return
	}

	if err := h.unsubscriber.Unsubscribe(r.Context(), token); err != nil {
		h.logger.Warn("unsubscribe failed", slog.String("error", err.Error()))
		WriteError(w, MapServiceError(err))
		return
	}

	if r.Method == http.MethodGet && h.redirectURL != "" {
		http.Redirect(w, r, h.redirectURL, http.StatusSeeOther)
		return
	}
	WriteData(w, http.StatusOK, map[string]bool{"unsubscribed": true}, nil)
}
