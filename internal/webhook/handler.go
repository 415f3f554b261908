// Package webhook exposes the HTTP surface of the sync daemon: the
// change-event ingestion endpoint the CMS delivers to, an admin reindex
// trigger, and a health check.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/schema"

	"grimdex/internal/catalog"
	"grimdex/internal/feed"
	"grimdex/internal/syncer"
)

// Body size limit for event payloads.
const maxEventBodySize = 1 << 20 // 1MB

// Request timeouts.
const (
	eventRequestTimeout   = 30 * time.Second
	reindexRequestTimeout = 10 * time.Minute
)

// APIError is a structured error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Handler serves the sync daemon's HTTP endpoints.
type Handler struct {
	sync      *syncer.Syncer
	secret    string
	tolerance time.Duration
	logger    *slog.Logger
	decoder   *schema.Decoder
}

// NewHandler creates a Handler. An empty secret disables signature
// verification; only do that in development.
func NewHandler(sync *syncer.Syncer, secret string, logger *slog.Logger) *Handler {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &Handler{
		sync:      sync,
		secret:    secret,
		tolerance: DefaultTolerance,
		logger:    logger.With("component", "webhook"),
		decoder:   decoder,
	}
}

// RegisterRoutes registers all endpoints on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /hooks/catalog", withTimeout(maxBodySize(h.handleEvent, maxEventBodySize), eventRequestTimeout))
	mux.HandleFunc("POST /admin/reindex", withTimeout(h.handleReindex, reindexRequestTimeout))
	mux.HandleFunc("GET /health", withTimeout(h.handleHealth, 5*time.Second))
}

// handleEvent ingests one change-event payload, single or batched.
func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read request body")
		return
	}

	if h.secret != "" {
		sig := r.Header.Get("X-Grimdex-Signature")
		if err := Verify(sig, body, h.secret, time.Now(), h.tolerance); err != nil {
			h.logger.Warn("rejected webhook delivery", "error", err)
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid signature")
			return
		}
	}

	env, err := feed.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	sum, err := h.sync.Apply(r.Context(), env)
	if err != nil {
		writeInternalError(w, err, "Sync failed")
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

// reindexOptions are the admin reindex query parameters.
type reindexOptions struct {
	Index string `schema:"index"` // books | authors | series | all
}

// handleReindex triggers a synchronous batch rebuild.
func (h *Handler) handleReindex(w http.ResponseWriter, r *http.Request) {
	opts := reindexOptions{Index: "all"}
	if err := h.decoder.Decode(&opts, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid query parameters")
		return
	}

	summaries := make(map[string]syncer.Summary)
	var err error
	switch opts.Index {
	case "books":
		summaries["books"], err = h.sync.RebuildBooks(r.Context())
	case "authors":
		summaries["authors"], err = h.sync.RebuildAuthors(r.Context())
	case "series":
		summaries["series"], err = h.sync.RebuildSeries(r.Context())
	case "all":
		var all map[catalog.Kind]syncer.Summary
		all, err = h.sync.RebuildAll(r.Context())
		for kind, sum := range all {
			summaries[string(kind)] = sum
		}
	default:
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Unknown index "+opts.Index)
		return
	}
	if err != nil {
		writeInternalError(w, err, "Reindex failed")
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{Code: code, Message: message}); err != nil {
		slog.Warn("Failed to encode error response", "error", err)
	}
}

func writeInternalError(w http.ResponseWriter, err error, message string) {
	slog.Error(message, "error", err)
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}

// maxBodySize wraps a handler with request body size limiting.
func maxBodySize(next http.HandlerFunc, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next(w, r)
	}
}

// withTimeout wraps a handler with a context timeout.
func withTimeout(next http.HandlerFunc, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}
