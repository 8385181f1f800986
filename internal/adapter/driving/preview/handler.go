// Package preview implements the live-reloading preview server: it serves
// the dist directory, pushes rebuild notifications over a websocket and
// exposes health, build history and manual rebuild endpoints.
package preview

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// defaultBuildsLimit is the number of runs /__builds returns without a limit
// query parameter.
const defaultBuildsLimit = 20

// Rebuilder triggers a full rebuild. *application.WatchService satisfies it.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Handler is the HTTP driving adapter for the preview server. builds and
// rebuilder may be nil.
type Handler struct {
	site      fs.FS
	builds    driven.BuildStore
	rebuilder Rebuilder
	hub       *Hub
	logger    *slog.Logger
}

// NewHandler creates a Handler serving site.
func NewHandler(
	site fs.FS,
	builds driven.BuildStore,
	rebuilder Rebuilder,
	hub *Hub,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		site:      site,
		builds:    builds,
		rebuilder: rebuilder,
		hub:       hub,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /__health", h.Health)
	mux.HandleFunc("GET /__builds", h.ListBuilds)
	mux.HandleFunc("POST /__rebuild", h.Rebuild)
	mux.Handle("GET "+LiveReloadPath, h.hub)
	mux.HandleFunc("GET "+LiveReloadScript, h.Script)
	mux.HandleFunc("GET /", h.Site)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports that the server is up and how many pages are connected.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Clients: h.hub.ClientCount(),
	})
}

// ListBuilds returns the most recent build runs, newest first.
func (h *Handler) ListBuilds(w http.ResponseWriter, r *http.Request) {
	limit := defaultBuildsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	resp := []BuildRunResponse{}
	if h.builds != nil {
		runs, err := h.builds.ListRecent(r.Context(), limit)
		if err != nil {
			h.logger.Error("failed to list build runs", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		for _, run := range runs {
			resp = append(resp, toBuildRunResponse(run))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Rebuild runs a full build and waits for it to finish.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if !sameOrigin(r) {
		writeError(w, http.StatusForbidden, "cross-origin request rejected")
		return
	}
	if h.rebuilder == nil {
		writeError(w, http.StatusServiceUnavailable, "rebuild unavailable")
		return
	}

	if err := h.rebuilder.Rebuild(r.Context()); err != nil {
		h.logger.Error("manual rebuild failed", "error", err)
		writeError(w, http.StatusInternalServerError, "rebuild failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, RebuildResponse{Status: "ok"})
}

// Script serves the live-reload client.
func (h *Handler) Script(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(liveReloadJS))
}

// Site serves files from the site filesystem. HTML pages get the live-reload
// script injected; while the latest build is failing they are replaced by an
// error overlay.
func (h *Handler) Site(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	info, err := fs.Stat(h.site, name)
	if err == nil && info.IsDir() {
		name = path.Join(name, "index.html")
		info, err = fs.Stat(h.site, name)
	}
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Error("failed to stat site file", "path", name, "error", err)
		}
		http.NotFound(w, r)
		return
	}

	if path.Ext(name) != ".html" {
		http.ServeFileFS(w, r, h.site, name)
		return
	}

	if h.renderOverlay(w, r) {
		return
	}

	page, err := fs.ReadFile(h.site, name)
	if err != nil {
		h.logger.Error("failed to read page", "path", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(injectScript(page))
}

// renderOverlay writes the error overlay when the latest recorded build
// failed. It reports whether it wrote a response.
func (h *Handler) renderOverlay(w http.ResponseWriter, r *http.Request) bool {
	if h.builds == nil {
		return false
	}

	latest, err := h.builds.Latest(r.Context())
	if err != nil {
		h.logger.Warn("failed to load latest build run", "error", err)
		return false
	}
	if latest == nil || !latest.Failed() {
		return false
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusInternalServerError)
	if err := errorOverlay(*latest).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render error overlay", "error", err)
	}
	return true
}
