package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	CORSOrigins   []string
	StaticDir     string
	MaxCanvasSize int // 0 uses draw.DefaultMaxCanvasSize
}

// NewRouter wires every endpoint onto a chi router
func NewRouter(svc LayoutService, opts RouterOptions) http.Handler {
	h := NewLayoutHandler(svc)
	if opts.MaxCanvasSize > 0 {
		h.maxCanvas = opts.MaxCanvasSize
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.GetHealth)

	r.Route("/api/layout", func(r chi.Router) {
		r.Get("/", h.GetLayout)
		r.Get("/frame", h.GetFrame)
		r.Get("/map.png", h.GetMapPNG)
		r.Get("/connections/{index}/path", h.GetConnectionPath)
		r.Post("/refresh", h.PostRefresh)
	})

	r.Get("/api/route-types", h.GetRouteTypes)
	r.Put("/api/route-types/{type}/visibility", h.PutVisibility)

	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}

	return r
}

// GetHealth handles GET /health
// Reports repository connectivity, the published snapshot and layout pass timings
func (h *LayoutHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]interface{}{
		"status":    "ok",
		"database":  "connected",
		"timestamp": time.Now().UTC(),
		"layout":    h.svc.Stats(),
	}
	if snapshot := h.svc.Snapshot(); snapshot != nil {
		body["snapshotId"] = snapshot.ID
	}

	if err := h.svc.Ping(ctx); err != nil {
		body["status"] = "error"
		body["database"] = "disconnected"
		body["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	writeJSON(w, http.StatusOK, body)
}
