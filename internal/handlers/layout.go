package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mini-rodalies-3d/metromap/internal/draw"
	"github.com/mini-rodalies-3d/metromap/internal/layout"
	"github.com/mini-rodalies-3d/metromap/internal/models"
	"github.com/mini-rodalies-3d/metromap/internal/pathing"
	"github.com/mini-rodalies-3d/metromap/internal/service"
)

// LayoutService defines the operations the HTTP layer needs from the layout service
type LayoutService interface {
	Snapshot() *service.Snapshot
	Refresh(ctx context.Context) (*service.Snapshot, error)
	Frame(view pathing.Viewport) (*draw.Frame, *service.Snapshot, error)
	ConnectionPath(index int, view pathing.Viewport) (*layout.LineConnection, []pathing.PartPath, error)
	RouteTypes() []models.RouteType
	SetVisibility(ctx context.Context, key string, visibility models.Visibility) (*service.Snapshot, error)
	Ping(ctx context.Context) error
	Stats() service.PassStats
}

// Default canvas size when the request does not give one
const (
	defaultCanvasWidth  = 1024
	defaultCanvasHeight = 768
)

// LayoutHandler handles HTTP requests for layout snapshots and their drawings
type LayoutHandler struct {
	svc       LayoutService
	maxCanvas int
}

// NewLayoutHandler creates a new handler for the given service
func NewLayoutHandler(svc LayoutService) *LayoutHandler {
	return &LayoutHandler{svc: svc, maxCanvas: draw.DefaultMaxCanvasSize}
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// GetLayoutResponse is the JSON response structure for GET /api/layout
type GetLayoutResponse struct {
	*layout.Result
	SnapshotID  string    `json:"snapshotId"`
	Generation  uint64    `json:"generation"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// GetFrameResponse is the JSON response structure for GET /api/layout/frame
type GetFrameResponse struct {
	*draw.Frame
	SnapshotID string `json:"snapshotId"`
}

// GetConnectionPathResponse is the JSON response structure for GET /api/layout/connections/{index}/path
type GetConnectionPathResponse struct {
	Connection layout.LineConnection `json:"connection"`
	Parts      []pathing.PartPath    `json:"parts"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// writeServiceError maps service errors onto status codes
func writeServiceError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNoSnapshot):
		status = http.StatusServiceUnavailable
	case errors.Is(err, pathing.ErrInvalidViewport):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrConnectionNotFound), errors.Is(err, service.ErrUnknownRouteType):
		status = http.StatusNotFound
	}
	writeError(w, status, message, map[string]interface{}{"internal": err.Error()})
}

// parseViewport reads cx, cy, w, h and zoom. The map centre of the snapshot
// is used when cx or cy are missing. Canvas sides above maxCanvas are rejected.
func (h *LayoutHandler) parseViewport(r *http.Request, snapshot *service.Snapshot) (pathing.Viewport, error) {
	view := pathing.Viewport{Width: defaultCanvasWidth, Height: defaultCanvasHeight, Zoom: 1}
	if snapshot != nil {
		view.CenterX = snapshot.Result.CenterX
		view.CenterY = snapshot.Result.CenterY
	}

	query := r.URL.Query()
	for _, param := range []struct {
		name   string
		target *float64
	}{
		{"cx", &view.CenterX},
		{"cy", &view.CenterY},
		{"w", &view.Width},
		{"h", &view.Height},
		{"zoom", &view.Zoom},
	} {
		raw := query.Get(param.name)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return view, pathing.ErrInvalidViewport
		}
		*param.target = value
	}

	if err := view.Validate(); err != nil {
		return view, err
	}
	if view.Width > float64(h.maxCanvas) || view.Height > float64(h.maxCanvas) {
		return view, fmt.Errorf("%w: canvas sides are limited to %d pixels", pathing.ErrInvalidViewport, h.maxCanvas)
	}
	return view, nil
}

// GetLayout handles GET /api/layout
// Returns the current snapshot: station footprints, line and station connections
func (h *LayoutHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	snapshot := h.svc.Snapshot()
	if snapshot == nil {
		writeServiceError(w, "Layout not available", service.ErrNoSnapshot)
		return
	}

	w.Header().Set("ETag", `"`+snapshot.ID+`"`)
	if match := r.Header.Get("If-None-Match"); match == `"`+snapshot.ID+`"` {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, http.StatusOK, GetLayoutResponse{
		Result:      snapshot.Result,
		SnapshotID:  snapshot.ID,
		Generation:  snapshot.Generation,
		GeneratedAt: snapshot.GeneratedAt,
	})
}

// GetFrame handles GET /api/layout/frame
// Returns draw primitives for the viewport given by cx, cy, w, h and zoom
func (h *LayoutHandler) GetFrame(w http.ResponseWriter, r *http.Request) {
	view, err := h.parseViewport(r, h.svc.Snapshot())
	if err != nil {
		writeServiceError(w, "Invalid viewport", err)
		return
	}

	frame, snapshot, err := h.svc.Frame(view)
	if err != nil {
		writeServiceError(w, "Failed to build frame", err)
		return
	}

	writeJSON(w, http.StatusOK, GetFrameResponse{Frame: frame, SnapshotID: snapshot.ID})
}

// GetConnectionPath handles GET /api/layout/connections/{index}/path
// Returns the synthesized polyline of every part of one line connection
func (h *LayoutHandler) GetConnectionPath(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer", map[string]interface{}{
			"index": chi.URLParam(r, "index"),
		})
		return
	}

	view, err := h.parseViewport(r, h.svc.Snapshot())
	if err != nil {
		writeServiceError(w, "Invalid viewport", err)
		return
	}

	conn, parts, err := h.svc.ConnectionPath(index, view)
	if err != nil {
		writeServiceError(w, "Failed to synthesize connection", err)
		return
	}

	writeJSON(w, http.StatusOK, GetConnectionPathResponse{Connection: *conn, Parts: parts})
}

// GetMapPNG handles GET /api/layout/map.png
// Renders the viewport as a PNG image
func (h *LayoutHandler) GetMapPNG(w http.ResponseWriter, r *http.Request) {
	view, err := h.parseViewport(r, h.svc.Snapshot())
	if err != nil {
		writeServiceError(w, "Invalid viewport", err)
		return
	}

	frame, _, err := h.svc.Frame(view)
	if err != nil {
		writeServiceError(w, "Failed to build frame", err)
		return
	}

	opts := draw.DefaultPNGOptions()
	opts.MaxSize = h.maxCanvas
	opts.Labels = r.URL.Query().Get("labels") != "false"

	// Render into a buffer so a failed render can still report JSON
	var buf bytes.Buffer
	if err := draw.WritePNG(&buf, frame, opts); err != nil {
		writeServiceError(w, "Failed to render map", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// PostRefresh handles POST /api/layout/refresh
// Reloads the network from the repository and publishes a new snapshot
func (h *LayoutHandler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	snapshot, err := h.svc.Refresh(ctx)
	if err != nil {
		writeServiceError(w, "Failed to refresh layout", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshotId":  snapshot.ID,
		"generation":  snapshot.Generation,
		"generatedAt": snapshot.GeneratedAt,
		"stations":    len(snapshot.Result.Stations),
		"warnings":    snapshot.Result.Warnings,
	})
}
