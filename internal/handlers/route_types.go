package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mini-rodalies-3d/metromap/internal/models"
)

// GetRouteTypesResponse is the JSON response structure for GET /api/route-types
type GetRouteTypesResponse struct {
	RouteTypes []models.RouteType `json:"routeTypes"`
	Count      int                `json:"count"`
}

// SetVisibilityRequest is the JSON body of PUT /api/route-types/{type}/visibility
type SetVisibilityRequest struct {
	Visibility string `json:"visibility"`
}

// GetRouteTypes handles GET /api/route-types
func (h *LayoutHandler) GetRouteTypes(w http.ResponseWriter, r *http.Request) {
	types := h.svc.RouteTypes()
	writeJSON(w, http.StatusOK, GetRouteTypesResponse{RouteTypes: types, Count: len(types)})
}

// PutVisibility handles PUT /api/route-types/{type}/visibility
// Stores the new visibility and relayouts
func (h *LayoutHandler) PutVisibility(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "type")

	var req SetVisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}

	visibility, err := models.ParseVisibility(req.Visibility)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid visibility", map[string]interface{}{
			"visibility": req.Visibility,
			"allowed":    []models.Visibility{models.VisibilityHidden, models.VisibilitySolid, models.VisibilityHollow, models.VisibilityDashed},
		})
		return
	}

	snapshot, err := h.svc.SetVisibility(r.Context(), key, visibility)
	if err != nil {
		writeServiceError(w, "Failed to set visibility", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":       key,
		"visibility": visibility,
		"snapshotId": snapshot.ID,
	})
}
