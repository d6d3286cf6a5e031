package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/resource-hub/pkg/hub"
)

// CatalogResponse lists the values the filter bar and upload form offer.
type CatalogResponse struct {
	hub.Catalog
	SortModes []hub.SortMode `json:"sort_modes"`
}

// ProfileRequest is the request body for updating the caller's profile
type ProfileRequest struct {
	FullName string `json:"full_name"`
}

// CatalogHandler serves the enumerations and the caller's profile
type CatalogHandler struct {
	hub    *hub.Hub
	logger *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(h *hub.Hub, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{hub: h, logger: logger}
}

// Routes returns the catalog and profile routes
func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/catalog", h.GetCatalog)
	r.Put("/me/profile", h.UpdateProfile)

	return r
}

// GetCatalog returns the enumerations
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, CatalogResponse{Catalog: h.hub.Catalog(), SortModes: hub.SortModes})
}

// UpdateProfile sets the display name shown next to the caller's uploads
func (h *CatalogHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, &hub.ValidationError{Invalid: []string{"body"}})
		return
	}

	profile, err := h.hub.UpdateProfile(r.Context(), req.FullName)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, profile)
}
