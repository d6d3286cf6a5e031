package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/resource-hub/pkg/hub"
)

// multipartOverhead is allowed on top of the file size limit for the form
// fields and part headers.
const multipartOverhead = 1 << 20

// downloadURLer is implemented by blob stores that can presign downloads.
type downloadURLer interface {
	DownloadURL(ctx context.Context, key, filename string) (string, error)
}

// ListResponse is the response body for a catalog query
type ListResponse struct {
	Materials []*hub.Material `json:"materials"`
	Stats     hub.Stats       `json:"stats"`
	Search    string          `json:"search"`
	Filters   hub.FilterSet   `json:"filters"`
	Sort      hub.SortMode    `json:"sort"`
}

// CreateResponse is the response body for a submitted material
type CreateResponse struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

// DownloadResponse is the response body for a download
type DownloadResponse struct {
	Material    *hub.Material `json:"material"`
	DownloadURL string        `json:"download_url"`
	Message     string        `json:"message"`
	Warning     string        `json:"warning,omitempty"`
	View        *ListResponse `json:"view,omitempty"`
}

// MaterialsHandler handles HTTP requests for study materials
type MaterialsHandler struct {
	hub    *hub.Hub
	logger *slog.Logger
}

// NewMaterialsHandler creates a new materials handler
func NewMaterialsHandler(h *hub.Hub, logger *slog.Logger) *MaterialsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaterialsHandler{hub: h, logger: logger}
}

// Routes returns the routes for materials
func (h *MaterialsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMaterials)
	r.Post("/", h.CreateMaterial)
	r.Get("/{id}", h.GetMaterial)
	r.Post("/{id}/download", h.DownloadMaterial)

	return r
}

// queryParams reads search, filters and sort from the query string.
func queryParams(r *http.Request) (string, hub.FilterSet, hub.SortMode) {
	q := r.URL.Query()
	filters := hub.FilterSet{
		Branch:   q.Get("branch"),
		Semester: q.Get("semester"),
		Year:     q.Get("year"),
		Subject:  q.Get("subject"),
	}
	sort := hub.SortMode(q.Get("sort"))
	if sort == "" {
		sort = hub.SortRecent
	}
	return q.Get("search"), filters, sort
}

func listResponse(v hub.View) *ListResponse {
	return &ListResponse{
		Materials: v.Materials,
		Stats:     v.Stats,
		Search:    v.Search,
		Filters:   v.Filters,
		Sort:      v.Sort,
	}
}

// ListMaterials returns the materials matching the query, sorted, with stats
func (h *MaterialsHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	search, filters, sort := queryParams(r)

	engine := h.hub.NewEngine()
	if err := engine.SetSort(sort); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := engine.Fetch(r.Context(), search, filters); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, listResponse(engine.View()))
}

// GetMaterial returns a single material
func (h *MaterialsHandler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, hub.ErrMaterialNotFound)
		return
	}

	material, err := h.hub.Repository().GetMaterial(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, material)
}

// CreateMaterial accepts a multipart submission and stores it
func (h *MaterialsHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	pipeline, err := h.hub.Pipeline()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	maxSize := h.hub.Catalog().MaxUploadSize
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, h.logger, &hub.ValidationError{Invalid: []string{"file_size"}})
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, r, h.logger, &hub.ValidationError{Invalid: []string{"form"}})
			return
		}
	}

	draft := hub.SubmissionDraft{
		Title:       r.FormValue("title"),
		Branch:      r.FormValue("branch"),
		Semester:    r.FormValue("semester"),
		Year:        r.FormValue("year"),
		Subject:     r.FormValue("subject"),
		SubjectCode: r.FormValue("subject_code"),
		Description: r.FormValue("description"),
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		draft.File = &hub.FileUpload{
			Name:     header.Filename,
			Size:     header.Size,
			MimeType: header.Header.Get("Content-Type"),
			Reader:   file,
		}
	}

	id, err := pipeline.Submit(r.Context(), draft)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, CreateResponse{ID: id, Message: hub.MessageUploadSuccess})
}

// DownloadMaterial records the caller's download and returns where to fetch
// the file together with the catalog refreshed for the caller's query.
func (h *MaterialsHandler) DownloadMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, hub.ErrMaterialNotFound)
		return
	}

	search, filters, sort := queryParams(r)
	engine := h.hub.NewEngine()
	if err := engine.SetSort(sort); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	tracker := h.hub.Tracker(hub.RefreshFunc(func(ctx context.Context) error {
		return engine.Fetch(ctx, search, filters)
	}))

	material, err := tracker.Download(r.Context(), id)
	if material == nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := DownloadResponse{
		Material:    material,
		DownloadURL: h.downloadURL(r.Context(), material),
		Message:     hub.MessageDownloadStarted,
	}
	if err != nil {
		resp.Warning = hub.Notify(err).Description
	}
	if engine.Loaded() {
		resp.View = listResponse(engine.View())
	}

	render.JSON(w, r, resp)
}

// downloadURL presigns the file when the store supports it and falls back to
// the stored URL.
func (h *MaterialsHandler) downloadURL(ctx context.Context, m *hub.Material) string {
	presigner, ok := h.hub.BlobStore().(downloadURLer)
	if !ok || m.FilePath == "" {
		return m.FileURL
	}
	filename := m.Title
	if m.FileType != "" && m.FileType != "unknown" {
		filename += "." + m.FileType
	}
	url, err := presigner.DownloadURL(ctx, m.FilePath, filename)
	if err != nil {
		h.logger.Warn("Failed to presign download, using stored URL", "material_id", m.ID, "err", err)
		return m.FileURL
	}
	return url
}
