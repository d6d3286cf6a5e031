package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/resource-hub/pkg/hub"
	fsstorage "github.com/tendant/resource-hub/pkg/hub/storage/fs"
	memorystorage "github.com/tendant/resource-hub/pkg/hub/storage/memory"
)

// Opener is implemented by blob stores that serve their own content.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// FilesHandler serves stored files for backends without public URLs
type FilesHandler struct {
	store  Opener
	logger *slog.Logger
}

// NewFilesHandler returns a handler for store, or nil when the store does not
// serve its own content.
func NewFilesHandler(store hub.BlobStore, logger *slog.Logger) *FilesHandler {
	opener, ok := store.(Opener)
	if !ok {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FilesHandler{store: opener, logger: logger}
}

// Routes returns the routes for files
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/*", h.GetFile)
	return r
}

// GetFile streams the stored file
func (h *FilesHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	rc, mimeType, err := h.store.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, memorystorage.ErrObjectNotFound) || errors.Is(err, fsstorage.ErrObjectNotFound) {
			http.Error(w, "file not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to open file", "path", key, "err", err)
		http.Error(w, "failed to open file", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+path.Base(key)+"\"")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("Failed to stream file", "path", key, "err", err)
	}
}
