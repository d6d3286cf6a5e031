package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/resource-hub/pkg/hub"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error         string   `json:"error"`
	Message       string   `json:"message"`
	MissingFields []string `json:"missing_fields,omitempty"`
	Invalid       []string `json:"invalid,omitempty"`
}

// statusFor maps hub errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, hub.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, hub.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, hub.ErrMaterialNotFound):
		return http.StatusNotFound
	case errors.Is(err, hub.ErrBlobWriteFailed), errors.Is(err, hub.ErrMetadataWriteFailed):
		return http.StatusBadGateway
	case errors.Is(err, hub.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Unhandled request error", "method", r.Method, "path", r.URL.Path, "err", err)
	}

	n := hub.Notify(err)
	resp := ErrorResponse{Error: n.Title, Message: n.Description}
	var verr *hub.ValidationError
	if errors.As(err, &verr) {
		resp.MissingFields = verr.MissingFields
		resp.Invalid = verr.Invalid
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}
