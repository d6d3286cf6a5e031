package hub

import (
	"errors"
	"strings"
)

// Success messages shown to users.
const (
	MessageUploadSuccess   = "Material uploaded successfully!"
	MessageDownloadStarted = "Your download will begin shortly."
)

// Notification is the user-facing text for an outcome.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive"`
}

// Notify maps an outcome to the message shown to the user. Every failure
// kind has its own message; nil maps to the upload success message.
func Notify(err error) Notification {
	var verr *ValidationError
	switch {
	case err == nil:
		return Notification{Title: "Success!", Description: MessageUploadSuccess}
	case errors.As(err, &verr):
		return Notification{Title: "Missing information", Description: validationText(verr), Destructive: true}
	case errors.Is(err, ErrAuthenticationRequired):
		return Notification{Title: "Authentication Required", Description: "Please log in to continue.", Destructive: true}
	case errors.Is(err, ErrBlobWriteFailed):
		return Notification{Title: "Upload failed", Description: "The file could not be stored. Please try again.", Destructive: true}
	case errors.Is(err, ErrMetadataWriteFailed):
		return Notification{Title: "Upload failed", Description: "The file was received but the material could not be saved. Please try again.", Destructive: true}
	case errors.Is(err, ErrCatalogUnavailable):
		return Notification{Title: "Error", Description: "Failed to fetch materials. Please try again.", Destructive: true}
	case errors.Is(err, ErrTrackingFailed):
		return Notification{Title: "Download Started", Description: "Your download will begin shortly, but it could not be counted."}
	case errors.Is(err, ErrMaterialNotFound):
		return Notification{Title: "Not found", Description: "This material is no longer available.", Destructive: true}
	}
	return Notification{Title: "Error", Description: "Something went wrong. Please try again.", Destructive: true}
}

func validationText(verr *ValidationError) string {
	var parts []string
	if len(verr.MissingFields) > 0 {
		parts = append(parts, "Please provide: "+strings.Join(verr.MissingFields, ", ")+".")
	}
	if len(verr.Invalid) > 0 {
		parts = append(parts, "Please check: "+strings.Join(verr.Invalid, ", ")+".")
	}
	return strings.Join(parts, " ")
}
