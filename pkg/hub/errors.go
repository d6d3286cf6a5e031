package hub

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrAuthenticationRequired indicates the caller is anonymous
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrBlobWriteFailed is matched by every *BlobWriteError
	ErrBlobWriteFailed = errors.New("blob write failed")

	// ErrMetadataWriteFailed is matched by every *MetadataWriteError
	ErrMetadataWriteFailed = errors.New("metadata write failed")

	// ErrCatalogUnavailable is matched by every *CatalogUnavailableError
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrTrackingFailed is matched by every *TrackingError
	ErrTrackingFailed = errors.New("download tracking failed")

	// ErrMaterialNotFound indicates a material does not exist
	ErrMaterialNotFound = errors.New("material not found")

	// ErrFetchSuperseded is returned by a fetch whose result was discarded
	// because a later-issued fetch already installed its result.
	ErrFetchSuperseded = errors.New("fetch superseded by a newer fetch")
)

// ValidationError names the fields that were missing or out of range.
type ValidationError struct {
	MissingFields []string
	Invalid       []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.MissingFields) > 0 {
		parts = append(parts, "missing "+strings.Join(e.MissingFields, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BlobWriteError is returned when the blob could not be stored. No metadata
// write was attempted.
type BlobWriteError struct {
	Path string
	Err  error
}

func (e *BlobWriteError) Error() string {
	return fmt.Sprintf("blob write failed for %s: %v", e.Path, e.Err)
}

func (e *BlobWriteError) Unwrap() error {
	return e.Err
}

func (e *BlobWriteError) Is(target error) bool {
	return target == ErrBlobWriteFailed
}

// MetadataWriteError is returned when the blob was stored but the material
// record was not. CompensationErr is set when the orphaned blob could not be
// deleted either.
type MetadataWriteError struct {
	OrphanedBlobPath string
	Err              error
	CompensationErr  error
}

func (e *MetadataWriteError) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("metadata write failed (orphaned blob %s kept: %v): %v", e.OrphanedBlobPath, e.CompensationErr, e.Err)
	}
	return fmt.Sprintf("metadata write failed (blob %s removed): %v", e.OrphanedBlobPath, e.Err)
}

func (e *MetadataWriteError) Unwrap() error {
	return e.Err
}

func (e *MetadataWriteError) Is(target error) bool {
	return target == ErrMetadataWriteFailed
}

// Orphaned reports whether the blob is still in storage.
func (e *MetadataWriteError) Orphaned() bool {
	return e.CompensationErr != nil
}

// CatalogUnavailableError wraps a failed store read.
type CatalogUnavailableError struct {
	Err error
}

func (e *CatalogUnavailableError) Error() string {
	return fmt.Sprintf("catalog unavailable: %v", e.Err)
}

func (e *CatalogUnavailableError) Unwrap() error {
	return e.Err
}

func (e *CatalogUnavailableError) Is(target error) bool {
	return target == ErrCatalogUnavailable
}

// TrackingError wraps a failed download record. The download itself is not
// blocked by it.
type TrackingError struct {
	MaterialID uuid.UUID
	Err        error
}

func (e *TrackingError) Error() string {
	return fmt.Sprintf("download tracking failed for material %s: %v", e.MaterialID, e.Err)
}

func (e *TrackingError) Unwrap() error {
	return e.Err
}

func (e *TrackingError) Is(target error) bool {
	return target == ErrTrackingFailed
}
