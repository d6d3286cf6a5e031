package hub_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tendant/resource-hub/pkg/hub"
)

func TestNotify_DistinctPerOutcome(t *testing.T) {
	outcomes := map[string]error{
		"success":        nil,
		"validation":     &hub.ValidationError{MissingFields: []string{"branch"}},
		"authentication": fmt.Errorf("%w: token expired", hub.ErrAuthenticationRequired),
		"blob write":     &hub.BlobWriteError{Path: "u/1.pdf", Err: errors.New("denied")},
		"metadata write": &hub.MetadataWriteError{OrphanedBlobPath: "u/1.pdf", Err: errors.New("insert")},
		"catalog":        &hub.CatalogUnavailableError{Err: context.DeadlineExceeded},
		"tracking":       &hub.TrackingError{MaterialID: uuid.New(), Err: errors.New("deadlock")},
		"not found":      hub.ErrMaterialNotFound,
		"other":          errors.New("boom"),
	}

	seen := make(map[string]string)
	for name, err := range outcomes {
		n := hub.Notify(err)
		assert.NotEmpty(t, n.Description, name)
		if prev, ok := seen[n.Description]; ok {
			t.Errorf("%s and %s share the message %q", name, prev, n.Description)
		}
		seen[n.Description] = name
	}

	assert.Equal(t, hub.MessageUploadSuccess, hub.Notify(nil).Description)
	assert.False(t, hub.Notify(nil).Destructive)
	assert.False(t, hub.Notify(outcomes["tracking"]).Destructive)
	assert.True(t, hub.Notify(outcomes["metadata write"]).Destructive)
}

func TestNotify_ValidationNamesFields(t *testing.T) {
	n := hub.Notify(&hub.ValidationError{MissingFields: []string{"title", "branch"}, Invalid: []string{"year"}})
	assert.Equal(t, "Please provide: title, branch. Please check: year.", n.Description)
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("submit: %w", &hub.BlobWriteError{Path: "a", Err: cause})

	assert.ErrorIs(t, err, hub.ErrBlobWriteFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, hub.ErrMetadataWriteFailed)

	merr := &hub.MetadataWriteError{OrphanedBlobPath: "a", Err: cause, CompensationErr: errors.New("denied")}
	assert.Contains(t, merr.Error(), "orphaned blob a kept")
	assert.True(t, merr.Orphaned())
}
