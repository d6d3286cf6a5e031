package hub

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the Metadata Store holding materials, download events and
// uploader profiles.
type Repository interface {
	// QueryMaterials returns the materials matching q, newest first, each
	// joined with its uploader's display name.
	QueryMaterials(ctx context.Context, q MaterialQuery) ([]*Material, error)

	// GetMaterial returns ErrMaterialNotFound when id does not exist.
	GetMaterial(ctx context.Context, id uuid.UUID) (*Material, error)

	// CreateMaterial inserts m and assigns its ID and timestamps.
	CreateMaterial(ctx context.Context, m *Material) error

	// RecordDownload inserts ev and bumps the material's download counter.
	// A duplicate (user, material) pair yields RecordAlreadyExists, not an error.
	RecordDownload(ctx context.Context, ev *DownloadEvent) (RecordOutcome, error)

	// UpsertProfile sets the display name joined into query results.
	UpsertProfile(ctx context.Context, p *Profile) error

	// ListFilePaths returns every blob path referenced by a material.
	ListFilePaths(ctx context.Context) (map[string]struct{}, error)
}

// BlobStore is object storage addressed by key.
type BlobStore interface {
	// Put stores the content and returns a URL it can be retrieved from.
	Put(ctx context.Context, params PutParams) (string, error)

	// Delete removes a blob. Used for compensation and sweeps.
	Delete(ctx context.Context, key string) error

	// List returns the blobs whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// IdentityProvider yields the current caller. A nil identity with a nil
// error means the caller is anonymous.
type IdentityProvider interface {
	CurrentIdentity(ctx context.Context) (*Identity, error)
}

// Refresher re-runs the last catalog fetch.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function to a Refresher.
type RefreshFunc func(ctx context.Context) error

func (f RefreshFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// MetricsRecorder receives outcome counters from the core components.
type MetricsRecorder interface {
	FetchCompleted(outcome string, took time.Duration)
	SubmissionCompleted(outcome string)
	DownloadRecorded(outcome string)
	BlobOrphaned()
	BlobSwept()
}
