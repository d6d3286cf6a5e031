package hub

import (
	"context"
	"time"
)

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

// NewNoopMetrics creates a metrics recorder that records nothing
func NewNoopMetrics() MetricsRecorder {
	return NoopMetrics{}
}

func (NoopMetrics) FetchCompleted(string, time.Duration) {}
func (NoopMetrics) SubmissionCompleted(string)           {}
func (NoopMetrics) DownloadRecorded(string)              {}
func (NoopMetrics) BlobOrphaned()                        {}
func (NoopMetrics) BlobSwept()                           {}

// StaticIdentity is an IdentityProvider that always returns the same caller.
// A nil Identity makes every caller anonymous.
type StaticIdentity struct {
	Identity *Identity
}

func (s StaticIdentity) CurrentIdentity(ctx context.Context) (*Identity, error) {
	if s.Identity == nil {
		return nil, nil
	}
	id := *s.Identity
	return &id, nil
}

// Anonymous is an IdentityProvider with no caller.
var Anonymous IdentityProvider = StaticIdentity{}
