package hub

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Tracker records downloads, at most once per user and material, and
// refreshes the catalog afterwards so updated counters become visible.
type Tracker struct {
	repo        Repository
	identity    IdentityProvider
	refresher   Refresher
	logger      *slog.Logger
	metrics     MetricsRecorder
	callTimeout time.Duration
	now         func() time.Time
}

// RecordDownload records that the current caller downloaded materialID. A
// repeated download by the same caller succeeds without being counted twice.
// The refresh is issued only after the record resolved.
func (t *Tracker) RecordDownload(ctx context.Context, materialID uuid.UUID) error {
	identity, err := currentIdentity(ctx, t.identity, t.callTimeout, t.logger)
	if err != nil {
		t.metrics.DownloadRecorded("unauthenticated")
		return err
	}
	return t.record(ctx, identity, materialID)
}

func (t *Tracker) record(ctx context.Context, identity *Identity, materialID uuid.UUID) error {
	ev := &DownloadEvent{
		UserID:     identity.ID,
		MaterialID: materialID,
		CreatedAt:  t.now().UTC(),
	}

	recCtx, cancel := withTimeout(ctx, t.callTimeout)
	outcome, err := t.repo.RecordDownload(recCtx, ev)
	cancel()
	if err != nil {
		t.metrics.DownloadRecorded("failed")
		t.logger.Error("Failed to record download", "material_id", materialID, "user_id", identity.ID, "err", err)
		return &TrackingError{MaterialID: materialID, Err: err}
	}

	t.metrics.DownloadRecorded(outcome.String())
	t.logger.Info("Download recorded", "material_id", materialID, "user_id", identity.ID, "outcome", outcome.String())

	if t.refresher != nil {
		if err := t.refresher.Refresh(ctx); err != nil && !errors.Is(err, ErrFetchSuperseded) {
			t.logger.Warn("Catalog refresh after download failed", "material_id", materialID, "err", err)
		}
	}
	return nil
}

// Download resolves the material to hand to the caller and records the
// download. Only authentication and lookup failures stop the download; a
// tracking failure is returned alongside the material as a *TrackingError.
func (t *Tracker) Download(ctx context.Context, materialID uuid.UUID) (*Material, error) {
	identity, err := currentIdentity(ctx, t.identity, t.callTimeout, t.logger)
	if err != nil {
		t.metrics.DownloadRecorded("unauthenticated")
		return nil, err
	}

	getCtx, cancel := withTimeout(ctx, t.callTimeout)
	material, err := t.repo.GetMaterial(getCtx, materialID)
	cancel()
	if err != nil {
		return nil, err
	}

	if err := t.record(ctx, identity, materialID); err != nil {
		return material, err
	}
	return material, nil
}
