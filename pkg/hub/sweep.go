package hub

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SweepReport summarizes one sweep.
type SweepReport struct {
	Scanned    int      `json:"scanned"`
	Referenced int      `json:"referenced"`
	TooRecent  int      `json:"too_recent"`
	Deleted    []string `json:"deleted"`
	Failed     []string `json:"failed"`
}

// Sweeper reclaims orphaned blobs: stored files that no material references.
// Blobs younger than the grace period are skipped because their metadata
// write may still be in flight.
type Sweeper struct {
	repo    Repository
	blobs   BlobStore
	grace   time.Duration
	logger  *slog.Logger
	metrics MetricsRecorder
	now     func() time.Time
}

// Sweep deletes unreferenced blobs under prefix. With dryRun set nothing is
// deleted and Deleted lists what would have been removed.
func (s *Sweeper) Sweep(ctx context.Context, prefix string, dryRun bool) (*SweepReport, error) {
	referenced, err := s.repo.ListFilePaths(ctx)
	if err != nil {
		return nil, &CatalogUnavailableError{Err: err}
	}
	blobs, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}

	report := &SweepReport{Scanned: len(blobs)}
	cutoff := s.now().Add(-s.grace)
	for _, b := range blobs {
		if _, ok := referenced[b.Key]; ok {
			report.Referenced++
			continue
		}
		if !b.ModifiedAt.IsZero() && b.ModifiedAt.After(cutoff) {
			report.TooRecent++
			continue
		}
		if dryRun {
			report.Deleted = append(report.Deleted, b.Key)
			continue
		}
		if err := s.blobs.Delete(ctx, b.Key); err != nil {
			s.logger.Error("Failed to delete orphaned blob", "path", b.Key, "err", err)
			report.Failed = append(report.Failed, b.Key)
			continue
		}
		s.metrics.BlobSwept()
		report.Deleted = append(report.Deleted, b.Key)
	}

	s.logger.Info("Orphan sweep finished",
		"scanned", report.Scanned, "deleted", len(report.Deleted), "failed", len(report.Failed), "dry_run", dryRun)
	return report, nil
}
