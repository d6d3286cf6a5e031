package hub

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/resource-hub/pkg/hub/objectkey"
)

// Pipeline turns a submission into a stored blob plus a material record.
// The blob is always written first so no record can reference a missing file.
type Pipeline struct {
	repo        Repository
	blobs       BlobStore
	identity    IdentityProvider
	catalog     Catalog
	keys        objectkey.Generator
	logger      *slog.Logger
	metrics     MetricsRecorder
	callTimeout time.Duration
	now         func() time.Time
}

// Submit validates the draft, stores its file and inserts the material.
// Identical drafts create distinct materials.
func (p *Pipeline) Submit(ctx context.Context, draft SubmissionDraft) (uuid.UUID, error) {
	if err := p.Validate(draft); err != nil {
		p.metrics.SubmissionCompleted("invalid")
		return uuid.Nil, err
	}

	identity, err := currentIdentity(ctx, p.identity, p.callTimeout, p.logger)
	if err != nil {
		p.metrics.SubmissionCompleted("unauthenticated")
		return uuid.Nil, err
	}

	fileType := FileType(draft.File.Name)
	key := p.keys.GenerateKey(identity.ID, draft.File.Name, p.now())

	mimeType := draft.File.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	counted := &countingReader{r: draft.File.Reader}

	putCtx, cancel := withTimeout(ctx, p.callTimeout)
	url, err := p.blobs.Put(putCtx, PutParams{
		Key:      key,
		Reader:   counted,
		Size:     draft.File.Size,
		MimeType: mimeType,
	})
	cancel()
	if err != nil {
		p.metrics.SubmissionCompleted("blob_failed")
		p.logger.Error("Failed to store material file", "path", key, "uploader_id", identity.ID, "err", err)
		return uuid.Nil, &BlobWriteError{Path: key, Err: err}
	}

	size := draft.File.Size
	if size <= 0 {
		size = counted.n
	}

	material := &Material{
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		Subject:     strings.TrimSpace(draft.Subject),
		SubjectCode: strings.TrimSpace(draft.SubjectCode),
		Branch:      draft.Branch,
		Semester:    draft.Semester,
		Year:        draft.Year,
		FileType:    fileType,
		FileURL:     url,
		FilePath:    key,
		FileSize:    size,
		UploaderID:  identity.ID,
	}

	insertCtx, cancel := withTimeout(ctx, p.callTimeout)
	err = p.repo.CreateMaterial(insertCtx, material)
	cancel()
	if err != nil {
		p.metrics.SubmissionCompleted("metadata_failed")
		return uuid.Nil, p.compensate(ctx, key, err)
	}

	p.metrics.SubmissionCompleted("ok")
	p.logger.Info(MessageUploadSuccess, "material_id", material.ID, "path", key, "size", size, "uploader_id", identity.ID)
	return material.ID, nil
}

// Validate checks a draft without touching any store.
func (p *Pipeline) Validate(draft SubmissionDraft) error {
	verr := &ValidationError{}
	if draft.File == nil || draft.File.Reader == nil || strings.TrimSpace(draft.File.Name) == "" {
		verr.MissingFields = append(verr.MissingFields, "file")
	}
	if strings.TrimSpace(draft.Title) == "" {
		verr.MissingFields = append(verr.MissingFields, "title")
	}
	if strings.TrimSpace(draft.Branch) == "" {
		verr.MissingFields = append(verr.MissingFields, "branch")
	}
	if strings.TrimSpace(draft.Semester) == "" {
		verr.MissingFields = append(verr.MissingFields, "semester")
	}

	if draft.Branch != "" && !slices.Contains(p.catalog.Branches, draft.Branch) {
		verr.Invalid = append(verr.Invalid, "branch")
	}
	if draft.Semester != "" && !slices.Contains(p.catalog.Semesters, draft.Semester) {
		verr.Invalid = append(verr.Invalid, "semester")
	}
	if draft.Year != "" && !slices.Contains(p.catalog.Years, draft.Year) {
		verr.Invalid = append(verr.Invalid, "year")
	}
	if draft.File != nil && draft.File.Name != "" {
		if len(p.catalog.AllowedFileTypes) > 0 && !slices.Contains(p.catalog.AllowedFileTypes, FileType(draft.File.Name)) {
			verr.Invalid = append(verr.Invalid, "file_type")
		}
		if draft.File.Size < 0 || (p.catalog.MaxUploadSize > 0 && draft.File.Size > p.catalog.MaxUploadSize) {
			verr.Invalid = append(verr.Invalid, "file_size")
		}
	}

	if len(verr.MissingFields) > 0 || len(verr.Invalid) > 0 {
		return verr
	}
	return nil
}

// compensate removes the blob left behind by a failed metadata write. The
// delete runs on a fresh context so a cancelled request still cleans up.
func (p *Pipeline) compensate(ctx context.Context, key string, cause error) error {
	merr := &MetadataWriteError{OrphanedBlobPath: key, Err: cause}

	delCtx, cancel := withTimeout(context.WithoutCancel(ctx), p.callTimeout)
	defer cancel()
	if err := p.blobs.Delete(delCtx, key); err != nil {
		merr.CompensationErr = err
		p.metrics.BlobOrphaned()
		p.logger.Error("Orphaned blob left after failed metadata write",
			"path", key, "insert_err", cause, "delete_err", err)
		return merr
	}

	p.logger.Warn("Removed blob after failed metadata write", "path", key, "err", cause)
	return merr
}

// countingReader records how many bytes the blob store consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += int64(n)
	return n, err
}
