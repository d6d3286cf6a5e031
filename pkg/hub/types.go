package hub

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Material is one contributed learning resource together with its stored file.
type Material struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Subject      string    `json:"subject"`
	SubjectCode  string    `json:"subject_code,omitempty"`
	Branch       string    `json:"branch"`
	Semester     string    `json:"semester"`
	Year         string    `json:"year"`
	FileType     string    `json:"file_type"`
	FileURL      string    `json:"file_url"`
	FilePath     string    `json:"file_path"`
	FileSize     int64     `json:"file_size"`
	Downloads    int64     `json:"downloads"`
	Rating       float64   `json:"rating"`
	RatingCount  int64     `json:"rating_count"`
	UploaderID   uuid.UUID `json:"uploader_id"`
	UploaderName string    `json:"uploader_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DownloadEvent records that a user downloaded a material. The store keeps at
// most one event per (UserID, MaterialID).
type DownloadEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	MaterialID uuid.UUID `json:"material_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Profile is the display side-table joined into query results.
type Profile struct {
	UserID   uuid.UUID `json:"user_id"`
	FullName string    `json:"full_name"`
}

// Identity is an authenticated caller.
type Identity struct {
	ID          uuid.UUID
	DisplayName string
}

// FilterSet is a conjunction of exact-match constraints. An empty field
// imposes no constraint.
type FilterSet struct {
	Branch   string `json:"branch,omitempty"`
	Semester string `json:"semester,omitempty"`
	Year     string `json:"year,omitempty"`
	Subject  string `json:"subject,omitempty"`
}

// Active returns the number of constrained fields.
func (f FilterSet) Active() int {
	n := 0
	for _, v := range []string{f.Branch, f.Semester, f.Year, f.Subject} {
		if v != "" {
			n++
		}
	}
	return n
}

// IsZero reports whether no field is constrained.
func (f FilterSet) IsZero() bool {
	return f.Active() == 0
}

// SortMode selects the client-side ordering of a fetched sequence.
type SortMode string

const (
	SortRecent  SortMode = "recent"
	SortPopular SortMode = "popular"
	SortRating  SortMode = "rating"
)

// SortModes lists the supported modes in display order.
var SortModes = []SortMode{SortRecent, SortPopular, SortRating}

// IsValid reports whether m is one of the supported modes.
func (m SortMode) IsValid() bool {
	switch m {
	case SortRecent, SortPopular, SortRating:
		return true
	}
	return false
}

// MaterialQuery is the read issued against the Repository.
type MaterialQuery struct {
	Search  string
	Filters FilterSet
}

// Stats are aggregates over a filtered sequence.
type Stats struct {
	Count          int     `json:"count"`
	TotalDownloads int64   `json:"total_downloads"`
	MeanRating     float64 `json:"mean_rating"`
}

// FileUpload is the binary part of a submission.
type FileUpload struct {
	Name     string
	Size     int64
	MimeType string
	Reader   io.Reader
}

// SubmissionDraft is what a contributor submits.
type SubmissionDraft struct {
	Title       string
	Branch      string
	Semester    string
	Year        string
	Subject     string
	SubjectCode string
	Description string
	File        *FileUpload
}

// RecordOutcome is the result of inserting a DownloadEvent.
type RecordOutcome int

const (
	RecordInserted RecordOutcome = iota + 1
	// RecordAlreadyExists means the (user, material) pair was already recorded.
	RecordAlreadyExists
)

func (o RecordOutcome) String() string {
	switch o {
	case RecordInserted:
		return "inserted"
	case RecordAlreadyExists:
		return "already_recorded"
	}
	return "unknown"
}

// PutParams describes a blob write.
type PutParams struct {
	Key      string
	Reader   io.Reader
	Size     int64
	MimeType string
}

// BlobInfo describes a stored blob returned by listings.
type BlobInfo struct {
	Key        string
	Size       int64
	ModifiedAt time.Time
}
