package hub

import (
	"path"
	"slices"
	"strconv"
	"strings"
)

const (
	// DefaultMaxUploadSize matches the 10MB limit advertised by the upload form.
	DefaultMaxUploadSize int64 = 10 << 20

	// FirstYear is the oldest academic year offered.
	FirstYear         = 2021
	DefaultLatestYear = 2024
	unknownFileType   = "unknown"
	defaultMimeType   = "application/octet-stream"
)

// Catalog holds the fixed enumerations that submissions and filters are
// validated against.
type Catalog struct {
	Branches         []string `json:"branches"`
	Semesters        []string `json:"semesters"`
	Years            []string `json:"years"`
	Subjects         []string `json:"subjects"`
	AllowedFileTypes []string `json:"allowed_file_types,omitempty"` // empty accepts any type
	MaxUploadSize    int64    `json:"max_upload_size"`
}

// DefaultBranches are the branches offered by the catalog.
var DefaultBranches = []string{
	"Computer Science",
	"Information Technology",
	"Electronics & Communication",
	"Mechanical Engineering",
	"Civil Engineering",
	"Electrical Engineering",
}

// DefaultSubjects is the suggested subject list. Subjects are free text.
var DefaultSubjects = []string{
	"Data Structures",
	"Algorithms",
	"Database Management",
	"Computer Networks",
	"Operating Systems",
	"Software Engineering",
}

// NewCatalog builds the default catalog with years 2021 through latestYear,
// newest first.
func NewCatalog(latestYear int) Catalog {
	if latestYear < FirstYear {
		latestYear = DefaultLatestYear
	}
	years := make([]string, 0, latestYear-FirstYear+1)
	for y := latestYear; y >= FirstYear; y-- {
		years = append(years, strconv.Itoa(y))
	}
	semesters := make([]string, 0, 8)
	for s := 1; s <= 8; s++ {
		semesters = append(semesters, strconv.Itoa(s))
	}
	return Catalog{
		Branches:      slices.Clone(DefaultBranches),
		Semesters:     semesters,
		Years:         years,
		Subjects:      slices.Clone(DefaultSubjects),
		MaxUploadSize: DefaultMaxUploadSize,
	}
}

// DefaultCatalog returns NewCatalog(DefaultLatestYear).
func DefaultCatalog() Catalog {
	return NewCatalog(DefaultLatestYear)
}

// ValidateFilters rejects filter values outside the fixed enumerations.
// Subject is free text and is not checked.
func (c Catalog) ValidateFilters(f FilterSet) error {
	var invalid []string
	if f.Branch != "" && !slices.Contains(c.Branches, f.Branch) {
		invalid = append(invalid, "branch")
	}
	if f.Semester != "" && !slices.Contains(c.Semesters, f.Semester) {
		invalid = append(invalid, "semester")
	}
	if f.Year != "" && !slices.Contains(c.Years, f.Year) {
		invalid = append(invalid, "year")
	}
	if len(invalid) > 0 {
		return &ValidationError{Invalid: invalid}
	}
	return nil
}

// FileType derives the stored file type from an uploaded file name: the
// lower-cased text after the last '.', or "unknown" when there is none.
func FileType(fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return unknownFileType
	}
	return strings.ToLower(base[i+1:])
}
