package hub

import (
	"cmp"
	"slices"
	"strings"
)

// CleanSearch trims a search string. Inner whitespace is significant.
func CleanSearch(term string) string {
	return strings.TrimSpace(term)
}

// Match reports whether m satisfies every set field of f by exact equality
// and, when search is non-empty, contains search case-insensitively in its
// title, description or subject.
func Match(m *Material, search string, f FilterSet) bool {
	if f.Branch != "" && m.Branch != f.Branch {
		return false
	}
	if f.Semester != "" && m.Semester != f.Semester {
		return false
	}
	if f.Year != "" && m.Year != f.Year {
		return false
	}
	if f.Subject != "" && m.Subject != f.Subject {
		return false
	}
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, field := range []string{m.Title, m.Description, m.Subject} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// SortMaterials orders ms in place, descending by the key of mode. The sort
// is stable so equal keys keep the store order.
func SortMaterials(ms []*Material, mode SortMode) {
	switch mode {
	case SortPopular:
		slices.SortStableFunc(ms, func(a, b *Material) int {
			return cmp.Compare(b.Downloads, a.Downloads)
		})
	case SortRating:
		slices.SortStableFunc(ms, func(a, b *Material) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
	default:
		slices.SortStableFunc(ms, func(a, b *Material) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
}

// ComputeStats aggregates a sequence. MeanRating is 0 for an empty sequence.
func ComputeStats(ms []*Material) Stats {
	st := Stats{Count: len(ms)}
	if len(ms) == 0 {
		return st
	}
	var ratings float64
	for _, m := range ms {
		st.TotalDownloads += m.Downloads
		ratings += m.Rating
	}
	st.MeanRating = ratings / float64(len(ms))
	return st
}
