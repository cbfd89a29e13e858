package registry

import (
	"strings"

	"github.com/clearwealth/filevault/pkg/metadata"
)

// Derived views are computed from an in-memory record slice (typically a
// List result), not from separate store queries. They never mutate the
// input.

// CategoryAll is the wildcard for Search's category filter.
const CategoryAll = "all"

// FilterByCategory returns the records in the given category.
func FilterByCategory(records []metadata.FileRecord, category metadata.Category) []metadata.FileRecord {
	var out []metadata.FileRecord
	for _, record := range records {
		if record.Category == category {
			out = append(out, record)
		}
	}
	return out
}

// TotalSize returns the sum of SizeBytes over the records.
func TotalSize(records []metadata.FileRecord) int64 {
	var total int64
	for _, record := range records {
		total += record.SizeBytes
	}
	return total
}

// Count returns the number of records.
func Count(records []metadata.FileRecord) int {
	return len(records)
}

// Search filters records by a case-insensitive substring match over name
// and description, combined with a category filter. An empty term matches
// everything; category CategoryAll ("all") is a wildcard.
func Search(records []metadata.FileRecord, term, category string) []metadata.FileRecord {
	needle := strings.ToLower(term)

	var out []metadata.FileRecord
	for _, record := range records {
		matchesTerm := needle == "" ||
			strings.Contains(strings.ToLower(record.Name), needle) ||
			strings.Contains(strings.ToLower(record.Description), needle)

		matchesCategory := category == CategoryAll || category == "" ||
			string(record.Category) == category

		if matchesTerm && matchesCategory {
			out = append(out, record)
		}
	}
	return out
}
