package registry

import (
	"testing"

	"github.com/clearwealth/filevault/pkg/metadata"
	"github.com/stretchr/testify/assert"
)

func sampleRecords() []metadata.FileRecord {
	return []metadata.FileRecord{
		{ID: "1", Name: "Tax Return 2025.pdf", Category: metadata.CategoryDocument, SizeBytes: 400, Description: "federal return"},
		{ID: "2", Name: "receipt.png", Category: metadata.CategoryImage, SizeBytes: 100},
		{ID: "3", Name: "budget.csv", Category: metadata.CategorySpreadsheet, SizeBytes: 50, Description: "household budget"},
		{ID: "4", Name: "scan.png", Category: metadata.CategoryImage, SizeBytes: 250, Description: "receipt scan"},
	}
}

func TestFilterByCategory(t *testing.T) {
	records := sampleRecords()

	images := FilterByCategory(records, metadata.CategoryImage)
	assert.Len(t, images, 2)

	docs := FilterByCategory(records, metadata.CategoryDocument)
	assert.Len(t, docs, 1)
	assert.Equal(t, "1", docs[0].ID)

	assert.Empty(t, FilterByCategory(records, metadata.CategoryOther))
}

func TestTotalSizeAndCount(t *testing.T) {
	records := sampleRecords()

	assert.Equal(t, int64(800), TotalSize(records))
	assert.Equal(t, 4, Count(records))

	assert.Equal(t, int64(0), TotalSize(nil))
	assert.Equal(t, 0, Count(nil))
}

func TestSearch_CaseInsensitiveOverNameAndDescription(t *testing.T) {
	records := sampleRecords()

	// Matches name case-insensitively
	got := Search(records, "TAX", CategoryAll)
	assert.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	// Matches description too: "receipt" hits receipt.png by name and
	// scan.png by description
	got = Search(records, "receipt", CategoryAll)
	assert.Len(t, got, 2)

	// Empty term matches everything
	assert.Len(t, Search(records, "", CategoryAll), 4)
}

func TestSearch_CategoryFilter(t *testing.T) {
	records := sampleRecords()

	got := Search(records, "receipt", "image")
	assert.Len(t, got, 2)

	got = Search(records, "receipt", "document")
	assert.Empty(t, got)

	// "all" is a wildcard
	got = Search(records, "", "all")
	assert.Len(t, got, 4)
}
