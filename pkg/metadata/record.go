package metadata

import (
	"fmt"
	"strings"
	"time"
)

// Category is a coarse classification of an uploaded file, derived once
// from the declared MIME type at upload time and never revised afterwards.
//
// It is used only for filtering and display. The derivation is a pure
// function of the MIME string (see CategoryFromMime), so two uploads with
// the same declared type always land in the same category.
type Category string

const (
	// CategoryDocument covers PDF, word-processing, and plain-text types.
	CategoryDocument Category = "document"

	// CategoryImage covers any type under the image/ tree.
	CategoryImage Category = "image"

	// CategorySpreadsheet covers spreadsheet, Excel, and CSV types.
	CategorySpreadsheet Category = "spreadsheet"

	// CategoryOther is the fallback for everything else.
	CategoryOther Category = "other"
)

// ParseCategory validates a category tag read back from a store.
//
// Stores persist the category as a string; an unknown tag means the stored
// record is corrupt (or written by an incompatible version) and must be
// surfaced as a parse error rather than silently accepted.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryDocument, CategoryImage, CategorySpreadsheet, CategoryOther:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown file category %q", s)
	}
}

// CategoryFromMime derives the category for a declared MIME type.
//
// Precedence is fixed and order matters, because the loose substring checks
// could otherwise match more than one rule:
//  1. image/ prefix          → image
//  2. spreadsheet|excel|csv  → spreadsheet
//  3. pdf|document|text      → document
//  4. anything else          → other
func CategoryFromMime(mimeType string) Category {
	if strings.HasPrefix(mimeType, "image/") {
		return CategoryImage
	}
	if strings.Contains(mimeType, "spreadsheet") ||
		strings.Contains(mimeType, "excel") ||
		strings.Contains(mimeType, "csv") {
		return CategorySpreadsheet
	}
	if strings.Contains(mimeType, "pdf") ||
		strings.Contains(mimeType, "document") ||
		strings.Contains(mimeType, "text") {
		return CategoryDocument
	}
	return CategoryOther
}

// FileRecord represents one user-owned uploaded artifact.
//
// The record and its blob are created together by the upload pipeline and
// deleted together by the registry. The blob under StorageKey is the file's
// bytes; the record is the authoritative answer to "does this file exist".
type FileRecord struct {
	// ID is the opaque unique identifier, assigned by the metadata store
	// at insert time. Never user supplied.
	ID string `json:"id"`

	// OwnerID identifies the owning principal. Immutable after creation;
	// every mutation and deletion is scoped by it.
	OwnerID string `json:"owner_id"`

	// Name is the original human-readable filename. Display only; it may
	// contain arbitrary characters and is never used as a storage key.
	Name string `json:"name"`

	// MimeType is the content type declared at upload.
	MimeType string `json:"mime_type"`

	// SizeBytes is the byte length at upload time. Immutable.
	SizeBytes int64 `json:"size_bytes"`

	// StorageKey is the opaque key of the file's blob in the blob store.
	// Unique, immutable, generated by the pipeline.
	StorageKey string `json:"storage_key"`

	// Category is derived once from MimeType via CategoryFromMime.
	Category Category `json:"category"`

	// Description is optional free text, mutable post-creation.
	Description string `json:"description"`

	// UploadedAt is set by the metadata store at insert time. Immutable.
	UploadedAt time.Time `json:"uploaded_at"`

	// Processed is reserved for downstream analysis. Defaults to false.
	Processed bool `json:"processed"`
}
