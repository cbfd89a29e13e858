package upload

import (
	"fmt"
	"strings"

	"github.com/clearwealth/filevault/pkg/metadata"
)

// Limits configures upload validation. Files failing any limit are
// rejected before the pipeline touches either store.
type Limits struct {
	// MaxFiles is the maximum number of files accepted per batch.
	MaxFiles int

	// MaxSizeBytes is the maximum size of a single file.
	MaxSizeBytes int64

	// AllowedTypes is the MIME type allow-list. Entries are either exact
	// types ("application/pdf") or wildcard prefixes ("image/*").
	// An empty list allows every type.
	AllowedTypes []string
}

// DefaultLimits returns the stock limits: 10 files per batch, 25 MiB per
// file, and the advisory-document allow-list.
func DefaultLimits() Limits {
	return Limits{
		MaxFiles:     10,
		MaxSizeBytes: 25 * 1024 * 1024,
		AllowedTypes: []string{
			"image/*",
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.ms-excel",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"text/csv",
			"text/plain",
		},
	}
}

// validateFile checks one file against the size and type limits.
func (l Limits) validateFile(file File) *metadata.RegistryError {
	if file.SizeBytes < 0 {
		return metadata.NewValidation("file size must not be negative", file.Name)
	}

	if l.MaxSizeBytes > 0 && file.SizeBytes > l.MaxSizeBytes {
		return metadata.NewValidation(
			fmt.Sprintf("file exceeds maximum size of %d bytes (got %d)", l.MaxSizeBytes, file.SizeBytes),
			file.Name)
	}

	if !l.typeAllowed(file.MimeType) {
		return metadata.NewValidation(
			fmt.Sprintf("file type %q is not allowed", file.MimeType),
			file.Name)
	}

	return nil
}

// typeAllowed reports whether a declared MIME type matches the allow-list.
func (l Limits) typeAllowed(mimeType string) bool {
	if len(l.AllowedTypes) == 0 {
		return true
	}

	for _, allowed := range l.AllowedTypes {
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok {
			if strings.HasPrefix(mimeType, prefix+"/") {
				return true
			}
			continue
		}
		if mimeType == allowed {
			return true
		}
	}

	return false
}
