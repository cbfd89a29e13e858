package metadata

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned by Store implementations when an update or
// delete matches no record for the given id and owner pair. Service layers
// translate it into a RegistryError with ErrNotFound.
var ErrRecordNotFound = errors.New("file record not found")

// UpdatePatch describes a partial mutation of a FileRecord.
//
// Only non-nil fields are applied. ID, OwnerID, Name, MimeType, SizeBytes,
// StorageKey, Category, and UploadedAt are immutable and therefore have no
// patch fields.
type UpdatePatch struct {
	// Description replaces the record's description when non-nil.
	// Last writer wins; there is no merge.
	Description *string

	// Processed replaces the record's processed flag when non-nil.
	Processed *bool
}

// Store is the metadata store: a table of FileRecords keyed by owner and id.
//
// Implementations are external systems of record (embedded BadgerDB,
// in-memory for tests). Callers never cache store state beyond the current
// in-memory view returned by Query.
//
// Ownership Enforcement:
// Update and Delete take both id and owner and match only records where
// both agree. A caller-supplied owner id alone is never trusted; the store
// itself enforces the pairing and reports ErrRecordNotFound on mismatch,
// so a foreign id and a nonexistent id are indistinguishable.
//
// Thread Safety:
// All implementations are safe for concurrent use by multiple goroutines.
type Store interface {
	// Insert persists a new record and returns it with ID and UploadedAt
	// assigned by the store. The caller fills every other field.
	Insert(ctx context.Context, record FileRecord) (FileRecord, error)

	// Update applies a patch to the record matching id and owner and
	// returns the updated record. Returns ErrRecordNotFound when no
	// record matches both.
	Update(ctx context.Context, id, ownerID string, patch UpdatePatch) (FileRecord, error)

	// Delete removes the record matching id and owner.
	// Returns ErrRecordNotFound when no record matches both.
	Delete(ctx context.Context, id, ownerID string) error

	// Query returns all records for the owner ordered by UploadedAt
	// descending (newest first).
	Query(ctx context.Context, ownerID string) ([]FileRecord, error)

	// Close releases store resources.
	Close() error
}

// KeyLister is an optional Store capability: enumerating every storage key
// referenced by any record, across all owners. The orphan collector
// requires it to decide which blobs are still live.
type KeyLister interface {
	// StorageKeys returns the storage keys of all records.
	// Order is unspecified.
	StorageKeys(ctx context.Context) ([]string, error)
}
