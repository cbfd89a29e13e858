package blob

import (
	"context"
	"time"
)

// Key identifies one blob in a Store.
//
// Keys are opaque to the store but are generated by the upload pipeline as
// URL-safe paths of the form "<ownerID>/<timestamp>_<sanitizedName>", so a
// bucket listing mirrors the per-owner layout and stays human-inspectable.
type Key string

// PutOptions controls blob write behavior.
type PutOptions struct {
	// AllowOverwrite permits replacing an existing blob under the same
	// key. The upload pipeline always disables it: storage keys are
	// collision-free by construction, so an existing key means a bug or
	// a concurrent writer, and the write must be refused.
	AllowOverwrite bool

	// ContentType is the declared MIME type stored alongside the blob,
	// returned as Content-Type when the blob is fetched via a signed URL.
	ContentType string
}

// Store provides binary blob storage addressed by key.
//
// This interface abstracts the underlying storage (S3-compatible object
// storage in production, memory in tests) behind the three capabilities the
// file vault consumes: upload, batch delete, and time-limited signed-URL
// issuance.
//
// The store manages only raw bytes. File records (ownership, category,
// description) live in the metadata store; the two are coordinated by the
// upload pipeline and registry, never by the stores themselves.
//
// Thread Safety:
// All implementations are safe for concurrent use by multiple goroutines.
// Concurrent writes to distinct keys never interfere; concurrent writes to
// the same key are refused unless AllowOverwrite is set.
type Store interface {
	// Put writes data under the given key. With AllowOverwrite disabled
	// it returns ErrKeyExists when the key is already present and leaves
	// the existing blob untouched.
	Put(ctx context.Context, key Key, data []byte, opts PutOptions) error

	// Exists reports whether a blob is stored under the key.
	Exists(ctx context.Context, key Key) (bool, error)

	// Delete removes the given blobs. Deleting an absent key is not an
	// error (idempotent). Per-key failures are reported in the returned
	// map; the error is reserved for failures of the whole call.
	Delete(ctx context.Context, keys []Key) (map[Key]error, error)

	// SignedURL returns a pre-authorized, time-limited URL granting read
	// access to the blob without separate authentication. The URL is
	// never cached: each call issues a fresh one, and two URLs for the
	// same key may differ while both resolving to the same bytes within
	// their validity window.
	SignedURL(ctx context.Context, key Key, ttl time.Duration) (string, error)
}

// Lister is an optional Store capability: enumerating every stored key.
//
// The orphan collector requires it to diff stored blobs against the keys
// the metadata store still references. Stores that cannot enumerate keys
// simply don't implement it and are not collectable.
type Lister interface {
	// List returns every key currently stored. Order is unspecified.
	List(ctx context.Context) ([]Key, error)
}
