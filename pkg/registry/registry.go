// Package registry implements the file registry: read, update, and delete
// operations over file records, plus signed-URL resolution for display and
// download.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clearwealth/filevault/internal/logger"
	"github.com/clearwealth/filevault/pkg/blob"
	"github.com/clearwealth/filevault/pkg/metadata"
)

// DefaultURLTTL is the validity window for signed download URLs.
const DefaultURLTTL = time.Hour

// Registry owns all post-creation operations on file records. Creation
// belongs exclusively to the upload pipeline; everything after - listing,
// description updates, deletion, URL resolution - goes through here.
//
// The blob and metadata stores remain the systems of record. The registry
// never caches their state: List always queries the store, and signed URLs
// are issued fresh on every resolution.
type Registry struct {
	blobs   blob.Store
	records metadata.Store
	urlTTL  time.Duration
	metrics Metrics
}

// RegistryConfig contains configuration for the registry.
type RegistryConfig struct {
	// Blobs is the blob store holding file bytes
	Blobs blob.Store

	// Records is the metadata store holding file records
	Records metadata.Store

	// URLTTL is the signed URL validity window (default: one hour)
	URLTTL time.Duration

	// Metrics receives operation observations. Nil disables instrumentation.
	Metrics Metrics
}

// NewRegistry creates a file registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if cfg.Records == nil {
		return nil, fmt.Errorf("metadata store is required")
	}

	ttl := cfg.URLTTL
	if ttl == 0 {
		ttl = DefaultURLTTL
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Registry{
		blobs:   cfg.Blobs,
		records: cfg.Records,
		urlTTL:  ttl,
		metrics: metrics,
	}, nil
}

// List returns all of the owner's records, newest first.
func (r *Registry) List(ctx context.Context, ownerID string) (_ []metadata.FileRecord, err error) {
	defer func() { r.metrics.RecordOperation("list", statusOf(err)) }()

	records, err := r.records.Query(ctx, ownerID)
	if err != nil {
		return nil, metadata.NewStoreUnavailable(fmt.Sprintf("failed to list files: %v", err), "")
	}
	return records, nil
}

// UpdateDescription replaces the description of the record matching id and
// owner. Last writer wins. Fails with ErrNotFound when no record matches
// both; the store enforces the ownership pairing, a caller-supplied owner
// id alone is never trusted.
func (r *Registry) UpdateDescription(ctx context.Context, id, ownerID, text string) (_ metadata.FileRecord, err error) {
	defer func() { r.metrics.RecordOperation("update_description", statusOf(err)) }()

	record, err := r.records.Update(ctx, id, ownerID, metadata.UpdatePatch{Description: &text})
	if err != nil {
		if errors.Is(err, metadata.ErrRecordNotFound) {
			return metadata.FileRecord{}, metadata.NewNotFound(fmt.Sprintf("file %s not found", id))
		}
		return metadata.FileRecord{}, metadata.NewStoreUnavailable(fmt.Sprintf("failed to update description: %v", err), "")
	}
	return record, nil
}

// MarkProcessed flips the processed flag on the record matching id and
// owner. Same ownership rules as UpdateDescription.
func (r *Registry) MarkProcessed(ctx context.Context, id, ownerID string, processed bool) (_ metadata.FileRecord, err error) {
	defer func() { r.metrics.RecordOperation("mark_processed", statusOf(err)) }()

	record, err := r.records.Update(ctx, id, ownerID, metadata.UpdatePatch{Processed: &processed})
	if err != nil {
		if errors.Is(err, metadata.ErrRecordNotFound) {
			return metadata.FileRecord{}, metadata.NewNotFound(fmt.Sprintf("file %s not found", id))
		}
		return metadata.FileRecord{}, metadata.NewStoreUnavailable(fmt.Sprintf("failed to update processed flag: %v", err), "")
	}
	return record, nil
}

// Delete removes a file: blob first, then the metadata row.
//
// The blob delete is best effort. A blob-store failure is logged and
// swallowed so the metadata delete - the authoritative "file no longer
// exists" signal - still proceeds; the blob may then outlive its record.
// A metadata delete failure is fatal to the call: the record still exists
// and the file must be considered present.
func (r *Registry) Delete(ctx context.Context, id, ownerID string) (err error) {
	defer func() { r.metrics.RecordOperation("delete", statusOf(err)) }()

	records, err := r.records.Query(ctx, ownerID)
	if err != nil {
		return metadata.NewStoreUnavailable(fmt.Sprintf("failed to look up file: %v", err), "")
	}

	var target *metadata.FileRecord
	for i := range records {
		if records[i].ID == id {
			target = &records[i]
			break
		}
	}
	if target == nil {
		return metadata.NewNotFound(fmt.Sprintf("file %s not found", id))
	}

	key := blob.Key(target.StorageKey)
	if failures, derr := r.blobs.Delete(ctx, []blob.Key{key}); derr != nil || len(failures) > 0 {
		logger.Warn("blob delete failed, proceeding with metadata delete: key=%s err=%v failures=%v",
			key, derr, failures)
	}

	if err := r.records.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, metadata.ErrRecordNotFound) {
			return metadata.NewNotFound(fmt.Sprintf("file %s not found", id))
		}
		return metadata.NewStoreUnavailable(fmt.Sprintf("failed to delete file record: %v", err), "")
	}

	logger.Info("file deleted: id=%s key=%s", id, key)

	return nil
}

// ResolveDownloadURL issues a time-limited signed URL for a blob.
//
// The URL is never cached; callers re-resolve after expiry. There is no
// retry policy - the blob store's own failure mode passes through.
func (r *Registry) ResolveDownloadURL(ctx context.Context, storageKey string) (_ string, err error) {
	defer func() { r.metrics.RecordOperation("resolve_url", statusOf(err)) }()

	url, err := r.blobs.SignedURL(ctx, blob.Key(storageKey), r.urlTTL)
	if err != nil {
		return "", metadata.NewStoreUnavailable(fmt.Sprintf("failed to resolve download url: %v", err), "")
	}
	return url, nil
}
