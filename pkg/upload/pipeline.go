// Package upload implements the file upload pipeline: validation, category
// derivation, blob write, metadata insert, and rollback on partial failure.
package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clearwealth/filevault/internal/logger"
	"github.com/clearwealth/filevault/internal/ratelimiter"
	"github.com/clearwealth/filevault/pkg/blob"
	"github.com/clearwealth/filevault/pkg/metadata"
)

// File is one candidate upload.
type File struct {
	// Name is the original filename, kept verbatim for display.
	Name string

	// MimeType is the declared content type. The category is derived
	// from it and the allow-list is checked against it; the pipeline
	// never sniffs content.
	MimeType string

	// SizeBytes is the declared byte length, checked against the size
	// limit and persisted on the record.
	SizeBytes int64

	// Content is the file's bytes.
	Content []byte
}

// Pipeline orchestrates uploads for one owner against a blob store and a
// metadata store.
//
// Per-file step order is fixed: validate, derive category, generate
// storage key, write blob (overwrite disabled), insert metadata record.
// The blob write strictly precedes the metadata insert; the only partial
// state observable to other readers is the intentional blob-then-metadata
// window, closed either by the insert committing or by the compensating
// blob delete.
//
// The pipeline exclusively owns the creation transaction. All
// post-creation mutation and deletion belongs to the registry.
type Pipeline struct {
	blobs   blob.Store
	records metadata.Store
	limits  Limits

	// parallelism bounds concurrent uploads within one batch.
	// 0 means unbounded (up to batch size).
	parallelism int

	// limiter throttles blob writes when set
	limiter *ratelimiter.RateLimiter

	metrics Metrics

	// now is the clock used for storage keys, replaceable in tests
	now func() time.Time
}

// PipelineConfig contains configuration for the upload pipeline.
type PipelineConfig struct {
	// Blobs is the blob store uploads are written to
	Blobs blob.Store

	// Records is the metadata store records are inserted into
	Records metadata.Store

	// Limits configures validation. Zero value means DefaultLimits.
	Limits Limits

	// Parallelism bounds concurrent uploads within a batch (0 = unbounded).
	Parallelism int

	// RateLimiter throttles blob writes across the whole pipeline.
	// Nil means no throttling.
	RateLimiter *ratelimiter.RateLimiter

	// Metrics receives upload observations. Nil disables instrumentation.
	Metrics Metrics
}

// NewPipeline creates an upload pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if cfg.Records == nil {
		return nil, fmt.Errorf("metadata store is required")
	}

	limits := cfg.Limits
	if limits.MaxFiles == 0 && limits.MaxSizeBytes == 0 && len(limits.AllowedTypes) == 0 {
		limits = DefaultLimits()
	}

	if cfg.Parallelism < 0 {
		return nil, fmt.Errorf("parallelism must not be negative, got %d", cfg.Parallelism)
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Pipeline{
		blobs:       cfg.Blobs,
		records:     cfg.Records,
		limits:      limits,
		parallelism: cfg.Parallelism,
		limiter:     cfg.RateLimiter,
		metrics:     metrics,
		now:         time.Now,
	}, nil
}

// Upload runs the pipeline for a single file owned by ownerID.
//
// Progress events are sent to progress (may be nil) as the file moves
// through the lifecycle; see Event for the sequence. The returned error is
// a *metadata.RegistryError describing which stage rejected or failed the
// file.
//
// Rollback: if the metadata insert fails after the blob write succeeded,
// the just-written blob is deleted best-effort. If that compensating
// delete also fails, the orphan blob is logged, not retried, and the
// caller still sees the original insert failure.
func (p *Pipeline) Upload(ctx context.Context, ownerID string, file File, description string, progress chan<- Event) (metadata.FileRecord, error) {
	started := p.now()

	p.emit(ctx, progress, Event{FileName: file.Name, Status: StatusQueued, Percent: 0})

	if verr := p.limits.validateFile(file); verr != nil {
		p.metrics.RecordUpload(string(metadata.CategoryFromMime(file.MimeType)), "rejected", file.SizeBytes, time.Since(started))
		p.emit(ctx, progress, Event{FileName: file.Name, Status: StatusError, Err: verr.Message})
		return metadata.FileRecord{}, verr
	}

	category := metadata.CategoryFromMime(file.MimeType)
	key := storageKey(ownerID, file.Name, p.now())

	logger.Debug("starting upload: name=%s type=%s size=%d category=%s key=%s",
		file.Name, file.MimeType, file.SizeBytes, category, key)

	p.emit(ctx, progress, Event{FileName: file.Name, Status: StatusUploading, Percent: 10})

	// Throttle before the store write, not before validation: rejected
	// files should never consume a token.
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			serr := metadata.NewStoreUnavailable(fmt.Sprintf("upload cancelled: %v", err), file.Name)
			p.emit(ctx, progress, Event{FileName: file.Name, Status: StatusError, Err: serr.Message})
			return metadata.FileRecord{}, serr
		}
	}

	err := p.blobs.Put(ctx, key, file.Content, blob.PutOptions{
		AllowOverwrite: false,
		ContentType:    file.MimeType,
	})
	if err != nil {
		logger.Error("blob write failed: key=%s err=%v", key, err)
		p.metrics.RecordUpload(string(category), "blob_error", file.SizeBytes, time.Since(started))
		serr := metadata.NewStoreUnavailable(fmt.Sprintf("upload failed: %v", err), file.Name)
		p.emit(ctx, progress, Event{FileName: file.Name, Status: StatusError, Err: serr.Message})
		return metadata.FileRecord{}, serr
	}

	p.emit(ctx, progress, Event{FileName: file.Name, Status: StatusProcessing, Percent: 70})

	record, err := p.records.Insert(ctx, metadata.FileRecord{
		OwnerID:     ownerID,
		Name:        file.Name,
		MimeType:    file.MimeType,
		SizeBytes:   file.SizeBytes,
		StorageKey:  string(key),
		Category:    category,
		Description: description,
		Processed:   false,
	})
	if err != nil {
		logger.Error("metadata insert failed, deleting blob: key=%s err=%v", key, err)

		// Compensating action for the blob-then-metadata window.
		if failures, derr := p.blobs.Delete(ctx, []blob.Key{key}); derr != nil || len(failures) > 0 {
			logger.Warn("compensating blob delete failed, orphan blob remains: key=%s err=%v failures=%v",
				key, derr, failures)
		}

		p.metrics.RecordUpload(string(category), "insert_error", file.SizeBytes, time.Since(started))
		ierr := metadata.NewPartialInconsistency(fmt.Sprintf("metadata insert failed: %v", err), file.Name)
		p.emit(ctx, progress, Event{FileName: file.Name, Status: StatusError, Err: ierr.Message})
		return metadata.FileRecord{}, ierr
	}

	p.metrics.RecordUpload(string(category), "completed", file.SizeBytes, time.Since(started))
	p.emit(ctx, progress, Event{FileName: file.Name, Status: StatusCompleted, Percent: 100})

	logger.Info("upload completed: id=%s key=%s", record.ID, key)

	return record, nil
}

// UploadBatch runs the pipeline over a batch of files.
//
// Files beyond the configured per-batch maximum are rejected by validation
// without touching any store. The accepted files run independently,
// concurrently up to the configured parallelism; a failure on one file
// never aborts the others. The result is the set of successfully created
// records in input order; per-file failures are visible only on the
// progress stream.
//
// descriptions pairs with files by index; missing entries mean no
// description.
func (p *Pipeline) UploadBatch(ctx context.Context, ownerID string, files []File, descriptions []string, progress chan<- Event) []metadata.FileRecord {
	accepted := files
	if p.limits.MaxFiles > 0 && len(files) > p.limits.MaxFiles {
		accepted = files[:p.limits.MaxFiles]

		for _, file := range files[p.limits.MaxFiles:] {
			p.emit(ctx, progress, Event{
				FileName: file.Name,
				Status:   StatusError,
				Err:      fmt.Sprintf("batch exceeds maximum of %d files", p.limits.MaxFiles),
			})
		}
	}

	limit := p.parallelism
	if limit == 0 || limit > len(accepted) {
		limit = len(accepted)
	}

	results := make([]*metadata.FileRecord, len(accepted))

	var wg sync.WaitGroup
	sem := make(chan struct{}, max(limit, 1))

	for i, file := range accepted {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, file File) {
			defer wg.Done()
			defer func() { <-sem }()

			description := ""
			if i < len(descriptions) {
				description = descriptions[i]
			}

			record, err := p.Upload(ctx, ownerID, file, description, progress)
			if err != nil {
				// Already reported on the progress stream; siblings
				// keep going.
				logger.Warn("batch upload failed for %s: %v", file.Name, err)
				return
			}

			results[i] = &record
		}(i, file)
	}

	wg.Wait()

	records := make([]metadata.FileRecord, 0, len(accepted))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}

	return records
}

// emit sends a progress event, giving up if the context ends first.
// A nil progress channel disables reporting.
func (p *Pipeline) emit(ctx context.Context, progress chan<- Event, event Event) {
	if progress == nil {
		return
	}

	select {
	case progress <- event:
	case <-ctx.Done():
	}
}
