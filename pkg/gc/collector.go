// Package gc provides garbage collection for orphaned blobs.
//
// The upload pipeline writes the blob before the metadata record, and the
// registry deletes the blob best-effort before the record. Both windows can
// leave a blob with no record pointing at it: a crash between the two
// writes, a failed compensating delete, or a swallowed blob-store error
// during removal. The collector finds those orphans by diffing the blob
// store's keys against the keys the metadata store still references, and
// deletes the difference.
package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/clearwealth/filevault/internal/logger"
	"github.com/clearwealth/filevault/pkg/blob"
	"github.com/clearwealth/filevault/pkg/metadata"
)

// Collector performs garbage collection on a blob store.
//
// It can run one-shot via Collect or periodically in the background via
// Start/Stop.
//
// Thread Safety: safe for concurrent use.
type Collector struct {
	records metadata.Store
	blobs   blob.Store
	config  Config
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Interval is how often the background worker runs (default: 24h)
	Interval time.Duration

	// BatchSize is how many orphaned blobs to delete per batch
	// (default: 1000, the DeleteObjects limit)
	BatchSize int

	// DryRun logs what would be deleted without deleting anything
	DryRun bool
}

// Stats describes one collection run.
type Stats struct {
	// ReferencedCount is the number of storage keys metadata still references
	ReferencedCount int

	// StoredCount is the number of blobs found in the blob store
	StoredCount int

	// OrphanedCount is the number of blobs with no referencing record
	OrphanedCount int

	// DeletedCount is the number of orphans actually deleted (0 on dry run)
	DeletedCount int

	// Duration is how long the run took
	Duration time.Duration
}

// Summary returns a one-line human-readable description of the run.
func (s Stats) Summary() string {
	return fmt.Sprintf("referenced=%d stored=%d orphaned=%d deleted=%d duration=%s",
		s.ReferencedCount, s.StoredCount, s.OrphanedCount, s.DeletedCount, s.Duration.Round(time.Millisecond))
}

// NewCollector creates a garbage collector over the given stores.
//
// The blob store must implement blob.Lister and the metadata store must
// implement metadata.KeyLister; without both capabilities orphans cannot
// be identified, and construction fails.
func NewCollector(records metadata.Store, blobs blob.Store, config Config) (*Collector, error) {
	if _, ok := blobs.(blob.Lister); !ok {
		return nil, fmt.Errorf("blob store does not support key listing")
	}
	if _, ok := records.(metadata.KeyLister); !ok {
		return nil, fmt.Errorf("metadata store does not support key listing")
	}

	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.BatchSize == 0 {
		config.BatchSize = 1000
	}

	return &Collector{
		records: records,
		blobs:   blobs,
		config:  config,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins background collection at the configured interval. Call Stop
// to shut it down.
func (c *Collector) Start() {
	logger.Info("starting orphan collector: interval=%s batch_size=%d dry_run=%v",
		c.config.Interval, c.config.BatchSize, c.config.DryRun)

	go c.worker()
}

// Stop stops the background worker and waits for it to finish, up to the
// context deadline. Safe to call only after Start.
func (c *Collector) Stop(ctx context.Context) error {
	close(c.stopCh)

	select {
	case <-c.doneCh:
		return nil
	case <-ctx.Done():
		logger.Warn("orphan collector shutdown timeout")
		return ctx.Err()
	}
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.Collect(ctx)
			cancel()

			if err != nil {
				logger.Error("orphan collection failed: %v", err)
			} else {
				logger.Info("orphan collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// Collect performs a single collection run:
//
//  1. Gather the storage keys metadata still references
//  2. List the keys present in the blob store
//  3. Orphaned = stored - referenced
//  4. Batch delete the orphans (skipped on dry run)
//
// A blob written by an upload whose record insert has not committed yet
// looks orphaned for a moment; the collector is meant to run far from any
// in-flight upload (its default interval is daily), so that window is
// accepted rather than tracked.
func (c *Collector) Collect(ctx context.Context) (Stats, error) {
	started := time.Now()
	stats := Stats{}

	referenced, err := c.records.(metadata.KeyLister).StorageKeys(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list referenced keys: %w", err)
	}
	stats.ReferencedCount = len(referenced)

	referencedSet := make(map[blob.Key]struct{}, len(referenced))
	for _, key := range referenced {
		referencedSet[blob.Key(key)] = struct{}{}
	}

	stored, err := c.blobs.(blob.Lister).List(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list stored blobs: %w", err)
	}
	stats.StoredCount = len(stored)

	var orphaned []blob.Key
	for _, key := range stored {
		if _, ok := referencedSet[key]; !ok {
			orphaned = append(orphaned, key)
		}
	}
	stats.OrphanedCount = len(orphaned)

	if len(orphaned) == 0 {
		stats.Duration = time.Since(started)
		return stats, nil
	}

	if c.config.DryRun {
		logger.Info("dry run: would delete %d orphaned blob(s)", len(orphaned))
		for i, key := range orphaned {
			if i >= 10 {
				logger.Info("  ... and %d more", len(orphaned)-10)
				break
			}
			logger.Info("  - %s", key)
		}
		stats.Duration = time.Since(started)
		return stats, nil
	}

	for i := 0; i < len(orphaned); i += c.config.BatchSize {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(started)
			return stats, err
		}

		end := i + c.config.BatchSize
		if end > len(orphaned) {
			end = len(orphaned)
		}
		batch := orphaned[i:end]

		failures, err := c.blobs.Delete(ctx, batch)
		if err != nil {
			stats.Duration = time.Since(started)
			return stats, fmt.Errorf("failed to delete orphaned blobs: %w", err)
		}

		stats.DeletedCount += len(batch) - len(failures)
		for key, ferr := range failures {
			logger.Warn("failed to delete orphaned blob %s: %v", key, ferr)
		}
	}

	stats.Duration = time.Since(started)
	return stats, nil
}
