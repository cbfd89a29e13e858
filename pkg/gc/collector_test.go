package gc

import (
	"context"
	"testing"
	"time"

	"github.com/clearwealth/filevault/pkg/blob"
	blobmemory "github.com/clearwealth/filevault/pkg/blob/memory"
	"github.com/clearwealth/filevault/pkg/metadata"
	metamemory "github.com/clearwealth/filevault/pkg/metadata/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) (*metamemory.MemoryMetadataStore, *blobmemory.MemoryBlobStore) {
	t.Helper()

	records := metamemory.NewMemoryMetadataStore()
	t.Cleanup(func() { _ = records.Close() })

	blobs, err := blobmemory.NewMemoryBlobStore(context.Background())
	require.NoError(t, err)

	return records, blobs
}

// seedBlob writes a blob and, when linked, a record referencing it.
func seedBlob(t *testing.T, records metadata.Store, blobs blob.Store, key string, linked bool) {
	t.Helper()
	ctx := context.Background()

	err := blobs.Put(ctx, blob.Key(key), []byte("content"), blob.PutOptions{ContentType: "application/pdf"})
	require.NoError(t, err)

	if linked {
		_, err = records.Insert(ctx, metadata.FileRecord{
			OwnerID:    "advisor-1",
			Name:       "doc.pdf",
			MimeType:   "application/pdf",
			SizeBytes:  7,
			StorageKey: key,
			Category:   metadata.CategoryDocument,
		})
		require.NoError(t, err)
	}
}

func TestNewCollector_RequiresListableStores(t *testing.T) {
	records, blobs := newStores(t)

	_, err := NewCollector(records, blobs, Config{})
	assert.NoError(t, err)
}

func TestCollect_NoOrphans(t *testing.T) {
	records, blobs := newStores(t)
	seedBlob(t, records, blobs, "advisor-1/1700000000000_a.pdf", true)
	seedBlob(t, records, blobs, "advisor-1/1700000000001_b.pdf", true)

	collector, err := NewCollector(records, blobs, Config{})
	require.NoError(t, err)

	stats, err := collector.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ReferencedCount)
	assert.Equal(t, 2, stats.StoredCount)
	assert.Equal(t, 0, stats.OrphanedCount)
	assert.Equal(t, 0, stats.DeletedCount)
	assert.Equal(t, 2, blobs.Len())
}

func TestCollect_DeletesOrphans(t *testing.T) {
	records, blobs := newStores(t)
	seedBlob(t, records, blobs, "advisor-1/1700000000000_kept.pdf", true)
	seedBlob(t, records, blobs, "advisor-1/1700000000001_orphan.pdf", false)
	seedBlob(t, records, blobs, "advisor-2/1700000000002_orphan.pdf", false)

	collector, err := NewCollector(records, blobs, Config{})
	require.NoError(t, err)

	stats, err := collector.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ReferencedCount)
	assert.Equal(t, 3, stats.StoredCount)
	assert.Equal(t, 2, stats.OrphanedCount)
	assert.Equal(t, 2, stats.DeletedCount)

	// The referenced blob survives
	exists, err := blobs.Exists(context.Background(), "advisor-1/1700000000000_kept.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, blobs.Len())
}

func TestCollect_DryRunDeletesNothing(t *testing.T) {
	records, blobs := newStores(t)
	seedBlob(t, records, blobs, "advisor-1/1700000000000_orphan.pdf", false)

	collector, err := NewCollector(records, blobs, Config{DryRun: true})
	require.NoError(t, err)

	stats, err := collector.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.OrphanedCount)
	assert.Equal(t, 0, stats.DeletedCount)
	assert.Equal(t, 1, blobs.Len())
}

func TestCollect_SmallBatches(t *testing.T) {
	records, blobs := newStores(t)
	keys := []string{
		"advisor-1/1700000000000_a.png",
		"advisor-1/1700000000001_b.png",
		"advisor-1/1700000000002_c.png",
	}
	for _, key := range keys {
		seedBlob(t, records, blobs, key, false)
	}

	collector, err := NewCollector(records, blobs, Config{BatchSize: 2})
	require.NoError(t, err)

	stats, err := collector.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.DeletedCount)
	assert.Equal(t, 0, blobs.Len())
}

func TestStartStop(t *testing.T) {
	records, blobs := newStores(t)

	collector, err := NewCollector(records, blobs, Config{Interval: time.Hour})
	require.NoError(t, err)

	collector.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, collector.Stop(ctx))
}

func TestStats_Summary(t *testing.T) {
	stats := Stats{
		ReferencedCount: 5,
		StoredCount:     7,
		OrphanedCount:   2,
		DeletedCount:    2,
		Duration:        1500 * time.Millisecond,
	}

	assert.Equal(t, "referenced=5 stored=7 orphaned=2 deleted=2 duration=1.5s", stats.Summary())
}
