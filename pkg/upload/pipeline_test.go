package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clearwealth/filevault/pkg/blob"
	blobmemory "github.com/clearwealth/filevault/pkg/blob/memory"
	"github.com/clearwealth/filevault/pkg/metadata"
	metamemory "github.com/clearwealth/filevault/pkg/metadata/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyBlobStore wraps a real store and fails selected operations, to
// exercise the pipeline's partial-failure paths.
type flakyBlobStore struct {
	blob.Store
	failPut    bool
	failDelete bool
	deleted    []blob.Key
}

func (f *flakyBlobStore) Put(ctx context.Context, key blob.Key, data []byte, opts blob.PutOptions) error {
	if f.failPut {
		return errors.New("injected put failure")
	}
	return f.Store.Put(ctx, key, data, opts)
}

func (f *flakyBlobStore) Delete(ctx context.Context, keys []blob.Key) (map[blob.Key]error, error) {
	f.deleted = append(f.deleted, keys...)
	if f.failDelete {
		return nil, errors.New("injected delete failure")
	}
	return f.Store.Delete(ctx, keys)
}

// flakyMetadataStore fails inserts on demand.
type flakyMetadataStore struct {
	metadata.Store
	failInsert bool
}

func (f *flakyMetadataStore) Insert(ctx context.Context, record metadata.FileRecord) (metadata.FileRecord, error) {
	if f.failInsert {
		return metadata.FileRecord{}, errors.New("injected insert failure")
	}
	return f.Store.Insert(ctx, record)
}

func newTestPipeline(t *testing.T) (*Pipeline, *blobmemory.MemoryBlobStore, metadata.Store) {
	t.Helper()

	blobs, err := blobmemory.NewMemoryBlobStore(context.Background())
	require.NoError(t, err)

	records := metamemory.NewMemoryMetadataStore()

	pipeline, err := NewPipeline(PipelineConfig{
		Blobs:   blobs,
		Records: records,
	})
	require.NoError(t, err)

	return pipeline, blobs, records
}

// collectEvents drains a progress channel into a slice, grouped by file.
func collectEvents(ch <-chan Event) map[string][]Event {
	byFile := make(map[string][]Event)
	for event := range ch {
		byFile[event.FileName] = append(byFile[event.FileName], event)
	}
	return byFile
}

func pngFile(name string, size int64) File {
	content := make([]byte, size)
	return File{Name: name, MimeType: "image/png", SizeBytes: size, Content: content}
}

func TestUpload_Success(t *testing.T) {
	ctx := context.Background()
	pipeline, blobs, records := newTestPipeline(t)

	record, err := pipeline.Upload(ctx, "owner-1", File{
		Name:      "tax statement.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 9,
		Content:   []byte("pdf bytes"),
	}, "my 2025 statement", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "owner-1", record.OwnerID)
	assert.Equal(t, "tax statement.pdf", record.Name)
	assert.Equal(t, "application/pdf", record.MimeType)
	assert.Equal(t, int64(9), record.SizeBytes)
	assert.Equal(t, metadata.CategoryDocument, record.Category)
	assert.Equal(t, "my 2025 statement", record.Description)
	assert.False(t, record.Processed)

	// Blob lives under the generated key and the record is queryable.
	content, ok := blobs.GetContent(blob.Key(record.StorageKey))
	require.True(t, ok, "blob must exist under the record's storage key")
	assert.Equal(t, []byte("pdf bytes"), content)

	listed, err := records.Query(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, record.ID, listed[0].ID)
}

func TestUpload_ImageCategoryScenario(t *testing.T) {
	// 10MB image/png under a 25MB limit succeeds with category image.
	ctx := context.Background()
	pipeline, _, _ := newTestPipeline(t)

	record, err := pipeline.Upload(ctx, "owner-1", pngFile("photo.png", 10*1024*1024), "", nil)
	require.NoError(t, err)
	assert.Equal(t, metadata.CategoryImage, record.Category)
}

func TestUpload_ProgressSequence(t *testing.T) {
	ctx := context.Background()
	pipeline, _, _ := newTestPipeline(t)

	progress := make(chan Event, 16)
	_, err := pipeline.Upload(ctx, "owner-1", pngFile("photo.png", 100), "", progress)
	require.NoError(t, err)
	close(progress)

	events := collectEvents(progress)["photo.png"]
	require.NotEmpty(t, events)

	statuses := make([]Status, len(events))
	lastPercent := -1
	for i, event := range events {
		statuses[i] = event.Status
		assert.GreaterOrEqual(t, event.Percent, lastPercent, "percent must be monotonic")
		lastPercent = event.Percent
	}

	assert.Equal(t, []Status{StatusQueued, StatusUploading, StatusProcessing, StatusCompleted}, statuses)
	assert.Equal(t, 100, events[len(events)-1].Percent)
}

func TestUpload_ValidationNeverTouchesStores(t *testing.T) {
	ctx := context.Background()
	pipeline, blobs, records := newTestPipeline(t)

	progress := make(chan Event, 16)
	_, err := pipeline.Upload(ctx, "owner-1", File{
		Name:      "movie.mp4",
		MimeType:  "video/mp4",
		SizeBytes: 100,
		Content:   make([]byte, 100),
	}, "", progress)
	close(progress)

	var regErr *metadata.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, metadata.ErrValidation, regErr.Code)

	assert.Equal(t, 0, blobs.Len(), "validation failure must not write a blob")

	listed, qerr := records.Query(ctx, "owner-1")
	require.NoError(t, qerr)
	assert.Empty(t, listed, "validation failure must not insert a record")

	events := collectEvents(progress)["movie.mp4"]
	require.NotEmpty(t, events)
	assert.Equal(t, StatusError, events[len(events)-1].Status)
	assert.NotEmpty(t, events[len(events)-1].Err)
}

func TestUpload_BlobFailureLeavesNoRecord(t *testing.T) {
	ctx := context.Background()

	blobs, err := blobmemory.NewMemoryBlobStore(ctx)
	require.NoError(t, err)
	flaky := &flakyBlobStore{Store: blobs, failPut: true}

	records := metamemory.NewMemoryMetadataStore()

	pipeline, err := NewPipeline(PipelineConfig{Blobs: flaky, Records: records})
	require.NoError(t, err)

	_, err = pipeline.Upload(ctx, "owner-1", pngFile("photo.png", 100), "", nil)

	var regErr *metadata.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, metadata.ErrStoreUnavailable, regErr.Code)

	listed, qerr := records.Query(ctx, "owner-1")
	require.NoError(t, qerr)
	assert.Empty(t, listed, "failed blob write must not create a record")
}

func TestUpload_InsertFailureRollsBackBlob(t *testing.T) {
	ctx := context.Background()

	blobs, err := blobmemory.NewMemoryBlobStore(ctx)
	require.NoError(t, err)
	tracking := &flakyBlobStore{Store: blobs}

	records := &flakyMetadataStore{Store: metamemory.NewMemoryMetadataStore(), failInsert: true}

	pipeline, err := NewPipeline(PipelineConfig{Blobs: tracking, Records: records})
	require.NoError(t, err)

	progress := make(chan Event, 16)
	_, err = pipeline.Upload(ctx, "owner-1", pngFile("photo.png", 100), "", progress)
	close(progress)

	var regErr *metadata.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, metadata.ErrPartialInconsistency, regErr.Code)

	// Compensating delete issued for the written key, so no orphan blob.
	require.Len(t, tracking.deleted, 1)
	assert.Equal(t, 0, blobs.Len(), "compensating delete must remove the blob")

	events := collectEvents(progress)["photo.png"]
	assert.Equal(t, StatusError, events[len(events)-1].Status)

	listed, qerr := records.Query(ctx, "owner-1")
	require.NoError(t, qerr)
	assert.Empty(t, listed)
}

func TestUpload_CompensatingDeleteFailureStillReportsInsertError(t *testing.T) {
	ctx := context.Background()

	blobs, err := blobmemory.NewMemoryBlobStore(ctx)
	require.NoError(t, err)
	flaky := &flakyBlobStore{Store: blobs, failDelete: true}

	records := &flakyMetadataStore{Store: metamemory.NewMemoryMetadataStore(), failInsert: true}

	pipeline, err := NewPipeline(PipelineConfig{Blobs: flaky, Records: records})
	require.NoError(t, err)

	_, err = pipeline.Upload(ctx, "owner-1", pngFile("photo.png", 100), "", nil)

	// The orphan blob is logged, not retried; the caller sees the
	// original metadata-insert failure.
	var regErr *metadata.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, metadata.ErrPartialInconsistency, regErr.Code)
}

func TestUploadBatch_ReturnsSuccessesAndIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	pipeline, _, records := newTestPipeline(t)

	files := []File{
		pngFile("a.png", 100),
		{Name: "bad.mp4", MimeType: "video/mp4", SizeBytes: 100, Content: make([]byte, 100)},
		pngFile("c.png", 100),
	}

	progress := make(chan Event, 64)
	created := pipeline.UploadBatch(ctx, "owner-1", files, []string{"first", "", "third"}, progress)
	close(progress)

	require.Len(t, created, 2, "one failure must not abort siblings")
	assert.Equal(t, "a.png", created[0].Name)
	assert.Equal(t, "first", created[0].Description)
	assert.Equal(t, "c.png", created[1].Name)
	assert.Equal(t, "third", created[1].Description)

	listed, err := records.Query(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	events := collectEvents(progress)
	assert.Equal(t, StatusError, events["bad.mp4"][len(events["bad.mp4"])-1].Status)
	assert.Equal(t, StatusCompleted, events["a.png"][len(events["a.png"])-1].Status)
	assert.Equal(t, StatusCompleted, events["c.png"][len(events["c.png"])-1].Status)
}

func TestUploadBatch_RejectsFilesBeyondMax(t *testing.T) {
	ctx := context.Background()

	blobs, err := blobmemory.NewMemoryBlobStore(ctx)
	require.NoError(t, err)
	records := metamemory.NewMemoryMetadataStore()

	pipeline, err := NewPipeline(PipelineConfig{
		Blobs:   blobs,
		Records: records,
		Limits:  Limits{MaxFiles: 10, MaxSizeBytes: 25 * 1024 * 1024, AllowedTypes: []string{"image/*"}},
	})
	require.NoError(t, err)

	files := make([]File, 11)
	for i := range files {
		files[i] = pngFile(string(rune('a'+i))+".png", 10)
	}

	progress := make(chan Event, 128)
	created := pipeline.UploadBatch(ctx, "owner-1", files, nil, progress)
	close(progress)

	assert.Len(t, created, 10, "first ten files proceed")

	// The 11th file is rejected by validation before any store call.
	events := collectEvents(progress)["k.png"]
	require.Len(t, events, 1)
	assert.Equal(t, StatusError, events[0].Status)
	assert.Contains(t, events[0].Err, "maximum of 10 files")
	assert.Equal(t, 10, blobs.Len())
}

func TestUploadBatch_BoundedParallelism(t *testing.T) {
	ctx := context.Background()

	blobs, err := blobmemory.NewMemoryBlobStore(ctx)
	require.NoError(t, err)
	records := metamemory.NewMemoryMetadataStore()

	pipeline, err := NewPipeline(PipelineConfig{
		Blobs:       blobs,
		Records:     records,
		Limits:      Limits{MaxFiles: 100},
		Parallelism: 2,
	})
	require.NoError(t, err)

	files := make([]File, 8)
	for i := range files {
		files[i] = pngFile(string(rune('a'+i))+".png", 10)
	}

	done := make(chan []metadata.FileRecord, 1)
	go func() {
		done <- pipeline.UploadBatch(ctx, "owner-1", files, nil, nil)
	}()

	select {
	case created := <-done:
		assert.Len(t, created, 8)
	case <-time.After(10 * time.Second):
		t.Fatal("UploadBatch did not finish")
	}
}
