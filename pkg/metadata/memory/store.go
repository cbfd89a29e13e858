package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/clearwealth/filevault/pkg/metadata"
	"github.com/google/uuid"
)

// MemoryMetadataStore implements metadata.Store using in-memory storage.
//
// This implementation keeps all records in nested maps keyed by owner and
// record id. It's designed for testing and ephemeral local runs; nothing
// survives a restart.
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Records are returned by
// value, so callers can never mutate store state through a returned record.
type MemoryMetadataStore struct {
	// records maps ownerID -> recordID -> stored record
	records map[string]map[string]storedRecord

	// seq is a monotonic insert counter used to break UploadedAt ties so
	// Query ordering stays stable when two inserts share a timestamp
	seq uint64

	// mu protects records and seq
	mu sync.RWMutex

	// now is the clock, replaceable in tests
	now func() time.Time
}

type storedRecord struct {
	record metadata.FileRecord
	seq    uint64
}

// NewMemoryMetadataStore creates a new empty in-memory metadata store.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{
		records: make(map[string]map[string]storedRecord),
		now:     time.Now,
	}
}

// Insert persists a new record, assigning ID and UploadedAt.
func (s *MemoryMetadataStore) Insert(ctx context.Context, record metadata.FileRecord) (metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return metadata.FileRecord{}, err
	}

	if record.OwnerID == "" {
		return metadata.FileRecord{}, fmt.Errorf("owner id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record.ID = uuid.NewString()
	record.UploadedAt = s.now()

	owned := s.records[record.OwnerID]
	if owned == nil {
		owned = make(map[string]storedRecord)
		s.records[record.OwnerID] = owned
	}

	s.seq++
	owned[record.ID] = storedRecord{record: record, seq: s.seq}

	return record, nil
}

// Update applies a patch to the record matching id and owner.
func (s *MemoryMetadataStore) Update(ctx context.Context, id, ownerID string, patch metadata.UpdatePatch) (metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return metadata.FileRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[ownerID][id]
	if !ok {
		return metadata.FileRecord{}, fmt.Errorf("update %s: %w", id, metadata.ErrRecordNotFound)
	}

	if patch.Description != nil {
		stored.record.Description = *patch.Description
	}
	if patch.Processed != nil {
		stored.record.Processed = *patch.Processed
	}

	s.records[ownerID][id] = stored

	return stored.record, nil
}

// Delete removes the record matching id and owner.
func (s *MemoryMetadataStore) Delete(ctx context.Context, id, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[ownerID][id]; !ok {
		return fmt.Errorf("delete %s: %w", id, metadata.ErrRecordNotFound)
	}

	delete(s.records[ownerID], id)

	return nil
}

// Query returns all records for the owner, newest first.
func (s *MemoryMetadataStore) Query(ctx context.Context, ownerID string) ([]metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.records[ownerID]

	stored := make([]storedRecord, 0, len(owned))
	for _, rec := range owned {
		stored = append(stored, rec)
	}

	sort.Slice(stored, func(i, j int) bool {
		if !stored[i].record.UploadedAt.Equal(stored[j].record.UploadedAt) {
			return stored[i].record.UploadedAt.After(stored[j].record.UploadedAt)
		}
		return stored[i].seq > stored[j].seq
	})

	records := make([]metadata.FileRecord, len(stored))
	for i, rec := range stored {
		records[i] = rec.record
	}

	return records, nil
}

// StorageKeys returns the storage keys of all records across all owners.
// Implements metadata.KeyLister.
func (s *MemoryMetadataStore) StorageKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for _, owned := range s.records {
		for _, rec := range owned {
			keys = append(keys, rec.record.StorageKey)
		}
	}
	return keys, nil
}

// Close releases store resources. No-op for the memory store.
func (s *MemoryMetadataStore) Close() error {
	return nil
}
