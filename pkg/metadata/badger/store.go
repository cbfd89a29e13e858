package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/clearwealth/filevault/pkg/metadata"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// BadgerMetadataStore implements metadata.Store using BadgerDB for
// persistence.
//
// This implementation provides a persistent file-record table backed by
// BadgerDB, a fast embedded key-value store. It is suitable for production
// deployments where records must survive restarts, without requiring an
// external database server.
//
// Storage Model:
// Records are JSON documents under "r:" keys with a denormalized owner
// index under "o:" (see keys.go for the schema). Insert, update, and
// delete each run inside a single Badger transaction, so a record and its
// index entry are always created and removed together.
//
// Thread Safety:
// BadgerDB transactions provide isolation; the store is safe for
// concurrent use by multiple goroutines.
type BadgerMetadataStore struct {
	db *badger.DB

	// now is the clock used for UploadedAt, replaceable in tests
	now func() time.Time
}

// BadgerMetadataStoreConfig contains configuration for the badger store.
type BadgerMetadataStoreConfig struct {
	// Path is the directory holding the BadgerDB files. Created if absent.
	Path string

	// InMemory runs BadgerDB without touching disk. Useful for tests.
	InMemory bool
}

// NewBadgerMetadataStore opens (or creates) a BadgerDB-backed store.
func NewBadgerMetadataStore(ctx context.Context, cfg BadgerMetadataStoreConfig) (*BadgerMetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger metadata store: path is required")
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &BadgerMetadataStore{
		db:  db,
		now: time.Now,
	}, nil
}

// Insert persists a new record, assigning ID and UploadedAt.
//
// The record document and its owner index entry are written in one
// transaction, so a crash can never leave an index entry without a record
// or vice versa.
func (s *BadgerMetadataStore) Insert(ctx context.Context, record metadata.FileRecord) (metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return metadata.FileRecord{}, err
	}

	if record.OwnerID == "" {
		return metadata.FileRecord{}, fmt.Errorf("owner id is required")
	}

	record.ID = uuid.NewString()
	record.UploadedAt = s.now()

	data, err := encodeRecord(record)
	if err != nil {
		return metadata.FileRecord{}, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(record.ID), data); err != nil {
			return err
		}
		return txn.Set(ownerIndexKey(record.OwnerID, record.ID), nil)
	})
	if err != nil {
		return metadata.FileRecord{}, fmt.Errorf("failed to insert file record: %w", err)
	}

	return record, nil
}

// Update applies a patch to the record matching id and owner.
func (s *BadgerMetadataStore) Update(ctx context.Context, id, ownerID string, patch metadata.UpdatePatch) (metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return metadata.FileRecord{}, err
	}

	var updated metadata.FileRecord

	err := s.db.Update(func(txn *badger.Txn) error {
		record, err := s.getOwnedRecord(txn, id, ownerID)
		if err != nil {
			return err
		}

		if patch.Description != nil {
			record.Description = *patch.Description
		}
		if patch.Processed != nil {
			record.Processed = *patch.Processed
		}

		data, err := encodeRecord(record)
		if err != nil {
			return err
		}

		if err := txn.Set(recordKey(id), data); err != nil {
			return err
		}

		updated = record
		return nil
	})
	if err != nil {
		return metadata.FileRecord{}, err
	}

	return updated, nil
}

// Delete removes the record matching id and owner, along with its owner
// index entry, in one transaction.
func (s *BadgerMetadataStore) Delete(ctx context.Context, id, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := s.getOwnedRecord(txn, id, ownerID); err != nil {
			return err
		}

		if err := txn.Delete(recordKey(id)); err != nil {
			return err
		}
		return txn.Delete(ownerIndexKey(ownerID, id))
	})
}

// Query returns all records for the owner, newest first.
//
// This scans the owner index prefix and point-reads each record. Ordering
// is by UploadedAt descending with the record id as a deterministic
// tiebreak.
func (s *BadgerMetadataStore) Query(ctx context.Context, ownerID string) ([]metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []metadata.FileRecord

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := ownerScanPrefix(ownerID)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])

			item, err := txn.Get(recordKey(id))
			if err != nil {
				return fmt.Errorf("failed to read record %s: %w", id, err)
			}

			err = item.Value(func(val []byte) error {
				record, err := decodeRecord(val)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].UploadedAt.Equal(records[j].UploadedAt) {
			return records[i].UploadedAt.After(records[j].UploadedAt)
		}
		return records[i].ID > records[j].ID
	})

	return records, nil
}

// StorageKeys returns the storage keys of all records across all owners.
// Implements metadata.KeyLister with a full scan of the record prefix.
func (s *BadgerMetadataStore) StorageKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(recordPrefix)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				record, err := decodeRecord(val)
				if err != nil {
					return err
				}
				keys = append(keys, record.StorageKey)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// Close flushes and closes the underlying BadgerDB.
func (s *BadgerMetadataStore) Close() error {
	return s.db.Close()
}

// getOwnedRecord fetches a record inside a transaction, enforcing the
// ownership check through the owner index. A missing index entry and a
// missing record both surface as metadata.ErrRecordNotFound.
func (s *BadgerMetadataStore) getOwnedRecord(txn *badger.Txn, id, ownerID string) (metadata.FileRecord, error) {
	if _, err := txn.Get(ownerIndexKey(ownerID, id)); err != nil {
		if err == badger.ErrKeyNotFound {
			return metadata.FileRecord{}, fmt.Errorf("record %s: %w", id, metadata.ErrRecordNotFound)
		}
		return metadata.FileRecord{}, fmt.Errorf("failed to read owner index: %w", err)
	}

	item, err := txn.Get(recordKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return metadata.FileRecord{}, fmt.Errorf("record %s: %w", id, metadata.ErrRecordNotFound)
		}
		return metadata.FileRecord{}, fmt.Errorf("failed to read record: %w", err)
	}

	var record metadata.FileRecord
	err = item.Value(func(val []byte) error {
		record, err = decodeRecord(val)
		return err
	})
	if err != nil {
		return metadata.FileRecord{}, err
	}

	return record, nil
}
