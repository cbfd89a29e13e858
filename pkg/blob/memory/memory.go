package memory

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/clearwealth/filevault/pkg/blob"
)

// MemoryBlobStore implements blob.Store using in-memory storage.
//
// This implementation keeps all blobs in a map. It's designed for:
//   - Testing and development
//   - Local runs without an S3 endpoint
//
// Characteristics:
//   - Fast: all operations are memory-speed
//   - Volatile: data lost on restart
//   - Thread-safe: protected by RWMutex
//
// Signed URLs are synthetic memory:// URLs carrying the key and an expiry
// timestamp. They are not fetchable over a network, but they satisfy the
// contract that matters to callers: each call issues a fresh URL, distinct
// URLs for the same key reference the same bytes, and the expiry is
// encoded in the URL itself.
type MemoryBlobStore struct {
	// objects stores blob bytes and declared content type keyed by blob key
	objects map[blob.Key]object

	// mu protects concurrent access to the objects map
	mu sync.RWMutex

	// now is the clock, replaceable in tests
	now func() time.Time
}

type object struct {
	data        []byte
	contentType string
}

// NewMemoryBlobStore creates a new in-memory blob store. The store starts
// empty and all data is lost when the process exits.
func NewMemoryBlobStore(ctx context.Context) (*MemoryBlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryBlobStore{
		objects: make(map[blob.Key]object),
		now:     time.Now,
	}, nil
}

// Put writes data under the given key.
//
// The data is copied, so the caller may reuse its buffer. With overwrite
// disabled an existing key yields blob.ErrKeyExists and the stored blob is
// left untouched.
func (s *MemoryBlobStore) Put(ctx context.Context, key blob.Key, data []byte, opts blob.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; exists && !opts.AllowOverwrite {
		return fmt.Errorf("put %s: %w", key, blob.ErrKeyExists)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = object{data: buf, contentType: opts.ContentType}

	return nil
}

// Exists reports whether a blob is stored under the key.
func (s *MemoryBlobStore) Exists(ctx context.Context, key blob.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.objects[key]
	return exists, nil
}

// Delete removes the given blobs. Absent keys are ignored.
func (s *MemoryBlobStore) Delete(ctx context.Context, keys []blob.Key) (map[blob.Key]error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.objects, key)
	}

	return map[blob.Key]error{}, nil
}

// List returns every stored key. Implements blob.Lister.
func (s *MemoryBlobStore) List(ctx context.Context) ([]blob.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]blob.Key, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	return keys, nil
}

// SignedURL returns a synthetic memory:// URL for the blob.
//
// Format: memory://blob/<escaped key>?expires=<unix seconds>
func (s *MemoryBlobStore) SignedURL(ctx context.Context, key blob.Key, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.objects[key]; !exists {
		return "", fmt.Errorf("signed url %s: %w", key, blob.ErrBlobNotFound)
	}

	expires := s.now().Add(ttl).Unix()
	return fmt.Sprintf("memory://blob/%s?expires=%d", url.PathEscape(string(key)), expires), nil
}

// GetContent returns a copy of the stored bytes for a key. This is a
// test-support accessor not part of blob.Store: synthetic memory:// URLs
// cannot be fetched, so suites use it to check what a URL would resolve to.
func (s *MemoryBlobStore) GetContent(key blob.Key) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, exists := s.objects[key]
	if !exists {
		return nil, false
	}

	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, true
}

// Len returns the number of stored blobs. Test-support accessor.
func (s *MemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}
