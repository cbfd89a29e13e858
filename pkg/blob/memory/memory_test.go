package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/clearwealth/filevault/pkg/blob"
	blobtesting "github.com/clearwealth/filevault/pkg/blob/testing"
)

// TestMemoryBlobStore runs the complete blob.Store test suite against the
// MemoryBlobStore implementation.
func TestMemoryBlobStore(t *testing.T) {
	suite := &blobtesting.StoreTestSuite{
		NewStore: func(t *testing.T) blob.Store {
			store, err := NewMemoryBlobStore(context.Background())
			if err != nil {
				t.Fatalf("Failed to create MemoryBlobStore: %v", err)
			}
			return store
		},
	}

	suite.Run(t)
}

func TestMemoryBlobStore_SignedURLEncodesExpiry(t *testing.T) {
	ctx := context.Background()

	store, err := NewMemoryBlobStore(ctx)
	if err != nil {
		t.Fatalf("Failed to create MemoryBlobStore: %v", err)
	}

	fixed := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return fixed }

	key := blob.Key("owner-1/1000_doc.pdf")
	if err := store.Put(ctx, key, []byte("data"), blob.PutOptions{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	url, err := store.SignedURL(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("SignedURL failed: %v", err)
	}

	want := "expires=1700003600"
	if !strings.Contains(url, want) {
		t.Errorf("Expected URL to contain %q, got %q", want, url)
	}
}

func TestMemoryBlobStore_SignedURLForMissingKey(t *testing.T) {
	ctx := context.Background()

	store, err := NewMemoryBlobStore(ctx)
	if err != nil {
		t.Fatalf("Failed to create MemoryBlobStore: %v", err)
	}

	_, err = store.SignedURL(ctx, "owner-1/absent.bin", time.Hour)
	if err == nil {
		t.Fatal("Expected error for signed URL of missing blob")
	}
}
