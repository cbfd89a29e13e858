// Package testing provides a reusable test suite for blob.Store
// implementations. It tests the interface contract, not implementation
// details, so the same suite runs against the memory and S3 backends.
package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clearwealth/filevault/pkg/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a test suite for blob.Store implementations.
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh store for each
	// test. This ensures test isolation.
	NewStore func(t *testing.T) blob.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("PutAndExists", suite.TestPutAndExists)
	t.Run("PutRefusesOverwrite", suite.TestPutRefusesOverwrite)
	t.Run("PutAllowsOverwriteWhenEnabled", suite.TestPutAllowsOverwriteWhenEnabled)
	t.Run("DeleteRemovesBlobs", suite.TestDeleteRemovesBlobs)
	t.Run("DeleteAbsentKeyIsIdempotent", suite.TestDeleteAbsentKeyIsIdempotent)
	t.Run("SignedURLIsFreshPerCall", suite.TestSignedURLIsFreshPerCall)
}

// TestPutAndExists verifies a stored blob becomes visible to Exists.
func (suite *StoreTestSuite) TestPutAndExists(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	key := blob.Key("owner-1/1000_report.pdf")

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists, "blob should not exist before Put")

	err = store.Put(ctx, key, []byte("pdf bytes"), blob.PutOptions{ContentType: "application/pdf"})
	require.NoError(t, err)

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists, "blob should exist after Put")
}

// TestPutRefusesOverwrite verifies that a second write to the same key
// fails with ErrKeyExists and leaves the original blob in place.
func (suite *StoreTestSuite) TestPutRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	key := blob.Key("owner-1/1000_statement.csv")

	require.NoError(t, store.Put(ctx, key, []byte("first"), blob.PutOptions{}))

	err := store.Put(ctx, key, []byte("second"), blob.PutOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, blob.ErrKeyExists), "expected ErrKeyExists, got: %v", err)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestPutAllowsOverwriteWhenEnabled verifies AllowOverwrite bypasses the
// existence check.
func (suite *StoreTestSuite) TestPutAllowsOverwriteWhenEnabled(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	key := blob.Key("owner-1/1000_notes.txt")

	require.NoError(t, store.Put(ctx, key, []byte("v1"), blob.PutOptions{}))
	require.NoError(t, store.Put(ctx, key, []byte("v2"), blob.PutOptions{AllowOverwrite: true}))
}

// TestDeleteRemovesBlobs verifies batch delete removes every named key.
func (suite *StoreTestSuite) TestDeleteRemovesBlobs(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	keys := []blob.Key{
		"owner-1/1000_a.txt",
		"owner-1/1001_b.txt",
		"owner-1/1002_c.txt",
	}
	for _, key := range keys {
		require.NoError(t, store.Put(ctx, key, []byte("data"), blob.PutOptions{}))
	}

	failures, err := store.Delete(ctx, keys)
	require.NoError(t, err)
	assert.Empty(t, failures)

	for _, key := range keys {
		exists, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists, "blob %s should be gone after Delete", key)
	}
}

// TestDeleteAbsentKeyIsIdempotent verifies deleting a key that was never
// written succeeds without per-key failures.
func (suite *StoreTestSuite) TestDeleteAbsentKeyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	failures, err := store.Delete(ctx, []blob.Key{"owner-1/9999_ghost.bin"})
	require.NoError(t, err)
	assert.Empty(t, failures)
}

// TestSignedURLIsFreshPerCall verifies two resolutions for the same key
// both produce non-empty URLs without caching.
func (suite *StoreTestSuite) TestSignedURLIsFreshPerCall(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	key := blob.Key("owner-1/1000_photo.png")
	require.NoError(t, store.Put(ctx, key, []byte("png bytes"), blob.PutOptions{ContentType: "image/png"}))

	url1, err := store.SignedURL(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, url1)

	url2, err := store.SignedURL(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, url2)
}
