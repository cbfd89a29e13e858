// Package testing provides a reusable test suite for metadata.Store
// implementations. It tests the interface contract, not implementation
// details, so the same suite runs against the memory and badger backends.
package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clearwealth/filevault/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a test suite for metadata.Store implementations.
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh store for each
	// test. This ensures test isolation. The suite closes the store when
	// the test finishes.
	NewStore func(t *testing.T) metadata.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("InsertAssignsIdentity", suite.TestInsertAssignsIdentity)
	t.Run("QueryOrdersNewestFirst", suite.TestQueryOrdersNewestFirst)
	t.Run("QueryScopedToOwner", suite.TestQueryScopedToOwner)
	t.Run("UpdateDescription", suite.TestUpdateDescription)
	t.Run("UpdateLastWriterWins", suite.TestUpdateLastWriterWins)
	t.Run("UpdateEnforcesOwnership", suite.TestUpdateEnforcesOwnership)
	t.Run("UpdateProcessedFlag", suite.TestUpdateProcessedFlag)
	t.Run("DeleteRemovesRecord", suite.TestDeleteRemovesRecord)
	t.Run("DeleteEnforcesOwnership", suite.TestDeleteEnforcesOwnership)
}

func (suite *StoreTestSuite) newStore(t *testing.T) metadata.Store {
	t.Helper()

	store := suite.NewStore(t)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return store
}

// TestInsertAssignsIdentity verifies Insert assigns ID and UploadedAt and
// preserves every caller-supplied field.
func (suite *StoreTestSuite) TestInsertAssignsIdentity(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	inserted, err := store.Insert(ctx, TaxReturnRecord("owner-1"))
	require.NoError(t, err)

	assert.NotEmpty(t, inserted.ID, "store must assign an id")
	assert.False(t, inserted.UploadedAt.IsZero(), "store must assign UploadedAt")
	assert.Equal(t, "owner-1", inserted.OwnerID)
	assert.Equal(t, "tax return 2025.pdf", inserted.Name)
	assert.Equal(t, "application/pdf", inserted.MimeType)
	assert.Equal(t, int64(482_113), inserted.SizeBytes)
	assert.Equal(t, metadata.CategoryDocument, inserted.Category)
	assert.False(t, inserted.Processed)
}

// TestQueryOrdersNewestFirst verifies Query returns records ordered by
// UploadedAt descending.
func (suite *StoreTestSuite) TestQueryOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	// Small gaps keep UploadedAt strictly increasing even on coarse clocks.
	first, err := store.Insert(ctx, TaxReturnRecord("owner-1"))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := store.Insert(ctx, ReceiptImageRecord("owner-1"))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	third, err := store.Insert(ctx, BudgetSheetRecord("owner-1"))
	require.NoError(t, err)

	records, err := store.Query(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, third.ID, records[0].ID, "newest record first")
	assert.Equal(t, second.ID, records[1].ID)
	assert.Equal(t, first.ID, records[2].ID, "oldest record last")

	for i := 1; i < len(records); i++ {
		assert.False(t, records[i-1].UploadedAt.Before(records[i].UploadedAt),
			"records must be ordered by UploadedAt descending")
	}
}

// TestQueryScopedToOwner verifies one owner never sees another's records,
// and an owner with no records gets an empty result.
func (suite *StoreTestSuite) TestQueryScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	_, err := store.Insert(ctx, TaxReturnRecord("owner-1"))
	require.NoError(t, err)
	_, err = store.Insert(ctx, ReceiptImageRecord("owner-2"))
	require.NoError(t, err)

	records, err := store.Query(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "owner-1", records[0].OwnerID)

	records, err = store.Query(ctx, "owner-3")
	require.NoError(t, err)
	assert.Empty(t, records)
}

// TestUpdateDescription verifies the description patch path.
func (suite *StoreTestSuite) TestUpdateDescription(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	inserted, err := store.Insert(ctx, TaxReturnRecord("owner-1"))
	require.NoError(t, err)

	desc := "2025 federal return"
	updated, err := store.Update(ctx, inserted.ID, "owner-1", metadata.UpdatePatch{Description: &desc})
	require.NoError(t, err)

	assert.Equal(t, desc, updated.Description)
	assert.Equal(t, inserted.ID, updated.ID)
	assert.Equal(t, inserted.StorageKey, updated.StorageKey, "immutable fields unchanged")

	records, err := store.Query(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, desc, records[0].Description, "update must be persisted")
}

// TestUpdateLastWriterWins verifies two sequential description updates
// leave the final value equal to the last write, with no merge.
func (suite *StoreTestSuite) TestUpdateLastWriterWins(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	inserted, err := store.Insert(ctx, TaxReturnRecord("owner-1"))
	require.NoError(t, err)

	first := "first description"
	_, err = store.Update(ctx, inserted.ID, "owner-1", metadata.UpdatePatch{Description: &first})
	require.NoError(t, err)

	second := "second description"
	updated, err := store.Update(ctx, inserted.ID, "owner-1", metadata.UpdatePatch{Description: &second})
	require.NoError(t, err)

	assert.Equal(t, second, updated.Description)
}

// TestUpdateEnforcesOwnership verifies updating with a foreign owner id
// fails with ErrRecordNotFound and changes nothing.
func (suite *StoreTestSuite) TestUpdateEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	inserted, err := store.Insert(ctx, TaxReturnRecord("owner-1"))
	require.NoError(t, err)

	desc := "should not be applied"
	_, err = store.Update(ctx, inserted.ID, "owner-2", metadata.UpdatePatch{Description: &desc})
	require.Error(t, err)
	assert.True(t, errors.Is(err, metadata.ErrRecordNotFound), "expected ErrRecordNotFound, got: %v", err)

	records, err := store.Query(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Description, "record must be unchanged")
}

// TestUpdateProcessedFlag verifies the processed patch path.
func (suite *StoreTestSuite) TestUpdateProcessedFlag(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	inserted, err := store.Insert(ctx, BudgetSheetRecord("owner-1"))
	require.NoError(t, err)

	processed := true
	updated, err := store.Update(ctx, inserted.ID, "owner-1", metadata.UpdatePatch{Processed: &processed})
	require.NoError(t, err)

	assert.True(t, updated.Processed)
	assert.Empty(t, updated.Description, "untouched fields keep their value")
}

// TestDeleteRemovesRecord verifies delete removes exactly the named record.
func (suite *StoreTestSuite) TestDeleteRemovesRecord(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	keep, err := store.Insert(ctx, TaxReturnRecord("owner-1"))
	require.NoError(t, err)
	remove, err := store.Insert(ctx, ReceiptImageRecord("owner-1"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, remove.ID, "owner-1"))

	records, err := store.Query(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, keep.ID, records[0].ID)

	err = store.Delete(ctx, remove.ID, "owner-1")
	assert.True(t, errors.Is(err, metadata.ErrRecordNotFound), "second delete must report ErrRecordNotFound")
}

// TestDeleteEnforcesOwnership verifies deleting with a foreign or unknown
// owner id fails with ErrRecordNotFound and leaves the store unchanged.
func (suite *StoreTestSuite) TestDeleteEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t)

	inserted, err := store.Insert(ctx, TaxReturnRecord("owner-1"))
	require.NoError(t, err)

	err = store.Delete(ctx, inserted.ID, "owner-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, metadata.ErrRecordNotFound), "expected ErrRecordNotFound, got: %v", err)

	records, err := store.Query(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, records, 1, "store must be unchanged after failed delete")
}
